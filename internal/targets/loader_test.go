package targets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jobradar/harvester/internal/scrape"
)

func writeTargets(t *testing.T, payload string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "targets.json")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))
	return path
}

func TestLoadFile_AppliesDefaultsAndFallbackSelectors(t *testing.T) {
	t.Parallel()

	path := writeTargets(t, `[
		{"name": "Acme Corp", "listing_url": "https://jobs.acme.com/openings"}
	]`)

	list, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got := list[0]
	require.Equal(t, "acme-corp", got.Slug)
	require.Equal(t, scrape.TierLow, got.Tier)
	require.Equal(t, 30, got.RateLimitPerMinute)
	require.Equal(t, 5, got.MaxPages)
	require.Equal(t, ".job, .position, .opening, .job-item", got.Selectors.JobItem)
	require.Equal(t, "a[href]", got.Selectors.DetailURL)
}

func TestLoadFile_KeepsExplicitConfiguration(t *testing.T) {
	t.Parallel()

	path := writeTargets(t, `[{
		"name": "Globex",
		"slug": "globex",
		"listing_url": "https://globex.example/careers",
		"selectors": {"job_item": ".gx-card", "title": "h3", "location": ".gx-loc", "detail_url": "a.apply", "next_page": "a.next"},
		"rate_limit_per_minute": 10,
		"max_pages": 3,
		"tier": "high"
	}]`)

	list, err := LoadFile(path)
	require.NoError(t, err)
	got := list[0]
	require.Equal(t, scrape.TierHigh, got.Tier)
	require.Equal(t, 10, got.RateLimitPerMinute)
	require.Equal(t, ".gx-card", got.Selectors.JobItem)
	require.Equal(t, "a.next", got.Selectors.NextPage)
}

func TestLoadFile_RejectsBadRecords(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"missing url":    `[{"name": "Acme"}]`,
		"unknown tier":   `[{"name": "Acme", "listing_url": "https://a", "tier": "urgent"}]`,
		"duplicate slug": `[{"name": "Acme", "listing_url": "https://a"}, {"name": "acme", "listing_url": "https://b"}]`,
		"empty list":     `[]`,
	}
	for name, payload := range cases {
		_, err := LoadFile(writeTargets(t, payload))
		require.Error(t, err, name)
	}
}

func TestFilter_MatchesNameOrSlugCaseInsensitive(t *testing.T) {
	t.Parallel()

	list := []scrape.Target{
		{Name: "Acme Corp", Slug: "acme-corp"},
		{Name: "Globex", Slug: "globex"},
	}

	require.Len(t, Filter(list, []string{"globex"}), 1)
	require.Len(t, Filter(list, []string{"acme corp", "GLOBEX"}), 2)
	require.Empty(t, Filter(list, []string{"initech"}))
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	require.Equal(t, "acme-corp", Slugify("Acme Corp"))
	require.Equal(t, "o-reilly-sons", Slugify("O'Reilly & Sons!"))
}
