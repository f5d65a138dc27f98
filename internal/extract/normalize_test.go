package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jobradar/harvester/internal/scrape"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	target := scrape.Target{
		Name:       "Acme Corp",
		Slug:       "acme-corp",
		ListingURL: "https://acme.example.com/careers",
	}
	listing := scrape.RawListing{
		Title:     "Senior Software Engineer",
		Location:  "Remote - EU",
		DetailURL: "https://acme.example.com/careers/123",
		Salary:    "$100k - $150k",
	}
	now := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)

	job := Normalize(target, listing, now)

	require.Equal(t, scrape.ExternalID("acme-corp", listing.DetailURL), job.ExternalID)
	require.Equal(t, "Senior Software Engineer", job.Title)
	require.Equal(t, "Acme Corp", job.Company)
	require.Equal(t, CategoryEngineering, job.Category)
	require.Equal(t, LevelSenior, job.Level)
	require.Equal(t, EmploymentFullTime, job.EmploymentType)
	require.True(t, job.Remote)
	require.Equal(t, listing.DetailURL, job.URL)
	require.Equal(t, "Senior Software Engineer at Acme Corp", job.Description)
	require.Equal(t, 100000, job.SalaryMin)
	require.Equal(t, 150000, job.SalaryMax)
	require.Equal(t, now, job.DiscoveredAt)
}

func TestNormalize_StableID(t *testing.T) {
	t.Parallel()

	target := scrape.Target{Name: "Acme", Slug: "acme", ListingURL: "https://acme.example.com/jobs"}
	listing := scrape.RawListing{Title: "Engineer", DetailURL: "https://acme.example.com/jobs/7"}

	a := Normalize(target, listing, time.Now())
	b := Normalize(target, listing, time.Now().Add(time.Hour))
	require.Equal(t, a.ExternalID, b.ExternalID)

	// Query-string churn must not change identity.
	listing.DetailURL = "https://acme.example.com/jobs/7?utm_source=feed"
	c := Normalize(target, listing, time.Now())
	require.Equal(t, a.ExternalID, c.ExternalID)
}

func TestNormalize_MissingDetailURL(t *testing.T) {
	t.Parallel()

	target := scrape.Target{Name: "Acme", Slug: "acme", ListingURL: "https://acme.example.com/jobs"}
	first := scrape.RawListing{Title: "Engineer"}
	second := scrape.RawListing{Title: "Designer"}

	a := Normalize(target, first, time.Now())
	b := Normalize(target, second, time.Now())

	require.Equal(t, target.ListingURL, a.URL)
	require.Equal(t, target.ListingURL, b.URL)
	require.NotEqual(t, a.ExternalID, b.ExternalID)
}

func TestNormalize_NoSalary(t *testing.T) {
	t.Parallel()

	target := scrape.Target{Name: "Acme", Slug: "acme", ListingURL: "https://acme.example.com/jobs"}
	listing := scrape.RawListing{Title: "Engineer", DetailURL: "https://acme.example.com/jobs/1"}

	job := Normalize(target, listing, time.Now())
	require.Zero(t, job.SalaryMin)
	require.Zero(t, job.SalaryMax)
}
