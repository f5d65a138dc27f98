// Package targets loads and validates the career-site target list.
package targets

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/jobradar/harvester/internal/scrape"
)

// Fallback selectors applied when a target omits its own. Career pages vary,
// but these shapes cover the common templates.
var fallbackSelectors = scrape.Selectors{
	JobItem:   ".job, .position, .opening, .job-item",
	Title:     "h1, h2, h3, .title, .job-title",
	Location:  ".location, .job-location",
	DetailURL: "a[href]",
}

// Defaults applied to targets that omit politeness or budget fields.
const (
	defaultRateLimitPerMinute = 30
	defaultMaxPages           = 5
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// LoadFile reads the target list from a JSON file: an ordered array of
// target records. Missing selectors, budgets, and slugs are filled in;
// invalid records fail the whole load so a bad config is caught at startup.
func LoadFile(path string) ([]scrape.Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}
	var list []scrape.Target
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse targets file %s: %w", path, err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("targets file %s is empty", path)
	}

	seen := make(map[string]struct{}, len(list))
	for i := range list {
		if err := normalize(&list[i]); err != nil {
			return nil, fmt.Errorf("target %d (%s): %w", i, list[i].Name, err)
		}
		if _, dup := seen[list[i].Slug]; dup {
			return nil, fmt.Errorf("duplicate target slug %q", list[i].Slug)
		}
		seen[list[i].Slug] = struct{}{}
	}
	return list, nil
}

// Filter returns the subset of list whose name or slug appears in names.
func Filter(list []scrape.Target, names []string) []scrape.Target {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}
	var out []scrape.Target
	for _, t := range list {
		if _, ok := want[strings.ToLower(t.Name)]; ok {
			out = append(out, t)
			continue
		}
		if _, ok := want[t.Slug]; ok {
			out = append(out, t)
		}
	}
	return out
}

func normalize(t *scrape.Target) error {
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	if t.ListingURL == "" {
		return fmt.Errorf("listing_url is required")
	}
	if t.Slug == "" {
		t.Slug = Slugify(t.Name)
	}
	if t.Tier == "" {
		t.Tier = scrape.TierLow
	}
	if !t.Tier.Valid() {
		return fmt.Errorf("unknown tier %q", t.Tier)
	}
	if t.RateLimitPerMinute <= 0 {
		t.RateLimitPerMinute = defaultRateLimitPerMinute
	}
	if t.MaxPages <= 0 {
		t.MaxPages = defaultMaxPages
	}

	s := &t.Selectors
	if s.JobItem == "" {
		s.JobItem = fallbackSelectors.JobItem
	}
	if s.Title == "" {
		s.Title = fallbackSelectors.Title
	}
	if s.Location == "" {
		s.Location = fallbackSelectors.Location
	}
	if s.DetailURL == "" {
		s.DetailURL = fallbackSelectors.DetailURL
	}
	return nil
}

// Slugify lowercases a target name into its stable identifier form.
// The slug feeds external IDs, so changing this mapping would orphan
// previously persisted jobs.
func Slugify(name string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}
