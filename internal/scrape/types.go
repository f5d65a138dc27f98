// Package scrape defines the core types and interfaces shared by the
// harvesting subsystems: targets, listings, normalized jobs, run logs,
// and the contracts between fetcher, crawler, stores, and scheduler.
package scrape

import "time"

// Tier is the scheduling priority class of a target.
type Tier string

// Priority tiers ordered from most to least frequently scraped.
const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierHigh, TierMedium, TierLow:
		return true
	default:
		return false
	}
}

// Selectors holds the per-target CSS selectors used for extraction.
// Empty fields fall back to the generic selector set.
type Selectors struct {
	JobItem   string `json:"job_item" mapstructure:"job_item"`
	Title     string `json:"title" mapstructure:"title"`
	Location  string `json:"location" mapstructure:"location"`
	DetailURL string `json:"detail_url" mapstructure:"detail_url"`
	NextPage  string `json:"next_page,omitempty" mapstructure:"next_page"`
	Salary    string `json:"salary,omitempty" mapstructure:"salary"`
}

// Target is one company's career-page crawl configuration.
// Immutable during a run; loaded once per scheduling cycle.
type Target struct {
	Name               string    `json:"name" mapstructure:"name"`
	Slug               string    `json:"slug" mapstructure:"slug"`
	ListingURL         string    `json:"listing_url" mapstructure:"listing_url"`
	Selectors          Selectors `json:"selectors" mapstructure:"selectors"`
	RateLimitPerMinute int       `json:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
	MaxPages           int       `json:"max_pages" mapstructure:"max_pages"`
	Tier               Tier      `json:"tier" mapstructure:"tier"`
	// RenderJS routes fetches through the headless browser for sites whose
	// listing DOM is populated client-side.
	RenderJS bool `json:"render_js,omitempty" mapstructure:"render_js"`
}

// RawListing is the transient per-item extraction output. It is consumed
// immediately by the crawler and never persisted as-is.
type RawListing struct {
	Title     string
	Location  string
	DetailURL string
	Salary    string
}

// Empty reports whether the listing carries neither a title nor a link.
// Such listings are dropped by the extractor.
func (l RawListing) Empty() bool {
	return l.Title == "" && l.DetailURL == ""
}

// NormalizedJob is the canonical persisted representation of one listing.
// ExternalID is stable across runs for the same listing so that re-scraping
// never creates duplicates.
type NormalizedJob struct {
	ExternalID     string    `json:"external_id"`
	Title          string    `json:"title"`
	Company        string    `json:"company"`
	Location       string    `json:"location"`
	Category       string    `json:"category"`
	Level          string    `json:"level"`
	EmploymentType string    `json:"employment_type"`
	Remote         bool      `json:"remote"`
	URL            string    `json:"url"`
	Description    string    `json:"description,omitempty"`
	SalaryMin      int       `json:"salary_min,omitempty"`
	SalaryMax      int       `json:"salary_max,omitempty"`
	DiscoveredAt   time.Time `json:"discovered_at"`
}

// RunStatus describes the outcome of one target's crawl within a cycle.
type RunStatus string

// Run outcomes recorded in the run log.
const (
	RunStatusSuccess RunStatus = "success"
	RunStatusPartial RunStatus = "partial"
	RunStatusFailed  RunStatus = "failed"
)

// RunLogEntry summarizes one target's run within one scheduling invocation.
// Append-only; never mutated after write.
type RunLogEntry struct {
	RunID         string    `json:"run_id"`
	Target        string    `json:"target"`
	Status        RunStatus `json:"status"`
	ListingsFound int       `json:"listings_found"`
	PagesFetched  int       `json:"pages_fetched"`
	StartedAt     time.Time `json:"started_at"`
	CompletedAt   time.Time `json:"completed_at"`
	Error         string    `json:"error,omitempty"`
}
