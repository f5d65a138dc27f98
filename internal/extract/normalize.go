package extract

import (
	"fmt"
	"time"

	"github.com/jobradar/harvester/internal/scrape"
)

// Normalize turns a raw listing into the canonical persisted record.
// Listings without a detail link fall back to the target's listing URL for
// both the application URL and the dedup key; the title keeps such entries
// distinct only within that page, which is the best available identity.
func Normalize(t scrape.Target, l scrape.RawListing, now time.Time) scrape.NormalizedJob {
	jobURL := l.DetailURL
	idSource := jobURL
	if jobURL == "" {
		jobURL = t.ListingURL
		idSource = t.ListingURL + "#" + l.Title
	}

	c := Classify(l.Title, l.Location)
	job := scrape.NormalizedJob{
		ExternalID:     scrape.ExternalID(t.Slug, idSource),
		Title:          l.Title,
		Company:        t.Name,
		Location:       l.Location,
		Category:       c.Category,
		Level:          c.Level,
		EmploymentType: c.EmploymentType,
		Remote:         c.Remote,
		URL:            jobURL,
		// Detail-page enrichment is skipped at listing time; downstream
		// surfaces treat this as a placeholder.
		Description:  fmt.Sprintf("%s at %s", l.Title, t.Name),
		DiscoveredAt: now,
	}
	if lo, hi, ok := ParseSalary(l.Salary); ok {
		job.SalaryMin = lo
		job.SalaryMax = hi
	}
	return job
}
