package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jobradar/harvester/internal/scrape"
)

const listingPage = `<!doctype html>
<html><body>
<ul class="jobs">
  <li class="job">
    <h3 class="title">Senior Software Engineer</h3>
    <span class="location">Berlin</span>
    <span class="salary">$100k - $150k</span>
    <a class="apply" href="/jobs/senior-software-engineer">Apply</a>
  </li>
  <li class="job">
    <h3 class="title">Marketing Intern</h3>
    <span class="location">Remote</span>
    <a class="apply" href="https://other.example.com/jobs/42">Apply</a>
  </li>
  <li class="job">
    <span class="location">Ghost entry with no title or link</span>
  </li>
</ul>
<nav><a class="next" href="/jobs?page=2">Next</a></nav>
</body></html>`

func TestExtract_Listings(t *testing.T) {
	t.Parallel()

	sel := scrape.Selectors{
		JobItem:   "li.job",
		Title:     ".title",
		Location:  ".location",
		DetailURL: "a.apply",
		NextPage:  "a.next",
		Salary:    ".salary",
	}

	page, err := Extract([]byte(listingPage), "https://jobs.example.com/jobs", sel)
	require.NoError(t, err)

	require.Len(t, page.Listings, 2)
	require.Equal(t, scrape.RawListing{
		Title:     "Senior Software Engineer",
		Location:  "Berlin",
		DetailURL: "https://jobs.example.com/jobs/senior-software-engineer",
		Salary:    "$100k - $150k",
	}, page.Listings[0])
	require.Equal(t, "https://other.example.com/jobs/42", page.Listings[1].DetailURL)
	require.Equal(t, "https://jobs.example.com/jobs?page=2", page.NextPageURL)
}

func TestExtract_ItemIsAnchor(t *testing.T) {
	t.Parallel()

	body := `<div><a class="job" href="/p/1"><span class="t">Engineer</span></a></div>`
	sel := scrape.Selectors{JobItem: "a.job", Title: ".t", DetailURL: "a.job"}

	page, err := Extract([]byte(body), "https://jobs.example.com/", sel)
	require.NoError(t, err)
	require.Len(t, page.Listings, 1)
	require.Equal(t, "https://jobs.example.com/p/1", page.Listings[0].DetailURL)
}

func TestExtract_NoNextPage(t *testing.T) {
	t.Parallel()

	body := `<ul><li class="job"><h3 class="title">Engineer</h3></li></ul>`
	sel := scrape.Selectors{JobItem: "li.job", Title: ".title", NextPage: "a.next"}

	page, err := Extract([]byte(body), "https://jobs.example.com/jobs", sel)
	require.NoError(t, err)
	require.Len(t, page.Listings, 1)
	require.Empty(t, page.NextPageURL)
}

func TestExtract_EmptySelectorsYieldNothing(t *testing.T) {
	t.Parallel()

	sel := scrape.Selectors{JobItem: ".does-not-exist"}
	page, err := Extract([]byte(listingPage), "https://jobs.example.com/jobs", sel)
	require.NoError(t, err)
	require.Empty(t, page.Listings)
}
