// Package extract turns fetched page content into raw listings and
// normalizes them into persistable job records. Field extraction is
// best-effort heuristic, driven by each target's selector set.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobradar/harvester/internal/scrape"
)

// Page is the extraction output for one listing page.
type Page struct {
	Listings []scrape.RawListing
	// NextPageURL is the resolved next-page link, empty when none was
	// configured or the selector matched nothing.
	NextPageURL string
}

// Extract pulls listings out of body using the target's selectors. Items
// missing both a title and a detail link are dropped. Relative detail and
// next-page links are resolved against pageURL.
func Extract(body []byte, pageURL string, sel scrape.Selectors) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Page{}, fmt.Errorf("parse page: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return Page{}, fmt.Errorf("parse page url: %w", err)
	}

	var page Page
	doc.Find(sel.JobItem).Each(func(_ int, item *goquery.Selection) {
		listing := scrape.RawListing{
			Title:     text(item, sel.Title),
			Location:  text(item, sel.Location),
			DetailURL: resolve(base, href(item, sel.DetailURL)),
			Salary:    text(item, sel.Salary),
		}
		if listing.Empty() {
			return
		}
		page.Listings = append(page.Listings, listing)
	})

	if sel.NextPage != "" {
		if next, ok := doc.Find(sel.NextPage).First().Attr("href"); ok {
			page.NextPageURL = resolve(base, next)
		}
	}
	return page, nil
}

func text(item *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(item.Find(selector).First().Text())
}

func href(item *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	found := item.Find(selector).First()
	if link, ok := found.Attr("href"); ok {
		return link
	}
	// The job item itself may be the anchor.
	if link, ok := item.Filter(selector).Attr("href"); ok {
		return link
	}
	if link, ok := item.Attr("href"); ok {
		return link
	}
	return ""
}

func resolve(base *url.URL, link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	ref, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
