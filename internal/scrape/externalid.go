package scrape

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// ExternalID derives the stable dedup key for a listing from its target slug
// and detail URL. The URL is reduced to scheme://host/path so that session
// tokens and tracking parameters in the query string do not produce a new
// identity on every run. The fragment is kept: link-less listings are keyed
// by a synthetic listingURL#title and must not collapse into one identity.
func ExternalID(slug, rawURL string) string {
	h := sha256.Sum256([]byte(slug + "|" + canonicalURL(rawURL)))
	return hex.EncodeToString(h[:])
}

func canonicalURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		// Unparseable or relative URLs are hashed as-is; still deterministic.
		return strings.TrimSpace(raw)
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	path := strings.TrimSuffix(u.Path, "/")
	canonical := scheme + "://" + host + path
	if u.Fragment != "" {
		canonical += "#" + u.Fragment
	}
	return canonical
}
