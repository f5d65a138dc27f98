package fetch

import (
	"net/http"
	"sync/atomic"
)

// Pool of realistic desktop browser identities. Rotating across them keeps
// a single identity from accumulating on any one site.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:126.0) Gecko/20100101 Firefox/126.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:126.0) Gecko/20100101 Firefox/126.0",
}

// identity rotates user agents and supplies the accompanying headers a real
// browser would send.
type identity struct {
	agents []string
	next   atomic.Uint64
}

func newIdentity(agents []string) *identity {
	if len(agents) == 0 {
		agents = defaultUserAgents
	}
	return &identity{agents: agents}
}

func (id *identity) userAgent() string {
	n := id.next.Add(1)
	return id.agents[int(n-1)%len(id.agents)]
}

func (id *identity) applyHeaders(h http.Header) {
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("DNT", "1")
}
