package fetch

import (
	"context"

	"github.com/jobradar/harvester/internal/scrape"
)

// Router dispatches each request to the static fetcher or the headless
// renderer based on the request's RenderJS flag. A nil renderer routes
// everything through the static path.
type Router struct {
	static   scrape.Fetcher
	renderer scrape.Fetcher
}

// NewRouter builds a Router.
func NewRouter(static, renderer scrape.Fetcher) *Router {
	return &Router{static: static, renderer: renderer}
}

// Fetch implements scrape.Fetcher.
func (r *Router) Fetch(ctx context.Context, req scrape.FetchRequest) (scrape.FetchResult, error) {
	if req.RenderJS && r.renderer != nil {
		return r.renderer.Fetch(ctx, req)
	}
	return r.static.Fetch(ctx, req)
}
