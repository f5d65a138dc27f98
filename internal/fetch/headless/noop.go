package headless

import (
	"context"
	"errors"

	"github.com/jobradar/harvester/internal/scrape"
)

// Noop stands in for the renderer when headless browsing is disabled.
// Fetch always fails, so misrouted render requests surface loudly.
type Noop struct{}

// NewNoop creates a Noop renderer.
func NewNoop() *Noop {
	return &Noop{}
}

// Fetch returns an error since rendering is not available.
func (Noop) Fetch(_ context.Context, _ scrape.FetchRequest) (scrape.FetchResult, error) {
	return scrape.FetchResult{}, errors.New("headless renderer not configured")
}
