package scrape

import (
	"context"
	"time"
)

// FetchRequest captures everything needed to fetch one listing page.
type FetchRequest struct {
	URL      string
	ProxyURL string // empty means direct connection
	Timeout  time.Duration
	RenderJS bool
}

// FetchResult is the result returned by a Fetcher implementation.
type FetchResult struct {
	URL        string // final URL after redirects
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// Fetcher issues a single page fetch. Implementations apply a realistic
// browser identity and do not retry; retry policy belongs to the caller.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (FetchResult, error)
}

// JobStore persists normalized jobs with upsert-by-external-id semantics.
// Upsert reports whether a new row was created; updating an existing row is
// the expected, idempotent case and never an error.
type JobStore interface {
	Upsert(ctx context.Context, job NormalizedJob) (created bool, err error)
}

// RunLogStore records one entry per target per scheduling invocation.
type RunLogStore interface {
	Append(ctx context.Context, entry RunLogEntry) error
	Recent(ctx context.Context, limit int) ([]RunLogEntry, error)
}

// Snapshotter archives raw page bodies for debugging and reprocessing.
type Snapshotter interface {
	Put(ctx context.Context, path string, contentType string, data []byte) (uri string, err error)
}

// Publisher pushes run-completion events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes hex digests for dedup keys and snapshot names.
type Hasher interface {
	Hash(data []byte) string
}

// Clock returns the current time; injected so tests control it.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
