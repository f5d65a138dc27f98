// Package crawl walks a target's listing pagination: rate-limit gate, proxy
// lease, fetch, extract, politeness delay, next page. One Crawl call covers
// one target within one run.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/extract"
	"github.com/jobradar/harvester/internal/metrics"
	"github.com/jobradar/harvester/internal/proxy"
	"github.com/jobradar/harvester/internal/ratelimit"
	"github.com/jobradar/harvester/internal/scrape"
)

// Config tunes per-target crawl behavior.
type Config struct {
	// MaxListings caps listings collected per target per run; the earliest
	// pages win. Zero or negative means unlimited.
	MaxListings int
	// FetchTimeout bounds each page fetch.
	FetchTimeout time.Duration
	// JitterMin and JitterMax bound the politeness delay inserted between
	// consecutive page fetches of the same target.
	JitterMin time.Duration
	JitterMax time.Duration
}

func (c *Config) applyDefaults() {
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 20 * time.Second
	}
	if c.JitterMin <= 0 {
		c.JitterMin = 500 * time.Millisecond
	}
	if c.JitterMax <= c.JitterMin {
		c.JitterMax = c.JitterMin + time.Second
	}
}

// Outcome is the result of crawling one target.
type Outcome struct {
	Listings     []scrape.RawListing
	PagesFetched int
	Status       scrape.RunStatus
	Err          error
}

// Crawler fetches and extracts a target's listing pages. Safe for concurrent
// use; all mutable state lives in its collaborators.
type Crawler struct {
	fetcher scrape.Fetcher
	limiter *ratelimit.Limiter
	proxies *proxy.Manager
	snaps   scrape.Snapshotter // nil disables page snapshots
	hasher  scrape.Hasher
	log     *zap.Logger
	cfg     Config

	// sleep and jitter are swapped out in tests so pagination delays do not
	// slow the suite down.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

// New builds a Crawler. snaps may be nil when snapshotting is disabled.
func New(fetcher scrape.Fetcher, limiter *ratelimit.Limiter, proxies *proxy.Manager, snaps scrape.Snapshotter, hasher scrape.Hasher, log *zap.Logger, cfg Config) *Crawler {
	cfg.applyDefaults()
	c := &Crawler{
		fetcher: fetcher,
		limiter: limiter,
		proxies: proxies,
		snaps:   snaps,
		hasher:  hasher,
		log:     log,
		cfg:     cfg,
	}
	c.sleep = sleepCtx
	c.jitter = func() time.Duration {
		span := cfg.JitterMax - cfg.JitterMin
		return cfg.JitterMin + rand.N(span)
	}
	return c
}

// Crawl walks t's pagination until an empty page, a missing next link, the
// page budget, or an error. Pages already extracted survive a mid-crawl
// failure, so the outcome can be partial.
func (c *Crawler) Crawl(ctx context.Context, t scrape.Target) Outcome {
	var out Outcome
	maxPages := t.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	pageURL := t.ListingURL
	visited := make(map[string]bool, maxPages)

	for page := 0; page < maxPages; page++ {
		if visited[pageURL] {
			c.log.Warn("pagination loop detected, stopping",
				zap.String("target", t.Slug), zap.String("url", pageURL))
			break
		}
		visited[pageURL] = true

		if err := c.limiter.Wait(ctx, t.Slug, t.RateLimitPerMinute); err != nil {
			out.Err = err
			break
		}

		res, err := c.fetchPage(ctx, t, pageURL)
		if err != nil {
			metrics.ObservePageFetched(t.Slug, "error")
			out.Err = fmt.Errorf("fetch page %d: %w", page+1, err)
			break
		}
		out.PagesFetched++
		metrics.ObservePageFetched(t.Slug, "success")
		metrics.ObserveFetchDuration(t.Slug, res.Duration)
		c.snapshot(ctx, t, res)

		extracted, err := extract.Extract(res.Body, res.URL, t.Selectors)
		if err != nil {
			out.Err = fmt.Errorf("extract page %d: %w", page+1, err)
			break
		}
		if len(extracted.Listings) == 0 {
			break
		}
		metrics.ObserveListingsExtracted(t.Slug, len(extracted.Listings))
		out.Listings = append(out.Listings, extracted.Listings...)

		if c.cfg.MaxListings > 0 && len(out.Listings) >= c.cfg.MaxListings {
			out.Listings = out.Listings[:c.cfg.MaxListings]
			break
		}
		if extracted.NextPageURL == "" {
			break
		}
		pageURL = extracted.NextPageURL

		if err := c.sleep(ctx, c.jitter()); err != nil {
			out.Err = err
			break
		}
	}

	out.Status = statusFor(out)
	return out
}

// fetchPage leases a proxy and fetches one page. A network-level failure is
// retried exactly once through a fresh lease; a block response quarantines
// the proxy immediately and is not retried.
func (c *Crawler) fetchPage(ctx context.Context, t scrape.Target, pageURL string) (scrape.FetchResult, error) {
	res, lease, err := c.fetchOnce(ctx, t, pageURL)
	if err == nil {
		c.proxies.Report(lease, true)
		return res, nil
	}

	if errors.Is(err, scrape.ErrBlocked) {
		c.proxies.Quarantine(lease)
		c.log.Warn("target blocked request",
			zap.String("target", t.Slug), zap.String("url", pageURL))
		return scrape.FetchResult{}, err
	}

	c.proxies.Report(lease, false)
	if !scrape.IsNetworkError(err) || ctx.Err() != nil {
		return scrape.FetchResult{}, err
	}

	c.log.Debug("retrying after network error",
		zap.String("target", t.Slug), zap.String("url", pageURL), zap.Error(err))
	res, lease, err = c.fetchOnce(ctx, t, pageURL)
	if err != nil {
		if errors.Is(err, scrape.ErrBlocked) {
			c.proxies.Quarantine(lease)
		} else {
			c.proxies.Report(lease, false)
		}
		return scrape.FetchResult{}, err
	}
	c.proxies.Report(lease, true)
	return res, nil
}

func (c *Crawler) fetchOnce(ctx context.Context, t scrape.Target, pageURL string) (scrape.FetchResult, *proxy.Entry, error) {
	lease, err := c.proxies.Lease()
	if err != nil {
		return scrape.FetchResult{}, nil, err
	}
	req := scrape.FetchRequest{
		URL:      pageURL,
		Timeout:  c.cfg.FetchTimeout,
		RenderJS: t.RenderJS,
	}
	if lease != nil {
		req.ProxyURL = lease.URL()
	}
	res, err := c.fetcher.Fetch(ctx, req)
	return res, lease, err
}

// snapshot archives the raw body. Failures are logged and never fail the
// crawl.
func (c *Crawler) snapshot(ctx context.Context, t scrape.Target, res scrape.FetchResult) {
	if c.snaps == nil {
		return
	}
	path := fmt.Sprintf("%s/%s.html", t.Slug, c.hasher.Hash([]byte(res.URL)))
	if _, err := c.snaps.Put(ctx, path, "text/html", res.Body); err != nil {
		c.log.Warn("page snapshot failed",
			zap.String("target", t.Slug), zap.String("path", path), zap.Error(err))
	}
}

func statusFor(out Outcome) scrape.RunStatus {
	switch {
	case out.Err == nil:
		return scrape.RunStatusSuccess
	case len(out.Listings) > 0:
		return scrape.RunStatusPartial
	default:
		return scrape.RunStatusFailed
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
