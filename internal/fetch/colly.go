// Package fetch implements single-page fetching through gocolly, with
// proxy routing, rotating browser identity, and a typed error taxonomy.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/scrape"
)

// Config controls collector behavior.
type Config struct {
	UserAgents    []string // empty uses the builtin pool
	Timeout       time.Duration
	RespectRobots bool
}

// CollyFetcher implements scrape.Fetcher using the Colly collector. It never
// retries; callers own retry policy.
type CollyFetcher struct {
	cfg      Config
	identity *identity
	base     *colly.Collector
	logger   *zap.Logger
}

// Substrings that mark an anti-bot interstitial in an otherwise-200 body.
// Only the head of the page is scanned.
var blockMarkers = [][]byte{
	[]byte("captcha"),
	[]byte("cf-challenge"),
	[]byte("are you a robot"),
	[]byte("unusual traffic"),
	[]byte("access denied"),
}

const blockScanBytes = 4096

// NewCollyFetcher builds a CollyFetcher.
func NewCollyFetcher(cfg Config, logger *zap.Logger) *CollyFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	return &CollyFetcher{
		cfg:      cfg,
		identity: newIdentity(cfg.UserAgents),
		base:     c,
		logger:   logger,
	}
}

// Fetch executes a single HTTP GET, optionally through a proxy.
func (f *CollyFetcher) Fetch(ctx context.Context, req scrape.FetchRequest) (scrape.FetchResult, error) {
	collector, err := f.buildCollector(req)
	if err != nil {
		return scrape.FetchResult{}, err
	}

	var (
		result   scrape.FetchResult
		status   int
		fetchErr error
	)
	start := time.Now()

	collector.OnRequest(func(r *colly.Request) {
		f.identity.applyHeaders(*r.Headers)
	})
	collector.OnResponse(func(r *colly.Response) {
		result = scrape.FetchResult{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	if err := f.visit(ctx, collector, req.URL); err != nil && fetchErr == nil {
		fetchErr = err
	}
	if mapped := f.classify(status, fetchErr); mapped != nil {
		return scrape.FetchResult{}, mapped
	}
	if blocked(result.Body) {
		return scrape.FetchResult{}, fmt.Errorf("%w: interstitial detected at %s", scrape.ErrBlocked, req.URL)
	}
	return result, nil
}

func (f *CollyFetcher) buildCollector(req scrape.FetchRequest) (*colly.Collector, error) {
	collector := f.base.Clone()
	collector.UserAgent = f.identity.userAgent()
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	// Clone shares the base collector's visited-URL store. Retries and
	// recurring scheduler cycles refetch the same listing URL, so revisits
	// must not fail with AlreadyVisitedError.
	collector.AllowURLRevisit = true

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = f.cfg.Timeout
	}
	collector.SetRequestTimeout(timeout)

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 15 * time.Second,
		MaxIdleConns:        16,
		IdleConnTimeout:     90 * time.Second,
	}
	if req.ProxyURL != "" {
		proxyURL, err := url.Parse(req.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	collector.WithTransport(transport)
	return collector, nil
}

func (f *CollyFetcher) visit(ctx context.Context, collector *colly.Collector, target string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// classify maps transport failures and status codes onto the shared
// error taxonomy.
func (f *CollyFetcher) classify(status int, err error) error {
	switch {
	case status == http.StatusForbidden || status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", scrape.ErrBlocked, status)
	case status >= 400:
		return &scrape.HTTPStatusError{Code: status}
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", scrape.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("%w: %v", scrape.ErrConnectionRefused, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", scrape.ErrTimeout, err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %v", scrape.ErrConnectionRefused, err)
	}
	return fmt.Errorf("fetch failed: %w", err)
}

func blocked(body []byte) bool {
	head := body
	if len(head) > blockScanBytes {
		head = head[:blockScanBytes]
	}
	head = bytes.ToLower(head)
	for _, marker := range blockMarkers {
		if bytes.Contains(head, marker) {
			return true
		}
	}
	return false
}
