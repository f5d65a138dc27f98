// Package headless renders listing pages whose DOM is populated by
// JavaScript, using chromedp and headless Chrome.
package headless

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/jobradar/harvester/internal/scrape"
)

// Config controls the renderer.
type Config struct {
	MaxParallel int
	UserAgent   string
	NavTimeout  time.Duration
}

// Renderer implements scrape.Fetcher with a headless browser. Proxying is
// applied per browser context via the request's proxy URL.
type Renderer struct {
	cfg         Config
	slots       chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewRenderer starts a shared Chrome allocator.
func NewRenderer(cfg Config) (*Renderer, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 45 * time.Second
	}
	var slots chan struct{}
	if cfg.MaxParallel > 0 {
		slots = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Renderer{
		cfg:         cfg,
		slots:       slots,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close shuts the allocator down.
func (r *Renderer) Close() {
	r.allocCancel()
}

// Fetch navigates to the URL and returns the rendered DOM.
func (r *Renderer) Fetch(ctx context.Context, req scrape.FetchRequest) (scrape.FetchResult, error) {
	if err := r.acquire(ctx); err != nil {
		return scrape.FetchResult{}, err
	}
	defer r.release()

	allocator := r.allocator
	var proxyCancel context.CancelFunc
	if req.ProxyURL != "" {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", "new"),
			chromedp.ProxyServer(req.ProxyURL),
		)
		allocator, proxyCancel = chromedp.NewExecAllocator(ctx, opts...)
		defer proxyCancel()
	}

	taskCtx, taskCancel := chromedp.NewContext(allocator)
	defer taskCancel()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = r.cfg.NavTimeout
	}
	taskCtx, cancel := context.WithTimeout(taskCtx, timeout)
	defer cancel()

	status := newStatusProbe()
	chromedp.ListenTarget(taskCtx, status.onEvent)

	start := time.Now()
	html, finalURL, err := r.render(taskCtx, req.URL)
	if err != nil {
		if ctx.Err() != nil || taskCtx.Err() != nil {
			return scrape.FetchResult{}, fmt.Errorf("%w: %v", scrape.ErrTimeout, err)
		}
		return scrape.FetchResult{}, fmt.Errorf("render %s: %w", req.URL, err)
	}

	code := status.code()
	switch {
	case code == http.StatusForbidden || code == http.StatusTooManyRequests:
		return scrape.FetchResult{}, fmt.Errorf("%w: status %d", scrape.ErrBlocked, code)
	case code >= 400:
		return scrape.FetchResult{}, &scrape.HTTPStatusError{Code: code}
	}

	if finalURL == "" {
		finalURL = req.URL
	}
	return scrape.FetchResult{
		URL:        finalURL,
		StatusCode: code,
		Body:       []byte(html),
		Duration:   time.Since(start),
	}, nil
}

func (r *Renderer) render(ctx context.Context, url string) (html, finalURL string, err error) {
	actions := []chromedp.Action{
		r.setupAction(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		// Give client-side listing frameworks a beat to hydrate.
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(ctx, actions...); err != nil {
		return "", "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, finalURL, nil
}

func (r *Renderer) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if err := emulation.SetDeviceMetricsOverride(1366, 900, 1, false).Do(ctx); err != nil {
			return fmt.Errorf("set viewport: %w", err)
		}
		if r.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(r.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

func (r *Renderer) acquire(ctx context.Context) error {
	if r.slots == nil {
		return nil
	}
	select {
	case r.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("render slot wait canceled: %w", ctx.Err())
	}
}

func (r *Renderer) release() {
	if r.slots == nil {
		return
	}
	select {
	case <-r.slots:
	default:
	}
}

// statusProbe records the status code of the main document response.
type statusProbe struct {
	mu     sync.Mutex
	status int
}

func newStatusProbe() *statusProbe {
	return &statusProbe{}
}

func (p *statusProbe) onEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	p.mu.Lock()
	p.status = int(resp.Response.Status)
	p.mu.Unlock()
}

func (p *statusProbe) code() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == 0 {
		return http.StatusOK
	}
	return p.status
}
