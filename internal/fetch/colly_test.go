package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/scrape"
)

func newTestFetcher() *CollyFetcher {
	return NewCollyFetcher(Config{Timeout: 2 * time.Second}, zap.NewNop())
}

func TestFetch_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.UserAgent())
		require.Contains(t, r.Header.Get("Accept"), "text/html")
		fmt.Fprint(w, "<html><body>openings</body></html>")
	}))
	defer srv.Close()

	res, err := newTestFetcher().Fetch(context.Background(), scrape.FetchRequest{URL: srv.URL})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(res.Body), "openings")
	require.Greater(t, res.Duration, time.Duration(0))
}

func TestFetch_SameURLTwice(t *testing.T) {
	t.Parallel()

	// Retries and recurring cycles hit the same listing URL repeatedly; the
	// shared visited-URL store must not reject the second request.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><body>openings</body></html>")
	}))
	defer srv.Close()

	f := newTestFetcher()
	_, err := f.Fetch(context.Background(), scrape.FetchRequest{URL: srv.URL})
	require.NoError(t, err)

	res, err := f.Fetch(context.Background(), scrape.FetchRequest{URL: srv.URL})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestFetch_HTTPStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), scrape.FetchRequest{URL: srv.URL})
	var statusErr *scrape.HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusNotFound, statusErr.Code)
}

func TestFetch_ForbiddenMapsToBlocked(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), scrape.FetchRequest{URL: srv.URL})
	require.ErrorIs(t, err, scrape.ErrBlocked)
}

func TestFetch_CaptchaBodyMapsToBlocked(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html>Please solve this CAPTCHA to continue</html>")
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), scrape.FetchRequest{URL: srv.URL})
	require.ErrorIs(t, err, scrape.ErrBlocked)
}

func TestFetch_ConnectionRefused(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), scrape.FetchRequest{URL: addr})
	require.Error(t, err)
	require.True(t, scrape.IsNetworkError(err), "got %v", err)
}

func TestFetch_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		fmt.Fprint(w, "late")
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), scrape.FetchRequest{
		URL:     srv.URL,
		Timeout: 50 * time.Millisecond,
	})
	require.ErrorIs(t, err, scrape.ErrTimeout)
}

func TestFetch_ContextCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := newTestFetcher().Fetch(ctx, scrape.FetchRequest{URL: srv.URL})
	require.True(t, errors.Is(err, context.Canceled) || errors.Is(err, scrape.ErrTimeout), "got %v", err)
}

func TestFetch_BadProxyURL(t *testing.T) {
	t.Parallel()

	_, err := newTestFetcher().Fetch(context.Background(), scrape.FetchRequest{
		URL:      "https://example.com",
		ProxyURL: "http://%zz",
	})
	require.Error(t, err)
}

func TestIdentity_RotatesUserAgents(t *testing.T) {
	t.Parallel()

	id := newIdentity(nil)
	first := id.userAgent()
	second := id.userAgent()
	require.NotEqual(t, first, second)

	// Wraps around the pool.
	for i := 0; i < len(defaultUserAgents)-2; i++ {
		id.userAgent()
	}
	require.Equal(t, first, id.userAgent())
}
