package scrape

import (
	"errors"
	"fmt"
)

// Fetch error taxonomy. The crawler keys its retry and quarantine decisions
// off these, so fetchers must map transport failures onto them.
var (
	// ErrTimeout covers deadline exceeded and slow-network failures.
	ErrTimeout = errors.New("fetch timed out")

	// ErrConnectionRefused covers refused connections and DNS failures.
	ErrConnectionRefused = errors.New("connection refused")

	// ErrBlocked indicates the target responded with an anti-bot wall
	// (403/429 or a CAPTCHA interstitial). The proxy used is quarantined.
	ErrBlocked = errors.New("blocked or captcha challenge")
)

// HTTPStatusError reports a non-2xx response that is not a block signal.
// Terminal for the page; no retry.
type HTTPStatusError struct {
	Code int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected http status %d", e.Code)
}

// IsNetworkError reports whether err warrants one retry with a fresh proxy.
func IsNetworkError(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrConnectionRefused)
}
