// Package proxy manages the egress proxy pool: rotation, health tracking,
// and quarantine of entries that keep failing.
package proxy

import (
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/jobradar/harvester/internal/metrics"
	"github.com/jobradar/harvester/internal/scrape"
)

// State is the health classification of one proxy entry.
type State string

// Proxy health states. Degraded entries are still leased; quarantined
// entries are excluded until their cooldown passes, then retried half-open.
const (
	StateHealthy     State = "healthy"
	StateDegraded    State = "degraded"
	StateQuarantined State = "quarantined"
)

// ErrNoProxyAvailable is returned by Lease when every pool entry is
// quarantined and direct fallback is disabled.
var ErrNoProxyAvailable = errors.New("no proxy available")

// Entry is one egress proxy plus its runtime health state. Health fields are
// mutated only by the Manager, under its lock.
type Entry struct {
	Scheme   string `json:"type"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	state            State
	failures         int // consecutive failures since last success
	quarantines      int // completed quarantine rounds, drives backoff
	quarantinedUntil time.Time
	lastUsed         time.Time
}

// URL renders the proxy as a transport URL, including credentials when set.
func (e *Entry) URL() string {
	scheme := e.Scheme
	if scheme == "" {
		scheme = "http"
	}
	u := url.URL{
		Scheme: scheme,
		Host:   fmt.Sprintf("%s:%d", e.Host, e.Port),
	}
	if e.Username != "" {
		u.User = url.UserPassword(e.Username, e.Password)
	}
	return u.String()
}

// State returns the current health classification.
func (e *Entry) State() State {
	return e.state
}

// Config controls quarantine policy and exhaustion behavior.
type Config struct {
	// FailureThreshold is the consecutive-failure count that quarantines an
	// entry. Defaults to 3.
	FailureThreshold int
	// Cooldown is the first quarantine duration; it doubles on each repeated
	// quarantine up to MaxCooldown. Defaults to 5m / 1h.
	Cooldown    time.Duration
	MaxCooldown time.Duration
	// FallbackDirect makes Lease return a direct connection when the pool is
	// exhausted instead of ErrNoProxyAvailable.
	FallbackDirect bool
}

func (c *Config) applyDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 5 * time.Minute
	}
	if c.MaxCooldown <= 0 {
		c.MaxCooldown = time.Hour
	}
}

// Manager rotates leases round-robin across non-quarantined entries.
// Safe for concurrent use by all worker tasks.
type Manager struct {
	mu      sync.Mutex
	entries []*Entry
	next    int
	cfg     Config
	clock   scrape.Clock
}

// NewManager builds a Manager over the given pool. An empty pool means
// proxying is disabled and Lease always returns direct.
func NewManager(entries []Entry, cfg Config, clock scrape.Clock) *Manager {
	cfg.applyDefaults()
	pool := make([]*Entry, 0, len(entries))
	for i := range entries {
		e := entries[i]
		e.state = StateHealthy
		pool = append(pool, &e)
	}
	return &Manager{entries: pool, cfg: cfg, clock: clock}
}

// Lease returns the next usable proxy, or nil for a direct connection when
// proxying is disabled. A quarantined entry whose cooldown has passed is
// returned half-open (degraded); its next Report decides its fate.
func (m *Manager) Lease() (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) == 0 {
		return nil, nil
	}

	now := m.clock.Now()
	for i := 0; i < len(m.entries); i++ {
		e := m.entries[m.next%len(m.entries)]
		m.next++
		if e.state == StateQuarantined {
			if now.Before(e.quarantinedUntil) {
				continue
			}
			// Cooldown over: retry half-open.
			e.state = StateDegraded
		}
		e.lastUsed = now
		return e, nil
	}

	if m.cfg.FallbackDirect {
		return nil, nil
	}
	return nil, ErrNoProxyAvailable
}

// Report feeds back the outcome of a request made through e. Success resets
// health; failure counts toward quarantine. A nil entry (direct) is ignored.
func (m *Manager) Report(e *Entry, success bool) {
	if e == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if success {
		e.failures = 0
		e.quarantines = 0
		e.state = StateHealthy
		return
	}

	e.failures++
	if e.failures < m.cfg.FailureThreshold {
		e.state = StateDegraded
		return
	}
	m.quarantineLocked(e)
}

// Quarantine immediately quarantines e regardless of failure count. Used
// when a target answers with a block page or CAPTCHA through this proxy.
func (m *Manager) Quarantine(e *Entry) {
	if e == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quarantineLocked(e)
}

func (m *Manager) quarantineLocked(e *Entry) {
	cooldown := m.cfg.Cooldown << e.quarantines
	if cooldown > m.cfg.MaxCooldown || cooldown <= 0 {
		cooldown = m.cfg.MaxCooldown
	}
	e.state = StateQuarantined
	e.failures = 0
	e.quarantines++
	e.quarantinedUntil = m.clock.Now().Add(cooldown)
	metrics.ObserveProxyQuarantined()
}

// Counts returns pool totals for cycle-level logging.
func (m *Manager) Counts() (total, quarantined int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.state == StateQuarantined {
			quarantined++
		}
	}
	return len(m.entries), quarantined
}
