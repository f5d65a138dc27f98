// Package scheduler decides when each target is due and feeds due targets
// to the worker pool, either once or on a recurring tick.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/scrape"
	"github.com/jobradar/harvester/internal/worker"
)

// Default re-scrape intervals per priority tier.
const (
	DefaultHighInterval   = 2 * time.Hour
	DefaultMediumInterval = 6 * time.Hour
	DefaultLowInterval    = 24 * time.Hour
)

// Intervals maps each tier to its re-scrape interval.
type Intervals map[scrape.Tier]time.Duration

// DefaultIntervals returns the standard tier intervals.
func DefaultIntervals() Intervals {
	return Intervals{
		scrape.TierHigh:   DefaultHighInterval,
		scrape.TierMedium: DefaultMediumInterval,
		scrape.TierLow:    DefaultLowInterval,
	}
}

var tierOrder = map[scrape.Tier]int{
	scrape.TierHigh:   0,
	scrape.TierMedium: 1,
	scrape.TierLow:    2,
}

// Submitter is the slice of the worker pool the scheduler needs.
type Submitter interface {
	Submit(ctx context.Context, task worker.Task) error
}

// ProxyHealth reports proxy pool totals so cycles can surface exhaustion.
// A nil ProxyHealth skips the check.
type ProxyHealth interface {
	Counts() (total, quarantined int)
}

// Scheduler tracks per-target last-run times and dispatches due targets.
// Last-run state is in-memory; a restart re-scrapes everything, which is
// safe because persistence is idempotent.
type Scheduler struct {
	targets   []scrape.Target
	pool      Submitter
	health    ProxyHealth
	ids       scrape.IDGenerator
	clock     scrape.Clock
	log       *zap.Logger
	intervals Intervals

	mu      sync.Mutex
	lastRun map[string]time.Time
	cron    *cron.Cron
}

// New builds a Scheduler over a fixed target list. Nil intervals selects the
// defaults; nil health disables the proxy exhaustion check.
func New(targets []scrape.Target, pool Submitter, health ProxyHealth, ids scrape.IDGenerator, clock scrape.Clock, log *zap.Logger, intervals Intervals) *Scheduler {
	if intervals == nil {
		intervals = DefaultIntervals()
	}
	return &Scheduler{
		targets:   targets,
		pool:      pool,
		health:    health,
		ids:       ids,
		clock:     clock,
		log:       log,
		intervals: intervals,
		lastRun:   make(map[string]time.Time),
	}
}

// Due returns the targets whose interval has elapsed at now, ordered high
// tier first. Never-run targets are always due. Input order is preserved
// within a tier.
func (s *Scheduler) Due(now time.Time) []scrape.Target {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []scrape.Target
	for _, t := range s.targets {
		interval, ok := s.intervals[t.Tier]
		if !ok {
			interval = DefaultLowInterval
		}
		last, ran := s.lastRun[t.Slug]
		if !ran || now.Sub(last) >= interval {
			due = append(due, t)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return tierOrder[due[i].Tier] < tierOrder[due[j].Tier]
	})
	return due
}

// RunCycle dispatches every due target under one run ID and returns the
// count dispatched. lastRun anchors to the cycle start, not completion, so
// long crawls do not stretch the effective interval.
func (s *Scheduler) RunCycle(ctx context.Context) (string, int, error) {
	now := s.clock.Now()
	due := s.Due(now)
	if len(due) == 0 {
		return "", 0, nil
	}
	return s.dispatch(ctx, due, now)
}

// RunTargets dispatches the given targets immediately, ignoring due-ness.
// Used by the one-shot CLI path.
func (s *Scheduler) RunTargets(ctx context.Context, targets []scrape.Target) (string, int, error) {
	return s.dispatch(ctx, targets, s.clock.Now())
}

func (s *Scheduler) dispatch(ctx context.Context, targets []scrape.Target, startedAt time.Time) (string, int, error) {
	runID, err := s.ids.NewID()
	if err != nil {
		return "", 0, fmt.Errorf("generate run id: %w", err)
	}

	// Pool exhaustion is a cycle-level warning, never fatal: targets still
	// run and either fall back to direct or fail into their run logs.
	if s.health != nil {
		if total, quarantined := s.health.Counts(); total > 0 && quarantined == total {
			s.log.Warn("proxy pool exhausted",
				zap.String("run_id", runID),
				zap.Int("proxies", total))
		}
	}

	dispatched := 0
	for _, t := range targets {
		if err := s.pool.Submit(ctx, worker.Task{RunID: runID, Target: t}); err != nil {
			return runID, dispatched, fmt.Errorf("submit %s: %w", t.Slug, err)
		}
		s.mu.Lock()
		s.lastRun[t.Slug] = startedAt
		s.mu.Unlock()
		dispatched++
	}

	s.log.Info("cycle dispatched",
		zap.String("run_id", runID),
		zap.Int("targets", dispatched))
	return runID, dispatched, nil
}

// Start begins recurring cycles every tick until Stop is called.
func (s *Scheduler) Start(ctx context.Context, tick time.Duration) error {
	if tick <= 0 {
		return fmt.Errorf("scheduler tick must be positive, got %s", tick)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("scheduler already started")
	}

	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", tick), func() {
		if _, n, err := s.RunCycle(ctx); err != nil {
			s.log.Error("cycle dispatch failed", zap.Error(err))
		} else if n > 0 {
			s.log.Debug("cycle complete", zap.Int("dispatched", n))
		}
	})
	if err != nil {
		return fmt.Errorf("register cycle: %w", err)
	}
	c.Start()
	s.cron = c
	return nil
}

// Stop halts recurring cycles and waits for the in-flight cycle callback.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
