// Package worker executes crawl tasks over a bounded goroutine pool. One
// task is one target within one scheduling cycle; a task failure never
// brings down the pool or a sibling task.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/crawl"
	"github.com/jobradar/harvester/internal/extract"
	"github.com/jobradar/harvester/internal/metrics"
	"github.com/jobradar/harvester/internal/scrape"
)

// Task is one target crawl scheduled within one run.
type Task struct {
	RunID  string
	Target scrape.Target
}

// Config controls Pool behavior.
type Config struct {
	// Concurrency is the worker goroutine count. Defaults to 4.
	Concurrency int
	// TargetTimeout bounds one target's whole crawl including persistence.
	// Defaults to 10m.
	TargetTimeout time.Duration
	// Topic names the publish destination for run-completion events; empty
	// disables publishing.
	Topic string
}

func (c *Config) applyDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.TargetTimeout <= 0 {
		c.TargetTimeout = 10 * time.Minute
	}
}

// Pool runs crawl tasks with bounded concurrency and records one run log
// entry per task.
type Pool struct {
	crawler   *crawl.Crawler
	jobs      scrape.JobStore
	runs      scrape.RunLogStore
	publisher scrape.Publisher // nil disables events
	clock     scrape.Clock
	log       *zap.Logger
	cfg       Config

	tasks chan Task
	wg    sync.WaitGroup
}

// New constructs a Pool. Start must be called before Submit.
func New(
	crawler *crawl.Crawler,
	jobs scrape.JobStore,
	runs scrape.RunLogStore,
	publisher scrape.Publisher,
	clock scrape.Clock,
	log *zap.Logger,
	cfg Config,
) *Pool {
	cfg.applyDefaults()
	return &Pool{
		crawler:   crawler,
		jobs:      jobs,
		runs:      runs,
		publisher: publisher,
		clock:     clock,
		log:       log,
		cfg:       cfg,
		tasks:     make(chan Task, cfg.Concurrency),
	}
}

// Start launches the worker goroutines. They exit when Drain closes the task
// channel or ctx finishes.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Concurrency; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case task, ok := <-p.tasks:
					if !ok {
						return
					}
					p.run(ctx, task)
				}
			}
		}()
	}
}

// Submit queues a task, blocking while all workers are busy and the buffer
// is full. That backpressure is what keeps a large target list from racing
// ahead of the pool.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.tasks <- task:
		return nil
	}
}

// Drain closes intake and waits for in-flight tasks to finish.
func (p *Pool) Drain() {
	close(p.tasks)
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, task Task) {
	metrics.WorkerStarted()
	defer metrics.WorkerFinished()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.TargetTimeout)
	defer cancel()

	startedAt := p.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("crawl task panicked",
				zap.String("run_id", task.RunID),
				zap.String("target", task.Target.Slug),
				zap.Any("panic", r))
			p.record(ctx, task, startedAt, scrape.RunLogEntry{
				Status: scrape.RunStatusFailed,
				Error:  fmt.Sprintf("panic: %v", r),
			})
		}
	}()

	out := p.crawler.Crawl(ctx, task.Target)

	created, updated, persistErr := p.persist(ctx, task.Target, out.Listings, startedAt)
	status := out.Status
	errText := ""
	if out.Err != nil {
		errText = out.Err.Error()
	}
	if persistErr != nil {
		if status == scrape.RunStatusSuccess {
			status = scrape.RunStatusPartial
		}
		if errText == "" {
			errText = persistErr.Error()
		}
	}

	p.record(ctx, task, startedAt, scrape.RunLogEntry{
		Status:        status,
		ListingsFound: len(out.Listings),
		PagesFetched:  out.PagesFetched,
		Error:         errText,
	})

	p.log.Info("target crawl finished",
		zap.String("run_id", task.RunID),
		zap.String("target", task.Target.Slug),
		zap.String("status", string(status)),
		zap.Int("pages", out.PagesFetched),
		zap.Int("listings", len(out.Listings)),
		zap.Int("created", created),
		zap.Int("updated", updated))
}

// persist normalizes and upserts every listing. A single row failure does
// not abandon the rest; the first error is reported.
func (p *Pool) persist(ctx context.Context, t scrape.Target, listings []scrape.RawListing, discoveredAt time.Time) (created, updated int, firstErr error) {
	for _, l := range listings {
		job := extract.Normalize(t, l, discoveredAt)
		wasCreated, err := p.jobs.Upsert(ctx, job)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("upsert %s: %w", job.ExternalID, err)
			}
			continue
		}
		metrics.ObserveJobUpserted(wasCreated)
		if wasCreated {
			created++
		} else {
			updated++
		}
	}
	return created, updated, firstErr
}

func (p *Pool) record(ctx context.Context, task Task, startedAt time.Time, entry scrape.RunLogEntry) {
	entry.RunID = task.RunID
	entry.Target = task.Target.Slug
	entry.StartedAt = startedAt
	entry.CompletedAt = p.clock.Now()

	// The task context may already be dead; the run log write still matters.
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
	}
	if err := p.runs.Append(ctx, entry); err != nil {
		p.log.Error("run log append failed",
			zap.String("run_id", entry.RunID),
			zap.String("target", entry.Target),
			zap.Error(err))
	}
	metrics.ObserveRunCompleted(string(entry.Status))
	p.publish(ctx, entry)
}

func (p *Pool) publish(ctx context.Context, entry scrape.RunLogEntry) {
	if p.publisher == nil || p.cfg.Topic == "" {
		return
	}
	if _, err := p.publisher.Publish(ctx, p.cfg.Topic, entry); err != nil {
		p.log.Warn("run event publish failed",
			zap.String("run_id", entry.RunID),
			zap.String("target", entry.Target),
			zap.Error(err))
	}
}
