// Package app assembles the harvester's long-lived services from config:
// stores, proxy pool, fetchers, crawler, worker pool, scheduler, and the
// ops HTTP server.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/api"
	"github.com/jobradar/harvester/internal/clock/system"
	"github.com/jobradar/harvester/internal/config"
	"github.com/jobradar/harvester/internal/crawl"
	"github.com/jobradar/harvester/internal/fetch"
	"github.com/jobradar/harvester/internal/fetch/headless"
	"github.com/jobradar/harvester/internal/hash/sha256"
	"github.com/jobradar/harvester/internal/id/uuid"
	"github.com/jobradar/harvester/internal/logging"
	"github.com/jobradar/harvester/internal/metrics"
	"github.com/jobradar/harvester/internal/proxy"
	"github.com/jobradar/harvester/internal/publish/memory"
	pubsubpublish "github.com/jobradar/harvester/internal/publish/pubsub"
	"github.com/jobradar/harvester/internal/ratelimit"
	"github.com/jobradar/harvester/internal/scheduler"
	"github.com/jobradar/harvester/internal/scrape"
	snapgcs "github.com/jobradar/harvester/internal/snapshot/gcs"
	snaplocal "github.com/jobradar/harvester/internal/snapshot/local"
	snapmemory "github.com/jobradar/harvester/internal/snapshot/memory"
	storememory "github.com/jobradar/harvester/internal/store/memory"
	storepostgres "github.com/jobradar/harvester/internal/store/postgres"
	"github.com/jobradar/harvester/internal/targets"
	"github.com/jobradar/harvester/internal/worker"
)

// App holds the assembled services for one process.
type App struct {
	Cfg     config.Config
	Log     *zap.Logger
	Targets []scrape.Target

	Proxies   *proxy.Manager
	Pool      *worker.Pool
	Scheduler *scheduler.Scheduler
	Server    *api.Server

	pgStore      *storepostgres.Store
	renderer     *headless.Renderer
	pubsubClient *pubsub.Client
	gcsClient    *gcstorage.Client
}

// New builds the full service graph, failing fast when any dependency
// cannot be initialized. withProxies forces the proxy pool on regardless of
// config; concurrencyOverride > 0 replaces the configured worker count.
func New(ctx context.Context, cfg config.Config, withProxies bool, concurrencyOverride int) (*App, error) {
	log, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	metrics.Init()

	a := &App{Cfg: cfg, Log: log}
	clk := system.New()

	a.Targets, err = targets.LoadFile(cfg.Targets.File)
	if err != nil {
		return nil, fmt.Errorf("load targets: %w", err)
	}
	log.Info("targets loaded",
		zap.String("file", cfg.Targets.File),
		zap.Int("count", len(a.Targets)))

	var entries []proxy.Entry
	if cfg.Proxies.Enabled || withProxies {
		if cfg.Proxies.File == "" {
			return nil, fmt.Errorf("proxies requested but proxies.file is not set")
		}
		entries, err = proxy.LoadFile(cfg.Proxies.File)
		if err != nil {
			return nil, fmt.Errorf("load proxies: %w", err)
		}
		log.Info("proxy pool loaded", zap.Int("count", len(entries)))
	}
	a.Proxies = proxy.NewManager(entries, proxy.Config{
		FailureThreshold: cfg.Proxies.FailureThreshold,
		Cooldown:         time.Duration(cfg.Proxies.CooldownSeconds) * time.Second,
		MaxCooldown:      time.Duration(cfg.Proxies.MaxCooldownSeconds) * time.Second,
		FallbackDirect:   cfg.Proxies.FallbackDirect,
	}, clk)

	jobs, runs, err := a.buildStores(ctx)
	if err != nil {
		return nil, err
	}
	snaps, err := a.buildSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	publisher, err := a.buildPublisher(ctx)
	if err != nil {
		return nil, err
	}
	fetcher, err := a.buildFetcher()
	if err != nil {
		return nil, err
	}

	crawler := crawl.New(
		fetcher,
		ratelimit.New(cfg.Scraper.DefaultRatePerMinute),
		a.Proxies,
		snaps,
		sha256.New(),
		log.Named("crawl"),
		crawl.Config{
			MaxListings:  cfg.Scraper.MaxListingsPerTarget,
			FetchTimeout: cfg.FetchTimeout(),
			JitterMin:    time.Duration(cfg.Scraper.JitterMinMs) * time.Millisecond,
			JitterMax:    time.Duration(cfg.Scraper.JitterMaxMs) * time.Millisecond,
		},
	)

	concurrency := cfg.Scraper.Concurrency
	if concurrencyOverride > 0 {
		concurrency = concurrencyOverride
	}
	a.Pool = worker.New(crawler, jobs, runs, publisher, clk, log.Named("worker"), worker.Config{
		Concurrency:   concurrency,
		TargetTimeout: cfg.TargetTimeout(),
		Topic:         cfg.PubSub.Topic,
	})

	a.Scheduler = scheduler.New(a.Targets, a.Pool, a.Proxies, uuid.NewGenerator(), clk, log.Named("scheduler"), scheduler.Intervals{
		scrape.TierHigh:   time.Duration(cfg.Scheduler.HighIntervalMin) * time.Minute,
		scrape.TierMedium: time.Duration(cfg.Scheduler.MediumIntervalMin) * time.Minute,
		scrape.TierLow:    time.Duration(cfg.Scheduler.LowIntervalMin) * time.Minute,
	})

	a.Server = api.NewServer(runs, a.Targets, nil, log.Named("api"))
	return a, nil
}

func (a *App) buildStores(ctx context.Context) (scrape.JobStore, scrape.RunLogStore, error) {
	switch a.Cfg.Database.Mode {
	case "postgres":
		store, err := storepostgres.New(ctx, storepostgres.Config{
			DSN:             a.Cfg.Database.DSN,
			MaxConns:        a.Cfg.Database.MaxConns,
			MinConns:        a.Cfg.Database.MinConns,
			MaxConnLifetime: time.Duration(a.Cfg.Database.MaxConnLifetime) * time.Second,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build postgres store: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("migrate postgres store: %w", err)
		}
		a.pgStore = store
		a.Log.Info("using postgres persistence")
		return store, store, nil
	default:
		a.Log.Info("using in-memory persistence")
		return storememory.NewJobStore(), storememory.NewRunLogStore(), nil
	}
}

func (a *App) buildSnapshots(ctx context.Context) (scrape.Snapshotter, error) {
	switch a.Cfg.Snapshots.Mode {
	case "none":
		return nil, nil
	case "memory":
		return snapmemory.New(), nil
	case "local":
		store, err := snaplocal.New(snaplocal.Config{BaseDir: a.Cfg.Snapshots.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("build local snapshots: %w", err)
		}
		return store, nil
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("build gcs client: %w", err)
		}
		a.gcsClient = client
		store, err := snapgcs.New(client, snapgcs.Config{Bucket: a.Cfg.Snapshots.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("build gcs snapshots: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown snapshots mode %q", a.Cfg.Snapshots.Mode)
	}
}

func (a *App) buildPublisher(ctx context.Context) (scrape.Publisher, error) {
	if a.Cfg.PubSub.Topic == "" {
		return memory.New(), nil
	}
	client, err := pubsub.NewClient(ctx, a.Cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("build pubsub client: %w", err)
	}
	a.pubsubClient = client
	a.Log.Info("publishing run events",
		zap.String("project", a.Cfg.PubSub.ProjectID),
		zap.String("topic", a.Cfg.PubSub.Topic))
	return pubsubpublish.New(client.Topic(a.Cfg.PubSub.Topic)), nil
}

func (a *App) buildFetcher() (scrape.Fetcher, error) {
	static := fetch.NewCollyFetcher(fetch.Config{
		Timeout:       a.Cfg.FetchTimeout(),
		RespectRobots: a.Cfg.Scraper.RespectRobots,
	}, a.Log.Named("fetch"))

	if !a.Cfg.Headless.Enabled {
		return fetch.NewRouter(static, headless.NewNoop()), nil
	}
	renderer, err := headless.NewRenderer(headless.Config{
		MaxParallel: a.Cfg.Headless.MaxParallel,
		NavTimeout:  time.Duration(a.Cfg.Headless.NavTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("build headless renderer: %w", err)
	}
	a.renderer = renderer
	return fetch.NewRouter(static, renderer), nil
}

// ListenAndServe runs the ops HTTP server until ctx finishes.
func (a *App) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Cfg.Server.Port),
		Handler:           a.Server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	a.Log.Info("ops server listening", zap.Int("port", a.Cfg.Server.Port))

	select {
	case err := <-errCh:
		return fmt.Errorf("ops server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("ops server shutdown: %w", err)
		}
		return nil
	}
}

// Close releases external resources and flushes logs.
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.pgStore != nil {
		a.pgStore.Close()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.Log.Warn("close pubsub client", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.Log.Warn("close gcs client", zap.Error(err))
		}
	}
	_ = a.Log.Sync()
}
