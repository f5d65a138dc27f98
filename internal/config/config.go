// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Targets   TargetsConfig   `mapstructure:"targets"`
	Proxies   ProxiesConfig   `mapstructure:"proxies"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Snapshots SnapshotsConfig `mapstructure:"snapshots"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls the ops HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// ScraperConfig governs worker pool and per-target crawl behavior.
type ScraperConfig struct {
	Concurrency          int  `mapstructure:"concurrency"`
	DefaultRatePerMinute int  `mapstructure:"default_rate_per_minute"`
	MaxListingsPerTarget int  `mapstructure:"max_listings_per_target"`
	FetchTimeoutSeconds  int  `mapstructure:"fetch_timeout_seconds"`
	TargetTimeoutSeconds int  `mapstructure:"target_timeout_seconds"`
	JitterMinMs          int  `mapstructure:"jitter_min_ms"`
	JitterMaxMs          int  `mapstructure:"jitter_max_ms"`
	RespectRobots        bool `mapstructure:"respect_robots"`
}

// SchedulerConfig controls cycle cadence and tier intervals.
type SchedulerConfig struct {
	TickSeconds       int `mapstructure:"tick_seconds"`
	HighIntervalMin   int `mapstructure:"high_interval_minutes"`
	MediumIntervalMin int `mapstructure:"medium_interval_minutes"`
	LowIntervalMin    int `mapstructure:"low_interval_minutes"`
}

// TargetsConfig points at the target list file.
type TargetsConfig struct {
	File string `mapstructure:"file"`
}

// ProxiesConfig controls the egress proxy pool.
type ProxiesConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	File               string `mapstructure:"file"`
	FailureThreshold   int    `mapstructure:"failure_threshold"`
	CooldownSeconds    int    `mapstructure:"cooldown_seconds"`
	MaxCooldownSeconds int    `mapstructure:"max_cooldown_seconds"`
	FallbackDirect     bool   `mapstructure:"fallback_direct"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	MaxParallel       int  `mapstructure:"max_parallel"`
	NavTimeoutSeconds int  `mapstructure:"nav_timeout_seconds"`
}

// DatabaseConfig controls job and run log persistence. Mode "memory" keeps
// everything in-process; "postgres" requires a DSN.
type DatabaseConfig struct {
	Mode            string `mapstructure:"mode"`
	DSN             string `mapstructure:"dsn"`
	MaxConns        int32  `mapstructure:"max_conns"`
	MinConns        int32  `mapstructure:"min_conns"`
	MaxConnLifetime int    `mapstructure:"max_conn_lifetime_seconds"`
}

// SnapshotsConfig controls raw page archiving. Mode is one of "none",
// "memory", "local", or "gcs".
type SnapshotsConfig struct {
	Mode      string `mapstructure:"mode"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// PubSubConfig holds run-event publishing metadata; empty topic disables it.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("scraper.concurrency", 4)
	v.SetDefault("scraper.default_rate_per_minute", 30)
	v.SetDefault("scraper.max_listings_per_target", 500)
	v.SetDefault("scraper.fetch_timeout_seconds", 20)
	v.SetDefault("scraper.target_timeout_seconds", 600)
	v.SetDefault("scraper.jitter_min_ms", 500)
	v.SetDefault("scraper.jitter_max_ms", 1500)
	v.SetDefault("scraper.respect_robots", true)
	v.SetDefault("scheduler.tick_seconds", 60)
	v.SetDefault("scheduler.high_interval_minutes", 120)
	v.SetDefault("scheduler.medium_interval_minutes", 360)
	v.SetDefault("scheduler.low_interval_minutes", 1440)
	v.SetDefault("targets.file", "targets.json")
	v.SetDefault("proxies.enabled", false)
	v.SetDefault("proxies.failure_threshold", 3)
	v.SetDefault("proxies.cooldown_seconds", 300)
	v.SetDefault("proxies.max_cooldown_seconds", 3600)
	v.SetDefault("proxies.fallback_direct", true)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("database.mode", "memory")
	v.SetDefault("database.max_conns", 8)
	v.SetDefault("snapshots.mode", "none")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scraper.Concurrency <= 0 {
		return fmt.Errorf("scraper.concurrency must be > 0")
	}
	if c.Scraper.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.fetch_timeout_seconds must be > 0")
	}
	if c.Scraper.JitterMaxMs < c.Scraper.JitterMinMs {
		return fmt.Errorf("scraper.jitter_max_ms must be >= scraper.jitter_min_ms")
	}
	if c.Scheduler.TickSeconds <= 0 {
		return fmt.Errorf("scheduler.tick_seconds must be > 0")
	}
	switch c.Database.Mode {
	case "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn must be set when database.mode is postgres")
		}
	default:
		return fmt.Errorf("database.mode must be memory or postgres, got %q", c.Database.Mode)
	}
	switch c.Snapshots.Mode {
	case "none", "memory":
	case "local":
		if c.Snapshots.BaseDir == "" {
			return fmt.Errorf("snapshots.base_dir must be set when snapshots.mode is local")
		}
	case "gcs":
		if c.Snapshots.GCSBucket == "" {
			return fmt.Errorf("snapshots.gcs_bucket must be set when snapshots.mode is gcs")
		}
	default:
		return fmt.Errorf("snapshots.mode must be none, memory, local, or gcs, got %q", c.Snapshots.Mode)
	}
	if c.Proxies.Enabled && c.Proxies.File == "" {
		return fmt.Errorf("proxies.file must be set when proxies are enabled")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.PubSub.Topic != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic is set")
	}
	return nil
}

// FetchTimeout returns the per-page fetch budget.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Scraper.FetchTimeoutSeconds) * time.Second
}

// TargetTimeout returns the per-target crawl budget.
func (c Config) TargetTimeout() time.Duration {
	return time.Duration(c.Scraper.TargetTimeoutSeconds) * time.Second
}

// Tick returns the scheduler cycle cadence.
func (c Config) Tick() time.Duration {
	return time.Duration(c.Scheduler.TickSeconds) * time.Second
}
