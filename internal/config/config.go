// Package config loads service configuration from an optional YAML file, a
// .env file and the process environment, in that order of precedence (later
// wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rutwin/cashflow/internal/forecast"
	"github.com/rutwin/cashflow/internal/logger"
	"github.com/rutwin/cashflow/internal/recurring"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Job queue and job store backends.
const (
	BackendMemory   = "memory"
	BackendRabbitMQ = "rabbitmq"
	StoreMemory     = "memory"
	StoreRedis      = "redis"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	GCP      GCPConfig      `yaml:"gcp"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Notion   NotionConfig   `yaml:"notion"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Teller   TellerConfig   `yaml:"teller"`
	Log      logger.Options `yaml:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// GCPConfig names the ledger dataset and the report bucket. An empty project
// disables the ledger store; an empty bucket disables report uploads.
type GCPConfig struct {
	ProjectID string `yaml:"project_id"`
	DatasetID string `yaml:"dataset_id"`
	Bucket    string `yaml:"bucket"`
}

// AnalysisConfig carries the defaults applied when a request leaves a
// parameter unset.
type AnalysisConfig struct {
	Recurring  recurring.Config `yaml:"recurring"`
	Forecast   forecast.Options `yaml:"forecast"`
	PeriodDays int              `yaml:"period_days"`
}

// JobsConfig selects and tunes the asynchronous job backend.
type JobsConfig struct {
	Backend      string         `yaml:"backend"`
	Store        string         `yaml:"store"`
	BufferSize   int            `yaml:"buffer_size"`
	Workers      int            `yaml:"workers"`
	MaxRetries   int            `yaml:"max_retries"`
	RetryBackoff time.Duration  `yaml:"retry_backoff"`
	RabbitMQ     RabbitMQConfig `yaml:"rabbitmq"`
	Redis        RedisConfig    `yaml:"redis"`
}

// RabbitMQConfig is used when Backend is rabbitmq.
type RabbitMQConfig struct {
	URL      string `yaml:"url"`
	Queue    string `yaml:"queue"`
	Prefetch int    `yaml:"prefetch"`
}

// RedisConfig is used when Store is redis.
type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// ScheduleConfig drives periodic forecasts. An empty Cron disables scheduling.
type ScheduleConfig struct {
	Cron       string   `yaml:"cron"`
	Timezone   string   `yaml:"timezone"`
	AccountIDs []string `yaml:"account_ids"`
}

// NotionConfig enables publishing recurring patterns to a Notion database.
type NotionConfig struct {
	Token      string `yaml:"token"`
	DatabaseID string `yaml:"database_id"`
}

// Enabled reports whether both credentials are present.
func (n NotionConfig) Enabled() bool {
	return n.Token != "" && n.DatabaseID != ""
}

// GeminiConfig controls forecast narratives.
type GeminiConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
}

// TellerConfig holds the webhook signing secret. An empty secret disables the
// webhook endpoint. AllowBareSignature also accepts untimestamped signatures,
// which can be replayed.
type TellerConfig struct {
	WebhookSecret      string `yaml:"webhook_secret"`
	AllowBareSignature bool   `yaml:"allow_bare_signature"`
}

// Default returns a configuration that runs fully in-process.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		GCP: GCPConfig{DatasetID: "finance"},
		Analysis: AnalysisConfig{
			Recurring:  recurring.DefaultConfig(),
			Forecast:   forecast.DefaultOptions(),
			PeriodDays: forecast.DefaultPeriodDays,
		},
		Jobs: JobsConfig{
			Backend:      BackendMemory,
			Store:        StoreMemory,
			BufferSize:   100,
			Workers:      5,
			MaxRetries:   3,
			RetryBackoff: 5 * time.Second,
			RabbitMQ:     RabbitMQConfig{Queue: "cashflow.analysis", Prefetch: 10},
			Redis:        RedisConfig{Prefix: "cashflow:jobs", TTL: 7 * 24 * time.Hour},
		},
		Schedule: ScheduleConfig{Timezone: "UTC"},
		Gemini:   GeminiConfig{Model: "gemini-2.5-flash"},
		Log:      logger.Options{Level: "info", Format: logger.FormatJSON},
	}
}

// Load reads the YAML file at path (skipped when path is empty), then applies
// .env and environment overrides and validates the result.
func Load(path string) (*Config, error) {
	// Missing .env is fine. godotenv never overrides variables that are already set.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("Load: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("Load: parsing %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	// Forecasts detect recurring patterns with the same thresholds as detection.
	cfg.Analysis.Forecast.Recurring = cfg.Analysis.Recurring
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

// applyEnv overrides fields from the environment. Malformed numbers and
// durations are reported rather than silently ignored.
func (c *Config) applyEnv(lookup lookupFunc) error {
	e := envReader{lookup: lookup}

	if port, ok := e.str("PORT"); ok {
		c.Server.Address = ":" + strings.TrimPrefix(port, ":")
	}
	e.setStr("SERVER_ADDR", &c.Server.Address)
	e.setList("CORS_ALLOWED_ORIGINS", &c.Server.AllowedOrigins)

	e.setStr("GCP_PROJECT_ID", &c.GCP.ProjectID)
	e.setStr("BQ_DATASET", &c.GCP.DatasetID)
	e.setStr("GCS_BUCKET", &c.GCP.Bucket)

	e.setInt("RECURRING_MIN_OCCURRENCES", &c.Analysis.Recurring.MinOccurrences)
	e.setFloat("RECURRING_AMOUNT_TOLERANCE", &c.Analysis.Recurring.AmountTolerance)
	e.setInt("FORECAST_HORIZON_DAYS", &c.Analysis.Forecast.HorizonDays)
	e.setInt("FORECAST_LOOKBACK_DAYS", &c.Analysis.Forecast.LookbackDays)
	e.setBool("FORECAST_INCLUDE_RECURRING", &c.Analysis.Forecast.IncludeRecurring)
	e.setInt("ANALYSIS_PERIOD_DAYS", &c.Analysis.PeriodDays)

	e.setLower("JOBS_BACKEND", &c.Jobs.Backend)
	e.setLower("JOBS_STORE", &c.Jobs.Store)
	e.setInt("JOBS_BUFFER_SIZE", &c.Jobs.BufferSize)
	e.setInt("JOBS_WORKERS", &c.Jobs.Workers)
	e.setInt("JOBS_MAX_RETRIES", &c.Jobs.MaxRetries)
	e.setDuration("JOBS_RETRY_BACKOFF", &c.Jobs.RetryBackoff)
	e.setStr("RABBITMQ_URL", &c.Jobs.RabbitMQ.URL)
	e.setStr("RABBITMQ_QUEUE", &c.Jobs.RabbitMQ.Queue)
	e.setStr("REDIS_ADDR", &c.Jobs.Redis.Address)
	e.setStr("REDIS_PASSWORD", &c.Jobs.Redis.Password)
	e.setInt("REDIS_DB", &c.Jobs.Redis.DB)

	e.setStr("SCHEDULE_CRON", &c.Schedule.Cron)
	e.setStr("SCHEDULE_TIMEZONE", &c.Schedule.Timezone)
	e.setList("SCHEDULE_ACCOUNT_IDS", &c.Schedule.AccountIDs)

	e.setStr("NOTION_TOKEN", &c.Notion.Token)
	e.setStr("NOTION_DATABASE_ID", &c.Notion.DatabaseID)

	e.setBool("GEMINI_ENABLED", &c.Gemini.Enabled)
	e.setStr("GEMINI_MODEL", &c.Gemini.Model)

	e.setStr("TELLER_WEBHOOK_SECRET", &c.Teller.WebhookSecret)
	e.setBool("TELLER_ALLOW_BARE_SIGNATURE", &c.Teller.AllowBareSignature)

	e.setLower("LOG_LEVEL", &c.Log.Level)
	if format, ok := e.str("LOG_FORMAT"); ok {
		c.Log.Format = logger.Format(strings.ToLower(format))
	}

	return errors.Join(e.errs...)
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Server.Address == "" {
		fail("server.address is required")
	}
	if err := c.Analysis.Recurring.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: analysis.recurring: %w", ErrInvalid, err))
	}
	if err := c.Analysis.Forecast.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: analysis.forecast: %w", ErrInvalid, err))
	}
	if c.Analysis.PeriodDays <= 0 {
		fail("analysis.period_days must be positive, got %d", c.Analysis.PeriodDays)
	}

	switch c.Jobs.Backend {
	case BackendMemory:
	case BackendRabbitMQ:
		if c.Jobs.RabbitMQ.URL == "" {
			fail("jobs.rabbitmq.url is required for the rabbitmq backend")
		}
	default:
		fail("unknown jobs.backend %q", c.Jobs.Backend)
	}
	switch c.Jobs.Store {
	case StoreMemory:
		if c.Jobs.Backend == BackendRabbitMQ {
			fail("jobs.store must be redis when jobs.backend is rabbitmq")
		}
	case StoreRedis:
		if c.Jobs.Redis.Address == "" {
			fail("jobs.redis.address is required for the redis store")
		}
	default:
		fail("unknown jobs.store %q", c.Jobs.Store)
	}
	if c.Jobs.Workers <= 0 {
		fail("jobs.workers must be positive, got %d", c.Jobs.Workers)
	}
	if c.Jobs.MaxRetries < 0 {
		fail("jobs.max_retries must not be negative, got %d", c.Jobs.MaxRetries)
	}

	if c.Schedule.Cron != "" {
		if len(c.Schedule.AccountIDs) == 0 {
			fail("schedule.account_ids is required when schedule.cron is set")
		}
		if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
			fail("schedule.timezone %q: %v", c.Schedule.Timezone, err)
		}
	}
	if (c.Notion.Token == "") != (c.Notion.DatabaseID == "") {
		fail("notion.token and notion.database_id must be set together")
	}
	if c.Gemini.Enabled && c.Gemini.Model == "" {
		fail("gemini.model is required when gemini is enabled")
	}
	switch c.Log.Format {
	case logger.FormatConsole, logger.FormatJSON:
	default:
		fail("unknown log.format %q", c.Log.Format)
	}

	return errors.Join(errs...)
}

// LedgerEnabled reports whether a BigQuery ledger is configured.
func (c *Config) LedgerEnabled() bool {
	return c.GCP.ProjectID != "" && c.GCP.DatasetID != ""
}

type envReader struct {
	lookup lookupFunc
	errs   []error
}

func (e *envReader) str(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) setStr(key string, dst *string) {
	if v, ok := e.str(key); ok {
		*dst = v
	}
}

func (e *envReader) setLower(key string, dst *string) {
	if v, ok := e.str(key); ok {
		*dst = strings.ToLower(v)
	}
}

func (e *envReader) setList(key string, dst *[]string) {
	v, ok := e.str(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (e *envReader) setInt(key string, dst *int) {
	v, ok := e.str(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err))
		return
	}
	*dst = n
}

func (e *envReader) setFloat(key string, dst *float64) {
	v, ok := e.str(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err))
		return
	}
	*dst = f
}

func (e *envReader) setBool(key string, dst *bool) {
	v, ok := e.str(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err))
		return
	}
	*dst = b
}

func (e *envReader) setDuration(key string, dst *time.Duration) {
	v, ok := e.str(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err))
		return
	}
	*dst = d
}
