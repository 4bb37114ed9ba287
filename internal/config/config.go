// Package config defines the top-level configuration for marketnorm and
// provides validation helpers.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by MARKETNORM_* environment variables.
type Config struct {
	Source     SourceConfig     `toml:"source"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Normalize  NormalizeConfig  `toml:"normalize"`
	Output     OutputConfig     `toml:"output"`
	Supabase   SupabaseConfig   `toml:"supabase"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// Source kinds.
const (
	SourceFile = "file"
	SourceS3   = "s3"
	SourceAPI  = "api"
)

// Sink names accepted in Output.Sinks.
const (
	SinkFile     = "file"
	SinkS3       = "s3"
	SinkPostgres = "postgres"
	SinkRedis    = "redis"
)

// SourceConfig selects where raw snapshots are read from.
type SourceConfig struct {
	Kind string `toml:"kind"` // "file", "s3" or "api"
	Path string `toml:"path"` // local snapshot for kind "file"
	Key  string `toml:"key"`  // object key for kind "s3"
}

// PolymarketConfig holds Polymarket API endpoints and fetch parameters.
type PolymarketConfig struct {
	ClobHost   string   `toml:"clob_host"`
	GammaHost  string   `toml:"gamma_host"`
	API        string   `toml:"api"`        // "clob" or "gamma"
	FetchMode  string   `toml:"fetch_mode"` // "open", "active", "closed" or "all"
	PageLimit  int      `toml:"page_limit"`
	MaxPages   int      `toml:"max_pages"`
	PageDelay  duration `toml:"page_delay"`
	Timeout    duration `toml:"timeout"`
	RateLimit  int      `toml:"rate_limit"` // requests per rate_window, 0 disables
	RateWindow duration `toml:"rate_window"`
}

// NormalizeConfig holds normalization parameters.
type NormalizeConfig struct {
	Variants        []string `toml:"variants"`
	KeywordCap      int      `toml:"keyword_cap"`
	SearchDescLimit int      `toml:"search_desc_limit"`
}

// OutputConfig describes where snapshots and batches are written.
type OutputConfig struct {
	Dir        string   `toml:"dir"`
	RawFile    string   `toml:"raw_file"`
	NamesFile  string   `toml:"names_file"`
	RichFile   string   `toml:"rich_file"`
	SimpleFile string   `toml:"simple_file"`
	Indent     bool     `toml:"indent"`
	Sinks      []string `toml:"sinks"`
	S3Prefix   string   `toml:"s3_prefix"`
	// MultipartMB is the batch size above which S3 uploads switch to
	// multipart, and the part size used.
	MultipartMB int `toml:"multipart_mb"`
}

// SupabaseConfig holds PostgreSQL / Supabase connection parameters.
type SupabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled         bool   `toml:"enabled"`
	Addr            string `toml:"addr"`
	Password        string `toml:"password"`
	DB              int    `toml:"db"`
	PoolSize        int    `toml:"pool_size"`
	MaxRetries      int    `toml:"max_retries"`
	TLSEnabled      bool   `toml:"tls_enabled"`
	CacheTTLMinutes int    `toml:"cache_ttl_minutes"`
	StreamMaxLen    int    `toml:"stream_max_len"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// PipelineConfig holds run scheduling and locking parameters.
type PipelineConfig struct {
	Interval   duration `toml:"interval"` // 0 runs once per trigger only
	RunOnStart bool     `toml:"run_on_start"`
	LockKey    string   `toml:"lock_key"`
	LockTTL    duration `toml:"lock_ttl"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	MaxBodyMB   int      `toml:"max_body_mb"`
	// RateLimit caps requests per client per RateWindow when Redis is
	// enabled. 0 disables limiting.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Source: SourceConfig{
			Kind: SourceFile,
			Path: "data/current_markets.json",
			Key:  "raw/current_markets.json",
		},
		Polymarket: PolymarketConfig{
			ClobHost:   "https://clob.polymarket.com",
			GammaHost:  "https://gamma-api.polymarket.com",
			API:        "clob",
			FetchMode:  "open",
			PageLimit:  500,
			MaxPages:   200,
			PageDelay:  duration{200 * time.Millisecond},
			Timeout:    duration{30 * time.Second},
			RateLimit:  0,
			RateWindow: duration{10 * time.Second},
		},
		Normalize: NormalizeConfig{
			Variants:        []string{"rich", "simple"},
			KeywordCap:      20,
			SearchDescLimit: 200,
		},
		Output: OutputConfig{
			Dir:         "data",
			RawFile:     "current_markets.json",
			NamesFile:   "current_market_names.json",
			RichFile:    "normalized_markets.json",
			SimpleFile:  "simple_normalized_markets.json",
			Indent:      true,
			Sinks:       []string{SinkFile},
			S3Prefix:    "normalized/",
			MultipartMB: 16,
		},
		Supabase: SupabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:         false,
			Addr:            "localhost:6379",
			PoolSize:        20,
			MaxRetries:      3,
			CacheTTLMinutes: 60 * 24,
			StreamMaxLen:    1000,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "marketnorm-data",
			ForcePathStyle: true,
		},
		Pipeline: PipelineConfig{
			Interval:   duration{0},
			RunOnStart: true,
			LockKey:    "marketnorm:run",
			LockTTL:    duration{10 * time.Minute},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			MaxBodyMB:   64,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"normalize_failures", "run_failed"},
		},
		Mode:     "normalize",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"fetch":     true,
	"normalize": true,
	"serve":     true,
	"full":      true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var (
	validSources    = []string{SourceFile, SourceS3, SourceAPI}
	validSinks      = []string{SinkFile, SinkS3, SinkPostgres, SinkRedis}
	validAPIs       = []string{"clob", "gamma"}
	validFetchModes = []string{"open", "active", "closed", "all"}
	validVariants   = []string{"rich", "simple"}
)

// HasSink reports whether name is one of the configured output sinks.
func (c *Config) HasSink(name string) bool {
	return slices.Contains(c.Output.Sinks, name)
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: fetch, normalize, serve, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Source
	if !slices.Contains(validSources, c.Source.Kind) {
		errs = append(errs, fmt.Sprintf("source: unknown kind %q (valid: %s)", c.Source.Kind, strings.Join(validSources, ", ")))
	}
	if c.Source.Kind == SourceFile && c.Source.Path == "" {
		errs = append(errs, "source: path must be set for kind file")
	}
	if c.Source.Kind == SourceS3 && c.Source.Key == "" {
		errs = append(errs, "source: key must be set for kind s3")
	}

	// Polymarket
	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}
	if !slices.Contains(validAPIs, c.Polymarket.API) {
		errs = append(errs, fmt.Sprintf("polymarket: api must be clob or gamma, got %q", c.Polymarket.API))
	}
	if c.Polymarket.API == "gamma" && c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty when api is gamma")
	}
	if !slices.Contains(validFetchModes, c.Polymarket.FetchMode) {
		errs = append(errs, fmt.Sprintf("polymarket: unknown fetch_mode %q (valid: %s)", c.Polymarket.FetchMode, strings.Join(validFetchModes, ", ")))
	}
	if c.Polymarket.PageLimit < 1 {
		errs = append(errs, "polymarket: page_limit must be >= 1")
	}
	if c.Polymarket.MaxPages < 1 {
		errs = append(errs, "polymarket: max_pages must be >= 1")
	}
	if c.Polymarket.RateLimit > 0 && c.Polymarket.RateWindow.Duration <= 0 {
		errs = append(errs, "polymarket: rate_window must be > 0 when rate_limit is set")
	}

	// Normalize
	if len(c.Normalize.Variants) == 0 {
		errs = append(errs, "normalize: at least one variant is required")
	}
	for _, v := range c.Normalize.Variants {
		if !slices.Contains(validVariants, v) {
			errs = append(errs, fmt.Sprintf("normalize: unknown variant %q (valid: rich, simple)", v))
		}
	}
	if c.Normalize.KeywordCap < 1 {
		errs = append(errs, "normalize: keyword_cap must be >= 1")
	}

	// Output
	for _, s := range c.Output.Sinks {
		if !slices.Contains(validSinks, s) {
			errs = append(errs, fmt.Sprintf("output: unknown sink %q (valid: %s)", s, strings.Join(validSinks, ", ")))
		}
	}
	if c.HasSink(SinkFile) && c.Output.Dir == "" {
		errs = append(errs, "output: dir must be set for the file sink")
	}
	if c.HasSink(SinkRedis) && !c.Redis.Enabled {
		errs = append(errs, "output: the redis sink requires redis.enabled")
	}

	// Supabase
	if c.NeedsPostgres() {
		if strings.TrimSpace(c.Supabase.DSN) == "" {
			if c.Supabase.Host == "" {
				errs = append(errs, "supabase: host must not be empty (or set supabase.dsn)")
			}
			if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
				errs = append(errs, fmt.Sprintf("supabase: port must be 1-65535, got %d", c.Supabase.Port))
			}
			if c.Supabase.Database == "" {
				errs = append(errs, "supabase: database must not be empty")
			}
		}
		if c.Supabase.PoolMaxConns < 1 {
			errs = append(errs, "supabase: pool_max_conns must be >= 1")
		}
		if c.Supabase.PoolMinConns < 0 {
			errs = append(errs, "supabase: pool_min_conns must be >= 0")
		}
		if c.Supabase.PoolMinConns > c.Supabase.PoolMaxConns {
			errs = append(errs, "supabase: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.NeedsS3() {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	// Pipeline
	if c.Pipeline.Interval.Duration < 0 {
		errs = append(errs, "pipeline: interval must not be negative")
	}
	if c.Redis.Enabled && c.Pipeline.LockTTL.Duration <= 0 {
		errs = append(errs, "pipeline: lock_ttl must be > 0")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.MaxBodyMB < 1 {
			errs = append(errs, "server: max_body_mb must be >= 1")
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// NeedsPostgres reports whether the configuration requires a database: the
// postgres sink is enabled, or the API is served.
func (c *Config) NeedsPostgres() bool {
	return c.HasSink(SinkPostgres) || c.Mode == "serve" || c.Mode == "full"
}

// NeedsS3 reports whether object storage is read from or written to.
func (c *Config) NeedsS3() bool {
	return c.HasSink(SinkS3) || c.Source.Kind == SourceS3
}
