package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MARKETNORM_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MARKETNORM_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Source ──
	setStr(&cfg.Source.Kind, "MARKETNORM_SOURCE_KIND")
	setStr(&cfg.Source.Path, "MARKETNORM_SOURCE_PATH")
	setStr(&cfg.Source.Key, "MARKETNORM_SOURCE_KEY")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "MARKETNORM_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.GammaHost, "MARKETNORM_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.API, "MARKETNORM_POLYMARKET_API")
	setStr(&cfg.Polymarket.FetchMode, "MARKETNORM_POLYMARKET_FETCH_MODE")
	setInt(&cfg.Polymarket.PageLimit, "MARKETNORM_POLYMARKET_PAGE_LIMIT")
	setInt(&cfg.Polymarket.MaxPages, "MARKETNORM_POLYMARKET_MAX_PAGES")
	setDuration(&cfg.Polymarket.PageDelay, "MARKETNORM_POLYMARKET_PAGE_DELAY")
	setDuration(&cfg.Polymarket.Timeout, "MARKETNORM_POLYMARKET_TIMEOUT")
	setInt(&cfg.Polymarket.RateLimit, "MARKETNORM_POLYMARKET_RATE_LIMIT")
	setDuration(&cfg.Polymarket.RateWindow, "MARKETNORM_POLYMARKET_RATE_WINDOW")

	// ── Normalize ──
	setStringSlice(&cfg.Normalize.Variants, "MARKETNORM_NORMALIZE_VARIANTS")
	setInt(&cfg.Normalize.KeywordCap, "MARKETNORM_NORMALIZE_KEYWORD_CAP")
	setInt(&cfg.Normalize.SearchDescLimit, "MARKETNORM_NORMALIZE_SEARCH_DESC_LIMIT")

	// ── Output ──
	setStr(&cfg.Output.Dir, "MARKETNORM_OUTPUT_DIR")
	setStr(&cfg.Output.RawFile, "MARKETNORM_OUTPUT_RAW_FILE")
	setStr(&cfg.Output.NamesFile, "MARKETNORM_OUTPUT_NAMES_FILE")
	setStr(&cfg.Output.RichFile, "MARKETNORM_OUTPUT_RICH_FILE")
	setStr(&cfg.Output.SimpleFile, "MARKETNORM_OUTPUT_SIMPLE_FILE")
	setBool(&cfg.Output.Indent, "MARKETNORM_OUTPUT_INDENT")
	setStringSlice(&cfg.Output.Sinks, "MARKETNORM_OUTPUT_SINKS")
	setStr(&cfg.Output.S3Prefix, "MARKETNORM_OUTPUT_S3_PREFIX")
	setInt(&cfg.Output.MultipartMB, "MARKETNORM_OUTPUT_MULTIPART_MB")

	// ── Supabase ──
	setStr(&cfg.Supabase.DSN, "MARKETNORM_SUPABASE_DSN")
	setStr(&cfg.Supabase.DSN, "MARKETNORM_SUPABASE_URL") // compatibility alias
	setStr(&cfg.Supabase.Host, "MARKETNORM_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "MARKETNORM_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "MARKETNORM_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "MARKETNORM_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "MARKETNORM_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "MARKETNORM_SUPABASE_SSL_MODE")
	setInt(&cfg.Supabase.PoolMaxConns, "MARKETNORM_SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "MARKETNORM_SUPABASE_POOL_MIN_CONNS")
	setBool(&cfg.Supabase.RunMigrations, "MARKETNORM_SUPABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "MARKETNORM_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "MARKETNORM_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MARKETNORM_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MARKETNORM_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MARKETNORM_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MARKETNORM_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MARKETNORM_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.CacheTTLMinutes, "MARKETNORM_REDIS_CACHE_TTL_MINUTES")
	setInt(&cfg.Redis.StreamMaxLen, "MARKETNORM_REDIS_STREAM_MAX_LEN")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "MARKETNORM_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MARKETNORM_S3_REGION")
	setStr(&cfg.S3.Bucket, "MARKETNORM_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MARKETNORM_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MARKETNORM_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MARKETNORM_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MARKETNORM_S3_FORCE_PATH_STYLE")

	// ── Pipeline ──
	setDuration(&cfg.Pipeline.Interval, "MARKETNORM_PIPELINE_INTERVAL")
	setBool(&cfg.Pipeline.RunOnStart, "MARKETNORM_PIPELINE_RUN_ON_START")
	setStr(&cfg.Pipeline.LockKey, "MARKETNORM_PIPELINE_LOCK_KEY")
	setDuration(&cfg.Pipeline.LockTTL, "MARKETNORM_PIPELINE_LOCK_TTL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "MARKETNORM_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "MARKETNORM_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MARKETNORM_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "MARKETNORM_SERVER_API_KEY")
	setInt(&cfg.Server.MaxBodyMB, "MARKETNORM_SERVER_MAX_BODY_MB")
	setInt(&cfg.Server.RateLimit, "MARKETNORM_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "MARKETNORM_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "MARKETNORM_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MARKETNORM_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MARKETNORM_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MARKETNORM_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "MARKETNORM_MODE")
	setStr(&cfg.LogLevel, "MARKETNORM_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
