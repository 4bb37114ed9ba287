package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/marketnorm/internal/blob/s3"
	"github.com/alanyoungcy/marketnorm/internal/cache/redis"
	"github.com/alanyoungcy/marketnorm/internal/config"
	"github.com/alanyoungcy/marketnorm/internal/domain"
	"github.com/alanyoungcy/marketnorm/internal/notify"
	"github.com/alanyoungcy/marketnorm/internal/server/handler"
	"github.com/alanyoungcy/marketnorm/internal/store/postgres"
)

// Dependencies bundles every backend the modes may use. Fields for backends
// the configuration does not enable are nil.
type Dependencies struct {
	// Stores
	MarketStore domain.MarketStore
	RunStore    domain.RunStore

	// Caches
	MarketCache domain.MarketCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Blob storage
	BlobReader domain.BlobReader
	Archiver   *s3blob.Archiver

	// Notifications
	Notifier *notify.Notifier

	// HealthChecks probes each connected backend for GET /api/health.
	HealthChecks map[string]handler.HealthCheck
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{HealthChecks: map[string]handler.HealthCheck{}}

	// --- PostgreSQL (postgres sink or API modes) ---
	if cfg.NeedsPostgres() {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Supabase.DSN,
			Host:     cfg.Supabase.Host,
			Port:     cfg.Supabase.Port,
			Database: cfg.Supabase.Database,
			User:     cfg.Supabase.User,
			Password: cfg.Supabase.Password,
			SSLMode:  cfg.Supabase.SSLMode,
			MaxConns: cfg.Supabase.PoolMaxConns,
			MinConns: cfg.Supabase.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Supabase.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.MarketStore = postgres.NewMarketStore(pool)
		deps.RunStore = postgres.NewRunStore(pool)
		deps.HealthChecks["postgres"] = pgClient.Ping
		logger.InfoContext(ctx, "postgres connected")
	}

	// --- Redis (optional) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		ttl := redis.DefaultMarketTTL
		if cfg.Redis.CacheTTLMinutes > 0 {
			ttl = time.Duration(cfg.Redis.CacheTTLMinutes) * time.Minute
		}

		deps.MarketCache = redis.NewMarketCache(redisClient, ttl)
		deps.RateLimiter = redis.NewRateLimiter(redisClient, cfg.Polymarket.RateLimit, cfg.Polymarket.RateWindow.Duration)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient, cfg.Redis.StreamMaxLen)
		deps.HealthChecks["redis"] = redisClient.Ping
		logger.InfoContext(ctx, "redis connected", slog.String("addr", cfg.Redis.Addr))
	}

	// --- S3 blob storage (s3 source or sink) ---
	if cfg.NeedsS3() {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), cfg.Output.S3Prefix, cfg.Output.MultipartMB)
		deps.HealthChecks["s3"] = s3Client.Health
		logger.InfoContext(ctx, "s3 configured", slog.String("bucket", cfg.S3.Bucket))
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			"",
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
