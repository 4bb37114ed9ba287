package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/marketnorm/internal/config"
	"github.com/alanyoungcy/marketnorm/internal/pipeline"
	"github.com/alanyoungcy/marketnorm/internal/platform/polymarket"
	"github.com/alanyoungcy/marketnorm/internal/server"
	"github.com/alanyoungcy/marketnorm/internal/server/handler"
	"github.com/alanyoungcy/marketnorm/internal/server/ws"
	"github.com/alanyoungcy/marketnorm/internal/service"
)

// FetchMode captures one snapshot from the Polymarket API and writes it, with
// the market names file, to the output directory.
func (a *App) FetchMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting fetch mode")

	if _, err := a.fetchJob(deps).Run(ctx); err != nil {
		return fmt.Errorf("fetch mode: %w", err)
	}
	return nil
}

// NormalizeMode runs the configured variants once over the configured source.
// Per-record failures are warnings; only source and sink errors fail the run.
func (a *App) NormalizeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting normalize mode")

	source, err := a.source(deps)
	if err != nil {
		return fmt.Errorf("normalize mode: %w", err)
	}
	runner, err := a.runner(source, deps, nil)
	if err != nil {
		return fmt.Errorf("normalize mode: %w", err)
	}
	if _, err := runner.Run(ctx); err != nil {
		return fmt.Errorf("normalize mode: %w", err)
	}
	return nil
}

// ServeMode serves the API and runs the pipeline over the configured source on
// the configured interval and on trigger.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	source, err := a.source(deps)
	if err != nil {
		return fmt.Errorf("serve mode: %w", err)
	}
	return a.runService(ctx, deps, source)
}

// FullMode fetches a fresh snapshot on every run, normalizes it, and serves
// the API when the server is enabled.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")
	return a.runService(ctx, deps, a.fetchJob(deps))
}

// runService runs the pipeline loop alongside the HTTP server. With the
// server disabled and no interval it performs a single run.
func (a *App) runService(ctx context.Context, deps *Dependencies, source pipeline.Source) error {
	interval := a.cfg.Pipeline.Interval.Duration

	var hub *ws.Hub
	if a.cfg.Server.Enabled {
		hub = ws.NewHub(deps.SignalBus, a.logger, ws.Config{
			Mode:           a.cfg.Mode,
			StartedAt:      time.Now().UTC(),
			AllowedOrigins: a.cfg.Server.CORSOrigins,
		})
	}
	runner, err := a.runner(source, deps, hub)
	if err != nil {
		return err
	}

	if hub == nil && interval == 0 {
		_, err := runner.Run(ctx)
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	var triggerCh chan struct{}
	if hub != nil {
		triggerCh = make(chan struct{}, 1)
		a.startHTTPServer(ctx, g, deps, hub, triggerCh)
	}

	g.Go(func() error {
		return runner.RunLoop(ctx, interval, a.cfg.Pipeline.RunOnStart, triggerCh)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// startHTTPServer registers the API routes and runs the server and hub until
// ctx is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, hub *ws.Hub, triggerCh chan<- struct{}) {
	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.cfg.Mode, deps.HealthChecks, a.logger),
		Normalize: handler.NewNormalizeHandler(
			service.NewNormalizeService(service.NormalizeConfig{
				KeywordCap:      a.cfg.Normalize.KeywordCap,
				SearchDescLimit: a.cfg.Normalize.SearchDescLimit,
			}, deps.RunStore, a.logger),
			a.cfg.Server.MaxBodyMB,
			a.logger,
		),
		Pipeline: handler.NewPipelineHandler(a.logger).WithTriggerChannel(triggerCh),
	}
	if deps.MarketStore != nil {
		marketSvc := service.NewMarketService(deps.MarketStore, deps.MarketCache, a.logger)
		handlers.Markets = handler.NewMarketHandler(marketSvc, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimiter: deps.RateLimiter,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		return hub.Run(ctx)
	})

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.Int("port", a.cfg.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)),
		)
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// runner builds the pipeline runner with every configured sink and backend.
// When hub is set and no signal bus is wired, run events reach the hub in
// process.
func (a *App) runner(source pipeline.Source, deps *Dependencies, hub *ws.Hub) (*pipeline.Runner, error) {
	sinks, err := a.sinks(deps)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.RunnerOption{}
	if deps.RunStore != nil {
		opts = append(opts, pipeline.WithRunStore(deps.RunStore))
	}
	if deps.LockManager != nil {
		opts = append(opts, pipeline.WithLockManager(deps.LockManager))
	}
	if deps.SignalBus != nil {
		opts = append(opts, pipeline.WithSignalBus(deps.SignalBus))
	} else if hub != nil {
		opts = append(opts, pipeline.WithEventHook(hub.Publish))
	}
	if deps.Notifier != nil && deps.Notifier.Enabled() {
		opts = append(opts, pipeline.WithNotifier(deps.Notifier))
	}

	return pipeline.NewRunner(source, sinks, pipeline.RunnerConfig{
		Variants:        a.cfg.Normalize.Variants,
		KeywordCap:      a.cfg.Normalize.KeywordCap,
		SearchDescLimit: a.cfg.Normalize.SearchDescLimit,
		LockKey:         a.cfg.Pipeline.LockKey,
		LockTTL:         a.cfg.Pipeline.LockTTL.Duration,
	}, a.logger, opts...), nil
}

// source selects the snapshot source named by source.kind.
func (a *App) source(deps *Dependencies) (pipeline.Source, error) {
	switch a.cfg.Source.Kind {
	case config.SourceFile:
		return pipeline.FileSource{Path: a.cfg.Source.Path}, nil
	case config.SourceS3:
		if deps.BlobReader == nil {
			return nil, errors.New("s3 source requires blob storage")
		}
		return pipeline.BlobSource{Reader: deps.BlobReader, Key: a.cfg.Source.Key}, nil
	case config.SourceAPI:
		return a.apiSource(deps), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", a.cfg.Source.Kind)
	}
}

// sinks builds the output sinks listed in output.sinks, in order.
func (a *App) sinks(deps *Dependencies) ([]pipeline.Sink, error) {
	out := a.cfg.Output
	sinks := make([]pipeline.Sink, 0, len(out.Sinks))
	for _, name := range out.Sinks {
		switch name {
		case config.SinkFile:
			sinks = append(sinks, pipeline.FileSink{
				Dir:        out.Dir,
				RichFile:   out.RichFile,
				SimpleFile: out.SimpleFile,
				Indent:     out.Indent,
			})
		case config.SinkS3:
			if deps.Archiver == nil {
				return nil, errors.New("s3 sink requires blob storage")
			}
			sinks = append(sinks, pipeline.BlobSink{Archiver: deps.Archiver})
		case config.SinkPostgres:
			if deps.MarketStore == nil {
				return nil, errors.New("postgres sink requires a database")
			}
			sinks = append(sinks, pipeline.StoreSink{Store: deps.MarketStore})
		case config.SinkRedis:
			if deps.MarketCache == nil {
				return nil, errors.New("redis sink requires redis")
			}
			sinks = append(sinks, pipeline.CacheSink{Cache: deps.MarketCache})
		default:
			return nil, fmt.Errorf("unknown sink %q", name)
		}
	}
	return sinks, nil
}

// apiSource builds the live Polymarket source. The CLOB listing is walked
// unfiltered; Gamma applies fetch_mode server side.
func (a *App) apiSource(deps *Dependencies) pipeline.APISource {
	pm := a.cfg.Polymarket
	fetcher := polymarket.NewFetcher(
		polymarket.NewClobClient(pm.ClobHost, pm.Timeout.Duration),
		polymarket.NewGammaClient(pm.GammaHost, pm.Timeout.Duration),
		polymarket.FetcherConfig{
			PageLimit:  pm.PageLimit,
			MaxPages:   pm.MaxPages,
			PageDelay:  pm.PageDelay.Duration,
			RateLimit:  pm.RateLimit,
			RateWindow: pm.RateWindow.Duration,
		},
		deps.RateLimiter,
		a.logger,
	)

	mode := ""
	if pm.API == "gamma" {
		mode = pm.FetchMode
	}
	return pipeline.APISource{
		Fetcher:     fetcher,
		Mode:        mode,
		CurrentOnly: pm.FetchMode == polymarket.ModeOpen,
	}
}

// fetchJob builds the job that captures a snapshot and stores it at the
// configured raw path, and under source.key when blob storage is wired.
func (a *App) fetchJob(deps *Dependencies) pipeline.FetchJob {
	out := a.cfg.Output
	job := pipeline.FetchJob{
		Source:  a.apiSource(deps),
		RawPath: filepath.Join(out.Dir, out.RawFile),
		Indent:  out.Indent,
		Logger:  a.logger,
	}
	if out.NamesFile != "" {
		job.NamesPath = filepath.Join(out.Dir, out.NamesFile)
	}
	if deps.Archiver != nil {
		job.Archiver = deps.Archiver
		job.BlobKey = a.cfg.Source.Key
	}
	return job
}
