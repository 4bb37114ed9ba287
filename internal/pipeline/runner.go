package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/marketnorm/internal/domain"
	"github.com/alanyoungcy/marketnorm/internal/normalize"
)

// Notification event types raised by the runner.
const (
	EventNormalizeFailures = "normalize_failures"
	EventRunFailed         = "run_failed"
)

// Event types published on the signal bus.
const (
	RunEventCompleted = "run_completed"
	RunEventFailed    = "run_failed"
)

// Notifier delivers operator alerts.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// RunnerConfig controls what a run produces and how it is serialized
// against other processes.
type RunnerConfig struct {
	Variants        []string
	KeywordCap      int
	SearchDescLimit int
	LockKey         string
	LockTTL         time.Duration
}

// Runner executes one normalization run: lock, load, normalize each variant,
// fan out to sinks, record, publish and notify.
type Runner struct {
	source   Source
	sinks    []Sink
	runs     domain.RunStore
	bus      domain.SignalBus
	locks    domain.LockManager
	notifier Notifier
	cfg      RunnerConfig
	logger   *slog.Logger

	local   sync.Mutex
	onEvent func(domain.RunEvent)
	now     func() time.Time
	newID   func() string
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithRunStore persists a record per variant.
func WithRunStore(s domain.RunStore) RunnerOption { return func(r *Runner) { r.runs = s } }

// WithSignalBus publishes run events to the bus.
func WithSignalBus(b domain.SignalBus) RunnerOption { return func(r *Runner) { r.bus = b } }

// WithLockManager serializes runs across processes. Without one, runs are
// serialized within the process only.
func WithLockManager(l domain.LockManager) RunnerOption { return func(r *Runner) { r.locks = l } }

// WithNotifier sends failure alerts.
func WithNotifier(n Notifier) RunnerOption { return func(r *Runner) { r.notifier = n } }

// WithEventHook receives every run event in process.
func WithEventHook(fn func(domain.RunEvent)) RunnerOption {
	return func(r *Runner) { r.onEvent = fn }
}

// WithRunClock overrides the clock used for timestamps.
func WithRunClock(now func() time.Time) RunnerOption { return func(r *Runner) { r.now = now } }

// NewRunner creates a Runner reading from source and writing to sinks.
func NewRunner(source Source, sinks []Sink, cfg RunnerConfig, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if len(cfg.Variants) == 0 {
		cfg.Variants = []string{domain.VariantRich, domain.VariantSimple}
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Minute
	}
	r := &Runner{
		source: source,
		sinks:  sinks,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "runner")),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs a single run and returns one record per variant. It returns a
// domain.ErrLockHeld error when another run holds the lock. Sink failures
// are recorded on the affected variant and joined into the returned error;
// the remaining variants still run.
func (r *Runner) Run(ctx context.Context) ([]domain.RunRecord, error) {
	unlock, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	started := r.now().UTC()
	snap, err := r.source.Load(ctx)
	if err != nil {
		r.alert(ctx, EventRunFailed, "normalize run failed", err.Error())
		return nil, err
	}
	r.logger.InfoContext(ctx, "snapshot loaded",
		slog.String("source", r.source.Name()),
		slog.Int("markets", len(snap.Markets)),
	)

	var (
		records []domain.RunRecord
		errs    []error
	)
	for _, variant := range r.cfg.Variants {
		rec, err := r.runVariant(ctx, variant, snap, started)
		records = append(records, rec)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return records, errors.Join(errs...)
}

func (r *Runner) runVariant(ctx context.Context, variant string, snap domain.RawSnapshot, started time.Time) (domain.RunRecord, error) {
	rec := domain.RunRecord{
		ID:                r.newID(),
		Source:            r.source.Name(),
		Variant:           variant,
		SnapshotTimestamp: snap.Timestamp,
		InputMarkets:      len(snap.Markets),
		StartedAt:         started,
	}
	logger := r.logger.With(slog.String("run_id", rec.ID), slog.String("variant", variant))

	p, err := normalize.NewPipeline(variant,
		normalize.WithClock(r.now),
		normalize.WithKeywordCap(r.cfg.KeywordCap),
		normalize.WithSearchDescLimit(r.cfg.SearchDescLimit),
		normalize.WithFailureHook(func(index int, err error) {
			logger.WarnContext(ctx, "record skipped", slog.Int("index", index), slog.String("error", err.Error()))
		}),
	)
	if err != nil {
		return r.finish(ctx, rec, fmt.Errorf("pipeline: %w", err))
	}

	result := p.RunSnapshot(snap)
	rec.Stats = normalize.Stats(result)
	logger.InfoContext(ctx, "batch normalized",
		slog.Int("total_markets", rec.Stats.TotalMarkets),
		slog.Int("failed_count", rec.Stats.FailedCount),
		slog.Any("categories", rec.Stats.Categories),
		slog.Any("coverage", rec.Stats.Coverage),
		slog.Float64("avg_keywords", rec.Stats.AvgKeywords),
	)

	outputs, sinkErr := r.fanOut(ctx, Output{RunID: rec.ID, At: started, Result: result})
	rec.Outputs = outputs

	if rec.Stats.FailedCount > 0 {
		r.alert(ctx, EventNormalizeFailures,
			fmt.Sprintf("%s batch skipped %d records", variant, rec.Stats.FailedCount),
			fmt.Sprintf("run %s: %d of %d markets normalized", rec.ID, rec.Stats.TotalMarkets, rec.InputMarkets),
		)
	}
	return r.finish(ctx, rec, sinkErr)
}

// fanOut writes the batch to every sink concurrently. A failing sink does not
// cancel the others.
func (r *Runner) fanOut(ctx context.Context, out Output) ([]string, error) {
	var (
		mu       sync.Mutex
		outputs  []string
		failures []error
	)
	var g errgroup.Group
	for _, sink := range r.sinks {
		g.Go(func() error {
			locs, err := sink.Write(ctx, out)
			mu.Lock()
			defer mu.Unlock()
			outputs = append(outputs, locs...)
			if err != nil {
				r.logger.ErrorContext(ctx, "sink failed",
					slog.String("sink", sink.Name()),
					slog.String("variant", out.Result.Variant),
					slog.String("error", err.Error()),
				)
				failures = append(failures, fmt.Errorf("%s: %w", sink.Name(), err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return outputs, errors.Join(failures...)
}

// finish stamps, persists and publishes rec, then returns runErr.
func (r *Runner) finish(ctx context.Context, rec domain.RunRecord, runErr error) (domain.RunRecord, error) {
	rec.FinishedAt = r.now().UTC()
	if runErr != nil {
		rec.Error = runErr.Error()
		r.alert(ctx, EventRunFailed, fmt.Sprintf("%s run failed", rec.Variant), rec.Error)
	}

	if r.runs != nil {
		if err := r.runs.Insert(ctx, rec); err != nil {
			r.logger.ErrorContext(ctx, "persist run record failed", slog.String("run_id", rec.ID), slog.String("error", err.Error()))
		}
	}

	event := domain.RunEvent{
		Type:         RunEventCompleted,
		RunID:        rec.ID,
		Variant:      rec.Variant,
		TotalMarkets: rec.Stats.TotalMarkets,
		FailedCount:  rec.Stats.FailedCount,
		Error:        rec.Error,
		At:           rec.FinishedAt,
	}
	if runErr != nil {
		event.Type = RunEventFailed
	}
	r.publish(ctx, event)

	r.logger.InfoContext(ctx, "run finished",
		slog.String("run_id", rec.ID),
		slog.String("variant", rec.Variant),
		slog.Duration("elapsed", rec.FinishedAt.Sub(rec.StartedAt)),
		slog.Int("outputs", len(rec.Outputs)),
	)
	return rec, runErr
}

func (r *Runner) publish(ctx context.Context, event domain.RunEvent) {
	if r.onEvent != nil {
		r.onEvent(event)
	}
	if r.bus == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.ErrorContext(ctx, "marshal run event failed", slog.String("error", err.Error()))
		return
	}
	if err := r.bus.Publish(ctx, domain.ChannelRunCompleted, payload); err != nil {
		r.logger.WarnContext(ctx, "publish run event failed", slog.String("error", err.Error()))
	}
	if err := r.bus.StreamAppend(ctx, domain.StreamRuns, payload); err != nil {
		r.logger.WarnContext(ctx, "append run stream failed", slog.String("error", err.Error()))
	}
}

func (r *Runner) alert(ctx context.Context, event, title, message string) {
	r.logger.WarnContext(ctx, title, slog.String("event", event), slog.String("detail", message))
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, event, title, message); err != nil {
		r.logger.WarnContext(ctx, "notify failed", slog.String("event", event), slog.String("error", err.Error()))
	}
}

// acquire takes the distributed lock when configured, else the process lock.
func (r *Runner) acquire(ctx context.Context) (func(), error) {
	if r.locks != nil && r.cfg.LockKey != "" {
		unlock, err := r.locks.Acquire(ctx, r.cfg.LockKey, r.cfg.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("pipeline: acquire run lock: %w", err)
		}
		return unlock, nil
	}
	if !r.local.TryLock() {
		return nil, fmt.Errorf("pipeline: acquire run lock: %w", domain.ErrLockHeld)
	}
	return r.local.Unlock, nil
}

// RunLoop runs on a repeating interval and on every receive from trigger
// until the context is cancelled. A zero interval disables the ticker and a
// nil trigger is never ready. A run that finds the lock held is skipped.
func (r *Runner) RunLoop(ctx context.Context, interval time.Duration, runOnStart bool, trigger <-chan struct{}) error {
	r.logger.InfoContext(ctx, "run loop starting", slog.Duration("interval", interval))

	if runOnStart {
		r.runLogged(ctx)
	}

	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("run loop stopped")
			return ctx.Err()
		case <-tick:
			r.runLogged(ctx)
		case <-trigger:
			r.logger.InfoContext(ctx, "run triggered")
			r.runLogged(ctx)
		}
	}
}

func (r *Runner) runLogged(ctx context.Context) {
	if _, err := r.Run(ctx); err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			r.logger.InfoContext(ctx, "run skipped, lock held elsewhere")
			return
		}
		r.logger.ErrorContext(ctx, "run failed", slog.String("error", err.Error()))
	}
}
