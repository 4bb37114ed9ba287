package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/alanyoungcy/marketnorm/internal/domain"
	"github.com/alanyoungcy/marketnorm/internal/normalize"
)

// NormalizeConfig carries the compact variant tuning shared with the runner.
type NormalizeConfig struct {
	KeywordCap      int
	SearchDescLimit int
}

// NormalizeService normalizes snapshots on demand and exposes run history.
type NormalizeService struct {
	cfg    NormalizeConfig
	runs   domain.RunStore
	logger *slog.Logger
}

// NewNormalizeService creates a NormalizeService. runs may be nil, in which
// case run history is empty.
func NewNormalizeService(cfg NormalizeConfig, runs domain.RunStore, logger *slog.Logger) *NormalizeService {
	return &NormalizeService{
		cfg:    cfg,
		runs:   runs,
		logger: logger.With(slog.String("component", "normalize_service")),
	}
}

// Normalize decodes a snapshot from r and runs the requested variant over it.
// Decoding failures wrap domain.ErrMalformedBatch and unknown variants wrap
// domain.ErrUnknownVariant.
func (s *NormalizeService) Normalize(ctx context.Context, r io.Reader, variant string) (normalize.Result, error) {
	p, err := normalize.NewPipeline(variant,
		normalize.WithKeywordCap(s.cfg.KeywordCap),
		normalize.WithSearchDescLimit(s.cfg.SearchDescLimit),
		normalize.WithFailureHook(func(index int, err error) {
			s.logger.WarnContext(ctx, "record skipped",
				slog.String("variant", variant),
				slog.Int("index", index),
				slog.String("error", err.Error()),
			)
		}),
	)
	if err != nil {
		return normalize.Result{}, fmt.Errorf("normalize_service: %w", err)
	}

	snap, err := domain.DecodeSnapshot(r)
	if err != nil {
		return normalize.Result{}, fmt.Errorf("normalize_service: %w", err)
	}

	result := p.RunSnapshot(snap)
	s.logger.InfoContext(ctx, "snapshot normalized on request",
		slog.String("variant", variant),
		slog.Int("input_markets", len(snap.Markets)),
		slog.Int("total_markets", result.TotalMarkets()),
		slog.Int("failed_count", result.FailedCount()),
	)
	return result, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *NormalizeService) ListRuns(ctx context.Context, opts domain.ListOpts) ([]domain.RunRecord, error) {
	if s.runs == nil {
		return []domain.RunRecord{}, nil
	}
	runs, err := s.runs.ListRecent(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("normalize_service: list runs: %w", err)
	}
	if runs == nil {
		runs = []domain.RunRecord{}
	}
	return runs, nil
}
