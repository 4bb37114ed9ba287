package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/marketnorm/internal/domain"
	"github.com/alanyoungcy/marketnorm/internal/platform/polymarket"
)

// SnapshotArchiver uploads a raw snapshot to object storage.
type SnapshotArchiver interface {
	ArchiveSnapshot(ctx context.Context, key string, snap domain.RawSnapshot) error
}

// FetchJob captures a raw snapshot from the API and stores it where the
// normalizer's source reads it.
type FetchJob struct {
	Source    APISource
	RawPath   string
	NamesPath string // empty skips the names file
	Indent    bool
	Archiver  SnapshotArchiver
	BlobKey   string
	Logger    *slog.Logger
}

// Name identifies the job in run records when it is used as a Source.
func (j FetchJob) Name() string { return j.Source.Name() }

// Load runs the job, so a Runner can fetch, save and normalize in one pass.
func (j FetchJob) Load(ctx context.Context) (domain.RawSnapshot, error) { return j.Run(ctx) }

// Run fetches and writes the snapshot, returning it for callers that
// normalize in the same process.
func (j FetchJob) Run(ctx context.Context) (domain.RawSnapshot, error) {
	snap, err := j.Source.Load(ctx)
	if err != nil {
		return domain.RawSnapshot{}, err
	}

	if err := WriteJSONFile(j.RawPath, snap, j.Indent); err != nil {
		return domain.RawSnapshot{}, err
	}
	if j.NamesPath != "" {
		if err := WriteJSONFile(j.NamesPath, polymarket.MarketNames(snap.Markets), j.Indent); err != nil {
			return domain.RawSnapshot{}, err
		}
	}
	if j.Archiver != nil && j.BlobKey != "" {
		if err := j.Archiver.ArchiveSnapshot(ctx, j.BlobKey, snap); err != nil {
			return domain.RawSnapshot{}, fmt.Errorf("pipeline: archive snapshot: %w", err)
		}
	}

	if j.Logger != nil {
		j.Logger.InfoContext(ctx, "snapshot saved",
			slog.String("path", j.RawPath),
			slog.String("mode", snap.Mode),
			slog.Int("markets", snap.TotalMarkets),
			slog.Int("asset_ids", snap.TotalAssetIDs),
		)
	}
	return snap, nil
}
