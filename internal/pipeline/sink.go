package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alanyoungcy/marketnorm/internal/domain"
	"github.com/alanyoungcy/marketnorm/internal/normalize"
)

// Output is one normalized batch handed to every sink.
type Output struct {
	RunID  string
	At     time.Time
	Result normalize.Result
}

// Sink persists a normalized batch. Write returns the locations it wrote;
// sinks that do not handle the batch's variant return none.
type Sink interface {
	Name() string
	Write(ctx context.Context, out Output) ([]string, error)
}

// --------------------------------------------------------------------------
// File
// --------------------------------------------------------------------------

// FileSink writes each variant's batch to a fixed file under Dir.
type FileSink struct {
	Dir        string
	RichFile   string
	SimpleFile string
	Indent     bool
}

// Name identifies the sink in logs.
func (s FileSink) Name() string { return "file" }

// Write replaces the variant's output file atomically.
func (s FileSink) Write(_ context.Context, out Output) ([]string, error) {
	name := s.RichFile
	if out.Result.Variant == domain.VariantSimple {
		name = s.SimpleFile
	}
	path := filepath.Join(s.Dir, name)
	if err := WriteJSONFile(path, out.Result.Payload(), s.Indent); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

// WriteJSONFile encodes v to path through a temporary file and rename so
// readers never observe a partial document. Non-ASCII text is written as is.
func WriteJSONFile(path string, v any, indent bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("pipeline: create dir for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("pipeline: create temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("pipeline: encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("pipeline: close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("pipeline: rename %s: %w", path, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Blob
// --------------------------------------------------------------------------

// BatchArchiver uploads batches to object storage.
type BatchArchiver interface {
	ArchiveBatch(ctx context.Context, variant, runID string, at time.Time, payload any) ([]string, error)
	ArchiveMarkets(ctx context.Context, variant, runID string, at time.Time, markets []domain.CompactMarket) (string, error)
}

// BlobSink archives every batch; compact batches also get a JSONL copy for
// bulk loaders.
type BlobSink struct {
	Archiver BatchArchiver
}

// Name identifies the sink in logs.
func (s BlobSink) Name() string { return "s3" }

// Write uploads the batch.
func (s BlobSink) Write(ctx context.Context, out Output) ([]string, error) {
	keys, err := s.Archiver.ArchiveBatch(ctx, out.Result.Variant, out.RunID, out.At, out.Result.Payload())
	if err != nil {
		return nil, err
	}
	if out.Result.Compact != nil {
		key, err := s.Archiver.ArchiveMarkets(ctx, out.Result.Variant, out.RunID, out.At, out.Result.Compact.Markets)
		if err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// --------------------------------------------------------------------------
// Store and cache
// --------------------------------------------------------------------------

// StoreSink upserts compact markets into the market store. Rich batches are
// not stored.
type StoreSink struct {
	Store domain.MarketStore
}

// Name identifies the sink in logs.
func (s StoreSink) Name() string { return "postgres" }

// Write upserts the compact markets.
func (s StoreSink) Write(ctx context.Context, out Output) ([]string, error) {
	if out.Result.Compact == nil {
		return nil, nil
	}
	if err := s.Store.UpsertBatch(ctx, out.Result.Compact.Markets); err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("postgres:markets(%d)", len(out.Result.Compact.Markets))}, nil
}

// CacheSink warms the market cache with compact markets. Rich batches are
// not cached.
type CacheSink struct {
	Cache domain.MarketCache
}

// Name identifies the sink in logs.
func (s CacheSink) Name() string { return "redis" }

// Write caches the compact markets.
func (s CacheSink) Write(ctx context.Context, out Output) ([]string, error) {
	if out.Result.Compact == nil {
		return nil, nil
	}
	if err := s.Cache.SetBatch(ctx, out.Result.Compact.Markets); err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("redis:markets(%d)", len(out.Result.Compact.Markets))}, nil
}
