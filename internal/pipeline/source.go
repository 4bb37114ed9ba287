package pipeline

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

// Source loads the raw snapshot a run normalizes.
type Source interface {
	Name() string
	Load(ctx context.Context) (domain.RawSnapshot, error)
}

// FileSource reads a snapshot from the local filesystem.
type FileSource struct {
	Path string
}

// Name identifies the source in run records.
func (s FileSource) Name() string { return "file:" + s.Path }

// Load opens and decodes the snapshot file.
func (s FileSource) Load(_ context.Context) (domain.RawSnapshot, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return domain.RawSnapshot{}, fmt.Errorf("pipeline: open snapshot %s: %w", s.Path, err)
	}
	defer f.Close()

	snap, err := domain.DecodeSnapshot(f)
	if err != nil {
		return domain.RawSnapshot{}, fmt.Errorf("pipeline: decode snapshot %s: %w", s.Path, err)
	}
	return snap, nil
}

// BlobSource reads a snapshot object from blob storage. A Key ending in "/"
// is a prefix: the newest .json object under it is loaded.
type BlobSource struct {
	Reader domain.BlobReader
	Key    string
}

// Name identifies the source in run records.
func (s BlobSource) Name() string { return "s3:" + s.Key }

// Load fetches and decodes the snapshot object.
func (s BlobSource) Load(ctx context.Context) (domain.RawSnapshot, error) {
	key, err := s.resolve(ctx)
	if err != nil {
		return domain.RawSnapshot{}, err
	}

	body, err := s.Reader.Get(ctx, key)
	if err != nil {
		return domain.RawSnapshot{}, fmt.Errorf("pipeline: get snapshot %s: %w", key, err)
	}
	defer body.Close()

	snap, err := domain.DecodeSnapshot(body)
	if err != nil {
		return domain.RawSnapshot{}, fmt.Errorf("pipeline: decode snapshot %s: %w", key, err)
	}
	return snap, nil
}

func (s BlobSource) resolve(ctx context.Context) (string, error) {
	if !strings.HasSuffix(s.Key, "/") {
		return s.Key, nil
	}
	infos, err := s.Reader.List(ctx, s.Key)
	if err != nil {
		return "", fmt.Errorf("pipeline: list snapshots %s: %w", s.Key, err)
	}
	infos = slices.DeleteFunc(infos, func(info domain.ObjectInfo) bool {
		return !strings.HasSuffix(info.Key, ".json")
	})
	newest, ok := domain.Newest(infos)
	if !ok {
		return "", fmt.Errorf("pipeline: no snapshot under %s: %w", s.Key, domain.ErrNotFound)
	}
	return newest.Key, nil
}

// SnapshotFetcher captures a fresh snapshot from the upstream API.
type SnapshotFetcher interface {
	Snapshot(ctx context.Context, mode string, currentOnly bool) (domain.RawSnapshot, error)
}

// APISource fetches a live snapshot for every run.
type APISource struct {
	Fetcher     SnapshotFetcher
	Mode        string // empty walks the CLOB listing
	CurrentOnly bool
}

// Name identifies the source in run records.
func (s APISource) Name() string {
	if s.Mode == "" {
		return "api:clob"
	}
	return "api:gamma:" + s.Mode
}

// Load fetches the snapshot.
func (s APISource) Load(ctx context.Context) (domain.RawSnapshot, error) {
	snap, err := s.Fetcher.Snapshot(ctx, s.Mode, s.CurrentOnly)
	if err != nil {
		return domain.RawSnapshot{}, fmt.Errorf("pipeline: fetch snapshot: %w", err)
	}
	return snap, nil
}
