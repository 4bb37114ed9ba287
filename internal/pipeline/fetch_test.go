package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

type fakeFetcher struct {
	snap domain.RawSnapshot
	err  error

	mode        string
	currentOnly bool
}

func (f *fakeFetcher) Snapshot(_ context.Context, mode string, currentOnly bool) (domain.RawSnapshot, error) {
	f.mode, f.currentOnly = mode, currentOnly
	return f.snap, f.err
}

type fakeSnapshotArchiver struct {
	keys []string
}

func (a *fakeSnapshotArchiver) ArchiveSnapshot(_ context.Context, key string, _ domain.RawSnapshot) error {
	a.keys = append(a.keys, key)
	return nil
}

func TestFetchJobRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fetcher := &fakeFetcher{snap: sampleSnapshot()}
	arch := &fakeSnapshotArchiver{}
	job := FetchJob{
		Source:    APISource{Fetcher: fetcher, Mode: "open", CurrentOnly: true},
		RawPath:   filepath.Join(dir, "raw.json"),
		NamesPath: filepath.Join(dir, "names.json"),
		Archiver:  arch,
		BlobKey:   "raw/current.json",
		Logger:    discardLogger(),
	}

	snap, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(snap.Markets) != 3 {
		t.Errorf("markets = %d, want 3", len(snap.Markets))
	}
	if fetcher.mode != "open" || !fetcher.currentOnly {
		t.Errorf("fetch called with %q/%v", fetcher.mode, fetcher.currentOnly)
	}
	if job.Name() != "api:gamma:open" {
		t.Errorf("Name = %q", job.Name())
	}

	loaded, err := (FileSource{Path: job.RawPath}).Load(context.Background())
	if err != nil {
		t.Fatalf("reload raw snapshot: %v", err)
	}
	if len(loaded.Markets) != 3 {
		t.Errorf("reloaded markets = %d, want 3", len(loaded.Markets))
	}

	data, err := os.ReadFile(job.NamesPath)
	if err != nil {
		t.Fatalf("read names: %v", err)
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		t.Fatalf("decode names: %v", err)
	}
	if len(names) != 3 || names[1] != "Will it snow tomorrow?" {
		t.Errorf("names = %q", names)
	}
	if len(arch.keys) != 1 || arch.keys[0] != "raw/current.json" {
		t.Errorf("archived keys = %v", arch.keys)
	}
}

func TestFetchJobFailureWritesNothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	job := FetchJob{
		Source:  APISource{Fetcher: &fakeFetcher{err: errors.New("upstream down")}},
		RawPath: filepath.Join(dir, "raw.json"),
	}
	if _, err := job.Load(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	if _, err := os.Stat(job.RawPath); !os.IsNotExist(err) {
		t.Errorf("raw file written on failure: %v", err)
	}
}
