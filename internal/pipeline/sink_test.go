package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/alanyoungcy/marketnorm/internal/domain"
	"github.com/alanyoungcy/marketnorm/internal/normalize"
)

type fakeArchiver struct {
	batches []string
	markets int
}

func (f *fakeArchiver) ArchiveBatch(_ context.Context, variant, runID string, _ time.Time, _ any) ([]string, error) {
	key := variant + "/" + runID + ".json"
	f.batches = append(f.batches, key)
	return []string{key}, nil
}

func (f *fakeArchiver) ArchiveMarkets(_ context.Context, variant, runID string, _ time.Time, markets []domain.CompactMarket) (string, error) {
	f.markets += len(markets)
	return variant + "/" + runID + ".jsonl", nil
}

type fakeStore struct {
	upserted []domain.CompactMarket
}

func (f *fakeStore) UpsertBatch(_ context.Context, m []domain.CompactMarket) error {
	f.upserted = append(f.upserted, m...)
	return nil
}

func (f *fakeStore) GetByID(context.Context, string) (domain.CompactMarket, error) {
	return domain.CompactMarket{}, domain.ErrNotFound
}

func (f *fakeStore) List(context.Context, domain.MarketFilter) ([]domain.CompactMarket, error) {
	return f.upserted, nil
}

func (f *fakeStore) Count(context.Context, domain.MarketFilter) (int64, error) { return int64(len(f.upserted)), nil }

type fakeCache struct {
	set int
}

func (f *fakeCache) Set(context.Context, domain.CompactMarket) error { f.set++; return nil }

func (f *fakeCache) SetBatch(_ context.Context, m []domain.CompactMarket) error {
	f.set += len(m)
	return nil
}

func (f *fakeCache) Get(context.Context, string) (domain.CompactMarket, error) {
	return domain.CompactMarket{}, domain.ErrNotFound
}

func (f *fakeCache) Invalidate(context.Context, string) error { return nil }

func outputs(t *testing.T) (rich, simple Output) {
	t.Helper()
	snap := sampleSnapshot()
	for _, variant := range []string{domain.VariantRich, domain.VariantSimple} {
		p, err := normalize.NewPipeline(variant)
		if err != nil {
			t.Fatal(err)
		}
		out := Output{RunID: "r1", At: runNow, Result: p.RunSnapshot(snap)}
		if variant == domain.VariantRich {
			rich = out
		} else {
			simple = out
		}
	}
	return rich, simple
}

func TestBlobSink(t *testing.T) {
	t.Parallel()

	rich, simple := outputs(t)
	arch := &fakeArchiver{}
	sink := BlobSink{Archiver: arch}

	keys, err := sink.Write(context.Background(), rich)
	if err != nil || len(keys) != 1 {
		t.Fatalf("rich keys = %v, err = %v", keys, err)
	}
	keys, err = sink.Write(context.Background(), simple)
	if err != nil || len(keys) != 2 {
		t.Fatalf("simple keys = %v, err = %v", keys, err)
	}
	if arch.markets != 2 {
		t.Errorf("jsonl markets = %d, want 2", arch.markets)
	}
}

func TestStoreAndCacheSinksSkipRich(t *testing.T) {
	t.Parallel()

	rich, simple := outputs(t)
	store := &fakeStore{}
	cache := &fakeCache{}

	for _, sink := range []Sink{StoreSink{Store: store}, CacheSink{Cache: cache}} {
		locs, err := sink.Write(context.Background(), rich)
		if err != nil || locs != nil {
			t.Errorf("%s rich = %v, %v; want no-op", sink.Name(), locs, err)
		}
		locs, err = sink.Write(context.Background(), simple)
		if err != nil || len(locs) != 1 {
			t.Errorf("%s simple = %v, %v", sink.Name(), locs, err)
		}
	}
	if len(store.upserted) != 2 || cache.set != 2 {
		t.Errorf("store = %d, cache = %d; want 2 and 2", len(store.upserted), cache.set)
	}
}
