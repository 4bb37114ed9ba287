package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var runNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func sampleSnapshot() domain.RawSnapshot {
	return domain.NewSnapshot([]domain.RawMarket{
		{
			Question:    "Will $BTC exceed $100,000 by Q4 2025?",
			Description: "Resolves YES above $100,000.",
			Active:      domain.Ptr(true),
			Closed:      domain.Ptr(false),
		},
		{Question: "Will it snow tomorrow?"},
		{Question: "bad \xff utf8"},
	}, 1730000000, true, "open")
}

type staticSource struct {
	snap domain.RawSnapshot
	err  error
}

func (s staticSource) Name() string { return "static" }

func (s staticSource) Load(context.Context) (domain.RawSnapshot, error) { return s.snap, s.err }

type memSink struct {
	name string
	err  error

	mu   sync.Mutex
	outs []Output
}

func (s *memSink) Name() string { return s.name }

func (s *memSink) Write(_ context.Context, out Output) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outs = append(s.outs, out)
	if s.err != nil {
		return nil, s.err
	}
	return []string{s.name + ":" + out.Result.Variant}, nil
}

type memRuns struct {
	mu   sync.Mutex
	runs []domain.RunRecord
}

func (m *memRuns) Insert(_ context.Context, r domain.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, r)
	return nil
}

func (m *memRuns) ListRecent(context.Context, domain.ListOpts) ([]domain.RunRecord, error) {
	return m.runs, nil
}

type memBus struct {
	mu        sync.Mutex
	published map[string][][]byte
	streamed  map[string][][]byte
}

func newMemBus() *memBus {
	return &memBus{published: map[string][][]byte{}, streamed: map[string][][]byte{}}
}

func (b *memBus) Publish(_ context.Context, ch string, p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[ch] = append(b.published[ch], p)
	return nil
}

func (b *memBus) Subscribe(context.Context, string) (<-chan []byte, error) { return nil, nil }

func (b *memBus) StreamAppend(_ context.Context, s string, p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streamed[s] = append(b.streamed[s], p)
	return nil
}

func (b *memBus) StreamTail(context.Context, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

type recordedAlert struct{ event, title string }

type memNotifier struct {
	mu     sync.Mutex
	alerts []recordedAlert
}

func (n *memNotifier) Notify(_ context.Context, event, title, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, recordedAlert{event, title})
	return nil
}

func (n *memNotifier) count(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, a := range n.alerts {
		if a.event == event {
			c++
		}
	}
	return c
}

type heldLock struct{}

func (heldLock) Acquire(context.Context, string, time.Duration) (func(), error) {
	return nil, domain.ErrLockHeld
}

func newTestRunner(src Source, sinks []Sink, opts ...RunnerOption) *Runner {
	opts = append([]RunnerOption{WithRunClock(func() time.Time { return runNow })}, opts...)
	r := NewRunner(src, sinks, RunnerConfig{LockKey: "test"}, discardLogger(), opts...)
	ids := 0
	r.newID = func() string {
		ids++
		return "run-" + string(rune('0'+ids))
	}
	return r
}

func TestRunnerRun(t *testing.T) {
	t.Parallel()

	sink := &memSink{name: "mem"}
	runs := &memRuns{}
	bus := newMemBus()
	notifier := &memNotifier{}
	var events []domain.RunEvent

	r := newTestRunner(staticSource{snap: sampleSnapshot()}, []Sink{sink},
		WithRunStore(runs), WithSignalBus(bus), WithNotifier(notifier),
		WithEventHook(func(e domain.RunEvent) { events = append(events, e) }),
	)

	records, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}

	for i, variant := range []string{domain.VariantRich, domain.VariantSimple} {
		rec := records[i]
		if rec.Variant != variant {
			t.Errorf("records[%d].Variant = %q, want %q", i, rec.Variant, variant)
		}
		if rec.InputMarkets != 3 || rec.Stats.TotalMarkets != 2 || rec.Stats.FailedCount != 1 {
			t.Errorf("%s stats = %+v (input %d)", variant, rec.Stats, rec.InputMarkets)
		}
		if len(rec.Outputs) != 1 || rec.Outputs[0] != "mem:"+variant {
			t.Errorf("%s outputs = %v", variant, rec.Outputs)
		}
		if rec.SnapshotTimestamp == nil || *rec.SnapshotTimestamp != 1730000000 {
			t.Errorf("%s snapshot timestamp = %v", variant, rec.SnapshotTimestamp)
		}
		if rec.Error != "" {
			t.Errorf("%s error = %q", variant, rec.Error)
		}
	}

	if len(sink.outs) != 2 {
		t.Fatalf("sink writes = %d, want 2", len(sink.outs))
	}
	if c := sink.outs[1].Result.Compact; c == nil || c.OnlyOpenMarkets == nil || !*c.OnlyOpenMarkets {
		t.Error("compact batch lost only_open_markets")
	}
	if len(runs.runs) != 2 {
		t.Errorf("persisted runs = %d, want 2", len(runs.runs))
	}
	if got := len(bus.published[domain.ChannelRunCompleted]); got != 2 {
		t.Errorf("published events = %d, want 2", got)
	}
	if got := len(bus.streamed[domain.StreamRuns]); got != 2 {
		t.Errorf("streamed events = %d, want 2", got)
	}
	var ev domain.RunEvent
	if err := json.Unmarshal(bus.published[domain.ChannelRunCompleted][0], &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.Type != RunEventCompleted || ev.Variant != domain.VariantRich || ev.FailedCount != 1 {
		t.Errorf("event = %+v", ev)
	}
	if len(events) != 2 {
		t.Errorf("hook events = %d, want 2", len(events))
	}
	if got := notifier.count(EventNormalizeFailures); got != 2 {
		t.Errorf("normalize_failures alerts = %d, want 2", got)
	}
	if got := notifier.count(EventRunFailed); got != 0 {
		t.Errorf("run_failed alerts = %d, want 0", got)
	}
}

func TestRunnerSinkFailure(t *testing.T) {
	t.Parallel()

	good := &memSink{name: "good"}
	bad := &memSink{name: "bad", err: errors.New("disk full")}
	notifier := &memNotifier{}
	r := newTestRunner(staticSource{snap: sampleSnapshot()}, []Sink{good, bad},
		WithNotifier(notifier), func(r *Runner) { r.cfg.Variants = []string{domain.VariantSimple} })

	records, err := r.Run(context.Background())
	if err == nil {
		t.Fatal("expected sink error")
	}
	if len(records) != 1 || records[0].Error == "" {
		t.Fatalf("records = %+v", records)
	}
	if len(records[0].Outputs) != 1 || records[0].Outputs[0] != "good:simple" {
		t.Errorf("outputs = %v", records[0].Outputs)
	}
	if len(good.outs) != 1 {
		t.Error("healthy sink was not written")
	}
	if notifier.count(EventRunFailed) != 1 {
		t.Error("run_failed alert not sent")
	}
}

func TestRunnerSourceFailure(t *testing.T) {
	t.Parallel()

	r := newTestRunner(staticSource{err: domain.ErrMalformedBatch}, nil)
	if _, err := r.Run(context.Background()); !errors.Is(err, domain.ErrMalformedBatch) {
		t.Fatalf("err = %v, want ErrMalformedBatch", err)
	}
}

func TestRunnerLockHeld(t *testing.T) {
	t.Parallel()

	sink := &memSink{name: "mem"}
	r := newTestRunner(staticSource{snap: sampleSnapshot()}, []Sink{sink}, WithLockManager(heldLock{}))
	if _, err := r.Run(context.Background()); !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("err = %v, want ErrLockHeld", err)
	}
	if len(sink.outs) != 0 {
		t.Error("sink written while lock held")
	}
}

func TestRunnerLocalLock(t *testing.T) {
	t.Parallel()

	r := newTestRunner(staticSource{snap: sampleSnapshot()}, nil)
	r.local.Lock()
	defer r.local.Unlock()
	if _, err := r.Run(context.Background()); !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("err = %v, want ErrLockHeld", err)
	}
}

func TestFileSourceAndSink(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	raw := filepath.Join(dir, "raw.json")
	if err := WriteJSONFile(raw, sampleSnapshot(), true); err != nil {
		t.Fatalf("WriteJSONFile: %v", err)
	}

	sink := FileSink{Dir: filepath.Join(dir, "out"), RichFile: "rich.json", SimpleFile: "simple.json", Indent: true}
	r := newTestRunner(FileSource{Path: raw}, []Sink{sink})
	records, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if records[0].Source != "file:"+raw {
		t.Errorf("source = %q", records[0].Source)
	}

	data, err := os.ReadFile(filepath.Join(dir, "out", "simple.json"))
	if err != nil {
		t.Fatalf("read simple batch: %v", err)
	}
	var batch domain.CompactBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		t.Fatalf("decode simple batch: %v", err)
	}
	// JSON encoding replaces the invalid UTF-8 byte, so every record survives
	// the round trip through the file.
	if batch.NormalizationType != domain.VariantSimple || batch.TotalMarkets != 3 || batch.FailedCount != 0 {
		t.Errorf("batch meta = %s/%d/%d", batch.NormalizationType, batch.TotalMarkets, batch.FailedCount)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "rich.json")); err != nil {
		t.Errorf("rich batch missing: %v", err)
	}
}

func TestFileSourceMalformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"markets": "nope"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (FileSource{Path: path}).Load(context.Background()); !errors.Is(err, domain.ErrMalformedBatch) {
		t.Fatalf("err = %v, want ErrMalformedBatch", err)
	}
}
