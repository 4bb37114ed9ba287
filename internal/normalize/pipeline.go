package normalize

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

// NormalizedAtLayout formats Batch.NormalizedAt.
const NormalizedAtLayout = "2006-01-02T15:04:05.000000Z07:00"

// FailureHook is told about every record that failed to normalize. index is
// the position of the record in the input slice.
type FailureHook func(index int, err error)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the clock stamping NormalizedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithFailureHook registers a per-record failure callback.
func WithFailureHook(h FailureHook) Option {
	return func(p *Pipeline) { p.onFailure = h }
}

// WithTables replaces the default lookup tables.
func WithTables(t Tables) Option {
	return func(p *Pipeline) { p.tables = t }
}

// WithKeywordCap bounds compact keyword lists.
func WithKeywordCap(n int) Option {
	return func(p *Pipeline) { p.keywordCap = n }
}

// WithSearchDescLimit bounds the description share of compact search text.
func WithSearchDescLimit(n int) Option {
	return func(p *Pipeline) { p.descLimit = n }
}

// Pipeline normalizes an in-memory batch of raw markets. It does no I/O and
// is safe for sequential reuse; Run never mutates its input.
type Pipeline struct {
	variant    string
	tables     Tables
	now        func() time.Time
	onFailure  FailureHook
	keywordCap int
	descLimit  int

	rich    *RichNormalizer
	compact *CompactNormalizer
}

// NewPipeline returns a pipeline for the "rich" or "simple" variant.
func NewPipeline(variant string, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		variant:    variant,
		tables:     DefaultTables(),
		now:        time.Now,
		keywordCap: DefaultKeywordCap,
		descLimit:  DefaultSearchDescLimit,
	}
	for _, opt := range opts {
		opt(p)
	}
	switch variant {
	case domain.VariantRich:
		p.rich = NewRichNormalizer(p.tables)
	case domain.VariantSimple:
		p.compact = NewCompactNormalizer(p.tables, p.keywordCap, p.descLimit)
	default:
		return nil, fmt.Errorf("normalize: %w: %q", domain.ErrUnknownVariant, variant)
	}
	return p, nil
}

// Variant reports the variant the pipeline produces.
func (p *Pipeline) Variant() string { return p.variant }

// Result holds the batch of whichever variant ran. Exactly one of Rich and
// Compact is set.
type Result struct {
	Variant string
	Rich    *domain.RichBatch
	Compact *domain.CompactBatch
}

// Payload returns the batch for encoding.
func (r Result) Payload() any {
	if r.Rich != nil {
		return r.Rich
	}
	return r.Compact
}

// TotalMarkets is the number of records emitted.
func (r Result) TotalMarkets() int {
	if r.Rich != nil {
		return r.Rich.TotalMarkets
	}
	if r.Compact != nil {
		return r.Compact.TotalMarkets
	}
	return 0
}

// FailedCount is the number of records skipped.
func (r Result) FailedCount() int {
	if r.Rich != nil {
		return r.Rich.FailedCount
	}
	if r.Compact != nil {
		return r.Compact.FailedCount
	}
	return 0
}

// Run normalizes raw in input order. timestamp is carried into the batch
// unchanged.
func (p *Pipeline) Run(raw []domain.RawMarket, timestamp *float64) Result {
	return p.run(domain.RawSnapshot{Markets: raw, Timestamp: timestamp})
}

// RunSnapshot normalizes a decoded snapshot, carrying its timestamp and
// only-open flag into the batch. Records the decoder already rejected count
// as failures and reach the failure hook with their source index.
func (p *Pipeline) RunSnapshot(snap domain.RawSnapshot) Result {
	return p.run(snap)
}

func (p *Pipeline) run(snap domain.RawSnapshot) Result {
	for _, f := range snap.DecodeFailures {
		if p.onFailure != nil {
			p.onFailure(f.Index, f.Err)
		}
	}
	hook := p.onFailure
	if hook != nil && len(snap.DecodeFailures) > 0 {
		hook = func(i int, err error) { p.onFailure(snap.SourceIndex(i), err) }
	}
	decodeFailed := len(snap.DecodeFailures)

	if p.rich != nil {
		markets, failed := runEach(snap.Markets, p.rich.Normalize, hook)
		b := newBatch(p, markets, failed+decodeFailed, snap.Timestamp, snap.OnlyOpenMarkets)
		return Result{Variant: p.variant, Rich: &b}
	}
	markets, failed := runEach(snap.Markets, p.compact.Normalize, hook)
	Deduplicate(markets)
	b := newBatch(p, markets, failed+decodeFailed, snap.Timestamp, snap.OnlyOpenMarkets)
	return Result{Variant: p.variant, Compact: &b}
}

func newBatch[T any](p *Pipeline, markets []T, failed int, ts *float64, onlyOpen *bool) domain.Batch[T] {
	return domain.Batch[T]{
		Timestamp:         ts,
		NormalizedAt:      p.now().Format(NormalizedAtLayout),
		NormalizationType: p.variant,
		OnlyOpenMarkets:   onlyOpen,
		TotalMarkets:      len(markets),
		FailedCount:       failed,
		Markets:           markets,
	}
}

// runEach applies fn to every record, skipping and counting the ones that
// return an error or panic.
func runEach[T any](raw []domain.RawMarket, fn func(domain.RawMarket) (T, error), hook FailureHook) ([]T, int) {
	out := make([]T, 0, len(raw))
	failed := 0
	for i, m := range raw {
		v, err := safeCall(fn, m)
		if err != nil {
			failed++
			if hook != nil {
				hook(i, err)
			}
			continue
		}
		out = append(out, v)
	}
	return out, failed
}

func safeCall[T any](fn func(domain.RawMarket) (T, error), m domain.RawMarket) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", domain.ErrInvalidRecord, r)
		}
	}()
	return fn(m)
}

// validateText rejects records whose text fields are not valid UTF-8.
func validateText(m domain.RawMarket) error {
	fields := []struct {
		name  string
		value string
	}{
		{"question", m.Question},
		{"description", m.Description},
		{"category", domain.StringOr(m.Category, "")},
	}
	for _, f := range fields {
		if !utf8.ValidString(f.value) {
			return fmt.Errorf("%w: %s is not valid UTF-8", domain.ErrInvalidRecord, f.name)
		}
	}
	return nil
}
