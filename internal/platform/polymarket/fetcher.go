package polymarket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

// SnapshotModeClob is recorded as the snapshot mode when markets come from
// the unfiltered CLOB listing.
const SnapshotModeClob = "clob_api"

// rateLimitKey is the limiter bucket shared by every fetcher page request.
const rateLimitKey = "polymarket:markets"

// ErrNoMarkets is returned when a fetch completes without a single market.
var ErrNoMarkets = errors.New("polymarket: no markets fetched")

// ClobLister lists CLOB markets by cursor.
type ClobLister interface {
	GetMarkets(ctx context.Context, cursor string) (MarketPage, error)
}

// GammaLister lists Gamma markets by filter.
type GammaLister interface {
	GetMarkets(ctx context.Context, filter GammaFilter) (MarketPage, error)
}

// FetcherConfig bounds and paces a full market listing.
type FetcherConfig struct {
	PageLimit  int
	MaxPages   int
	PageDelay  time.Duration
	RateLimit  int // requests per RateWindow, 0 disables throttling
	RateWindow time.Duration
}

// Fetcher walks every page of the Polymarket market listing.
type Fetcher struct {
	clob    ClobLister
	gamma   GammaLister
	cfg     FetcherConfig
	limiter domain.RateLimiter
	logger  *slog.Logger
	now     func() time.Time
}

// NewFetcher creates a Fetcher. limiter may be nil.
func NewFetcher(clob ClobLister, gamma GammaLister, cfg FetcherConfig, limiter domain.RateLimiter, logger *slog.Logger) *Fetcher {
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 500
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 100
	}
	return &Fetcher{
		clob:    clob,
		gamma:   gamma,
		cfg:     cfg,
		limiter: limiter,
		logger:  logger.With(slog.String("component", "fetcher")),
		now:     time.Now,
	}
}

// FetchAll returns every market reachable within MaxPages. An empty mode
// walks the CLOB listing; any Gamma mode walks the filtered Gamma listing.
//
// A failing page stops the walk after logging; the markets gathered so far are
// returned. ErrNoMarkets is returned only when nothing was gathered.
func (f *Fetcher) FetchAll(ctx context.Context, mode string) ([]domain.RawMarket, error) {
	var (
		markets []domain.RawMarket
		pages   int
		err     error
	)
	if mode == "" {
		markets, pages, err = f.walkClob(ctx)
	} else {
		switch mode {
		case ModeOpen, ModeActive, ModeClosed, ModeAll:
		default:
			return nil, fmt.Errorf("polymarket: unknown fetch mode %q", mode)
		}
		markets, pages, err = f.walkGamma(ctx, mode)
	}

	if err != nil {
		f.logger.WarnContext(ctx, "fetch stopped early",
			slog.Int("page", pages+1),
			slog.Int("markets", len(markets)),
			slog.String("error", err.Error()),
		)
	}
	f.logger.InfoContext(ctx, "fetch complete",
		slog.String("mode", modeName(mode)),
		slog.Int("markets", len(markets)),
		slog.Int("pages", pages),
	)

	if len(markets) == 0 {
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoMarkets, err)
		}
		return nil, ErrNoMarkets
	}
	return markets, nil
}

// Snapshot fetches markets and wraps them with capture metadata. When
// currentOnly is set the result is reduced with FilterCurrent and the
// pre-filter count is recorded.
func (f *Fetcher) Snapshot(ctx context.Context, mode string, currentOnly bool) (domain.RawSnapshot, error) {
	markets, err := f.FetchAll(ctx, mode)
	if err != nil {
		return domain.RawSnapshot{}, err
	}

	total := len(markets)
	if currentOnly {
		markets = FilterCurrent(markets)
	}

	now := f.now()
	ts := float64(now.UnixNano()) / 1e9
	snap := domain.NewSnapshot(markets, ts, currentOnly || mode == ModeOpen, modeName(mode))
	if currentOnly {
		snap.TotalOriginal = &total
	}
	return snap, nil
}

func (f *Fetcher) walkClob(ctx context.Context) ([]domain.RawMarket, int, error) {
	var all []domain.RawMarket
	cursor := StartCursor
	for pages := 0; pages < f.cfg.MaxPages; {
		if err := f.throttle(ctx); err != nil {
			return all, pages, err
		}
		page, err := f.clob.GetMarkets(ctx, cursor)
		if err != nil {
			return all, pages, err
		}
		all = append(all, page.Markets...)
		pages++
		f.logPage(ctx, pages, len(page.Markets), len(all), page.NextCursor, nil)

		if page.NextCursor == "" || page.NextCursor == cursor || len(page.Markets) == 0 {
			return all, pages, nil
		}
		cursor = page.NextCursor
		if err := f.pause(ctx); err != nil {
			return all, pages, err
		}
	}
	return all, f.cfg.MaxPages, nil
}

func (f *Fetcher) walkGamma(ctx context.Context, mode string) ([]domain.RawMarket, int, error) {
	var (
		all    []domain.RawMarket
		cursor string
		offset *int
		limit  = f.cfg.PageLimit
	)
	for pages := 0; pages < f.cfg.MaxPages; {
		if err := f.throttle(ctx); err != nil {
			return all, pages, err
		}
		page, err := f.gamma.GetMarkets(ctx, GammaFilter{Mode: mode, Limit: limit, Cursor: cursor, Offset: offset})
		if err != nil {
			return all, pages, err
		}
		count := len(page.Markets)
		all = append(all, page.Markets...)
		pages++
		f.logPage(ctx, pages, count, len(all), page.NextCursor, offset)

		if page.NextCursor == "" || (cursor != "" && page.NextCursor == cursor) {
			if count != limit {
				return all, pages, nil
			}
			// Full page without a cursor: fall back to offset paging.
			next := limit
			if offset != nil {
				next = *offset + limit
			}
			cursor, offset = "", &next
		} else {
			cursor, offset = page.NextCursor, nil
		}

		if count < limit {
			return all, pages, nil
		}
		if err := f.pause(ctx); err != nil {
			return all, pages, err
		}
	}
	return all, f.cfg.MaxPages, nil
}

// throttle blocks until the shared limiter admits another page request.
func (f *Fetcher) throttle(ctx context.Context) error {
	if f.limiter == nil || f.cfg.RateLimit <= 0 {
		return nil
	}
	for {
		ok, err := f.limiter.Allow(ctx, rateLimitKey, f.cfg.RateLimit, f.cfg.RateWindow)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if err := sleepCtx(ctx, 50*time.Millisecond); err != nil {
			return err
		}
	}
}

func (f *Fetcher) pause(ctx context.Context) error {
	if f.cfg.PageDelay <= 0 {
		return nil
	}
	return sleepCtx(ctx, f.cfg.PageDelay)
}

func (f *Fetcher) logPage(ctx context.Context, page, count, total int, next string, offset *int) {
	attrs := []any{
		slog.Int("page", page),
		slog.Int("fetched", count),
		slog.Int("total", total),
		slog.String("next_cursor", next),
	}
	if offset != nil {
		attrs = append(attrs, slog.Int("offset", *offset))
	}
	f.logger.DebugContext(ctx, "fetched page", attrs...)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func modeName(mode string) string {
	if mode == "" {
		return SnapshotModeClob
	}
	return mode
}

// FilterCurrent keeps markets that are active and not closed. A missing
// active flag counts as inactive and a missing closed flag counts as closed.
func FilterCurrent(markets []domain.RawMarket) []domain.RawMarket {
	out := make([]domain.RawMarket, 0, len(markets))
	for _, m := range markets {
		if domain.BoolOr(m.Active, defaultActive) && !domain.BoolOr(m.Closed, defaultClosed) {
			out = append(out, m)
		}
	}
	return out
}

// MarketNames returns a display name per market: the first non-blank of
// question, description and slug, trimmed. Markets with none are skipped.
func MarketNames(markets []domain.RawMarket) []string {
	names := make([]string, 0, len(markets))
	for _, m := range markets {
		for _, candidate := range []string{m.Question, m.Description, domain.StringOr(m.MarketSlug, "")} {
			if s := strings.TrimSpace(candidate); s != "" {
				names = append(names, s)
				break
			}
		}
	}
	return names
}
