package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

// MarketService is the read side of the compact market store.
type MarketService interface {
	GetMarket(ctx context.Context, id string) (domain.CompactMarket, error)
	List(ctx context.Context, filter domain.MarketFilter) ([]domain.CompactMarket, error)
	Count(ctx context.Context, filter domain.MarketFilter) (int64, error)
}

// MarketHandler serves the compact market listing and lookup.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{markets: markets, logger: logger}
}

// listMarketsResponse is one page of markets. Total counts every market
// matching the filter.
type listMarketsResponse struct {
	Markets []domain.CompactMarket `json:"markets"`
	Total   int64                  `json:"total"`
	Limit   int                    `json:"limit"`
	Offset  int                    `json:"offset"`
	HasMore bool                   `json:"has_more"`
}

// ListMarkets returns one filtered page of compact markets.
// GET /api/markets?category=crypto&active=true&q=bitcoin&limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	filter := parseMarketFilter(r)

	var (
		markets []domain.CompactMarket
		total   int64
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		markets, err = h.markets.List(ctx, filter)
		return err
	})
	g.Go(func() (err error) {
		total, err = h.markets.Count(ctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.Any("filter", filter),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list markets")
		return
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
		HasMore: int64(filter.Offset+len(markets)) < total,
	})
}

// GetMarket returns a single compact market by ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	market, err := h.markets.GetMarket(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, market)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "market not found")
	default:
		h.logger.ErrorContext(r.Context(), "handler: get market failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get market")
	}
}
