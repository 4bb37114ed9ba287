package polymarket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

// Gamma filter modes.
const (
	ModeOpen   = "open"   // active=true and closed=false
	ModeActive = "active" // active=true, may include closed
	ModeClosed = "closed" // closed=true
	ModeAll    = "all"    // no filters
)

// GammaFilter selects a page of markets from the Gamma API.
type GammaFilter struct {
	Mode   string
	Limit  int
	Cursor string
	Offset *int
}

// query encodes the filter as Gamma query parameters.
func (f GammaFilter) query() url.Values {
	params := url.Values{}
	if f.Limit > 0 {
		params.Set("limit", strconv.Itoa(f.Limit))
	}
	switch f.Mode {
	case ModeOpen:
		params.Set("closed", "false")
		params.Set("active", "true")
	case ModeActive:
		params.Set("active", "true")
	case ModeClosed:
		params.Set("closed", "true")
	}
	if f.Cursor != "" {
		params.Set("cursor", f.Cursor)
	}
	if f.Offset != nil {
		params.Set("offset", strconv.Itoa(*f.Offset))
	}
	return params
}

// GammaClient is the REST client for the Polymarket Gamma API, which
// provides market discovery with server-side filtering.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com". A
// non-positive timeout falls back to 30 seconds.
func NewGammaClient(baseURL string, timeout time.Duration) *GammaClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GammaClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetMarkets returns one page of markets matching filter.
func (g *GammaClient) GetMarkets(ctx context.Context, filter GammaFilter) (MarketPage, error) {
	path := "/markets"
	if q := filter.query().Encode(); q != "" {
		path += "?" + q
	}

	body, err := doGet(ctx, g.httpClient, g.baseURL+path)
	if err != nil {
		return MarketPage{}, fmt.Errorf("polymarket/gamma: get markets: %w", err)
	}

	markets, next, err := decodeGammaPage(body)
	if err != nil {
		return MarketPage{}, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}

	page := MarketPage{Markets: make([]domain.RawMarket, 0, len(markets)), NextCursor: next}
	for i := range markets {
		page.Markets = append(page.Markets, markets[i].ToRawMarket())
	}
	return page, nil
}
