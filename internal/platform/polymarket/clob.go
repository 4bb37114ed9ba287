package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

// CLOB cursor sentinels. Pagination starts at StartCursor and the server
// signals the last page with EndCursor.
const (
	StartCursor = "MA=="
	EndCursor   = "LTE="
)

// ClobClient is the read-only REST client for the Polymarket CLOB (Central
// Limit Order Book) API. It lists markets with full token detail.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com". A
// non-positive timeout falls back to 30 seconds.
func NewClobClient(baseURL string, timeout time.Duration) *ClobClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ClobClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetMarkets returns one page of markets starting at cursor. An empty cursor
// is treated as StartCursor. The returned NextCursor is empty when the server
// reports the end of the listing.
func (c *ClobClient) GetMarkets(ctx context.Context, cursor string) (MarketPage, error) {
	if cursor == "" {
		cursor = StartCursor
	}
	params := url.Values{}
	params.Set("next_cursor", cursor)

	body, err := doGet(ctx, c.httpClient, c.baseURL+"/markets?"+params.Encode())
	if err != nil {
		return MarketPage{}, fmt.Errorf("polymarket/clob: get markets: %w", err)
	}

	var resp clobMarketsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return MarketPage{}, fmt.Errorf("polymarket/clob: decode markets: %w", err)
	}

	page := MarketPage{Markets: make([]domain.RawMarket, 0, len(resp.Data))}
	for i := range resp.Data {
		page.Markets = append(page.Markets, resp.Data[i].ToRawMarket())
	}
	if resp.NextCursor != EndCursor {
		page.NextCursor = resp.NextCursor
	}
	return page, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet sends an unauthenticated GET request and returns the response body.
func doGet(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
