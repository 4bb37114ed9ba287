package polymarket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

func TestClobGetMarkets(t *testing.T) {
	t.Parallel()

	var gotCursor string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets" {
			http.NotFound(w, r)
			return
		}
		gotCursor = r.URL.Query().Get("next_cursor")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"limit": 2, "count": 1, "next_cursor": "LTE=",
			"data": [{
				"question": "Will $BTC exceed $100,000?",
				"condition_id": "0xabc",
				"market_slug": "btc-100k",
				"active": true,
				"closed": "false",
				"minimum_tick_size": "0.01",
				"tokens": [
					{"token_id": "111", "outcome": "Yes", "price": 0.42, "winner": false},
					{"token_id": "", "outcome": "No"}
				],
				"rewards": {"min_size": 50}
			}]
		}`))
	}))
	defer srv.Close()

	c := NewClobClient(srv.URL, 0)
	page, err := c.GetMarkets(context.Background(), "")
	if err != nil {
		t.Fatalf("GetMarkets: %v", err)
	}
	if gotCursor != StartCursor {
		t.Errorf("cursor = %q, want %q", gotCursor, StartCursor)
	}
	if page.NextCursor != "" {
		t.Errorf("NextCursor = %q, want empty at end cursor", page.NextCursor)
	}
	if len(page.Markets) != 1 {
		t.Fatalf("markets = %d, want 1", len(page.Markets))
	}

	m := page.Markets[0]
	if domain.StringOr(m.ConditionID, "") != "0xabc" {
		t.Errorf("ConditionID = %v", m.ConditionID)
	}
	if !domain.BoolOr(m.Active, false) || domain.BoolOr(m.Closed, true) {
		t.Errorf("active/closed = %v/%v", *m.Active, *m.Closed)
	}
	// Missing flags take the ingestion defaults.
	if !domain.BoolOr(m.Archived, false) || domain.BoolOr(m.AcceptingOrders, true) {
		t.Errorf("archived/accepting = %v/%v", *m.Archived, *m.AcceptingOrders)
	}
	if m.MinimumTickSize == nil || *m.MinimumTickSize != 0.01 {
		t.Errorf("MinimumTickSize = %v", m.MinimumTickSize)
	}
	if got := m.AssetIDs(); len(got) != 1 || got[0] != "111" {
		t.Errorf("AssetIDs = %v", got)
	}
	if len(m.Rewards) == 0 {
		t.Error("Rewards dropped")
	}
}

func TestCheckHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusForbidden, domain.ErrUnauthorized},
		{http.StatusTooManyRequests, domain.ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()
			err := checkHTTPStatus(tt.status, []byte("x"))
			if !errors.Is(err, tt.want) {
				t.Errorf("checkHTTPStatus(%d) = %v, want %v", tt.status, err, tt.want)
			}
		})
	}

	if err := checkHTTPStatus(http.StatusOK, nil); err != nil {
		t.Errorf("200: %v", err)
	}
	if err := checkHTTPStatus(http.StatusBadGateway, nil); err == nil {
		t.Error("502: expected error")
	}
}

func TestClobRateLimited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClobClient(srv.URL, 0).GetMarkets(context.Background(), StartCursor)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}
