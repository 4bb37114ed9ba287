package polymarket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

func TestGammaFilterQuery(t *testing.T) {
	t.Parallel()

	five := 5
	tests := []struct {
		name   string
		filter GammaFilter
		want   url.Values
	}{
		{"open", GammaFilter{Mode: ModeOpen, Limit: 10}, url.Values{"limit": {"10"}, "active": {"true"}, "closed": {"false"}}},
		{"active", GammaFilter{Mode: ModeActive, Limit: 10}, url.Values{"limit": {"10"}, "active": {"true"}}},
		{"closed", GammaFilter{Mode: ModeClosed, Limit: 10}, url.Values{"limit": {"10"}, "closed": {"true"}}},
		{"all with offset", GammaFilter{Mode: ModeAll, Limit: 10, Offset: &five}, url.Values{"limit": {"10"}, "offset": {"5"}}},
		{"cursor", GammaFilter{Mode: ModeAll, Cursor: "abc"}, url.Values{"cursor": {"abc"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.filter.query().Encode(); got != tt.want.Encode() {
				t.Errorf("query = %q, want %q", got, tt.want.Encode())
			}
		})
	}
}

func TestGammaGetMarketsArray(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("active") != "true" {
			t.Errorf("active param = %q", r.URL.Query().Get("active"))
		}
		_, _ = w.Write([]byte(`[{
			"id": "1",
			"question": "Will it snow tomorrow?",
			"conditionId": "0xsnow",
			"slug": "snow-tomorrow",
			"endDate": "2025-11-04T00:00:00Z",
			"active": "true",
			"closed": false,
			"outcomes": "[\"Yes\",\"No\"]",
			"outcomePrices": "[\"0.25\",\"0.75\"]",
			"clobTokenIds": "[\"t1\",\"t2\"]"
		}]`))
	}))
	defer srv.Close()

	page, err := NewGammaClient(srv.URL, 0).GetMarkets(context.Background(), GammaFilter{Mode: ModeOpen, Limit: 50})
	if err != nil {
		t.Fatalf("GetMarkets: %v", err)
	}
	if page.NextCursor != "" {
		t.Errorf("NextCursor = %q, want empty for array body", page.NextCursor)
	}
	if len(page.Markets) != 1 {
		t.Fatalf("markets = %d, want 1", len(page.Markets))
	}

	m := page.Markets[0]
	if domain.StringOr(m.MarketSlug, "") != "snow-tomorrow" {
		t.Errorf("slug = %v", m.MarketSlug)
	}
	if domain.StringOr(m.EndDateISO, "") != "2025-11-04T00:00:00Z" {
		t.Errorf("EndDateISO = %v", m.EndDateISO)
	}
	if len(m.Tokens) != 2 {
		t.Fatalf("tokens = %d, want 2", len(m.Tokens))
	}
	if m.Tokens[1].Outcome != "No" || *m.Tokens[1].TokenID != "t2" || *m.Tokens[1].Price != 0.75 {
		t.Errorf("token[1] = %+v", m.Tokens[1])
	}
}

func TestGammaGetMarketsEnvelope(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [{"question": "A"}, {"question": "B"}], "next_cursor": "xyz"}`))
	}))
	defer srv.Close()

	page, err := NewGammaClient(srv.URL, 0).GetMarkets(context.Background(), GammaFilter{Mode: ModeAll})
	if err != nil {
		t.Fatalf("GetMarkets: %v", err)
	}
	if page.NextCursor != "xyz" || len(page.Markets) != 2 {
		t.Errorf("page = %d markets, cursor %q", len(page.Markets), page.NextCursor)
	}
	if domain.BoolOr(page.Markets[0].Active, true) {
		t.Error("missing active should default to false")
	}
}
