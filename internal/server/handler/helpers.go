package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

// Pagination bounds shared by the list endpoints.
const (
	defaultLimit = 50
	maxLimit     = 500
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes v with the given status. Encoding failures become a bare
// 500 since the status line has not been sent yet.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// queryInt reads a non-negative integer parameter. Absent, malformed and
// negative values yield def.
func queryInt(q url.Values, name string, def int) int {
	n, err := strconv.Atoi(q.Get(name))
	if err != nil || n < 0 {
		return def
	}
	return n
}

// queryTime reads an optional RFC 3339 parameter.
func queryTime(q url.Values, name string) (*time.Time, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: want RFC 3339 time", name)
	}
	return &t, nil
}

// parseListOpts reads limit (default 50, at most 500, zero means default)
// and offset.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()
	limit := queryInt(q, "limit", defaultLimit)
	if limit == 0 {
		limit = defaultLimit
	}
	return domain.ListOpts{
		Limit:  min(limit, maxLimit),
		Offset: queryInt(q, "offset", 0),
	}
}

// parseMarketFilter reads the market listing filters on top of pagination:
// category, active=true|1 and q (substring of the search text).
func parseMarketFilter(r *http.Request) domain.MarketFilter {
	opts := parseListOpts(r)
	q := r.URL.Query()
	active, _ := strconv.ParseBool(q.Get("active"))
	return domain.MarketFilter{
		Category:   strings.TrimSpace(q.Get("category")),
		ActiveOnly: active,
		Query:      strings.TrimSpace(q.Get("q")),
		Limit:      opts.Limit,
		Offset:     opts.Offset,
	}
}
