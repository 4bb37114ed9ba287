package domain

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestDecodeSnapshot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		wantErr   error
		wantCount int
	}{
		{
			name:      "valid",
			input:     `{"timestamp": 1.5, "only_open_markets": true, "markets": [{"question": "q", "tokens": [{"token_id": "1"}]}]}`,
			wantCount: 1,
		},
		{name: "missing markets", input: `{"timestamp": 1}`, wantCount: 0},
		{name: "null markets", input: `{"markets": null}`, wantCount: 0},
		{name: "markets not an array", input: `{"markets": {"a": 1}}`, wantErr: ErrMalformedBatch},
		{name: "markets is a string", input: `{"markets": "x"}`, wantErr: ErrMalformedBatch},
		{name: "top level array", input: `[1, 2]`, wantErr: ErrMalformedBatch},
		{name: "not json", input: `nope`, wantErr: ErrMalformedBatch},
		{name: "record of wrong shape is skipped", input: `{"markets": [1]}`, wantCount: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			snap, err := DecodeSnapshot(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if len(snap.Markets) != tt.wantCount {
				t.Errorf("markets = %d, want %d", len(snap.Markets), tt.wantCount)
			}
		})
	}
}

func TestDecodeSnapshotSkipsBadRecords(t *testing.T) {
	t.Parallel()

	input := `{"timestamp": 1, "markets": [
		{"question": "ok one"},
		{"question": 42},
		"not-an-object",
		null,
		{"question": "ok two"},
		{"question": "bad flag", "active": "yes"}
	]}`
	snap, err := DecodeSnapshot(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if len(snap.Markets) != 2 || snap.Markets[0].Question != "ok one" || snap.Markets[1].Question != "ok two" {
		t.Fatalf("markets = %+v", snap.Markets)
	}
	if snap.Timestamp == nil || *snap.Timestamp != 1 {
		t.Errorf("timestamp = %v", snap.Timestamp)
	}

	var indexes []int
	for _, f := range snap.DecodeFailures {
		if !errors.Is(f.Err, ErrInvalidRecord) {
			t.Errorf("failure %d: err = %v, want ErrInvalidRecord", f.Index, f.Err)
		}
		indexes = append(indexes, f.Index)
	}
	if !slices.Equal(indexes, []int{1, 2, 3, 5}) {
		t.Errorf("failure indexes = %v, want [1 2 3 5]", indexes)
	}
	if got := snap.SourceIndex(0); got != 0 {
		t.Errorf("SourceIndex(0) = %d, want 0", got)
	}
	if got := snap.SourceIndex(1); got != 4 {
		t.Errorf("SourceIndex(1) = %d, want 4", got)
	}
}

func TestNewSnapshotCountsAssets(t *testing.T) {
	t.Parallel()

	markets := []RawMarket{
		{Tokens: []Token{{TokenID: Ptr("a")}, {TokenID: Ptr("b")}}},
		{Tokens: []Token{{TokenID: Ptr("")}, {}}},
	}
	snap := NewSnapshot(markets, 10, true, "open")
	if snap.TotalMarkets != 2 || snap.TotalAssetIDs != 2 {
		t.Errorf("totals = %d/%d, want 2/2", snap.TotalMarkets, snap.TotalAssetIDs)
	}
	if snap.Mode != "open" || !*snap.OnlyOpenMarkets || *snap.Timestamp != 10 {
		t.Errorf("metadata = %+v", snap)
	}
}
