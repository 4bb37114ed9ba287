package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// RawSnapshot is the document written by the fetcher and read by the
// normalizer: a batch of raw markets plus capture metadata.
type RawSnapshot struct {
	Timestamp       *float64    `json:"timestamp"`
	OnlyOpenMarkets *bool       `json:"only_open_markets,omitempty"`
	Mode            string      `json:"mode,omitempty"`
	TotalMarkets    int         `json:"total_markets"`
	TotalOriginal   *int        `json:"total_original_markets,omitempty"`
	TotalAssetIDs   int         `json:"total_asset_ids"`
	Markets         []RawMarket `json:"markets"`

	// DecodeFailures lists the elements of "markets" that could not be
	// decoded, in ascending Index order. They are absent from Markets.
	DecodeFailures []RecordFailure `json:"-"`
}

// RecordFailure is one record that could not be read. Index is its position
// in the source array.
type RecordFailure struct {
	Index int
	Err   error
}

// SourceIndex maps a position in Markets back to the record's position in
// the source array, skipping over DecodeFailures.
func (s RawSnapshot) SourceIndex(i int) int {
	for _, f := range s.DecodeFailures {
		if f.Index > i {
			break
		}
		i++
	}
	return i
}

// DecodeSnapshot reads a RawSnapshot from r. A document that is not an object
// or whose "markets" member is not an array is reported as ErrMalformedBatch;
// a missing "markets" member decodes to an empty batch. Elements of
// "markets" that do not decode as a market are recorded in DecodeFailures
// and skipped.
func DecodeSnapshot(r io.Reader) (RawSnapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return RawSnapshot{}, fmt.Errorf("domain: read snapshot: %w", err)
	}

	type header RawSnapshot
	var doc struct {
		header
		Markets json.RawMessage `json:"markets"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return RawSnapshot{}, fmt.Errorf("%w: %v", ErrMalformedBatch, err)
	}
	snap := RawSnapshot(doc.header)
	snap.Markets = nil

	trimmed := bytes.TrimSpace(doc.Markets)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return snap, nil
	}
	if trimmed[0] != '[' {
		return RawSnapshot{}, fmt.Errorf("%w: markets is not an array", ErrMalformedBatch)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return RawSnapshot{}, fmt.Errorf("%w: %v", ErrMalformedBatch, err)
	}

	snap.Markets = make([]RawMarket, 0, len(elems))
	for i, elem := range elems {
		m, err := decodeMarket(elem)
		if err != nil {
			snap.DecodeFailures = append(snap.DecodeFailures, RecordFailure{Index: i, Err: err})
			continue
		}
		snap.Markets = append(snap.Markets, m)
	}
	return snap, nil
}

func decodeMarket(elem json.RawMessage) (RawMarket, error) {
	if t := bytes.TrimSpace(elem); len(t) == 0 || t[0] != '{' {
		return RawMarket{}, fmt.Errorf("%w: record is not an object", ErrInvalidRecord)
	}
	var m RawMarket
	if err := json.Unmarshal(elem, &m); err != nil {
		return RawMarket{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return m, nil
}

// NewSnapshot wraps markets with capture metadata, counting asset IDs across
// all tokens.
func NewSnapshot(markets []RawMarket, timestamp float64, onlyOpen bool, mode string) RawSnapshot {
	assets := 0
	for _, m := range markets {
		assets += len(m.AssetIDs())
	}
	return RawSnapshot{
		Timestamp:       &timestamp,
		OnlyOpenMarkets: &onlyOpen,
		Mode:            mode,
		TotalMarkets:    len(markets),
		TotalAssetIDs:   assets,
		Markets:         markets,
	}
}
