package domain

import "time"

// BatchStats summarises a normalized batch.
type BatchStats struct {
	TotalMarkets int            `json:"total_markets"`
	FailedCount  int            `json:"failed_count"`
	Categories   map[string]int `json:"categories"`
	// Coverage counts markets with at least one value per entity kind:
	// tickers/prices/dates for rich batches, tickers/numbers/years for
	// compact ones.
	Coverage    map[string]int `json:"coverage"`
	AvgKeywords float64        `json:"avg_keywords"`
}

// RunRecord is the persisted outcome of one pipeline run for one variant.
type RunRecord struct {
	ID                string     `json:"id"`
	Source            string     `json:"source"`
	Variant           string     `json:"variant"`
	SnapshotTimestamp *float64   `json:"snapshot_timestamp"`
	InputMarkets      int        `json:"input_markets"`
	Stats             BatchStats `json:"stats"`
	Outputs           []string   `json:"outputs"`
	Error             string     `json:"error,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	FinishedAt        time.Time  `json:"finished_at"`
}

// Run event channels and streams.
const (
	ChannelRunCompleted = "normalize:completed"
	StreamRuns          = "normalize:runs"
)

// RunEvent is published on the signal bus when a run finishes.
type RunEvent struct {
	Type         string    `json:"type"`
	RunID        string    `json:"run_id"`
	Variant      string    `json:"variant"`
	TotalMarkets int       `json:"total_markets"`
	FailedCount  int       `json:"failed_count"`
	Error        string    `json:"error,omitempty"`
	At           time.Time `json:"at"`
}
