package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alanyoungcy/marketnorm/internal/config"
	"github.com/alanyoungcy/marketnorm/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNormalizeModeWithFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	raw := filepath.Join(dir, "current_markets.json")
	snapshot := `{"timestamp": 1730000000, "only_open_markets": true, "markets": [
		{"question": "Will $ETH reach $5,000 in 2025?", "condition_id": "0xeth", "active": true, "closed": false},
		{"question": "Who will win the 2026 World Cup?", "market_slug": "world-cup-2026"}
	]}`
	if err := os.WriteFile(raw, []byte(snapshot), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Defaults()
	cfg.Mode = ModeNormalize
	cfg.Source.Path = raw
	cfg.Output.Dir = filepath.Join(dir, "out")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}

	a := New(&cfg, testLogger())
	defer a.Close()
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, cfg.Output.SimpleFile))
	if err != nil {
		t.Fatalf("read simple batch: %v", err)
	}
	var batch domain.CompactBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if batch.TotalMarkets != 2 || batch.Markets[0].ID != "0xeth" || batch.Markets[1].ID != "world-cup-2026" {
		t.Errorf("batch = %d markets, ids %q/%q", batch.TotalMarkets, batch.Markets[0].ID, batch.Markets[1].ID)
	}
	if batch.OnlyOpenMarkets == nil || !*batch.OnlyOpenMarkets {
		t.Error("only_open_markets not carried through")
	}

	var rich domain.RichBatch
	data, err = os.ReadFile(filepath.Join(cfg.Output.Dir, cfg.Output.RichFile))
	if err != nil {
		t.Fatalf("read rich batch: %v", err)
	}
	if err := json.Unmarshal(data, &rich); err != nil {
		t.Fatalf("decode rich: %v", err)
	}
	if rich.NormalizationType != domain.VariantRich || rich.Markets[1].Category != "sports" {
		t.Errorf("rich batch type %q, category %q", rich.NormalizationType, rich.Markets[1].Category)
	}
}

func TestNormalizeModeMissingSnapshot(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	cfg.Source.Path = filepath.Join(t.TempDir(), "absent.json")
	a := New(&cfg, testLogger())
	defer a.Close()
	if err := a.Run(context.Background()); err == nil {
		t.Fatal("expected error for a missing snapshot")
	}
}

func TestSinksRequireBackends(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sink string
	}{
		{config.SinkS3},
		{config.SinkPostgres},
		{config.SinkRedis},
	}
	for _, tt := range tests {
		t.Run(tt.sink, func(t *testing.T) {
			t.Parallel()
			cfg := config.Defaults()
			cfg.Output.Sinks = []string{config.SinkFile, tt.sink}
			a := New(&cfg, testLogger())
			if _, err := a.sinks(&Dependencies{}); err == nil {
				t.Errorf("%s sink built without its backend", tt.sink)
			}
		})
	}
}

func TestSourceSelection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind    string
		api     string
		want    string
		wantErr bool
	}{
		{kind: config.SourceFile, want: "file:data/current_markets.json"},
		{kind: config.SourceAPI, api: "clob", want: "api:clob"},
		{kind: config.SourceAPI, api: "gamma", want: "api:gamma:open"},
		{kind: config.SourceS3, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.kind+tt.api, func(t *testing.T) {
			t.Parallel()
			cfg := config.Defaults()
			cfg.Source.Kind = tt.kind
			if tt.api != "" {
				cfg.Polymarket.API = tt.api
			}
			a := New(&cfg, testLogger())
			src, err := a.source(&Dependencies{})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if src.Name() != tt.want {
				t.Errorf("source = %q, want %q", src.Name(), tt.want)
			}
		})
	}
}
