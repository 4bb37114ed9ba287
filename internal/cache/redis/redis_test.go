package redis

import (
	"strings"
	"testing"
	"time"
)

func TestKeySchema(t *testing.T) {
	t.Parallel()

	tests := []struct {
		got, want string
	}{
		{marketKey("e1877d40799fac8d"), "market:e1877d40799fac8d"},
		{lockKey("marketnorm:run"), "lock:marketnorm:run"},
		{rateLimitKey("polymarket:markets"), "ratelimit:polymarket:markets"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("key = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestSlidingWindowScriptEmbedded(t *testing.T) {
	t.Parallel()

	for _, want := range []string{"ZREMRANGEBYSCORE", "ZCARD", "ZADD", "WITHSCORES"} {
		if !strings.Contains(slidingWindowLua, want) {
			t.Errorf("sliding window script missing %s", want)
		}
	}
}

func TestWaitBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want time.Duration
	}{
		{0, minWaitBackoff},
		{250 * time.Millisecond, 250 * time.Millisecond},
		{time.Minute, maxWaitBackoff},
	}
	for _, tt := range tests {
		if got := waitBackoff(tt.in); got != tt.want {
			t.Errorf("waitBackoff(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHasPattern(t *testing.T) {
	t.Parallel()

	if hasPattern("normalize:completed") {
		t.Error("plain channel reported as pattern")
	}
	if !hasPattern("normalize:*") {
		t.Error("glob channel not reported as pattern")
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     ClientConfig
		addr    string
		db      int
		pass    string
		tls     bool
		wantErr bool
	}{
		{name: "host port", cfg: ClientConfig{Addr: "localhost:6379", DB: 2, PoolSize: 5}, addr: "localhost:6379", db: 2},
		{name: "url", cfg: ClientConfig{Addr: "redis://:secret@cache.internal:6380/3"}, addr: "cache.internal:6380", db: 3, pass: "secret"},
		{name: "tls url", cfg: ClientConfig{Addr: "rediss://cache.internal:6380"}, addr: "cache.internal:6380", tls: true},
		{name: "overrides url", cfg: ClientConfig{Addr: "redis://:old@h:1/1", Password: "new", DB: 4}, addr: "h:1", db: 4, pass: "new"},
		{name: "tls flag", cfg: ClientConfig{Addr: "h:1", TLSEnabled: true}, addr: "h:1", tls: true},
		{name: "bad url", cfg: ClientConfig{Addr: "http://h:1"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts, err := options(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if opts.Addr != tt.addr || opts.DB != tt.db || opts.Password != tt.pass || (opts.TLSConfig != nil) != tt.tls {
				t.Errorf("options = addr %q db %d pass %q tls %v", opts.Addr, opts.DB, opts.Password, opts.TLSConfig != nil)
			}
		})
	}
}

func TestStreamPayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values map[string]any
		want   string
		ok     bool
	}{
		{"string", map[string]any{"payload": `{"run_id":"r"}`}, `{"run_id":"r"}`, true},
		{"bytes", map[string]any{"payload": []byte("x")}, "x", true},
		{"missing", map[string]any{"other": "x"}, "", false},
		{"wrong type", map[string]any{"payload": 7}, "", false},
	}
	for _, tt := range tests {
		got, ok := streamPayload(tt.values)
		if ok != tt.ok || string(got) != tt.want {
			t.Errorf("%s: streamPayload = %q, %v", tt.name, got, ok)
		}
	}
}
