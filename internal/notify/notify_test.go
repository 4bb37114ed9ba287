package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordSender struct {
	name   string
	err    error
	titles []string
}

func (s *recordSender) Send(_ context.Context, title, _ string) error {
	s.titles = append(s.titles, title)
	return s.err
}

func (s *recordSender) Name() string { return s.name }

func TestNotifierFiltersEvents(t *testing.T) {
	t.Parallel()

	s := &recordSender{name: "rec"}
	n := NewNotifier([]Sender{s}, []string{" run_failed "}, discardLogger())

	if err := n.Notify(context.Background(), "normalize_failures", "skipped", ""); err != nil {
		t.Fatal(err)
	}
	if err := n.Notify(context.Background(), "run_failed", "simple run failed", ""); err != nil {
		t.Fatal(err)
	}
	if err := n.NotifyAll(context.Background(), "shutdown", ""); err != nil {
		t.Fatal(err)
	}
	want := []string{"[marketnorm] simple run failed", "[marketnorm] shutdown"}
	if strings.Join(s.titles, "|") != strings.Join(want, "|") {
		t.Errorf("titles = %q, want %q", s.titles, want)
	}
}

func TestNotifierJoinsSenderErrors(t *testing.T) {
	t.Parallel()

	errDown := errors.New("down")
	bad := &recordSender{name: "bad", err: errDown}
	good := &recordSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discardLogger())

	err := n.Notify(context.Background(), "anything", "t", "m")
	if !errors.Is(err, errDown) {
		t.Fatalf("err = %v, want wrapped sender error", err)
	}
	if len(good.titles) != 1 {
		t.Error("healthy sender skipped after failure")
	}
	if NewNotifier(nil, nil, discardLogger()).Enabled() {
		t.Error("notifier without senders reports enabled")
	}
}

func TestTelegramSender(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		got  map[string]string
		path string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelegramSender(srv.URL+"/", "tok", "42")
	if err := s.Send(context.Background(), "normalize_failures", "2 records skipped"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if path != "/bottok/sendMessage" {
		t.Errorf("path = %q", path)
	}
	if got["chat_id"] != "42" || got["text"] != "*normalize\\_failures*\n2 records skipped" {
		t.Errorf("payload = %q", got)
	}
}

func TestDiscordSender(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		content string
		status  = http.StatusNoContent
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		defer mu.Unlock()
		content = body["content"]
		w.WriteHeader(status)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	if err := s.Send(context.Background(), "run failed", strings.Repeat("x", 3000)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	mu.Lock()
	if n := utf8.RuneCountInString(content); n != discordContentLimit {
		t.Errorf("content length = %d, want %d", n, discordContentLimit)
	}
	if !strings.HasPrefix(content, "**run failed**\n") {
		t.Errorf("content = %.40q", content)
	}

	status = http.StatusBadRequest
	mu.Unlock()
	if err := s.Send(context.Background(), "t", "m"); err == nil || !strings.Contains(err.Error(), "unexpected status 400") {
		t.Errorf("err = %v", err)
	}
}

func TestSendErrorsOmitSecrets(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	senders := []Sender{
		NewTelegramSender(base, "123:secret-token", "42"),
		NewDiscordSender(base + "/api/webhooks/1/secret-token"),
	}
	for _, s := range senders {
		err := s.Send(context.Background(), "t", "m")
		if err == nil {
			t.Fatalf("%s: expected error from closed server", s.Name())
		}
		if strings.Contains(err.Error(), "secret-token") {
			t.Errorf("%s: error leaks secret: %v", s.Name(), err)
		}
	}
}
