// Package ws streams run events to WebSocket clients. Events come from the
// signal bus when one is wired, or from Publish inside the process.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

// replayCount is how many recent run events a new client receives.
const replayCount = 20

// Config captures the metadata reported in the status frame and the origins
// allowed to connect.
type Config struct {
	Mode      string
	StartedAt time.Time
	// AllowedOrigins lists accepted Origin headers. Empty or "*" accepts any.
	AllowedOrigins []string
}

// Hub tracks connected clients and fans run events out to them.
type Hub struct {
	bus       domain.SignalBus
	logger    *slog.Logger
	mode      string
	startedAt time.Time
	upgrader  websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a hub. bus may be nil.
func NewHub(bus domain.SignalBus, logger *slog.Logger, cfg Config) *Hub {
	h := &Hub{
		bus:       bus,
		logger:    logger.With(slog.String("component", "ws_hub")),
		mode:      strings.ToLower(strings.TrimSpace(cfg.Mode)),
		startedAt: cfg.StartedAt,
		clients:   make(map[*client]struct{}),
	}
	if h.mode == "" {
		h.mode = "unknown"
	}
	if h.startedAt.IsZero() {
		h.startedAt = time.Now().UTC()
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// Run relays the bus's run channel to clients until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	if h.bus != nil {
		go h.relay(ctx, domain.ChannelRunCompleted)
	}
	<-ctx.Done()

	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
	h.mu.Unlock()
	return ctx.Err()
}

func (h *Hub) relay(ctx context.Context, channel string) {
	msgs, err := h.bus.Subscribe(ctx, channel)
	if err != nil {
		h.logger.ErrorContext(ctx, "ws: subscribe failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}
	h.logger.InfoContext(ctx, "ws: relaying channel", slog.String("channel", channel))

	for data := range msgs {
		h.broadcast(channel, data)
	}
	if ctx.Err() == nil {
		h.logger.WarnContext(ctx, "ws: bus subscription closed", slog.String("channel", channel))
	}
}

// Publish broadcasts a run event raised inside the process.
func (h *Hub) Publish(event domain.RunEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.broadcast(domain.ChannelRunCompleted, data)
}

// broadcast never blocks: a client whose queue is full misses the frame.
func (h *Hub) broadcast(channel string, data []byte) {
	msg, err := encodeFrame(frameEvent, channel, json.RawMessage(data))
	if err != nil {
		h.logger.Warn("ws: dropping unencodable event", slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.subscribed(channel) && !c.trySend(msg) {
			h.logger.Warn("ws: client queue full, event dropped", slog.String("remote", c.remote))
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWS upgrades the request and serves the client until it disconnects.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := newClient(h, conn, r.RemoteAddr)
	if !h.add(c) {
		_ = conn.Close()
		return
	}

	c.sendStatus()
	c.replay(r.Context())

	go c.writeLoop()
	go c.readLoop()
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.logger.Info("ws: client connected", slog.Int("clients", len(h.clients)))
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.close()
	h.logger.Info("ws: client disconnected", slog.Int("clients", len(h.clients)))
}
