package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// client is one WebSocket connection. Subscriptions start at the run
// completion channel; a trailing "*" matches a channel prefix.
type client struct {
	hub    *Hub
	conn   *websocket.Conn
	remote string
	send   chan []byte

	mu     sync.RWMutex
	subs   map[string]struct{}
	closed bool
}

func newClient(h *Hub, conn *websocket.Conn, remote string) *client {
	return &client{
		hub:    h,
		conn:   conn,
		remote: remote,
		send:   make(chan []byte, sendBufferSize),
		subs:   map[string]struct{}{domain.ChannelRunCompleted: {}},
	}
}

// trySend queues msg without blocking. It reports false when the queue is
// full or the client is closed.
func (c *client) trySend(msg []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *client) queue(typ, channel string, payload any) {
	msg, err := encodeFrame(typ, channel, payload)
	if err != nil {
		return
	}
	c.trySend(msg)
}

func (c *client) sendStatus() {
	c.queue(frameStatus, "", statusPayload{
		Mode:          c.hub.mode,
		UptimeSeconds: max(int64(time.Since(c.hub.startedAt).Seconds()), 0),
		BusConnected:  c.hub.bus != nil,
		Clients:       c.hub.ClientCount(),
	})
}

// replay sends the latest run events from the durable stream, oldest first.
func (c *client) replay(ctx context.Context) {
	if c.hub.bus == nil {
		return
	}
	msgs, err := c.hub.bus.StreamTail(ctx, domain.StreamRuns, replayCount)
	if err != nil {
		c.hub.logger.WarnContext(ctx, "ws: run replay failed", slog.String("error", err.Error()))
		return
	}
	for _, m := range msgs {
		c.queue(frameReplay, domain.StreamRuns, json.RawMessage(m.Payload))
	}
}

func (c *client) subscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.subs[channel]; ok {
		return true
	}
	for sub := range c.subs {
		if prefix, ok := strings.CutSuffix(sub, "*"); ok && strings.HasPrefix(channel, prefix) {
			return true
		}
	}
	return false
}

// apply changes the subscription set and returns the resulting channels,
// sorted.
func (c *client) apply(req request) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch req.Action {
	case "subscribe":
		for _, ch := range req.Channels {
			if ch = strings.TrimSpace(ch); ch != "" {
				c.subs[ch] = struct{}{}
			}
		}
	case "unsubscribe":
		for _, ch := range req.Channels {
			delete(c.subs, strings.TrimSpace(ch))
		}
	default:
		return nil, false
	}
	channels := slices.Sorted(maps.Keys(c.subs))
	if channels == nil {
		channels = []string{}
	}
	return channels, true
}

func (c *client) handle(message []byte) {
	var req request
	if err := json.Unmarshal(message, &req); err != nil {
		c.queue(frameError, "", errorPayload{Error: "invalid JSON"})
		return
	}
	channels, ok := c.apply(req)
	if !ok {
		c.queue(frameError, "", errorPayload{Error: fmt.Sprintf("unknown action %q", req.Action)})
		return
	}
	c.queue(frameSubscribed, "", subscriptionsPayload{Channels: channels})
}

func (c *client) readLoop() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("ws: unexpected close", slog.String("error", err.Error()))
			}
			return
		}
		c.handle(message)
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
