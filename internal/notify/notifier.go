// Package notify delivers operator alerts about normalization runs to chat
// channels. Alerts are filtered by event type so operators receive only the
// ones they subscribed to.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Sender delivers one alert to a chat channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel in logs and errors, e.g. "telegram".
	Name() string
}

// Notifier fans alerts out to its senders. Notify drops event types the
// operator did not subscribe to; NotifyAll always delivers.
type Notifier struct {
	senders []Sender
	events  map[string]struct{}
	prefix  string
	logger  *slog.Logger
}

// NewNotifier creates a Notifier for senders. An empty events list
// subscribes to every event. Titles are prefixed with "[marketnorm]".
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	subscribed := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			subscribed[e] = struct{}{}
		}
	}
	return &Notifier{
		senders: senders,
		events:  subscribed,
		prefix:  "[marketnorm] ",
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether any sender is registered.
func (n *Notifier) Enabled() bool { return len(n.senders) > 0 }

func (n *Notifier) subscribed(event string) bool {
	if len(n.events) == 0 {
		return true
	}
	_, ok := n.events[event]
	return ok
}

// Notify delivers the alert when event is subscribed.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if !n.subscribed(event) {
		n.logger.DebugContext(ctx, "event not subscribed", slog.String("event", event))
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// NotifyAll delivers the alert regardless of event subscriptions.
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	return n.dispatch(ctx, title, message)
}

// dispatch sends to every sender concurrently. Failures are logged and
// joined; one failing sender never blocks the others.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	title = n.prefix + title

	errs := make([]error, len(n.senders))
	var wg sync.WaitGroup
	for i, s := range n.senders {
		wg.Go(func() {
			sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
			defer cancel()
			if err := s.Send(sendCtx, title, message); err != nil {
				n.logger.ErrorContext(ctx, "sender failed",
					slog.String("sender", s.Name()),
					slog.String("error", err.Error()),
				)
				errs[i] = fmt.Errorf("%s: %w", s.Name(), err)
				return
			}
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("title", title),
			)
		})
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}
