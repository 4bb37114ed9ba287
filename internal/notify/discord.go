package notify

import (
	"context"
	"fmt"
	"net/http"
)

// discordContentLimit is the maximum message length Discord accepts.
const discordContentLimit = 2000

// DiscordSender delivers notifications via a Discord webhook.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a DiscordSender for the given webhook URL.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: sendTimeout},
	}
}

// Send posts a message to the webhook with the title in bold. Content longer
// than Discord's limit is truncated.
func (d *DiscordSender) Send(ctx context.Context, title, message string) error {
	content := []rune(fmt.Sprintf("**%s**\n%s", title, message))
	if len(content) > discordContentLimit {
		content = append(content[:discordContentLimit-1], '…')
	}
	if err := postJSON(ctx, d.client, d.webhookURL, map[string]string{"content": string(content)}); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}
