package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// DefaultTelegramAPI is the Telegram Bot API root.
const DefaultTelegramAPI = "https://api.telegram.org"

// telegramEscaper escapes the legacy Markdown control characters so event
// names such as normalize_failures render literally.
var telegramEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "[", `\[`, "`", "\\`")

// TelegramSender delivers notifications via the Telegram Bot API.
type TelegramSender struct {
	apiURL string
	token  string
	chatID string
	client *http.Client
}

// NewTelegramSender creates a TelegramSender for the given bot token and chat
// ID. apiURL defaults to DefaultTelegramAPI when empty.
func NewTelegramSender(apiURL, token, chatID string) *TelegramSender {
	if apiURL == "" {
		apiURL = DefaultTelegramAPI
	}
	return &TelegramSender{
		apiURL: strings.TrimRight(apiURL, "/"),
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: sendTimeout},
	}
}

// Send posts a message to the configured chat using sendMessage, with the
// title in bold.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.token)
	payload := map[string]string{
		"chat_id":    t.chatID,
		"text":       fmt.Sprintf("*%s*\n%s", telegramEscaper.Replace(title), telegramEscaper.Replace(message)),
		"parse_mode": "Markdown",
	}
	if err := postJSON(ctx, t.client, url, payload); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}
