package ws

import "encoding/json"

// Frame types written to clients.
const (
	frameStatus     = "service_status"
	frameReplay     = "run_replay"
	frameEvent      = "run_event"
	frameSubscribed = "subscriptions"
	frameError      = "error"
)

// frame is the JSON envelope of every server message.
type frame struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// request is a client message changing its subscriptions:
//
//	{"action": "subscribe", "channels": ["normalize:*"]}
type request struct {
	Action   string   `json:"action"`
	Channels []string `json:"channels"`
}

type statusPayload struct {
	Mode          string `json:"mode"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	BusConnected  bool   `json:"bus_connected"`
	Clients       int    `json:"clients"`
}

type subscriptionsPayload struct {
	Channels []string `json:"channels"`
}

type errorPayload struct {
	Error string `json:"error"`
}

func encodeFrame(typ, channel string, payload any) ([]byte, error) {
	raw, ok := payload.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(frame{Type: typ, Channel: channel, Payload: raw})
}
