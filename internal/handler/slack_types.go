package handler

// Slack Events API payloads.

const (
	EventTypeURLVerification = "url_verification"
	EventTypeEventCallback   = "event_callback"
	EventTypeAppMention      = "app_mention"
)

type SlackEventWrapper struct {
	Token     string      `json:"token,omitempty"`
	Challenge string      `json:"challenge,omitempty"`
	Type      string      `json:"type"`
	TeamID    string      `json:"team_id,omitempty"`
	EventID   string      `json:"event_id,omitempty"`
	Event     *SlackEvent `json:"event,omitempty"`
}

type SlackEvent struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	User     string `json:"user"`
	Channel  string `json:"channel"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts,omitempty"`
	BotID    string `json:"bot_id,omitempty"`
	SubType  string `json:"subtype,omitempty"`
}

// ReplyThreadTS returns the thread to answer in: the parent thread when
// the mention came from inside one, otherwise the mention itself.
func (e *SlackEvent) ReplyThreadTS() string {
	if e.ThreadTS != "" {
		return e.ThreadTS
	}
	return e.TS
}
