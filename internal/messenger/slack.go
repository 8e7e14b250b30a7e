// Package messenger posts replies back to the originating chat thread.
package messenger

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"

	"github.com/keithn-tech/slack-gpt5-bot/internal/config"
)

type SlackMessenger struct {
	client *slack.Client
}

func NewSlackMessenger(botToken string) *SlackMessenger {
	httpClient := &http.Client{Timeout: config.SlackPostTimeout}
	return &SlackMessenger{
		client: slack.New(botToken, slack.OptionHTTPClient(httpClient)),
	}
}

// PostMessage posts text into the given channel, threaded under
// threadTS when it is non-empty.
func (m *SlackMessenger) PostMessage(ctx context.Context, channel, threadTS, text string) error {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}

	_, _, err := m.client.PostMessageContext(ctx, channel, opts...)
	if err != nil {
		return fmt.Errorf("post message to %s: %w", channel, err)
	}

	log.Debug().Str("channel", channel).Str("threadTs", threadTS).Msg("reply posted")
	return nil
}
