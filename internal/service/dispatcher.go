package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/keithn-tech/slack-gpt5-bot/internal/assistant"
	apperrors "github.com/keithn-tech/slack-gpt5-bot/internal/errors"
	"github.com/keithn-tech/slack-gpt5-bot/internal/store"
)

// User-facing fallback messages. A timeout is not a hard failure: the
// remote run keeps going, so the user is told to try again rather than
// shown an error.
const (
	replyTimeout = "I'm still working on that one. Give me a moment and ask again."
	replyFailure = "I'm sorry, there was an error processing your request."
)

type AssistantClient interface {
	CreateThread(ctx context.Context) (string, error)
	AddMessage(ctx context.Context, threadID, role, text string) error
	RunAndWait(ctx context.Context, threadID string) (string, error)
}

type Messenger interface {
	PostMessage(ctx context.Context, channel, threadTS, text string) error
}

// MentionEvent is one parsed bot mention.
type MentionEvent struct {
	UserID   string
	Channel  string
	ThreadTS string
	Text     string
}

// Dispatcher orchestrates one mention turn: resolve the user's remote
// thread, append the utterance, run the assistant, post the reply.
type Dispatcher struct {
	store     *store.Store
	assistant AssistantClient
	messenger Messenger
	botUserID string
}

func NewDispatcher(store *store.Store, assistantClient AssistantClient, messenger Messenger, botUserID string) *Dispatcher {
	return &Dispatcher{
		store:     store,
		assistant: assistantClient,
		messenger: messenger,
		botUserID: botUserID,
	}
}

// StripMention removes the bot's own mention token from the utterance.
// Without a known bot user id it falls back to dropping the leading
// mention token.
func StripMention(text, botUserID string) string {
	if botUserID != "" {
		return strings.TrimSpace(strings.ReplaceAll(text, "<@"+botUserID+">", ""))
	}
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "<@") {
		if i := strings.Index(trimmed, ">"); i >= 0 {
			return strings.TrimSpace(trimmed[i+1:])
		}
	}
	return trimmed
}

// HandleMention runs the straight-line turn. Every failure past the
// boundary resolves to a best-effort chat message, never a crash.
func (d *Dispatcher) HandleMention(ctx context.Context, ev MentionEvent) {
	text := StripMention(ev.Text, d.botUserID)
	if text == "" {
		log.Debug().Str("userId", ev.UserID).Msg("mention with empty text, ignoring")
		return
	}

	logger := log.With().
		Str("userId", ev.UserID).
		Str("channel", ev.Channel).
		Logger()

	threadID, err := d.store.GetOrCreate(ctx, ev.UserID, d.assistant.CreateThread)
	if err != nil {
		logger.Error().Err(err).Msg("failed to resolve conversation thread")
		d.replyError(ctx, ev, err)
		return
	}

	if err := d.assistant.AddMessage(ctx, threadID, assistant.RoleUser, text); err != nil {
		logger.Error().Err(err).Str("threadId", threadID).Msg("failed to append user message")
		d.replyError(ctx, ev, err)
		return
	}

	reply, err := d.assistant.RunAndWait(ctx, threadID)
	if err != nil {
		logger.Error().Err(err).Str("threadId", threadID).Msg("assistant run did not produce a reply")
		d.replyError(ctx, ev, err)
		return
	}

	if err := d.messenger.PostMessage(ctx, ev.Channel, ev.ThreadTS, reply); err != nil {
		// Fire and forget: outbound failures are logged, not retried.
		logger.Error().Err(err).Msg("failed to post reply")
	}
}

func (d *Dispatcher) replyError(ctx context.Context, ev MentionEvent, cause error) {
	text := replyFailure
	if apperrors.GetCode(cause) == apperrors.ErrCodeRunTimeout {
		text = replyTimeout
	}

	if err := d.messenger.PostMessage(ctx, ev.Channel, ev.ThreadTS, text); err != nil {
		log.Error().Err(err).Str("channel", ev.Channel).Msg("failed to post error reply")
	}
}
