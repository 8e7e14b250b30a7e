package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/keithn-tech/slack-gpt5-bot/internal/dedupe"
	apperrors "github.com/keithn-tech/slack-gpt5-bot/internal/errors"
	"github.com/keithn-tech/slack-gpt5-bot/internal/httputil"
	"github.com/keithn-tech/slack-gpt5-bot/internal/service"
)

type MentionDispatcher interface {
	HandleMention(ctx context.Context, ev service.MentionEvent)
}

// EventsHandler receives Slack Events API callbacks. Mentions are acked
// immediately and processed in the background; Slack redelivers events
// it considers un-acked, so the dedupe cache drops retries.
type EventsHandler struct {
	dispatcher      MentionDispatcher
	seen            *dedupe.Cache
	dispatchTimeout time.Duration

	// dispatchFn indirection lets tests run dispatch synchronously.
	dispatchFn func(ev service.MentionEvent)
}

func NewEventsHandler(dispatcher MentionDispatcher, seen *dedupe.Cache, dispatchTimeout time.Duration) *EventsHandler {
	h := &EventsHandler{
		dispatcher:      dispatcher,
		seen:            seen,
		dispatchTimeout: dispatchTimeout,
	}
	h.dispatchFn = h.dispatchAsync
	return h
}

func (h *EventsHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var req SlackEventWrapper
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("invalid slack webhook request")
		httputil.WriteError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	switch req.Type {
	case EventTypeURLVerification:
		writeJSON(w, http.StatusOK, map[string]string{"challenge": req.Challenge})
		return

	case EventTypeEventCallback:
		h.handleEventCallback(&req)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *EventsHandler) handleEventCallback(req *SlackEventWrapper) {
	ev := req.Event
	if ev == nil || ev.Type != EventTypeAppMention {
		return
	}

	// Never answer other bots (or ourselves).
	if ev.BotID != "" {
		return
	}

	if req.EventID != "" && h.seen.CheckAndMark(req.EventID) {
		log.Debug().Str("eventId", req.EventID).Msg("duplicate event delivery, ignoring")
		return
	}

	log.Info().
		Str("eventId", req.EventID).
		Str("userId", ev.User).
		Str("channel", ev.Channel).
		Str("text", truncate(ev.Text, 50)).
		Msg("received app mention")

	h.dispatchFn(service.MentionEvent{
		UserID:   ev.User,
		Channel:  ev.Channel,
		ThreadTS: ev.ReplyThreadTS(),
		Text:     ev.Text,
	})
}

// dispatchAsync processes the mention after the webhook has been acked.
// The context is detached from the request: Slack already got its 200.
func (h *EventsHandler) dispatchAsync(ev service.MentionEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.dispatchTimeout)
		defer cancel()
		h.dispatcher.HandleMention(ctx, ev)
	}()
}
