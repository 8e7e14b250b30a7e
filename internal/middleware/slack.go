package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/keithn-tech/slack-gpt5-bot/internal/audit"
	"github.com/keithn-tech/slack-gpt5-bot/internal/util"
)

const (
	SignatureHeader = "X-Slack-Signature"
	TimestampHeader = "X-Slack-Request-Timestamp"
)

// SlackSignatureMiddleware authenticates inbound webhook requests by
// recomputing the v0 HMAC over "{version}:{timestamp}:{body}" and
// rejecting stale timestamps (replay protection).
type SlackSignatureMiddleware struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

func NewSlackSignatureMiddleware(secret string, tolerance time.Duration) *SlackSignatureMiddleware {
	return &SlackSignatureMiddleware{
		secret:    secret,
		tolerance: tolerance,
		now:       time.Now,
	}
}

func (m *SlackSignatureMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.secret == "" {
			log.Warn().Msg("slack signature verification bypassed: SLACK_SIGNING_SECRET is not configured")
			next.ServeHTTP(w, r)
			return
		}

		signature := r.Header.Get(SignatureHeader)
		timestamp := r.Header.Get(TimestampHeader)
		if signature == "" || timestamp == "" {
			log.Warn().Msg("slack signature middleware: missing signature or timestamp header")
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAuthFailure,
				Details: map[string]interface{}{"reason": "missing_header"},
			})
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing signature",
			})
			return
		}

		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			log.Warn().Str("timestamp", timestamp).Msg("slack signature middleware: malformed timestamp")
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAuthFailure,
				Details: map[string]interface{}{"reason": "bad_timestamp"},
			})
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid timestamp",
			})
			return
		}

		if skew := m.now().Unix() - ts; skew > int64(m.tolerance.Seconds()) || -skew > int64(m.tolerance.Seconds()) {
			log.Warn().Int64("skewSeconds", skew).Msg("slack signature middleware: timestamp outside tolerance")
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventReplayRejected,
				Details: map[string]interface{}{"skew_seconds": skew},
			})
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Stale request",
			})
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error().Err(err).Msg("slack signature middleware: failed to read body")
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "Failed to read request body",
			})
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		computed := util.SlackSignature(m.secret, timestamp, string(body))
		if !util.ConstantTimeEqual(computed, signature) {
			log.Warn().Msg("slack signature middleware: invalid signature")
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAuthFailure,
				Details: map[string]interface{}{"reason": "signature_mismatch"},
			})
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid signature",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
