package middleware

import (
	"net/http"

	"github.com/keithn-tech/slack-gpt5-bot/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}
