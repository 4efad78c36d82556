package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleWebhook receives Telegram updates. The path secret is the only
// authentication; a mismatch looks like an unknown route.
func handleWebhook(logger *slog.Logger, secret string, sub UpdateSubmitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := chi.URLParam(r, "secret")
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			http.NotFound(w, r)
			return
		}

		var upd tgbotapi.Update
		if err := readJSON(r, &upd); err != nil {
			logger.Warn("decoding webhook update", "error", err)
			writeError(w, http.StatusBadRequest, "invalid update")
			return
		}

		sub.Submit(r.Context(), upd)
		w.WriteHeader(http.StatusOK)
	}
}
