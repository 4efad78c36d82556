package server

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/dicebot/internal/dicebot"
	"github.com/playperu/dicebot/internal/handler/health"
)

// Store is the read side of the ranked store.
type Store interface {
	Leaderboard(ctx context.Context, n int) ([]dicebot.Entry, error)
	Stats(ctx context.Context) (dicebot.Stats, error)
}

// UpdateSubmitter queues a Telegram update for handling.
type UpdateSubmitter interface {
	Submit(ctx context.Context, upd tgbotapi.Update)
}

type Deps struct {
	Store  Store
	Broker *Broker
	Checks map[string]health.Checker

	// Webhook is nil in polling mode, which leaves /telegram unrouted.
	Webhook       UpdateSubmitter
	WebhookSecret string
}

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("DiceBot API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, deps.Checks).Routes())

	if deps.Webhook != nil {
		r.Post("/telegram/{secret}", handleWebhook(logger, deps.WebhookSecret, deps.Webhook))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/leaderboard", handleLeaderboard(logger, deps.Store))
		r.Get("/stats", handleStats(logger, deps.Store))
		r.Get("/results/events", handleEvents(deps.Broker))
	})
	r.Get("/ws/results", handleResultsWS(logger, deps.Broker))
}
