package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/dicebot/internal/dicebot"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthStatus documents one entry of the /healthz body.
type HealthStatus struct {
	Status string `json:"status" enum:"ok,error"`
}

// HealthResponse maps dependency name to its status.
type HealthResponse map[string]HealthStatus

type webhookRequest struct {
	Secret string `path:"secret"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "DiceBot API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Read-only API and live results feed for the dice challenge bot.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the status of Redis and the Telegram API.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/leaderboard
	getLeaderboard, _ := r.NewOperationContext(http.MethodGet, "/api/leaderboard")
	getLeaderboard.SetSummary("Leaderboard")
	getLeaderboard.SetDescription("Top players by cumulative winning score, highest first.")
	getLeaderboard.AddReqStructure(LeaderboardRequest{})
	getLeaderboard.AddRespStructure([]LeaderboardEntry{}, openapi.WithHTTPStatus(http.StatusOK))
	getLeaderboard.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	getLeaderboard.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getLeaderboard)

	// GET /api/stats
	getStats, _ := r.NewOperationContext(http.MethodGet, "/api/stats")
	getStats.SetSummary("Bot statistics")
	getStats.SetDescription("Tracked groups and usage counters.")
	getStats.AddRespStructure(StatsResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getStats.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getStats)

	// GET /api/results/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/results/events")
	getEvents.SetSummary("Results SSE stream")
	getEvents.SetDescription("Server-Sent Events stream with one `result` event per resolved game.")
	getEvents.AddRespStructure(dicebot.Result{}, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /ws/results
	getWS, _ := r.NewOperationContext(http.MethodGet, "/ws/results")
	getWS.SetSummary("Results WebSocket feed")
	getWS.SetDescription("Upgrades to a WebSocket connection that receives every resolved game as JSON.")
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	// POST /telegram/{secret}
	postWebhook, _ := r.NewOperationContext(http.MethodPost, "/telegram/{secret}")
	postWebhook.SetSummary("Telegram webhook")
	postWebhook.SetDescription("Receives Telegram updates in webhook mode. Unknown secrets get 404.")
	postWebhook.AddReqStructure(webhookRequest{})
	postWebhook.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	postWebhook.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postWebhook)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
