package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/playperu/dicebot/internal/store"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

type LeaderboardRequest struct {
	Limit int `query:"limit" minimum:"1" maximum:"100" default:"10" description:"Number of rows to return."`
}

type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	Player string `json:"player"`
	Score  int64  `json:"score"`
}

type StatsResponse struct {
	Groups      int64 `json:"groups"`
	TotalGames  int64 `json:"total_games"`
	GamesPlayed int64 `json:"games_played"`
	Users       int64 `json:"users"`
}

func parseLimit(raw string) (int, bool) {
	if raw == "" {
		return defaultLeaderboardLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxLeaderboardLimit {
		return 0, false
	}
	return n, true
}

func handleLeaderboard(logger *slog.Logger, st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := parseLimit(r.URL.Query().Get("limit"))
		if !ok {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}

		entries, err := st.Leaderboard(r.Context(), limit)
		if err != nil {
			writeStoreError(w, logger, "reading leaderboard", err)
			return
		}

		resp := make([]LeaderboardEntry, 0, len(entries))
		for i, e := range entries {
			resp = append(resp, LeaderboardEntry{Rank: i + 1, Player: e.Player, Score: e.Score})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleStats(logger *slog.Logger, st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := st.Stats(r.Context())
		if err != nil {
			writeStoreError(w, logger, "reading stats", err)
			return
		}
		writeJSON(w, http.StatusOK, StatsResponse(s))
	}
}

func writeStoreError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	logger.Error(op, "error", err)
	if errors.Is(err, store.ErrUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}
