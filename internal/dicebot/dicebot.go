// Package dicebot defines the core domain types shared by the bot, the store
// and the HTTP API. It imports nothing outside the standard library.
package dicebot

import "time"

// Result is the outcome of one resolved dice contest.
type Result struct {
	Challenger      string    `json:"challenger"`
	Acceptor        string    `json:"acceptor"`
	ChallengerScore int       `json:"challengerScore"`
	AcceptorScore   int       `json:"acceptorScore"`
	Winner          string    `json:"winner"`
	WinnerScore     int       `json:"winnerScore"`
	ResolvedAt      time.Time `json:"resolvedAt"`
}

// Entry is one row of the leaderboard.
type Entry struct {
	Player string
	Score  int64
}

// Counter names a field of the bot usage counters hash.
type Counter string

const (
	CounterTotalGames  Counter = "total_games"
	CounterGamesPlayed Counter = "games_played"
	// CounterUsers is bumped once per leaderboard update, so it counts
	// resolutions rather than distinct players.
	CounterUsers Counter = "users"
)

// Stats is the bot usage report. Counters never set read as zero.
type Stats struct {
	Groups      int64 `json:"groups"`
	TotalGames  int64 `json:"total_games"`
	GamesPlayed int64 `json:"games_played"`
	Users       int64 `json:"users"`
}

// Usage describes a byte-sized resource such as memory or a filesystem.
type Usage struct {
	Total       uint64
	Used        uint64
	Free        uint64
	UsedPercent float64
}

type HostStatus struct {
	CPUPercent float64
	Memory     Usage
	Disk       Usage
}

// Challenge is a store-backed challenge record, used only when challenges
// are single-use.
type Challenge struct {
	ID         string
	Challenger string
	CreatedAt  time.Time
}
