package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/dicebot/internal/dicebot"
)

var (
	// ErrUnavailable wraps every failure to reach or query Redis.
	ErrUnavailable = errors.New("store unavailable")
	ErrNotFound    = errors.New("not found")
)

// Key names.
const (
	KeyLeaderboard     = "leaderboard" // Sorted set: player -> cumulative winning score
	KeyStats           = "bot_stats"   // Hash: counter -> int
	KeyGroups          = "groups"      // Set: chat id
	KeyChallengePrefix = "challenge:"  // Hash: challenge:{id} -> challenger, created_at, consumed_by
)

// Redis is the ranked store client. Each method is a single atomic Redis
// operation unless noted otherwise; nothing spans a transaction.
type Redis struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

// IncrementScore adds delta to member's score in a sorted set, creating the
// member at delta if absent, and returns the new score.
func (s *Redis) IncrementScore(ctx context.Context, set, member string, delta float64) (float64, error) {
	score, err := s.rdb.ZIncrBy(ctx, set, delta, member).Result()
	if err != nil {
		return 0, unavailable("zincrby", err)
	}
	return score, nil
}

// RangeTop returns up to n members ordered by descending score. A missing set
// yields an empty slice.
func (s *Redis) RangeTop(ctx context.Context, set string, n int) ([]dicebot.Entry, error) {
	if n <= 0 {
		return []dicebot.Entry{}, nil
	}
	zs, err := s.rdb.ZRevRangeWithScores(ctx, set, 0, int64(n-1)).Result()
	if err != nil {
		return nil, unavailable("zrevrange", err)
	}
	entries := make([]dicebot.Entry, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		entries = append(entries, dicebot.Entry{Player: member, Score: int64(z.Score)})
	}
	return entries, nil
}

// IncrementField adds delta to a hash field, creating it at delta if absent.
func (s *Redis) IncrementField(ctx context.Context, hash, field string, delta int64) (int64, error) {
	v, err := s.rdb.HIncrBy(ctx, hash, field, delta).Result()
	if err != nil {
		return 0, unavailable("hincrby", err)
	}
	return v, nil
}

// ReadAllFields returns every field of a hash. A missing hash yields an empty map.
func (s *Redis) ReadAllFields(ctx context.Context, hash string) (map[string]string, error) {
	m, err := s.rdb.HGetAll(ctx, hash).Result()
	if err != nil {
		return nil, unavailable("hgetall", err)
	}
	return m, nil
}

func (s *Redis) AddToSet(ctx context.Context, set, member string) error {
	if err := s.rdb.SAdd(ctx, set, member).Err(); err != nil {
		return unavailable("sadd", err)
	}
	return nil
}

func (s *Redis) SetCardinality(ctx context.Context, set string) (int64, error) {
	n, err := s.rdb.SCard(ctx, set).Result()
	if err != nil {
		return 0, unavailable("scard", err)
	}
	return n, nil
}

// UpdateLeaderboard credits the winner with their score and bumps the users
// counter. The two writes are independent; a failure between them leaves the
// counter behind the leaderboard.
func (s *Redis) UpdateLeaderboard(ctx context.Context, winner string, score int) error {
	if _, err := s.IncrementScore(ctx, KeyLeaderboard, winner, float64(score)); err != nil {
		return err
	}
	return s.Incr(ctx, dicebot.CounterUsers)
}

func (s *Redis) Leaderboard(ctx context.Context, n int) ([]dicebot.Entry, error) {
	return s.RangeTop(ctx, KeyLeaderboard, n)
}

func (s *Redis) Incr(ctx context.Context, c dicebot.Counter) error {
	_, err := s.IncrementField(ctx, KeyStats, string(c), 1)
	return err
}

// Stats reads the counters hash and the tracked group count.
func (s *Redis) Stats(ctx context.Context) (dicebot.Stats, error) {
	fields, err := s.ReadAllFields(ctx, KeyStats)
	if err != nil {
		return dicebot.Stats{}, err
	}
	groups, err := s.SetCardinality(ctx, KeyGroups)
	if err != nil {
		return dicebot.Stats{}, err
	}
	return dicebot.Stats{
		Groups:      groups,
		TotalGames:  parseCounter(fields, dicebot.CounterTotalGames),
		GamesPlayed: parseCounter(fields, dicebot.CounterGamesPlayed),
		Users:       parseCounter(fields, dicebot.CounterUsers),
	}, nil
}

func parseCounter(fields map[string]string, c dicebot.Counter) int64 {
	v, _ := strconv.ParseInt(fields[string(c)], 10, 64)
	return v
}

func (s *Redis) TrackGroup(ctx context.Context, chatID int64) error {
	return s.AddToSet(ctx, KeyGroups, strconv.FormatInt(chatID, 10))
}

// Ping reports whether Redis answers.
func (s *Redis) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// SaveChallenge stores a challenge record that expires after ttl.
func (s *Redis) SaveChallenge(ctx context.Context, ch dicebot.Challenge, ttl time.Duration) error {
	key := KeyChallengePrefix + ch.ID
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"challenger", ch.Challenger,
			"created_at", ch.CreatedAt.Unix(),
		)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return unavailable("save challenge", err)
	}
	return nil
}

// Challenge loads a live challenge record. Expired or unknown ids return ErrNotFound.
func (s *Redis) Challenge(ctx context.Context, id string) (dicebot.Challenge, error) {
	m, err := s.ReadAllFields(ctx, KeyChallengePrefix+id)
	if err != nil {
		return dicebot.Challenge{}, err
	}
	challenger, ok := m["challenger"]
	if !ok {
		return dicebot.Challenge{}, ErrNotFound
	}
	created, _ := strconv.ParseInt(m["created_at"], 10, 64)
	return dicebot.Challenge{
		ID:         id,
		Challenger: challenger,
		CreatedAt:  time.Unix(created, 0),
	}, nil
}

// consumeScript sets consumed_by only on a live, unconsumed record so an
// expired challenge is never resurrected without a TTL.
var consumeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
return redis.call('HSETNX', KEYS[1], 'consumed_by', ARGV[1])
`)

// ConsumeChallenge marks a challenge as accepted by acceptor. Exactly one
// caller per challenge gets true; an expired challenge returns ErrNotFound.
func (s *Redis) ConsumeChallenge(ctx context.Context, id, acceptor string) (bool, error) {
	n, err := consumeScript.Run(ctx, s.rdb, []string{KeyChallengePrefix + id}, acceptor).Int()
	if err != nil {
		return false, unavailable("consume challenge", err)
	}
	if n < 0 {
		return false, ErrNotFound
	}
	return n == 1, nil
}
