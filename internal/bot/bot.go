package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/dicebot/internal/dicebot"
	"github.com/playperu/dicebot/internal/game"
	"github.com/playperu/dicebot/internal/sysinfo"
)

// Command names.
const (
	CmdStart        = "start"
	CmdPing         = "ping"
	CmdChallenge    = "challenge"
	CmdLeaderboard  = "leaderboard"
	CmdServerStatus = "server_status"
	CmdBotStatus    = "bot_status"
)

// LeaderboardSize is how many rows /leaderboard shows.
const LeaderboardSize = 10

type Store interface {
	UpdateLeaderboard(ctx context.Context, winner string, score int) error
	Leaderboard(ctx context.Context, n int) ([]dicebot.Entry, error)
	Incr(ctx context.Context, c dicebot.Counter) error
	Stats(ctx context.Context) (dicebot.Stats, error)
	TrackGroup(ctx context.Context, chatID int64) error

	SaveChallenge(ctx context.Context, ch dicebot.Challenge, ttl time.Duration) error
	Challenge(ctx context.Context, id string) (dicebot.Challenge, error)
	ConsumeChallenge(ctx context.Context, id, acceptor string) (bool, error)
}

type Sampler interface {
	Sample(ctx context.Context) (dicebot.HostStatus, error)
}

// Publisher receives every resolved game.
type Publisher interface {
	Publish(res dicebot.Result)
}

type nopPublisher struct{}

func (nopPublisher) Publish(dicebot.Result) {}

type Options struct {
	Resolver  *game.Resolver
	Sampler   Sampler
	Publisher Publisher

	// SingleUse stores each challenge and lets it be accepted once within
	// ChallengeTTL. Otherwise the challenger is carried in the token and the
	// challenge can be accepted any number of times.
	SingleUse    bool
	ChallengeTTL time.Duration
}

type handlerFunc func(ctx context.Context, ev Event, out Responder) error

// Bot holds the interaction handlers. It keeps no per-request state; the store
// is the only shared dependency.
type Bot struct {
	logger    *slog.Logger
	store     Store
	resolver  *game.Resolver
	sampler   Sampler
	publisher Publisher
	singleUse bool
	ttl       time.Duration
	now       func() time.Time
	newID     func() string
	commands  map[string]handlerFunc
}

func New(logger *slog.Logger, store Store, opts Options) *Bot {
	b := &Bot{
		logger:    logger,
		store:     store,
		resolver:  opts.Resolver,
		sampler:   opts.Sampler,
		publisher: opts.Publisher,
		singleUse: opts.SingleUse,
		ttl:       opts.ChallengeTTL,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	if b.resolver == nil {
		b.resolver = game.NewResolver(nil)
	}
	if b.sampler == nil {
		b.sampler = sysinfo.NewSampler()
	}
	if b.publisher == nil {
		b.publisher = nopPublisher{}
	}
	b.commands = map[string]handlerFunc{
		CmdStart:        b.handleStart,
		CmdPing:         b.handlePing,
		CmdChallenge:    b.handleChallenge,
		CmdLeaderboard:  b.handleLeaderboard,
		CmdServerStatus: b.handleServerStatus,
		CmdBotStatus:    b.handleBotStatus,
	}
	return b
}

// Handle processes one event. Group tracking and the matching handler run
// independently; errors from both are joined.
func (b *Bot) Handle(ctx context.Context, ev Event, out Responder) error {
	var trackErr error
	if ev.InGroup() {
		if err := b.store.TrackGroup(ctx, ev.ChatID); err != nil {
			trackErr = fmt.Errorf("tracking group %d: %w", ev.ChatID, err)
		}
	}

	var err error
	switch ev.Kind {
	case KindCommand:
		if h, ok := b.commands[ev.Command]; ok {
			err = h(ctx, ev, out)
		}
	case KindCallback:
		err = b.handleAccept(ctx, ev, out)
	}
	if err != nil {
		err = fmt.Errorf("handling %s: %w", eventName(ev), err)
	}
	return errors.Join(trackErr, err)
}

func eventName(ev Event) string {
	switch ev.Kind {
	case KindCommand:
		return "/" + ev.Command
	case KindCallback:
		return "callback"
	}
	return "message"
}
