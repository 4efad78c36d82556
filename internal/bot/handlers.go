package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/playperu/dicebot/internal/dicebot"
	"github.com/playperu/dicebot/internal/store"
)

const (
	WelcomeText        = "Welcome to the Dice Challenge Bot! Use /challenge to challenge other players."
	PongText           = "Pong!"
	AcceptLabel        = "Accept Challenge"
	SelfChallengeText  = "You cannot accept your own challenge!"
	ExpiredText        = "This challenge has expired."
	AlreadyTakenText   = "This challenge has already been accepted."
	LeaderboardHeader  = "🏆 Leaderboard 🏆\n\n"
	acceptMarker       = "accept"
	tokenSeparator     = "_"
	challengeTextFmt   = "%s has challenged everyone! Who wants to accept?"
	latencyTextFmt     = "Latency: %d ms"
	bytesPerGigabyte   = 1024 * 1024 * 1024
	serverStatusHeader = "🖥 *Server Status*\n\n"
	botStatusHeader    = "🤖 *Bot Status*\n\n"
)

// AcceptToken builds the callback token for a challenge reference, which is
// either the challenger or a challenge id.
func AcceptToken(ref string) string {
	return acceptMarker + tokenSeparator + ref
}

// ParseAcceptToken accepts "accept_<ref>" with a non-empty ref. Only the first
// separator splits, so refs may themselves contain underscores.
func ParseAcceptToken(token string) (string, bool) {
	parts := strings.SplitN(token, tokenSeparator, 2)
	if len(parts) != 2 || parts[0] != acceptMarker || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func (b *Bot) handleStart(ctx context.Context, ev Event, out Responder) error {
	return out.Send(ctx, ev.ChatID, Reply{Text: WelcomeText})
}

func (b *Bot) handlePing(ctx context.Context, ev Event, out Responder) error {
	start := b.now()
	if err := out.Send(ctx, ev.ChatID, Reply{Text: PongText}); err != nil {
		return err
	}
	elapsed := b.now().Sub(start)
	return out.Send(ctx, ev.ChatID, Reply{Text: fmt.Sprintf(latencyTextFmt, elapsed.Milliseconds())})
}

func (b *Bot) handleChallenge(ctx context.Context, ev Event, out Responder) error {
	ref := ev.User
	if b.singleUse {
		ch := dicebot.Challenge{ID: b.newID(), Challenger: ev.User, CreatedAt: b.now()}
		if err := b.store.SaveChallenge(ctx, ch, b.ttl); err != nil {
			return err
		}
		ref = ch.ID
	}

	if err := b.store.Incr(ctx, dicebot.CounterTotalGames); err != nil {
		return err
	}

	return out.Send(ctx, ev.ChatID, Reply{
		Text:   fmt.Sprintf(challengeTextFmt, ev.User),
		Button: &Button{Label: AcceptLabel, Data: AcceptToken(ref)},
	})
}

func (b *Bot) handleAccept(ctx context.Context, ev Event, out Responder) error {
	if ev.CallbackID != "" {
		if err := out.AnswerCallback(ctx, ev.CallbackID); err != nil {
			b.logger.Warn("answering callback failed", "callback_id", ev.CallbackID, "error", err)
		}
	}

	ref, ok := ParseAcceptToken(ev.Data)
	if !ok {
		b.logger.Warn("ignoring malformed callback token", "token", ev.Data, "user", ev.User, "chat_id", ev.ChatID)
		return nil
	}

	challenger := ref
	if b.singleUse {
		ch, err := b.store.Challenge(ctx, ref)
		if errors.Is(err, store.ErrNotFound) {
			return out.Edit(ctx, ev.ChatID, ev.MessageID, Reply{Text: ExpiredText})
		}
		if err != nil {
			return err
		}
		challenger = ch.Challenger
	}

	if ev.User == challenger {
		return out.Send(ctx, ev.ChatID, Reply{Text: SelfChallengeText})
	}

	if b.singleUse {
		won, err := b.store.ConsumeChallenge(ctx, ref, ev.User)
		if errors.Is(err, store.ErrNotFound) {
			return out.Edit(ctx, ev.ChatID, ev.MessageID, Reply{Text: ExpiredText})
		}
		if err != nil {
			return err
		}
		if !won {
			return out.Send(ctx, ev.ChatID, Reply{Text: AlreadyTakenText})
		}
	}

	res := b.resolver.Resolve(challenger, ev.User)
	if err := b.store.UpdateLeaderboard(ctx, res.Winner, res.WinnerScore); err != nil {
		return err
	}
	if err := b.store.Incr(ctx, dicebot.CounterGamesPlayed); err != nil {
		return err
	}

	b.logger.Info("game resolved",
		"challenger", res.Challenger,
		"acceptor", res.Acceptor,
		"winner", res.Winner,
		"winner_score", res.WinnerScore,
	)
	b.publisher.Publish(res)

	return out.Edit(ctx, ev.ChatID, ev.MessageID, Reply{Text: FormatResult(res)})
}

func (b *Bot) handleLeaderboard(ctx context.Context, ev Event, out Responder) error {
	entries, err := b.store.Leaderboard(ctx, LeaderboardSize)
	if err != nil {
		return err
	}
	return out.Send(ctx, ev.ChatID, Reply{Text: FormatLeaderboard(entries)})
}

func (b *Bot) handleServerStatus(ctx context.Context, ev Event, out Responder) error {
	st, err := b.sampler.Sample(ctx)
	if err != nil {
		return err
	}
	return out.Send(ctx, ev.ChatID, Reply{Text: FormatHostStatus(st), Markdown: true})
}

func (b *Bot) handleBotStatus(ctx context.Context, ev Event, out Responder) error {
	st, err := b.store.Stats(ctx)
	if err != nil {
		return err
	}
	return out.Send(ctx, ev.ChatID, Reply{Text: FormatStats(st), Markdown: true})
}

func FormatResult(res dicebot.Result) string {
	return fmt.Sprintf("%s vs %s\n%s's score: %d\n%s's score: %d\nWinner: %s!",
		res.Challenger, res.Acceptor,
		res.Challenger, res.ChallengerScore,
		res.Acceptor, res.AcceptorScore,
		res.Winner,
	)
}

func FormatLeaderboard(entries []dicebot.Entry) string {
	var sb strings.Builder
	sb.WriteString(LeaderboardHeader)
	for i, e := range entries {
		fmt.Fprintf(&sb, "%d. %s: %d\n", i+1, e.Player, e.Score)
	}
	return sb.String()
}

func gigabytes(n uint64) float64 {
	return float64(n) / bytesPerGigabyte
}

func FormatHostStatus(st dicebot.HostStatus) string {
	var sb strings.Builder
	sb.WriteString(serverStatusHeader)
	fmt.Fprintf(&sb, "*CPU Usage:* %.1f%%\n\n", st.CPUPercent)
	fmt.Fprintf(&sb, "*Memory:* %.1f%% used\n", st.Memory.UsedPercent)
	fmt.Fprintf(&sb, "Total: %.2f GB\nUsed: %.2f GB\nFree: %.2f GB\n\n",
		gigabytes(st.Memory.Total), gigabytes(st.Memory.Used), gigabytes(st.Memory.Free))
	fmt.Fprintf(&sb, "*Disk:* %.1f%% used\n", st.Disk.UsedPercent)
	fmt.Fprintf(&sb, "Total: %.2f GB\nUsed: %.2f GB\nFree: %.2f GB",
		gigabytes(st.Disk.Total), gigabytes(st.Disk.Used), gigabytes(st.Disk.Free))
	return sb.String()
}

func FormatStats(st dicebot.Stats) string {
	return fmt.Sprintf(botStatusHeader+"*Groups:* %d\n*Total games:* %d\n*Games played:* %d\n*Users:* %d",
		st.Groups, st.TotalGames, st.GamesPlayed, st.Users)
}

var _ Store = (*store.Redis)(nil)
