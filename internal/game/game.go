// Package game resolves dice contests between two players.
package game

import (
	"math/rand/v2"
	"time"

	"github.com/playperu/dicebot/internal/dicebot"
)

const (
	diceSides = 6
	diceCount = 3
)

// Roller yields uniform integers in [0, n). *rand.Rand satisfies it.
type Roller interface {
	IntN(n int) int
}

// globalRoller uses the goroutine-safe top-level math/rand/v2 source.
type globalRoller struct{}

func (globalRoller) IntN(n int) int { return rand.IntN(n) }

type Resolver struct {
	roller Roller
	now    func() time.Time
}

// NewResolver returns a Resolver drawing from roller, or from the shared
// math/rand/v2 source when roller is nil.
func NewResolver(roller Roller) *Resolver {
	if roller == nil {
		roller = globalRoller{}
	}
	return &Resolver{roller: roller, now: time.Now}
}

// Roll sums three six-sided dice.
func (r *Resolver) Roll() int {
	sum := 0
	for range diceCount {
		sum += r.roller.IntN(diceSides) + 1
	}
	return sum
}

// Resolve rolls for both players and picks the winner. It has no side effects
// and accepts a challenger equal to the acceptor.
func (r *Resolver) Resolve(challenger, acceptor string) dicebot.Result {
	res := Decide(challenger, acceptor, r.Roll(), r.Roll())
	res.ResolvedAt = r.now()
	return res
}

// Decide applies the winner rule to two known scores. The challenger wins only
// with a strictly higher score; ties go to the acceptor.
func Decide(challenger, acceptor string, challengerScore, acceptorScore int) dicebot.Result {
	res := dicebot.Result{
		Challenger:      challenger,
		Acceptor:        acceptor,
		ChallengerScore: challengerScore,
		AcceptorScore:   acceptorScore,
		Winner:          acceptor,
		WinnerScore:     acceptorScore,
	}
	if challengerScore > acceptorScore {
		res.Winner = challenger
		res.WinnerScore = challengerScore
	}
	return res
}
