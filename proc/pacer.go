package proc

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Fixed gaps between remote calls. These stay below the platform's per-route
// limits without any adaptive backoff.
const (
	PagePace     = 300 * time.Millisecond
	EmojiPace    = 200 * time.Millisecond
	MutationPace = 120 * time.Millisecond
	MemberPace   = 120 * time.Millisecond
	PanelPace    = 400 * time.Millisecond
)

// Pacer blocks until the next call may proceed.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Gate lets one call through per interval. The first Wait returns immediately.
type Gate struct {
	limiter *rate.Limiter
}

func NewGate(every time.Duration) *Gate {
	return &Gate{limiter: rate.NewLimiter(rate.Every(every), 1)}
}

func (g *Gate) Wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}

type noPacing struct{}

func (noPacing) Wait(ctx context.Context) error { return ctx.Err() }

// NoPacing never blocks. Tests use it.
var NoPacing Pacer = noPacing{}

// Pacing groups the gates one flow uses.
type Pacing struct {
	Page     Pacer
	Emoji    Pacer
	Mutation Pacer
	Member   Pacer
	Panel    Pacer
}

// DefaultPacing builds fresh gates. Each sweep gets its own set, so
// concurrent guild sweeps do not share a budget.
func DefaultPacing() Pacing {
	return Pacing{
		Page:     NewGate(PagePace),
		Emoji:    NewGate(EmojiPace),
		Mutation: NewGate(MutationPace),
		Member:   NewGate(MemberPace),
		Panel:    NewGate(PanelPace),
	}
}

func UnpacedPacing() Pacing {
	return Pacing{NoPacing, NoPacing, NoPacing, NoPacing, NoPacing}
}
