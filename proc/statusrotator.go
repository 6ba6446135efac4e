package proc

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/gateway"
	"github.com/leeineian/rolekeeper/sys"
)

// PanelCounter is the store side of the presence rotator.
type PanelCounter interface {
	CountPanels(ctx context.Context, kind sys.PanelKind) (int, error)
}

// statusSource yields one presence line, or "" to sit a round out.
type statusSource func(ctx context.Context) string

type statusRotator struct {
	sources []statusSource
	last    string
	pick    func(n int) int
}

func newStatusRotator(sources ...statusSource) *statusRotator {
	return &statusRotator{sources: sources, pick: rand.IntN}
}

// next picks a line at random, avoiding an immediate repeat when it can.
func (r *statusRotator) next(ctx context.Context) string {
	var available []string
	for _, src := range r.sources {
		if text := src(ctx); text != "" {
			available = append(available, text)
		}
	}
	if len(available) == 0 {
		return ""
	}

	choices := make([]string, 0, len(available))
	for _, s := range available {
		if s != r.last {
			choices = append(choices, s)
		}
	}
	if len(choices) == 0 {
		choices = available
	}

	r.last = choices[r.pick(len(choices))]
	return r.last
}

func rotationInterval() time.Duration {
	return time.Duration(15+rand.IntN(46)) * time.Second
}

func panelStatus(counter PanelCounter, kind sys.PanelKind, noun string) statusSource {
	return func(ctx context.Context) string {
		n, err := counter.CountPanels(ctx, kind)
		if err != nil || n == 0 {
			return ""
		}
		if n == 1 {
			return fmt.Sprintf("1 %s panel", noun)
		}
		return fmt.Sprintf("%d %s panels", n, noun)
	}
}

func uptimeStatus(context.Context) string {
	uptime := time.Since(sys.StartupTime)
	return fmt.Sprintf("Uptime: %dh %dm", int(uptime.Hours()), int(uptime.Minutes())%60)
}

func latencyStatus(client *bot.Client) statusSource {
	return func(context.Context) string {
		if client.Gateway == nil {
			return ""
		}
		ping := client.Gateway.Latency()
		if ping == 0 {
			return ""
		}
		return fmt.Sprintf("Ping: %dms", ping.Milliseconds())
	}
}

// RegisterStatusRotator cycles the bot's "watching" presence once connected.
func RegisterStatusRotator(counter PanelCounter, client *bot.Client) {
	rotator := newStatusRotator(
		panelStatus(counter, sys.PanelKindReaction, "reaction"),
		panelStatus(counter, sys.PanelKindButton, "button"),
		uptimeStatus,
		latencyStatus(client),
	)

	sys.RegisterDaemon(sys.LogStatusRotator, func(ctx context.Context) (bool, func(), func()) {
		rotCtx, cancel := context.WithCancel(ctx)
		run := func() {
			for {
				interval := rotationInterval()
				if text := rotator.next(rotCtx); text != "" {
					err := client.SetPresence(rotCtx,
						gateway.WithOnlineStatus(discord.OnlineStatusOnline),
						gateway.WithWatchingActivity(text),
					)
					if err != nil {
						sys.LogStatusRotator(sys.MsgStatusUpdateFail, err)
					} else {
						sys.LogDebug(sys.MsgStatusRotated, text, interval)
					}
				}
				select {
				case <-time.After(interval):
				case <-rotCtx.Done():
					return
				}
			}
		}
		return true, run, cancel
	})
}
