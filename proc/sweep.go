package proc

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/gammazero/workerpool"
	"github.com/leeineian/rolekeeper/sys"
	"github.com/oklog/ulid/v2"
)

var errNoChannel = errors.New("no channel recorded for panel")

type SweepReport struct {
	RunID    string
	GuildID  snowflake.ID
	Panels   int
	Synced   int
	Skipped  int
	Stats    PassStats
	Duration time.Duration
}

// SweepGuild re-derives roles for every reaction panel in the guild.
// A failing or panicking panel is logged and the sweep moves on.
func (s *Service) SweepGuild(ctx context.Context, guildID snowflake.ID) (report SweepReport, err error) {
	report = SweepReport{RunID: ulid.Make().String(), GuildID: guildID}
	start := time.Now()
	defer func() {
		report.Duration = time.Since(start)
		sys.SweepDuration.Observe(report.Duration.Seconds())
	}()

	panels, err := s.store.ListPanels(ctx, guildID, sys.PanelKindReaction)
	if err != nil {
		sys.LogWarn(sys.MsgSweepListFail, guildID, err)
		return report, fmt.Errorf("failed to list panels: %w", err)
	}
	report.Panels = len(panels)
	if len(panels) == 0 {
		return report, nil
	}

	sys.LogSweep(sys.MsgSweepStarting, report.RunID, len(panels), guildID)

	pace := s.pacing()
	dir := s.Directory()
	collector := NewCollector(dir, pace)
	engine := NewEngine(dir, pace)

	for i, p := range panels {
		if i > 0 {
			if err := pace.Panel.Wait(ctx); err != nil {
				break
			}
		}

		stats, err := s.sweepPanel(ctx, report.RunID, collector, engine, p)
		report.Stats.Merge(stats)
		if err != nil {
			report.Skipped++
			sys.SweepPanels.WithLabelValues("skipped").Inc()
			sys.LogWarn(sys.MsgSweepPanelSkipped, report.RunID, p.MessageID, err)
			continue
		}
		report.Synced++
		sys.SweepPanels.WithLabelValues("synced").Inc()
		sys.LogSweep(sys.MsgSweepPanelDone, report.RunID, p.MessageID, stats.Members, stats.Added, stats.Removed, stats.Failed)
	}

	sys.LogSweep(sys.MsgSweepGuildDone, report.RunID, guildID, time.Since(start).Round(time.Millisecond), report.Synced, report.Panels)
	return report, nil
}

// sweepPanel runs collect, reconcile and cleanup for one panel.
func (s *Service) sweepPanel(ctx context.Context, runID string, collector *Collector, engine *Engine, p sys.Panel) (stats PassStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			sys.LogError(sys.MsgSweepPanelPanic, runID, p.MessageID, r)
			sys.LogDebug("%s", debug.Stack())
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if p.ChannelID == 0 {
		return stats, errNoChannel
	}

	msg, err := engine.dir.FetchMessage(ctx, p.ChannelID, p.MessageID)
	if err != nil {
		return stats, fmt.Errorf("failed to fetch message: %w", err)
	}
	if msg.ChannelID == 0 {
		msg.ChannelID = p.ChannelID
	}

	snap := collector.Collect(ctx, msg, p.Bindings)
	stats = engine.Reconcile(ctx, p.GuildID, snap, p.Exclusive)

	cleanup, err := engine.Cleanup(ctx, p.GuildID, snap)
	stats.Merge(cleanup)
	if err != nil {
		sys.LogWarn(sys.MsgReactionCleanupAborted, p.MessageID, err)
	}
	return stats, nil
}

// SweepAll sweeps every guild the bot is in, a few guilds at a time.
func (s *Service) SweepAll(ctx context.Context) ([]SweepReport, error) {
	guilds, err := s.Directory().ListGuilds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list guilds: %w", err)
	}
	sys.LogSweep(sys.MsgSweepStartup, len(guilds))

	var mu sync.Mutex
	var reports []SweepReport

	wp := workerpool.New(s.workers)
	for _, g := range guilds {
		wp.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			report, err := s.SweepGuild(ctx, g)
			if err != nil {
				return
			}
			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()
		})
	}
	wp.StopWait()
	return reports, ctx.Err()
}

// RegisterSweepDaemon runs SweepAll once after the first Ready.
func RegisterSweepDaemon(s *Service, enabled bool) {
	sys.RegisterDaemon(sys.LogSweep, func(ctx context.Context) (bool, func(), func()) {
		if !enabled {
			return false, nil, nil
		}
		sweepCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})

		run := func() {
			defer close(done)
			if _, err := s.SweepAll(sweepCtx); err != nil && !errors.Is(err, context.Canceled) {
				sys.LogWarn(sys.MsgSweepGuildsFail, err)
			}
		}
		shutdown := func() {
			sys.LogSweep(sys.MsgSweepShutdown)
			cancel()
			<-done
		}
		return true, run, shutdown
	})
}
