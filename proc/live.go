package proc

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/rolekeeper/sys"
)

// ReactionEvent is one gateway reaction add or remove.
type ReactionEvent struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	MessageID snowflake.ID
	UserID    snowflake.ID
	Emoji     string
}

type LiveResult int

const (
	// LiveIgnored means the event did not concern a panel binding.
	LiveIgnored LiveResult = iota
	// LiveDropped means a lookup failed and the event was abandoned.
	LiveDropped
	LiveApplied
)

func (r LiveResult) String() string {
	switch r {
	case LiveDropped:
		return "dropped"
	case LiveApplied:
		return "applied"
	default:
		return "ignored"
	}
}

// resolve finds the reaction panel, the bound role and the acting member.
func (s *Service) resolve(ctx context.Context, ev ReactionEvent) (sys.Panel, snowflake.ID, Member, LiveResult) {
	var none Member

	opt, err := s.store.GetPanel(ctx, sys.PanelKindReaction, ev.MessageID)
	if err != nil {
		sys.LogWarn(sys.MsgReactionPanelLookup, ev.MessageID, err)
		return sys.Panel{}, 0, none, LiveDropped
	}
	panel, ok := opt.Get()
	if !ok || panel.GuildID != ev.GuildID {
		return panel, 0, none, LiveIgnored
	}

	roleID, ok := panel.RoleForEmoji(ev.Emoji)
	if !ok {
		return panel, 0, none, LiveIgnored
	}

	m, err := s.Directory().FetchMember(ctx, ev.GuildID, ev.UserID)
	if err != nil {
		sys.LogDebug(sys.MsgReactionFetchFail, ev.MessageID, err)
		return panel, roleID, none, LiveDropped
	}
	// The bot seeds its own panel reactions.
	if m.Bot {
		return panel, roleID, m, LiveIgnored
	}
	return panel, roleID, m, LiveApplied
}

// HandleReactionAdd grants the bound role. On exclusive panels the member's
// other panel roles are dropped and their other panel reactions retracted.
func (s *Service) HandleReactionAdd(ctx context.Context, ev ReactionEvent) LiveResult {
	panel, roleID, m, res := s.resolve(ctx, ev)
	defer func() { sys.LiveEvents.WithLabelValues("reaction_add", res.String()).Inc() }()
	if res != LiveApplied {
		return res
	}

	reasons := Reasons{Add: ReasonReactionAdd, Remove: ReasonReactionSwitch}
	stats := s.liveEngine().converge(ctx, ev.GuildID, m, panel.RoleIDs(), []snowflake.ID{roleID}, panel.Exclusive, reasons, SourceReaction)

	if panel.Exclusive && len(panel.Bindings) > 1 {
		s.retractOtherReactions(ctx, panel, ev)
	}

	if stats.Mutations() > 0 {
		sys.LogReaction("+%d/-%d role(s) for %s on %s", stats.Added, stats.Removed, ev.UserID, ev.MessageID)
	}
	return res
}

// retractOtherReactions is best-effort. Only emojis present on a fresh copy
// of the message are touched.
func (s *Service) retractOtherReactions(ctx context.Context, panel sys.Panel, ev ReactionEvent) {
	dir := s.Directory()
	channelID := ev.ChannelID
	if channelID == 0 {
		channelID = panel.ChannelID
	}

	msg, err := dir.FetchMessage(ctx, channelID, ev.MessageID)
	if err != nil {
		sys.LogDebug(sys.MsgReactionFetchFail, ev.MessageID, err)
		return
	}

	current := sys.NormalizeEmoji(ev.Emoji)
	for _, b := range panel.Bindings {
		if b.Emoji == "" || b.Emoji == current || !msg.HasEmoji(b.Emoji) {
			continue
		}
		if err := dir.RemoveReaction(ctx, channelID, ev.MessageID, b.Emoji, ev.UserID); err != nil {
			sys.LogDebug(sys.MsgReactionRetractFail, b.Emoji, ev.UserID, ev.MessageID, err)
		}
	}
}

// HandleReactionRemove drops the bound role if held, whatever the panel policy.
func (s *Service) HandleReactionRemove(ctx context.Context, ev ReactionEvent) LiveResult {
	_, roleID, m, res := s.resolve(ctx, ev)
	defer func() { sys.LiveEvents.WithLabelValues("reaction_remove", res.String()).Inc() }()
	if res != LiveApplied {
		return res
	}
	if !m.HasRole(roleID) {
		return res
	}

	plan := Plan{Remove: []snowflake.ID{roleID}}
	stats := s.liveEngine().apply(ctx, ev.GuildID, m.UserID, plan, Reasons{Remove: ReasonReactionRemove}, SourceReaction)
	if stats.Removed > 0 {
		sys.LogReaction("-%s for %s on %s", roleID, ev.UserID, ev.MessageID)
	}
	return res
}

// SeedReactions adds the bot's own reaction for every bound emoji so members
// have something to click. Failures are logged and skipped.
func (s *Service) SeedReactions(ctx context.Context, panel sys.Panel) int {
	dir := s.Directory()
	seeded := 0
	for _, b := range panel.Bindings {
		if b.Emoji == "" {
			continue
		}
		if err := dir.AddReaction(ctx, panel.ChannelID, panel.MessageID, b.Emoji); err != nil {
			sys.LogWarn(sys.MsgReactionSeedFail, b.Emoji, panel.MessageID, err)
			continue
		}
		seeded++
	}
	return seeded
}
