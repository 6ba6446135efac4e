package proc

import (
	"context"
	"slices"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/rolekeeper/sys"
)

// Audit reasons attached to every role mutation.
const (
	ReasonSyncExclusive        = "sync exclusive"
	ReasonSyncExclusiveCleanup = "sync exclusive cleanup"
	ReasonSyncMulti            = "sync multi"
	ReasonSyncCleanup          = "sync cleanup"
	ReasonReactionAdd          = "reaction role"
	ReasonReactionSwitch       = "exclusive reaction-role switch"
	ReasonReactionRemove       = "reaction role remove"
	ReasonButtonAdd            = "exclusive button-role add"
	ReasonButtonSwitch         = "exclusive button-role switch"
	ReasonButtonToggle         = "button role toggle"
	ReasonAutorole             = "autorole"
)

// Source labels metrics by trigger.
type Source string

const (
	SourceSweep    Source = "sweep"
	SourceReaction Source = "reaction"
	SourceButton   Source = "button"
	SourceAutorole Source = "autorole"
	SourceCommand  Source = "command"
)

type Reasons struct {
	Add    string
	Remove string
}

var (
	sweepExclusiveReasons = Reasons{Add: ReasonSyncExclusive, Remove: ReasonSyncExclusiveCleanup}
	sweepMultiReasons     = Reasons{Add: ReasonSyncMulti}
)

// PassStats counts what one pass did.
type PassStats struct {
	Members int
	Added   int
	Removed int
	Failed  int
	Skipped int
}

func (p *PassStats) Merge(o PassStats) {
	p.Members += o.Members
	p.Added += o.Added
	p.Removed += o.Removed
	p.Failed += o.Failed
	p.Skipped += o.Skipped
}

func (p PassStats) Mutations() int {
	return p.Added + p.Removed
}

// Plan is the set of mutations that moves one member to the wanted state.
type Plan struct {
	Add    []snowflake.ID
	Remove []snowflake.ID
}

func (p Plan) Empty() bool {
	return len(p.Add) == 0 && len(p.Remove) == 0
}

// planConvergence is the single exclusivity/inclusivity decision shared by
// the sweep, the live reaction handler and the button toggle.
//
// Exclusive: keep the first desired role in panel order, add it if missing,
// then drop every other panel role held. Inclusive: add each desired role
// that is missing and never remove.
func planConvergence(m Member, panelRoles, desired []snowflake.ID, exclusive bool) Plan {
	var plan Plan
	if exclusive {
		var keep snowflake.ID
		for _, r := range panelRoles {
			if slices.Contains(desired, r) {
				keep = r
				break
			}
		}
		if keep != 0 && !m.HasRole(keep) {
			plan.Add = append(plan.Add, keep)
		}
		for _, r := range panelRoles {
			if r != keep && m.HasRole(r) && !slices.Contains(plan.Remove, r) {
				plan.Remove = append(plan.Remove, r)
			}
		}
		return plan
	}

	for _, r := range panelRoles {
		if slices.Contains(desired, r) && !m.HasRole(r) && !slices.Contains(plan.Add, r) {
			plan.Add = append(plan.Add, r)
		}
	}
	return plan
}

// Engine applies plans against the directory.
type Engine struct {
	dir  Directory
	pace Pacing
}

func NewEngine(dir Directory, pace Pacing) *Engine {
	return &Engine{dir: dir, pace: pace}
}

// apply runs adds before removes so an exclusive member never passes
// through holding zero panel roles. Failures are logged and counted.
func (e *Engine) apply(ctx context.Context, guildID, userID snowflake.ID, plan Plan, reasons Reasons, source Source) PassStats {
	var stats PassStats
	mutate := func(op string, roleID snowflake.ID, reason string, call func() error) {
		if err := e.pace.Mutation.Wait(ctx); err != nil {
			stats.Failed++
			return
		}
		if err := call(); err != nil {
			stats.Failed++
			sys.RoleMutations.WithLabelValues(op, string(source), "error").Inc()
			sys.LogWarn(sys.MsgReactionMutationFail, op, roleID, userID, reason, err)
			return
		}
		sys.RoleMutations.WithLabelValues(op, string(source), "ok").Inc()
		if op == "add" {
			stats.Added++
		} else {
			stats.Removed++
		}
	}

	for _, r := range plan.Add {
		mutate("add", r, reasons.Add, func() error {
			return e.dir.AddRole(ctx, guildID, userID, r, reasons.Add)
		})
	}
	for _, r := range plan.Remove {
		mutate("remove", r, reasons.Remove, func() error {
			return e.dir.RemoveRole(ctx, guildID, userID, r, reasons.Remove)
		})
	}
	return stats
}

// converge plans and applies in one step for a single member.
func (e *Engine) converge(ctx context.Context, guildID snowflake.ID, m Member, panelRoles, desired []snowflake.ID, exclusive bool, reasons Reasons, source Source) PassStats {
	plan := planConvergence(m, panelRoles, desired, exclusive)
	if plan.Empty() {
		return PassStats{}
	}
	return e.apply(ctx, guildID, m.UserID, plan, reasons, source)
}

// Reconcile converges every desiring member in snap. Each member is
// handled at most once per pass.
func (e *Engine) Reconcile(ctx context.Context, guildID snowflake.ID, snap *Snapshot, exclusive bool) PassStats {
	var stats PassStats
	reasons := sweepMultiReasons
	if exclusive {
		reasons = sweepExclusiveReasons
	}

	handled := make(map[snowflake.ID]struct{})
	for _, userID := range snap.Members() {
		if ctx.Err() != nil {
			return stats
		}
		if _, done := handled[userID]; done {
			continue
		}
		handled[userID] = struct{}{}

		if len(handled) > 1 {
			if err := e.pace.Member.Wait(ctx); err != nil {
				return stats
			}
		}

		m, err := e.dir.FetchMember(ctx, guildID, userID)
		if err != nil {
			stats.Skipped++
			sys.LogDebug(sys.MsgReactionMemberFail, userID, err)
			continue
		}
		if m.Bot {
			continue
		}

		stats.Members++
		stats.Merge(e.converge(ctx, guildID, m, snap.Roles(), snap.DesiredRoles(userID), exclusive, reasons, SourceSweep))
	}
	return stats
}

// Cleanup strips every panel role from members who hold one but desire none.
// A failed member listing aborts only this step.
func (e *Engine) Cleanup(ctx context.Context, guildID snowflake.ID, snap *Snapshot) (PassStats, error) {
	var stats PassStats

	members, err := e.dir.FetchMembers(ctx, guildID)
	if err != nil {
		return stats, err
	}

	roles := snap.Roles()
	for _, m := range members {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		var plan Plan
		for _, r := range roles {
			if m.HasRole(r) {
				plan.Remove = append(plan.Remove, r)
			}
		}
		if plan.Empty() || snap.DesiresAny(m.UserID) {
			continue
		}

		stats.Members++
		stats.Merge(e.apply(ctx, guildID, m.UserID, plan, Reasons{Remove: ReasonSyncCleanup}, SourceSweep))
	}
	return stats, nil
}
