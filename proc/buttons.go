package proc

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/rolekeeper/sys"
)

// ButtonPrefix starts every role button custom id: "rr:<roleID>".
const ButtonPrefix = "rr:"

func ButtonCustomID(roleID snowflake.ID) string {
	return ButtonPrefix + roleID.String()
}

type ButtonResult int

const (
	ButtonStale ButtonResult = iota
	ButtonRoleMissing
	ButtonAdded
	ButtonRemoved
	ButtonNowHas
	ButtonFailed
)

type ButtonOutcome struct {
	Result ButtonResult
	RoleID snowflake.ID
}

// Message is the ephemeral reply shown to the clicker.
func (o ButtonOutcome) Message() string {
	switch o.Result {
	case ButtonRoleMissing:
		return sys.MsgButtonRoleMissing
	case ButtonAdded:
		return fmt.Sprintf(sys.MsgButtonAdded, o.RoleID)
	case ButtonRemoved:
		return fmt.Sprintf(sys.MsgButtonRemoved, o.RoleID)
	case ButtonNowHas:
		return fmt.Sprintf(sys.MsgButtonNowHas, o.RoleID)
	case ButtonFailed:
		return sys.MsgButtonFailed
	default:
		return sys.MsgButtonStale
	}
}

func (r ButtonResult) String() string {
	return [...]string{"stale", "role_missing", "added", "removed", "now_has", "failed"}[r]
}

// ToggleButton handles one click on a button panel.
func (s *Service) ToggleButton(ctx context.Context, guildID, messageID, userID snowflake.ID, customID string) (out ButtonOutcome) {
	defer func() { sys.LiveEvents.WithLabelValues("button", out.Result.String()).Inc() }()

	roleID, err := snowflake.Parse(strings.TrimPrefix(customID, ButtonPrefix))
	if err != nil || !strings.HasPrefix(customID, ButtonPrefix) {
		return ButtonOutcome{Result: ButtonStale}
	}
	out.RoleID = roleID

	opt, err := s.store.GetPanel(ctx, sys.PanelKindButton, messageID)
	if err != nil {
		sys.LogWarn(sys.MsgButtonLookupFail, messageID, err)
		out.Result = ButtonStale
		return out
	}
	panel, ok := opt.Get()
	if !ok || panel.GuildID != guildID || !panel.Contains(roleID) {
		out.Result = ButtonStale
		return out
	}

	dir := s.Directory()
	exists, err := dir.RoleExists(ctx, guildID, roleID)
	if err != nil {
		sys.LogWarn(sys.MsgButtonLookupFail, messageID, err)
		out.Result = ButtonFailed
		return out
	}
	if !exists {
		out.Result = ButtonRoleMissing
		return out
	}

	m, err := dir.FetchMember(ctx, guildID, userID)
	if err != nil {
		sys.LogWarn(sys.MsgButtonLookupFail, messageID, err)
		out.Result = ButtonFailed
		return out
	}

	engine := s.liveEngine()
	var stats PassStats
	switch {
	case panel.Exclusive:
		reasons := Reasons{Add: ReasonButtonAdd, Remove: ReasonButtonSwitch}
		stats = engine.converge(ctx, guildID, m, panel.RoleIDs(), []snowflake.ID{roleID}, true, reasons, SourceButton)
		out.Result = ButtonNowHas
	case m.HasRole(roleID):
		stats = engine.apply(ctx, guildID, userID, Plan{Remove: []snowflake.ID{roleID}}, Reasons{Remove: ReasonButtonToggle}, SourceButton)
		out.Result = ButtonRemoved
	default:
		stats = engine.apply(ctx, guildID, userID, Plan{Add: []snowflake.ID{roleID}}, Reasons{Add: ReasonButtonToggle}, SourceButton)
		out.Result = ButtonAdded
	}

	if stats.Failed > 0 {
		out.Result = ButtonFailed
		return out
	}
	sys.LogButton("%s %s for %s on %s", out.Result, roleID, userID, messageID)
	return out
}
