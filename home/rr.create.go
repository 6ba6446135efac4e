package home

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/leeineian/rolekeeper/proc"
	"github.com/leeineian/rolekeeper/sys"
)

// handleRRCreate posts a button panel, one toggle button per role.
func handleRRCreate(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	title := data.String("title")

	var roles []discord.Role
	for i := 1; i <= maxPanelRoles; i++ {
		if r, ok := data.OptRole(fmt.Sprintf("role%d", i)); ok {
			roles = append(roles, r)
		}
	}
	if len(roles) == 0 {
		respond(event, sys.ErrPanelNeedRoles)
		return
	}

	bindings := make([]sys.RoleBinding, 0, len(roles))
	for _, r := range roles {
		bindings = append(bindings, sys.RoleBinding{Label: r.Name, RoleID: r.ID})
	}
	if err := proc.ValidateBindings(sys.PanelKindButton, bindings); err != nil {
		respond(event, bindingError(err))
		return
	}
	if r, bad := unmanageableRole(event, roles); bad {
		respond(event, fmt.Sprintf(sys.ErrPanelCannotManage, r.ID))
		return
	}

	var buttons []discord.InteractiveComponent
	for _, b := range bindings {
		buttons = append(buttons, discord.NewButton(discord.ButtonStyleSecondary, b.Label, proc.ButtonCustomID(b.RoleID), "", 0))
	}

	target := panelTarget(event, data)
	msg, err := event.Client().Rest.CreateMessage(target, discord.NewMessageCreate().
		WithContent(fmt.Sprintf(sys.MsgPanelButtonHeader, title)).
		AddComponents(discord.NewActionRow(buttons...)), rest.WithCtx(sys.AppContext))
	if err != nil {
		respond(event, fmt.Sprintf(sys.ErrPanelPostFailed, err))
		return
	}

	panel := &sys.Panel{
		Kind:      sys.PanelKindButton,
		GuildID:   *event.GuildID(),
		ChannelID: target,
		MessageID: msg.ID,
		Bindings:  bindings,
		Exclusive: panelExclusive(data),
	}
	if err := store.SavePanel(sys.AppContext, panel); err != nil {
		sys.LogError(sys.MsgPanelSaveFail, panel.Kind, msg.ID, err)
		respond(event, fmt.Sprintf(sys.ErrPanelSaveFailed, err))
		return
	}

	sys.LogButton("Button panel %s posted in %s (%d role(s), exclusive=%t)", msg.ID, target, len(bindings), panel.Exclusive)
	respond(event, fmt.Sprintf(sys.MsgPanelPosted, target))
}
