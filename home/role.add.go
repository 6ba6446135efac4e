package home

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/rolekeeper/sys"
)

func handleRoleAdd(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	updateMemberRole(event, data, true)
}

// updateMemberRole defers first: the role call can outlast the interaction window.
func updateMemberRole(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData, grant bool) {
	user, okUser := data.OptUser("user")
	role, okRole := data.OptRole("role")
	if !okUser || !okRole {
		respond(event, sys.ErrRoleMissingArgs)
		return
	}

	_ = event.DeferCreateMessage(true)

	err := service.SetMemberRole(sys.AppContext, *event.GuildID(), user.ID, role.ID, grant, event.User().Username)
	if err != nil {
		sys.LogWarn(sys.ErrRoleFailed, user.ID, err)
		editDeferred(event, fmt.Sprintf(sys.ErrRoleFailed, user.ID, err))
		return
	}

	msg := sys.MsgRoleRemoved
	if grant {
		msg = sys.MsgRoleAdded
	}
	editDeferred(event, fmt.Sprintf(msg, role.ID, user.ID))
}
