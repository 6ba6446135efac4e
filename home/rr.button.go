package home

import (
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/rolekeeper/sys"
)

func handleRoleButton(event *events.ComponentInteractionCreate) {
	if event.GuildID() == nil {
		respond(event, sys.ErrGuildOnly)
		return
	}
	out := service.ToggleButton(sys.AppContext, *event.GuildID(), event.Message.ID, event.User().ID, event.Data.CustomID())
	respond(event, out.Message())
}
