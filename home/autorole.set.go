package home

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/rolekeeper/sys"
)

func handleAutoroleSet(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	role, ok := data.OptRole("role")
	if !ok {
		respond(event, sys.ErrAutoroleRoleMissing)
		return
	}

	if err := store.SetAutorole(sys.AppContext, *event.GuildID(), role.ID); err != nil {
		sys.LogError(sys.MsgAutoroleSaveFail, err)
		respond(event, sys.ErrAutoroleSaveFailed)
		return
	}
	respond(event, fmt.Sprintf(sys.MsgAutoroleSet, role.ID))
}
