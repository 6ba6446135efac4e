package home

import (
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/rolekeeper/sys"
)

func handleAutoroleClear(event *events.ApplicationCommandInteractionCreate) {
	if err := store.ClearAutorole(sys.AppContext, *event.GuildID()); err != nil {
		sys.LogError(sys.MsgAutoroleSaveFail, err)
		respond(event, sys.ErrAutoroleSaveFailed)
		return
	}
	respond(event, sys.MsgAutoroleCleared)
}
