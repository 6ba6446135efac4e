package home

import (
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/rolekeeper/sys"
)

func handleAutoroleJoin(event *events.GuildMemberJoin) {
	userID := event.Member.User.ID
	if _, err := service.GrantAutorole(sys.AppContext, event.GuildID, userID); err != nil {
		sys.LogWarn(sys.MsgAutoroleFail, userID, event.GuildID, err)
	}
}
