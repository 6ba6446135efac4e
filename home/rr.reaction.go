package home

import (
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/rolekeeper/proc"
	"github.com/leeineian/rolekeeper/sys"
)

func reactionEvent(e *events.GenericGuildMessageReaction) proc.ReactionEvent {
	return proc.ReactionEvent{
		GuildID:   e.GuildID,
		ChannelID: e.ChannelID,
		MessageID: e.MessageID,
		UserID:    e.UserID,
		Emoji:     sys.EmojiKey(e.Emoji),
	}
}

func handlePanelReactionAdd(event *events.GuildMessageReactionAdd) {
	if event.Member.User.Bot {
		return
	}
	service.HandleReactionAdd(sys.AppContext, reactionEvent(event.GenericGuildMessageReaction))
}

func handlePanelReactionRemove(event *events.GuildMessageReactionRemove) {
	service.HandleReactionRemove(sys.AppContext, reactionEvent(event.GenericGuildMessageReaction))
}
