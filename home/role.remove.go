package home

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
)

func handleRoleRemove(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	updateMemberRole(event, data, false)
}
