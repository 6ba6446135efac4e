package home

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/omit"
	"github.com/leeineian/rolekeeper/sys"
)

func init() {
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:                     "autorole",
		Description:              "Configure auto role on member join",
		DefaultMemberPermissions: omit.New(&manageRolesPerm),
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "set",
				Description: "Set the autorole",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionRole{
						Name:        "role",
						Description: "Role to auto-assign",
						Required:    true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "clear",
				Description: "Clear the autorole",
			},
		},
	}, handleAutorole)

	sys.RegisterMemberJoinHandler(handleAutoroleJoin)
}

func handleAutorole(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	if data.SubCommandName == nil {
		return
	}
	if event.GuildID() == nil {
		respond(event, sys.ErrGuildOnly)
		return
	}

	switch *data.SubCommandName {
	case "set":
		handleAutoroleSet(event, data)
	case "clear":
		handleAutoroleClear(event)
	default:
		sys.LogWarn("Unknown autorole subcommand: %s", *data.SubCommandName)
	}
}
