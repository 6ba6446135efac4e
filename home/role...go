package home

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/omit"
	"github.com/leeineian/rolekeeper/sys"
)

func init() {
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:                     "role",
		Description:              "Add or remove a role for a user",
		DefaultMemberPermissions: omit.New(&manageRolesPerm),
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "add",
				Description: "Give a role to a user",
				Options:     roleTargetOptions("Role to add"),
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "remove",
				Description: "Remove a role from a user",
				Options:     roleTargetOptions("Role to remove"),
			},
		},
	}, handleRole)
}

func roleTargetOptions(roleDescription string) []discord.ApplicationCommandOption {
	return []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Target user",
			Required:    true,
		},
		discord.ApplicationCommandOptionRole{
			Name:        "role",
			Description: roleDescription,
			Required:    true,
		},
	}
}

func handleRole(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	if data.SubCommandName == nil {
		return
	}
	if event.GuildID() == nil {
		respond(event, sys.ErrGuildOnly)
		return
	}

	switch *data.SubCommandName {
	case "add":
		handleRoleAdd(event, data)
	case "remove":
		handleRoleRemove(event, data)
	default:
		sys.LogWarn("Unknown role subcommand: %s", *data.SubCommandName)
	}
}
