package home

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/omit"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/rolekeeper/proc"
	"github.com/leeineian/rolekeeper/sys"
)

// maxPanelRoles is how many role slots each panel command offers.
const maxPanelRoles = 5

func init() {
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:                     "rr",
		Description:              "Reaction-role utilities",
		DefaultMemberPermissions: omit.New(&manageRolesPerm),
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "create",
				Description: "Create a role button panel",
				Options:     buttonPanelOptions(),
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "react",
				Description: "Create an embed with emoji reaction roles",
				Options:     reactionPanelOptions(),
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "sync",
				Description: "Re-scan all reaction panels in this server and fix roles now",
			},
		},
	}, handleRR)

	sys.RegisterComponentHandler(proc.ButtonPrefix, handleRoleButton)
	sys.RegisterReactionAddHandler(handlePanelReactionAdd)
	sys.RegisterReactionRemoveHandler(handlePanelReactionRemove)
}

func panelCommonOptions(multiDescription, channelDescription string) []discord.ApplicationCommandOption {
	return []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionBool{
			Name:        "multi",
			Description: multiDescription,
		},
		discord.ApplicationCommandOptionChannel{
			Name:         "channel",
			Description:  channelDescription,
			ChannelTypes: []discord.ChannelType{discord.ChannelTypeGuildText, discord.ChannelTypeGuildNews},
		},
	}
}

func buttonPanelOptions() []discord.ApplicationCommandOption {
	opts := []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "title",
			Description: "Panel title",
			Required:    true,
		},
	}
	for i := 1; i <= maxPanelRoles; i++ {
		opts = append(opts, discord.ApplicationCommandOptionRole{
			Name:        fmt.Sprintf("role%d", i),
			Description: fmt.Sprintf("Role %d", i),
			Required:    i == 1,
		})
	}
	return append(opts, panelCommonOptions(
		"Allow selecting multiple roles from this panel?",
		"Channel to post the panel to",
	)...)
}

func reactionPanelOptions() []discord.ApplicationCommandOption {
	opts := []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "title",
			Description: "Embed title",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:        "image",
			Description: "Image URL to show",
			Required:    true,
		},
	}
	// Discord wants every required option ahead of the optional ones.
	opts = append(opts,
		discord.ApplicationCommandOptionString{Name: "emoji1", Description: "Emoji for role1", Required: true},
		discord.ApplicationCommandOptionRole{Name: "role1", Description: "Role 1", Required: true},
	)
	opts = append(opts, panelCommonOptions(
		"Allow selecting multiple roles from this panel?",
		"Channel to send panel to",
	)...)
	for i := 2; i <= maxPanelRoles; i++ {
		opts = append(opts,
			discord.ApplicationCommandOptionString{
				Name:        fmt.Sprintf("emoji%d", i),
				Description: fmt.Sprintf("Emoji for role%d", i),
			},
			discord.ApplicationCommandOptionRole{
				Name:        fmt.Sprintf("role%d", i),
				Description: fmt.Sprintf("Role %d", i),
			},
		)
	}
	return opts
}

func handleRR(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	if data.SubCommandName == nil {
		return
	}
	if event.GuildID() == nil {
		respond(event, sys.ErrGuildOnly)
		return
	}

	switch *data.SubCommandName {
	case "create":
		handleRRCreate(event, data)
	case "react":
		handleRRReact(event, data)
	case "sync":
		handleRRSync(event)
	default:
		sys.LogWarn("Unknown rr subcommand: %s", *data.SubCommandName)
	}
}

// panelTarget is the channel option, or the channel the command ran in.
func panelTarget(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) snowflake.ID {
	if ch, ok := data.OptChannel("channel"); ok {
		return ch.ID
	}
	return event.Channel().ID()
}

// panelExclusive reads "multi", which defaults to true.
func panelExclusive(data discord.SlashCommandInteractionData) bool {
	multi, ok := data.OptBool("multi")
	return ok && !multi
}

// unmanageableRole returns the first role at or above the bot's highest role.
// When the bot's member is not cached the check passes and Discord has the last word.
func unmanageableRole(event *events.ApplicationCommandInteractionCreate, roles []discord.Role) (discord.Role, bool) {
	guildID := *event.GuildID()
	caches := event.Client().Caches

	self, ok := caches.SelfMember(guildID)
	if !ok {
		return discord.Role{}, false
	}
	highest := 0
	for _, id := range self.RoleIDs {
		if r, ok := caches.Role(guildID, id); ok && r.Position > highest {
			highest = r.Position
		}
	}
	for _, r := range roles {
		if r.Position >= highest {
			return r, true
		}
	}
	return discord.Role{}, false
}

func bindingError(err error) string {
	switch err {
	case proc.ErrDuplicateRole:
		return sys.ErrPanelDuplicateRole
	case proc.ErrDuplicateEmoji:
		return sys.ErrPanelDuplicateEmoj
	default:
		return sys.ErrPanelNeedPairs
	}
}
