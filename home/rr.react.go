package home

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/leeineian/rolekeeper/proc"
	"github.com/leeineian/rolekeeper/sys"
)

const blurple = 0x5865F2

// handleRRReact posts an embed panel and seeds one reaction per binding.
func handleRRReact(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	title := data.String("title")
	image := data.String("image")

	var bindings []sys.RoleBinding
	var roles []discord.Role
	for i := 1; i <= maxPanelRoles; i++ {
		emoji, okEmoji := data.OptString(fmt.Sprintf("emoji%d", i))
		role, okRole := data.OptRole(fmt.Sprintf("role%d", i))
		if !okEmoji || !okRole || strings.TrimSpace(emoji) == "" {
			continue
		}
		bindings = append(bindings, sys.RoleBinding{Emoji: sys.NormalizeEmoji(emoji), Label: role.Name, RoleID: role.ID})
		roles = append(roles, role)
	}
	if len(bindings) == 0 {
		respond(event, sys.ErrPanelNeedPairs)
		return
	}
	if err := proc.ValidateBindings(sys.PanelKindReaction, bindings); err != nil {
		respond(event, bindingError(err))
		return
	}
	if r, bad := unmanageableRole(event, roles); bad {
		respond(event, fmt.Sprintf(sys.ErrPanelCannotManage, r.ID))
		return
	}

	lines := make([]string, 0, len(bindings))
	for _, b := range bindings {
		lines = append(lines, fmt.Sprintf("%s <@&%s>", sys.EmojiMention(b.Emoji), b.RoleID))
	}
	embed := discord.NewEmbedBuilder().
		SetTitle(title).
		SetImage(image).
		SetColor(blurple).
		SetDescription(strings.Join(lines, "\n")).
		Build()

	target := panelTarget(event, data)
	msg, err := event.Client().Rest.CreateMessage(target, discord.NewMessageCreate().
		AddEmbeds(embed), rest.WithCtx(sys.AppContext))
	if err != nil {
		respond(event, fmt.Sprintf(sys.ErrPanelPostFailed, err))
		return
	}

	panel := sys.Panel{
		Kind:      sys.PanelKindReaction,
		GuildID:   *event.GuildID(),
		ChannelID: target,
		MessageID: msg.ID,
		Bindings:  bindings,
		Exclusive: panelExclusive(data),
	}
	if err := store.SavePanel(sys.AppContext, &panel); err != nil {
		sys.LogError(sys.MsgPanelSaveFail, panel.Kind, msg.ID, err)
		respond(event, fmt.Sprintf(sys.ErrPanelSaveFailed, err))
		return
	}

	respond(event, fmt.Sprintf(sys.MsgPanelPosted, target))

	seeded := service.SeedReactions(sys.AppContext, panel)
	sys.LogReaction("Reaction panel %s posted in %s (%d/%d reaction(s) seeded, exclusive=%t)", msg.ID, target, seeded, len(bindings), panel.Exclusive)
}
