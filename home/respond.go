package home

import (
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/leeineian/rolekeeper/proc"
	"github.com/leeineian/rolekeeper/sys"
)

// Bound once in main before the gateway opens.
var (
	service *proc.Service
	store   *sys.Store
)

// Bind hands the command handlers their service and store.
func Bind(svc *proc.Service, st *sys.Store) {
	service = svc
	store = st
}

type messageCreator interface {
	CreateMessage(messageCreate discord.MessageCreate, opts ...rest.RequestOpt) error
}

func quote(content string) string {
	if strings.HasPrefix(content, "#") || strings.HasPrefix(content, ">") {
		return content
	}
	return "> " + content
}

// respond sends an ephemeral reply in a V2 container.
func respond(event messageCreator, content string) {
	_ = event.CreateMessage(discord.NewMessageCreate().
		WithIsComponentsV2(true).
		AddComponents(
			discord.NewContainer(
				discord.NewTextDisplay(quote(content)),
			),
		).
		WithEphemeral(true))
}

// editDeferred fills in a response opened with DeferCreateMessage.
func editDeferred(event *events.ApplicationCommandInteractionCreate, content string) {
	_, _ = event.Client().Rest.UpdateInteractionResponse(event.ApplicationID(), event.Token(), discord.NewMessageUpdate().
		WithIsComponentsV2(true).
		AddComponents(
			discord.NewContainer(
				discord.NewTextDisplay(quote(content)),
			),
		))
}

// manageRolesPerm is the default member permission of every command here.
var manageRolesPerm = discord.PermissionManageRoles
