package proc

import (
	"context"
	"errors"
	"slices"

	"github.com/disgoorg/snowflake/v2"
)

// ErrNotFound is returned by a Directory when the message, member or role is gone.
var ErrNotFound = errors.New("not found")

// ReactorPageSize is the largest page the remote service returns for reactors.
const ReactorPageSize = 100

type Member struct {
	UserID  snowflake.ID
	Bot     bool
	RoleIDs []snowflake.ID
}

func (m Member) HasRole(roleID snowflake.ID) bool {
	return slices.Contains(m.RoleIDs, roleID)
}

type Reactor struct {
	UserID snowflake.ID
	Bot    bool
}

// Message is the part of a posted message the engine cares about.
// Emojis lists the reaction keys currently present on it.
type Message struct {
	ID        snowflake.ID
	ChannelID snowflake.ID
	GuildID   snowflake.ID
	Emojis    []string
}

func (m Message) HasEmoji(key string) bool {
	return slices.Contains(m.Emojis, key)
}

// Directory is the remote service holding members, roles and messages.
// Every call may fail independently.
type Directory interface {
	FetchMessage(ctx context.Context, channelID, messageID snowflake.ID) (Message, error)
	// FetchReactors returns up to limit users after the cursor (0 for the first page).
	FetchReactors(ctx context.Context, channelID, messageID snowflake.ID, emoji string, after snowflake.ID, limit int) ([]Reactor, error)
	FetchMember(ctx context.Context, guildID, userID snowflake.ID) (Member, error)
	// FetchMembers lists the whole guild.
	FetchMembers(ctx context.Context, guildID snowflake.ID) ([]Member, error)
	RoleExists(ctx context.Context, guildID, roleID snowflake.ID) (bool, error)
	AddRole(ctx context.Context, guildID, userID, roleID snowflake.ID, reason string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID snowflake.ID, reason string) error
	AddReaction(ctx context.Context, channelID, messageID snowflake.ID, emoji string) error
	RemoveReaction(ctx context.Context, channelID, messageID snowflake.ID, emoji string, userID snowflake.ID) error
	ListGuilds(ctx context.Context) ([]snowflake.ID, error)
}
