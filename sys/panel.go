package sys

import (
	"regexp"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

// PanelSchemaVersion is the shape every stored panel is upgraded to at open.
const PanelSchemaVersion = 2

type PanelKind string

const (
	PanelKindButton   PanelKind = "button"
	PanelKindReaction PanelKind = "reaction"
)

// RoleBinding ties one role to its trigger. Emoji is empty on button panels.
type RoleBinding struct {
	Emoji  string       `json:"emoji,omitempty"`
	Label  string       `json:"label,omitempty"`
	RoleID snowflake.ID `json:"role_id"`
}

// Panel is a posted message whose buttons or reactions grant roles.
// Bindings keep creation order; exclusive panels resolve ties to the earliest binding.
type Panel struct {
	Kind          PanelKind
	GuildID       snowflake.ID
	ChannelID     snowflake.ID
	MessageID     snowflake.ID
	Bindings      []RoleBinding
	Exclusive     bool
	SchemaVersion int
}

func (p *Panel) RoleIDs() []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(p.Bindings))
	for _, b := range p.Bindings {
		ids = append(ids, b.RoleID)
	}
	return ids
}

func (p *Panel) Contains(roleID snowflake.ID) bool {
	for _, b := range p.Bindings {
		if b.RoleID == roleID {
			return true
		}
	}
	return false
}

// RoleForEmoji matches on the normalized emoji key.
func (p *Panel) RoleForEmoji(emoji string) (snowflake.ID, bool) {
	key := NormalizeEmoji(emoji)
	for _, b := range p.Bindings {
		if b.Emoji == key {
			return b.RoleID, true
		}
	}
	return 0, false
}

// --- Emoji keys ---

var customEmojiRe = regexp.MustCompile(`^<a?:([A-Za-z0-9_~]+):([0-9]{15,21})>$`)

// NormalizeEmoji maps the chat form of an emoji to the key used for storage and
// reaction calls: custom emojis become "name:id", unicode is kept as typed.
func NormalizeEmoji(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := customEmojiRe.FindStringSubmatch(raw); m != nil {
		return m[1] + ":" + m[2]
	}
	return raw
}

// EmojiKey builds the same key from a gateway reaction emoji.
func EmojiKey(e discord.PartialEmoji) string {
	name := ""
	if e.Name != nil {
		name = *e.Name
	}
	if e.ID != nil && *e.ID != 0 {
		return name + ":" + e.ID.String()
	}
	return name
}

// ReactionEmojiKey is EmojiKey for the reactions listed on a fetched message.
func ReactionEmojiKey(e discord.Emoji) string {
	if e.ID != 0 {
		return e.Name + ":" + e.ID.String()
	}
	return e.Name
}

// EmojiMention renders a stored key back into message text.
func EmojiMention(key string) string {
	name, id, ok := strings.Cut(key, ":")
	if !ok || id == "" {
		return key
	}
	if _, err := snowflake.Parse(id); err != nil {
		return key
	}
	return "<:" + name + ":" + id + ">"
}
