package proc

import (
	"context"
	"errors"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/rolekeeper/sys"
)

var (
	ErrEmptyPanel     = errors.New("panel has no bindings")
	ErrDuplicateRole  = errors.New("role bound twice")
	ErrDuplicateEmoji = errors.New("emoji bound twice")
)

// SetMemberRole is the manual /role path. The audit reason names the moderator.
func (s *Service) SetMemberRole(ctx context.Context, guildID, userID, roleID snowflake.ID, grant bool, actor string) error {
	reason := "by " + actor
	dir := s.Directory()

	op := "remove"
	var err error
	if grant {
		op = "add"
		err = dir.AddRole(ctx, guildID, userID, roleID, reason)
	} else {
		err = dir.RemoveRole(ctx, guildID, userID, roleID, reason)
	}
	if err != nil {
		sys.RoleMutations.WithLabelValues(op, string(SourceCommand), "error").Inc()
		return fmt.Errorf("failed to %s role %s: %w", op, roleID, err)
	}
	sys.RoleMutations.WithLabelValues(op, string(SourceCommand), "ok").Inc()
	return nil
}

// ValidateBindings rejects empty panels and repeated roles or emojis. Emojis
// are compared by their normalized key.
func ValidateBindings(kind sys.PanelKind, bindings []sys.RoleBinding) error {
	if len(bindings) == 0 {
		return ErrEmptyPanel
	}
	roles := make(map[snowflake.ID]struct{}, len(bindings))
	emojis := make(map[string]struct{}, len(bindings))
	for _, b := range bindings {
		if _, dup := roles[b.RoleID]; dup {
			return ErrDuplicateRole
		}
		roles[b.RoleID] = struct{}{}

		if kind != sys.PanelKindReaction {
			continue
		}
		key := sys.NormalizeEmoji(b.Emoji)
		if key == "" {
			return ErrEmptyPanel
		}
		if _, dup := emojis[key]; dup {
			return ErrDuplicateEmoji
		}
		emojis[key] = struct{}{}
	}
	return nil
}
