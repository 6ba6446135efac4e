package proc

import (
	"context"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/rolekeeper/sys"
)

// GrantAutorole gives a new member the guild's autorole, if one is set and
// still exists. Returns whether a role was granted.
func (s *Service) GrantAutorole(ctx context.Context, guildID, userID snowflake.ID) (bool, error) {
	opt, err := s.store.GetAutorole(ctx, guildID)
	if err != nil {
		return false, fmt.Errorf("failed to read autorole: %w", err)
	}
	roleID, ok := opt.Get()
	if !ok {
		return false, nil
	}

	dir := s.Directory()
	exists, err := dir.RoleExists(ctx, guildID, roleID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve autorole %s: %w", roleID, err)
	}
	if !exists {
		return false, nil
	}

	if err := dir.AddRole(ctx, guildID, userID, roleID, ReasonAutorole); err != nil {
		sys.RoleMutations.WithLabelValues("add", string(SourceAutorole), "error").Inc()
		return false, err
	}
	sys.RoleMutations.WithLabelValues("add", string(SourceAutorole), "ok").Inc()
	sys.LogAutorole(sys.MsgAutoroleGranted, roleID, userID, guildID)
	return true, nil
}
