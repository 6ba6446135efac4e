package proc

import "github.com/disgoorg/snowflake/v2"

// Snapshot maps each panel role to the members currently asking for it.
// Role order is panel order; members keep the order they were first seen in.
type Snapshot struct {
	roles   []snowflake.ID
	members map[snowflake.ID][]snowflake.ID
	desire  map[snowflake.ID]map[snowflake.ID]struct{}
}

func NewSnapshot(roleIDs []snowflake.ID) *Snapshot {
	s := &Snapshot{
		members: make(map[snowflake.ID][]snowflake.ID, len(roleIDs)),
		desire:  make(map[snowflake.ID]map[snowflake.ID]struct{}, len(roleIDs)),
	}
	for _, id := range roleIDs {
		if _, dup := s.desire[id]; dup {
			continue
		}
		s.roles = append(s.roles, id)
		s.desire[id] = make(map[snowflake.ID]struct{})
	}
	return s
}

// Add records that userID wants roleID. Roles outside the panel are ignored.
func (s *Snapshot) Add(roleID, userID snowflake.ID) {
	set, ok := s.desire[roleID]
	if !ok {
		return
	}
	if _, seen := set[userID]; seen {
		return
	}
	set[userID] = struct{}{}
	s.members[roleID] = append(s.members[roleID], userID)
}

func (s *Snapshot) Roles() []snowflake.ID {
	return s.roles
}

func (s *Snapshot) Desires(userID, roleID snowflake.ID) bool {
	_, ok := s.desire[roleID][userID]
	return ok
}

func (s *Snapshot) DesiresAny(userID snowflake.ID) bool {
	for _, set := range s.desire {
		if _, ok := set[userID]; ok {
			return true
		}
	}
	return false
}

// DesiredRoles lists userID's wanted roles in panel order.
func (s *Snapshot) DesiredRoles(userID snowflake.ID) []snowflake.ID {
	var out []snowflake.ID
	for _, r := range s.roles {
		if s.Desires(userID, r) {
			out = append(out, r)
		}
	}
	return out
}

// Members lists every desiring member once, walking roles in panel order.
func (s *Snapshot) Members() []snowflake.ID {
	seen := make(map[snowflake.ID]struct{})
	var out []snowflake.ID
	for _, r := range s.roles {
		for _, u := range s.members[r] {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}

func (s *Snapshot) Count(roleID snowflake.ID) int {
	return len(s.desire[roleID])
}
