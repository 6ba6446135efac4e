package proc

import (
	"context"
	"testing"

	"github.com/leeineian/rolekeeper/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetMemberRole(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory(guild)
	dir.addRole(red)
	dir.addMember(alice, false)
	svc := newTestService(&fakeStore{}, dir)

	require.NoError(t, svc.SetMemberRole(ctx, guild, alice, red, true, "mod"))
	assert.True(t, dir.holds(alice, red))

	require.NoError(t, svc.SetMemberRole(ctx, guild, alice, red, false, "mod"))
	assert.False(t, dir.holds(alice, red))

	log := dir.log()
	require.Len(t, log, 2)
	assert.Equal(t, "by mod", log[0].Reason)
	assert.Equal(t, "remove", log[1].Op)

	dir.failMutation[red] = true
	assert.Error(t, svc.SetMemberRole(ctx, guild, alice, red, true, "mod"))
}

func TestValidateBindings(t *testing.T) {
	cases := []struct {
		name     string
		kind     sys.PanelKind
		bindings []sys.RoleBinding
		want     error
	}{
		{"empty", sys.PanelKindButton, nil, ErrEmptyPanel},
		{"buttons ok", sys.PanelKindButton, []sys.RoleBinding{{RoleID: red}, {RoleID: blue}}, nil},
		{"duplicate role", sys.PanelKindButton, []sys.RoleBinding{{RoleID: red}, {RoleID: red}}, ErrDuplicateRole},
		{"reaction ok", sys.PanelKindReaction, []sys.RoleBinding{bind("🔴", red), bind("🔵", blue)}, nil},
		{"missing emoji", sys.PanelKindReaction, []sys.RoleBinding{bind("", red)}, ErrEmptyPanel},
		{
			"same custom emoji in two forms", sys.PanelKindReaction,
			[]sys.RoleBinding{bind("<:party:700000000000000001>", red), bind("party:700000000000000001", blue)},
			ErrDuplicateEmoji,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateBindings(tc.kind, tc.bindings), tc.want)
		})
	}
}
