package proc

import (
	"context"
	"fmt"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/rolekeeper/sys"
	"github.com/stretchr/testify/assert"
)

func buttonFixture(exclusive bool) (*fakeDirectory, *Service) {
	dir := newFakeDirectory(guild)
	dir.addRole(red, blue, green)
	store := &fakeStore{panels: []sys.Panel{{
		Kind:      sys.PanelKindButton,
		GuildID:   guild,
		ChannelID: channel,
		MessageID: panelID,
		Bindings:  []sys.RoleBinding{{RoleID: red}, {RoleID: blue}},
		Exclusive: exclusive,
	}}}
	return dir, newTestService(store, dir)
}

func TestToggleButtonInclusive(t *testing.T) {
	ctx := context.Background()
	dir, svc := buttonFixture(false)
	dir.addMember(alice, false, blue)

	out := svc.ToggleButton(ctx, guild, panelID, alice, ButtonCustomID(red))
	assert.Equal(t, ButtonAdded, out.Result)
	assert.Equal(t, fmt.Sprintf("Added <@&%s>.", red), out.Message())
	assert.True(t, dir.holds(alice, red))
	assert.True(t, dir.holds(alice, blue))

	out = svc.ToggleButton(ctx, guild, panelID, alice, ButtonCustomID(red))
	assert.Equal(t, ButtonRemoved, out.Result)
	assert.False(t, dir.holds(alice, red))

	for _, m := range dir.log() {
		assert.Equal(t, ReasonButtonToggle, m.Reason)
	}
}

func TestToggleButtonExclusive(t *testing.T) {
	ctx := context.Background()
	dir, svc := buttonFixture(true)
	dir.addMember(alice, false, blue)

	out := svc.ToggleButton(ctx, guild, panelID, alice, ButtonCustomID(red))

	assert.Equal(t, ButtonNowHas, out.Result)
	assert.Equal(t, fmt.Sprintf("You now have <@&%s>.", red), out.Message())
	assert.True(t, dir.holds(alice, red))
	assert.False(t, dir.holds(alice, blue))
	assert.Equal(t, []mutation{
		{"add", alice, red, ReasonButtonAdd},
		{"remove", alice, blue, ReasonButtonSwitch},
	}, dir.log())

	// clicking the held role again keeps it
	out = svc.ToggleButton(ctx, guild, panelID, alice, ButtonCustomID(red))
	assert.Equal(t, ButtonNowHas, out.Result)
	assert.True(t, dir.holds(alice, red))
}

func TestToggleButtonStale(t *testing.T) {
	ctx := context.Background()
	dir, svc := buttonFixture(false)
	dir.addMember(alice, false)

	cases := []struct {
		name      string
		messageID snowflake.ID
		customID  string
	}{
		{"unknown panel", 300000000000000099, ButtonCustomID(red)},
		{"role not in panel", panelID, ButtonCustomID(green)},
		{"malformed id", panelID, "rr:nope"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := svc.ToggleButton(ctx, guild, tc.messageID, alice, tc.customID)
			assert.Equal(t, ButtonStale, out.Result)
			assert.Equal(t, "This button is stale.", out.Message())
		})
	}
	assert.Empty(t, dir.log())
}

func TestToggleButtonRoleMissing(t *testing.T) {
	ctx := context.Background()
	dir, svc := buttonFixture(false)
	dir.addMember(alice, false)
	delete(dir.roles, blue)

	out := svc.ToggleButton(ctx, guild, panelID, alice, ButtonCustomID(blue))
	assert.Equal(t, ButtonRoleMissing, out.Result)
	assert.Equal(t, "Role missing now.", out.Message())
}

func TestToggleButtonRoleLookupFailure(t *testing.T) {
	ctx := context.Background()
	dir, svc := buttonFixture(false)
	dir.addMember(alice, false)
	dir.failRoleLookup = true

	out := svc.ToggleButton(ctx, guild, panelID, alice, ButtonCustomID(red))
	assert.Equal(t, ButtonFailed, out.Result, "a lookup error is not a deleted role")
	assert.Empty(t, dir.log())
}

func TestToggleButtonFailure(t *testing.T) {
	ctx := context.Background()
	dir, svc := buttonFixture(false)
	dir.addMember(alice, false)
	dir.failMutation[red] = true

	out := svc.ToggleButton(ctx, guild, panelID, alice, ButtonCustomID(red))
	assert.Equal(t, ButtonFailed, out.Result)
	assert.Equal(t, "Failed. Check my role position and permissions.", out.Message())
}

func TestGrantAutorole(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory(guild)
	dir.addRole(green)
	dir.addMember(alice, false)
	store := &fakeStore{autoroles: map[snowflake.ID]snowflake.ID{guild: green}}
	svc := newTestService(store, dir)

	granted, err := svc.GrantAutorole(ctx, guild, alice)
	assert.NoError(t, err)
	assert.True(t, granted)
	assert.Equal(t, []mutation{{"add", alice, green, ReasonAutorole}}, dir.log())

	t.Run("unset", func(t *testing.T) {
		granted, err := svc.GrantAutorole(ctx, 100000000000000009, alice)
		assert.NoError(t, err)
		assert.False(t, granted)
	})

	t.Run("deleted role is skipped", func(t *testing.T) {
		delete(dir.roles, green)
		dir.resetLog()
		granted, err := svc.GrantAutorole(ctx, guild, alice)
		assert.NoError(t, err)
		assert.False(t, granted)
		assert.Empty(t, dir.log())
	})

	t.Run("mutation failure is returned", func(t *testing.T) {
		dir.addRole(green)
		dir.failMutation[green] = true
		_, err := svc.GrantAutorole(ctx, guild, alice)
		assert.Error(t, err)
	})
}
