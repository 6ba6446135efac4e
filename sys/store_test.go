package sys

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testGuild   snowflake.ID = 100000000000000001
	testChannel snowflake.ID = 200000000000000001
	testMessage snowflake.ID = 300000000000000001
	testRoleA   snowflake.ID = 400000000000000001
	testRoleB   snowflake.ID = 400000000000000002
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAutorole(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	opt, err := s.GetAutorole(ctx, testGuild)
	require.NoError(t, err)
	assert.True(t, opt.IsAbsent())

	require.NoError(t, s.SetAutorole(ctx, testGuild, testRoleA))
	opt, err = s.GetAutorole(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, testRoleA, opt.MustGet())

	require.NoError(t, s.SetAutorole(ctx, testGuild, testRoleB))
	opt, _ = s.GetAutorole(ctx, testGuild)
	assert.Equal(t, testRoleB, opt.MustGet())

	require.NoError(t, s.ClearAutorole(ctx, testGuild))
	opt, err = s.GetAutorole(ctx, testGuild)
	require.NoError(t, err)
	assert.True(t, opt.IsAbsent())
}

func TestPanelRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	p := &Panel{
		Kind:      PanelKindReaction,
		GuildID:   testGuild,
		ChannelID: testChannel,
		MessageID: testMessage,
		Bindings: []RoleBinding{
			{Emoji: "🔵", RoleID: testRoleB},
			{Emoji: "party:700000000000000001", RoleID: testRoleA},
		},
		Exclusive: true,
	}
	require.NoError(t, s.SavePanel(ctx, p))

	opt, err := s.GetPanel(ctx, PanelKindReaction, testMessage)
	require.NoError(t, err)
	got, ok := opt.Get()
	require.True(t, ok)
	assert.Equal(t, p.Bindings, got.Bindings, "binding order preserved")
	assert.True(t, got.Exclusive)
	assert.Equal(t, testChannel, got.ChannelID)
	assert.Equal(t, PanelSchemaVersion, got.SchemaVersion)

	// a reaction panel is not a button panel
	opt, err = s.GetPanel(ctx, PanelKindButton, testMessage)
	require.NoError(t, err)
	assert.True(t, opt.IsAbsent())
}

func TestSavePanelRejectsEmpty(t *testing.T) {
	s := openTestStore(t)
	err := s.SavePanel(context.Background(), &Panel{Kind: PanelKindButton, GuildID: testGuild, MessageID: testMessage})
	assert.Error(t, err)
}

func TestListPanelsOrder(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	ids := []snowflake.ID{300000000000000009, 300000000000000003, 300000000000000005}
	for _, id := range ids {
		require.NoError(t, s.SavePanel(ctx, &Panel{
			Kind: PanelKindReaction, GuildID: testGuild, ChannelID: testChannel, MessageID: id,
			Bindings: []RoleBinding{{Emoji: "✅", RoleID: testRoleA}},
		}))
	}
	require.NoError(t, s.SavePanel(ctx, &Panel{
		Kind: PanelKindButton, GuildID: testGuild, ChannelID: testChannel, MessageID: 300000000000000010,
		Bindings: []RoleBinding{{RoleID: testRoleA}},
	}))

	panels, err := s.ListPanels(ctx, testGuild, PanelKindReaction)
	require.NoError(t, err)
	require.Len(t, panels, 3)
	for i, p := range panels {
		assert.Equal(t, ids[i], p.MessageID)
	}

	n, err := s.CountPanels(ctx, PanelKindButton)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBotConfig(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	v, err := s.GetBotConfig(ctx, "last_cmd_hash")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetBotConfig(ctx, "last_cmd_hash", "abc"))
	require.NoError(t, s.SetBotConfig(ctx, "last_cmd_hash", "def"))
	v, _ = s.GetBotConfig(ctx, "last_cmd_hash")
	assert.Equal(t, "def", v)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reopen.db")

	s, err := OpenStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.SetAutorole(ctx, testGuild, testRoleA))
	require.NoError(t, s.Close())

	s, err = OpenStore(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	opt, err := s.GetAutorole(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, testRoleA, opt.MustGet())
}
