package proc

import (
	"context"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanConvergence(t *testing.T) {
	panel := []snowflake.ID{red, blue, green}

	t.Run("exclusive keeps first desired in panel order", func(t *testing.T) {
		m := Member{UserID: alice, RoleIDs: []snowflake.ID{green}}
		plan := planConvergence(m, panel, []snowflake.ID{blue, red}, true)
		assert.Equal(t, []snowflake.ID{red}, plan.Add)
		assert.Equal(t, []snowflake.ID{green}, plan.Remove)
	})

	t.Run("exclusive already converged is empty", func(t *testing.T) {
		m := Member{UserID: alice, RoleIDs: []snowflake.ID{blue}}
		assert.True(t, planConvergence(m, panel, []snowflake.ID{blue}, true).Empty())
	})

	t.Run("exclusive drops undesired held roles", func(t *testing.T) {
		m := Member{UserID: alice, RoleIDs: []snowflake.ID{red, blue, green}}
		plan := planConvergence(m, panel, []snowflake.ID{blue}, true)
		assert.Empty(t, plan.Add)
		assert.Equal(t, []snowflake.ID{red, green}, plan.Remove)
	})

	t.Run("inclusive only adds", func(t *testing.T) {
		m := Member{UserID: alice, RoleIDs: []snowflake.ID{green}}
		plan := planConvergence(m, panel, []snowflake.ID{red, blue}, false)
		assert.Equal(t, []snowflake.ID{red, blue}, plan.Add)
		assert.Empty(t, plan.Remove)
	})

	t.Run("roles outside the panel are never touched", func(t *testing.T) {
		var outsider snowflake.ID = 999999999999999999
		m := Member{UserID: alice, RoleIDs: []snowflake.ID{outsider, red}}
		plan := planConvergence(m, panel, []snowflake.ID{blue}, true)
		assert.NotContains(t, plan.Remove, outsider)
	})
}

func TestReconcileExclusive(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory(guild)
	dir.addMember(alice, false, red)
	dir.addMember(bob, false)

	snap := NewSnapshot([]snowflake.ID{red, blue})
	// alice reacted to both; red comes first in the panel so it survives
	snap.Add(blue, alice)
	snap.Add(red, alice)
	snap.Add(blue, bob)

	engine := NewEngine(dir, UnpacedPacing())
	stats := engine.Reconcile(ctx, guild, snap, true)

	assert.Equal(t, 2, stats.Members)
	assert.True(t, dir.holds(alice, red))
	assert.False(t, dir.holds(alice, blue))
	assert.True(t, dir.holds(bob, blue))
	assert.Equal(t, 1, stats.Added)
	assert.Zero(t, stats.Removed)

	for _, m := range dir.log() {
		assert.Equal(t, ReasonSyncExclusive, m.Reason)
	}
}

func TestReconcileAddsBeforeRemoves(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory(guild)
	dir.addMember(alice, false, red)

	snap := NewSnapshot([]snowflake.ID{red, blue})
	snap.Add(blue, alice)

	NewEngine(dir, UnpacedPacing()).Reconcile(ctx, guild, snap, true)

	log := dir.log()
	require.Len(t, log, 2)
	assert.Equal(t, mutation{"add", alice, blue, ReasonSyncExclusive}, log[0])
	assert.Equal(t, mutation{"remove", alice, red, ReasonSyncExclusiveCleanup}, log[1])
}

func TestReconcileIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory(guild)
	dir.addMember(alice, false, red, green)
	dir.addMember(bob, false)
	dir.addMember(carol, false, blue)

	for _, exclusive := range []bool{true, false} {
		snap := NewSnapshot([]snowflake.ID{red, blue, green})
		snap.Add(blue, alice)
		snap.Add(red, bob)
		snap.Add(green, bob)
		snap.Add(blue, carol)

		engine := NewEngine(dir, UnpacedPacing())
		engine.Reconcile(ctx, guild, snap, exclusive)
		dir.resetLog()

		second := engine.Reconcile(ctx, guild, snap, exclusive)
		assert.Zero(t, second.Mutations(), "exclusive=%v", exclusive)
		assert.Empty(t, dir.log(), "exclusive=%v", exclusive)
	}
}

func TestReconcileExclusivityInvariant(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory(guild)
	roles := []snowflake.ID{red, blue, green}
	dir.addMember(alice, false, red, blue, green)
	dir.addMember(bob, false, green)
	dir.addMember(carol, false, red, blue)

	snap := NewSnapshot(roles)
	snap.Add(green, alice)
	snap.Add(blue, alice)
	snap.Add(red, bob)
	snap.Add(green, bob)
	snap.Add(blue, carol)

	NewEngine(dir, UnpacedPacing()).Reconcile(ctx, guild, snap, true)

	for _, u := range []snowflake.ID{alice, bob, carol} {
		assert.LessOrEqual(t, len(dir.heldPanelRoles(u, roles)), 1, "user %s", u)
	}
	assert.Equal(t, []snowflake.ID{blue}, dir.heldPanelRoles(alice, roles))
	assert.Equal(t, []snowflake.ID{red}, dir.heldPanelRoles(bob, roles))
}

func TestReconcileInclusiveConvergence(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory(guild)
	dir.addMember(alice, false, green)

	snap := NewSnapshot([]snowflake.ID{red, blue, green})
	snap.Add(red, alice)

	stats := NewEngine(dir, UnpacedPacing()).Reconcile(ctx, guild, snap, false)

	assert.Equal(t, 1, stats.Added)
	assert.True(t, dir.holds(alice, red))
	assert.True(t, dir.holds(alice, green), "inclusive pass never removes")
	assert.Equal(t, []mutation{{"add", alice, red, ReasonSyncMulti}}, dir.log())
}

func TestReconcileIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory(guild)
	dir.addMember(alice, false)
	dir.addMember(bob, false)
	dir.addMember(carol, false)
	dir.failMember[alice] = true
	dir.failMutation[blue] = true

	snap := NewSnapshot([]snowflake.ID{red, blue})
	snap.Add(red, alice)
	snap.Add(blue, bob)
	snap.Add(red, bob)
	snap.Add(red, carol)

	stats := NewEngine(dir, UnpacedPacing()).Reconcile(ctx, guild, snap, false)

	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Failed)
	assert.True(t, dir.holds(bob, red))
	assert.True(t, dir.holds(carol, red))
	assert.False(t, dir.holds(bob, blue))
}

func TestReconcileHandlesEachMemberOnce(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory(guild)
	dir.addMember(alice, false)

	snap := NewSnapshot([]snowflake.ID{red, blue, green})
	snap.Add(red, alice)
	snap.Add(blue, alice)
	snap.Add(green, alice)

	stats := NewEngine(dir, UnpacedPacing()).Reconcile(ctx, guild, snap, false)
	assert.Equal(t, 1, stats.Members)
	assert.Equal(t, 3, stats.Added)
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory(guild)
	dir.addMember(alice, false, red, blue)
	dir.addMember(bob, false, red)
	dir.addMember(carol, false)

	snap := NewSnapshot([]snowflake.ID{red, blue})
	snap.Add(red, bob)

	stats, err := NewEngine(dir, UnpacedPacing()).Cleanup(ctx, guild, snap)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Members)
	assert.Equal(t, 2, stats.Removed)
	assert.False(t, dir.holds(alice, red))
	assert.False(t, dir.holds(alice, blue))
	assert.True(t, dir.holds(bob, red), "still reacting, keeps the role")
	for _, m := range dir.log() {
		assert.Equal(t, ReasonSyncCleanup, m.Reason)
	}
}

func TestCleanupAbortsOnListingFailure(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory(guild)
	dir.addMember(alice, false, red)
	dir.failMembers = true

	_, err := NewEngine(dir, UnpacedPacing()).Cleanup(ctx, guild, NewSnapshot([]snowflake.ID{red}))
	assert.Error(t, err)
	assert.True(t, dir.holds(alice, red))
}
