package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"social-network/backend/internal/constants"
	"social-network/backend/internal/edgetype"
	"social-network/backend/internal/events"
	"social-network/backend/internal/storage"
	"social-network/backend/internal/storage/memory"
	"social-network/backend/internal/storage/storagetest"
	apperrors "social-network/backend/pkg/errors"
)

var start = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, opts ...Option) (*GraphStore, *storagetest.FaultyStore) {
	t.Helper()
	faulty := storagetest.Wrap(memory.New())
	clock := storagetest.NewClock(start, time.Second)
	opts = append([]Option{WithClock(clock.Now), WithLogger(zap.NewNop())}, opts...)
	return New(faulty, edgetype.Default(), opts...), faulty
}

func TestEdge_InverseSymmetry(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestStore(t)
	alice, bob := UserNode("alice"), UserNode("bob")

	e, err := g.Edge(ctx, alice, bob, constants.EdgeFollowerOf, "", nil)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, constants.DefaultSite, e.Site)

	inv, err := g.EdgeGet(ctx, bob, constants.EdgeFollowedBy, alice, "")
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.True(t, inv.CreatedAt.Equal(e.CreatedAt))

	deleted, err := g.NoEdge(ctx, bob, alice, constants.EdgeFollowedBy, "")
	require.NoError(t, err)
	assert.True(t, deleted)

	direct, err := g.EdgeGet(ctx, alice, constants.EdgeFollowerOf, bob, "")
	require.NoError(t, err)
	assert.Nil(t, direct)
	inv, err = g.EdgeGet(ctx, bob, constants.EdgeFollowedBy, alice, "")
	require.NoError(t, err)
	assert.Nil(t, inv)

	deleted, err = g.NoEdge(ctx, alice, bob, constants.EdgeFollowerOf, "")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestEdge_SelfInverseQueryableFromBothEnds(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestStore(t)
	alice, bob := UserNode("alice"), UserNode("bob")

	_, err := g.Edge(ctx, alice, bob, constants.EdgeFriendship, "", nil)
	require.NoError(t, err)

	for _, n := range []storage.Node{alice, bob} {
		count, err := g.EdgeCount(ctx, n, constants.EdgeFriendship, "")
		require.NoError(t, err)
		assert.Equal(t, 1, count, n.String())
	}

	deleted, err := g.NoEdge(ctx, bob, alice, constants.EdgeFriendship, "")
	require.NoError(t, err)
	assert.True(t, deleted)
	count, err := g.EdgeCount(ctx, alice, constants.EdgeFriendship, "")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEdge_IdempotentUpsert(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestStore(t)
	alice, group := UserNode("alice"), GroupNode("g1")

	_, err := g.Edge(ctx, alice, group, constants.EdgeMemberOf, "", RoleAttributes(constants.RoleMember))
	require.NoError(t, err)
	_, err = g.Edge(ctx, alice, group, constants.EdgeMemberOf, "", RoleAttributes(constants.RoleAdmin))
	require.NoError(t, err)

	count, err := g.EdgeCount(ctx, alice, constants.EdgeMemberOf, "")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	e, err := g.EdgeGet(ctx, alice, constants.EdgeMemberOf, group, "")
	require.NoError(t, err)
	assert.Equal(t, constants.RoleAdmin, RoleOf(e))

	inv, err := g.EdgeGet(ctx, group, constants.EdgeIntegratedBy, alice, "")
	require.NoError(t, err)
	assert.Equal(t, constants.RoleAdmin, RoleOf(inv))
}

func TestEdge_SitesArePartitions(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestStore(t)
	alice, bob := UserNode("alice"), UserNode("bob")

	_, err := g.Edge(ctx, alice, bob, constants.EdgeFollowerOf, "site-a", nil)
	require.NoError(t, err)

	count, err := g.EdgeCount(ctx, alice, constants.EdgeFollowerOf, "site-b")
	require.NoError(t, err)
	assert.Zero(t, count)
	count, err = g.EdgeCount(ctx, alice, constants.EdgeFollowerOf, "site-a")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEdgeRange_MostRecentFirst(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestStore(t)
	alice := UserNode("alice")

	for _, id := range []string{"bob", "carol", "dave"} {
		_, err := g.Edge(ctx, alice, UserNode(id), constants.EdgeFollowerOf, "", nil)
		require.NoError(t, err)
	}
	// re-following bob refreshes its timestamp
	_, err := g.Edge(ctx, alice, UserNode("bob"), constants.EdgeFollowerOf, "", nil)
	require.NoError(t, err)

	edges, err := g.EdgeRange(ctx, alice, constants.EdgeFollowerOf, "", 0, Unbounded)
	require.NoError(t, err)
	var got []string
	for _, e := range edges {
		got = append(got, e.Target.ID)
	}
	assert.Equal(t, []string{"bob", "dave", "carol"}, got)

	page, err := g.EdgeRange(ctx, alice, constants.EdgeFollowerOf, "", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "dave", page[0].Target.ID)
}

func TestEdge_UnknownType(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestStore(t)

	_, err := g.Edge(ctx, UserNode("a"), UserNode("b"), "blocks", "", nil)
	var unknown *apperrors.ErrUnknownEdgeType
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "blocks", unknown.Name)

	_, err = g.EdgeCount(ctx, UserNode("a"), "blocks", "")
	assert.ErrorAs(t, err, &unknown)
	_, err = g.NoEdge(ctx, UserNode("a"), UserNode("b"), "blocks", "")
	assert.ErrorAs(t, err, &unknown)
}

func TestEdge_RejectsUnknownAttributes(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestStore(t)

	tests := []struct {
		name  string
		attrs storage.Attributes
	}{
		{"unknown key", storage.Attributes{"color": "blue"}},
		{"unknown role", storage.Attributes{constants.AttrRole: "owner"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Edge(ctx, UserNode("a"), GroupNode("g"), constants.EdgeMemberOf, "", tt.attrs)
			assert.True(t, apperrors.IsValidation(err))

			count, err := g.EdgeCount(ctx, UserNode("a"), constants.EdgeMemberOf, "")
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestEdge_WriteFailureRollsBackBothDirections(t *testing.T) {
	ctx := context.Background()
	rec := &events.Recorder{}
	g, faulty := newTestStore(t, WithSink(rec))
	alice, bob := UserNode("alice"), UserNode("bob")

	// the inverse write fails after the direct edge has been written
	faulty.FailPutEdge(func(e storage.Edge) bool { return e.Type == constants.EdgeFollowedBy })

	err := g.Update(ctx, func(txn *Txn) error {
		txn.Emit(events.New(events.FollowerCreated, "", "alice", "bob", g.Now(), nil))
		_, err := txn.Edge(ctx, alice, bob, constants.EdgeFollowerOf, "", nil)
		return err
	})
	var writeErr *apperrors.ErrGraphWriteFailed
	require.ErrorAs(t, err, &writeErr)
	assert.True(t, apperrors.IsGraphFault(err))
	assert.ErrorIs(t, err, storagetest.ErrInjected)
	assert.Equal(t, 1, faulty.Failures())

	faulty.FailPutEdge(nil)
	e, err := g.EdgeGet(ctx, alice, constants.EdgeFollowerOf, bob, "")
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.Empty(t, rec.Events())
}

func TestUpdate_EventsFlushedAfterCommit(t *testing.T) {
	ctx := context.Background()
	rec := &events.Recorder{}
	g, _ := newTestStore(t, WithSink(rec))

	err := g.Update(ctx, func(txn *Txn) error {
		txn.Emit(events.New(events.FollowerCreated, "", "alice", "bob", g.Now(), nil))
		assert.Empty(t, rec.Events())
		_, err := txn.Edge(ctx, UserNode("alice"), UserNode("bob"), constants.EdgeFollowerOf, "", nil)
		return err
	})
	require.NoError(t, err)
	assert.Len(t, rec.OfType(events.FollowerCreated), 1)
}

func TestUpdate_CancelledContext(t *testing.T) {
	g, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Update(ctx, func(*Txn) error { return nil })
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeContext))
}

func TestWithDefaultSite(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestStore(t, WithDefaultSite("tenant-1"))

	e, err := g.Edge(ctx, UserNode("a"), UserNode("b"), constants.EdgeFollowerOf, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", e.Site)
	assert.Equal(t, "tenant-1", g.DefaultSite())
}
