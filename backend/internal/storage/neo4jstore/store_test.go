package neo4jstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-network/backend/internal/storage"
)

func TestSanitizeRelType(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"follower_of", "FOLLOWER_OF"},
		{"friendship", "FRIENDSHIP"},
		{"member-of; DROP", "MEMBEROFDROP"},
		{"", "RELATED_TO"},
		{"!!", "RELATED_TO"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeRelType(tt.in))
		})
	}
}

func TestEdgePropsRoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 30, 0, 123, time.UTC)
	e := storage.Edge{
		Site:       "default",
		Attributes: storage.Attributes{"role": "admin"},
		CreatedAt:  at,
	}

	props := edgeProps(e, 42)
	assert.Equal(t, "default", props["site"])
	assert.Equal(t, "admin", props["attr_role"])
	assert.Equal(t, int64(42), props["written_at"])

	assert.Equal(t, storage.Attributes{"role": "admin"}, attributesFromProps(props))
	assert.True(t, getTimeFromMap(props, "created_at").Equal(at))
}

func TestAttributesFromProps_NoAttributes(t *testing.T) {
	assert.Nil(t, attributesFromProps(map[string]interface{}{"site": "default", "created_at": int64(1)}))
}

func TestPageClause(t *testing.T) {
	clause, params := pageClause(0, storage.Unbounded)
	assert.Empty(t, clause)
	assert.Empty(t, params)

	clause, params = pageClause(0, 0)
	assert.Equal(t, " LIMIT $limit", clause)
	assert.Equal(t, int64(0), params["limit"])

	clause, params = pageClause(10, 5)
	assert.Equal(t, " SKIP $offset LIMIT $limit", clause)
	assert.Equal(t, int64(10), params["offset"])
	assert.Equal(t, int64(5), params["limit"])
}

func TestRecordConversions(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	g := storage.Group{ID: "g1", Site: "default", Slug: "gophers", Name: "Gophers", Creator: "alice", Closed: true, CreatedAt: at}
	assert.Equal(t, g, groupFromProps(groupProps(g)))

	fr := storage.FriendRequest{ID: "r1", FromUser: "alice", ToUser: "bob", Site: "default", Accepted: true, CreatedAt: at}
	assert.Equal(t, fr, friendRequestFromProps(friendRequestProps(fr)))

	pc := storage.ProfileComment{ID: "c1", Site: "default", Creator: "alice", Receiver: "bob", Comment: "hi", CreatedAt: at}
	assert.Equal(t, pc, profileCommentFromProps(profileCommentProps(pc)))

	mr := storage.MembershipRequest{ID: "r2", Requester: "bob", GroupID: "g1", Denied: true, Acceptor: "alice", CreatedAt: at}
	assert.Equal(t, mr, membershipRequestFromProps(membershipRequestProps(mr)))

	f := storage.FeedItem{ID: "f1", GroupID: "g1", Site: "default", EventID: "e1", EventType: "group_post_created", Actor: "alice", TargetID: "p1", EventAt: at}
	assert.Equal(t, f, feedItemFromProps(feedItemProps(f)))
}

// Integration tests require a running Neo4j instance.
// Set NEO4J_TEST_URI, NEO4J_TEST_USER, NEO4J_TEST_PASSWORD.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	uri := os.Getenv("NEO4J_TEST_URI")
	if uri == "" {
		t.Skip("NEO4J_TEST_URI not set")
	}

	ctx := context.Background()
	s, err := Open(ctx, uri, os.Getenv("NEO4J_TEST_USER"), os.Getenv("NEO4J_TEST_PASSWORD"), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(ctx) })
	return s
}

func TestStore_EdgeLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	site := "test-" + uuid.NewString()
	a := storage.Node{Kind: "user", ID: uuid.NewString()}
	b := storage.Node{Kind: "user", ID: uuid.NewString()}
	c := storage.Node{Kind: "user", ID: uuid.NewString()}
	now := time.Now().UTC()

	t.Cleanup(func() {
		session := s.Driver().NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
		defer session.Close(ctx)
		_, _ = session.Run(ctx, "MATCH (n:Entity) WHERE n.key IN $keys DETACH DELETE n",
			map[string]interface{}{"keys": []string{a.String(), b.String(), c.String()}})
	})

	require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
		if err := tx.PutEdge(ctx, storage.Edge{Source: a, Type: "follower_of", Target: b, Site: site, CreatedAt: now}); err != nil {
			return err
		}
		return tx.PutEdge(ctx, storage.Edge{Source: a, Type: "follower_of", Target: c, Site: site, CreatedAt: now.Add(time.Second),
			Attributes: storage.Attributes{"role": "member"}})
	}))

	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		n, err := tx.CountEdges(ctx, a, "follower_of", site)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		edges, err := tx.RangeEdges(ctx, a, "follower_of", site, 0, storage.Unbounded)
		require.NoError(t, err)
		require.Len(t, edges, 2)
		assert.Equal(t, c, edges[0].Target)
		assert.Equal(t, "member", edges[0].Attributes["role"])
		return nil
	}))

	require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
		deleted, err := tx.DeleteEdge(ctx, storage.EdgeKey{Source: a, Type: "follower_of", Target: b, Site: site})
		require.NoError(t, err)
		assert.True(t, deleted)
		deleted, err = tx.DeleteEdge(ctx, storage.EdgeKey{Source: a, Type: "follower_of", Target: b, Site: site})
		require.NoError(t, err)
		assert.False(t, deleted)
		return nil
	}))
}

func TestStore_PostAndCommentLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	site := "test-" + uuid.NewString()
	groupID := uuid.NewString()
	postID := uuid.NewString()
	receiver := uuid.NewString()
	now := time.Now().UTC()

	t.Cleanup(func() {
		session := s.Driver().NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
		defer session.Close(ctx)
		_, _ = session.Run(ctx, "MATCH (n) WHERE (n:GroupPost OR n:GroupFeedItem) AND n.group_id = $group DETACH DELETE n",
			map[string]interface{}{"group": groupID})
		_, _ = session.Run(ctx, "MATCH (n:ProfileComment {receiver: $receiver}) DETACH DELETE n",
			map[string]interface{}{"receiver": receiver})
	})

	require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
		require.NoError(t, tx.PutPost(ctx, storage.Post{ID: postID, GroupID: groupID, Creator: "alice", CreatedAt: now}))
		_, err := tx.PutFeedItem(ctx, storage.FeedItem{ID: uuid.NewString(), GroupID: groupID, Site: site, EventID: uuid.NewString(), TargetID: postID, EventAt: now})
		require.NoError(t, err)
		for i, text := range []string{"first", "second"} {
			require.NoError(t, tx.PutProfileComment(ctx, storage.ProfileComment{
				ID: uuid.NewString(), Site: site, Creator: "alice", Receiver: receiver, Comment: text,
				CreatedAt: now.Add(time.Duration(i) * time.Second),
			}))
		}
		return nil
	}))

	require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
		deleted, err := tx.DeletePost(ctx, postID)
		require.NoError(t, err)
		assert.True(t, deleted)
		n, err := tx.DeleteFeedItems(ctx, groupID, postID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		return nil
	}))

	require.NoError(t, s.View(ctx, func(tx storage.Tx) error {
		_, err := tx.GetPost(ctx, postID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		comments, err := tx.ProfileComments(ctx, receiver, site, 0, storage.Unbounded)
		require.NoError(t, err)
		require.Len(t, comments, 2)
		assert.Equal(t, "second", comments[0].Comment)

		none, err := tx.ProfileComments(ctx, receiver, site, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, none)
		return nil
	}))
}
