package feed

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
	"social-network/backend/internal/graph"
	"social-network/backend/internal/social"
	"social-network/backend/internal/storage"
	"social-network/backend/internal/storage/memory"
	"social-network/backend/internal/storage/storagetest"
	apperrors "social-network/backend/pkg/errors"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	social    *social.Service
	projector *Projector
	rec       *events.Recorder
	group     storage.Group
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	rec := &events.Recorder{}
	clock := storagetest.NewClock(t0, time.Second)
	g := graph.New(memory.New(), edgetype.Default(),
		graph.WithClock(clock.Now),
		graph.WithLogger(zap.NewNop()),
		graph.WithSink(rec),
	)
	svc := social.NewService(g)
	group, err := svc.CreateGroup(context.Background(), social.NewGroup{Name: "Readers", Creator: "alice", Site: "books"})
	require.NoError(t, err)
	return fixture{social: svc, projector: NewProjector(g), rec: rec, group: group}
}

func (f fixture) postEvent(at time.Time, site string) events.Event {
	return events.New(events.GroupPostCreated, site, "alice", "post", at, map[string]string{FieldGroupID: f.group.ID})
}

func TestCreatePost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	post, err := f.projector.CreatePost(ctx, NewPost{GroupID: f.group.ID, Creator: "alice", Comment: "first!", URL: "https://example.com"})
	require.NoError(t, err)

	got, err := f.projector.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post, got)

	created := f.rec.OfType(events.GroupPostCreated)
	require.Len(t, created, 1)
	assert.Equal(t, "books", created[0].Site)
	assert.Equal(t, post.ID, created[0].Subject)

	items, err := f.projector.Feed(ctx, f.group.ID, "", 0, graph.Unbounded)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, created[0].ID, items[0].EventID)
	assert.Equal(t, post.ID, items[0].TargetID)
	assert.Equal(t, "books", items[0].Site)

	// projecting the delivered event again is a no-op
	stored, err := f.projector.Project(ctx, created[0])
	require.NoError(t, err)
	assert.False(t, stored)
	items, err = f.projector.Feed(ctx, f.group.ID, "", 0, graph.Unbounded)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCreatePost_MembersOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.projector.CreatePost(ctx, NewPost{GroupID: f.group.ID, Creator: "mallory", Comment: "spam"})
	assert.True(t, apperrors.IsValidation(err))

	ok, err := f.social.Join(ctx, f.group.ID, "bob")
	require.NoError(t, err)
	require.True(t, ok)
	_, err = f.projector.CreatePost(ctx, NewPost{GroupID: f.group.ID, Creator: "bob", Comment: "hello"})
	require.NoError(t, err)

	_, err = f.projector.CreatePost(ctx, NewPost{GroupID: "missing", Creator: "bob", Comment: "hello"})
	assert.True(t, apperrors.IsNotFound(err))
	_, err = f.projector.CreatePost(ctx, NewPost{GroupID: f.group.ID, Creator: "bob", Comment: " "})
	assert.True(t, apperrors.IsValidation(err))

	assert.Len(t, f.rec.OfType(events.GroupPostCreated), 1)
}

func TestFeed_OrderedByEventTime(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	t1, t2, t3 := t0.Add(time.Hour), t0.Add(2*time.Hour), t0.Add(3*time.Hour)

	for _, at := range []time.Time{t1, t3, t2} {
		stored, err := f.projector.Project(ctx, f.postEvent(at, "books"))
		require.NoError(t, err)
		assert.True(t, stored)
	}

	items, err := f.projector.Feed(ctx, f.group.ID, "books", 0, graph.Unbounded)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.True(t, items[0].EventAt.Equal(t3))
	assert.True(t, items[1].EventAt.Equal(t2))
	assert.True(t, items[2].EventAt.Equal(t1))

	page, err := f.projector.Feed(ctx, f.group.ID, "books", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.True(t, page[0].EventAt.Equal(t2))
}

func TestProject_SiteFallbackAndIgnoredTypes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	stored, err := f.projector.Project(ctx, f.postEvent(t0, ""))
	require.NoError(t, err)
	assert.True(t, stored)

	items, err := f.projector.Feed(ctx, f.group.ID, constants.DefaultSite, 0, graph.Unbounded)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	stored, err = f.projector.Project(ctx, events.New(events.FollowerCreated, "", "a", "b", t0, nil))
	require.NoError(t, err)
	assert.False(t, stored)

	_, err = f.projector.Project(ctx, events.New(events.GroupPostCreated, "", "a", "p", t0, nil))
	assert.True(t, apperrors.IsValidation(err))
}

func TestUpdatePost_CreatorOrAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.social.Join(ctx, f.group.ID, "bob")
	require.NoError(t, err)
	_, err = f.social.Join(ctx, f.group.ID, "carol")
	require.NoError(t, err)
	require.NoError(t, f.social.AddAdministrators(ctx, f.group.ID, []string{"dave"}))

	post, err := f.projector.CreatePost(ctx, NewPost{GroupID: f.group.ID, Creator: "bob", Comment: "draft"})
	require.NoError(t, err)

	text := "edited by carol"
	_, ok, err := f.projector.UpdatePost(ctx, post.ID, "carol", PostUpdate{Comment: &text})
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = f.projector.UpdatePost(ctx, post.ID, "", PostUpdate{Comment: &text})
	require.NoError(t, err)
	assert.False(t, ok)

	text, url := "final", "https://example.com/final"
	updated, ok, err := f.projector.UpdatePost(ctx, post.ID, "bob", PostUpdate{Comment: &text, URL: &url})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "final", updated.Comment)
	assert.Equal(t, url, updated.URL)
	assert.True(t, updated.CreatedAt.Equal(post.CreatedAt))

	text = "moderated"
	_, ok, err = f.projector.UpdatePost(ctx, post.ID, "dave", PostUpdate{Comment: &text})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := f.projector.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "moderated", got.Comment)
	assert.Equal(t, url, got.URL)

	blank := " "
	_, _, err = f.projector.UpdatePost(ctx, post.ID, "bob", PostUpdate{Comment: &blank})
	assert.True(t, apperrors.IsValidation(err))
	_, _, err = f.projector.UpdatePost(ctx, "missing", "bob", PostUpdate{Comment: &text})
	assert.True(t, apperrors.IsNotFound(err))

	assert.Len(t, f.rec.OfType(events.GroupPostUpdated), 2)
}

func TestDeletePost_RemovesFeedItems(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	post, err := f.projector.CreatePost(ctx, NewPost{GroupID: f.group.ID, Creator: "alice", Comment: "bye"})
	require.NoError(t, err)
	other, err := f.projector.CreatePost(ctx, NewPost{GroupID: f.group.ID, Creator: "alice", Comment: "stays"})
	require.NoError(t, err)

	// the same post projected into a second site
	mirrored := events.New(events.GroupPostCreated, "mirror", "alice", post.ID, t0, map[string]string{FieldGroupID: f.group.ID})
	_, err = f.projector.Project(ctx, mirrored)
	require.NoError(t, err)

	ok, err := f.projector.DeletePost(ctx, post.ID, "mallory")
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = f.projector.GetPost(ctx, post.ID)
	require.NoError(t, err)

	ok, err = f.projector.DeletePost(ctx, post.ID, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.projector.GetPost(ctx, post.ID)
	assert.True(t, apperrors.IsNotFound(err))

	items, err := f.projector.Feed(ctx, f.group.ID, "", 0, graph.Unbounded)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, other.ID, items[0].TargetID)

	items, err = f.projector.Feed(ctx, f.group.ID, "mirror", 0, graph.Unbounded)
	require.NoError(t, err)
	assert.Empty(t, items)

	deleted := f.rec.OfType(events.GroupPostDeleted)
	require.Len(t, deleted, 1)
	assert.Equal(t, post.ID, deleted[0].Subject)

	_, err = f.projector.DeletePost(ctx, post.ID, "alice")
	assert.True(t, apperrors.IsNotFound(err))
}
