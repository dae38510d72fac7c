// Package feed keeps the per-group feed: posts published in a group and the
// feed items derived from their events.
package feed

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"social-network/backend/internal/events"
	"social-network/backend/internal/graph"
	"social-network/backend/internal/social"
	"social-network/backend/internal/storage"
	apperrors "social-network/backend/pkg/errors"
)

// FieldGroupID is the event field naming the group an event belongs to.
const FieldGroupID = "group_id"

// Projector writes posts and projects their events into group feeds.
type Projector struct {
	g      *graph.GraphStore
	logger *zap.Logger
}

// NewProjector creates a Projector over g.
func NewProjector(g *graph.GraphStore) *Projector {
	return &Projector{g: g, logger: g.Logger().Named("feed")}
}

// NewPost is a post to publish.
type NewPost struct {
	GroupID string `json:"group_id"`
	Creator string `json:"creator"`
	Comment string `json:"comment"`
	URL     string `json:"url"`
}

// CreatePost publishes a post in a group. Only members may post. The post,
// its feed item and its GroupPostCreated event commit together.
func (p *Projector) CreatePost(ctx context.Context, np NewPost) (storage.Post, error) {
	if np.Creator == "" {
		return storage.Post{}, apperrors.NewValidationFailed("creator", "must not be empty")
	}
	if strings.TrimSpace(np.Comment) == "" {
		return storage.Post{}, apperrors.NewValidationFailed("comment", "must not be empty")
	}

	var post storage.Post
	err := p.g.Update(ctx, func(txn *graph.Txn) error {
		g, err := social.LoadGroupTx(ctx, txn, np.GroupID)
		if err != nil {
			return err
		}
		role, err := social.RoleOfTx(ctx, txn, g, np.Creator)
		if err != nil {
			return err
		}
		if role == "" {
			return apperrors.NewValidationFailed("creator", "only group members may post")
		}

		post = storage.Post{
			ID:        uuid.NewString(),
			GroupID:   g.ID,
			Creator:   np.Creator,
			Comment:   np.Comment,
			URL:       np.URL,
			CreatedAt: p.g.Now(),
		}
		if err := txn.Records().PutPost(ctx, post); err != nil {
			return apperrors.NewGraphWriteFailed("put_post", post.ID, err)
		}

		ev := events.New(events.GroupPostCreated, g.Site, post.Creator, post.ID, post.CreatedAt, map[string]string{FieldGroupID: g.ID})
		if _, err := p.projectTx(ctx, txn, ev); err != nil {
			return err
		}
		txn.Emit(ev)
		return nil
	})
	if err != nil {
		return storage.Post{}, err
	}
	p.logger.Debug("Post created", zap.String("post_id", post.ID), zap.String("group_id", post.GroupID))
	return post, nil
}

// GetPost returns the post with id.
func (p *Projector) GetPost(ctx context.Context, id string) (storage.Post, error) {
	var post storage.Post
	err := p.g.View(ctx, func(txn *graph.Txn) error {
		var err error
		post, err = txn.Records().GetPost(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.NewNotFound("post", id)
		}
		return err
	})
	return post, err
}

// PostUpdate lists the post fields to change; nil fields are left alone.
type PostUpdate struct {
	Comment *string `json:"comment"`
	URL     *string `json:"url"`
}

// UpdatePost edits a post on behalf of by. Only the post's creator and the
// group's administrators may edit it; anyone else gets false and no change.
func (p *Projector) UpdatePost(ctx context.Context, id, by string, u PostUpdate) (storage.Post, bool, error) {
	if u.Comment != nil && strings.TrimSpace(*u.Comment) == "" {
		return storage.Post{}, false, apperrors.NewValidationFailed("comment", "must not be empty")
	}

	var (
		post storage.Post
		ok   bool
	)
	err := p.g.Update(ctx, func(txn *graph.Txn) error {
		var g storage.Group
		var err error
		post, g, ok, err = p.loadEditableTx(ctx, txn, id, by)
		if err != nil || !ok {
			return err
		}
		if u.Comment != nil {
			post.Comment = *u.Comment
		}
		if u.URL != nil {
			post.URL = *u.URL
		}
		if err := txn.Records().PutPost(ctx, post); err != nil {
			return apperrors.NewGraphWriteFailed("put_post", post.ID, err)
		}
		txn.Emit(events.New(events.GroupPostUpdated, g.Site, by, post.ID, p.g.Now(), map[string]string{FieldGroupID: g.ID}))
		return nil
	})
	if err != nil || !ok {
		return storage.Post{}, false, err
	}
	p.logger.Debug("Post updated", zap.String("post_id", post.ID), zap.String("by", by))
	return post, true, nil
}

// DeletePost removes a post and every feed item pointing at it, in every
// site, on behalf of by. The permission rule is the one of UpdatePost.
func (p *Projector) DeletePost(ctx context.Context, id, by string) (bool, error) {
	var (
		ok      bool
		removed int
	)
	err := p.g.Update(ctx, func(txn *graph.Txn) error {
		post, g, allowed, err := p.loadEditableTx(ctx, txn, id, by)
		if err != nil || !allowed {
			return err
		}
		if _, err := txn.Records().DeletePost(ctx, post.ID); err != nil {
			return apperrors.NewGraphWriteFailed("delete_post", post.ID, err)
		}
		removed, err = txn.Records().DeleteFeedItems(ctx, g.ID, post.ID)
		if err != nil {
			return apperrors.NewGraphWriteFailed("delete_feed_items", g.ID+"/"+post.ID, err)
		}
		txn.Emit(events.New(events.GroupPostDeleted, g.Site, by, post.ID, p.g.Now(), map[string]string{FieldGroupID: g.ID}))
		ok = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if ok {
		p.logger.Debug("Post deleted", zap.String("post_id", id), zap.Int("feed_items", removed))
	}
	return ok, nil
}

func (p *Projector) loadEditableTx(ctx context.Context, txn *graph.Txn, id, by string) (storage.Post, storage.Group, bool, error) {
	post, err := txn.Records().GetPost(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Post{}, storage.Group{}, false, apperrors.NewNotFound("post", id)
	}
	if err != nil {
		return storage.Post{}, storage.Group{}, false, apperrors.NewGraphQueryFailed("get_post "+id, err)
	}
	g, err := social.LoadGroupTx(ctx, txn, post.GroupID)
	if err != nil {
		return storage.Post{}, storage.Group{}, false, err
	}
	if by == "" {
		return post, g, false, nil
	}
	if by == post.Creator {
		return post, g, true, nil
	}
	admin, err := social.HasAdminTx(ctx, txn, g, by)
	return post, g, admin, err
}

// Project appends the feed item of a GroupPostCreated event. Projecting the
// same event twice stores one item; the result reports whether an item was
// stored. Other event types are ignored.
func (p *Projector) Project(ctx context.Context, ev events.Event) (bool, error) {
	if ev.Type != events.GroupPostCreated {
		return false, nil
	}
	var stored bool
	err := p.g.Update(ctx, func(txn *graph.Txn) error {
		var err error
		stored, err = p.projectTx(ctx, txn, ev)
		return err
	})
	return stored, err
}

func (p *Projector) projectTx(ctx context.Context, txn *graph.Txn, ev events.Event) (bool, error) {
	groupID := ev.Fields[FieldGroupID]
	if groupID == "" {
		return false, apperrors.NewValidationFailed("event.fields.group_id", "must not be empty")
	}
	if ev.ID == "" {
		return false, apperrors.NewValidationFailed("event.id", "must not be empty")
	}

	item := storage.FeedItem{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		Site:      p.g.Site(ev.Site),
		EventID:   ev.ID,
		EventType: string(ev.Type),
		Actor:     ev.Actor,
		TargetID:  ev.Subject,
		EventAt:   ev.OccurredAt.UTC(),
	}
	stored, err := txn.Records().PutFeedItem(ctx, item)
	if err != nil {
		return false, apperrors.NewGraphWriteFailed("put_feed_item", groupID+"/"+ev.ID, err)
	}
	if !stored {
		p.logger.Debug("Feed item already projected", zap.String("event_id", ev.ID), zap.String("group_id", groupID))
	}
	return stored, nil
}

// Feed pages through the feed of a group, newest event first. An empty site
// means the group's own site.
func (p *Projector) Feed(ctx context.Context, groupID, site string, offset, limit int) ([]storage.FeedItem, error) {
	var out []storage.FeedItem
	err := p.g.View(ctx, func(txn *graph.Txn) error {
		g, err := social.LoadGroupTx(ctx, txn, groupID)
		if err != nil {
			return err
		}
		if site == "" {
			site = g.Site
		}
		if offset < 0 {
			offset = 0
		}
		out, err = txn.Records().FeedItems(ctx, g.ID, site, offset, limit)
		if err != nil {
			return apperrors.NewGraphQueryFailed("feed_items "+g.ID, err)
		}
		return nil
	})
	return out, err
}
