package social

import (
	"context"

	"go.uber.org/zap"

	"social-network/backend/internal/constants"
	"social-network/backend/internal/events"
	"social-network/backend/internal/graph"
)

// ============================================================================
// Follow Operations
// ============================================================================

// Follow makes follower follow followee in site. Following again refreshes
// the edge timestamp and raises FollowerCreated again.
func (s *Service) Follow(ctx context.Context, follower, followee, site string) error {
	if err := requireID("follower", follower); err != nil {
		return err
	}
	if err := requireID("followee", followee); err != nil {
		return err
	}
	return s.g.Update(ctx, func(txn *graph.Txn) error {
		return s.followTx(ctx, txn, follower, followee, site)
	})
}

func (s *Service) followTx(ctx context.Context, txn *graph.Txn, follower, followee, site string) error {
	e, err := txn.Edge(ctx, graph.UserNode(follower), graph.UserNode(followee), constants.EdgeFollowerOf, site, nil)
	if err != nil {
		return err
	}
	txn.Emit(events.New(events.FollowerCreated, e.Site, follower, followee, e.CreatedAt, nil))
	s.logger.Debug("User followed",
		zap.String("follower", follower),
		zap.String("followee", followee),
		zap.String("site", e.Site),
	)
	return nil
}

// Unfollow removes the follow edge. It reports whether one existed;
// FollowerDestroyed is raised only in that case.
func (s *Service) Unfollow(ctx context.Context, follower, followee, site string) (bool, error) {
	var deleted bool
	err := s.g.Update(ctx, func(txn *graph.Txn) error {
		var err error
		deleted, err = s.unfollowTx(ctx, txn, follower, followee, site)
		return err
	})
	return deleted, err
}

func (s *Service) unfollowTx(ctx context.Context, txn *graph.Txn, follower, followee, site string) (bool, error) {
	deleted, err := txn.NoEdge(ctx, graph.UserNode(follower), graph.UserNode(followee), constants.EdgeFollowerOf, site)
	if err != nil || !deleted {
		return false, err
	}
	txn.Emit(events.New(events.FollowerDestroyed, s.g.Site(site), follower, followee, s.g.Now(), nil))
	return true, nil
}

// ToggleFollow follows when follower does not follow followee yet and
// unfollows otherwise. It returns whether follower follows followee afterwards.
func (s *Service) ToggleFollow(ctx context.Context, follower, followee, site string) (bool, error) {
	if err := requireID("follower", follower); err != nil {
		return false, err
	}
	if err := requireID("followee", followee); err != nil {
		return false, err
	}
	var following bool
	err := s.g.Update(ctx, func(txn *graph.Txn) error {
		existing, err := txn.EdgeGet(ctx, graph.UserNode(follower), constants.EdgeFollowerOf, graph.UserNode(followee), site)
		if err != nil {
			return err
		}
		if existing != nil {
			following = false
			_, err = s.unfollowTx(ctx, txn, follower, followee, site)
			return err
		}
		following = true
		return s.followTx(ctx, txn, follower, followee, site)
	})
	return following, err
}

// IsFollowedBy reports whether user is followed by follower.
func (s *Service) IsFollowedBy(ctx context.Context, user, follower, site string) (bool, error) {
	e, err := s.g.EdgeGet(ctx, graph.UserNode(user), constants.EdgeFollowedBy, graph.UserNode(follower), site)
	return e != nil, err
}

// Followers counts the followers of user.
func (s *Service) Followers(ctx context.Context, user, site string) (int, error) {
	return s.g.EdgeCount(ctx, graph.UserNode(user), constants.EdgeFollowedBy, site)
}

// FollowerList pages through the followers of user, most recent first.
func (s *Service) FollowerList(ctx context.Context, user, site string, offset, limit int) ([]Relation, error) {
	edges, err := s.g.EdgeRange(ctx, graph.UserNode(user), constants.EdgeFollowedBy, site, offset, limit)
	if err != nil {
		return nil, err
	}
	return relations(edges), nil
}

// Following counts the users user follows.
func (s *Service) Following(ctx context.Context, user, site string) (int, error) {
	return s.g.EdgeCount(ctx, graph.UserNode(user), constants.EdgeFollowerOf, site)
}

// FollowingList pages through the users user follows, most recent first.
func (s *Service) FollowingList(ctx context.Context, user, site string, offset, limit int) ([]Relation, error) {
	edges, err := s.g.EdgeRange(ctx, graph.UserNode(user), constants.EdgeFollowerOf, site, offset, limit)
	if err != nil {
		return nil, err
	}
	return relations(edges), nil
}
