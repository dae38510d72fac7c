package social

import (
	"context"

	"social-network/backend/internal/constants"
	"social-network/backend/internal/events"
	"social-network/backend/internal/graph"
)

// ============================================================================
// Friendship Operations
// ============================================================================

// MakeFriendOf records a friendship between a and b in site.
func (s *Service) MakeFriendOf(ctx context.Context, a, b, site string) error {
	return s.g.Update(ctx, func(txn *graph.Txn) error {
		return MakeFriendOfTx(ctx, txn, a, b, site)
	})
}

// MakeFriendOfTx writes the friendship inside txn and queues FriendshipCreated.
func MakeFriendOfTx(ctx context.Context, txn *graph.Txn, a, b, site string) error {
	if err := requireID("user", a); err != nil {
		return err
	}
	if err := requireID("friend", b); err != nil {
		return err
	}
	e, err := txn.Edge(ctx, graph.UserNode(a), graph.UserNode(b), constants.EdgeFriendship, site, nil)
	if err != nil {
		return err
	}
	txn.Emit(events.New(events.FriendshipCreated, e.Site, a, b, e.CreatedAt, nil))
	return nil
}

// IsFriendOf reports whether a and b are friends.
func (s *Service) IsFriendOf(ctx context.Context, a, b, site string) (bool, error) {
	e, err := s.g.EdgeGet(ctx, graph.UserNode(a), constants.EdgeFriendship, graph.UserNode(b), site)
	return e != nil, err
}

// Friends counts the friends of user.
func (s *Service) Friends(ctx context.Context, user, site string) (int, error) {
	return s.g.EdgeCount(ctx, graph.UserNode(user), constants.EdgeFriendship, site)
}

// FriendList pages through the friends of user, most recent first.
func (s *Service) FriendList(ctx context.Context, user, site string, offset, limit int) ([]Relation, error) {
	edges, err := s.g.EdgeRange(ctx, graph.UserNode(user), constants.EdgeFriendship, site, offset, limit)
	if err != nil {
		return nil, err
	}
	return relations(edges), nil
}
