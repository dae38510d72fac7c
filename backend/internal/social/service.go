// Package social implements follows, friendships, groups and memberships on
// top of the graph store.
//
// Every public operation runs in its own graph transaction. The *Tx variants
// run inside a transaction owned by the caller so that request decisions can
// commit their graph change and their record change together.
package social

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"social-network/backend/internal/constants"
	"social-network/backend/internal/graph"
	"social-network/backend/internal/storage"
	apperrors "social-network/backend/pkg/errors"
)

// Service answers relationship questions and performs relationship changes.
type Service struct {
	g      *graph.GraphStore
	logger *zap.Logger
}

// NewService creates a Service over g.
func NewService(g *graph.GraphStore) *Service {
	return &Service{g: g, logger: g.Logger().Named("social")}
}

// Graph returns the underlying graph store.
func (s *Service) Graph() *graph.GraphStore {
	return s.g
}

// Relation is one end of a user-to-user edge as seen from the other end.
type Relation struct {
	UserID string    `json:"user_id"`
	Since  time.Time `json:"since"`
}

// Membership is a user's place in a group.
type Membership struct {
	GroupID string    `json:"group_id"`
	UserID  string    `json:"user_id"`
	Role    string    `json:"role"`
	Since   time.Time `json:"since"`
}

func relations(edges []storage.Edge) []Relation {
	out := make([]Relation, 0, len(edges))
	for _, e := range edges {
		out = append(out, Relation{UserID: e.Target.ID, Since: e.CreatedAt})
	}
	return out
}

// roleOrMember returns the role on e, treating a missing role as member.
func roleOrMember(e storage.Edge) string {
	if role := graph.RoleOf(&e); role != "" {
		return role
	}
	return constants.RoleMember
}

// LoadGroupTx reads a group inside txn. A missing group is a not-found error.
func LoadGroupTx(ctx context.Context, txn *graph.Txn, id string) (storage.Group, error) {
	g, err := txn.Records().GetGroup(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Group{}, apperrors.NewNotFound("group", id)
	}
	if err != nil {
		return storage.Group{}, apperrors.NewGraphQueryFailed("get_group "+id, err)
	}
	return g, nil
}

func requireID(field, value string) error {
	if value == "" {
		return apperrors.NewValidationFailed(field, "must not be empty")
	}
	return nil
}
