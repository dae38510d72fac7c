package social

import (
	"context"

	"go.uber.org/zap"

	"social-network/backend/internal/constants"
	"social-network/backend/internal/graph"
	"social-network/backend/internal/storage"
	apperrors "social-network/backend/pkg/errors"
)

// ============================================================================
// Administrator Operations
//
// The administrator set of a group is kept both as a record and as
// member_of edges with role=admin. Changes made from the group side and from
// the user side leave the same state behind. The creator is never part of
// the set: the creator edge is left untouched.
// ============================================================================

// HasAdmin reports whether user may administer the group: its creator or a
// member of its administrator set.
func (s *Service) HasAdmin(ctx context.Context, groupID, user string) (bool, error) {
	var ok bool
	err := s.g.View(ctx, func(txn *graph.Txn) error {
		g, err := LoadGroupTx(ctx, txn, groupID)
		if err != nil {
			return err
		}
		ok, err = HasAdminTx(ctx, txn, g, user)
		return err
	})
	return ok, err
}

// HasAdminTx is HasAdmin inside txn.
func HasAdminTx(ctx context.Context, txn *graph.Txn, g storage.Group, user string) (bool, error) {
	if user == "" {
		return false, nil
	}
	if user == g.Creator {
		return true, nil
	}
	admins, err := txn.Records().Administrators(ctx, g.ID)
	if err != nil {
		return false, apperrors.NewGraphQueryFailed("administrators "+g.ID, err)
	}
	for _, a := range admins {
		if a == user {
			return true, nil
		}
	}
	return false, nil
}

// Administrators lists the administrator set of the group, creator excluded.
func (s *Service) Administrators(ctx context.Context, groupID string) ([]string, error) {
	var out []string
	err := s.g.View(ctx, func(txn *graph.Txn) error {
		g, err := LoadGroupTx(ctx, txn, groupID)
		if err != nil {
			return err
		}
		out, err = txn.Records().Administrators(ctx, g.ID)
		if err != nil {
			return apperrors.NewGraphQueryFailed("administrators "+g.ID, err)
		}
		return nil
	})
	return out, err
}

// AdministeredGroups lists the groups whose administrator set contains user.
func (s *Service) AdministeredGroups(ctx context.Context, user string) ([]string, error) {
	var out []string
	err := s.g.View(ctx, func(txn *graph.Txn) error {
		var err error
		out, err = txn.Records().AdministeredGroups(ctx, user)
		if err != nil {
			return apperrors.NewGraphQueryFailed("administered_groups "+user, err)
		}
		return nil
	})
	return out, err
}

func addAdministratorTx(ctx context.Context, txn *graph.Txn, g storage.Group, user string) error {
	if err := requireID("administrator", user); err != nil {
		return err
	}
	if user == g.Creator {
		return nil
	}
	if _, err := txn.Records().AddAdministrator(ctx, g.ID, user); err != nil {
		return apperrors.NewGraphWriteFailed("add_administrator", g.ID+"/"+user, err)
	}
	_, err := txn.Edge(ctx, graph.UserNode(user), graph.GroupNode(g.ID), constants.EdgeMemberOf, g.Site, graph.RoleAttributes(constants.RoleAdmin))
	return err
}

func removeAdministratorTx(ctx context.Context, txn *graph.Txn, g storage.Group, user string) error {
	if user == g.Creator {
		return nil
	}
	if _, err := txn.Records().RemoveAdministrator(ctx, g.ID, user); err != nil {
		return apperrors.NewGraphWriteFailed("remove_administrator", g.ID+"/"+user, err)
	}
	_, err := txn.NoEdge(ctx, graph.UserNode(user), graph.GroupNode(g.ID), constants.EdgeMemberOf, g.Site)
	return err
}

// ----------------------------------------------------------------------------
// Group side
// ----------------------------------------------------------------------------

// AddAdministrators grants users administrator rights over the group.
func (s *Service) AddAdministrators(ctx context.Context, groupID string, users []string) error {
	return s.onGroup(ctx, "add", groupID, func(txn *graph.Txn, g storage.Group) error {
		for _, u := range users {
			if err := addAdministratorTx(ctx, txn, g, u); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveAdministrators revokes administrator rights. The removed users lose
// their membership edge.
func (s *Service) RemoveAdministrators(ctx context.Context, groupID string, users []string) error {
	return s.onGroup(ctx, "remove", groupID, func(txn *graph.Txn, g storage.Group) error {
		for _, u := range users {
			if err := removeAdministratorTx(ctx, txn, g, u); err != nil {
				return err
			}
		}
		return nil
	})
}

// ClearAdministrators empties the administrator set and removes every
// role=admin membership of the group.
func (s *Service) ClearAdministrators(ctx context.Context, groupID string) error {
	return s.onGroup(ctx, "clear", groupID, func(txn *graph.Txn, g storage.Group) error {
		recorded, err := txn.Records().Administrators(ctx, g.ID)
		if err != nil {
			return apperrors.NewGraphQueryFailed("administrators "+g.ID, err)
		}
		withRole, err := membersWithRoleTx(ctx, txn, g, constants.RoleAdmin)
		if err != nil {
			return err
		}
		for _, u := range union(recorded, withRole) {
			if err := removeAdministratorTx(ctx, txn, g, u); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) onGroup(ctx context.Context, action, groupID string, fn func(*graph.Txn, storage.Group) error) error {
	err := s.g.Update(ctx, func(txn *graph.Txn) error {
		g, err := LoadGroupTx(ctx, txn, groupID)
		if err != nil {
			return err
		}
		return fn(txn, g)
	})
	if err == nil {
		s.logger.Debug("Administrators reconciled", zap.String("action", action), zap.String("group_id", groupID))
	}
	return err
}

// ----------------------------------------------------------------------------
// User side
// ----------------------------------------------------------------------------

// AddAdministeredGroups makes user an administrator of every group in groupIDs.
func (s *Service) AddAdministeredGroups(ctx context.Context, user string, groupIDs []string) error {
	return s.onGroups(ctx, groupIDs, func(txn *graph.Txn, g storage.Group) error {
		return addAdministratorTx(ctx, txn, g, user)
	})
}

// RemoveAdministeredGroups revokes user's administrator rights over every
// group in groupIDs.
func (s *Service) RemoveAdministeredGroups(ctx context.Context, user string, groupIDs []string) error {
	return s.onGroups(ctx, groupIDs, func(txn *graph.Txn, g storage.Group) error {
		return removeAdministratorTx(ctx, txn, g, user)
	})
}

// ClearAdministeredGroups revokes every administrator right user holds: the
// recorded ones and any role=admin membership in site.
func (s *Service) ClearAdministeredGroups(ctx context.Context, user, site string) error {
	return s.g.Update(ctx, func(txn *graph.Txn) error {
		recorded, err := txn.Records().AdministeredGroups(ctx, user)
		if err != nil {
			return apperrors.NewGraphQueryFailed("administered_groups "+user, err)
		}
		withRole, err := groupsWithRoleTx(ctx, txn, user, site, constants.RoleAdmin)
		if err != nil {
			return err
		}
		for _, id := range union(recorded, withRole) {
			g, err := LoadGroupTx(ctx, txn, id)
			if err != nil {
				return err
			}
			if err := removeAdministratorTx(ctx, txn, g, user); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) onGroups(ctx context.Context, groupIDs []string, fn func(*graph.Txn, storage.Group) error) error {
	return s.g.Update(ctx, func(txn *graph.Txn) error {
		for _, id := range groupIDs {
			g, err := LoadGroupTx(ctx, txn, id)
			if err != nil {
				return err
			}
			if err := fn(txn, g); err != nil {
				return err
			}
		}
		return nil
	})
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}
