package social

import (
	"context"

	"go.uber.org/zap"

	"social-network/backend/internal/constants"
	"social-network/backend/internal/events"
	"social-network/backend/internal/graph"
	"social-network/backend/internal/storage"
)

// ============================================================================
// Membership Operations
// ============================================================================

// AddMember admits member into the group. acceptor is the user granting
// admission; empty means member admits themself. A closed group only admits
// through one of its admins: any other acceptor gets false and nothing is
// written.
func (s *Service) AddMember(ctx context.Context, groupID, member, acceptor string) (bool, error) {
	var added bool
	err := s.g.Update(ctx, func(txn *graph.Txn) error {
		g, err := LoadGroupTx(ctx, txn, groupID)
		if err != nil {
			return err
		}
		added, err = AddMemberTx(ctx, txn, g, member, acceptor)
		return err
	})
	if err != nil {
		return false, err
	}
	if !added {
		s.logger.Debug("Membership refused",
			zap.String("group_id", groupID),
			zap.String("member", member),
			zap.String("acceptor", acceptor),
		)
	}
	return added, nil
}

// Join is AddMember with the member as their own acceptor.
func (s *Service) Join(ctx context.Context, groupID, user string) (bool, error) {
	return s.AddMember(ctx, groupID, user, "")
}

// AddMemberTx admits member into g inside txn and queues MemberAdded.
// Creators and admins keep their role.
func AddMemberTx(ctx context.Context, txn *graph.Txn, g storage.Group, member, acceptor string) (bool, error) {
	if err := requireID("member", member); err != nil {
		return false, err
	}
	if acceptor == "" {
		acceptor = member
	}
	if g.Closed {
		ok, err := HasAdminTx(ctx, txn, g, acceptor)
		if err != nil || !ok {
			return false, err
		}
	}

	user, group := graph.UserNode(member), graph.GroupNode(g.ID)
	existing, err := txn.EdgeGet(ctx, user, constants.EdgeMemberOf, group, g.Site)
	if err != nil {
		return false, err
	}
	if role := graph.RoleOf(existing); role == constants.RoleCreator || role == constants.RoleAdmin {
		return true, nil
	}

	e, err := txn.Edge(ctx, user, group, constants.EdgeMemberOf, g.Site, graph.RoleAttributes(constants.RoleMember))
	if err != nil {
		return false, err
	}
	txn.Emit(events.New(events.MemberAdded, g.Site, acceptor, member, e.CreatedAt, map[string]string{"group_id": g.ID}))
	return true, nil
}

// HasMember reports whether user belongs to the group in any role.
func (s *Service) HasMember(ctx context.Context, groupID, user string) (bool, error) {
	role, err := s.RoleOf(ctx, groupID, user)
	return role != "", err
}

// RoleOf returns the role of user in the group, or "" when user is not a member.
func (s *Service) RoleOf(ctx context.Context, groupID, user string) (string, error) {
	var role string
	err := s.g.View(ctx, func(txn *graph.Txn) error {
		g, err := LoadGroupTx(ctx, txn, groupID)
		if err != nil {
			return err
		}
		role, err = RoleOfTx(ctx, txn, g, user)
		return err
	})
	return role, err
}

// RoleOfTx is RoleOf inside txn.
func RoleOfTx(ctx context.Context, txn *graph.Txn, g storage.Group, user string) (string, error) {
	e, err := txn.EdgeGet(ctx, graph.UserNode(user), constants.EdgeMemberOf, graph.GroupNode(g.ID), g.Site)
	if err != nil || e == nil {
		return "", err
	}
	return roleOrMember(*e), nil
}

// MemberList pages through the members of the group, most recent first.
func (s *Service) MemberList(ctx context.Context, groupID string, offset, limit int) ([]Membership, error) {
	var out []Membership
	err := s.g.View(ctx, func(txn *graph.Txn) error {
		g, err := LoadGroupTx(ctx, txn, groupID)
		if err != nil {
			return err
		}
		edges, err := txn.EdgeRange(ctx, graph.GroupNode(g.ID), constants.EdgeIntegratedBy, g.Site, offset, limit)
		if err != nil {
			return err
		}
		out = make([]Membership, 0, len(edges))
		for _, e := range edges {
			out = append(out, Membership{GroupID: g.ID, UserID: e.Target.ID, Role: roleOrMember(e), Since: e.CreatedAt})
		}
		return nil
	})
	return out, err
}

// MemberCount counts the members of the group.
func (s *Service) MemberCount(ctx context.Context, groupID string) (int, error) {
	var n int
	err := s.g.View(ctx, func(txn *graph.Txn) error {
		g, err := LoadGroupTx(ctx, txn, groupID)
		if err != nil {
			return err
		}
		n, err = txn.EdgeCount(ctx, graph.GroupNode(g.ID), constants.EdgeIntegratedBy, g.Site)
		return err
	})
	return n, err
}

// MemberRoles maps every member of the group to their role.
func (s *Service) MemberRoles(ctx context.Context, groupID string) (map[string]string, error) {
	members, err := s.MemberList(ctx, groupID, 0, graph.Unbounded)
	if err != nil {
		return nil, err
	}
	roles := make(map[string]string, len(members))
	for _, m := range members {
		roles[m.UserID] = m.Role
	}
	return roles, nil
}

// MembersWithRole lists the members of the group holding role, most recent first.
func (s *Service) MembersWithRole(ctx context.Context, groupID, role string) ([]string, error) {
	var out []string
	err := s.g.View(ctx, func(txn *graph.Txn) error {
		g, err := LoadGroupTx(ctx, txn, groupID)
		if err != nil {
			return err
		}
		out, err = membersWithRoleTx(ctx, txn, g, role)
		return err
	})
	return out, err
}

func membersWithRoleTx(ctx context.Context, txn *graph.Txn, g storage.Group, role string) ([]string, error) {
	edges, err := txn.EdgeRange(ctx, graph.GroupNode(g.ID), constants.EdgeIntegratedBy, g.Site, 0, graph.Unbounded)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, e := range edges {
		if roleOrMember(e) == role {
			out = append(out, e.Target.ID)
		}
	}
	return out, nil
}

// GroupList pages through the groups user belongs to in site, most recent first.
func (s *Service) GroupList(ctx context.Context, user, site string, offset, limit int) ([]Membership, error) {
	edges, err := s.g.EdgeRange(ctx, graph.UserNode(user), constants.EdgeMemberOf, site, offset, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Membership, 0, len(edges))
	for _, e := range edges {
		out = append(out, Membership{GroupID: e.Target.ID, UserID: user, Role: roleOrMember(e), Since: e.CreatedAt})
	}
	return out, nil
}

// GroupCount counts the groups user belongs to in site.
func (s *Service) GroupCount(ctx context.Context, user, site string) (int, error) {
	return s.g.EdgeCount(ctx, graph.UserNode(user), constants.EdgeMemberOf, site)
}

// GroupsWithRole lists the groups of site in which user holds role.
func (s *Service) GroupsWithRole(ctx context.Context, user, site, role string) ([]string, error) {
	var out []string
	err := s.g.View(ctx, func(txn *graph.Txn) error {
		var err error
		out, err = groupsWithRoleTx(ctx, txn, user, site, role)
		return err
	})
	return out, err
}

func groupsWithRoleTx(ctx context.Context, txn *graph.Txn, user, site, role string) ([]string, error) {
	edges, err := txn.EdgeRange(ctx, graph.UserNode(user), constants.EdgeMemberOf, site, 0, graph.Unbounded)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, e := range edges {
		if roleOrMember(e) == role {
			out = append(out, e.Target.ID)
		}
	}
	return out, nil
}
