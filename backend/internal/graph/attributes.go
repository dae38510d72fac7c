package graph

import (
	"fmt"

	"social-network/backend/internal/constants"
	"social-network/backend/internal/storage"
	apperrors "social-network/backend/pkg/errors"
)

var validRoles = map[string]bool{
	constants.RoleCreator: true,
	constants.RoleAdmin:   true,
	constants.RoleMember:  true,
}

// ValidateAttributes accepts only the role key, with a known role value.
func ValidateAttributes(attrs storage.Attributes) error {
	for k, v := range attrs {
		if k != constants.AttrRole {
			return apperrors.NewValidationFailed("attributes", fmt.Sprintf("unknown key %q", k))
		}
		if !validRoles[v] {
			return apperrors.NewValidationFailed("attributes.role", fmt.Sprintf("unknown role %q", v))
		}
	}
	return nil
}

// RoleAttributes builds the attribute bag of a membership edge.
func RoleAttributes(role string) storage.Attributes {
	return storage.Attributes{constants.AttrRole: role}
}

// RoleOf returns the role carried by e, or "" when e is nil or has none.
func RoleOf(e *storage.Edge) string {
	if e == nil {
		return ""
	}
	return e.Attributes[constants.AttrRole]
}

// UserNode references a user.
func UserNode(id string) storage.Node {
	return storage.Node{Kind: constants.KindUser, ID: id}
}

// GroupNode references a social group.
func GroupNode(id string) storage.Node {
	return storage.Node{Kind: constants.KindGroup, ID: id}
}
