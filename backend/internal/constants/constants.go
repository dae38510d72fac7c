package constants

// Node kinds
const (
	KindUser  = "user"
	KindGroup = "group"
)

// Edge type names registered by edgetype.Default
const (
	EdgeFollowerOf   = "follower_of"
	EdgeFollowedBy   = "followed_by"
	EdgeFriendship   = "friendship"
	EdgeMemberOf     = "member_of"
	EdgeIntegratedBy = "integrated_by"
)

// Membership roles carried in the "role" edge attribute
const (
	RoleCreator = "creator"
	RoleAdmin   = "admin"
	RoleMember  = "member"
)

// AttrRole is the only attribute key accepted on edges.
const AttrRole = "role"

// DefaultSite is the namespace used when a caller does not name one.
const DefaultSite = "default"

// Pagination
const (
	// DefaultPageSize is used by list endpoints when no limit is given
	DefaultPageSize = 50
	// MaxPageSize caps limits accepted from callers
	MaxPageSize = 500
)
