// Package storage defines the persistence contract of the social graph.
//
// A Store hands out transactions. Everything written through a Tx passed to
// Update is committed together or not at all; the core never writes outside a
// transaction. Adapters live in the memory and neo4jstore subpackages.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by point lookups of records that do not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrAlreadyExists is returned when a record with the same unique key is written twice.
	ErrAlreadyExists = errors.New("storage: already exists")
)

// Unbounded is the range limit that returns every row from the offset on.
const Unbounded = -1

// Node references an entity in the graph. The graph does not own the entity.
type Node struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// String renders the node as "kind:id".
func (n Node) String() string {
	return n.Kind + ":" + n.ID
}

// IsZero reports whether n is the empty node.
func (n Node) IsZero() bool {
	return n.Kind == "" && n.ID == ""
}

// ParseNode is the inverse of Node.String.
func ParseNode(s string) (Node, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || kind == "" || id == "" {
		return Node{}, fmt.Errorf("malformed node reference %q", s)
	}
	return Node{Kind: kind, ID: id}, nil
}

// Attributes is the key/value bag carried by an edge.
type Attributes map[string]string

// Clone returns a copy of a; a nil bag stays nil.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Edge is a directed, typed relationship between two nodes within a site.
type Edge struct {
	Source     Node       `json:"source"`
	Type       string     `json:"type"`
	Target     Node       `json:"target"`
	Site       string     `json:"site"`
	Attributes Attributes `json:"attributes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// EdgeKey is the uniqueness key of an edge.
type EdgeKey struct {
	Source Node
	Type   string
	Target Node
	Site   string
}

// Key returns the uniqueness key of e.
func (e Edge) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Type: e.Type, Target: e.Target, Site: e.Site}
}

// FriendRequest asks ToUser to become a friend of FromUser.
type FriendRequest struct {
	ID        string    `json:"id"`
	FromUser  string    `json:"from_user"`
	ToUser    string    `json:"to_user"`
	Message   string    `json:"message,omitempty"`
	Site      string    `json:"site"`
	Accepted  bool      `json:"accepted"`
	Denied    bool      `json:"denied"`
	CreatedAt time.Time `json:"created_at"`
}

// MembershipRequest asks a group's administrators to admit Requester.
type MembershipRequest struct {
	ID        string    `json:"id"`
	Requester string    `json:"requester"`
	GroupID   string    `json:"group_id"`
	Message   string    `json:"message,omitempty"`
	Accepted  bool      `json:"accepted"`
	Denied    bool      `json:"denied"`
	Acceptor  string    `json:"acceptor,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Group is a social group. Its members live in the graph, not here.
type Group struct {
	ID          string    `json:"id"`
	Site        string    `json:"site"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Creator     string    `json:"creator"`
	Closed      bool      `json:"closed"`
	CreatedAt   time.Time `json:"created_at"`
}

// Post is a message published in a group.
type Post struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	Creator   string    `json:"creator"`
	Comment   string    `json:"comment"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedItem ties an event to a group and site for ordered display.
type FeedItem struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	Site      string    `json:"site"`
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Actor     string    `json:"actor"`
	TargetID  string    `json:"target_id"`
	EventAt   time.Time `json:"event_at"`
}

// ProfileComment is a message one user leaves on another user's profile.
type ProfileComment struct {
	ID        string    `json:"id"`
	Site      string    `json:"site"`
	Creator   string    `json:"creator"`
	Receiver  string    `json:"receiver"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// Store opens transactions against the backing database.
type Store interface {
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(Tx) error) error
	// Update runs fn in a read-write transaction. If fn returns an error no
	// write performed through the Tx is kept.
	Update(ctx context.Context, fn func(Tx) error) error
	Close(ctx context.Context) error
}

// Tx is the set of operations available inside a transaction.
// Writes on a read-only Tx fail.
//
// Range operations return an empty page for a zero limit and every row from
// offset on for a negative one (Unbounded).
type Tx interface {
	// Edges

	PutEdge(ctx context.Context, e Edge) error
	DeleteEdge(ctx context.Context, k EdgeKey) (bool, error)
	GetEdge(ctx context.Context, k EdgeKey) (Edge, bool, error)
	CountEdges(ctx context.Context, source Node, edgeType, site string) (int, error)
	// RangeEdges returns outgoing edges ordered by CreatedAt descending.
	RangeEdges(ctx context.Context, source Node, edgeType, site string, offset, limit int) ([]Edge, error)

	// Groups

	PutGroup(ctx context.Context, g Group) error
	GetGroup(ctx context.Context, id string) (Group, error)
	GetGroupBySlug(ctx context.Context, site, slug string) (Group, error)
	AddAdministrator(ctx context.Context, groupID, userID string) (bool, error)
	RemoveAdministrator(ctx context.Context, groupID, userID string) (bool, error)
	Administrators(ctx context.Context, groupID string) ([]string, error)
	AdministeredGroups(ctx context.Context, userID string) ([]string, error)

	// Requests

	PutFriendRequest(ctx context.Context, r FriendRequest) error
	GetFriendRequest(ctx context.Context, id string) (FriendRequest, error)
	FriendRequestsTo(ctx context.Context, userID string, pendingOnly bool) ([]FriendRequest, error)
	PutMembershipRequest(ctx context.Context, r MembershipRequest) error
	GetMembershipRequest(ctx context.Context, id string) (MembershipRequest, error)
	MembershipRequestsFor(ctx context.Context, groupID string, pendingOnly bool) ([]MembershipRequest, error)
	// PendingMembershipRequest returns the undecided request of requester for
	// groupID, or ErrNotFound.
	PendingMembershipRequest(ctx context.Context, requester, groupID string) (MembershipRequest, error)

	// Feed

	PutPost(ctx context.Context, p Post) error
	GetPost(ctx context.Context, id string) (Post, error)
	// DeletePost reports whether a post was removed.
	DeletePost(ctx context.Context, id string) (bool, error)
	// PutFeedItem stores item unless one already exists for the same
	// (group, site, event); it reports whether item was stored.
	PutFeedItem(ctx context.Context, item FeedItem) (bool, error)
	// FeedItems returns items ordered by EventAt descending.
	FeedItems(ctx context.Context, groupID, site string, offset, limit int) ([]FeedItem, error)
	// DeleteFeedItems removes the items of groupID pointing at targetID in
	// every site and returns how many were removed.
	DeleteFeedItems(ctx context.Context, groupID, targetID string) (int, error)

	// Profile comments

	PutProfileComment(ctx context.Context, c ProfileComment) error
	// ProfileComments returns the comments received by receiver in site,
	// newest first.
	ProfileComments(ctx context.Context, receiver, site string, offset, limit int) ([]ProfileComment, error)
}
