package neo4jstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"social-network/backend/internal/storage"
)

// lockClause makes a read inside a write transaction take the node's write
// lock, so two transactions deciding the same record run one after the other.
const lockClause = "SET n._lock = true REMOVE n._lock"

func (t *tx) single(ctx context.Context, query string, params map[string]interface{}) (map[string]interface{}, error) {
	records, err := t.collect(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}
	return getMapFromRecord(records[0], "props"), nil
}

func (t *tx) lockIfWritable() string {
	if t.writable {
		return lockClause
	}
	return ""
}

func propsList(records []*neo4j.Record) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		out = append(out, getMapFromRecord(rec, "props"))
	}
	return out
}

// ============================================================================
// Group Operations
// ============================================================================

func (t *tx) PutGroup(ctx context.Context, g storage.Group) error {
	if err := t.checkWritable(); err != nil {
		return err
	}

	clash, err := t.collect(ctx, `
		MATCH (g:SocialGroup {site: $site, slug: $slug})
		WHERE g.id <> $id
		RETURN g.id AS id
		LIMIT 1
	`, map[string]interface{}{"site": g.Site, "slug": g.Slug, "id": g.ID})
	if err != nil {
		return fmt.Errorf("failed to check group slug: %w", err)
	}
	if len(clash) > 0 {
		return storage.ErrAlreadyExists
	}

	_, err = t.exec(ctx, `
		MERGE (g:SocialGroup {id: $id})
		ON CREATE SET g.administrators = []
		SET g += $props
	`, map[string]interface{}{"id": g.ID, "props": groupProps(g)})
	if err != nil {
		return fmt.Errorf("failed to put group: %w", err)
	}
	return nil
}

func (t *tx) GetGroup(ctx context.Context, id string) (storage.Group, error) {
	props, err := t.single(ctx, `
		MATCH (n:SocialGroup {id: $id})
		RETURN properties(n) AS props
	`, map[string]interface{}{"id": id})
	if err != nil {
		return storage.Group{}, wrapRead("get group", err)
	}
	return groupFromProps(props), nil
}

func (t *tx) GetGroupBySlug(ctx context.Context, site, slug string) (storage.Group, error) {
	props, err := t.single(ctx, `
		MATCH (n:SocialGroup {site: $site, slug: $slug})
		RETURN properties(n) AS props
	`, map[string]interface{}{"site": site, "slug": slug})
	if err != nil {
		return storage.Group{}, wrapRead("get group by slug", err)
	}
	return groupFromProps(props), nil
}

func (t *tx) AddAdministrator(ctx context.Context, groupID, userID string) (bool, error) {
	if err := t.checkWritable(); err != nil {
		return false, err
	}
	records, err := t.collect(ctx, `
		MATCH (g:SocialGroup {id: $group})
		WITH g, coalesce(g.administrators, []) AS admins
		WHERE NOT $user IN admins
		SET g.administrators = admins + $user
		RETURN g.id AS id
	`, map[string]interface{}{"group": groupID, "user": userID})
	if err != nil {
		return false, fmt.Errorf("failed to add administrator: %w", err)
	}
	return len(records) > 0, nil
}

func (t *tx) RemoveAdministrator(ctx context.Context, groupID, userID string) (bool, error) {
	if err := t.checkWritable(); err != nil {
		return false, err
	}
	records, err := t.collect(ctx, `
		MATCH (g:SocialGroup {id: $group})
		WHERE $user IN coalesce(g.administrators, [])
		SET g.administrators = [a IN g.administrators WHERE a <> $user]
		RETURN g.id AS id
	`, map[string]interface{}{"group": groupID, "user": userID})
	if err != nil {
		return false, fmt.Errorf("failed to remove administrator: %w", err)
	}
	return len(records) > 0, nil
}

func (t *tx) Administrators(ctx context.Context, groupID string) ([]string, error) {
	records, err := t.collect(ctx, `
		MATCH (g:SocialGroup {id: $group})
		RETURN coalesce(g.administrators, []) AS admins
	`, map[string]interface{}{"group": groupID})
	if err != nil {
		return nil, fmt.Errorf("failed to list administrators: %w", err)
	}
	if len(records) == 0 {
		return []string{}, nil
	}
	return sortedStrings(getStringSliceFromRecord(records[0], "admins")), nil
}

func (t *tx) AdministeredGroups(ctx context.Context, userID string) ([]string, error) {
	records, err := t.collect(ctx, `
		MATCH (g:SocialGroup)
		WHERE $user IN coalesce(g.administrators, [])
		RETURN g.id AS id
		ORDER BY id
	`, map[string]interface{}{"user": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list administered groups: %w", err)
	}
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, getStringFromRecord(rec, "id"))
	}
	return ids, nil
}

// ============================================================================
// Request Operations
// ============================================================================

func (t *tx) PutFriendRequest(ctx context.Context, r storage.FriendRequest) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	_, err := t.exec(ctx, `
		MERGE (n:FriendRequest {id: $id})
		SET n += $props
	`, map[string]interface{}{"id": r.ID, "props": friendRequestProps(r)})
	if err != nil {
		return fmt.Errorf("failed to put friend request: %w", err)
	}
	return nil
}

func (t *tx) GetFriendRequest(ctx context.Context, id string) (storage.FriendRequest, error) {
	props, err := t.single(ctx, `
		MATCH (n:FriendRequest {id: $id})
		`+t.lockIfWritable()+`
		RETURN properties(n) AS props
	`, map[string]interface{}{"id": id})
	if err != nil {
		return storage.FriendRequest{}, wrapRead("get friend request", err)
	}
	return friendRequestFromProps(props), nil
}

func (t *tx) FriendRequestsTo(ctx context.Context, userID string, pendingOnly bool) ([]storage.FriendRequest, error) {
	records, err := t.collect(ctx, `
		MATCH (n:FriendRequest {to_user: $user})
		WHERE NOT $pendingOnly OR (NOT n.accepted AND NOT n.denied)
		RETURN properties(n) AS props
		ORDER BY n.created_at DESC, n.id ASC
	`, map[string]interface{}{"user": userID, "pendingOnly": pendingOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to list friend requests: %w", err)
	}
	var out []storage.FriendRequest
	for _, props := range propsList(records) {
		out = append(out, friendRequestFromProps(props))
	}
	return out, nil
}

func (t *tx) PutMembershipRequest(ctx context.Context, r storage.MembershipRequest) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	_, err := t.exec(ctx, `
		MERGE (n:GroupMembershipRequest {id: $id})
		SET n += $props
	`, map[string]interface{}{"id": r.ID, "props": membershipRequestProps(r)})
	if err != nil {
		return fmt.Errorf("failed to put membership request: %w", err)
	}
	return nil
}

func (t *tx) GetMembershipRequest(ctx context.Context, id string) (storage.MembershipRequest, error) {
	props, err := t.single(ctx, `
		MATCH (n:GroupMembershipRequest {id: $id})
		`+t.lockIfWritable()+`
		RETURN properties(n) AS props
	`, map[string]interface{}{"id": id})
	if err != nil {
		return storage.MembershipRequest{}, wrapRead("get membership request", err)
	}
	return membershipRequestFromProps(props), nil
}

func (t *tx) MembershipRequestsFor(ctx context.Context, groupID string, pendingOnly bool) ([]storage.MembershipRequest, error) {
	records, err := t.collect(ctx, `
		MATCH (n:GroupMembershipRequest {group_id: $group})
		WHERE NOT $pendingOnly OR (NOT n.accepted AND NOT n.denied)
		RETURN properties(n) AS props
		ORDER BY n.created_at DESC, n.id ASC
	`, map[string]interface{}{"group": groupID, "pendingOnly": pendingOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to list membership requests: %w", err)
	}
	var out []storage.MembershipRequest
	for _, props := range propsList(records) {
		out = append(out, membershipRequestFromProps(props))
	}
	return out, nil
}

func (t *tx) PendingMembershipRequest(ctx context.Context, requester, groupID string) (storage.MembershipRequest, error) {
	if t.writable {
		// Serialise concurrent creations for the same group on the group node.
		if _, err := t.exec(ctx, `
			MATCH (n:SocialGroup {id: $group})
			`+lockClause, map[string]interface{}{"group": groupID}); err != nil {
			return storage.MembershipRequest{}, fmt.Errorf("failed to lock group: %w", err)
		}
	}
	props, err := t.single(ctx, `
		MATCH (n:GroupMembershipRequest {requester: $requester, group_id: $group})
		WHERE NOT n.accepted AND NOT n.denied
		RETURN properties(n) AS props
		LIMIT 1
	`, map[string]interface{}{"requester": requester, "group": groupID})
	if err != nil {
		return storage.MembershipRequest{}, wrapRead("find pending membership request", err)
	}
	return membershipRequestFromProps(props), nil
}

// ============================================================================
// Feed Operations
// ============================================================================

func (t *tx) PutPost(ctx context.Context, p storage.Post) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	_, err := t.exec(ctx, `
		MERGE (n:GroupPost {id: $id})
		SET n += $props
	`, map[string]interface{}{"id": p.ID, "props": postProps(p)})
	if err != nil {
		return fmt.Errorf("failed to put post: %w", err)
	}
	return nil
}

func (t *tx) GetPost(ctx context.Context, id string) (storage.Post, error) {
	props, err := t.single(ctx, `
		MATCH (n:GroupPost {id: $id})
		RETURN properties(n) AS props
	`, map[string]interface{}{"id": id})
	if err != nil {
		return storage.Post{}, wrapRead("get post", err)
	}
	return postFromProps(props), nil
}

func (t *tx) DeletePost(ctx context.Context, id string) (bool, error) {
	if err := t.checkWritable(); err != nil {
		return false, err
	}
	counters, err := t.exec(ctx, `
		MATCH (n:GroupPost {id: $id})
		DETACH DELETE n
	`, map[string]interface{}{"id": id})
	if err != nil {
		return false, fmt.Errorf("failed to delete post: %w", err)
	}
	return counters.NodesDeleted() > 0, nil
}

func (t *tx) PutFeedItem(ctx context.Context, item storage.FeedItem) (bool, error) {
	if err := t.checkWritable(); err != nil {
		return false, err
	}
	counters, err := t.exec(ctx, `
		MERGE (n:GroupFeedItem {group_id: $group, site: $site, event_id: $event})
		ON CREATE SET n += $props
	`, map[string]interface{}{
		"group": item.GroupID,
		"site":  item.Site,
		"event": item.EventID,
		"props": feedItemProps(item),
	})
	if err != nil {
		return false, fmt.Errorf("failed to put feed item: %w", err)
	}
	return counters.NodesCreated() > 0, nil
}

func (t *tx) FeedItems(ctx context.Context, groupID, site string, offset, limit int) ([]storage.FeedItem, error) {
	page, params := pageClause(offset, limit)
	params["group"] = groupID
	params["site"] = site

	records, err := t.collect(ctx, `
		MATCH (n:GroupFeedItem {group_id: $group, site: $site})
		RETURN properties(n) AS props
		ORDER BY n.event_at DESC, n.id ASC
	`+page, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed items: %w", err)
	}
	out := make([]storage.FeedItem, 0, len(records))
	for _, props := range propsList(records) {
		out = append(out, feedItemFromProps(props))
	}
	return out, nil
}

func (t *tx) DeleteFeedItems(ctx context.Context, groupID, targetID string) (int, error) {
	if err := t.checkWritable(); err != nil {
		return 0, err
	}
	counters, err := t.exec(ctx, `
		MATCH (n:GroupFeedItem {group_id: $group, target_id: $target})
		DETACH DELETE n
	`, map[string]interface{}{"group": groupID, "target": targetID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete feed items: %w", err)
	}
	return counters.NodesDeleted(), nil
}

// ============================================================================
// Profile Comments
// ============================================================================

func (t *tx) PutProfileComment(ctx context.Context, c storage.ProfileComment) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	_, err := t.exec(ctx, `
		MERGE (n:ProfileComment {id: $id})
		SET n += $props
	`, map[string]interface{}{"id": c.ID, "props": profileCommentProps(c)})
	if err != nil {
		return fmt.Errorf("failed to put profile comment: %w", err)
	}
	return nil
}

func (t *tx) ProfileComments(ctx context.Context, receiver, site string, offset, limit int) ([]storage.ProfileComment, error) {
	page, params := pageClause(offset, limit)
	params["receiver"] = receiver
	params["site"] = site

	records, err := t.collect(ctx, `
		MATCH (n:ProfileComment {receiver: $receiver, site: $site})
		RETURN properties(n) AS props
		ORDER BY n.created_at DESC, n.id ASC
	`+page, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list profile comments: %w", err)
	}
	out := make([]storage.ProfileComment, 0, len(records))
	for _, props := range propsList(records) {
		out = append(out, profileCommentFromProps(props))
	}
	return out, nil
}

// wrapRead keeps storage.ErrNotFound recognisable and annotates driver errors.
func wrapRead(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
