package neo4jstore

import (
	"sort"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"social-network/backend/internal/storage"
)

// attrPrefix namespaces free-form edge attributes among relationship properties.
const attrPrefix = "attr_"

// ============================================================================
// Record getters
// ============================================================================

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getInt64FromRecord(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	if i, ok := val.(int64); ok {
		return i
	}
	if i, ok := val.(int); ok {
		return int64(i)
	}
	return 0
}

func getStringSliceFromRecord(record *neo4j.Record, key string) []string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return []string{}
	}
	if slice, ok := val.([]interface{}); ok {
		result := make([]string, 0, len(slice))
		for _, v := range slice {
			if str, ok := v.(string); ok {
				result = append(result, str)
			}
		}
		return result
	}
	return []string{}
}

func getMapFromRecord(record *neo4j.Record, key string) map[string]interface{} {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return map[string]interface{}{}
	}
	if m, ok := val.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

// ============================================================================
// Property map getters
// ============================================================================

func getStringFromMap(m map[string]interface{}, key string) string {
	if str, ok := m[key].(string); ok {
		return str
	}
	return ""
}

func getBoolFromMap(m map[string]interface{}, key string) bool {
	if b, ok := m[key].(bool); ok {
		return b
	}
	return false
}

func getTimeFromMap(m map[string]interface{}, key string) time.Time {
	switch v := m[key].(type) {
	case int64:
		return time.Unix(0, v).UTC()
	case int:
		return time.Unix(0, int64(v)).UTC()
	}
	return time.Time{}
}

// ============================================================================
// Conversions
// ============================================================================

// sanitizeRelType maps an edge type name onto a Cypher relationship type.
func sanitizeRelType(t string) string {
	safe := make([]byte, 0, len(t))
	for i := range t {
		c := t[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			safe = append(safe, c)
		}
	}
	if len(safe) == 0 {
		return "RELATED_TO"
	}
	return strings.ToUpper(string(safe))
}

func edgeProps(e storage.Edge, writtenAt int64) map[string]interface{} {
	props := map[string]interface{}{
		"site":       e.Site,
		"created_at": e.CreatedAt.UnixNano(),
		"written_at": writtenAt,
	}
	for k, v := range e.Attributes {
		props[attrPrefix+k] = v
	}
	return props
}

func attributesFromProps(props map[string]interface{}) storage.Attributes {
	var attrs storage.Attributes
	for k, v := range props {
		name, ok := strings.CutPrefix(k, attrPrefix)
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		if attrs == nil {
			attrs = make(storage.Attributes)
		}
		attrs[name] = s
	}
	return attrs
}

func groupProps(g storage.Group) map[string]interface{} {
	return map[string]interface{}{
		"id":          g.ID,
		"site":        g.Site,
		"slug":        g.Slug,
		"name":        g.Name,
		"description": g.Description,
		"creator":     g.Creator,
		"closed":      g.Closed,
		"created_at":  g.CreatedAt.UnixNano(),
	}
}

func groupFromProps(m map[string]interface{}) storage.Group {
	return storage.Group{
		ID:          getStringFromMap(m, "id"),
		Site:        getStringFromMap(m, "site"),
		Slug:        getStringFromMap(m, "slug"),
		Name:        getStringFromMap(m, "name"),
		Description: getStringFromMap(m, "description"),
		Creator:     getStringFromMap(m, "creator"),
		Closed:      getBoolFromMap(m, "closed"),
		CreatedAt:   getTimeFromMap(m, "created_at"),
	}
}

func friendRequestProps(r storage.FriendRequest) map[string]interface{} {
	return map[string]interface{}{
		"id":         r.ID,
		"from_user":  r.FromUser,
		"to_user":    r.ToUser,
		"message":    r.Message,
		"site":       r.Site,
		"accepted":   r.Accepted,
		"denied":     r.Denied,
		"created_at": r.CreatedAt.UnixNano(),
	}
}

func friendRequestFromProps(m map[string]interface{}) storage.FriendRequest {
	return storage.FriendRequest{
		ID:        getStringFromMap(m, "id"),
		FromUser:  getStringFromMap(m, "from_user"),
		ToUser:    getStringFromMap(m, "to_user"),
		Message:   getStringFromMap(m, "message"),
		Site:      getStringFromMap(m, "site"),
		Accepted:  getBoolFromMap(m, "accepted"),
		Denied:    getBoolFromMap(m, "denied"),
		CreatedAt: getTimeFromMap(m, "created_at"),
	}
}

func membershipRequestProps(r storage.MembershipRequest) map[string]interface{} {
	return map[string]interface{}{
		"id":         r.ID,
		"requester":  r.Requester,
		"group_id":   r.GroupID,
		"message":    r.Message,
		"accepted":   r.Accepted,
		"denied":     r.Denied,
		"acceptor":   r.Acceptor,
		"created_at": r.CreatedAt.UnixNano(),
	}
}

func membershipRequestFromProps(m map[string]interface{}) storage.MembershipRequest {
	return storage.MembershipRequest{
		ID:        getStringFromMap(m, "id"),
		Requester: getStringFromMap(m, "requester"),
		GroupID:   getStringFromMap(m, "group_id"),
		Message:   getStringFromMap(m, "message"),
		Accepted:  getBoolFromMap(m, "accepted"),
		Denied:    getBoolFromMap(m, "denied"),
		Acceptor:  getStringFromMap(m, "acceptor"),
		CreatedAt: getTimeFromMap(m, "created_at"),
	}
}

func postProps(p storage.Post) map[string]interface{} {
	return map[string]interface{}{
		"id":         p.ID,
		"group_id":   p.GroupID,
		"creator":    p.Creator,
		"comment":    p.Comment,
		"url":        p.URL,
		"created_at": p.CreatedAt.UnixNano(),
	}
}

func postFromProps(m map[string]interface{}) storage.Post {
	return storage.Post{
		ID:        getStringFromMap(m, "id"),
		GroupID:   getStringFromMap(m, "group_id"),
		Creator:   getStringFromMap(m, "creator"),
		Comment:   getStringFromMap(m, "comment"),
		URL:       getStringFromMap(m, "url"),
		CreatedAt: getTimeFromMap(m, "created_at"),
	}
}

func profileCommentProps(c storage.ProfileComment) map[string]interface{} {
	return map[string]interface{}{
		"id":         c.ID,
		"site":       c.Site,
		"creator":    c.Creator,
		"receiver":   c.Receiver,
		"comment":    c.Comment,
		"created_at": c.CreatedAt.UnixNano(),
	}
}

func profileCommentFromProps(m map[string]interface{}) storage.ProfileComment {
	return storage.ProfileComment{
		ID:        getStringFromMap(m, "id"),
		Site:      getStringFromMap(m, "site"),
		Creator:   getStringFromMap(m, "creator"),
		Receiver:  getStringFromMap(m, "receiver"),
		Comment:   getStringFromMap(m, "comment"),
		CreatedAt: getTimeFromMap(m, "created_at"),
	}
}

func feedItemProps(f storage.FeedItem) map[string]interface{} {
	return map[string]interface{}{
		"id":         f.ID,
		"group_id":   f.GroupID,
		"site":       f.Site,
		"event_id":   f.EventID,
		"event_type": f.EventType,
		"actor":      f.Actor,
		"target_id":  f.TargetID,
		"event_at":   f.EventAt.UnixNano(),
	}
}

func feedItemFromProps(m map[string]interface{}) storage.FeedItem {
	return storage.FeedItem{
		ID:        getStringFromMap(m, "id"),
		GroupID:   getStringFromMap(m, "group_id"),
		Site:      getStringFromMap(m, "site"),
		EventID:   getStringFromMap(m, "event_id"),
		EventType: getStringFromMap(m, "event_type"),
		Actor:     getStringFromMap(m, "actor"),
		TargetID:  getStringFromMap(m, "target_id"),
		EventAt:   getTimeFromMap(m, "event_at"),
	}
}

// pageClause renders SKIP/LIMIT; a negative limit (storage.Unbounded) leaves
// the result unbounded and a zero limit renders LIMIT 0.
func pageClause(offset, limit int) (string, map[string]interface{}) {
	params := map[string]interface{}{}
	clause := ""
	if offset > 0 {
		clause += " SKIP $offset"
		params["offset"] = int64(offset)
	}
	if limit >= 0 {
		clause += " LIMIT $limit"
		params["limit"] = int64(limit)
	}
	return clause, params
}

func sortedStrings(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
