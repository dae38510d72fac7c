// Package memory is an in-process storage adapter backed by B-tree indexes.
//
// One writer and any number of readers run at a time. Writes are recorded in
// an undo log so a failed Update leaves the store exactly as it found it.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/tidwall/btree"

	"social-network/backend/internal/storage"
)

var errReadOnly = errors.New("memory: write in read-only transaction")

// Store is an in-memory storage.Store.
type Store struct {
	mu  sync.RWMutex
	seq uint64

	edges     map[storage.EdgeKey]edgeItem
	edgeIndex *btree.BTreeG[edgeItem]

	groups  map[string]storage.Group
	slugs   map[slugKey]string
	admins  map[string]map[string]struct{} // group -> users
	adminOf map[string]map[string]struct{} // user -> groups

	friendRequests     map[string]storage.FriendRequest
	membershipRequests map[string]storage.MembershipRequest

	posts     map[string]storage.Post
	feed      map[feedKey]feedItem
	feedIndex *btree.BTreeG[feedItem]

	comments map[string]commentItem
	comIndex *btree.BTreeG[commentItem]
}

// New returns an empty store.
func New() *Store {
	return &Store{
		edges:              make(map[storage.EdgeKey]edgeItem),
		edgeIndex:          newEdgeIndex(),
		groups:             make(map[string]storage.Group),
		slugs:              make(map[slugKey]string),
		admins:             make(map[string]map[string]struct{}),
		adminOf:            make(map[string]map[string]struct{}),
		friendRequests:     make(map[string]storage.FriendRequest),
		membershipRequests: make(map[string]storage.MembershipRequest),
		posts:              make(map[string]storage.Post),
		feed:               make(map[feedKey]feedItem),
		feedIndex:          newFeedIndex(),
		comments:           make(map[string]commentItem),
		comIndex:           newCommentIndex(),
	}
}

// View implements storage.Store.
func (s *Store) View(ctx context.Context, fn func(storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&tx{s: s})
}

// Update implements storage.Store.
func (s *Store) Update(ctx context.Context, fn func(storage.Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{s: s, writable: true}
	defer func() {
		if p := recover(); p != nil {
			t.rollback()
			panic(p)
		}
		if err != nil {
			t.rollback()
		}
	}()

	if err = fn(t); err != nil {
		return err
	}
	return ctx.Err()
}

// Close implements storage.Store. The in-memory store holds no resources.
func (s *Store) Close(context.Context) error {
	return nil
}

func (s *Store) nextSeq() uint64 {
	s.seq++
	return s.seq
}

type tx struct {
	s        *Store
	writable bool
	undo     []func()
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *tx) onRollback(fn func()) {
	t.undo = append(t.undo, fn)
}

func (t *tx) checkWritable() error {
	if !t.writable {
		return errReadOnly
	}
	return nil
}

// Edges

func (t *tx) PutEdge(_ context.Context, e storage.Edge) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	s := t.s
	k := e.Key()
	e.Attributes = e.Attributes.Clone()

	prev, existed := s.edges[k]
	if existed {
		s.edgeIndex.Delete(prev)
	}
	item := edgeItem{
		site:      e.Site,
		source:    e.Source.String(),
		edgeType:  e.Type,
		createdAt: nanos(e.CreatedAt),
		seq:       s.nextSeq(),
		target:    e.Target.String(),
		edge:      e,
	}
	s.edges[k] = item
	s.edgeIndex.Set(item)

	t.onRollback(func() {
		s.edgeIndex.Delete(item)
		delete(s.edges, k)
		if existed {
			s.edges[k] = prev
			s.edgeIndex.Set(prev)
		}
	})
	return nil
}

func (t *tx) DeleteEdge(_ context.Context, k storage.EdgeKey) (bool, error) {
	if err := t.checkWritable(); err != nil {
		return false, err
	}
	s := t.s
	prev, ok := s.edges[k]
	if !ok {
		return false, nil
	}
	delete(s.edges, k)
	s.edgeIndex.Delete(prev)

	t.onRollback(func() {
		s.edges[k] = prev
		s.edgeIndex.Set(prev)
	})
	return true, nil
}

func (t *tx) GetEdge(_ context.Context, k storage.EdgeKey) (storage.Edge, bool, error) {
	it, ok := t.s.edges[k]
	if !ok {
		return storage.Edge{}, false, nil
	}
	e := it.edge
	e.Attributes = e.Attributes.Clone()
	return e, true, nil
}

func (t *tx) CountEdges(_ context.Context, source storage.Node, edgeType, site string) (int, error) {
	n := 0
	src := source.String()
	t.s.edgeIndex.Ascend(edgePivot(site, src, edgeType), func(it edgeItem) bool {
		if !it.samePrefix(site, src, edgeType) {
			return false
		}
		n++
		return true
	})
	return n, nil
}

func (t *tx) RangeEdges(_ context.Context, source storage.Node, edgeType, site string, offset, limit int) ([]storage.Edge, error) {
	var out []storage.Edge
	src := source.String()
	w := window{offset: offset, limit: limit}

	t.s.edgeIndex.Ascend(edgePivot(site, src, edgeType), func(it edgeItem) bool {
		if !it.samePrefix(site, src, edgeType) {
			return false
		}
		take, more := w.accept()
		if take {
			e := it.edge
			e.Attributes = e.Attributes.Clone()
			out = append(out, e)
		}
		return more
	})
	return out, nil
}

// Groups

func (t *tx) PutGroup(_ context.Context, g storage.Group) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	s := t.s
	sk := slugKey{site: g.Site, slug: g.Slug}
	if owner, ok := s.slugs[sk]; ok && owner != g.ID {
		return storage.ErrAlreadyExists
	}

	prev, existed := s.groups[g.ID]
	if existed {
		delete(s.slugs, slugKey{site: prev.Site, slug: prev.Slug})
	}
	s.groups[g.ID] = g
	s.slugs[sk] = g.ID

	t.onRollback(func() {
		delete(s.slugs, sk)
		delete(s.groups, g.ID)
		if existed {
			s.groups[g.ID] = prev
			s.slugs[slugKey{site: prev.Site, slug: prev.Slug}] = prev.ID
		}
	})
	return nil
}

func (t *tx) GetGroup(_ context.Context, id string) (storage.Group, error) {
	g, ok := t.s.groups[id]
	if !ok {
		return storage.Group{}, storage.ErrNotFound
	}
	return g, nil
}

func (t *tx) GetGroupBySlug(ctx context.Context, site, slug string) (storage.Group, error) {
	id, ok := t.s.slugs[slugKey{site: site, slug: slug}]
	if !ok {
		return storage.Group{}, storage.ErrNotFound
	}
	return t.GetGroup(ctx, id)
}

func (t *tx) AddAdministrator(_ context.Context, groupID, userID string) (bool, error) {
	if err := t.checkWritable(); err != nil {
		return false, err
	}
	if _, ok := t.s.admins[groupID][userID]; ok {
		return false, nil
	}
	t.link(groupID, userID)
	t.onRollback(func() { t.unlink(groupID, userID) })
	return true, nil
}

func (t *tx) RemoveAdministrator(_ context.Context, groupID, userID string) (bool, error) {
	if err := t.checkWritable(); err != nil {
		return false, err
	}
	if _, ok := t.s.admins[groupID][userID]; !ok {
		return false, nil
	}
	t.unlink(groupID, userID)
	t.onRollback(func() { t.link(groupID, userID) })
	return true, nil
}

func (t *tx) link(groupID, userID string) {
	s := t.s
	if s.admins[groupID] == nil {
		s.admins[groupID] = make(map[string]struct{})
	}
	if s.adminOf[userID] == nil {
		s.adminOf[userID] = make(map[string]struct{})
	}
	s.admins[groupID][userID] = struct{}{}
	s.adminOf[userID][groupID] = struct{}{}
}

func (t *tx) unlink(groupID, userID string) {
	s := t.s
	delete(s.admins[groupID], userID)
	delete(s.adminOf[userID], groupID)
	if len(s.admins[groupID]) == 0 {
		delete(s.admins, groupID)
	}
	if len(s.adminOf[userID]) == 0 {
		delete(s.adminOf, userID)
	}
}

func (t *tx) Administrators(_ context.Context, groupID string) ([]string, error) {
	return sortedKeys(t.s.admins[groupID]), nil
}

func (t *tx) AdministeredGroups(_ context.Context, userID string) ([]string, error) {
	return sortedKeys(t.s.adminOf[userID]), nil
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Requests

func (t *tx) PutFriendRequest(_ context.Context, r storage.FriendRequest) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	putWithUndo(t, t.s.friendRequests, r.ID, r)
	return nil
}

func (t *tx) GetFriendRequest(_ context.Context, id string) (storage.FriendRequest, error) {
	r, ok := t.s.friendRequests[id]
	if !ok {
		return storage.FriendRequest{}, storage.ErrNotFound
	}
	return r, nil
}

func (t *tx) FriendRequestsTo(_ context.Context, userID string, pendingOnly bool) ([]storage.FriendRequest, error) {
	var out []storage.FriendRequest
	for _, r := range t.s.friendRequests {
		if r.ToUser != userID {
			continue
		}
		if pendingOnly && (r.Accepted || r.Denied) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *tx) PutMembershipRequest(_ context.Context, r storage.MembershipRequest) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	putWithUndo(t, t.s.membershipRequests, r.ID, r)
	return nil
}

func (t *tx) GetMembershipRequest(_ context.Context, id string) (storage.MembershipRequest, error) {
	r, ok := t.s.membershipRequests[id]
	if !ok {
		return storage.MembershipRequest{}, storage.ErrNotFound
	}
	return r, nil
}

func (t *tx) MembershipRequestsFor(_ context.Context, groupID string, pendingOnly bool) ([]storage.MembershipRequest, error) {
	var out []storage.MembershipRequest
	for _, r := range t.s.membershipRequests {
		if r.GroupID != groupID {
			continue
		}
		if pendingOnly && (r.Accepted || r.Denied) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *tx) PendingMembershipRequest(_ context.Context, requester, groupID string) (storage.MembershipRequest, error) {
	for _, r := range t.s.membershipRequests {
		if r.Requester == requester && r.GroupID == groupID && !r.Accepted && !r.Denied {
			return r, nil
		}
	}
	return storage.MembershipRequest{}, storage.ErrNotFound
}

// Feed

func (t *tx) PutPost(_ context.Context, p storage.Post) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	putWithUndo(t, t.s.posts, p.ID, p)
	return nil
}

func (t *tx) GetPost(_ context.Context, id string) (storage.Post, error) {
	p, ok := t.s.posts[id]
	if !ok {
		return storage.Post{}, storage.ErrNotFound
	}
	return p, nil
}

func (t *tx) DeletePost(_ context.Context, id string) (bool, error) {
	if err := t.checkWritable(); err != nil {
		return false, err
	}
	s := t.s
	prev, ok := s.posts[id]
	if !ok {
		return false, nil
	}
	delete(s.posts, id)
	t.onRollback(func() { s.posts[id] = prev })
	return true, nil
}

func (t *tx) PutFeedItem(_ context.Context, item storage.FeedItem) (bool, error) {
	if err := t.checkWritable(); err != nil {
		return false, err
	}
	s := t.s
	k := feedKey{groupID: item.GroupID, site: item.Site, eventID: item.EventID}
	if _, ok := s.feed[k]; ok {
		return false, nil
	}
	idx := feedItem{
		groupID: item.GroupID,
		site:    item.Site,
		eventAt: nanos(item.EventAt),
		seq:     s.nextSeq(),
		id:      item.ID,
		item:    item,
	}
	s.feed[k] = idx
	s.feedIndex.Set(idx)

	t.onRollback(func() {
		delete(s.feed, k)
		s.feedIndex.Delete(idx)
	})
	return true, nil
}

func (t *tx) FeedItems(_ context.Context, groupID, site string, offset, limit int) ([]storage.FeedItem, error) {
	var out []storage.FeedItem
	w := window{offset: offset, limit: limit}

	t.s.feedIndex.Ascend(feedPivot(groupID, site), func(it feedItem) bool {
		if it.groupID != groupID || it.site != site {
			return false
		}
		take, more := w.accept()
		if take {
			out = append(out, it.item)
		}
		return more
	})
	return out, nil
}

func (t *tx) DeleteFeedItems(_ context.Context, groupID, targetID string) (int, error) {
	if err := t.checkWritable(); err != nil {
		return 0, err
	}
	s := t.s
	var doomed []feedItem
	s.feedIndex.Ascend(feedPivot(groupID, ""), func(it feedItem) bool {
		if it.groupID != groupID {
			return false
		}
		if it.item.TargetID == targetID {
			doomed = append(doomed, it)
		}
		return true
	})

	for _, it := range doomed {
		it := it
		k := feedKey{groupID: it.groupID, site: it.site, eventID: it.item.EventID}
		delete(s.feed, k)
		s.feedIndex.Delete(it)
		t.onRollback(func() {
			s.feed[k] = it
			s.feedIndex.Set(it)
		})
	}
	return len(doomed), nil
}

// Profile comments

func (t *tx) PutProfileComment(_ context.Context, c storage.ProfileComment) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	s := t.s
	prev, existed := s.comments[c.ID]
	if existed {
		s.comIndex.Delete(prev)
	}
	item := commentItem{
		receiver:  c.Receiver,
		site:      c.Site,
		createdAt: nanos(c.CreatedAt),
		seq:       s.nextSeq(),
		id:        c.ID,
		comment:   c,
	}
	s.comments[c.ID] = item
	s.comIndex.Set(item)

	t.onRollback(func() {
		s.comIndex.Delete(item)
		delete(s.comments, c.ID)
		if existed {
			s.comments[c.ID] = prev
			s.comIndex.Set(prev)
		}
	})
	return nil
}

func (t *tx) ProfileComments(_ context.Context, receiver, site string, offset, limit int) ([]storage.ProfileComment, error) {
	var out []storage.ProfileComment
	w := window{offset: offset, limit: limit}

	t.s.comIndex.Ascend(commentPivot(receiver, site), func(it commentItem) bool {
		if it.receiver != receiver || it.site != site {
			return false
		}
		take, more := w.accept()
		if take {
			out = append(out, it.comment)
		}
		return more
	})
	return out, nil
}

func putWithUndo[V any](t *tx, m map[string]V, id string, v V) {
	prev, existed := m[id]
	m[id] = v
	t.onRollback(func() {
		if existed {
			m[id] = prev
		} else {
			delete(m, id)
		}
	})
}

var _ storage.Store = (*Store)(nil)
var _ storage.Tx = (*tx)(nil)
