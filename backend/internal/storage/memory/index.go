package memory

import (
	"math"
	"time"

	"github.com/tidwall/btree"

	"social-network/backend/internal/storage"
)

// edgeItem orders outgoing edges of (site, source, type) newest first.
// seq breaks ties between edges sharing a timestamp, later writes first.
type edgeItem struct {
	site      string
	source    string
	edgeType  string
	createdAt int64
	seq       uint64
	target    string

	edge storage.Edge
}

func edgeItemLess(a, b edgeItem) bool {
	if a.site != b.site {
		return a.site < b.site
	}
	if a.source != b.source {
		return a.source < b.source
	}
	if a.edgeType != b.edgeType {
		return a.edgeType < b.edgeType
	}
	if a.createdAt != b.createdAt {
		return a.createdAt > b.createdAt
	}
	if a.seq != b.seq {
		return a.seq > b.seq
	}
	return a.target < b.target
}

func (i edgeItem) samePrefix(site, source, edgeType string) bool {
	return i.site == site && i.source == source && i.edgeType == edgeType
}

// edgePivot sorts before every item of the given prefix.
func edgePivot(site, source, edgeType string) edgeItem {
	return edgeItem{site: site, source: source, edgeType: edgeType, createdAt: math.MaxInt64, seq: math.MaxUint64}
}

// feedItem orders feed entries of (group, site) by event time, newest first.
type feedItem struct {
	groupID string
	site    string
	eventAt int64
	seq     uint64
	id      string

	item storage.FeedItem
}

func feedItemLess(a, b feedItem) bool {
	if a.groupID != b.groupID {
		return a.groupID < b.groupID
	}
	if a.site != b.site {
		return a.site < b.site
	}
	if a.eventAt != b.eventAt {
		return a.eventAt > b.eventAt
	}
	if a.seq != b.seq {
		return a.seq > b.seq
	}
	return a.id < b.id
}

func feedPivot(groupID, site string) feedItem {
	return feedItem{groupID: groupID, site: site, eventAt: math.MaxInt64, seq: math.MaxUint64}
}

// commentItem orders the comments received by a user in a site, newest first.
type commentItem struct {
	receiver  string
	site      string
	createdAt int64
	seq       uint64
	id        string

	comment storage.ProfileComment
}

func commentItemLess(a, b commentItem) bool {
	if a.receiver != b.receiver {
		return a.receiver < b.receiver
	}
	if a.site != b.site {
		return a.site < b.site
	}
	if a.createdAt != b.createdAt {
		return a.createdAt > b.createdAt
	}
	if a.seq != b.seq {
		return a.seq > b.seq
	}
	return a.id < b.id
}

func commentPivot(receiver, site string) commentItem {
	return commentItem{receiver: receiver, site: site, createdAt: math.MaxInt64, seq: math.MaxUint64}
}

func newEdgeIndex() *btree.BTreeG[edgeItem] {
	return btree.NewBTreeGOptions(edgeItemLess, btree.Options{NoLocks: true})
}

func newFeedIndex() *btree.BTreeG[feedItem] {
	return btree.NewBTreeGOptions(feedItemLess, btree.Options{NoLocks: true})
}

func newCommentIndex() *btree.BTreeG[commentItem] {
	return btree.NewBTreeGOptions(commentItemLess, btree.Options{NoLocks: true})
}

type feedKey struct {
	groupID string
	site    string
	eventID string
}

type slugKey struct {
	site string
	slug string
}

func nanos(t time.Time) int64 {
	return t.UnixNano()
}

// window applies offset/limit to a scan. A zero limit takes nothing and a
// negative one (storage.Unbounded) takes everything after offset.
type window struct {
	offset, limit, seen, taken int
}

// accept reports whether the current element is inside the window and
// whether the scan should continue.
func (w *window) accept() (take, more bool) {
	if w.limit == 0 {
		return false, false
	}
	w.seen++
	if w.seen <= w.offset {
		return false, true
	}
	if w.limit > 0 && w.taken >= w.limit {
		return false, false
	}
	w.taken++
	return true, w.limit < 0 || w.taken < w.limit
}
