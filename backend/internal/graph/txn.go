package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"social-network/backend/internal/events"
	"social-network/backend/internal/metrics"
	"social-network/backend/internal/storage"
	apperrors "social-network/backend/pkg/errors"
)

// Txn is the graph view of one storage transaction.
type Txn struct {
	g  *GraphStore
	tx storage.Tx

	events  events.Batch
	onWrite []func()
}

// Records exposes the storage transaction for request, group and feed
// records that must commit together with graph edges.
func (t *Txn) Records() storage.Tx {
	return t.tx
}

// Store returns the GraphStore the transaction belongs to.
func (t *Txn) Store() *GraphStore {
	return t.g
}

// Emit queues e for delivery once the transaction commits.
func (t *Txn) Emit(e events.Event) {
	t.events.Add(e)
}

func (t *Txn) commit(ctx context.Context) {
	for _, fn := range t.onWrite {
		fn()
	}
	t.events.Flush(ctx, t.g.sink, t.g.logger)
}

func (t *Txn) describe(source storage.Node, edgeType string, target storage.Node) string {
	return fmt.Sprintf("%s-[%s]->%s", source, edgeType, target)
}

// Edge creates or updates source -[edgeType]-> target in site, and the
// inverse edge target -[inverse]-> source with the same attributes and
// timestamp. Self-inverse types get both directions stored as well.
func (t *Txn) Edge(ctx context.Context, source, target storage.Node, edgeType, site string, attrs storage.Attributes) (*storage.Edge, error) {
	typ, err := t.g.types.Lookup(edgeType)
	if err != nil {
		return nil, err
	}
	inverse, err := t.g.types.Inverse(edgeType)
	if err != nil {
		return nil, err
	}
	if err := ValidateAttributes(attrs); err != nil {
		return nil, err
	}

	site = t.g.Site(site)
	now := t.g.Now()

	direct := storage.Edge{
		Source:     source,
		Type:       typ.Name,
		Target:     target,
		Site:       site,
		Attributes: attrs.Clone(),
		CreatedAt:  now,
	}
	mirror := storage.Edge{
		Source:     target,
		Type:       inverse.Name,
		Target:     source,
		Site:       site,
		Attributes: attrs.Clone(),
		CreatedAt:  now,
	}

	for _, e := range []storage.Edge{direct, mirror} {
		if err := t.tx.PutEdge(ctx, e); err != nil {
			metrics.EdgeWriteFailuresTotal.WithLabelValues(e.Type).Inc()
			t.g.logger.Error("Edge write failed",
				zap.String("edge", t.describe(e.Source, e.Type, e.Target)),
				zap.String("site", site),
				zap.Error(err),
			)
			return nil, apperrors.NewGraphWriteFailed("edge", t.describe(source, edgeType, target), err)
		}
	}

	t.onWrite = append(t.onWrite, func() {
		metrics.EdgeWritesTotal.WithLabelValues(direct.Type, "put").Inc()
		metrics.EdgeWritesTotal.WithLabelValues(mirror.Type, "put").Inc()
	})
	return &direct, nil
}

// NoEdge deletes source -[edgeType]-> target and its inverse in site. It
// reports whether anything was deleted.
func (t *Txn) NoEdge(ctx context.Context, source, target storage.Node, edgeType, site string) (bool, error) {
	inverse, err := t.g.types.Inverse(edgeType)
	if err != nil {
		return false, err
	}
	site = t.g.Site(site)

	keys := []storage.EdgeKey{
		{Source: source, Type: edgeType, Target: target, Site: site},
		{Source: target, Type: inverse.Name, Target: source, Site: site},
	}
	deleted := false
	for _, k := range keys {
		ok, err := t.tx.DeleteEdge(ctx, k)
		if err != nil {
			metrics.EdgeWriteFailuresTotal.WithLabelValues(k.Type).Inc()
			t.g.logger.Error("Edge delete failed",
				zap.String("edge", t.describe(k.Source, k.Type, k.Target)),
				zap.String("site", site),
				zap.Error(err),
			)
			return false, apperrors.NewGraphWriteFailed("no_edge", t.describe(source, edgeType, target), err)
		}
		if ok {
			deleted = true
			typ := k.Type
			t.onWrite = append(t.onWrite, func() {
				metrics.EdgeWritesTotal.WithLabelValues(typ, "delete").Inc()
			})
		}
	}
	return deleted, nil
}

// EdgeGet returns the edge or nil when it does not exist.
func (t *Txn) EdgeGet(ctx context.Context, source storage.Node, edgeType string, target storage.Node, site string) (*storage.Edge, error) {
	if _, err := t.g.types.Lookup(edgeType); err != nil {
		return nil, err
	}
	e, ok, err := t.tx.GetEdge(ctx, storage.EdgeKey{Source: source, Type: edgeType, Target: target, Site: t.g.Site(site)})
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("edge_get "+t.describe(source, edgeType, target), err)
	}
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// EdgeCount returns the number of outgoing edges of edgeType from source.
func (t *Txn) EdgeCount(ctx context.Context, source storage.Node, edgeType, site string) (int, error) {
	if _, err := t.g.types.Lookup(edgeType); err != nil {
		return 0, err
	}
	n, err := t.tx.CountEdges(ctx, source, edgeType, t.g.Site(site))
	if err != nil {
		return 0, apperrors.NewGraphQueryFailed("edge_count "+source.String()+" "+edgeType, err)
	}
	return n, nil
}

// Unbounded is the range limit that returns every edge from the offset on.
const Unbounded = storage.Unbounded

// EdgeRange returns outgoing edges of edgeType from source ordered by
// creation time, newest first. A zero limit returns nothing and Unbounded
// returns every edge from offset on.
func (t *Txn) EdgeRange(ctx context.Context, source storage.Node, edgeType, site string, offset, limit int) ([]storage.Edge, error) {
	if _, err := t.g.types.Lookup(edgeType); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	edges, err := t.tx.RangeEdges(ctx, source, edgeType, t.g.Site(site), offset, limit)
	if err != nil {
		return nil, apperrors.NewGraphQueryFailed("edge_range "+source.String()+" "+edgeType, err)
	}
	return edges, nil
}
