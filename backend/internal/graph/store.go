// Package graph is the typed, directed, time-ordered edge store of the social
// network. It keeps inverse edges in step with their direct counterparts and
// scopes every mutation to a storage transaction.
package graph

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"social-network/backend/internal/constants"
	"social-network/backend/internal/edgetype"
	"social-network/backend/internal/events"
	"social-network/backend/internal/storage"
	apperrors "social-network/backend/pkg/errors"
	"social-network/backend/pkg/logger"
)

// GraphStore stores edges through a storage.Store.
type GraphStore struct {
	store       storage.Store
	types       *edgetype.Registry
	sink        events.Sink
	clock       func() time.Time
	logger      *zap.Logger
	defaultSite string
}

// Option configures a GraphStore.
type Option func(*GraphStore)

// WithClock replaces time.Now as the source of edge and record timestamps.
func WithClock(clock func() time.Time) Option {
	return func(g *GraphStore) { g.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *GraphStore) { g.logger = l }
}

// WithDefaultSite sets the site used when a caller passes "".
func WithDefaultSite(site string) Option {
	return func(g *GraphStore) { g.defaultSite = site }
}

// WithSink sets where committed events are delivered.
func WithSink(sink events.Sink) Option {
	return func(g *GraphStore) { g.sink = sink }
}

// New creates a GraphStore over store using the edge types in registry.
func New(store storage.Store, registry *edgetype.Registry, opts ...Option) *GraphStore {
	g := &GraphStore{
		store:       store,
		types:       registry,
		sink:        events.Discard,
		clock:       time.Now,
		logger:      logger.Named("graph"),
		defaultSite: constants.DefaultSite,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Now returns the current time according to the store's clock, in UTC.
func (g *GraphStore) Now() time.Time {
	return g.clock().UTC()
}

// Site resolves an empty site to the default one.
func (g *GraphStore) Site(site string) string {
	if site == "" {
		return g.defaultSite
	}
	return site
}

// DefaultSite returns the site used when none is given.
func (g *GraphStore) DefaultSite() string {
	return g.defaultSite
}

// Registry returns the edge types known to the store.
func (g *GraphStore) Registry() *edgetype.Registry {
	return g.types
}

// Logger returns the store's logger.
func (g *GraphStore) Logger() *zap.Logger {
	return g.logger
}

// Update runs fn in a read-write transaction. When fn returns an error every
// write is rolled back and no event is emitted. Events queued with Txn.Emit
// reach the sink after commit, in order.
func (g *GraphStore) Update(ctx context.Context, fn func(*Txn) error) error {
	var committed *Txn
	err := g.store.Update(ctx, func(tx storage.Tx) error {
		// the store may retry fn; each attempt starts with empty hooks
		t := &Txn{g: g, tx: tx}
		if err := fn(t); err != nil {
			return err
		}
		committed = t
		return nil
	})
	if err != nil {
		return g.classify("update", err)
	}

	committed.commit(ctx)
	return nil
}

// View runs fn in a read-only transaction; all reads observe one snapshot.
func (g *GraphStore) View(ctx context.Context, fn func(*Txn) error) error {
	err := g.store.View(ctx, func(tx storage.Tx) error {
		return fn(&Txn{g: g, tx: tx})
	})
	if err != nil {
		return g.classify("view", err)
	}
	return nil
}

// classify leaves typed errors alone and turns anything else coming out of
// the store into a graph or context error.
func (g *GraphStore) classify(op string, err error) error {
	if apperrors.TypeOf(err) != "" {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return apperrors.NewContextCancelled(op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewContextCancelled(op, err)
	}
	g.logger.Error("Storage transaction failed", zap.String("op", op), zap.Error(err))
	if op == "view" {
		return apperrors.NewGraphQueryFailed(op, err)
	}
	return apperrors.NewGraphWriteFailed(op, "", err)
}

// ============================================================================
// Single-operation shortcuts
// ============================================================================

// Edge creates or updates source -[edgeType]-> target and its inverse.
func (g *GraphStore) Edge(ctx context.Context, source, target storage.Node, edgeType, site string, attrs storage.Attributes) (*storage.Edge, error) {
	var out *storage.Edge
	err := g.Update(ctx, func(t *Txn) error {
		e, err := t.Edge(ctx, source, target, edgeType, site, attrs)
		out = e
		return err
	})
	return out, err
}

// NoEdge deletes source -[edgeType]-> target and its inverse.
func (g *GraphStore) NoEdge(ctx context.Context, source, target storage.Node, edgeType, site string) (bool, error) {
	var deleted bool
	err := g.Update(ctx, func(t *Txn) error {
		var err error
		deleted, err = t.NoEdge(ctx, source, target, edgeType, site)
		return err
	})
	return deleted, err
}

// EdgeGet returns the edge or nil when it does not exist.
func (g *GraphStore) EdgeGet(ctx context.Context, source storage.Node, edgeType string, target storage.Node, site string) (*storage.Edge, error) {
	var out *storage.Edge
	err := g.View(ctx, func(t *Txn) error {
		var err error
		out, err = t.EdgeGet(ctx, source, edgeType, target, site)
		return err
	})
	return out, err
}

// EdgeCount returns the number of outgoing edges of edgeType from source.
func (g *GraphStore) EdgeCount(ctx context.Context, source storage.Node, edgeType, site string) (int, error) {
	var n int
	err := g.View(ctx, func(t *Txn) error {
		var err error
		n, err = t.EdgeCount(ctx, source, edgeType, site)
		return err
	})
	return n, err
}

// EdgeRange returns outgoing edges of edgeType from source, newest first.
// The page is read from a single snapshot.
func (g *GraphStore) EdgeRange(ctx context.Context, source storage.Node, edgeType, site string, offset, limit int) ([]storage.Edge, error) {
	var out []storage.Edge
	err := g.View(ctx, func(t *Txn) error {
		var err error
		out, err = t.EdgeRange(ctx, source, edgeType, site, offset, limit)
		return err
	})
	return out, err
}
