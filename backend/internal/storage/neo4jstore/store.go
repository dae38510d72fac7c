// Package neo4jstore implements the storage contract on Neo4j.
//
// Graph nodes are (:Entity {key, kind, id}) and edges are relationships whose
// type is derived from the edge type name. Requests, groups, posts and feed
// items are labelled nodes. Every View/Update maps to one managed transaction.
package neo4jstore

import (
	"context"
	"errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"social-network/backend/internal/storage"
	apperrors "social-network/backend/pkg/errors"
	"social-network/backend/pkg/logger"
)

var errReadOnly = errors.New("neo4jstore: write in read-only transaction")

// Store is a storage.Store backed by a Neo4j database.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// New wraps an existing driver. database may be empty for the server default.
func New(driver neo4j.DriverWithContext, database string) *Store {
	return &Store{
		driver:   driver,
		database: database,
		logger:   logger.Named("neo4jstore"),
	}
}

// Open creates a driver for uri and verifies connectivity.
func Open(ctx context.Context, uri, user, password, database string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, apperrors.NewGraphConnectionFailed(uri, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, apperrors.NewGraphConnectionFailed(uri, err)
	}
	return New(driver, database), nil
}

// Driver exposes the underlying driver, e.g. for schema management.
func (s *Store) Driver() neo4j.DriverWithContext {
	return s.driver
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

// View implements storage.Store.
func (s *Store) View(ctx context.Context, fn func(storage.Tx) error) error {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	_, err := session.ExecuteRead(ctx, func(mtx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(&tx{mtx: mtx})
	})
	return err
}

// Update implements storage.Store. The driver may retry fn on transient
// failures, so fn must not have effects outside the transaction.
func (s *Store) Update(ctx context.Context, fn func(storage.Tx) error) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(mtx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(&tx{mtx: mtx, writable: true})
	})
	if err != nil {
		s.logger.Debug("write transaction rolled back", zap.Error(err))
	}
	return err
}

// Close closes the Neo4j driver connection.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

type tx struct {
	mtx      neo4j.ManagedTransaction
	writable bool
}

func (t *tx) checkWritable() error {
	if !t.writable {
		return errReadOnly
	}
	return nil
}

func (t *tx) collect(ctx context.Context, query string, params map[string]interface{}) ([]*neo4j.Record, error) {
	res, err := t.mtx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return res.Collect(ctx)
}

func (t *tx) exec(ctx context.Context, query string, params map[string]interface{}) (neo4j.Counters, error) {
	res, err := t.mtx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	summary, err := res.Consume(ctx)
	if err != nil {
		return nil, err
	}
	return summary.Counters(), nil
}

var _ storage.Store = (*Store)(nil)
var _ storage.Tx = (*tx)(nil)
