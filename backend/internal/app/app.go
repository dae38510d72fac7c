// Package app assembles the graph store, its storage adapter and its event
// sinks from configuration. Both binaries start from here.
package app

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"social-network/backend/internal/edgetype"
	"social-network/backend/internal/events"
	"social-network/backend/internal/graph"
	"social-network/backend/internal/storage"
	"social-network/backend/internal/storage/memory"
	"social-network/backend/internal/storage/neo4jstore"
	"social-network/backend/pkg/config"
)

// App is a wired graph store plus everything that must be closed with it.
type App struct {
	Store storage.Store
	Graph *graph.GraphStore
	Types *edgetype.Registry

	nats *nats.Conn
	log  *zap.Logger
}

// New opens the configured store and sinks. When migrate is set and the
// store is Neo4j, the schema is applied before the store is used.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, migrate bool) (*App, error) {
	types, err := EdgeTypes(cfg)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if ns, ok := store.(*neo4jstore.Store); ok && migrate {
		applied, err := ns.EnsureSchema(ctx, false)
		if err != nil {
			_ = store.Close(ctx)
			return nil, fmt.Errorf("failed to ensure schema: %w", err)
		}
		log.Info("Schema checked", zap.Bool("applied", applied), zap.String("version", neo4jstore.SchemaVersion))
	}

	a := &App{Store: store, Types: types, log: log}
	sink := events.Sink(events.LogSink{Logger: log.Named("events")})
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("social-network"))
		if err != nil {
			_ = store.Close(ctx)
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		a.nats = nc
		sink = events.Multi{sink, events.NewNATSSink(nc, cfg.EventSubjectPrefix)}
		log.Info("Publishing events to NATS", zap.String("url", cfg.NATSURL), zap.String("prefix", cfg.EventSubjectPrefix))
	}

	a.Graph = graph.New(store, types,
		graph.WithLogger(log.Named("graph")),
		graph.WithDefaultSite(cfg.DefaultSite),
		graph.WithSink(sink),
	)
	return a, nil
}

// EdgeTypes returns the built-in edge types, or those of EDGE_TYPES_FILE when
// set. A file must define the built-in types with their usual inverses.
func EdgeTypes(cfg *config.Config) (*edgetype.Registry, error) {
	if cfg.EdgeTypesFile == "" {
		return edgetype.Default(), nil
	}
	types, err := edgetype.LoadFile(cfg.EdgeTypesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load edge types: %w", err)
	}
	if err := types.RequireBuiltins(); err != nil {
		return nil, fmt.Errorf("edge types file %s: %w", cfg.EdgeTypesFile, err)
	}
	return types, nil
}

// OpenStore opens the storage adapter named by STORE_DRIVER.
func OpenStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverNeo4j:
		s, err := neo4jstore.Open(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
		if err != nil {
			return nil, err
		}
		log.Info("Connected to Neo4j", zap.String("uri", cfg.Neo4jURI))
		return s, nil
	default:
		log.Info("Using in-memory store")
		return memory.New(), nil
	}
}

// Close drains NATS and closes the store.
func (a *App) Close(ctx context.Context) error {
	if a.nats != nil {
		if err := a.nats.Drain(); err != nil {
			a.log.Warn("Failed to drain NATS connection", zap.Error(err))
		}
	}
	return a.Store.Close(ctx)
}
