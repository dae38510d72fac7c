package neo4jstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// SchemaVersion identifies the constraint/index set applied by EnsureSchema.
const SchemaVersion = "social_graph_v2"

type migration struct {
	name       string
	statements []string
}

var migrations = []migration{
	{
		name: "Create Constraints",
		statements: []string{
			"CREATE CONSTRAINT entity_key_unique IF NOT EXISTS FOR (n:Entity) REQUIRE n.key IS UNIQUE",
			"CREATE CONSTRAINT social_group_id_unique IF NOT EXISTS FOR (g:SocialGroup) REQUIRE g.id IS UNIQUE",
			"CREATE CONSTRAINT friend_request_id_unique IF NOT EXISTS FOR (r:FriendRequest) REQUIRE r.id IS UNIQUE",
			"CREATE CONSTRAINT membership_request_id_unique IF NOT EXISTS FOR (r:GroupMembershipRequest) REQUIRE r.id IS UNIQUE",
			"CREATE CONSTRAINT group_post_id_unique IF NOT EXISTS FOR (p:GroupPost) REQUIRE p.id IS UNIQUE",
			"CREATE CONSTRAINT feed_item_id_unique IF NOT EXISTS FOR (f:GroupFeedItem) REQUIRE f.id IS UNIQUE",
			"CREATE CONSTRAINT profile_comment_id_unique IF NOT EXISTS FOR (c:ProfileComment) REQUIRE c.id IS UNIQUE",
		},
	},
	{
		name: "Create Indexes",
		statements: []string{
			"CREATE INDEX social_group_site_slug IF NOT EXISTS FOR (g:SocialGroup) ON (g.site, g.slug)",
			"CREATE INDEX friend_request_to_user IF NOT EXISTS FOR (r:FriendRequest) ON (r.to_user)",
			"CREATE INDEX membership_request_group IF NOT EXISTS FOR (r:GroupMembershipRequest) ON (r.group_id, r.requester)",
			"CREATE INDEX feed_item_group_site IF NOT EXISTS FOR (f:GroupFeedItem) ON (f.group_id, f.site, f.event_at)",
			"CREATE INDEX feed_item_group_target IF NOT EXISTS FOR (f:GroupFeedItem) ON (f.group_id, f.target_id)",
			"CREATE INDEX profile_comment_receiver IF NOT EXISTS FOR (c:ProfileComment) ON (c.receiver, c.site, c.created_at)",
		},
	},
}

// EnsureSchema creates the constraints and indexes the adapter relies on and
// records a migration marker. Unless force is set, an already applied schema
// is left alone. It reports whether statements were run.
func (s *Store) EnsureSchema(ctx context.Context, force bool) (bool, error) {
	log := s.logger

	if !force {
		applied, err := s.schemaApplied(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to check migration status: %w", err)
		}
		if applied {
			log.Info("Schema already applied", zap.String("version", SchemaVersion))
			return false, nil
		}
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for i, m := range migrations {
		log.Info("Running migration",
			zap.Int("step", i+1),
			zap.Int("total", len(migrations)),
			zap.String("name", m.name),
		)
		// Schema statements cannot share a transaction with data writes, so
		// each one runs as its own auto-commit query.
		for _, stmt := range m.statements {
			if _, err := session.Run(ctx, stmt, nil); err != nil {
				return false, fmt.Errorf("migration %q failed: %w", m.name, err)
			}
		}
	}

	_, err := session.Run(ctx, `
		MERGE (m:Migration {version: $version})
		SET m.applied_at = datetime()
	`, map[string]interface{}{"version": SchemaVersion})
	if err != nil {
		log.Warn("Failed to mark migration as applied", zap.Error(err))
	}

	log.Info("Schema migration completed", zap.String("version", SchemaVersion))
	return true, nil
}

func (s *Store) schemaApplied(ctx context.Context) (bool, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (m:Migration {version: $version})
		RETURN m.applied_at AS applied_at
	`, map[string]interface{}{"version": SchemaVersion})
	if err != nil {
		return false, err
	}
	return result.Next(ctx), nil
}
