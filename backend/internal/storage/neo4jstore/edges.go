package neo4jstore

import (
	"context"
	"fmt"
	"time"

	"social-network/backend/internal/storage"
)

// ============================================================================
// Edge Operations
// ============================================================================

func (t *tx) PutEdge(ctx context.Context, e storage.Edge) error {
	if err := t.checkWritable(); err != nil {
		return err
	}

	// SET r = $props replaces every property, so attributes dropped by an
	// upsert disappear.
	query := fmt.Sprintf(`
		MERGE (a:Entity {key: $source})
		ON CREATE SET a.kind = $sourceKind, a.id = $sourceID
		MERGE (b:Entity {key: $target})
		ON CREATE SET b.kind = $targetKind, b.id = $targetID
		MERGE (a)-[r:%s {site: $site}]->(b)
		SET r = $props
	`, sanitizeRelType(e.Type))

	_, err := t.exec(ctx, query, map[string]interface{}{
		"source":     e.Source.String(),
		"sourceKind": e.Source.Kind,
		"sourceID":   e.Source.ID,
		"target":     e.Target.String(),
		"targetKind": e.Target.Kind,
		"targetID":   e.Target.ID,
		"site":       e.Site,
		"props":      edgeProps(e, time.Now().UnixNano()),
	})
	if err != nil {
		return fmt.Errorf("failed to put edge: %w", err)
	}
	return nil
}

func (t *tx) DeleteEdge(ctx context.Context, k storage.EdgeKey) (bool, error) {
	if err := t.checkWritable(); err != nil {
		return false, err
	}

	query := fmt.Sprintf(`
		MATCH (a:Entity {key: $source})-[r:%s {site: $site}]->(b:Entity {key: $target})
		DELETE r
	`, sanitizeRelType(k.Type))

	counters, err := t.exec(ctx, query, map[string]interface{}{
		"source": k.Source.String(),
		"target": k.Target.String(),
		"site":   k.Site,
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete edge: %w", err)
	}
	return counters.RelationshipsDeleted() > 0, nil
}

func (t *tx) GetEdge(ctx context.Context, k storage.EdgeKey) (storage.Edge, bool, error) {
	query := fmt.Sprintf(`
		MATCH (a:Entity {key: $source})-[r:%s {site: $site}]->(b:Entity {key: $target})
		RETURN properties(r) AS props
	`, sanitizeRelType(k.Type))

	records, err := t.collect(ctx, query, map[string]interface{}{
		"source": k.Source.String(),
		"target": k.Target.String(),
		"site":   k.Site,
	})
	if err != nil {
		return storage.Edge{}, false, fmt.Errorf("failed to get edge: %w", err)
	}
	if len(records) == 0 {
		return storage.Edge{}, false, nil
	}

	props := getMapFromRecord(records[0], "props")
	return storage.Edge{
		Source:     k.Source,
		Type:       k.Type,
		Target:     k.Target,
		Site:       k.Site,
		Attributes: attributesFromProps(props),
		CreatedAt:  getTimeFromMap(props, "created_at"),
	}, true, nil
}

func (t *tx) CountEdges(ctx context.Context, source storage.Node, edgeType, site string) (int, error) {
	query := fmt.Sprintf(`
		MATCH (a:Entity {key: $source})-[r:%s {site: $site}]->(:Entity)
		RETURN count(r) AS total
	`, sanitizeRelType(edgeType))

	records, err := t.collect(ctx, query, map[string]interface{}{
		"source": source.String(),
		"site":   site,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count edges: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	return int(getInt64FromRecord(records[0], "total")), nil
}

func (t *tx) RangeEdges(ctx context.Context, source storage.Node, edgeType, site string, offset, limit int) ([]storage.Edge, error) {
	page, params := pageClause(offset, limit)
	query := fmt.Sprintf(`
		MATCH (a:Entity {key: $source})-[r:%s {site: $site}]->(b:Entity)
		RETURN b.kind AS kind, b.id AS id, properties(r) AS props
		ORDER BY r.created_at DESC, r.written_at DESC, b.key ASC
	`, sanitizeRelType(edgeType)) + page
	params["source"] = source.String()
	params["site"] = site

	records, err := t.collect(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to range edges: %w", err)
	}

	edges := make([]storage.Edge, 0, len(records))
	for _, rec := range records {
		props := getMapFromRecord(rec, "props")
		edges = append(edges, storage.Edge{
			Source:     source,
			Type:       edgeType,
			Target:     storage.Node{Kind: getStringFromRecord(rec, "kind"), ID: getStringFromRecord(rec, "id")},
			Site:       site,
			Attributes: attributesFromProps(props),
			CreatedAt:  getTimeFromMap(props, "created_at"),
		})
	}
	return edges, nil
}
