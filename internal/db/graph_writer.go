package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dpolishuk/codeflow/internal/logging"
	"github.com/dpolishuk/codeflow/internal/models"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// DefaultBatchSize bounds the rows sent in one UNWIND.
const DefaultBatchSize = 500

// relationLabels maps relation types to relationship labels. Cypher cannot
// parameterize labels, so only these are ever interpolated.
var relationLabels = map[models.RelationType]string{
	models.RelCallsFunction:    "CALLS_FUNCTION",
	models.RelCalledByFunction: "CALLED_BY_FUNCTION",
	models.RelHandlesEndpoint:  "HANDLES_ENDPOINT",
	models.RelEndpointHandler:  "ENDPOINT_HANDLER",
	models.RelCallsRoute:       "CALLS_ROUTE",
	models.RelCallsEndpoint:    "CALLS_ENDPOINT",
	models.RelHandlesEvent:     "HANDLES_EVENT",
	models.RelImports:          "IMPORTS",
}

// GraphWriter exports a snapshot into Neo4j: files, entities, relation
// edges and an embedding vector index.
type GraphWriter struct {
	client    *Neo4jClient
	logger    *slog.Logger
	batchSize int
}

func NewGraphWriter(client *Neo4jClient, logger *slog.Logger) *GraphWriter {
	return &GraphWriter{client: client, logger: logging.OrDefault(logger), batchSize: DefaultBatchSize}
}

// Export replaces the repository's graph. The repository node must exist.
func (w *GraphWriter) Export(ctx context.Context, repoID string, files []*models.File, entities []*models.CodeEntity, edges []models.RelationEdge) error {
	if err := w.ClearRepository(ctx, repoID); err != nil {
		return fmt.Errorf("failed to clear repository %s: %w", repoID, err)
	}
	if err := w.WriteFiles(ctx, repoID, files); err != nil {
		return err
	}
	if err := w.WriteEntities(ctx, repoID, entities); err != nil {
		return err
	}
	if err := w.WriteRelations(ctx, repoID, edges); err != nil {
		return err
	}
	if dims := embeddingDimensions(entities); dims > 0 {
		if err := w.client.CreateVectorIndex(ctx, dims); err != nil {
			// the index only serves graph browsing
			w.logger.Warn("vector index not created", "dimensions", dims, "error", err)
		}
	}
	if err := w.UpdateRepositoryStats(ctx, repoID, len(files), len(entities)); err != nil {
		return fmt.Errorf("failed to update repository stats: %w", err)
	}

	w.logger.Info("graph exported",
		"repo", repoID,
		"files", len(files),
		"entities", len(entities),
		"relations", len(edges))
	return nil
}

func (w *GraphWriter) WriteFiles(ctx context.Context, repoID string, files []*models.File) error {
	query := `
		MATCH (r:Repository {id: $repoId})
		UNWIND $rows AS row
		MERGE (f:File {repoId: $repoId, path: row.path})
		SET f.id = row.id,
		    f.language = row.language,
		    f.hash = row.hash,
		    f.size = row.size
		MERGE (r)-[:CONTAINS]->(f)
	`
	rows := make([]map[string]any, 0, len(files))
	for _, f := range files {
		rows = append(rows, fileParams(repoID, f))
	}
	return w.runBatches(ctx, "files", query, repoID, rows)
}

func (w *GraphWriter) WriteEntities(ctx context.Context, repoID string, entities []*models.CodeEntity) error {
	query := `
		UNWIND $rows AS row
		MATCH (f:File {repoId: $repoId, path: row.filePath})
		MERGE (e:Entity {repoId: $repoId, id: row.id})
		SET e += row.props,
		    e.embedding = row.embedding
		MERGE (f)-[:DECLARES]->(e)
	`
	rows := make([]map[string]any, 0, len(entities))
	for _, e := range entities {
		rows = append(rows, entityParams(e))
	}
	return w.runBatches(ctx, "entities", query, repoID, rows)
}

// WriteRelations writes edges as typed relationships, one statement per
// relation type.
func (w *GraphWriter) WriteRelations(ctx context.Context, repoID string, edges []models.RelationEdge) error {
	grouped, skipped := groupEdges(edges)
	if skipped > 0 {
		w.logger.Warn("relations with unknown type skipped", "count", skipped)
	}
	for label, rows := range grouped {
		query := fmt.Sprintf(`
			UNWIND $rows AS row
			MATCH (a:Entity {repoId: $repoId, id: row.source})
			MATCH (b:Entity {repoId: $repoId, id: row.target})
			MERGE (a)-[x:%s]->(b)
			SET x.strength = row.strength,
			    x.direction = row.direction,
			    x.endpoint = row.endpoint
		`, label)
		if err := w.runBatches(ctx, strings.ToLower(label), query, repoID, rows); err != nil {
			return err
		}
	}
	return nil
}

func (w *GraphWriter) runBatches(ctx context.Context, what, query, repoID string, rows []map[string]any) error {
	for _, batch := range batches(rows, w.batchSize) {
		_, err := w.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, query, map[string]any{"repoId": repoID, "rows": batch})
			return nil, err
		})
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", what, err)
		}
	}
	return nil
}

func (w *GraphWriter) UpdateRepositoryStats(ctx context.Context, repoID string, filesCount, entitiesCount int) error {
	_, err := w.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (r:Repository {id: $id})
			SET r.filesCount = $filesCount,
			    r.entitiesCount = $entitiesCount,
			    r.status = $status,
			    r.lastIndexed = datetime()
		`
		_, err := tx.Run(ctx, query, map[string]any{
			"id":            repoID,
			"filesCount":    filesCount,
			"entitiesCount": entitiesCount,
			"status":        StatusReady,
		})
		return nil, err
	})

	return err
}

// ClearRepository removes all exported data for a repository but keeps the
// repository node.
func (w *GraphWriter) ClearRepository(ctx context.Context, repoID string) error {
	_, err := w.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (f:File {repoId: $id})
			OPTIONAL MATCH (f)-[:DECLARES]->(e)
			DETACH DELETE e, f
		`
		_, err := tx.Run(ctx, query, map[string]any{"id": repoID})
		return nil, err
	})

	return err
}

// CreateVectorIndex creates the cosine index over entity embeddings.
func (c *Neo4jClient) CreateVectorIndex(ctx context.Context, dimensions int) error {
	_, err := c.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, vectorIndexQuery(dimensions), nil)
		return nil, err
	})
	return err
}

func vectorIndexQuery(dimensions int) string {
	return fmt.Sprintf(`
		CREATE VECTOR INDEX entity_embeddings IF NOT EXISTS
		FOR (e:Entity) ON (e.embedding)
		OPTIONS {indexConfig: {
			`+"`vector.dimensions`"+`: %d,
			`+"`vector.similarity_function`"+`: 'cosine'
		}}
	`, dimensions)
}

func fileParams(repoID string, f *models.File) map[string]any {
	return map[string]any{
		"id":       repoID + ":" + f.Path,
		"path":     f.Path,
		"language": f.Language,
		"hash":     f.Hash,
		"size":     f.Size,
	}
}

func entityParams(e *models.CodeEntity) map[string]any {
	row := map[string]any{
		"id":       e.Key(),
		"filePath": e.FilePath,
		"props": map[string]any{
			"type":      string(e.Type),
			"name":      e.Name,
			"language":  e.Language,
			"filePath":  e.FilePath,
			"startLine": e.StartLine,
			"endLine":   e.EndLine,
			"context":   e.Context,
			"tier":      string(models.TierOf(e)),
		},
		"embedding": nil,
	}
	if len(e.Embedding) > 0 {
		row["embedding"] = e.Embedding
	}
	return row
}

// groupEdges buckets edges by relationship label and counts edges whose
// type has no label.
func groupEdges(edges []models.RelationEdge) (map[string][]map[string]any, int) {
	grouped := make(map[string][]map[string]any)
	skipped := 0
	for _, e := range edges {
		label, ok := relationLabels[e.Type]
		if !ok {
			skipped++
			continue
		}
		grouped[label] = append(grouped[label], map[string]any{
			"source":    e.SourceID,
			"target":    e.TargetID,
			"strength":  string(e.Strength),
			"direction": string(e.Direction),
			"endpoint":  e.EndpointMatch,
		})
	}
	return grouped, skipped
}

func embeddingDimensions(entities []*models.CodeEntity) int {
	for _, e := range entities {
		if len(e.Embedding) > 0 {
			return len(e.Embedding)
		}
	}
	return 0
}

func batches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		out = append(out, items[start:min(start+size, len(items))])
	}
	return out
}
