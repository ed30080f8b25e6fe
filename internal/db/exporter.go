package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dpolishuk/codeflow/internal/graph"
	"github.com/dpolishuk/codeflow/internal/index"
	"github.com/dpolishuk/codeflow/internal/logging"
	"github.com/dpolishuk/codeflow/internal/models"
)

// Exporter mirrors a freshly built snapshot into Neo4j under a repository
// node, creating the node on the first export of a path.
type Exporter struct {
	client *Neo4jClient
	writer *GraphWriter
	finder graph.RelationFinder
	logger *slog.Logger
}

func NewExporter(client *Neo4jClient, logger *slog.Logger) *Exporter {
	logger = logging.OrDefault(logger)
	return &Exporter{
		client: client,
		writer: NewGraphWriter(client, logger),
		finder: graph.NewBuilder(logger),
		logger: logger,
	}
}

// Export writes files, entities and every relation edge of snap. repo
// carries the url, path, name and branch of the scanned tree; the stored
// record is returned.
func (x *Exporter) Export(ctx context.Context, repo *models.Repository, files []*models.File, snap *index.Snapshot) (*models.Repository, error) {
	existing, err := FindRepositoryByPath(ctx, x.client, repo.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to look up repository: %w", err)
	}
	if existing == nil {
		repo.Status = StatusIndexing
		existing, err = CreateRepository(ctx, x.client, repo)
		if err != nil {
			return nil, err
		}
	} else if err := UpdateRepositoryStatus(ctx, x.client, existing.ID, StatusIndexing); err != nil {
		return nil, fmt.Errorf("failed to update repository status: %w", err)
	}

	entities := snap.All()
	edges := graph.CollectEdges(entities, x.finder)
	if err := x.writer.Export(ctx, existing.ID, files, entities, edges); err != nil {
		if serr := UpdateRepositoryStatus(ctx, x.client, existing.ID, StatusError); serr != nil {
			x.logger.Warn("failed to mark repository as errored", "repo", existing.ID, "error", serr)
		}
		return nil, err
	}

	stored, err := GetRepository(ctx, x.client, existing.ID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return existing, nil
	}
	return stored, nil
}
