package db

import (
	"context"
	"fmt"
	"time"

	"github.com/dpolishuk/codeflow/internal/models"
	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// repositoryColumns projects a :Repository node r for recordToRepository.
const repositoryColumns = `
	RETURN r.id AS id, r.url AS url, r.path AS path, r.name AS name,
	       r.defaultBranch AS defaultBranch, r.status AS status,
	       r.lastIndexed AS lastIndexed, r.filesCount AS filesCount,
	       r.entitiesCount AS entitiesCount`

// Repository statuses.
const (
	StatusPending  = "pending"
	StatusIndexing = "indexing"
	StatusReady    = "ready"
	StatusError    = "error"
)

// CreateRepository stores repo under a fresh id and returns it.
func CreateRepository(ctx context.Context, client *Neo4jClient, repo *models.Repository) (*models.Repository, error) {
	repo.ID = uuid.New().String()
	if repo.Status == "" {
		repo.Status = StatusPending
	}
	repo.LastIndexed = time.Now().UTC()

	err := client.write(ctx, `
		CREATE (r:Repository {
			id: $id,
			url: $url,
			path: $path,
			name: $name,
			defaultBranch: $defaultBranch,
			status: $status,
			lastIndexed: $lastIndexed,
			filesCount: 0,
			entitiesCount: 0
		})
	`, map[string]any{
		"id":            repo.ID,
		"url":           repo.URL,
		"path":          repo.Path,
		"name":          repo.Name,
		"defaultBranch": repo.DefaultBranch,
		"status":        repo.Status,
		"lastIndexed":   repo.LastIndexed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}
	return repo, nil
}

// GetRepository returns the repository with id, or nil.
func GetRepository(ctx context.Context, client *Neo4jClient, id string) (*models.Repository, error) {
	return findOne(ctx, client, `MATCH (r:Repository {id: $id})`, map[string]any{"id": id})
}

// FindRepositoryByPath returns the repository scanned from path, or nil.
func FindRepositoryByPath(ctx context.Context, client *Neo4jClient, path string) (*models.Repository, error) {
	return findOne(ctx, client, `MATCH (r:Repository {path: $path})`, map[string]any{"path": path})
}

// ListRepositories returns every repository, most recently indexed first.
func ListRepositories(ctx context.Context, client *Neo4jClient) ([]*models.Repository, error) {
	repos, err := readAll(ctx, client,
		`MATCH (r:Repository)`+repositoryColumns+` ORDER BY r.lastIndexed DESC`,
		nil, recordToRepository)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	return repos, nil
}

func UpdateRepositoryStatus(ctx context.Context, client *Neo4jClient, id, status string) error {
	return client.write(ctx, `
		MATCH (r:Repository {id: $id})
		SET r.status = $status, r.lastIndexed = $lastIndexed
	`, map[string]any{
		"id":          id,
		"status":      status,
		"lastIndexed": time.Now().UTC(),
	})
}

// DeleteRepository removes the repository node with its files and entities.
func DeleteRepository(ctx context.Context, client *Neo4jClient, id string) error {
	return client.write(ctx, `
		MATCH (r:Repository {id: $id})
		OPTIONAL MATCH (f:File {repoId: $id})
		OPTIONAL MATCH (f)-[:DECLARES]->(e)
		DETACH DELETE e, f, r
	`, map[string]any{"id": id})
}

func findOne(ctx context.Context, client *Neo4jClient, match string, params map[string]any) (*models.Repository, error) {
	repos, err := readAll(ctx, client, match+repositoryColumns+` LIMIT 1`, params, recordToRepository)
	if err != nil {
		return nil, fmt.Errorf("failed to read repository: %w", err)
	}
	if len(repos) == 0 {
		return nil, nil
	}
	return repos[0], nil
}

func recordToRepository(record *neo4j.Record) *models.Repository {
	repo := &models.Repository{
		ID:            stringValue(record, "id"),
		URL:           stringValue(record, "url"),
		Path:          stringValue(record, "path"),
		Name:          stringValue(record, "name"),
		DefaultBranch: stringValue(record, "defaultBranch"),
		Status:        stringValue(record, "status"),
	}
	if v, ok := record.Get("lastIndexed"); ok {
		repo.LastIndexed = asTime(v)
	}
	if v, ok := record.Get("filesCount"); ok {
		repo.FilesCount = asInt(v)
	}
	if v, ok := record.Get("entitiesCount"); ok {
		repo.EntitiesCount = asInt(v)
	}
	return repo
}
