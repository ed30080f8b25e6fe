// Package db exports snapshots to Neo4j as a browsable code graph and keeps
// repository records there.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	neo4jconfig "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
)

const (
	DefaultDatabase       = "neo4j"
	DefaultConnectTimeout = 5 * time.Second
)

type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
	// ConnectTimeout bounds each socket connect; zero means DefaultConnectTimeout.
	ConnectTimeout time.Duration
}

type Neo4jClient struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jClient connects and verifies connectivity before returning.
func NewNeo4jClient(ctx context.Context, cfg Neo4jConfig) (*Neo4jClient, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4jconfig.Config) { c.SocketConnectTimeout = timeout },
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", cfg.URI, err)
	}

	database := cfg.Database
	if database == "" {
		database = DefaultDatabase
	}
	return &Neo4jClient{driver: driver, database: database}, nil
}

func (c *Neo4jClient) Close() error {
	return c.driver.Close(context.Background())
}

func (c *Neo4jClient) Ping(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

func (c *Neo4jClient) Session(ctx context.Context) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.database,
	})
}

// ExecuteWrite runs a write transaction
func (c *Neo4jClient) ExecuteWrite(ctx context.Context, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	session := c.Session(ctx)
	defer session.Close(ctx)

	return session.ExecuteWrite(ctx, work)
}

// ExecuteRead runs a read transaction
func (c *Neo4jClient) ExecuteRead(ctx context.Context, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	session := c.Session(ctx)
	defer session.Close(ctx)

	return session.ExecuteRead(ctx, work)
}

// write runs one statement in a write transaction and discards the result.
func (c *Neo4jClient) write(ctx context.Context, query string, params map[string]any) error {
	_, err := c.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, query, params)
		return nil, err
	})
	return err
}

// readAll runs query in a read transaction and maps every record.
func readAll[T any](ctx context.Context, c *Neo4jClient, query string, params map[string]any, mapRecord func(*neo4j.Record) T) ([]T, error) {
	result, err := c.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		var out []T
		for res.Next(ctx) {
			out = append(out, mapRecord(res.Record()))
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, err
	}
	out, _ := result.([]T)
	return out, nil
}
