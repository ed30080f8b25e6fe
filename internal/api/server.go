package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dpolishuk/codeflow/internal/config"
	"github.com/dpolishuk/codeflow/internal/db"
	"github.com/dpolishuk/codeflow/internal/embedding"
	"github.com/dpolishuk/codeflow/internal/errors"
	"github.com/dpolishuk/codeflow/internal/git"
	"github.com/dpolishuk/codeflow/internal/index"
	"github.com/dpolishuk/codeflow/internal/logging"
	"github.com/dpolishuk/codeflow/internal/scan"
	"github.com/dpolishuk/codeflow/internal/store"
	"github.com/gofiber/fiber/v3"
)

// Server owns the long-lived collaborators behind the HTTP API.
type Server struct {
	App      *fiber.App
	Manager  *index.Manager
	cfg      *config.Config
	store    *store.Store
	dbClient *db.Neo4jClient
	logger   *slog.Logger
}

// NewServer opens the snapshot store, restores the newest snapshot and,
// when NEO4J_EXPORT is on, connects to Neo4j. An unreachable Neo4j is
// logged and the server runs without export.
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	logger = logging.OrDefault(logger)

	encoder, err := embedding.New(embedding.Options{
		Provider:    cfg.EmbeddingProvider,
		TEIURL:      cfg.TEIURL,
		OllamaURL:   cfg.OllamaURL,
		OllamaModel: cfg.OllamaModel,
	}, logger)
	if err != nil {
		return nil, err
	}
	manager := index.NewManager(encoder, logger)

	st, err := store.Open(cfg.SnapshotPath, logger)
	if err != nil {
		return nil, err
	}
	if err := Restore(ctx, st, manager, logger); err != nil {
		st.Close()
		return nil, err
	}

	var client *db.Neo4jClient
	if cfg.Neo4jExport {
		client, err = db.NewNeo4jClient(ctx, db.Neo4jConfig{
			URI:      cfg.Neo4jURI,
			Username: cfg.Neo4jUser,
			Password: cfg.Neo4jPass,
		})
		if err != nil {
			logger.Warn("neo4j unavailable, graph export disabled", "uri", cfg.Neo4jURI, "error", err)
			client = nil
		}
	}

	opts := []scan.Option{
		scan.WithLogger(logger),
		scan.WithStore(st),
		scan.WithGit(git.NewGitService(cfg.ReposPath, logger)),
	}
	if client != nil {
		opts = append(opts, scan.WithExporter(db.NewExporter(client, logger)))
	}
	h := NewHandler(cfg, manager, scan.New(manager, opts...), client, logger)

	return &Server{
		App:      NewApp(h),
		Manager:  manager,
		cfg:      cfg,
		store:    st,
		dbClient: client,
		logger:   logger,
	}, nil
}

// Restore loads the newest persisted snapshot into manager. An empty store
// is not an error.
func Restore(ctx context.Context, st *store.Store, manager *index.Manager, logger *slog.Logger) error {
	snap, err := st.LoadLatest(ctx)
	if errors.HasCode(err, errors.NotIndexed) {
		logger.Info("no persisted snapshot, waiting for a scan", "store", st.Path())
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}
	manager.Swap(snap)
	logger.Info("snapshot restored", "snapshot", snap.ID, "root", snap.Root, "entities", snap.Len())
	return nil
}

func (s *Server) Listen() error {
	s.logger.Info("starting codeflow API", "port", s.cfg.Port)
	return s.App.Listen(":" + s.cfg.Port)
}

// Shutdown stops accepting requests, then closes the store and Neo4j.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.App.ShutdownWithContext(ctx)
	if cerr := s.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if s.dbClient != nil {
		if cerr := s.dbClient.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
