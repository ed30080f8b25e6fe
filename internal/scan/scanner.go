// Package scan turns a local directory or a git URL into the live index:
// checkout, extraction, atomic snapshot swap, then optional persistence
// and graph export.
package scan

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dpolishuk/codeflow/internal/errors"
	"github.com/dpolishuk/codeflow/internal/git"
	"github.com/dpolishuk/codeflow/internal/index"
	"github.com/dpolishuk/codeflow/internal/indexer"
	"github.com/dpolishuk/codeflow/internal/logging"
	"github.com/dpolishuk/codeflow/internal/models"
)

// Saver persists a snapshot; *store.Store satisfies it.
type Saver interface {
	Save(ctx context.Context, snap *index.Snapshot) error
}

// Exporter mirrors a snapshot into an external graph; *db.Exporter
// satisfies it.
type Exporter interface {
	Export(ctx context.Context, repo *models.Repository, files []*models.File, snap *index.Snapshot) (*models.Repository, error)
}

// Indexer extracts entities from a directory; *indexer.Pipeline satisfies it.
type Indexer interface {
	IndexDirectory(ctx context.Context, dirPath, repoID string) (*models.IndexResult, error)
}

type Option func(*Scanner)

func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) { s.logger = logging.OrDefault(l) }
}

func WithStore(store Saver) Option {
	return func(s *Scanner) { s.store = store }
}

func WithExporter(x Exporter) Option {
	return func(s *Scanner) { s.exporter = x }
}

func WithGit(g *git.GitService) Option {
	return func(s *Scanner) { s.git = g }
}

func WithIndexer(ix Indexer) Option {
	return func(s *Scanner) { s.indexer = ix }
}

// Scanner is safe for concurrent use; index.Manager serializes rebuilds.
type Scanner struct {
	manager  *index.Manager
	indexer  Indexer
	git      *git.GitService
	store    Saver
	exporter Exporter
	logger   *slog.Logger
}

func New(manager *index.Manager, opts ...Option) *Scanner {
	s := &Scanner{manager: manager, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.indexer == nil {
		s.indexer = indexer.NewPipeline(s.logger)
	}
	return s
}

// Result reports one finished scan. Warnings name the optional stages
// that failed after the snapshot went live.
type Result struct {
	SnapshotID     string             `json:"snapshotId"`
	Root           string             `json:"root"`
	Source         string             `json:"source"`
	Commit         string             `json:"commit,omitempty"`
	FilesProcessed int                `json:"filesProcessed"`
	EntitiesFound  int                `json:"entitiesFound"`
	Errors         []string           `json:"errors"`
	Warnings       []string           `json:"warnings"`
	Repository     *models.Repository `json:"repository,omitempty"`
	Status         index.Status       `json:"status"`
	Took           string             `json:"took"`
}

// Scan indexes in.Path, or clones in.URL first, and swaps the result in
// as the live snapshot. Persistence and export failures are logged and
// reported as warnings; the new snapshot stays live.
func (s *Scanner) Scan(ctx context.Context, in models.ScanInput) (*Result, error) {
	start := time.Now()
	in.Path = strings.TrimSpace(in.Path)
	in.URL = strings.TrimSpace(in.URL)

	root, err := s.resolve(ctx, in)
	if err != nil {
		return nil, err
	}

	ix, err := s.indexer.IndexDirectory(ctx, root, "")
	if err != nil {
		return nil, errors.Wrap(errors.IndexFailure, "failed to index "+root, err)
	}

	snap, err := s.manager.Rebuild(ctx, ix.Root, ix.Entities)
	if err != nil {
		return nil, err
	}

	res := &Result{
		SnapshotID:     snap.ID,
		Root:           ix.Root,
		Source:         source(in, ix.Root),
		FilesProcessed: ix.FilesProcessed,
		EntitiesFound:  ix.EntitiesFound,
		Errors:         nonNil(ix.Errors),
		Warnings:       []string{},
		Status:         snap.Status(),
	}
	if in.URL != "" {
		commit, err := s.git.GetCurrentCommit(ctx, root)
		if err != nil {
			s.logger.Warn("commit not resolved", "root", root, "error", err)
		}
		res.Commit = commit
	}

	if s.store != nil {
		if err := s.store.Save(ctx, snap); err != nil {
			s.logger.Warn("snapshot not persisted", "snapshot", snap.ID, "error", err)
			res.Warnings = append(res.Warnings, "snapshot not persisted: "+err.Error())
		}
	}
	if s.exporter != nil {
		repo := &models.Repository{
			URL:           in.URL,
			Path:          ix.Root,
			Name:          repoName(in, ix.Root),
			DefaultBranch: in.Branch,
		}
		stored, err := s.exporter.Export(ctx, repo, ix.Files, snap)
		if err != nil {
			s.logger.Warn("graph export failed", "root", ix.Root, "error", err)
			res.Warnings = append(res.Warnings, "graph export failed: "+err.Error())
		} else {
			res.Repository = stored
		}
	}

	res.Took = time.Since(start).Round(time.Millisecond).String()
	s.logger.Info("scan complete",
		"source", res.Source,
		"snapshot", snap.ID,
		"files", res.FilesProcessed,
		"entities", res.EntitiesFound,
		"warnings", len(res.Warnings),
		"took", res.Took)
	return res, nil
}

// resolve returns the directory to index, cloning when a URL is given.
func (s *Scanner) resolve(ctx context.Context, in models.ScanInput) (string, error) {
	switch {
	case in.Path != "" && in.URL != "":
		return "", errors.New(errors.InvalidInput, "give either path or url, not both")
	case in.URL != "":
		if !git.IsRemoteURL(in.URL) {
			return "", errors.New(errors.InvalidInput, "not a repository url: "+in.URL)
		}
		if s.git == nil {
			return "", errors.New(errors.InvalidInput, "cloning is not configured")
		}
		dir, err := s.git.Clone(ctx, in.URL, in.Branch)
		if err != nil {
			return "", errors.Wrap(errors.IndexFailure, "failed to fetch "+in.URL, err)
		}
		return dir, nil
	case in.Path != "":
		info, err := os.Stat(in.Path)
		if err != nil {
			return "", errors.Wrap(errors.InvalidInput, "cannot read "+in.Path, err)
		}
		if !info.IsDir() {
			return "", errors.New(errors.InvalidInput, in.Path+" is not a directory")
		}
		return in.Path, nil
	default:
		return "", errors.New(errors.InvalidInput, "path or url is required")
	}
}

func source(in models.ScanInput, root string) string {
	if in.URL != "" {
		return in.URL
	}
	return root
}

func repoName(in models.ScanInput, root string) string {
	if in.URL != "" {
		return git.ExtractRepoName(in.URL)
	}
	return filepath.Base(root)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
