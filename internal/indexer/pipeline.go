package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dpolishuk/codeflow/internal/fingerprint"
	"github.com/dpolishuk/codeflow/internal/logging"
	"github.com/dpolishuk/codeflow/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency = 4
	// DefaultMaxFileSize skips generated bundles and data files.
	DefaultMaxFileSize = 1 << 20
)

var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	"venv":         true,
	"dist":         true,
	"build":        true,
	"target":       true,
}

// Pipeline walks a directory and extracts entities from every supported
// file.
type Pipeline struct {
	logger      *slog.Logger
	concurrency int
	maxFileSize int64
}

func NewPipeline(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger:      logging.OrDefault(logger),
		concurrency: DefaultConcurrency,
		maxFileSize: DefaultMaxFileSize,
	}
}

// IndexDirectory extracts every supported file under dirPath. Per-file
// failures are collected in the result; only a walk failure or
// cancellation aborts the run. Output order is deterministic.
func (p *Pipeline) IndexDirectory(ctx context.Context, dirPath, repoID string) (*models.IndexResult, error) {
	root, err := filepath.Abs(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dirPath, err)
	}
	result := &models.IndexResult{
		RepoID: repoID,
		Root:   root,
	}

	files, err := p.collectFiles(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, relPath := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			file, entities, err := p.processFile(gctx, filepath.Join(root, relPath), relPath)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				p.logger.Warn("file skipped", "path", relPath, "error", err)
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", relPath, err))
				return nil
			}
			result.FilesProcessed++
			result.Files = append(result.Files, file)
			result.Entities = append(result.Entities, entities...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("indexing %s: %w", root, err)
	}

	sort.Slice(result.Files, func(i, j int) bool { return result.Files[i].Path < result.Files[j].Path })
	sort.SliceStable(result.Entities, func(i, j int) bool {
		a, b := result.Entities[i], result.Entities[j]
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return a.Name < b.Name
	})
	sort.Strings(result.Errors)
	result.EntitiesFound = len(result.Entities)

	p.logger.Info("directory indexed",
		"root", root,
		"files", result.FilesProcessed,
		"entities", result.EntitiesFound,
		"errors", len(result.Errors))
	return result, nil
}

func (p *Pipeline) collectFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (skipDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if models.DetectLanguage(name) == "" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > p.maxFileSize {
			p.logger.Debug("file too large, skipped", "path", path, "size", info.Size())
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	return files, err
}

func (p *Pipeline) processFile(ctx context.Context, fullPath, relPath string) (*models.File, []models.CodeEntity, error) {
	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}

	lang := models.DetectLanguage(relPath)
	file := &models.File{
		Path:     relPath,
		Language: lang,
		Size:     int64(len(content)),
		Hash:     fingerprint.String(content),
	}

	// tree-sitter parsers are not safe for concurrent use
	extractor := NewExtractor()
	defer extractor.Close()

	entities, err := extractor.Extract(ctx, content, lang, relPath)
	if err != nil {
		return file, nil, fmt.Errorf("extraction failed: %w", err)
	}
	return file, entities, nil
}
