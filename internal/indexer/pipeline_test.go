package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dpolishuk/codeflow/internal/fingerprint"
	"github.com/dpolishuk/codeflow/internal/logging"
	"github.com/dpolishuk/codeflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestIndexRepository(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "main.go", `package main

func Hello() string {
	return "Hello"
}

func main() {
	println(Hello())
}
`)
	writeFile(t, tmpDir, "utils.py", `def greet(name):
    """Greet someone."""
    return f"Hello, {name}"
`)
	writeFile(t, tmpDir, "README.md", "# not code\n")

	pipeline := NewPipeline(logging.Discard())
	result, err := pipeline.IndexDirectory(context.Background(), tmpDir, "test-repo")
	require.NoError(t, err)

	assert.Equal(t, "test-repo", result.RepoID)
	assert.Equal(t, 2, result.FilesProcessed)
	assert.Equal(t, 3, result.EntitiesFound)
	assert.Len(t, result.Entities, result.EntitiesFound)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Files, 2)
	assert.Equal(t, "main.go", result.Files[0].Path)
	assert.Equal(t, "go", result.Files[0].Language)
	assert.Equal(t, "utils.py", result.Files[1].Path)

	content, err := os.ReadFile(filepath.Join(tmpDir, "main.go"))
	require.NoError(t, err)
	assert.Equal(t, fingerprint.String(content), result.Files[0].Hash)
}

func TestIndexDirectory_DeterministicOrder(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"c.py", "a.py", "b/z.py", "b/a.py"} {
		writeFile(t, tmpDir, name, "def first():\n    pass\n\ndef second():\n    pass\n")
	}

	pipeline := NewPipeline(logging.Discard())
	first, err := pipeline.IndexDirectory(context.Background(), tmpDir, "r")
	require.NoError(t, err)
	second, err := pipeline.IndexDirectory(context.Background(), tmpDir, "r")
	require.NoError(t, err)

	var paths []string
	for _, e := range first.Entities {
		paths = append(paths, e.FilePath+"#"+e.Name)
	}
	assert.Equal(t, []string{
		"a.py#first", "a.py#second",
		"b/a.py#first", "b/a.py#second",
		"b/z.py#first", "b/z.py#second",
		"c.py#first", "c.py#second",
	}, paths)
	assert.Equal(t, first.Entities, second.Entities)
}

func TestSkipIgnoredDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "node_modules/test.js", "function x(){}")
	writeFile(t, tmpDir, ".cache/hidden.js", "function y(){}")
	writeFile(t, tmpDir, "app.js", "function main(){}")

	pipeline := NewPipeline(logging.Discard())
	result, err := pipeline.IndexDirectory(context.Background(), tmpDir, "test-repo")
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesProcessed, "node_modules and hidden dirs are skipped")
	require.Len(t, result.Entities, 1)
	assert.Equal(t, "app.js", result.Entities[0].FilePath)
}

func TestSkipLargeFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "small.py", "def a():\n    pass\n")
	writeFile(t, tmpDir, "big.py", "def b():\n    return '"+strings.Repeat("x", 64)+"'\n")

	pipeline := NewPipeline(logging.Discard())
	pipeline.maxFileSize = 32

	result, err := pipeline.IndexDirectory(context.Background(), tmpDir, "r")
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Equal(t, "small.py", result.Files[0].Path)
}

func TestIndexDirectory_SearchFlowFixture(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "static/index.html", `<button id="search-btn" onclick="handleSearch()">Search</button>
`)
	writeFile(t, tmpDir, "static/app.js", `function handleSearch() {
  fetch('/api/search', { method: 'POST' });
}
`)
	writeFile(t, tmpDir, "backend/routes.py", `@app.route("/api/search", methods=["POST"])
def search_handler():
    return engine.search()
`)

	result, err := NewPipeline(logging.Discard()).IndexDirectory(context.Background(), tmpDir, "flow")
	require.NoError(t, err)

	byType := make(map[models.EntityType][]string)
	for _, e := range result.Entities {
		byType[e.Type] = append(byType[e.Type], e.Name)
	}
	assert.Equal(t, []string{"search-btn"}, byType[models.EntityButton])
	assert.Equal(t, []string{"/api/search"}, byType[models.EntityAPICall])
	assert.Equal(t, []string{"/api/search"}, byType[models.EntityRoute])
	assert.ElementsMatch(t, []string{"handleSearch", "search_handler"}, byType[models.EntityFunction])
}

func TestIndexDirectory_Cancelled(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "a.py", "def a():\n    pass\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPipeline(logging.Discard()).IndexDirectory(ctx, tmpDir, "r")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndexDirectory_MissingRoot(t *testing.T) {
	_, err := NewPipeline(logging.Discard()).IndexDirectory(context.Background(), filepath.Join(t.TempDir(), "nope"), "r")
	assert.Error(t, err)
}
