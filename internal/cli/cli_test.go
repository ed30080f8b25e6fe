package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/dpolishuk/codeflow/internal/errors"
	"github.com/dpolishuk/codeflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeApp(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"static/index.html": `<html><body>
<button id="search-btn" onclick="handleSearch()">Search</button>
<script src="app.js"></script>
</body></html>
`,
		"static/app.js": `function handleSearch() {
  return fetch("/api/search", { method: "POST" });
}
`,
		"backend/routes.py": `@app.route("/api/search", methods=["POST"])
def search_handler():
    return run_search()
`,
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func isolateEnv(t *testing.T) {
	t.Setenv("CODEFLOW_CONFIG", "")
	t.Setenv("EMBEDDING_PROVIDER", "none")
	t.Setenv("NEO4J_EXPORT", "false")
	t.Setenv("REPOS_PATH", t.TempDir())
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestIndexThenQuery(t *testing.T) {
	isolateEnv(t)
	root := writeApp(t)
	dbPath := filepath.Join(t.TempDir(), "snap.db")

	out, err := run(t, "index", root, "--snapshot-db", dbPath, "--log-level", "error", "--format", "json")
	require.NoError(t, err)
	var scanned struct {
		SnapshotID     string `json:"snapshotId"`
		FilesProcessed int    `json:"filesProcessed"`
		EntitiesFound  int    `json:"entitiesFound"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &scanned))
	assert.NotEmpty(t, scanned.SnapshotID)
	assert.Equal(t, 3, scanned.FilesProcessed)
	assert.Positive(t, scanned.EntitiesFound)

	t.Run("search", func(t *testing.T) {
		out, err := run(t, "search", "search", "--snapshot-db", dbPath, "--log-level", "error", "--format", "json", "--limit", "5")
		require.NoError(t, err)
		var resp struct {
			Results []map[string]any `json:"results"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.NotEmpty(t, resp.Results)
		assert.LessOrEqual(t, len(resp.Results), 5)
	})

	t.Run("search text", func(t *testing.T) {
		out, err := run(t, "search", "search", "--snapshot-db", dbPath, "--log-level", "error")
		require.NoError(t, err)
		assert.Contains(t, out, "results")
	})

	t.Run("related", func(t *testing.T) {
		id := models.EntityKey("static/app.js", "handleSearch", 1)
		out, err := run(t, "related", id, "--snapshot-db", dbPath, "--log-level", "error", "--format", "json")
		require.NoError(t, err)
		var related []models.RelatedEntity
		require.NoError(t, json.Unmarshal([]byte(out), &related))
		assert.NotEmpty(t, related)
	})

	t.Run("related unknown", func(t *testing.T) {
		_, err := run(t, "related", "nope.py::x::1", "--snapshot-db", dbPath, "--log-level", "error")
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.EntityNotFound))
	})

	t.Run("flow", func(t *testing.T) {
		out, err := run(t, "flow", "search button", "--snapshot-db", dbPath, "--log-level", "error", "--format", "json")
		require.NoError(t, err)
		var fg models.FlowGraph
		require.NoError(t, json.Unmarshal([]byte(out), &fg))
		assert.NotEmpty(t, fg.Nodes)
		assert.Equal(t, fg.Stats.TotalNodes, len(fg.Nodes))
	})
}

func TestQueryWithoutIndex(t *testing.T) {
	isolateEnv(t)
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	_, err := run(t, "search", "login", "--snapshot-db", dbPath, "--log-level", "error")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.NotIndexed))
}

func TestIndexMissingDirectory(t *testing.T) {
	isolateEnv(t)
	dbPath := filepath.Join(t.TempDir(), "snap.db")
	_, err := run(t, "index", filepath.Join(t.TempDir(), "missing"), "--snapshot-db", dbPath, "--log-level", "error")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.InvalidInput))
}

func TestUnknownFormat(t *testing.T) {
	isolateEnv(t)
	root := writeApp(t)
	dbPath := filepath.Join(t.TempDir(), "snap.db")
	_, err := run(t, "index", root, "--snapshot-db", dbPath, "--log-level", "error", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestArgsValidation(t *testing.T) {
	_, err := run(t, "search")
	require.Error(t, err)
	_, err = run(t, "serve", "extra")
	require.Error(t, err)
}
