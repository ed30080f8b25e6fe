package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dpolishuk/codeflow/internal/config"
	"github.com/dpolishuk/codeflow/internal/errors"
	"github.com/dpolishuk/codeflow/internal/index"
	"github.com/dpolishuk/codeflow/internal/logging"
	"github.com/dpolishuk/codeflow/internal/models"
	"github.com/dpolishuk/codeflow/internal/scan"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() []models.CodeEntity {
	return []models.CodeEntity{
		{Type: models.EntityButton, Language: "html", FilePath: "static/index.html", StartLine: 12, Name: "search-btn",
			ElementID: "search-btn", Text: "Search",
			EventListeners: []models.EventListener{{Event: "click", Handler: "handleSearch()"}}},
		{Type: models.EntityFunction, Language: "javascript", FilePath: "static/app.js", StartLine: 3, Name: "handleSearch",
			APICalls: []models.APICall{{Method: "POST", Endpoint: "/api/search"}}},
		{Type: models.EntityAPICall, Language: "javascript", FilePath: "static/app.js", StartLine: 5, Name: "/api/search",
			APICalls: []models.APICall{{Method: "POST", Endpoint: "/api/search"}}},
		{Type: models.EntityFunction, Language: "python", FilePath: "backend/routes.py", StartLine: 20, Name: "search_handler",
			Routes: []models.Route{{Path: "/api/search", Method: "POST"}}},
	}
}

type stubScanner struct {
	manager *index.Manager
	err     error
	got     models.ScanInput
}

func (s *stubScanner) Scan(ctx context.Context, in models.ScanInput) (*scan.Result, error) {
	s.got = in
	if s.err != nil {
		return nil, s.err
	}
	snap, err := s.manager.Rebuild(ctx, in.Path, fixture())
	if err != nil {
		return nil, err
	}
	return &scan.Result{SnapshotID: snap.ID, Root: in.Path, EntitiesFound: snap.Len(), Status: snap.Status()}, nil
}

func setupApp(t *testing.T, indexed bool) (*fiber.App, *index.Manager, *stubScanner) {
	t.Helper()
	m := index.NewManager(nil, logging.Discard())
	if indexed {
		_, err := m.Rebuild(context.Background(), "/repo", fixture())
		require.NoError(t, err)
	}
	cfg := &config.Config{Tuning: config.DefaultTuning()}
	sc := &stubScanner{manager: m}
	h := NewHandler(cfg, m, sc, nil, logging.Discard())
	return NewApp(h), m, sc
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out), string(data))
	}
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	app, _, _ := setupApp(t, false)
	status, body := do(t, app, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["indexed"])
}

func TestSearch_Get(t *testing.T) {
	app, _, _ := setupApp(t, true)
	status, body := do(t, app, http.MethodGet, "/api/search?q=search+button&limit=3", "")
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "search button", body["query"])
	results, ok := body["results"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), 3)
	first := results[0].(map[string]any)
	assert.Contains(t, first, "combinedScore")
	assert.Contains(t, first, "filePath")
}

func TestSearch_ExplicitWeights(t *testing.T) {
	app, _, _ := setupApp(t, true)
	status, body := do(t, app, http.MethodGet, "/api/search?q=search&alpha=0&beta=1&gamma=0", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "explicit", body["profile"])
	w := body["weights"].(map[string]any)
	assert.Equal(t, 1.0, w["lexical"])

	status, body = do(t, app, http.MethodGet, "/api/search?q=search&beta=-1", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, string(errors.InvalidInput), body["code"])
}

func TestSearch_Post(t *testing.T) {
	app, _, _ := setupApp(t, true)
	status, body := do(t, app, http.MethodPost, "/api/search",
		`{"query":"search handler","topK":2,"weights":{"semantic":0,"lexical":1,"context":0}}`)
	require.Equal(t, http.StatusOK, status)
	assert.LessOrEqual(t, len(body["results"].([]any)), 2)
	assert.Equal(t, "explicit", body["profile"])
}

func TestSearch_Errors(t *testing.T) {
	t.Run("empty query", func(t *testing.T) {
		app, _, _ := setupApp(t, true)
		status, body := do(t, app, http.MethodGet, "/api/search?q=", "")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, string(errors.EmptyQuery), body["code"])
		assert.NotEmpty(t, body["error"])
	})

	t.Run("punctuation only", func(t *testing.T) {
		app, _, _ := setupApp(t, true)
		status, body := do(t, app, http.MethodGet, "/api/search?q="+url.QueryEscape("?!"), "")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, string(errors.EmptyQuery), body["code"])
	})

	t.Run("not indexed", func(t *testing.T) {
		app, _, _ := setupApp(t, false)
		status, body := do(t, app, http.MethodGet, "/api/search?q=search", "")
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, string(errors.NotIndexed), body["code"])
	})

	t.Run("malformed body", func(t *testing.T) {
		app, _, _ := setupApp(t, true)
		status, body := do(t, app, http.MethodPost, "/api/search", `{"query":`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, string(errors.InvalidInput), body["code"])
	})
}

func TestRelated(t *testing.T) {
	app, m, _ := setupApp(t, true)
	id := models.EntityKey("static/index.html", "search-btn", 12)
	_, ok := m.Current().Get(id)
	require.True(t, ok)

	status, body := do(t, app, http.MethodGet, "/api/entities/"+url.PathEscape(id)+"/related", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, id, body["entityId"])
	related := body["related"].([]any)
	require.NotEmpty(t, related)

	found := false
	for _, r := range related {
		edge := r.(map[string]any)["relation"].(map[string]any)
		if edge["type"] == string(models.RelHandlesEvent) {
			found = true
		}
	}
	assert.True(t, found, "button binds to handleSearch")
}

func TestRelated_Errors(t *testing.T) {
	app, _, _ := setupApp(t, true)
	status, body := do(t, app, http.MethodGet, "/api/entities/"+url.PathEscape("nope.py::x::1")+"/related", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, string(errors.EntityNotFound), body["code"])

	app, _, _ = setupApp(t, false)
	status, body = do(t, app, http.MethodGet, "/api/entities/anything/related", "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, string(errors.NotIndexed), body["code"])
}

func TestFlowGraph(t *testing.T) {
	app, _, _ := setupApp(t, true)
	status, body := do(t, app, http.MethodGet, "/api/graph?q=search", "")
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "search", body["query"])
	assert.NotEmpty(t, body["nodes"])
	assert.NotEmpty(t, body["edges"])
	stats := body["stats"].(map[string]any)
	assert.Positive(t, stats["frontendBackendConnections"])

	status, body = do(t, app, http.MethodGet, "/api/graph", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, string(errors.EmptyQuery), body["code"])
}

func TestScanAndStatus(t *testing.T) {
	app, _, sc := setupApp(t, false)

	status, body := do(t, app, http.MethodGet, "/api/index/status", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["indexed"])

	status, body = do(t, app, http.MethodPost, "/api/scan", `{"path":"/srv/app"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/srv/app", sc.got.Path)
	assert.NotEmpty(t, body["snapshotId"])

	status, body = do(t, app, http.MethodGet, "/api/index/status", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["indexed"])
	assert.Equal(t, float64(len(fixture())), body["entities"])

	status, _ = do(t, app, http.MethodGet, "/api/search?q=search", "")
	assert.Equal(t, http.StatusOK, status, "search sees the swapped snapshot")
}

func TestScan_Errors(t *testing.T) {
	app, _, sc := setupApp(t, false)
	sc.err = errors.New(errors.InvalidInput, "path or url is required")
	status, body := do(t, app, http.MethodPost, "/api/scan", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "path or url is required", body["error"])

	sc.err = errors.New(errors.IndexFailure, "rebuild cancelled")
	status, body = do(t, app, http.MethodPost, "/api/scan", `{"path":"/x"}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, string(errors.IndexFailure), body["code"])
}

func TestOptionalRoutesNotMounted(t *testing.T) {
	app, _, _ := setupApp(t, true)
	status, _ := do(t, app, http.MethodGet, "/api/repositories", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, app, http.MethodPost, "/api/agents/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAgentChatProxy(t *testing.T) {
	var got map[string]any
	agentSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":"it calls /api/search","tool_calls":[]}`))
	}))
	defer agentSrv.Close()

	m := index.NewManager(nil, logging.Discard())
	snap, err := m.Rebuild(context.Background(), "/repo", fixture())
	require.NoError(t, err)
	cfg := &config.Config{Tuning: config.DefaultTuning(), AgentURL: agentSrv.URL}
	app := NewApp(NewHandler(cfg, m, &stubScanner{manager: m}, nil, logging.Discard()))

	status, body := do(t, app, http.MethodPost, "/api/agents/chat", `{"message":"what does search do?"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "it calls /api/search", body["response"])
	assert.Equal(t, "explorer", got["agent_type"])
	assert.Equal(t, snap.ID, got["snapshot_id"])

	status, _ = do(t, app, http.MethodPost, "/api/agents/chat", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, 400, StatusFor(errors.EmptyQuery))
	assert.Equal(t, 409, StatusFor(errors.NotIndexed))
	assert.Equal(t, 404, StatusFor(errors.EntityNotFound))
	assert.Equal(t, 500, StatusFor(errors.IndexFailure))
	assert.Equal(t, 500, StatusFor(""))
}
