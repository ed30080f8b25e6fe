package api

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/dpolishuk/codeflow/internal/agent"
	"github.com/dpolishuk/codeflow/internal/config"
	"github.com/dpolishuk/codeflow/internal/db"
	"github.com/dpolishuk/codeflow/internal/errors"
	"github.com/dpolishuk/codeflow/internal/index"
	"github.com/dpolishuk/codeflow/internal/logging"
	"github.com/dpolishuk/codeflow/internal/models"
	"github.com/dpolishuk/codeflow/internal/ranker"
	"github.com/dpolishuk/codeflow/internal/scan"
	"github.com/dpolishuk/codeflow/internal/search"
	"github.com/gofiber/fiber/v3"
)

// codeInternal labels failures that carry no code.
const codeInternal errors.ErrorCode = "INTERNAL"

// Scanner runs one scan; *scan.Scanner satisfies it.
type Scanner interface {
	Scan(ctx context.Context, in models.ScanInput) (*scan.Result, error)
}

type Handler struct {
	cfg         *config.Config
	manager     *index.Manager
	search      *search.Pipeline
	scanner     Scanner
	dbClient    *db.Neo4jClient
	graphReader *db.GraphReader
	agentProxy  *agent.AgentProxy
	logger      *slog.Logger
}

// NewHandler wires the search pipeline over manager. dbClient may be nil,
// in which case the repository endpoints are not mounted. An agent proxy
// is created when cfg.AgentURL is set and writes the search summaries.
func NewHandler(cfg *config.Config, manager *index.Manager, scanner Scanner, dbClient *db.Neo4jClient, logger *slog.Logger) *Handler {
	logger = logging.OrDefault(logger)
	h := &Handler{
		cfg:      cfg,
		manager:  manager,
		scanner:  scanner,
		dbClient: dbClient,
		logger:   logger,
	}

	opts := []search.Option{
		search.WithLogger(logger),
		search.WithEncoder(manager.Encoder()),
		search.WithExpandDepth(cfg.Tuning.Search.ExpandDepth),
		search.WithFlowLimits(cfg.Tuning.Limits()),
	}
	if cfg.AgentURL != "" {
		h.agentProxy = agent.NewAgentProxy(cfg.AgentURL)
		opts = append(opts, search.WithExplainer(h.agentProxy))
	}
	h.search = search.New(manager, opts...)

	if dbClient != nil {
		h.graphReader = db.NewGraphReader(dbClient)
	}
	return h
}

// Health reports liveness and whether a snapshot is loaded.
func (h *Handler) Health(c fiber.Ctx) error {
	body := fiber.Map{
		"status":  "ok",
		"service": "codeflow",
		"indexed": !h.manager.Current().Empty(),
	}
	if h.dbClient != nil {
		body["neo4j"] = "up"
		if err := h.dbClient.Ping(c.Context()); err != nil {
			h.logger.Warn("neo4j unreachable", "error", err)
			body["neo4j"] = "down"
		}
	}
	return c.JSON(body)
}

type searchRequest struct {
	Query   string          `json:"query"`
	TopK    int             `json:"topK"`
	Weights *ranker.Weights `json:"weights"`
}

// Search answers GET /api/search?q=&limit=&alpha=&beta=&gamma=. alpha,
// beta and gamma are the semantic, lexical and context weights; giving
// any of them overrides the weight profile.
func (h *Handler) Search(c fiber.Ctx) error {
	limit := fiber.Query[int](c, "limit", h.cfg.Tuning.Search.TopK)
	if limit < 1 || limit > search.MaxTopK {
		limit = h.cfg.Tuning.Search.TopK
	}

	var weights *ranker.Weights
	if c.Query("alpha") != "" || c.Query("beta") != "" || c.Query("gamma") != "" {
		weights = &ranker.Weights{
			Semantic: fiber.Query[float64](c, "alpha", 0),
			Lexical:  fiber.Query[float64](c, "beta", 0),
			Context:  fiber.Query[float64](c, "gamma", 0),
		}
	}
	return h.runSearch(c, c.Query("q"), limit, weights)
}

// SearchBody answers POST /api/search with a JSON body.
func (h *Handler) SearchBody(c fiber.Ctx) error {
	var req searchRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body", "code": errors.InvalidInput})
	}
	if req.TopK < 1 || req.TopK > search.MaxTopK {
		req.TopK = h.cfg.Tuning.Search.TopK
	}
	return h.runSearch(c, req.Query, req.TopK, req.Weights)
}

func (h *Handler) runSearch(c fiber.Ctx, q string, topK int, weights *ranker.Weights) error {
	if weights != nil && !validWeights(*weights) {
		return c.Status(400).JSON(fiber.Map{"error": "weights must be non-negative", "code": errors.InvalidInput})
	}
	resp, err := h.search.Search(c.Context(), q, topK, weights)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

// Related lists the entities related to an entity. The id is URL-escaped
// because entity ids contain slashes.
func (h *Handler) Related(c fiber.Ctx) error {
	id, err := url.PathUnescape(c.Params("id"))
	if err != nil || id == "" {
		return c.Status(400).JSON(fiber.Map{"error": "invalid entity id", "code": errors.InvalidInput})
	}
	related, err := h.search.FindRelated(c.Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"entityId": id,
		"related":  related,
		"count":    len(related),
	})
}

// FlowGraph answers GET /api/graph?q=.
func (h *Handler) FlowGraph(c fiber.Ctx) error {
	g, err := h.search.BuildFlowGraph(c.Context(), c.Query("q"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(g)
}

// Scan indexes a local directory or a git URL and swaps the snapshot in
// before responding.
func (h *Handler) Scan(c fiber.Ctx) error {
	var input models.ScanInput
	if err := c.Bind().Body(&input); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body", "code": errors.InvalidInput})
	}
	res, err := h.scanner.Scan(c.Context(), input)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}

// IndexStatus describes the live snapshot.
func (h *Handler) IndexStatus(c fiber.Ctx) error {
	return c.JSON(h.manager.Current().Status())
}

// ListRepositories returns all exported repositories
func (h *Handler) ListRepositories(c fiber.Ctx) error {
	repos, err := db.ListRepositories(c.Context(), h.dbClient)
	if err != nil {
		return h.fail(c, err)
	}
	if repos == nil {
		repos = []*models.Repository{}
	}
	return c.JSON(repos)
}

// GetRepository returns a single repository
func (h *Handler) GetRepository(c fiber.Ctx) error {
	repo, err := db.GetRepository(c.Context(), h.dbClient, c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if repo == nil {
		return c.Status(404).JSON(fiber.Map{"error": "repository not found", "code": errors.EntityNotFound})
	}
	return c.JSON(repo)
}

// DeleteRepository removes a repository and its exported graph
func (h *Handler) DeleteRepository(c fiber.Ctx) error {
	if err := db.DeleteRepository(c.Context(), h.dbClient, c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(204)
}

// GetRepositoryFiles returns the file tree with declared entities
func (h *Handler) GetRepositoryFiles(c fiber.Ctx) error {
	files, err := h.graphReader.GetFileTree(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if files == nil {
		files = []db.FileNode{}
	}
	return c.JSON(files)
}

// GetRepositoryGraph returns graph data for visualization
func (h *Handler) GetRepositoryGraph(c fiber.Ctx) error {
	graphType := c.Query("type", db.GraphStructure)
	if graphType != db.GraphStructure && graphType != db.GraphRelations {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid graph type, must be 'structure' or 'relations'",
			"code":  errors.InvalidInput,
		})
	}

	graph, err := h.graphReader.GetGraph(c.Context(), c.Params("id"), graphType)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(graph)
}

// ProxyAgentChat forwards chat requests to the agent service, scoped to
// the live snapshot.
func (h *Handler) ProxyAgentChat(c fiber.Ctx) error {
	var req agent.ChatRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body", "code": errors.InvalidInput})
	}
	if req.Message == "" {
		return c.Status(400).JSON(fiber.Map{"error": "message is required", "code": errors.InvalidInput})
	}
	if req.AgentType == "" {
		req.AgentType = "explorer"
	}
	if req.SnapshotID == nil {
		if snap := h.manager.Current(); !snap.Empty() {
			req.SnapshotID = &snap.ID
		}
	}

	response, err := h.agentProxy.Chat(c.Context(), req.Message, req.SnapshotID, req.AgentType)
	if err != nil {
		h.logger.Warn("agent chat failed", "error", err)
		return c.Status(502).JSON(fiber.Map{"error": "failed to communicate with agent service: " + err.Error()})
	}
	return c.JSON(response)
}

// fail maps coded errors to their HTTP status.
func (h *Handler) fail(c fiber.Ctx, err error) error {
	code := errors.CodeOf(err)
	status := StatusFor(code)
	if status >= 500 {
		h.logger.Error("request failed", "path", c.Path(), "code", code, "error", err)
	}
	if code == "" {
		code = codeInternal
	}
	return c.Status(status).JSON(fiber.Map{"error": errors.MessageOf(err), "code": code})
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(code errors.ErrorCode) int {
	switch code {
	case errors.EmptyQuery, errors.InvalidInput:
		return fiber.StatusBadRequest
	case errors.NotIndexed:
		return fiber.StatusConflict
	case errors.EntityNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

func validWeights(w ranker.Weights) bool {
	return w.Semantic >= 0 && w.Lexical >= 0 && w.Context >= 0
}
