package api

import (
	"github.com/gofiber/fiber/v3"
)

func SetupRoutes(app *fiber.App, h *Handler) {
	app.Get("/health", h.Health)

	api := app.Group("/api")

	// Search endpoints
	api.Get("/search", h.Search)
	api.Post("/search", h.SearchBody)
	api.Get("/entities/:id/related", h.Related)
	api.Get("/graph", h.FlowGraph)

	// Read-only listings of the live index
	api.Get("/entities", h.ListEntities)
	api.Get("/routes", h.ListRoutes)
	api.Get("/edges", h.ListEdges)

	// Index lifecycle
	api.Post("/scan", h.Scan)
	api.Get("/index/status", h.IndexStatus)

	if h.agentProxy != nil {
		agents := api.Group("/agents")
		agents.Post("/chat", h.ProxyAgentChat)
	}

	// Repositories exported to Neo4j
	if h.dbClient != nil {
		repos := api.Group("/repositories")
		repos.Get("/", h.ListRepositories)
		repos.Get("/:id", h.GetRepository)
		repos.Delete("/:id", h.DeleteRepository)
		repos.Get("/:id/files", h.GetRepositoryFiles)
		repos.Get("/:id/graph", h.GetRepositoryGraph)
	}
}

// NewApp builds the fiber app with the codeflow error handler and routes.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "codeflow API",
		ErrorHandler: h.errorHandler,
	})
	SetupRoutes(app, h)
	return app
}

// errorHandler renders errors that escape a handler, including fiber's
// own 404 and 405, in the {"error", "code"} shape.
func (h *Handler) errorHandler(c fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message, "code": codeInternal})
	}
	return h.fail(c, err)
}
