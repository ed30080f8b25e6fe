package api

import (
	"github.com/dpolishuk/codeflow/internal/errors"
	"github.com/dpolishuk/codeflow/internal/graph"
	"github.com/dpolishuk/codeflow/internal/index"
	"github.com/dpolishuk/codeflow/internal/models"
	"github.com/gofiber/fiber/v3"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// listLimit reads ?limit=, falling back to defaultListLimit when it is
// missing or out of range.
func listLimit(c fiber.Ctx) int {
	limit := fiber.Query[int](c, "limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		return defaultListLimit
	}
	return limit
}

func (h *Handler) indexed() (*index.Snapshot, error) {
	snap := h.manager.Current()
	if snap.Empty() {
		return nil, errors.New(errors.NotIndexed, "no index loaded; scan a repository first")
	}
	return snap, nil
}

// ListEntities answers GET /api/entities?type=&limit= with the live
// snapshot's entities in index order.
func (h *Handler) ListEntities(c fiber.Ctx) error {
	snap, err := h.indexed()
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(filterEntities(snap.All(), models.EntityType(c.Query("type")), listLimit(c)))
}

// ListRoutes answers GET /api/routes, the route entities of the snapshot.
func (h *Handler) ListRoutes(c fiber.Ctx) error {
	snap, err := h.indexed()
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(filterEntities(snap.All(), models.EntityRoute, listLimit(c)))
}

// ListEdges answers GET /api/edges?type=&limit= with every relation of the
// snapshot in flow orientation.
func (h *Handler) ListEdges(c fiber.Ctx) error {
	snap, err := h.indexed()
	if err != nil {
		return h.fail(c, err)
	}
	relType := models.RelationType(c.Query("type"))
	limit := listLimit(c)

	all := graph.CollectEdges(snap.All(), graph.NewBuilder(h.logger))
	edges := make([]models.RelationEdge, 0, min(limit, len(all)))
	total := 0
	for _, e := range all {
		if relType != "" && e.Type != relType {
			continue
		}
		total++
		if len(edges) < limit {
			edges = append(edges, e)
		}
	}
	return c.JSON(fiber.Map{"edges": edges, "count": len(edges), "total": total})
}

func filterEntities(all []*models.CodeEntity, typ models.EntityType, limit int) fiber.Map {
	entities := make([]*models.CodeEntity, 0, min(limit, len(all)))
	total := 0
	for _, e := range all {
		if typ != "" && e.Type != typ {
			continue
		}
		total++
		if len(entities) < limit {
			entities = append(entities, e)
		}
	}
	return fiber.Map{"entities": entities, "count": len(entities), "total": total}
}
