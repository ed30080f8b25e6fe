package graph

import "github.com/dpolishuk/codeflow/internal/models"

func entity(e models.CodeEntity) *models.CodeEntity {
	e.ID = models.EntityKey(e.FilePath, e.Name, e.StartLine)
	return &e
}

// searchFlow is the button -> handleSearch -> POST /api/search ->
// search_handler fixture.
func searchFlow() (button, handler, call, backend, route *models.CodeEntity) {
	button = entity(models.CodeEntity{
		Type:           models.EntityButton,
		Language:       "html",
		FilePath:       "static/index.html",
		StartLine:      12,
		Name:           "search-btn",
		ElementID:      "search-btn",
		Classes:        []string{"btn", "btn-primary"},
		Text:           "Search",
		EventListeners: []models.EventListener{{Event: "click", Handler: "handleSearch()"}},
	})
	handler = entity(models.CodeEntity{
		Type:      models.EntityFunction,
		Language:  "javascript",
		FilePath:  "static/app.js",
		StartLine: 3,
		Name:      "handleSearch",
		APICalls:  []models.APICall{{Method: "POST", Endpoint: "/api/search"}},
		Relations: []string{"fetch", "renderResults"},
	})
	call = entity(models.CodeEntity{
		Type:      models.EntityAPICall,
		Language:  "javascript",
		FilePath:  "static/app.js",
		StartLine: 5,
		Name:      "/api/search",
		APICalls:  []models.APICall{{Method: "POST", Endpoint: "/api/search"}},
	})
	backend = entity(models.CodeEntity{
		Type:      models.EntityFunction,
		Language:  "python",
		FilePath:  "backend/routes.py",
		StartLine: 20,
		Name:      "search_handler",
		Routes:    []models.Route{{Path: "/api/search", Method: "POST"}},
		Relations: []string{"engine.search", "jsonify"},
	})
	route = entity(models.CodeEntity{
		Type:      models.EntityRoute,
		Language:  "python",
		FilePath:  "backend/routes.py",
		StartLine: 19,
		Name:      "/api/search",
		Routes:    []models.Route{{Path: "/api/search", Method: "POST"}},
	})
	return
}

func findEdge(rel []models.RelatedEntity, target *models.CodeEntity, t models.RelationType) (models.RelatedEntity, bool) {
	for _, r := range rel {
		if r.Entity == target && r.Edge.Type == t {
			return r, true
		}
	}
	return models.RelatedEntity{}, false
}
