package indexer

import (
	"regexp"
	"strings"

	"github.com/dpolishuk/codeflow/internal/models"
)

var (
	// @app.route("/x", methods=["POST"]), @router.get("/x"), @bp.post('/x')
	pyRouteDecorator = regexp.MustCompile(`@\w+(?:\.\w+)*\.(route|get|post|put|delete|patch)\(\s*["']([^"']+)["']`)
	pyRouteMethods   = regexp.MustCompile(`methods\s*=\s*[\[(]\s*["'](\w+)["']`)
	pyHTTPClient     = regexp.MustCompile(`\b(?:requests|httpx)\.(get|post|put|delete|patch)\s*\(\s*f?["']([^"']+)["']`)

	// http.Get("url"), http.Post("url", ...), http.NewRequest("POST", "url", ...)
	goHTTPGetPost = regexp.MustCompile(`\bhttp\.(Get|Post|Head)\(\s*"([^"]+)"`)
	goNewRequest  = regexp.MustCompile(`\bhttp\.NewRequest(?:WithContext)?\([^,]*?,?\s*(?:http\.Method(\w+)|"(\w+)")\s*,\s*"([^"]+)"`)

	// Spring: @GetMapping("/x"), @PostMapping(value = "/x"), @RequestMapping(path = "/x", method = RequestMethod.POST)
	springMapping = regexp.MustCompile(`@(Get|Post|Put|Delete|Patch|Request)Mapping\s*\(\s*(?:(?:value|path)\s*=\s*)?\{?\s*"([^"]+)"`)
	springMethod  = regexp.MustCompile(`RequestMethod\.(\w+)`)

	// Go routers: r.HandleFunc("/x", h), app.Get("/x", h), e.POST("/x", h)
	goRouteMethods = map[string]string{
		"Handle": "", "HandleFunc": "",
		"Get": "GET", "Post": "POST", "Put": "PUT", "Delete": "DELETE", "Patch": "PATCH",
		"GET": "GET", "POST": "POST", "PUT": "PUT", "DELETE": "DELETE", "PATCH": "PATCH",
	}
)

func pythonRoutes(decorators string) []models.Route {
	var routes []models.Route
	for _, m := range pyRouteDecorator.FindAllStringSubmatch(decorators, -1) {
		method := strings.ToUpper(m[1])
		if method == "ROUTE" {
			method = "GET"
			if mm := pyRouteMethods.FindStringSubmatch(decorators); mm != nil {
				method = strings.ToUpper(mm[1])
			}
		}
		routes = append(routes, models.Route{Path: m[2], Method: method})
	}
	return routes
}

func pythonAPICalls(code string) []models.APICall {
	var calls []models.APICall
	for _, m := range pyHTTPClient.FindAllStringSubmatch(code, -1) {
		calls = append(calls, models.APICall{Method: strings.ToUpper(m[1]), Endpoint: m[2]})
	}
	return calls
}

func goAPICalls(code string) []models.APICall {
	var calls []models.APICall
	for _, m := range goHTTPGetPost.FindAllStringSubmatch(code, -1) {
		calls = append(calls, models.APICall{Method: strings.ToUpper(m[1]), Endpoint: m[2]})
	}
	for _, m := range goNewRequest.FindAllStringSubmatch(code, -1) {
		method := m[1]
		if method == "" {
			method = m[2]
		}
		calls = append(calls, models.APICall{Method: strings.ToUpper(method), Endpoint: m[3]})
	}
	return calls
}

func springRoutes(annotations string) []models.Route {
	var routes []models.Route
	for _, m := range springMapping.FindAllStringSubmatch(annotations, -1) {
		method := strings.ToUpper(m[1])
		if method == "REQUEST" {
			method = "GET"
			if mm := springMethod.FindStringSubmatch(annotations); mm != nil {
				method = strings.ToUpper(mm[1])
			}
		}
		routes = append(routes, models.Route{Path: m[2], Method: method})
	}
	return routes
}
