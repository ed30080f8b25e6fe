package indexer

import (
	"fmt"
	"strings"

	"github.com/dpolishuk/codeflow/internal/models"
	sitter "github.com/smacker/go-tree-sitter"
)

// goRoute is a router registration such as r.Get("/x", listItems).
type goRoute struct {
	route   models.Route
	handler string
	line    int
	code    string
}

func (e *Extractor) extractGo(f *fileScope, root *sitter.Node) {
	var routes []goRoute
	traverseNode(root, func(node *sitter.Node) {
		switch node.Type() {
		case "import_spec":
			if p := node.ChildByFieldName("path"); p != nil {
				f.imports = append(f.imports, unquote(getNodeContent(p, f.content)))
			}
		case "function_declaration", "method_declaration":
			e.extractGoFunction(f, node)
		case "type_declaration":
			for i := 0; i < int(node.NamedChildCount()); i++ {
				spec := node.NamedChild(i)
				if spec != nil && spec.Type() == "type_spec" && namedChildOfType(spec, "struct_type") != nil {
					e.extractGoStruct(f, node, spec)
				}
			}
		case "call_expression":
			if r, ok := goRouteCall(node, f.content); ok {
				routes = append(routes, r)
			}
		}
	})

	for _, r := range routes {
		ent := models.CodeEntity{
			Type:      models.EntityRoute,
			StartLine: r.line,
			EndLine:   r.line,
			Name:      r.route.Path,
			Context:   fmt.Sprintf("%s %s", r.route.Method, r.route.Path),
			Code:      r.code,
			Routes:    []models.Route{r.route},
		}
		if r.handler == "" {
			f.add(ent)
			continue
		}
		ent.Context += " handled by " + r.handler
		ent.Relations = []string{r.handler}
		f.add(ent)
		for i := range f.entities {
			ent := &f.entities[i]
			if ent.Type == models.EntityFunction && ent.Name == r.handler {
				ent.Routes = append(ent.Routes, r.route)
			}
		}
	}
	f.attachImports()
}

func (e *Extractor) extractGoFunction(f *fileScope, node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := getNodeContent(nameNode, f.content)
	code := getNodeContent(node, f.content)

	ctx := getPrecedingComment(node, f.content)
	if ctx == "" {
		ctx = signatureLine(node, f.content, "body")
	}
	f.add(models.CodeEntity{
		Type:      models.EntityFunction,
		StartLine: startLine(node),
		EndLine:   endLine(node),
		Name:      name,
		Context:   ctx,
		Code:      code,
		Relations: extractCalls(node, f.content),
		APICalls:  goAPICalls(code),
	})
}

func (e *Extractor) extractGoStruct(f *fileScope, decl, spec *sitter.Node) {
	nameNode := spec.ChildByFieldName("name")
	if nameNode == nil {
		nameNode = namedChildOfType(spec, "type_identifier")
	}
	if nameNode == nil {
		return
	}
	name := getNodeContent(nameNode, f.content)
	ctx := getPrecedingComment(decl, f.content)
	if ctx == "" {
		ctx = "Go struct " + name
	}
	f.add(models.CodeEntity{
		Type:      models.EntityClass,
		StartLine: startLine(decl),
		EndLine:   endLine(decl),
		Name:      name,
		Context:   ctx,
		Code:      getNodeContent(decl, f.content),
	})
}

// goRouteCall recognises x.HandleFunc("/p", h), x.Get("/p", h) and the
// net/http "METHOD /p" pattern form.
func goRouteCall(node *sitter.Node, content []byte) (goRoute, bool) {
	fn := node.ChildByFieldName("function")
	args := node.ChildByFieldName("arguments")
	if fn == nil || args == nil || fn.Type() != "selector_expression" || args.NamedChildCount() < 2 {
		return goRoute{}, false
	}
	method, ok := goRouteMethods[getNodeContent(fn.ChildByFieldName("field"), content)]
	if !ok {
		return goRoute{}, false
	}
	pathNode := args.NamedChild(0)
	if !isStringNode(pathNode) {
		return goRoute{}, false
	}
	path := unquote(getNodeContent(pathNode, content))
	if m, p, found := strings.Cut(path, " "); found {
		method, path = strings.ToUpper(m), strings.TrimSpace(p)
	}
	if !strings.HasPrefix(path, "/") {
		return goRoute{}, false
	}
	if method == "" {
		method = "GET"
	}

	handler := getNodeContent(args.NamedChild(int(args.NamedChildCount())-1), content)
	if i := strings.LastIndexByte(handler, '.'); i >= 0 {
		handler = handler[i+1:]
	}
	if strings.ContainsAny(handler, "({ \n") {
		handler = ""
	}
	return goRoute{
		route:   models.Route{Path: path, Method: method},
		handler: handler,
		line:    startLine(node),
		code:    getNodeContent(node, content),
	}, true
}
