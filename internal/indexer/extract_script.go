package indexer

import (
	"fmt"
	"strings"

	"github.com/dpolishuk/codeflow/internal/models"
	sitter "github.com/smacker/go-tree-sitter"
)

var httpVerbs = map[string]bool{"get": true, "post": true, "put": true, "delete": true, "patch": true, "head": true}

// scriptCall is a fetch/axios request or an addEventListener registration
// found in JavaScript or TypeScript.
type scriptCall struct {
	api      *models.APICall
	listener *models.EventListener
	line     int
	code     string
}

func (e *Extractor) extractScript(f *fileScope, root *sitter.Node) {
	traverseNode(root, func(node *sitter.Node) {
		switch node.Type() {
		case "import_statement":
			if src := node.ChildByFieldName("source"); src != nil {
				f.imports = append(f.imports, unquote(getNodeContent(src, f.content)))
			}
		case "function_declaration", "generator_function_declaration", "method_definition":
			if name := node.ChildByFieldName("name"); name != nil {
				e.extractScriptFunction(f, node, node, getNodeContent(name, f.content))
			}
		case "variable_declarator":
			value := node.ChildByFieldName("value")
			if value == nil {
				return
			}
			switch value.Type() {
			case "arrow_function", "function", "function_expression":
				e.extractScriptFunction(f, node, value, getNodeContent(node.ChildByFieldName("name"), f.content))
			}
		case "class_declaration", "class":
			e.extractScriptClass(f, node)
		case "call_expression":
			c, ok := scriptCallOf(node, f.content)
			if !ok {
				return
			}
			if c.api != nil {
				f.add(models.CodeEntity{
					Type:      models.EntityAPICall,
					StartLine: c.line,
					EndLine:   c.line,
					Name:      c.api.Endpoint,
					Context:   fmt.Sprintf("%s request to %s", c.api.Method, c.api.Endpoint),
					Code:      c.code,
					APICalls:  []models.APICall{*c.api},
				})
			}
			if c.listener != nil {
				name := c.listener.Handler
				if name == "" {
					name = c.listener.Event
				}
				f.add(models.CodeEntity{
					Type:           models.EntityEventListener,
					StartLine:      c.line,
					EndLine:        c.line,
					Name:           name,
					Context:        fmt.Sprintf("%s listener on %s", c.listener.Event, c.listener.Element),
					Code:           c.code,
					EventListeners: []models.EventListener{*c.listener},
				})
			}
		}
	})
	f.imports = compact(f.imports)
	f.attachImports()
}

// extractScriptFunction records a function. decl is the node that carries
// the name and position, body the function itself.
func (e *Extractor) extractScriptFunction(f *fileScope, decl, body *sitter.Node, name string) {
	if name == "" {
		return
	}
	ent := models.CodeEntity{
		Type:      models.EntityFunction,
		StartLine: startLine(decl),
		EndLine:   endLine(body),
		Name:      name,
		Context:   scriptComment(decl, f.content),
		Code:      getNodeContent(decl, f.content),
		Relations: extractCalls(body, f.content),
	}
	if ent.Context == "" {
		ent.Context = fmt.Sprintf("%s function %s", scriptLanguageName(f.language), name)
	}
	traverseNode(body, func(n *sitter.Node) {
		if n.Type() != "call_expression" {
			return
		}
		if c, ok := scriptCallOf(n, f.content); ok {
			if c.api != nil {
				ent.APICalls = append(ent.APICalls, *c.api)
			}
			if c.listener != nil {
				ent.EventListeners = append(ent.EventListeners, *c.listener)
			}
		}
	})
	f.add(ent)
}

func (e *Extractor) extractScriptClass(f *fileScope, node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := getNodeContent(nameNode, f.content)
	ctx := scriptComment(node, f.content)
	if ctx == "" {
		ctx = fmt.Sprintf("%s class %s", scriptLanguageName(f.language), name)
	}
	f.add(models.CodeEntity{
		Type:      models.EntityClass,
		StartLine: startLine(node),
		EndLine:   endLine(node),
		Name:      name,
		Context:   ctx,
		Code:      getNodeContent(node, f.content),
	})
}

// scriptComment finds the comment before a declaration, looking through the
// lexical_declaration and export_statement wrappers.
func scriptComment(node *sitter.Node, content []byte) string {
	for n, i := node, 0; n != nil && i < 3; n, i = n.Parent(), i+1 {
		if c := getPrecedingComment(n, content); c != "" {
			return c
		}
		switch n.Type() {
		case "variable_declarator", "lexical_declaration", "variable_declaration", "export_statement":
		default:
			if n != node {
				return ""
			}
		}
	}
	return ""
}

func scriptLanguageName(lang string) string {
	if lang == "typescript" {
		return "TypeScript"
	}
	return "JavaScript"
}

// scriptCallOf classifies fetch(url, {method}), axios.verb(url),
// $.verb(url) and target.addEventListener(event, handler).
func scriptCallOf(node *sitter.Node, content []byte) (scriptCall, bool) {
	fn := node.ChildByFieldName("function")
	args := node.ChildByFieldName("arguments")
	if fn == nil || args == nil || args.NamedChildCount() == 0 {
		return scriptCall{}, false
	}
	first := args.NamedChild(0)
	c := scriptCall{line: startLine(node), code: getNodeContent(node, content)}

	switch fn.Type() {
	case "identifier":
		if getNodeContent(fn, content) != "fetch" || !isStringNode(first) {
			return scriptCall{}, false
		}
		method := "GET"
		if args.NamedChildCount() > 1 {
			if m := objectStringProperty(args.NamedChild(1), "method", content); m != "" {
				method = strings.ToUpper(m)
			}
		}
		return withEndpoint(c, method, unquote(getNodeContent(first, content)))

	case "member_expression":
		object := getNodeContent(fn.ChildByFieldName("object"), content)
		property := getNodeContent(fn.ChildByFieldName("property"), content)

		if property == "addEventListener" {
			if !isStringNode(first) {
				return scriptCall{}, false
			}
			l := &models.EventListener{Event: unquote(getNodeContent(first, content)), Element: object}
			if args.NamedChildCount() > 1 {
				switch h := args.NamedChild(1); h.Type() {
				case "identifier", "member_expression":
					l.Handler = getNodeContent(h, content)
				}
			}
			c.listener = l
			return c, true
		}

		if (object == "axios" || object == "$" || object == "jQuery") && httpVerbs[strings.ToLower(property)] && isStringNode(first) {
			return withEndpoint(c, strings.ToUpper(property), unquote(getNodeContent(first, content)))
		}
	}
	return scriptCall{}, false
}

func withEndpoint(c scriptCall, method, endpoint string) (scriptCall, bool) {
	if endpoint == "" {
		return scriptCall{}, false
	}
	c.api = &models.APICall{Method: method, Endpoint: endpoint}
	return c, true
}

// objectStringProperty reads {key: "value"} from an object literal.
func objectStringProperty(obj *sitter.Node, key string, content []byte) string {
	if obj == nil || obj.Type() != "object" {
		return ""
	}
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		pair := obj.NamedChild(i)
		if pair == nil || pair.Type() != "pair" {
			continue
		}
		if unquote(getNodeContent(pair.ChildByFieldName("key"), content)) != key {
			continue
		}
		if v := pair.ChildByFieldName("value"); isStringNode(v) {
			return unquote(getNodeContent(v, content))
		}
	}
	return ""
}
