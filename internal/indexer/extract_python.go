package indexer

import (
	"fmt"
	"strings"

	"github.com/dpolishuk/codeflow/internal/models"
	sitter "github.com/smacker/go-tree-sitter"
)

func (e *Extractor) extractPython(f *fileScope, root *sitter.Node) {
	traverseNode(root, func(node *sitter.Node) {
		switch node.Type() {
		case "import_statement":
			for i := 0; i < int(node.NamedChildCount()); i++ {
				f.imports = append(f.imports, pythonImportName(node.NamedChild(i), f.content))
			}
		case "import_from_statement":
			moduleNode := node.ChildByFieldName("module_name")
			if moduleNode == nil {
				return
			}
			module := getNodeContent(moduleNode, f.content)
			f.imports = append(f.imports, module)
			for i := 0; i < int(node.NamedChildCount()); i++ {
				c := node.NamedChild(i)
				if c == nil || c.StartByte() == moduleNode.StartByte() {
					continue
				}
				if name := pythonImportName(c, f.content); name != "" {
					f.imports = append(f.imports, module+"."+name)
				}
			}
		case "function_definition":
			e.extractPythonFunction(f, node)
		case "class_definition":
			e.extractPythonClass(f, node)
		}
	})
	f.imports = compact(f.imports)
	f.attachImports()
}

func pythonImportName(n *sitter.Node, content []byte) string {
	if n == nil {
		return ""
	}
	if n.Type() == "aliased_import" {
		return getNodeContent(n.ChildByFieldName("name"), content)
	}
	if n.Type() == "dotted_name" {
		return getNodeContent(n, content)
	}
	return ""
}

func (e *Extractor) extractPythonFunction(f *fileScope, node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := getNodeContent(nameNode, f.content)
	code := getNodeContent(node, f.content)

	ctx := getPythonDocstring(node, f.content)
	if ctx == "" {
		ctx = "Python function " + name
	}
	ent := models.CodeEntity{
		Type:      models.EntityFunction,
		StartLine: startLine(node),
		EndLine:   endLine(node),
		Name:      name,
		Context:   ctx,
		Code:      code,
		Relations: extractCalls(node, f.content),
		APICalls:  pythonAPICalls(code),
	}

	if parent := node.Parent(); parent != nil && parent.Type() == "decorated_definition" {
		var decorators strings.Builder
		firstLine := startLine(parent)
		for i := 0; i < int(parent.NamedChildCount()); i++ {
			if d := parent.NamedChild(i); d != nil && d.Type() == "decorator" {
				decorators.WriteString(getNodeContent(d, f.content))
				decorators.WriteByte('\n')
			}
		}
		ent.Routes = pythonRoutes(decorators.String())
		ent.Code = getNodeContent(parent, f.content)
		for _, r := range ent.Routes {
			f.add(models.CodeEntity{
				Type:      models.EntityRoute,
				StartLine: firstLine,
				EndLine:   ent.StartLine,
				Name:      r.Path,
				Context:   fmt.Sprintf("%s %s handled by %s", r.Method, r.Path, name),
				Code:      strings.TrimSpace(decorators.String()),
				Routes:    []models.Route{r},
				Relations: []string{name},
			})
		}
	}
	f.add(ent)
}

func (e *Extractor) extractPythonClass(f *fileScope, node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := getNodeContent(nameNode, f.content)
	ctx := getPythonDocstring(node, f.content)
	if ctx == "" {
		ctx = "Python class " + name
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

// compact drops empty and repeated strings, keeping first occurrences.
func compact(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
