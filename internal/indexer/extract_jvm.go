package indexer

import (
	"fmt"
	"strings"

	"github.com/dpolishuk/codeflow/internal/models"
	sitter "github.com/smacker/go-tree-sitter"
)

func (e *Extractor) extractJava(f *fileScope, root *sitter.Node) {
	traverseNode(root, func(node *sitter.Node) {
		switch node.Type() {
		case "import_declaration":
			imp := strings.TrimSpace(getNodeContent(node, f.content))
			imp = strings.TrimPrefix(imp, "import ")
			imp = strings.TrimPrefix(imp, "static ")
			f.imports = append(f.imports, strings.TrimSuffix(imp, ";"))
		case "method_declaration", "constructor_declaration":
			e.extractJVMFunction(f, node, node.ChildByFieldName("name"), "class_declaration")
		case "class_declaration", "interface_declaration":
			e.extractJVMClass(f, node, node.ChildByFieldName("name"))
		}
	})
	f.imports = compact(f.imports)
	f.attachImports()
}

func (e *Extractor) extractKotlin(f *fileScope, root *sitter.Node) {
	traverseNode(root, func(node *sitter.Node) {
		switch node.Type() {
		case "import_header":
			if id := namedChildOfType(node, "identifier"); id != nil {
				f.imports = append(f.imports, getNodeContent(id, f.content))
			}
		case "function_declaration":
			e.extractJVMFunction(f, node, namedChildOfType(node, "simple_identifier"), "class_declaration")
		case "class_declaration", "object_declaration":
			e.extractJVMClass(f, node, namedChildOfType(node, "type_identifier"))
		}
	})
	f.imports = compact(f.imports)
	f.attachImports()
}

func (e *Extractor) extractJVMFunction(f *fileScope, node, nameNode *sitter.Node, classType string) {
	if nameNode == nil {
		return
	}
	name := getNodeContent(nameNode, f.content)
	ctx := getPrecedingComment(node, f.content)
	if ctx == "" {
		ctx = signatureLine(node, f.content, "body", "function_body")
	}
	ent := models.CodeEntity{
		Type:      models.EntityFunction,
		StartLine: startLine(node),
		EndLine:   endLine(node),
		Name:      name,
		Context:   ctx,
		Code:      getNodeContent(node, f.content),
		Relations: extractCalls(node, f.content),
	}

	if routes := springRoutes(annotationText(node, f.content)); len(routes) > 0 {
		prefix := ""
		for p := node.Parent(); p != nil; p = p.Parent() {
			if p.Type() == classType {
				if base := springRoutes(annotationText(p, f.content)); len(base) > 0 {
					prefix = strings.TrimSuffix(base[0].Path, "/")
				}
				break
			}
		}
		for i := range routes {
			routes[i].Path = prefix + routes[i].Path
			f.add(models.CodeEntity{
				Type:      models.EntityRoute,
				StartLine: ent.StartLine,
				EndLine:   ent.StartLine,
				Name:      routes[i].Path,
				Context:   fmt.Sprintf("%s %s handled by %s", routes[i].Method, routes[i].Path, name),
				Code:      annotationText(node, f.content),
				Routes:    []models.Route{routes[i]},
				Relations: []string{name},
			})
		}
		ent.Routes = routes
	}
	f.add(ent)
}

func (e *Extractor) extractJVMClass(f *fileScope, node, nameNode *sitter.Node) {
	if nameNode == nil {
		return
	}
	name := getNodeContent(nameNode, f.content)
	ctx := getPrecedingComment(node, f.content)
	if ctx == "" {
		ctx = signatureLine(node, f.content, "body", "class_body")
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

// annotationText returns the modifiers block, which holds the annotations
// of a Java or Kotlin declaration.
func annotationText(node *sitter.Node, content []byte) string {
	if m := namedChildOfType(node, "modifiers"); m != nil {
		return getNodeContent(m, content)
	}
	return ""
}
