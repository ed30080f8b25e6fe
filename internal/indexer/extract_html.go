package indexer

import (
	"context"
	"strings"

	"github.com/dpolishuk/codeflow/internal/models"
	sitter "github.com/smacker/go-tree-sitter"
)

// maxButtonName bounds a button name derived from its text.
const maxButtonName = 30

type htmlTag struct {
	name  string
	attrs map[string]string
	order []string
}

func (t htmlTag) classes() []string {
	return strings.Fields(t.attrs["class"])
}

// listeners turns on* attributes into event listeners.
func (t htmlTag) listeners() []models.EventListener {
	var out []models.EventListener
	for _, a := range t.order {
		if strings.HasPrefix(a, "on") && len(a) > 2 && t.attrs[a] != "" {
			out = append(out, models.EventListener{Event: a[2:], Handler: t.attrs[a]})
		}
	}
	return out
}

func (e *Extractor) extractHTML(ctx context.Context, f *fileScope, root *sitter.Node) {
	traverseNode(root, func(node *sitter.Node) {
		switch node.Type() {
		case "script_element":
			e.extractInlineScript(ctx, f, node)
		case "element":
			start := namedChildOfType(node, "start_tag")
			if start == nil {
				start = namedChildOfType(node, "self_closing_tag")
			}
			if start == nil {
				return
			}
			tag := parseTag(start, f.content)
			if ent, ok := htmlEntity(node, tag, f.content); ok {
				f.add(ent)
			}
		}
	})
}

func htmlEntity(node *sitter.Node, tag htmlTag, content []byte) (models.CodeEntity, bool) {
	ent := models.CodeEntity{
		StartLine:      startLine(node),
		EndLine:        endLine(node),
		Code:           getNodeContent(node, content),
		ElementID:      tag.attrs["id"],
		Classes:        tag.classes(),
		EventListeners: tag.listeners(),
	}

	switch tag.name {
	case "button":
		ent.Type = models.EntityButton
		ent.Text = elementText(node, content)
		ent.Name = ent.ElementID
		if ent.Name == "" {
			ent.Name = truncate(ent.Text, maxButtonName)
		}
		if ent.Name == "" {
			ent.Name = "button"
		}
		ent.Context = "Button " + firstNonEmpty(ent.Text, ent.Name)
	case "form":
		ent.Type = models.EntityForm
		ent.Name = firstNonEmpty(ent.ElementID, tag.attrs["name"], "form")
		if action := tag.attrs["action"]; action != "" {
			method := strings.ToUpper(firstNonEmpty(tag.attrs["method"], "GET"))
			ent.APICalls = []models.APICall{{Method: method, Endpoint: action}}
		}
		ent.Context = "Form " + ent.Name
	case "input", "select", "textarea":
		name := firstNonEmpty(ent.ElementID, tag.attrs["name"])
		if name == "" {
			return models.CodeEntity{}, false
		}
		ent.Type = models.EntityInput
		ent.Name = name
		ent.Context = firstNonEmpty(tag.attrs["placeholder"], tag.name+" "+name)
	default:
		if tag.attrs["onclick"] == "" {
			return models.CodeEntity{}, false
		}
		ent.Type = models.EntityElement
		ent.Text = elementText(node, content)
		ent.Name = firstNonEmpty(ent.ElementID, tag.name)
		ent.Context = "Clickable " + tag.name + " " + firstNonEmpty(ent.Text, ent.Name)
	}
	return ent, true
}

// extractInlineScript parses a <script> body as JavaScript and records its
// entities at their line in the HTML file.
func (e *Extractor) extractInlineScript(ctx context.Context, f *fileScope, node *sitter.Node) {
	raw := namedChildOfType(node, "raw_text")
	if raw == nil {
		return
	}
	src := []byte(getNodeContent(raw, f.content))
	tree, err := e.parser.Parse(ctx, src, "javascript")
	if err != nil {
		return
	}
	defer tree.Close()

	sub := &fileScope{
		path:       f.path,
		language:   "javascript",
		content:    src,
		lineOffset: int(raw.StartPoint().Row),
	}
	e.extractScript(sub, tree.RootNode())
	f.entities = append(f.entities, sub.entities...)
}

func parseTag(start *sitter.Node, content []byte) htmlTag {
	tag := htmlTag{attrs: make(map[string]string)}
	for i := 0; i < int(start.NamedChildCount()); i++ {
		c := start.NamedChild(i)
		switch c.Type() {
		case "tag_name":
			tag.name = strings.ToLower(getNodeContent(c, content))
		case "attribute":
			name := strings.ToLower(getNodeContent(namedChildOfType(c, "attribute_name"), content))
			if name == "" {
				continue
			}
			var value string
			if v := namedChildOfType(c, "quoted_attribute_value"); v != nil {
				value = getNodeContent(namedChildOfType(v, "attribute_value"), content)
			} else if v := namedChildOfType(c, "attribute_value"); v != nil {
				value = getNodeContent(v, content)
			}
			if _, dup := tag.attrs[name]; !dup {
				tag.order = append(tag.order, name)
			}
			tag.attrs[name] = strings.TrimSpace(value)
		}
	}
	return tag
}

// elementText joins the text nodes under an element.
func elementText(node *sitter.Node, content []byte) string {
	var parts []string
	traverseNode(node, func(n *sitter.Node) {
		if n.Type() == "text" {
			if t := strings.TrimSpace(getNodeContent(n, content)); t != "" {
				parts = append(parts, t)
			}
		}
	})
	return strings.Join(parts, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
