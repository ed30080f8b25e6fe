package indexer

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// traverseNode visits node and all its named descendants depth-first.
func traverseNode(node *sitter.Node, callback func(*sitter.Node)) {
	if node == nil {
		return
	}
	callback(node)
	for i := 0; i < int(node.NamedChildCount()); i++ {
		traverseNode(node.NamedChild(i), callback)
	}
}

func getNodeContent(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	return node.Content(content)
}

func startLine(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}

func endLine(node *sitter.Node) int {
	return int(node.EndPoint().Row) + 1
}

// namedChildOfType returns the first named child of the given type.
func namedChildOfType(node *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if c := node.NamedChild(i); c != nil && c.Type() == typ {
			return c
		}
	}
	return nil
}

// hasAncestor reports whether any ancestor of node has one of types.
func hasAncestor(node *sitter.Node, types ...string) bool {
	for p := node.Parent(); p != nil; p = p.Parent() {
		for _, t := range types {
			if p.Type() == t {
				return true
			}
		}
	}
	return false
}

// getPrecedingComment extracts the comment immediately preceding node.
func getPrecedingComment(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	prev := node.PrevSibling()
	if prev == nil {
		return ""
	}

	switch prev.Type() {
	case "comment", "line_comment", "block_comment", "multiline_comment":
		comment := getNodeContent(prev, content)
		comment = strings.TrimPrefix(comment, "//")
		comment = strings.TrimPrefix(comment, "/**")
		comment = strings.TrimPrefix(comment, "/*")
		comment = strings.TrimSuffix(comment, "*/")
		comment = strings.TrimPrefix(comment, "#")
		return strings.TrimSpace(comment)
	}
	return ""
}

// getPythonDocstring returns the leading string literal of a def or class
// body.
func getPythonDocstring(node *sitter.Node, content []byte) string {
	body := node.ChildByFieldName("body")
	if body == nil || body.Type() != "block" || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first == nil || first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	expr := first.NamedChild(0)
	if expr == nil || expr.Type() != "string" {
		return ""
	}
	doc := getNodeContent(expr, content)
	doc = strings.Trim(doc, "\"'")
	return strings.TrimSpace(doc)
}

// extractCalls lists the distinct callee expressions inside node.
func extractCalls(node *sitter.Node, content []byte) []string {
	var calls []string
	seen := make(map[string]bool)
	traverseNode(node, func(n *sitter.Node) {
		switch n.Type() {
		case "call_expression", "call", "method_invocation":
		default:
			return
		}
		fn := n.ChildByFieldName("function")
		if fn == nil {
			fn = n.ChildByFieldName("name")
		}
		if fn == nil && n.NamedChildCount() > 0 {
			// kotlin call_expression has no field names
			fn = n.NamedChild(0)
		}
		name := getNodeContent(fn, content)
		if name != "" && !seen[name] {
			seen[name] = true
			calls = append(calls, name)
		}
	})
	return calls
}

// signatureLine returns the source up to node's body, or its first line.
func signatureLine(node *sitter.Node, content []byte, bodyFields ...string) string {
	for _, f := range bodyFields {
		if body := node.ChildByFieldName(f); body != nil && body.StartByte() > node.StartByte() {
			return strings.TrimSpace(string(content[node.StartByte():body.StartByte()]))
		}
	}
	full := getNodeContent(node, content)
	if i := strings.IndexByte(full, '\n'); i >= 0 {
		full = full[:i]
	}
	return strings.TrimSpace(full)
}

// unquote strips one layer of matching quotes or backticks. Template
// literals keep only their static prefix.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	switch s[0] {
	case '"', '\'':
		if s[len(s)-1] == s[0] {
			return s[1 : len(s)-1]
		}
	case '`':
		if s[len(s)-1] == '`' {
			s = s[1 : len(s)-1]
			if i := strings.Index(s, "${"); i >= 0 {
				s = s[:i]
			}
			return s
		}
	}
	return s
}

func isStringNode(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "string", "template_string", "interpreted_string_literal", "raw_string_literal", "string_literal":
		return true
	}
	return false
}
