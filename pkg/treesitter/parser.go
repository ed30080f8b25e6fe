package treesitter

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Parser reuses one tree-sitter parser across grammars. It is not safe for
// concurrent use; give each goroutine its own.
type Parser struct {
	parser  *sitter.Parser
	current string
}

func NewParser() *Parser {
	return &Parser{parser: sitter.NewParser()}
}

// GrammarFor picks the grammar for a file of the given language. TSX
// sources report "typescript" but need the tsx grammar.
func GrammarFor(language, path string) string {
	if language == "typescript" && strings.EqualFold(filepath.Ext(path), ".tsx") {
		return "tsx"
	}
	return language
}

// Parse builds a syntax tree for content with the named grammar. The
// caller closes the tree. A cancelled ctx aborts the parse.
func (p *Parser) Parse(ctx context.Context, content []byte, grammar string) (*sitter.Tree, error) {
	if grammar != p.current {
		lang := GetLanguage(grammar)
		if lang == nil {
			return nil, fmt.Errorf("unsupported language: %s", grammar)
		}
		p.parser.SetLanguage(lang)
		p.current = grammar
	}

	tree, err := p.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s source: %w", grammar, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s source: no tree", grammar)
	}
	return tree, nil
}

func (p *Parser) Close() {
	p.parser.Close()
}
