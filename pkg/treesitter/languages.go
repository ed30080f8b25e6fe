// Package treesitter maps codeflow language names to tree-sitter grammars.
package treesitter

import (
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// grammars is keyed by grammar name. "tsx" is a grammar only; its files
// report the "typescript" language.
var grammars = map[string]func() *sitter.Language{
	"go":         golang.GetLanguage,
	"python":     python.GetLanguage,
	"typescript": typescript.GetLanguage,
	"tsx":        tsx.GetLanguage,
	"javascript": javascript.GetLanguage,
	"java":       java.GetLanguage,
	"kotlin":     kotlin.GetLanguage,
	"html":       html.GetLanguage,
}

// GetLanguage returns the grammar, or nil when name is unknown.
func GetLanguage(name string) *sitter.Language {
	if get, ok := grammars[name]; ok {
		return get()
	}
	return nil
}

// SupportedLanguages lists the grammar names in sorted order.
func SupportedLanguages() []string {
	names := make([]string, 0, len(grammars))
	for name := range grammars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
