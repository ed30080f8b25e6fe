// Package indexer turns source files into code entities and walks a
// directory tree into an index result.
package indexer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dpolishuk/codeflow/internal/models"
	"github.com/dpolishuk/codeflow/pkg/treesitter"
	sitter "github.com/smacker/go-tree-sitter"
)

// maxCodeLen bounds the source text kept on each entity.
const maxCodeLen = 4000

// Extractor wraps the tree-sitter parser for code entity extraction. It is
// not safe for concurrent use.
type Extractor struct {
	parser *treesitter.Parser
}

func NewExtractor() *Extractor {
	return &Extractor{
		parser: treesitter.NewParser(),
	}
}

// Close releases resources used by the extractor
func (e *Extractor) Close() {
	e.parser.Close()
}

// Extract parses content and returns the entities it defines. A file that
// parses but yields nothing is represented by one file entity.
func (e *Extractor) Extract(ctx context.Context, content []byte, language string, filePath string) ([]models.CodeEntity, error) {
	tree, err := e.parser.Parse(ctx, content, treesitter.GrammarFor(language, filePath))
	if err != nil {
		return nil, fmt.Errorf("failed to parse code: %w", err)
	}
	defer tree.Close()

	f := &fileScope{path: filePath, language: language, content: content}
	root := tree.RootNode()

	switch language {
	case "go":
		e.extractGo(f, root)
	case "python":
		e.extractPython(f, root)
	case "typescript", "javascript":
		e.extractScript(f, root)
	case "java":
		e.extractJava(f, root)
	case "kotlin":
		e.extractKotlin(f, root)
	case "html":
		e.extractHTML(ctx, f, root)
	default:
		return nil, fmt.Errorf("unsupported language: %s", language)
	}

	if len(f.entities) == 0 {
		f.entities = append(f.entities, fileEntity(f, root))
	}
	for i := range f.entities {
		ent := &f.entities[i]
		ent.ID = models.EntityKey(ent.FilePath, ent.Name, ent.StartLine)
	}
	return f.entities, nil
}

// fileScope accumulates the entities of one file.
type fileScope struct {
	path     string
	language string
	content  []byte
	imports  []string
	entities []models.CodeEntity

	// lineOffset shifts line numbers of embedded sources such as inline
	// <script> blocks.
	lineOffset int
}

func (f *fileScope) add(ent models.CodeEntity) {
	ent.FilePath = f.path
	ent.StartLine += f.lineOffset
	ent.EndLine += f.lineOffset
	if ent.Language == "" {
		ent.Language = f.language
	}
	if len(ent.Code) > maxCodeLen {
		ent.Code = ent.Code[:maxCodeLen]
	}
	f.entities = append(f.entities, ent)
}

// attachImports gives every entity the file-level import list.
func (f *fileScope) attachImports() {
	if len(f.imports) == 0 {
		return
	}
	for i := range f.entities {
		f.entities[i].Imports = f.imports
	}
}

func fileEntity(f *fileScope, root *sitter.Node) models.CodeEntity {
	end := 1
	if root != nil {
		end = endLine(root)
	}
	return models.CodeEntity{
		Type:      models.EntityFile,
		Language:  f.language,
		FilePath:  f.path,
		StartLine: 1,
		EndLine:   end,
		Name:      filepath.Base(f.path),
		Context:   fmt.Sprintf("%s file %s", f.language, filepath.Base(f.path)),
		Code:      truncate(string(f.content), maxCodeLen),
		Imports:   f.imports,
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
