package models

import (
	"path/filepath"
	"slices"
	"strings"
)

type File struct {
	Path     string `json:"path"`
	Language string `json:"language"`
	Hash     string `json:"hash"`
	Size     int64  `json:"size"`
}

// Language detection by extension
var LanguageByExtension = map[string]string{
	".go":   "go",
	".py":   "python",
	".ts":   "typescript",
	".tsx":  "typescript",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".html": "html",
	".htm":  "html",
	".java": "java",
	".kt":   "kotlin",
}

func DetectLanguage(path string) string {
	return LanguageByExtension[strings.ToLower(filepath.Ext(path))]
}

type Tier string

const (
	TierFrontend Tier = "frontend"
	TierBackend  Tier = "backend"
	TierUnknown  Tier = "unknown"
)

var (
	frontendExts     = []string{".html", ".htm", ".js", ".jsx", ".ts", ".tsx", ".vue", ".mjs"}
	frontendSegments = []string{"frontend", "client", "static", "public"}
	frontendLangs    = []string{"javascript", "typescript", "html"}

	backendExts     = []string{".py", ".go", ".java", ".kt", ".rb"}
	backendSegments = []string{"backend", "server", "api", "routes"}
	backendLangs    = []string{"python", "go", "java", "kotlin"}
)

// TierOf classifies an entity as frontend or backend. Frontend indicators
// win when both match.
func TierOf(e *CodeEntity) Tier {
	if e == nil {
		return TierUnknown
	}
	path := strings.ToLower(filepath.ToSlash(e.FilePath))
	ext := filepath.Ext(path)
	segments := strings.Split(path, "/")

	if e.Type.IsHTML() || slices.Contains(frontendExts, ext) ||
		slices.Contains(frontendLangs, e.Language) || anySegment(segments, frontendSegments) {
		return TierFrontend
	}
	if e.Type == EntityRoute || slices.Contains(backendExts, ext) ||
		slices.Contains(backendLangs, e.Language) || anySegment(segments, backendSegments) {
		return TierBackend
	}
	return TierUnknown
}

func anySegment(segments, names []string) bool {
	for _, seg := range segments[:max(len(segments)-1, 0)] {
		if slices.Contains(names, seg) {
			return true
		}
	}
	return false
}
