package models

import (
	"fmt"
	"strings"
)

// documentCodeRunes bounds how much source Document includes.
const documentCodeRunes = 500

type EntityType string

const (
	EntityFunction      EntityType = "function"
	EntityClass         EntityType = "class"
	EntityRoute         EntityType = "route"
	EntityAPICall       EntityType = "api_call"
	EntityEventListener EntityType = "event_listener"
	EntityButton        EntityType = "button"
	EntityElement       EntityType = "element"
	EntityForm          EntityType = "form"
	EntityInput         EntityType = "input"
	EntityFile          EntityType = "file"
)

// IsHTML reports whether the type is produced from markup rather than code.
func (t EntityType) IsHTML() bool {
	switch t {
	case EntityButton, EntityElement, EntityForm, EntityInput:
		return true
	}
	return false
}

type APICall struct {
	Method   string `json:"method"`
	Endpoint string `json:"endpoint"`
}

type EventListener struct {
	Event   string `json:"event"`
	Handler string `json:"handler"`
	Element string `json:"element,omitempty"`
}

type Route struct {
	Path   string `json:"path"`
	Method string `json:"method"`
}

// CodeEntity is one addressable unit of code. Entities are never mutated
// after extraction; a re-index produces a fresh set.
type CodeEntity struct {
	ID        string     `json:"id"`
	Type      EntityType `json:"type"`
	Language  string     `json:"language"`
	FilePath  string     `json:"filePath"`
	StartLine int        `json:"startLine"`
	EndLine   int        `json:"endLine"`
	Name      string     `json:"name"`
	Context   string     `json:"context,omitempty"`
	Code      string     `json:"code,omitempty"`

	Relations      []string        `json:"relations,omitempty"`
	Imports        []string        `json:"imports,omitempty"`
	APICalls       []APICall       `json:"apiCalls,omitempty"`
	EventListeners []EventListener `json:"eventListeners,omitempty"`
	Routes         []Route         `json:"routes,omitempty"`

	// HTML attributes, set for button/element/form/input
	ElementID string   `json:"elementId,omitempty"`
	Classes   []string `json:"classes,omitempty"`
	Text      string   `json:"text,omitempty"`

	Embedding []float32 `json:"-"`
}

// EntityKey derives the stable identity of an entity.
func EntityKey(filePath, name string, startLine int) string {
	if name == "" {
		return fmt.Sprintf("%s::%d", filePath, startLine)
	}
	return fmt.Sprintf("%s::%s::%d", filePath, name, startLine)
}

// Key returns the entity ID, deriving it when unset.
func (e *CodeEntity) Key() string {
	if e.ID != "" {
		return e.ID
	}
	return EntityKey(e.FilePath, e.Name, e.StartLine)
}

// Document builds the text both the lexical and the semantic index see.
func (e *CodeEntity) Document() string {
	var b strings.Builder
	typ := string(e.Type)
	if typ == "" {
		typ = "code"
	}
	fmt.Fprintf(&b, "%s: %s\n", typ, e.Name)
	if e.Context != "" {
		fmt.Fprintf(&b, "Description: %s\n", e.Context)
	}
	if len(e.APICalls) > 0 {
		parts := make([]string, 0, 3)
		for _, ac := range firstN(e.APICalls, 3) {
			parts = append(parts, methodOrGet(ac.Method)+" "+ac.Endpoint)
		}
		fmt.Fprintf(&b, "API calls: %s\n", strings.Join(parts, ", "))
	}
	if len(e.EventListeners) > 0 {
		parts := make([]string, 0, 3)
		for _, el := range firstN(e.EventListeners, 3) {
			parts = append(parts, el.Event+" -> "+el.Handler)
		}
		fmt.Fprintf(&b, "Events: %s\n", strings.Join(parts, ", "))
	}
	if len(e.Routes) > 0 {
		parts := make([]string, 0, 3)
		for _, r := range firstN(e.Routes, 3) {
			parts = append(parts, methodOrGet(r.Method)+" "+r.Path)
		}
		fmt.Fprintf(&b, "Routes: %s\n", strings.Join(parts, ", "))
	}
	if e.ElementID != "" || e.Text != "" {
		fmt.Fprintf(&b, "Element: %s %s %s\n", e.ElementID, strings.Join(e.Classes, " "), e.Text)
	}
	fmt.Fprintf(&b, "\nCode:\n%s", truncateRunes(e.Code, documentCodeRunes))
	return b.String()
}

// Describe renders a one-line description such as
// "Function 'handleSearch' with 1 API call(s)".
func (e *CodeEntity) Describe() string {
	typ := string(e.Type)
	if typ == "" {
		typ = "code"
	}
	desc := fmt.Sprintf("%s%s '%s'", strings.ToUpper(typ[:1]), typ[1:], e.Name)
	if n := len(e.APICalls); n > 0 {
		desc += fmt.Sprintf(" with %d API call(s)", n)
	}
	if n := len(e.EventListeners); n > 0 {
		desc += fmt.Sprintf(" with %d event listener(s)", n)
	}
	if n := len(e.Routes); n > 0 {
		desc += fmt.Sprintf(" handling %d route(s)", n)
	}
	return desc
}

func methodOrGet(m string) string {
	if m == "" {
		return "GET"
	}
	return m
}

func firstN[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
