package models

import "time"

// Repository records one scanned source tree, local or cloned.
type Repository struct {
	ID            string    `json:"id"`
	URL           string    `json:"url,omitempty"`
	Path          string    `json:"path"`
	Name          string    `json:"name"`
	DefaultBranch string    `json:"defaultBranch,omitempty"`
	LastIndexed   time.Time `json:"lastIndexed"`
	Status        string    `json:"status"` // pending, indexing, ready, error
	FilesCount    int       `json:"filesCount"`
	EntitiesCount int       `json:"entitiesCount"`
}

type ScanInput struct {
	Path   string `json:"path"`
	URL    string `json:"url"`
	Branch string `json:"branch"`
}

type IndexResult struct {
	RepoID         string
	Root           string
	FilesProcessed int
	EntitiesFound  int
	Errors         []string
	Files          []*File
	Entities       []CodeEntity
}
