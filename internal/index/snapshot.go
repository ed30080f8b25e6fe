// Package index holds the immutable searchable snapshot of a codebase and
// the manager that swaps snapshots atomically.
package index

import (
	"time"

	"github.com/google/uuid"

	"github.com/dpolishuk/codeflow/internal/fingerprint"
	"github.com/dpolishuk/codeflow/internal/lexical"
	"github.com/dpolishuk/codeflow/internal/models"
	"github.com/dpolishuk/codeflow/internal/semantic"
)

// Snapshot is one fully built index. Nothing in it changes after
// NewSnapshot returns.
type Snapshot struct {
	ID          string
	Root        string
	Fingerprint string
	CreatedAt   time.Time

	entities []*models.CodeEntity
	byID     map[string]*models.CodeEntity
	lexical  *lexical.Index
	semantic *semantic.Index
	embedded int
}

// NewSnapshot indexes entities for lexical and semantic lookup. Entities
// without an ID get their canonical key.
func NewSnapshot(root string, entities []*models.CodeEntity) *Snapshot {
	s := &Snapshot{
		ID:        uuid.New().String(),
		Root:      root,
		CreatedAt: time.Now().UTC(),
		entities:  make([]*models.CodeEntity, 0, len(entities)),
		byID:      make(map[string]*models.CodeEntity, len(entities)),
	}

	docs := make([]string, 0, len(entities))
	vectors := make([][]float32, 0, len(entities))
	parts := make([]uint64, 0, len(entities))
	for _, e := range entities {
		if e == nil {
			continue
		}
		if e.ID == "" {
			e.ID = e.Key()
		}
		if _, dup := s.byID[e.ID]; dup {
			continue
		}
		s.byID[e.ID] = e
		s.entities = append(s.entities, e)

		doc := e.Document()
		docs = append(docs, doc)
		vectors = append(vectors, e.Embedding)
		if len(e.Embedding) > 0 {
			s.embedded++
		}
		h, _ := fingerprint.Hash([]byte(e.ID + "\x00" + doc))
		parts = append(parts, h)
	}

	s.lexical = lexical.Build(docs)
	s.semantic = semantic.Build(vectors)
	s.Fingerprint = fingerprint.Combine(parts)
	return s
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entities)
}

// Empty is true for a nil snapshot too.
func (s *Snapshot) Empty() bool {
	return s.Len() == 0
}

// All returns the entities in index order. Callers must not modify them.
func (s *Snapshot) All() []*models.CodeEntity {
	return s.entities
}

func (s *Snapshot) Get(id string) (*models.CodeEntity, bool) {
	e, ok := s.byID[id]
	return e, ok
}

// HasEmbeddings reports whether semantic search can return anything.
func (s *Snapshot) HasEmbeddings() bool {
	return !s.semantic.Empty()
}

func (s *Snapshot) Dimensions() int {
	return s.semantic.Dimensions()
}

// Lexical runs BM25 over the entity documents.
func (s *Snapshot) Lexical(text string, topK int) []models.Hit {
	matches := s.lexical.Search(text, topK)
	hits := make([]models.Hit, len(matches))
	for i, m := range matches {
		hits[i] = models.Hit{Entity: s.entities[m.Doc], Score: m.Score}
	}
	return hits
}

// Semantic ranks embedded entities by cosine similarity to vec.
func (s *Snapshot) Semantic(vec []float32, topK int) []models.Hit {
	matches := s.semantic.Search(vec, topK)
	hits := make([]models.Hit, len(matches))
	for i, m := range matches {
		hits[i] = models.Hit{Entity: s.entities[m.Doc], Score: m.Score}
	}
	return hits
}

// Status summarizes a snapshot for the index status endpoint.
type Status struct {
	Indexed     bool      `json:"indexed"`
	SnapshotID  string    `json:"snapshotId,omitempty"`
	Root        string    `json:"root,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Entities    int       `json:"entities"`
	Embedded    int       `json:"embedded"`
	Dimensions  int       `json:"dimensions"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
}

func (s *Snapshot) Status() Status {
	if s == nil {
		return Status{}
	}
	return Status{
		Indexed:     !s.Empty(),
		SnapshotID:  s.ID,
		Root:        s.Root,
		Fingerprint: s.Fingerprint,
		Entities:    len(s.entities),
		Embedded:    s.embedded,
		Dimensions:  s.Dimensions(),
		CreatedAt:   s.CreatedAt,
	}
}

// RestoreSnapshot rebuilds a persisted snapshot under its original identity.
func RestoreSnapshot(id, root string, createdAt time.Time, entities []*models.CodeEntity) *Snapshot {
	s := NewSnapshot(root, entities)
	if id != "" {
		s.ID = id
	}
	if !createdAt.IsZero() {
		s.CreatedAt = createdAt.UTC()
	}
	return s
}
