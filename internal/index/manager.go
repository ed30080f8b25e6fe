package index

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dpolishuk/codeflow/internal/embedding"
	"github.com/dpolishuk/codeflow/internal/errors"
	"github.com/dpolishuk/codeflow/internal/logging"
	"github.com/dpolishuk/codeflow/internal/models"
)

// Manager owns the live snapshot. Readers call Current and keep using the
// snapshot they got; Rebuild builds a replacement off to the side and
// swaps it in whole.
type Manager struct {
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex // serializes rebuilds
	encoder embedding.Encoder
	logger  *slog.Logger
}

// NewManager creates an empty manager. encoder may be nil, in which case
// snapshots carry no embeddings.
func NewManager(encoder embedding.Encoder, logger *slog.Logger) *Manager {
	return &Manager{encoder: encoder, logger: logging.OrDefault(logger)}
}

// Current returns the live snapshot, or nil before the first build.
func (m *Manager) Current() *Snapshot {
	return m.current.Load()
}

// Swap installs s and returns the snapshot it replaced.
func (m *Manager) Swap(s *Snapshot) *Snapshot {
	return m.current.Swap(s)
}

// Encoder returns the query encoder, or nil when semantic search is off.
func (m *Manager) Encoder() embedding.Encoder {
	return m.encoder
}

// Rebuild embeds the entities, builds a new snapshot and swaps it in. An
// embedding failure degrades to a lexical-only snapshot. A cancelled
// context leaves the previous snapshot live and returns INDEX_FAILURE.
func (m *Manager) Rebuild(ctx context.Context, root string, entities []models.CodeEntity) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	owned := make([]*models.CodeEntity, len(entities))
	for i := range entities {
		e := entities[i]
		owned[i] = &e
	}

	if m.encoder != nil {
		if err := m.embed(ctx, owned); err != nil {
			if ctx.Err() != nil {
				return nil, errors.Wrap(errors.IndexFailure, "rebuild cancelled", ctx.Err())
			}
			m.logger.Warn("embedding failed, snapshot is lexical only",
				"code", errors.EncodingFailure, "err", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.IndexFailure, "rebuild cancelled", err)
	}

	s := NewSnapshot(root, owned)
	prev := m.Swap(s)
	attrs := []any{"snapshot", s.ID, "entities", s.Len(), "embedded", s.embedded, "took", time.Since(start)}
	if prev != nil {
		attrs = append(attrs, "replaced", prev.ID)
	}
	m.logger.Info("index rebuilt", attrs...)
	return s, nil
}

// embed fills Embedding on entities that lack one. It writes only on
// success, so a failure leaves every entity untouched.
func (m *Manager) embed(ctx context.Context, entities []*models.CodeEntity) error {
	var pending []*models.CodeEntity
	var texts []string
	for _, e := range entities {
		if len(e.Embedding) > 0 {
			continue
		}
		pending = append(pending, e)
		texts = append(texts, e.Document())
	}
	if len(texts) == 0 {
		return nil
	}

	vecs, err := m.encoder.EncodeBatch(ctx, texts)
	if err != nil {
		return err
	}
	if len(vecs) != len(pending) {
		return errors.New(errors.EncodingFailure, "embedding count does not match entity count")
	}
	for i, e := range pending {
		e.Embedding = vecs[i]
	}
	return nil
}
