package index

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"

	"github.com/dpolishuk/codeflow/internal/errors"
	"github.com/dpolishuk/codeflow/internal/logging"
	"github.com/dpolishuk/codeflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keywordEncoder embeds text as presence flags for a fixed vocabulary.
type keywordEncoder struct {
	vocab []string
	err   error
	calls int
}

func (k *keywordEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	v, err := k.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (k *keywordEncoder) EncodeBatch(_ context.Context, texts []string) ([][]float32, error) {
	k.calls++
	if k.err != nil {
		return nil, k.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, len(k.vocab))
		for j, w := range k.vocab {
			if strings.Contains(strings.ToLower(t), w) {
				v[j] = 1
			}
		}
		out[i] = v
	}
	return out, nil
}

func (k *keywordEncoder) Dimensions() int { return len(k.vocab) }

func sample() []models.CodeEntity {
	return []models.CodeEntity{
		{Type: models.EntityFunction, Language: "python", FilePath: "backend/routes.py", StartLine: 20, Name: "search_handler",
			Context: "Run a full text search", Routes: []models.Route{{Path: "/api/search", Method: "POST"}}},
		{Type: models.EntityFunction, Language: "python", FilePath: "backend/auth.py", StartLine: 4, Name: "login",
			Context: "Authenticate a user"},
		{Type: models.EntityButton, Language: "html", FilePath: "static/index.html", StartLine: 12, Name: "search-btn",
			ElementID: "search-btn", Text: "Search"},
	}
}

func ptrs(in []models.CodeEntity) []*models.CodeEntity {
	out := make([]*models.CodeEntity, len(in))
	for i := range in {
		out[i] = &in[i]
	}
	return out
}

func TestNewSnapshot(t *testing.T) {
	ents := sample()
	ents = append(ents, ents[0]) // duplicate id
	s := NewSnapshot("/repo", ptrs(ents))

	assert.Equal(t, 3, s.Len())
	assert.NotEmpty(t, s.ID)
	assert.Len(t, s.Fingerprint, 16)
	assert.False(t, s.HasEmbeddings())

	e, ok := s.Get("backend/routes.py::search_handler::20")
	require.True(t, ok)
	assert.Equal(t, "search_handler", e.Name)
	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestSnapshot_FingerprintTracksContent(t *testing.T) {
	a := NewSnapshot("", ptrs(sample()))
	b := NewSnapshot("", ptrs(sample()))
	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	assert.NotEqual(t, a.ID, b.ID)

	changed := sample()
	changed[1].Context = "Sign a user in"
	c := NewSnapshot("", ptrs(changed))
	assert.NotEqual(t, a.Fingerprint, c.Fingerprint)
}

func TestSnapshot_Lexical(t *testing.T) {
	s := NewSnapshot("", ptrs(sample()))
	hits := s.Lexical("authenticate", 5)
	require.Len(t, hits, 1)
	assert.Equal(t, "login", hits[0].Entity.Name)
	assert.Empty(t, s.Lexical("nothingmatches", 5))
}

func TestNilSnapshot(t *testing.T) {
	var s *Snapshot
	assert.True(t, s.Empty())
	assert.Equal(t, Status{}, s.Status())
}

func TestManager_RebuildWithEmbeddings(t *testing.T) {
	enc := &keywordEncoder{vocab: []string{"search", "login", "button"}}
	m := NewManager(enc, logging.Discard())
	assert.Nil(t, m.Current())

	s, err := m.Rebuild(context.Background(), "/repo", sample())
	require.NoError(t, err)
	assert.Same(t, s, m.Current())
	assert.True(t, s.HasEmbeddings())
	assert.Equal(t, 3, s.Dimensions())

	vec, err := enc.Encode(context.Background(), "login")
	require.NoError(t, err)
	hits := s.Semantic(vec, 1)
	require.Len(t, hits, 1)
	assert.Equal(t, "login", hits[0].Entity.Name)

	st := s.Status()
	assert.True(t, st.Indexed)
	assert.Equal(t, 3, st.Embedded)
	assert.Equal(t, "/repo", st.Root)
}

func TestManager_RebuildDoesNotAliasInput(t *testing.T) {
	in := sample()
	m := NewManager(&keywordEncoder{vocab: []string{"search"}}, logging.Discard())
	s, err := m.Rebuild(context.Background(), "", in)
	require.NoError(t, err)

	in[0].Name = "mutated"
	assert.Nil(t, in[0].Embedding)
	e, _ := s.Get("backend/routes.py::search_handler::20")
	assert.Equal(t, "search_handler", e.Name)
}

func TestManager_EncodingFailureDegrades(t *testing.T) {
	m := NewManager(&keywordEncoder{err: stderrors.New("tei down")}, logging.Discard())
	s, err := m.Rebuild(context.Background(), "", sample())
	require.NoError(t, err)
	assert.False(t, s.HasEmbeddings())
	assert.Equal(t, 3, s.Len())
}

func TestManager_CancelledRebuildKeepsPrevious(t *testing.T) {
	m := NewManager(nil, logging.Discard())
	first, err := m.Rebuild(context.Background(), "", sample())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Rebuild(ctx, "", sample()[:1])
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.IndexFailure))
	assert.Same(t, first, m.Current())
}

func TestManager_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	m := NewManager(nil, logging.Discard())
	_, err := m.Rebuild(context.Background(), "", sample())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = m.Rebuild(context.Background(), "", sample())
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s := m.Current()
				assert.Equal(t, 3, s.Len())
				assert.Len(t, s.All(), 3)
			}
		}()
	}
	wg.Wait()
}
