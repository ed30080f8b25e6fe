package graph

import (
	"testing"

	"github.com/dpolishuk/codeflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectEdges(t *testing.T) {
	button, handler, call, backend, route := searchFlow()
	all := []*models.CodeEntity{button, handler, call, backend, route}

	edges := CollectEdges(all, newTestBuilder())
	require.NotEmpty(t, edges)

	type pair struct {
		src, dst string
		t        models.RelationType
	}
	got := make(map[pair]int)
	for _, e := range edges {
		got[pair{e.SourceID, e.TargetID, e.Type}]++
	}
	for p, n := range got {
		assert.Equal(t, 1, n, "duplicate edge %v", p)
	}

	assert.Contains(t, got, pair{button.ID, handler.ID, models.RelHandlesEvent})
	assert.Contains(t, got, pair{call.ID, backend.ID, models.RelHandlesEndpoint})
	// calls_route is discovered from the route but points at it
	assert.Contains(t, got, pair{handler.ID, route.ID, models.RelCallsRoute})
	assert.NotContains(t, got, pair{route.ID, handler.ID, models.RelCallsRoute})
}

func TestCollectEdges_SkipsNil(t *testing.T) {
	assert.Empty(t, CollectEdges([]*models.CodeEntity{nil}, newTestBuilder()))
}
