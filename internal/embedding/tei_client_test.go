package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTEIClient(t *testing.T) {
	client := NewTEIClient("http://localhost:8080/")
	assert.Equal(t, "http://localhost:8080/embed", client.endpoint)
	assert.NotNil(t, client.http)
	assert.Zero(t, client.Dimensions())
}

// echoTEI returns one 2-dim vector per input, {i, len(inputs)}.
func echoTEI(t *testing.T, requests *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/embed", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req teiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Truncate)
		out := make([][]float32, len(req.Inputs))
		for i := range req.Inputs {
			out[i] = []float32{float32(i), float32(len(req.Inputs))}
		}
		json.NewEncoder(w).Encode(out)
	}))
}

func TestEncodeBatch_Chunks(t *testing.T) {
	var requests atomic.Int32
	server := echoTEI(t, &requests)
	defer server.Close()

	client := NewTEIClient(server.URL)
	texts := make([]string, teiBatchSize+5)
	for i := range texts {
		texts[i] = "text"
	}
	vecs, err := client.EncodeBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	assert.Equal(t, int32(2), requests.Load())
	assert.Equal(t, []float32{0, teiBatchSize}, vecs[0])
	assert.Equal(t, []float32{4, 5}, vecs[len(vecs)-1])
	assert.Equal(t, 2, client.Dimensions())
}

func TestEncode_Single(t *testing.T) {
	var requests atomic.Int32
	server := echoTEI(t, &requests)
	defer server.Close()

	vec, err := NewTEIClient(server.URL).Encode(context.Background(), "where is search")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, vec)
}

func TestEncodeBatch_EmptyInput(t *testing.T) {
	var requests atomic.Int32
	server := echoTEI(t, &requests)
	defer server.Close()

	vecs, err := NewTEIClient(server.URL).EncodeBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
	assert.Zero(t, requests.Load())
}

func TestTEIClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model overloaded", http.StatusInternalServerError)
			},
			want: "tei embed: status 500: model overloaded",
		},
		{
			name: "bad json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("invalid json"))
			},
			want: "tei embed: decode response",
		},
		{
			name: "count mismatch",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode([][]float32{{1}})
			},
			want: "got 1 embeddings for 2 inputs",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := NewTEIClient(server.URL).EncodeBatch(context.Background(), []string{"a", "b"})
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestTEIClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewTEIClient(server.URL).Encode(ctx, "text")
	assert.ErrorIs(t, err, context.Canceled)
}
