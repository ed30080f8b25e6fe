package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

const DefaultOllamaModel = "nomic-embed-text"

// OllamaClient embeds through Ollama's batch /api/embed endpoint.
type OllamaClient struct {
	endpoint string
	model    string
	http     *http.Client
	dims     atomic.Int64
}

func NewOllamaClient(baseURL, model string) *OllamaClient {
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaClient{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/embed",
		model:    model,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (c *OllamaClient) Encode(ctx context.Context, text string) ([]float32, error) {
	return encodeOne(ctx, c, text)
}

func (c *OllamaClient) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	var result ollamaEmbedResponse
	if err := postJSON(ctx, c.http, "ollama embed", c.endpoint, ollamaEmbedRequest{Model: c.model, Input: texts}, &result); err != nil {
		return nil, err
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d embeddings for %d inputs", len(result.Embeddings), len(texts))
	}
	c.dims.Store(int64(len(result.Embeddings[0])))
	return result.Embeddings, nil
}

func (c *OllamaClient) Dimensions() int {
	return int(c.dims.Load())
}
