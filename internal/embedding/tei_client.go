package embedding

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"
)

// teiBatchSize keeps requests under TEI's default max-client-batch-size.
const teiBatchSize = 32

// TEIClient embeds through a text-embeddings-inference server's /embed
// endpoint.
type TEIClient struct {
	endpoint string
	http     *http.Client
	dims     atomic.Int64
}

func NewTEIClient(baseURL string) *TEIClient {
	return &TEIClient{
		endpoint: strings.TrimRight(baseURL, "/") + "/embed",
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

type teiRequest struct {
	Inputs   []string `json:"inputs"`
	Truncate bool     `json:"truncate"`
}

func (c *TEIClient) Encode(ctx context.Context, text string) ([]float32, error) {
	return encodeOne(ctx, c, text)
}

// EncodeBatch embeds texts in chunks of teiBatchSize, preserving order.
func (c *TEIClient) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for chunk := range slices.Chunk(texts, teiBatchSize) {
		var vecs [][]float32
		if err := postJSON(ctx, c.http, "tei embed", c.endpoint, teiRequest{Inputs: chunk, Truncate: true}, &vecs); err != nil {
			return nil, err
		}
		if len(vecs) != len(chunk) {
			return nil, fmt.Errorf("tei embed: got %d embeddings for %d inputs", len(vecs), len(chunk))
		}
		c.dims.Store(int64(len(vecs[0])))
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *TEIClient) Dimensions() int {
	return int(c.dims.Load())
}
