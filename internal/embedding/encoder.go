// Package embedding talks to text-embedding services.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Encoder turns text into dense vectors. Dimensions is 0 until the first
// successful call reveals the model's width.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

const (
	ProviderTEI    = "tei"
	ProviderOllama = "ollama"
	ProviderNone   = "none"
)

// Options selects and configures an encoder.
type Options struct {
	Provider    string
	TEIURL      string
	OllamaURL   string
	OllamaModel string
}

// New builds the encoder for opts.Provider. ProviderNone returns nil, which
// callers treat as "semantic search disabled".
func New(opts Options, logger *slog.Logger) (Encoder, error) {
	switch strings.ToLower(opts.Provider) {
	case "", ProviderTEI:
		return NewTEIClient(opts.TEIURL), nil
	case ProviderOllama:
		return NewOllamaClient(opts.OllamaURL, opts.OllamaModel), nil
	case ProviderNone:
		if logger != nil {
			logger.Info("embedding disabled, semantic search off")
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", opts.Provider)
	}
}

func encodeOne(ctx context.Context, e Encoder, text string) ([]float32, error) {
	vecs, err := e.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}
