// Package search ranks timeline events against free-text queries by mixing
// keyword overlap with vector similarity.
package search

import (
	"context"
	"fmt"
	"time"
)

// Provider identifies an embedding backend.
type Provider string

const (
	// ProviderHash is the deterministic hashed-token embedder. It needs no
	// server and is what tests use.
	ProviderHash Provider = "hash"
	// ProviderOllama asks an Ollama server's /api/embed endpoint.
	ProviderOllama Provider = "ollama"
)

// DefaultEmbeddingDim is the hash embedder's default vector size.
const DefaultEmbeddingDim = 384

// DefaultOllamaModel is the embedding model used when none is configured.
const DefaultOllamaModel = "nomic-embed-text"

// EmbeddingConfig captures embedder selection.
type EmbeddingConfig struct {
	Provider Provider
	Model    string        // ollama only
	Dim      int           // hash only
	URL      string        // ollama only; empty defers to OLLAMA_HOST
	Timeout  time.Duration // ollama only
}

// Normalized fills defaults.
func (c EmbeddingConfig) Normalized() EmbeddingConfig {
	if c.Provider == "" {
		c.Provider = ProviderHash
	}
	if c.Dim <= 0 {
		c.Dim = DefaultEmbeddingDim
	}
	if c.Provider == ProviderOllama && c.Model == "" {
		c.Model = DefaultOllamaModel
	}
	return c
}

// Embedder produces fixed-size dense vectors for text inputs.
type Embedder interface {
	Provider() Provider
	Dim() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// NewEmbedder constructs the Embedder for cfg.
func NewEmbedder(cfg EmbeddingConfig) (Embedder, error) {
	cfg = cfg.Normalized()
	switch cfg.Provider {
	case ProviderHash:
		return NewHashEmbedder(cfg.Dim), nil
	case ProviderOllama:
		return NewOllamaEmbedder(cfg.URL, cfg.Model, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown embedder %q; expected %q or %q", cfg.Provider, ProviderHash, ProviderOllama)
	}
}
