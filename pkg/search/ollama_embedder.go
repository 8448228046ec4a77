package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/vanderheijden86/curiousdates/pkg/debug"
)

// OllamaEmbedder calls an Ollama server's embed endpoint. The dimension is
// learned from the first response.
type OllamaEmbedder struct {
	client *api.Client
	model  string
	dim    int
}

// NewOllamaEmbedder creates an embedder for the server at rawURL. An empty
// rawURL defers to OLLAMA_HOST.
func NewOllamaEmbedder(rawURL, model string, timeout time.Duration) (*OllamaEmbedder, error) {
	if model == "" {
		model = DefaultOllamaModel
	}
	if rawURL == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return &OllamaEmbedder{client: c, model: model}, nil
	}
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", rawURL, err)
	}
	return &OllamaEmbedder{client: api.NewClient(base, &http.Client{Timeout: timeout}), model: model}, nil
}

func (o *OllamaEmbedder) Provider() Provider { return ProviderOllama }

// Dim is 0 until the first successful Embed.
func (o *OllamaEmbedder) Dim() int { return o.dim }

// Model returns the embedding model name.
func (o *OllamaEmbedder) Model() string { return o.model }

func (o *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := o.client.Embed(ctx, &api.EmbedRequest{Model: o.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}
	for _, v := range resp.Embeddings {
		if o.dim == 0 {
			o.dim = len(v)
		}
		if len(v) != o.dim {
			return nil, fmt.Errorf("ollama embed: dimension changed from %d to %d", o.dim, len(v))
		}
		normalize(v)
	}
	debug.Log("ollama embed: %d texts, dim %d", len(texts), o.dim)
	return resp.Embeddings, nil
}
