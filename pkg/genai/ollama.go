package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "llama3.2"
	// DefaultURL is the default Ollama API endpoint.
	DefaultURL = "http://127.0.0.1:11434"
)

// OllamaBackend talks to an Ollama server's chat endpoint.
type OllamaBackend struct {
	client *api.Client
	model  string
}

// NewOllamaBackend creates a backend for the server at rawURL. An empty
// rawURL defers to OLLAMA_HOST via api.ClientFromEnvironment.
func NewOllamaBackend(rawURL, model string, timeout time.Duration) (*OllamaBackend, error) {
	if model == "" {
		model = DefaultModel
	}

	var client *api.Client
	if rawURL == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		client = c
	} else {
		base, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama url %q: %w", rawURL, err)
		}
		client = api.NewClient(base, &http.Client{Timeout: timeout})
	}

	return &OllamaBackend{client: client, model: model}, nil
}

// Model returns the model name.
func (b *OllamaBackend) Model() string { return b.model }

// Complete sends one non-streaming chat request.
func (b *OllamaBackend) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]api.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, api.Message{Role: m.Role, Content: m.Content})
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    b.model,
		Messages: messages,
		Stream:   &stream,
	}
	if req.Schema != nil {
		chatReq.Format = req.Schema
	}

	var out strings.Builder
	err := b.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return out.String(), nil
}

// CheckModel verifies the configured model is pulled on the server.
func (b *OllamaBackend) CheckModel(ctx context.Context) error {
	list, err := b.client.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	for _, m := range list.Models {
		if m.Name == b.model || strings.TrimSuffix(m.Name, ":latest") == b.model {
			return nil
		}
	}
	return fmt.Errorf("model '%s' not found - run: ollama pull %s", b.model, b.model)
}

// ErrNoImages is returned by NoImages.
var ErrNoImages = errors.New("image generation not available")

// NoImages is the ImageSource used when no image model is configured; every
// event falls back to a placeholder picture.
type NoImages struct{}

func (NoImages) EventImage(context.Context, string) (string, error) {
	return "", ErrNoImages
}
