// Package genai generates timelines, debates and assistant replies with a
// local language model.
//
// A Backend turns a Request into text. Service layers the application rules
// on top: the admin pause check before a call, usage recording after a
// successful one, a circuit breaker around the backend, response cleanup and
// the fallback texts shown when the model is unavailable.
package genai

import (
	"context"
	"encoding/json"
)

// Message is one turn of a conversation sent to the backend.
type Message struct {
	// Role is "user" or "assistant".
	Role    string
	Content string
}

// Request is a single completion request.
type Request struct {
	System   string
	Messages []Message
	// Schema constrains the reply to JSON matching this JSON schema.
	// Nil means free text.
	Schema json.RawMessage
}

// Backend produces a completion for a request.
type Backend interface {
	Complete(ctx context.Context, req Request) (string, error)
	// Model names the model used, for usage logs.
	Model() string
}

// BackendFunc adapts a function into a Backend.
type BackendFunc struct {
	Name string
	Fn   func(ctx context.Context, req Request) (string, error)
}

func (b BackendFunc) Complete(ctx context.Context, req Request) (string, error) {
	return b.Fn(ctx, req)
}

func (b BackendFunc) Model() string { return b.Name }

// ImageSource produces an illustration URL (http or data:) for an image
// prompt.
type ImageSource interface {
	EventImage(ctx context.Context, prompt string) (string, error)
}
