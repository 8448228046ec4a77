package genai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const (
	// DefaultImageSize is the requested illustration size.
	DefaultImageSize = "512x512"

	imagesPath = "/v1/images/generations"
	// maxImageResponse bounds the body read from the image server; base64
	// payloads for a 512px picture stay well below it.
	maxImageResponse = 16 << 20
)

// HTTPImageSource asks an OpenAI-compatible images endpoint (LocalAI,
// stable-diffusion front ends, hosted APIs) for one picture per prompt.
type HTTPImageSource struct {
	baseURL string
	model   string
	size    string
	client  *http.Client
}

// NewHTTPImageSource creates an image source for the server at baseURL.
// An empty model lets the server pick its default.
func NewHTTPImageSource(baseURL, model string, timeout time.Duration) (*HTTPImageSource, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("invalid image url %q: want http or https", baseURL)
	}
	return &HTTPImageSource{
		baseURL: baseURL,
		model:   model,
		size:    DefaultImageSize,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type imageRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// EventImage returns the first picture the server produced, as its URL or as
// a data: URL when the server answers with base64.
func (h *HTTPImageSource) EventImage(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(imageRequest{Model: h.model, Prompt: prompt, N: 1, Size: h.size})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+imagesPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("image request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxImageResponse))
	if err != nil {
		return "", fmt.Errorf("read image response: %w", err)
	}

	var out imageResponse
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("image server: %s (%d)", out.Error.Message, resp.StatusCode)
		}
		return "", fmt.Errorf("image server: status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode image response: %w", decodeErr)
	}
	if len(out.Data) == 0 {
		return "", errors.New("image server returned no pictures")
	}

	switch d := out.Data[0]; {
	case d.URL != "":
		return d.URL, nil
	case d.B64JSON != "":
		return "data:image/png;base64," + d.B64JSON, nil
	}
	return "", errors.New("image server returned an empty picture")
}
