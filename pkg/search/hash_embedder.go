package search

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/vanderheijden86/curiousdates/pkg/correlation"
)

// HashEmbedder maps each significant word to a signed bucket (the hashing
// trick) and L2-normalizes the result, so the dot product of two vectors is
// their cosine similarity.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a hash embedder with dim buckets.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultEmbeddingDim
	}
	return &HashEmbedder{dim: dim}
}

func (h *HashEmbedder) Provider() Provider { return ProviderHash }

func (h *HashEmbedder) Dim() int { return h.dim }

// Embed never fails except on a cancelled context.
func (h *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embedOne(text)
	}
	return out, nil
}

func (h *HashEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, h.dim)
	for _, tok := range correlation.Tokenize(text) {
		f := fnv.New64a()
		_, _ = f.Write([]byte(tok))
		sum := f.Sum64()
		bucket := int(sum % uint64(h.dim))
		// Top bit picks the sign so collisions cancel rather than pile up.
		if sum>>63 == 1 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}
	normalize(vec)
	return vec
}

func normalize(vec []float32) {
	var sq float64
	for _, v := range vec {
		sq += float64(v) * float64(v)
	}
	if sq == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sq))
	for i := range vec {
		vec[i] *= inv
	}
}
