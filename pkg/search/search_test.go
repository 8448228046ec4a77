package search

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/curiousdates/pkg/loader"
	"github.com/vanderheijden86/curiousdates/pkg/testutil"
)

func norm(v []float32) float64 {
	var sq float64
	for _, x := range v {
		sq += float64(x) * float64(x)
	}
	return math.Sqrt(sq)
}

func TestHashEmbedder(t *testing.T) {
	h := NewHashEmbedder(64)
	vecs, err := h.Embed(context.Background(), []string{
		"Apollo lunar landing",
		"Apollo lunar landing",
		"Berlin blockade airlift",
		"a an to",
	})
	if err != nil {
		t.Fatal(err)
	}
	if h.Dim() != 64 || len(vecs[0]) != 64 || h.Provider() != ProviderHash {
		t.Fatalf("dim = %d/%d", h.Dim(), len(vecs[0]))
	}
	if n := norm(vecs[0]); math.Abs(n-1) > 1e-5 {
		t.Errorf("norm = %v, want 1", n)
	}
	if d := dotFloat32(vecs[0], vecs[1]); math.Abs(d-1) > 1e-5 {
		t.Errorf("identical texts dot = %v", d)
	}
	if d := dotFloat32(vecs[0], vecs[2]); d > 0.5 {
		t.Errorf("unrelated texts dot = %v", d)
	}
	if norm(vecs[3]) != 0 {
		t.Error("text without significant words embeds to zero")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Embed(ctx, []string{"x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestNewEmbedder(t *testing.T) {
	e, err := NewEmbedder(EmbeddingConfig{})
	if err != nil || e.Provider() != ProviderHash || e.Dim() != DefaultEmbeddingDim {
		t.Fatalf("default embedder = %v, %v", e, err)
	}
	o, err := NewEmbedder(EmbeddingConfig{Provider: ProviderOllama, URL: "http://127.0.0.1:1"})
	if err != nil || o.(*OllamaEmbedder).Model() != DefaultOllamaModel {
		t.Fatalf("ollama embedder = %v, %v", o, err)
	}
	if _, err := NewEmbedder(EmbeddingConfig{Provider: "bert"}); err == nil {
		t.Error("unknown provider should fail")
	}
}

func TestVectorIndexSaveLoad(t *testing.T) {
	idx := NewVectorIndex(3)
	if err := idx.Upsert("b", ComputeContentHash("b"), []float32{0, 1, 0}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Upsert("a", ComputeContentHash("a"), []float32{1, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Upsert("a", ComputeContentHash("a"), []float32{1, 0}); err == nil {
		t.Error("expected dim mismatch")
	}

	path := filepath.Join(t.TempDir(), "cache", "events.idx")
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadVectorIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Dim != 3 || loaded.Size() != 2 {
		t.Fatalf("loaded dim=%d size=%d", loaded.Dim, loaded.Size())
	}
	e, ok := loaded.Get("b")
	if !ok || e.Vector[1] != 1 || e.ContentHash != ComputeContentHash("b") {
		t.Errorf("entry b = %+v", e)
	}

	h, err := ParseContentHashHex(e.ContentHash.Hex())
	if err != nil || h != e.ContentHash {
		t.Errorf("hex round trip: %v", err)
	}
	if _, err := ParseContentHashHex("abc"); err == nil {
		t.Error("short hex should fail")
	}

	bad := filepath.Join(t.TempDir(), "bad.idx")
	if err := os.WriteFile(bad, []byte("BVVI\x01\x00\x00\x00\x03\x00\x00\x00\x00\x00\x00\x00"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadVectorIndex(bad); err == nil || !strings.Contains(err.Error(), "magic") {
		t.Errorf("err = %v", err)
	}
}

func TestSearchTopK(t *testing.T) {
	idx := NewVectorIndex(2)
	_ = idx.Upsert("c", ContentHash{}, []float32{1, 0})
	_ = idx.Upsert("a", ContentHash{}, []float32{1, 0})
	_ = idx.Upsert("b", ContentHash{}, []float32{0, 1})

	got, err := idx.SearchTopK([]float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].EventID != "a" || got[1].EventID != "c" {
		t.Errorf("top2 = %+v, want a then c (ties by id)", got)
	}
	if _, err := idx.SearchTopK([]float32{1}, 1); err == nil {
		t.Error("expected query dim mismatch")
	}
	if got, _ := idx.SearchTopK([]float32{1, 0}, 0); got != nil {
		t.Error("k=0 returns nothing")
	}
	idx.Remove("a")
	idx.Remove("missing")
	if idx.Size() != 2 {
		t.Errorf("size = %d", idx.Size())
	}
}

// countingEmbedder wraps the hash embedder and records how many texts it saw.
type countingEmbedder struct {
	*HashEmbedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls += len(texts)
	return c.HashEmbedder.Embed(ctx, texts)
}

func TestSyncReembedsOnlyChanges(t *testing.T) {
	emb := &countingEmbedder{HashEmbedder: NewHashEmbedder(32)}
	idx := NewVectorIndex(32)
	ws := testutil.QuickWorkingSet(2, 3)
	docs := Documents(ws)

	n, err := idx.Sync(context.Background(), emb, docs)
	if err != nil || n != 6 || idx.Size() != 6 {
		t.Fatalf("first sync n=%d size=%d err=%v", n, idx.Size(), err)
	}
	if n, _ := idx.Sync(context.Background(), emb, docs); n != 0 {
		t.Errorf("unchanged sync embedded %d", n)
	}

	docs[0].Text += " revised"
	docs = docs[:len(docs)-1]
	n, err = idx.Sync(context.Background(), emb, docs)
	if err != nil || n != 1 {
		t.Errorf("changed sync n=%d err=%v", n, err)
	}
	if idx.Size() != 5 {
		t.Errorf("stale entry kept: size %d", idx.Size())
	}
	if emb.calls != 7 {
		t.Errorf("embedder saw %d texts, want 7", emb.calls)
	}
}

func TestEngineSearchSeed(t *testing.T) {
	ctx := context.Background()
	e, err := NewEngine(ctx, loader.Seed(), NewHashEmbedder(256))
	if err != nil {
		t.Fatal(err)
	}

	hits, err := e.Search(ctx, "moon landing", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 || hits[0].Event.ID != "m4" || hits[0].Keyword != 1 {
		t.Fatalf("top hit = %+v", hits)
	}
	if hits[0].TimelineID != "moon-landing" {
		t.Errorf("timeline = %s", hits[0].TimelineID)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("hits not sorted at %d", i)
		}
	}

	berlin, err := e.Search(ctx, "Berlin", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(berlin) != 2 {
		t.Fatalf("limit ignored: %d hits", len(berlin))
	}
	for _, h := range berlin {
		if h.Keyword != 1 || h.TimelineID != "cold-war" {
			t.Errorf("berlin hit = %+v", h)
		}
	}

	if _, err := e.Search(ctx, "   ", 5); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("err = %v", err)
	}
}

func TestEngineKeywordOnly(t *testing.T) {
	ctx := context.Background()
	e, err := NewEngine(ctx, loader.Seed(), NewHashEmbedder(64), WithSemanticWeight(0))
	if err != nil {
		t.Fatal(err)
	}
	hits, err := e.Search(ctx, "pharaoh tomb", 10)
	if err != nil {
		t.Fatal(err)
	}
	// Only the pyramid mentions both; the mausoleum is "a tomb".
	if len(hits) != 2 || hits[0].Event.ID != "1" || hits[1].Event.ID != "4" {
		t.Fatalf("hits = %+v", hits)
	}
	if hits[1].Score != 0.5 {
		t.Errorf("half the words match, score = %v", hits[1].Score)
	}
}

func TestEngineReusesIndex(t *testing.T) {
	ctx := context.Background()
	ws := loader.Seed()
	emb := &countingEmbedder{HashEmbedder: NewHashEmbedder(64)}
	first, err := NewEngine(ctx, ws, emb)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "events.idx")
	if err := first.Index().Save(path); err != nil {
		t.Fatal(err)
	}

	idx, err := LoadVectorIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	emb.calls = 0
	if _, err := NewEngine(ctx, ws, emb, WithIndex(idx)); err != nil {
		t.Fatal(err)
	}
	if emb.calls != 0 {
		t.Errorf("cached index re-embedded %d events", emb.calls)
	}

	// A different dimension discards the cache.
	if _, err := NewEngine(ctx, ws, NewHashEmbedder(32), WithIndex(idx)); err != nil {
		t.Fatal(err)
	}
}

func TestOllamaEmbedder(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		out := make([][]float32, len(req.Input))
		for i := range out {
			out[i] = []float32{3, 4}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"model": req.Model, "embeddings": out})
	}))
	defer srv.Close()

	o, err := NewOllamaEmbedder(srv.URL, "", 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if o.Dim() != 0 {
		t.Error("dimension is unknown before the first call")
	}
	vecs, err := o.Embed(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatal(err)
	}
	if gotModel != DefaultOllamaModel || o.Dim() != 2 || len(vecs) != 2 {
		t.Fatalf("model=%s dim=%d vecs=%v", gotModel, o.Dim(), vecs)
	}
	if math.Abs(float64(vecs[0][0])-0.6) > 1e-6 || math.Abs(float64(vecs[0][1])-0.8) > 1e-6 {
		t.Errorf("vector not normalized: %v", vecs[0])
	}

	e, err := NewEngine(context.Background(), loader.Seed(), o)
	if err != nil {
		t.Fatal(err)
	}
	if e.Index().Dim != 2 || e.Index().Size() != loader.Seed().EventCount() {
		t.Errorf("index dim=%d size=%d", e.Index().Dim, e.Index().Size())
	}
}
