package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/curiousdates/pkg/correlation"
	"github.com/vanderheijden86/curiousdates/pkg/metrics"
	"github.com/vanderheijden86/curiousdates/pkg/model"
)

// DefaultSemanticWeight is the share of the score taken by vector similarity.
const DefaultSemanticWeight = 0.6

// DefaultLimit caps results when the caller passes a non-positive limit.
const DefaultLimit = 10

// ErrEmptyQuery is returned for blank queries.
var ErrEmptyQuery = errors.New("search query is empty")

// Hit is one ranked event.
type Hit struct {
	TimelineID    string              `json:"timeline_id"`
	TimelineTitle string              `json:"timeline_title"`
	Event         model.TimelineEvent `json:"event"`
	Score         float64             `json:"score"`
	Keyword       float64             `json:"keyword_score"`
	Semantic      float64             `json:"semantic_score"`
}

// Engine searches one working set.
type Engine struct {
	ws     model.WorkingSet
	emb    Embedder
	index  *VectorIndex
	weight float64
	tokens map[string]map[string]struct{} // event id -> token set
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithIndex reuses a previously saved index; only changed events are
// re-embedded. An index of the wrong dimension is replaced.
func WithIndex(idx *VectorIndex) EngineOption {
	return func(e *Engine) { e.index = idx }
}

// WithSemanticWeight sets the vector share of the score (clamped to 0..1).
func WithSemanticWeight(w float64) EngineOption {
	return func(e *Engine) { e.weight = min(max(w, 0), 1) }
}

// NewEngine embeds every event of ws that the index does not already hold.
func NewEngine(ctx context.Context, ws model.WorkingSet, emb Embedder, opts ...EngineOption) (*Engine, error) {
	e := &Engine{ws: ws, emb: emb, weight: DefaultSemanticWeight}
	for _, opt := range opts {
		opt(e)
	}

	docs := Documents(ws)
	e.tokens = make(map[string]map[string]struct{}, len(docs))
	for _, tl := range ws {
		for _, ev := range tl.Events {
			e.tokens[ev.ID] = correlation.SourceTokenSet(ev)
		}
	}

	if e.index == nil || (emb.Dim() > 0 && e.index.Dim != emb.Dim()) {
		e.index = NewVectorIndex(emb.Dim())
	}
	if emb.Dim() == 0 && len(docs) > 0 {
		// Dimension unknown until the embedder answers once.
		sample, err := emb.Embed(ctx, []string{docs[0].Text})
		if err != nil {
			return nil, err
		}
		if e.index.Dim != len(sample[0]) {
			e.index = NewVectorIndex(len(sample[0]))
		}
	}
	if _, err := e.index.Sync(ctx, emb, docs); err != nil {
		return nil, fmt.Errorf("indexing events: %w", err)
	}
	return e, nil
}

// Index exposes the vector index, e.g. to Save it.
func (e *Engine) Index() *VectorIndex { return e.index }

// Search ranks events against query and returns at most limit hits with a
// positive score, best first, ties in scan order.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	defer metrics.Timer(metrics.EventSearch)()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	qv, err := e.emb.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	semantic := make(map[string]float64, e.index.Size())
	if len(qv) == 1 && len(qv[0]) == e.index.Dim {
		all, err := e.index.SearchTopK(qv[0], e.index.Size())
		if err != nil {
			return nil, err
		}
		for _, r := range all {
			semantic[r.EventID] = max(r.Score, 0)
		}
	}

	qTokens := distinct(correlation.Tokenize(query))

	var hits []Hit
	for _, tl := range e.ws {
		for _, ev := range tl.Events {
			kw := keywordScore(qTokens, e.tokens[ev.ID])
			sem := semantic[ev.ID]
			score := e.weight*sem + (1-e.weight)*kw
			if score <= 0 {
				continue
			}
			hits = append(hits, Hit{
				TimelineID:    tl.ID,
				TimelineTitle: tl.Title,
				Event:         ev,
				Score:         score,
				Keyword:       kw,
				Semantic:      sem,
			})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// keywordScore is the share of query words the event contains.
func keywordScore(query []string, event map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	var n int
	for _, w := range query {
		if _, ok := event[w]; ok {
			n++
		}
	}
	return float64(n) / float64(len(query))
}

func distinct(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := words[:0]
	for _, w := range words {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}
