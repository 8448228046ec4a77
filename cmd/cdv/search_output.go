package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/vanderheijden86/curiousdates/pkg/config"
	"github.com/vanderheijden86/curiousdates/pkg/model"
	"github.com/vanderheijden86/curiousdates/pkg/search"
)

type robotSearchHit struct {
	robotEventRef
	Score    float64 `json:"score"`
	Keyword  float64 `json:"keyword_score"`
	Semantic float64 `json:"semantic_score"`
}

type robotSearchOutput struct {
	GeneratedAt string           `json:"generated_at"`
	Query       string           `json:"query"`
	Provider    search.Provider  `json:"provider"`
	Model       string           `json:"model,omitempty"`
	Dim         int              `json:"dim"`
	IndexPath   string           `json:"index_path,omitempty"`
	Loaded      bool             `json:"loaded"`
	Limit       int              `json:"limit"`
	Hits        []robotSearchHit `json:"hits"`
}

func embeddingConfig(cfg config.Config) search.EmbeddingConfig {
	return search.EmbeddingConfig{
		Provider: search.Provider(cfg.Search.Embedder),
		Model:    cfg.Search.Model,
		Dim:      cfg.Search.Dim,
		URL:      cfg.AI.OllamaURL,
		Timeout:  cfg.AITimeout(),
	}.Normalized()
}

func writeRobotSearch(ctx context.Context, w, stderr io.Writer, ws model.WorkingSet, cfg config.Config, query string, limit int) error {
	ecfg := embeddingConfig(cfg)
	emb, err := search.NewEmbedder(ecfg)
	if err != nil {
		return err
	}

	var opts []search.EngineOption
	opts = append(opts, search.WithSemanticWeight(cfg.Search.SemanticWeight))

	loaded := false
	indexPath := cfg.Search.IndexPath
	if indexPath != "" {
		idx, err := search.LoadVectorIndex(indexPath)
		switch {
		case err == nil:
			opts = append(opts, search.WithIndex(idx))
			loaded = true
		case errors.Is(err, fs.ErrNotExist):
		default:
			// A corrupt cache is rebuilt from scratch.
			fmt.Fprintf(stderr, "Warning: ignoring search index %s: %v\n", indexPath, err)
		}
	}

	engine, err := search.NewEngine(ctx, ws, emb, opts...)
	if err != nil {
		return err
	}
	if indexPath != "" {
		if err := engine.Index().Save(indexPath); err != nil {
			fmt.Fprintf(stderr, "Warning: search index not saved: %v\n", err)
		}
	}

	if limit <= 0 {
		limit = search.DefaultLimit
	}
	hits, err := engine.Search(ctx, query, limit)
	if err != nil {
		return err
	}

	out := robotSearchOutput{
		GeneratedAt: now().UTC().Format(time.RFC3339),
		Query:       query,
		Provider:    emb.Provider(),
		Dim:         engine.Index().Dim,
		IndexPath:   indexPath,
		Loaded:      loaded,
		Limit:       limit,
		Hits:        make([]robotSearchHit, 0, len(hits)),
	}
	if emb.Provider() == search.ProviderOllama {
		out.Model = ecfg.Model
	}
	for _, h := range hits {
		out.Hits = append(out.Hits, robotSearchHit{
			robotEventRef: robotEventRef{TimelineID: h.TimelineID, TimelineTitle: h.TimelineTitle, Event: h.Event},
			Score:         h.Score,
			Keyword:       h.Keyword,
			Semantic:      h.Semantic,
		})
	}
	return writeRobotJSON(w, out)
}
