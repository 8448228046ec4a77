// Package testutil provides deterministic timeline fixtures and assertions
// for tests. The same seed always yields the same working set.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/curiousdates/pkg/chrono"
	"github.com/vanderheijden86/curiousdates/pkg/model"
)

// DefaultVocabulary feeds generated titles and descriptions. None of the
// words are stop words, so shared words count toward relatedness.
var DefaultVocabulary = []string{
	"empire", "river", "harbor", "treaty", "comet", "library", "bridge",
	"siege", "voyage", "temple", "market", "plague", "canal", "observatory",
	"dynasty", "railway", "revolt", "charter", "eclipse", "printing",
}

// GeneratorConfig controls fixture generation.
type GeneratorConfig struct {
	Seed           int64    // 0 selects 42
	IDPrefix       string   // timeline ids are prefix-N, event ids prefix-N-M (default "tl")
	StartYear      int      // earliest year, signed (default -3000)
	EndYear        int      // latest year, signed (default 2000)
	Vocabulary     []string // default DefaultVocabulary
	WordsPerEvent  int      // words drawn per title and description (default 2)
	AlternateRatio float64  // share of alternate-history timelines (0..1)
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:          42,
		IDPrefix:      "tl",
		StartYear:     -3000,
		EndYear:       2000,
		Vocabulary:    DefaultVocabulary,
		WordsPerEvent: 2,
	}
}

// Generator creates timeline fixtures.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator, filling unset fields from DefaultConfig.
func New(cfg GeneratorConfig) *Generator {
	def := DefaultConfig()
	if cfg.Seed == 0 {
		cfg.Seed = def.Seed
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = def.IDPrefix
	}
	if cfg.StartYear == 0 && cfg.EndYear == 0 {
		cfg.StartYear, cfg.EndYear = def.StartYear, def.EndYear
	}
	if cfg.EndYear < cfg.StartYear {
		cfg.StartYear, cfg.EndYear = cfg.EndYear, cfg.StartYear
	}
	if len(cfg.Vocabulary) == 0 {
		cfg.Vocabulary = def.Vocabulary
	}
	if cfg.WordsPerEvent <= 0 {
		cfg.WordsPerEvent = def.WordsPerEvent
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// NewDefault creates a Generator with DefaultConfig.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// TimelineID is the id of the index-th generated timeline.
func (g *Generator) TimelineID(index int) string {
	return fmt.Sprintf("%s-%d", g.cfg.IDPrefix, index)
}

// EventID is the id of event e of timeline index.
func (g *Generator) EventID(index, e int) string {
	return fmt.Sprintf("%s-%d-%d", g.cfg.IDPrefix, index, e)
}

// Timeline generates one timeline with events in ascending year order.
// Year 0 is skipped since it has no calendar spelling.
func (g *Generator) Timeline(index, events int) model.Timeline {
	years := make([]int, events)
	for i := range years {
		years[i] = g.year()
	}
	sortInts(years)

	tl := model.Timeline{
		ID:          g.TimelineID(index),
		Title:       "Chronicle of the " + titleCase(g.words(g.cfg.WordsPerEvent)),
		Description: fmt.Sprintf("Generated timeline %d.", index),
		Category:    model.CategoryHistorical,
		Events:      make([]model.TimelineEvent, events),
	}
	if g.rng.Float64() < g.cfg.AlternateRatio {
		tl.Category = model.CategoryAlternate
	}
	for i, y := range years {
		tl.Events[i] = model.TimelineEvent{
			ID:          g.EventID(index, i),
			Year:        chrono.FormatYear(y),
			Title:       titleCase(g.words(g.cfg.WordsPerEvent)),
			Description: "The " + g.words(g.cfg.WordsPerEvent) + " of the age.",
		}
	}
	return tl
}

// WorkingSet generates n timelines of eventsEach events.
func (g *Generator) WorkingSet(n, eventsEach int) model.WorkingSet {
	ws := make(model.WorkingSet, n)
	for i := range ws {
		ws[i] = g.Timeline(i, eventsEach)
	}
	return ws
}

// Contemporaries builds n single-event timelines all dated year, so every
// event is a parallel of every other.
func (g *Generator) Contemporaries(year, n int) model.WorkingSet {
	ws := make(model.WorkingSet, n)
	for i := range ws {
		ws[i] = model.Timeline{
			ID:       g.TimelineID(i),
			Title:    fmt.Sprintf("Contemporary %d", i),
			Category: model.CategoryHistorical,
			Events: []model.TimelineEvent{{
				ID:          g.EventID(i, 0),
				Year:        chrono.FormatYear(year),
				Title:       titleCase(g.words(g.cfg.WordsPerEvent)),
				Description: "Happening in " + chrono.FormatYear(year) + ".",
			}},
		}
	}
	return ws
}

// SharedTopic builds n single-event timelines whose titles all carry words,
// spread over centuries so they are related but never parallel.
func (g *Generator) SharedTopic(words []string, n int) model.WorkingSet {
	topic := titleCase(strings.Join(words, " "))
	ws := make(model.WorkingSet, n)
	for i := range ws {
		ws[i] = model.Timeline{
			ID:       g.TimelineID(i),
			Title:    fmt.Sprintf("Topic %d", i),
			Category: model.CategoryHistorical,
			Events: []model.TimelineEvent{{
				ID:    g.EventID(i, 0),
				Year:  chrono.FormatYear(1000 + i*300),
				Title: topic,
			}},
		}
	}
	return ws
}

func (g *Generator) year() int {
	span := g.cfg.EndYear - g.cfg.StartYear + 1
	for {
		y := g.cfg.StartYear + g.rng.Intn(span)
		if y != 0 {
			return y
		}
	}
}

func (g *Generator) words(n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = g.cfg.Vocabulary[g.rng.Intn(len(g.cfg.Vocabulary))]
	}
	return strings.Join(out, " ")
}

func titleCase(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		fields[i] = strings.ToUpper(f[:1]) + f[1:]
	}
	return strings.Join(fields, " ")
}

// insertion sort; fixtures are small
func sortInts(a []int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j] < a[j-1]; j-- {
			a[j], a[j-1] = a[j-1], a[j]
		}
	}
}

// ToJSONL renders ws one timeline per line, the format LoadFile reads from
// .jsonl files.
func ToJSONL(ws model.WorkingSet) string {
	var sb strings.Builder
	for _, tl := range ws {
		data, err := json.Marshal(tl)
		if err != nil {
			continue
		}
		sb.Write(data)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// QuickWorkingSet is NewDefault().WorkingSet(n, eventsEach).
func QuickWorkingSet(n, eventsEach int) model.WorkingSet {
	return NewDefault().WorkingSet(n, eventsEach)
}
