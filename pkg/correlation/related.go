package correlation

import (
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/vanderheijden86/curiousdates/pkg/metrics"
	"github.com/vanderheijden86/curiousdates/pkg/model"
)

const (
	// MaxRelated caps FindRelated results.
	MaxRelated = 3
	// SameTimelineBonus is added when the candidate shares the source's timeline.
	SameTimelineBonus = 0.5
	// MinRelatedScore is the exclusive lower bound a candidate must beat.
	MinRelatedScore = 1.0
)

// wordPattern matches ASCII word runs of four or more characters.
var wordPattern = regexp.MustCompile(`\b\w{4,}\b`)

// StopWords are frequent four-letter words that carry no topical signal.
var StopWords = map[string]struct{}{
	"this": {},
	"that": {},
	"with": {},
	"from": {},
	"were": {},
	"when": {},
	"into": {},
}

// Related is an event judged textually similar to the source event.
type Related struct {
	Timeline model.Timeline      `json:"-"`
	Event    model.TimelineEvent `json:"event"`
	Score    float64             `json:"score"`
}

// TimelineID is the id of the timeline holding the related event.
func (r Related) TimelineID() string { return r.Timeline.ID }

// Tokenize lowercases text and returns its words of length >= 4 in order,
// stop words removed and duplicates kept.
func Tokenize(text string) []string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	out := words[:0]
	for _, w := range words {
		if _, stop := StopWords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// eventTokens tokenizes title and description separately so a word cannot
// form across the seam between them.
func eventTokens(ev model.TimelineEvent) []string {
	return append(Tokenize(ev.Title), Tokenize(ev.Description)...)
}

// SourceTokenSet is the deduplicated token set of an event.
func SourceTokenSet(ev model.TimelineEvent) map[string]struct{} {
	tokens := eventTokens(ev)
	set := make(map[string]struct{}, len(tokens))
	for _, w := range tokens {
		set[w] = struct{}{}
	}
	return set
}

// Score counts the candidate's tokens that appear in source, so a shared word
// repeated in the candidate counts every time.
func Score(source map[string]struct{}, candidate model.TimelineEvent) float64 {
	var score float64
	for _, w := range eventTokens(candidate) {
		if _, ok := source[w]; ok {
			score++
		}
	}
	return score
}

// FindRelated returns up to three events anywhere in the working set,
// including the home timeline, that share enough significant words with the
// source event. The source event itself is skipped by id. Candidates from
// homeTimelineID get SameTimelineBonus; only scores above MinRelatedScore are
// kept. Results are sorted by score, ties in scan order.
func FindRelated(event model.TimelineEvent, homeTimelineID string, ws model.WorkingSet) []Related {
	defer metrics.Timer(metrics.RelatedSearch)()

	source := SourceTokenSet(event)

	var candidates []Related
	for _, tl := range ws {
		for _, ev := range tl.Events {
			if ev.ID == event.ID {
				continue
			}
			score := Score(source, ev)
			if tl.ID == homeTimelineID {
				score += SameTimelineBonus
			}
			if score > MinRelatedScore {
				candidates = append(candidates, Related{Timeline: tl, Event: ev, Score: score})
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > MaxRelated {
		candidates = candidates[:MaxRelated]
	}
	return candidates
}

// SharedWords returns the distinct words the candidate shares with source, in
// the order they first appear in the candidate.
func SharedWords(source, candidate model.TimelineEvent) []string {
	set := SourceTokenSet(source)
	var shared []string
	for _, w := range eventTokens(candidate) {
		if _, ok := set[w]; ok && !slices.Contains(shared, w) {
			shared = append(shared, w)
		}
	}
	return shared
}

// Explain describes why r was suggested for source, e.g.
// `shares "moon", "landing" · same timeline`.
func Explain(r Related, source model.TimelineEvent, homeTimelineID string) string {
	words := SharedWords(source, r.Event)
	var b strings.Builder
	if len(words) > 0 {
		b.WriteString("shares ")
		for i, w := range words {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(`"` + w + `"`)
		}
	}
	if r.Timeline.ID == homeTimelineID {
		if b.Len() > 0 {
			b.WriteString(" · ")
		}
		b.WriteString("same timeline")
	}
	return b.String()
}
