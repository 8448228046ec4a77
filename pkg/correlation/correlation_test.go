package correlation

import (
	"reflect"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/curiousdates/pkg/chrono"
	"github.com/vanderheijden86/curiousdates/pkg/model"
)

func ev(id, year, title, desc string) model.TimelineEvent {
	return model.TimelineEvent{ID: id, Year: year, Title: title, Description: desc}
}

func tl(id string, events ...model.TimelineEvent) model.Timeline {
	return model.Timeline{ID: id, Title: id, Category: model.CategoryHistorical, Events: events}
}

func parallelIDs(ps []Parallel) []string {
	var ids []string
	for _, p := range ps {
		ids = append(ids, p.Event.ID)
	}
	return ids
}

func relatedIDs(rs []Related) []string {
	var ids []string
	for _, r := range rs {
		ids = append(ids, r.Event.ID)
	}
	return ids
}

func TestFindParallels_Window(t *testing.T) {
	src := ev("t1-a", "1970", "Src", "")
	near := tl("t2", ev("t2-a", "1969", "Near", ""))
	far := tl("t3", ev("t3-a", "1900", "Far", ""))
	ws := model.WorkingSet{tl("t1", src), near, far}

	got := FindParallels(src, "t1", ws)
	if !reflect.DeepEqual(parallelIDs(got), []string{"t2-a"}) {
		t.Fatalf("FindParallels = %v, want [t2-a]", parallelIDs(got))
	}
	if got[0].TimelineID() != "t2" {
		t.Errorf("parallel timeline = %s", got[0].TimelineID())
	}
}

func TestFindParallels_FirstTwoInScanOrder(t *testing.T) {
	src := ev("h", "1969", "Src", "")
	ws := model.WorkingSet{
		tl("home", src, ev("h2", "1969", "Same timeline", "")),
		tl("a", ev("a1", "1960", "", ""), ev("a2", "1968", "", "")),
		tl("b", ev("b1", "1969", "Exact match", "")),
	}
	got := parallelIDs(FindParallels(src, "home", ws))
	if !reflect.DeepEqual(got, []string{"a1", "a2"}) {
		t.Errorf("FindParallels = %v, want [a1 a2] (scan order, not closeness)", got)
	}
}

func TestFindParallels_YearZeroUsesFloor(t *testing.T) {
	src := ev("z", "no year", "Undated", "")
	ws := model.WorkingSet{
		tl("home", src),
		tl("a", ev("a-2", "2 BC", "", ""), ev("a0", "year zero", "", "")),
		tl("b", ev("b1", "1", "", ""), ev("b2", "2", "", "")),
	}
	got := parallelIDs(FindParallels(src, "home", ws))
	if !reflect.DeepEqual(got, []string{"a0", "b1"}) {
		t.Errorf("FindParallels = %v, want [a0 b1]", got)
	}
}

func TestFindParallels_BCE(t *testing.T) {
	src := ev("s", "280 BC", "Colossus", "")
	ws := model.WorkingSet{
		tl("home", src),
		tl("other", ev("o1", "285 BC", "", ""), ev("o2", "280", "", "")),
	}
	got := parallelIDs(FindParallels(src, "home", ws))
	if !reflect.DeepEqual(got, []string{"o1"}) {
		t.Errorf("FindParallels = %v, want [o1]", got)
	}
}

func TestFindParallels_EmptyWorkingSet(t *testing.T) {
	if got := FindParallels(ev("x", "1969", "", ""), "home", nil); len(got) != 0 {
		t.Errorf("expected no parallels, got %v", got)
	}
}

func TestThreshold(t *testing.T) {
	tests := []struct {
		year int
		want float64
	}{
		{0, 1},
		{10, 1},
		{1970, 39.4},
		{-2560, 51.2},
	}
	for _, tt := range tests {
		if got := Threshold(tt.year); got < tt.want-1e-9 || got > tt.want+1e-9 {
			t.Errorf("Threshold(%d) = %v, want %v", tt.year, got, tt.want)
		}
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("This Apollo 11 landing, with the MOON moon into orbit!")
	want := []string{"apollo", "landing", "moon", "moon", "orbit"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
	if got := Tokenize("a an the"); len(got) != 0 {
		t.Errorf("expected no tokens, got %v", got)
	}
}

func TestFindRelated_Threshold(t *testing.T) {
	src := ev("src", "1969", "Apollo 11 Moon Landing", "")
	ws := model.WorkingSet{
		tl("home", src, ev("same", "1959", "Soviet Moon Program", "")),
		tl("other",
			ev("single", "1959", "Soviet Moon Program", ""),
			ev("double", "1970", "Moon Landing Hoax", ""),
			ev("repeat", "1971", "Moon", "The moon again"),
		),
	}

	got := FindRelated(src, "home", ws)
	ids := relatedIDs(got)
	want := []string{"double", "repeat", "same"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("FindRelated = %v, want %v", ids, want)
	}
	if got[0].Score != 2 || got[1].Score != 2 || got[2].Score != 1.5 {
		t.Errorf("scores = %v %v %v", got[0].Score, got[1].Score, got[2].Score)
	}
}

func TestFindRelated_SingleSharedWordExcluded(t *testing.T) {
	src := ev("src", "1969", "Apollo 11 Moon Landing", "")
	ws := model.WorkingSet{
		tl("home", src),
		tl("other", ev("single", "1959", "Soviet Moon Program", "")),
	}
	if got := FindRelated(src, "home", ws); len(got) != 0 {
		t.Errorf("score of exactly 1 must be excluded, got %v", relatedIDs(got))
	}
}

func TestFindRelated_ExcludesSelfAndCaps(t *testing.T) {
	src := ev("src", "1", "Great Pyramid Giza", "pyramid giza")
	ws := model.WorkingSet{tl("home",
		src,
		ev("c1", "1", "Pyramid Giza", ""),
		ev("c2", "1", "Pyramid Giza", ""),
		ev("c3", "1", "Pyramid Giza Great", ""),
		ev("c4", "1", "Pyramid Giza", ""),
	)}

	got := FindRelated(src, "home", ws)
	if len(got) != MaxRelated {
		t.Fatalf("expected %d results, got %d", MaxRelated, len(got))
	}
	ids := relatedIDs(got)
	if !reflect.DeepEqual(ids, []string{"c3", "c1", "c2"}) {
		t.Errorf("FindRelated = %v, want [c3 c1 c2] (score desc, stable)", ids)
	}
}

func TestFindRelated_SeparatesTitleAndDescription(t *testing.T) {
	// "moon" + "landing" must not form "moonlanding" across the seam.
	src := ev("src", "1969", "Moon", "landing craft")
	ws := model.WorkingSet{
		tl("home", src),
		tl("other", ev("c", "1969", "Moonlanding", "")),
	}
	if got := FindRelated(src, "home", ws); len(got) != 0 {
		t.Errorf("unexpected related %v", relatedIDs(got))
	}
}

func TestExplain(t *testing.T) {
	src := ev("src", "1969", "Apollo 11 Moon Landing", "")
	r := Related{
		Timeline: tl("home"),
		Event:    ev("c", "1970", "Moon landing hoax", "landing"),
		Score:    3.5,
	}
	if got := Explain(r, src, "home"); got != `shares "moon", "landing" · same timeline` {
		t.Errorf("Explain = %q", got)
	}
	if got := Explain(r, src, "elsewhere"); got != `shares "moon", "landing"` {
		t.Errorf("Explain = %q", got)
	}
}

func genWorkingSet(t *rapid.T) model.WorkingSet {
	words := []string{"moon", "pyramid", "empire", "river", "war", "treaty", "rocket", "this", "from"}
	nTL := rapid.IntRange(0, 4).Draw(t, "timelines")
	var ws model.WorkingSet
	n := 0
	for i := 0; i < nTL; i++ {
		tlID := string(rune('a' + i))
		var events []model.TimelineEvent
		for j := rapid.IntRange(0, 5).Draw(t, "events"); j > 0; j-- {
			title := rapid.SliceOfN(rapid.SampledFrom(words), 0, 4).Draw(t, "title")
			year := rapid.IntRange(-3000, 2100).Draw(t, "year")
			n++
			e := model.TimelineEvent{
				ID:    tlID + "-" + string(rune('0'+n%10)) + string(rune('a'+n/10)),
				Year:  chrono.FormatYear(year),
				Title: strings.Join(title, " "),
			}
			events = append(events, e)
		}
		ws = append(ws, model.Timeline{ID: tlID, Title: tlID, Category: model.CategoryHistorical, Events: events})
	}
	return ws
}

func TestFindParallels_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ws := genWorkingSet(t)
		for _, timeline := range ws {
			for _, e := range timeline.Events {
				got := FindParallels(e, timeline.ID, ws)
				if len(got) > MaxParallels {
					t.Fatalf("got %d parallels", len(got))
				}
				for _, p := range got {
					if p.Timeline.ID == timeline.ID {
						t.Fatalf("parallel %s from home timeline %s", p.Event.ID, timeline.ID)
					}
				}
			}
		}
	})
}

func TestFindRelated_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ws := genWorkingSet(t)
		for _, timeline := range ws {
			for _, e := range timeline.Events {
				got := FindRelated(e, timeline.ID, ws)
				if len(got) > MaxRelated {
					t.Fatalf("got %d related", len(got))
				}
				for i, r := range got {
					if r.Event.ID == e.ID {
						t.Fatalf("source event %s returned as related", e.ID)
					}
					if r.Score <= MinRelatedScore {
						t.Fatalf("score %v not above threshold", r.Score)
					}
					if i > 0 && got[i-1].Score < r.Score {
						t.Fatalf("results not sorted: %v then %v", got[i-1].Score, r.Score)
					}
				}
			}
		}
	})
}
