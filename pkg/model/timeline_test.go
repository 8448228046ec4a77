package model

import (
	"strings"
	"testing"
)

func sampleTimeline(id string, eventIDs ...string) Timeline {
	t := Timeline{
		ID:       id,
		Title:    "Timeline " + id,
		Category: CategoryHistorical,
	}
	for i, eid := range eventIDs {
		t.Events = append(t.Events, TimelineEvent{
			ID:    eid,
			Year:  string(rune('1'+i)) + "900",
			Title: "Event " + eid,
		})
	}
	return t
}

func TestCategory_IsValid(t *testing.T) {
	tests := []struct {
		c    Category
		want bool
	}{
		{CategoryHistorical, true},
		{CategoryAlternate, true},
		{Category("fiction"), false},
		{Category(""), false},
	}
	for _, tt := range tests {
		if got := tt.c.IsValid(); got != tt.want {
			t.Errorf("Category(%q).IsValid() = %v, want %v", tt.c, got, tt.want)
		}
	}
}

func TestTimelineValidate(t *testing.T) {
	tests := []struct {
		name    string
		tl      Timeline
		wantErr string
	}{
		{"valid", sampleTimeline("a", "1", "2"), ""},
		{"missing id", Timeline{Title: "x", Category: CategoryHistorical}, "ID is required"},
		{"bad category", Timeline{ID: "a", Title: "x", Category: "fiction"}, "Category must be one of"},
		{"event without year", Timeline{ID: "a", Title: "x", Category: CategoryAlternate,
			Events: []TimelineEvent{{ID: "e", Title: "t"}}}, "Year is required"},
		{"duplicate event", sampleTimeline("a", "1", "1"), "duplicate event id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tl.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTimelineAdjacent(t *testing.T) {
	tl := sampleTimeline("a", "1", "2", "3")

	if ev, ok := tl.Adjacent("2", 1); !ok || ev.ID != "3" {
		t.Errorf("next of 2 = %v, %v", ev.ID, ok)
	}
	if ev, ok := tl.Adjacent("2", -1); !ok || ev.ID != "1" {
		t.Errorf("prev of 2 = %v, %v", ev.ID, ok)
	}
	if _, ok := tl.Adjacent("3", 1); ok {
		t.Error("expected no event after the last one")
	}
	if _, ok := tl.Adjacent("missing", 1); ok {
		t.Error("expected no adjacent event for unknown id")
	}
}

func TestWorkingSetPrepend(t *testing.T) {
	ws := WorkingSet{sampleTimeline("a", "1"), sampleTimeline("b", "2")}
	ws2 := ws.Prepend(sampleTimeline("c", "3"))

	if len(ws) != 2 {
		t.Fatalf("original working set modified: %d", len(ws))
	}
	if len(ws2) != 3 || ws2[0].ID != "c" {
		t.Fatalf("expected c first, got %v", ws2)
	}

	replaced := ws2.Prepend(sampleTimeline("b", "9"))
	if len(replaced) != 3 || replaced[0].ID != "b" || replaced[0].Events[0].ID != "9" {
		t.Fatalf("expected replacement at the front, got %+v", replaced)
	}
}

func TestWorkingSetValidate_CrossTimelineDuplicate(t *testing.T) {
	ws := WorkingSet{sampleTimeline("a", "1"), sampleTimeline("b", "1")}
	err := ws.Validate()
	if err == nil || !strings.Contains(err.Error(), `event id "1" used by "a" and "b"`) {
		t.Fatalf("expected cross-timeline duplicate error, got %v", err)
	}
}

func TestWorkingSetLocate(t *testing.T) {
	ws := WorkingSet{sampleTimeline("a", "1", "2"), sampleTimeline("b", "3")}
	tl, ev, ok := ws.Locate("3")
	if !ok || tl.ID != "b" || ev.ID != "3" {
		t.Fatalf("Locate(3) = %s %s %v", tl.ID, ev.ID, ok)
	}
	if _, _, ok := ws.Locate("nope"); ok {
		t.Fatal("expected miss")
	}
	if got := ws.EventCount(); got != 3 {
		t.Errorf("EventCount = %d, want 3", got)
	}
}
