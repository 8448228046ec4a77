package model

import (
	"fmt"
	"strings"
)

// WorkingSet is the universe of loaded timelines, in display order.
type WorkingSet []Timeline

// Find returns the timeline with the given id.
func (ws WorkingSet) Find(id string) (Timeline, bool) {
	for _, t := range ws {
		if t.ID == id {
			return t, true
		}
	}
	return Timeline{}, false
}

// Locate finds the timeline holding the event with the given id.
func (ws WorkingSet) Locate(eventID string) (Timeline, TimelineEvent, bool) {
	for _, t := range ws {
		if ev, ok := t.Event(eventID); ok {
			return t, ev, true
		}
	}
	return Timeline{}, TimelineEvent{}, false
}

// Prepend returns a new working set with t in front. If a timeline with the
// same id already exists it is dropped from the tail so ids stay unique.
func (ws WorkingSet) Prepend(t Timeline) WorkingSet {
	out := make(WorkingSet, 0, len(ws)+1)
	out = append(out, t)
	for _, existing := range ws {
		if existing.ID == t.ID {
			continue
		}
		out = append(out, existing)
	}
	return out
}

// EventCount returns the total number of events across all timelines.
func (ws WorkingSet) EventCount() int {
	n := 0
	for _, t := range ws {
		n += len(t.Events)
	}
	return n
}

// Validate validates every timeline and checks that timeline ids and event
// ids are unique across the whole set. Events are cross-referenced between
// timelines, so an event id collision is an error even across timelines.
func (ws WorkingSet) Validate() error {
	var problems []string
	timelineIDs := make(map[string]bool, len(ws))
	eventOwner := make(map[string]string)
	for _, t := range ws {
		if err := t.Validate(); err != nil {
			problems = append(problems, err.Error())
			continue
		}
		if timelineIDs[t.ID] {
			problems = append(problems, fmt.Sprintf("duplicate timeline id %q", t.ID))
			continue
		}
		timelineIDs[t.ID] = true
		for _, ev := range t.Events {
			if owner, ok := eventOwner[ev.ID]; ok {
				problems = append(problems, fmt.Sprintf("event id %q used by %q and %q", ev.ID, owner, t.ID))
				continue
			}
			eventOwner[ev.ID] = t.ID
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid working set: %s", strings.Join(problems, "; "))
	}
	return nil
}

// EventIDs returns the ids of every event in scan order.
func (ws WorkingSet) EventIDs() []string {
	ids := make([]string, 0, ws.EventCount())
	for _, t := range ws {
		for _, ev := range t.Events {
			ids = append(ids, ev.ID)
		}
	}
	return ids
}
