package datasource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/curiousdates/pkg/model"
)

// SetDiff describes how a reloaded working set differs from the previous one.
type SetDiff struct {
	// Added contains timeline ids present only in the new set.
	Added []string
	// Removed contains timeline ids present only in the old set.
	Removed []string
	// Changed contains timelines whose title, category or events differ.
	Changed []string
	// CountA and CountB are the timeline counts of the old and new sets.
	CountA int
	CountB int
}

// IsEmpty returns true if nothing changed.
func (d SetDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Summary returns a one-line status message, e.g. "reloaded: +1 -0 ~2".
func (d SetDiff) Summary() string {
	if d.IsEmpty() {
		return fmt.Sprintf("reloaded: no changes (%d timelines)", d.CountB)
	}
	return fmt.Sprintf("reloaded: +%d -%d ~%d (%d timelines)",
		len(d.Added), len(d.Removed), len(d.Changed), d.CountB)
}

// Details lists affected timeline ids, at most five per group.
func (d SetDiff) Details() string {
	var b strings.Builder
	group := func(label string, ids []string) {
		if len(ids) == 0 {
			return
		}
		fmt.Fprintf(&b, "  %s (%d):\n", label, len(ids))
		for i, id := range ids {
			if i == 5 {
				fmt.Fprintf(&b, "    ... and %d more\n", len(ids)-5)
				break
			}
			fmt.Fprintf(&b, "    - %s\n", id)
		}
	}
	group("added", d.Added)
	group("removed", d.Removed)
	group("changed", d.Changed)
	return b.String()
}

// Diff compares two working sets by timeline id.
func Diff(old, updated model.WorkingSet) SetDiff {
	d := SetDiff{CountA: len(old), CountB: len(updated)}

	before := make(map[string]model.Timeline, len(old))
	for _, t := range old {
		before[t.ID] = t
	}
	after := make(map[string]bool, len(updated))
	for _, t := range updated {
		after[t.ID] = true
		prev, ok := before[t.ID]
		switch {
		case !ok:
			d.Added = append(d.Added, t.ID)
		case !sameTimeline(prev, t):
			d.Changed = append(d.Changed, t.ID)
		}
	}
	for _, t := range old {
		if !after[t.ID] {
			d.Removed = append(d.Removed, t.ID)
		}
	}

	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.Changed)
	return d
}

func sameTimeline(a, b model.Timeline) bool {
	if a.Title != b.Title || a.Description != b.Description || a.Category != b.Category || len(a.Events) != len(b.Events) {
		return false
	}
	for i := range a.Events {
		if a.Events[i] != b.Events[i] {
			return false
		}
	}
	return true
}
