// Package correlation surfaces content related to the event a user is viewing.
//
// Two independent searches run over the whole working set:
//
//   - FindParallels matches events in other timelines by approximate year.
//   - FindRelated scores events anywhere by shared significant words.
//
// Both are pure and recomputed on every call. The cost is
// O(events × description length), fine for tens to hundreds of events; there
// is no index to keep in sync.
package correlation

import (
	"math"

	"github.com/vanderheijden86/curiousdates/pkg/chrono"
	"github.com/vanderheijden86/curiousdates/pkg/metrics"
	"github.com/vanderheijden86/curiousdates/pkg/model"
)

const (
	// MaxParallels caps FindParallels results.
	MaxParallels = 2
	// ParallelTolerance is the fraction of |year| that still counts as "the same time".
	ParallelTolerance = 0.02
)

// Parallel is an event from another timeline that happened at about the same time.
type Parallel struct {
	Timeline model.Timeline      `json:"-"`
	Event    model.TimelineEvent `json:"event"`
}

// TimelineID is the id of the timeline holding the parallel event.
func (p Parallel) TimelineID() string { return p.Timeline.ID }

// Threshold returns the year tolerance around year: 2% of |year|, at least 1.
func Threshold(year int) float64 {
	return math.Max(1, math.Abs(float64(year))*ParallelTolerance)
}

// FindParallels returns at most two events from timelines other than
// homeTimelineID whose parsed year lies within Threshold of the event's year.
//
// Results are the first two found scanning timelines in working-set order and
// events in timeline order. They are not sorted by closeness.
func FindParallels(event model.TimelineEvent, homeTimelineID string, ws model.WorkingSet) []Parallel {
	defer metrics.Timer(metrics.ParallelSearch)()

	current := chrono.ParseYear(event.Year)
	threshold := Threshold(current)

	var out []Parallel
	for _, tl := range ws {
		if tl.ID == homeTimelineID {
			continue
		}
		for _, ev := range tl.Events {
			evYear := chrono.ParseYear(ev.Year)
			if float64(chrono.Distance(evYear, current)) > threshold {
				continue
			}
			out = append(out, Parallel{Timeline: tl, Event: ev})
			if len(out) == MaxParallels {
				return out
			}
		}
	}
	return out
}
