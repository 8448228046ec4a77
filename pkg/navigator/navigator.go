// Package navigator drives the eased "time travel" transition between two
// adjacent events of a timeline.
//
// A Navigator is a two-state machine (Idle, Travelling) stepped by whoever
// owns the frame loop: the bubbletea view steps it from tea.Tick messages and
// Run steps it from a Clock for headless use. A Navigator is not safe for
// concurrent use; exactly one loop may step it.
package navigator

import (
	"math"
	"time"

	"github.com/vanderheijden86/curiousdates/pkg/chrono"
	"github.com/vanderheijden86/curiousdates/pkg/metrics"
	"github.com/vanderheijden86/curiousdates/pkg/model"
)

const (
	// BaseDuration is how long a jump across the timeline's largest gap takes.
	BaseDuration = 3000 * time.Millisecond
	// MinDuration is the fastest any transition runs.
	MinDuration = 1500 * time.Millisecond
	// MaxDuration is the slowest any transition runs.
	MaxDuration = 5000 * time.Millisecond
)

// Phase is the navigator state.
type Phase int

const (
	Idle Phase = iota
	Travelling
)

func (p Phase) String() string {
	if p == Travelling {
		return "travelling"
	}
	return "idle"
}

// Ease is the quintic ease-in-out curve. Input is clamped to [0,1].
func Ease(p float64) float64 {
	switch {
	case p <= 0:
		return 0
	case p >= 1:
		return 1
	case p < 0.5:
		return 16 * p * p * p * p * p
	default:
		return 1 - math.Pow(-2*p+2, 5)/2
	}
}

// PlanDuration scales the jump from start to end against the timeline's
// largest adjacent gap and clamps the result to [MinDuration, MaxDuration].
func PlanDuration(startYear, endYear, maxGap int) time.Duration {
	if maxGap < 1 {
		maxGap = 1
	}
	normalized := float64(chrono.Distance(endYear, startYear)) / float64(maxGap)
	raw := normalized * float64(BaseDuration)
	switch {
	case raw < float64(MinDuration):
		return MinDuration
	case raw > float64(MaxDuration):
		return MaxDuration
	}
	return time.Duration(math.Round(raw))
}

// Plan describes an accepted navigation request.
type Plan struct {
	From      model.TimelineEvent
	To        model.TimelineEvent
	StartYear int
	EndYear   int
	Duration  time.Duration
	StartedAt time.Time
	// Immediate is set when no animation runs and To was committed at once.
	Immediate bool
}

// Frame is one observable step of a transition.
type Frame struct {
	DisplayedYear int
	Progress      float64
	Elapsed       time.Duration
	Done          bool
	// Committed is set only on the final frame of a completed transition.
	Committed *model.TimelineEvent
}

// Navigator owns the current selection and at most one transition.
type Navigator struct {
	phase     Phase
	selection model.TimelineEvent
	plan      Plan
}

// New returns an idle navigator with initial as the selection.
func New(initial model.TimelineEvent) *Navigator {
	return &Navigator{selection: initial}
}

// Phase returns the current state.
func (n *Navigator) Phase() Phase { return n.phase }

// Selection is the committed event. It does not change until a transition
// finishes.
func (n *Navigator) Selection() model.TimelineEvent { return n.selection }

// Current returns the active plan while travelling.
func (n *Navigator) Current() (Plan, bool) {
	if n.phase != Travelling {
		return Plan{}, false
	}
	return n.plan, true
}

// Select replaces the selection outright. It is ignored while travelling.
func (n *Navigator) Select(ev model.TimelineEvent) bool {
	if n.phase == Travelling {
		return false
	}
	n.selection = ev
	return true
}

// Begin starts a transition from one event to another. It returns false and
// changes nothing while a transition is already running: requests are neither
// queued nor allowed to replace the one in flight.
//
// When either year has no digits, or both parse to the same year, the
// target is committed at once and the returned plan is Immediate.
func (n *Navigator) Begin(from, to model.TimelineEvent, maxGap int, now time.Time) (Plan, bool) {
	if n.phase == Travelling {
		return Plan{}, false
	}

	start, okStart := chrono.ParseYearOK(from.Year)
	end, okEnd := chrono.ParseYearOK(to.Year)
	plan := Plan{From: from, To: to, StartYear: start, EndYear: end, StartedAt: now}

	if !okStart || !okEnd || start == end {
		plan.Immediate = true
		n.selection = to
		return plan, true
	}

	plan.Duration = PlanDuration(start, end, maxGap)
	n.plan = plan
	n.phase = Travelling
	metrics.TransitionsRun.Inc()
	return plan, true
}

// Step advances the transition to now. Once progress reaches 1 the target
// becomes the selection, the frame carries it in Committed and the navigator
// returns to Idle. Stepping an idle navigator yields a Done frame holding the
// selection's year and no commit.
func (n *Navigator) Step(now time.Time) Frame {
	if n.phase != Travelling {
		return Frame{DisplayedYear: chrono.ParseYear(n.selection.Year), Progress: 1, Done: true}
	}
	defer metrics.Timer(metrics.TransitionFrame)()

	p := n.plan
	elapsed := now.Sub(p.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	progress := math.Min(float64(elapsed)/float64(p.Duration), 1)

	f := Frame{
		DisplayedYear: Interpolate(p.StartYear, p.EndYear, Ease(progress)),
		Progress:      progress,
		Elapsed:       elapsed,
	}
	if progress >= 1 {
		target := p.To
		n.selection = target
		n.phase = Idle
		n.plan = Plan{}
		f.Done = true
		f.Committed = &target
	}
	return f
}

// Cancel aborts a running transition. The selection stays where it was and
// no commit is emitted for the aborted plan.
func (n *Navigator) Cancel() bool {
	if n.phase != Travelling {
		return false
	}
	n.phase = Idle
	n.plan = Plan{}
	metrics.TransitionsStop.Inc()
	return true
}

// Interpolate returns floor(start + (end-start)*ease), computed in float64 so
// saturated years cannot overflow. The endpoints are returned exactly.
func Interpolate(start, end int, ease float64) int {
	switch {
	case ease <= 0:
		return start
	case ease >= 1:
		return end
	}
	v := math.Floor(float64(start) + (float64(end)-float64(start))*ease)
	switch {
	case v >= math.MaxInt64:
		return math.MaxInt
	case v <= math.MinInt64:
		return math.MinInt
	}
	return int(v)
}
