package metrics

import "sync/atomic"

// Counter is a monotonically increasing event count.
type Counter struct {
	name  string
	value atomic.Int64
}

func newCounter(name string) *Counter {
	return &Counter{name: name}
}

// Inc adds one to the counter.
func (c *Counter) Inc() {
	if !Enabled() {
		return
	}
	c.value.Add(1)
}

// Name returns the counter name.
func (c *Counter) Name() string { return c.name }

// Value returns the current count.
func (c *Counter) Value() int64 { return c.value.Load() }

// Reset sets the counter back to zero.
func (c *Counter) Reset() { c.value.Store(0) }

// Counters.
var (
	AIFailures      = newCounter("ai_failures")
	BreakerRejected = newCounter("ai_breaker_rejected")
	Reloads         = newCounter("timeline_reloads")
	TransitionsRun  = newCounter("transitions_run")
	TransitionsStop = newCounter("transitions_cancelled")
)

// AllCounters returns all registered counters.
func AllCounters() []*Counter {
	return []*Counter{AIFailures, BreakerRejected, Reloads, TransitionsRun, TransitionsStop}
}

// CounterSnapshot is a name/value pair for reporting.
type CounterSnapshot struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// AllCounterValues returns the non-zero counters.
func AllCounterValues() []CounterSnapshot {
	var out []CounterSnapshot
	for _, c := range AllCounters() {
		if v := c.Value(); v > 0 {
			out = append(out, CounterSnapshot{Name: c.name, Value: v})
		}
	}
	return out
}
