package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestTimingMetric_Record(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("test")
	m.Record(2 * time.Millisecond)
	m.Record(4 * time.Millisecond)

	s := m.Stats()
	if s.Count != 2 {
		t.Fatalf("Count = %d, want 2", s.Count)
	}
	if s.MinMs != 2 || s.MaxMs != 4 || s.AvgMs != 3 {
		t.Errorf("unexpected stats %+v", s)
	}

	m.Reset()
	if m.Count() != 0 {
		t.Errorf("Reset left count %d", m.Count())
	}
}

func TestTimingMetric_Concurrent(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("concurrent")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Record(time.Microsecond)
		}()
	}
	wg.Wait()
	if m.Count() != 50 {
		t.Errorf("Count = %d, want 50", m.Count())
	}
}

func TestDisabledIsNoop(t *testing.T) {
	SetEnabled(false)
	defer SetEnabled(true)

	m := newTimingMetric("off")
	Timer(m)()
	m.Record(time.Second)
	c := newCounter("off")
	c.Inc()
	if m.Count() != 0 || c.Value() != 0 {
		t.Errorf("disabled metrics recorded data: %d %d", m.Count(), c.Value())
	}
}

func TestAllTimingStats_OnlyWithData(t *testing.T) {
	SetEnabled(true)
	ResetAll()
	defer ResetAll()

	ParallelSearch.Record(time.Millisecond)
	stats := AllTimingStats()
	if len(stats) != 1 || stats[0].Name != "parallel_search" {
		t.Errorf("AllTimingStats = %+v", stats)
	}

	Reloads.Inc()
	vals := AllCounterValues()
	if len(vals) != 1 || vals[0].Name != "timeline_reloads" || vals[0].Value != 1 {
		t.Errorf("AllCounterValues = %+v", vals)
	}
}
