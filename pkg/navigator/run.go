package navigator

import (
	"context"
	"time"

	"github.com/vanderheijden86/curiousdates/pkg/metrics"
)

// DefaultFrameInterval is roughly one frame at 60Hz.
const DefaultFrameInterval = 16 * time.Millisecond

// Clock abstracts time so the step loop can be driven by tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// RealClock is the wall clock. time.Now carries a monotonic reading, so
// elapsed times are immune to wall-clock jumps.
type RealClock struct{}

func (RealClock) Now() time.Time                         { return time.Now() }
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Run steps nav every interval until the running transition commits or ctx is
// cancelled, sending each frame on the returned channel. The channel is closed
// when the loop ends. Cancellation is checked before every step, so once ctx
// is done no further frame (and in particular no commit) is sent, and the
// navigator is returned to Idle.
//
// If nav is idle when Run is called the channel is closed immediately.
func Run(ctx context.Context, nav *Navigator, clock Clock, interval time.Duration) <-chan Frame {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	if clock == nil {
		clock = RealClock{}
	}
	frames := make(chan Frame)

	go func() {
		defer close(frames)
		if nav.Phase() != Travelling {
			return
		}
		for {
			if ctx.Err() != nil {
				nav.Cancel()
				return
			}
			prev := nav.Selection()
			f := nav.Step(clock.Now())
			select {
			case frames <- f:
			case <-ctx.Done():
				if f.Committed != nil {
					// Undelivered commit: undo it.
					nav.selection = prev
					metrics.TransitionsStop.Inc()
				} else {
					nav.Cancel()
				}
				return
			}
			if f.Done {
				return
			}
			select {
			case <-clock.After(interval):
			case <-ctx.Done():
				nav.Cancel()
				return
			}
		}
	}()
	return frames
}
