// Package pipeline provides the amplitude smoothing pipeline between the
// level sampler and the renderer.
package pipeline

import (
	"log/slog"
	"sync"

	"github.com/vizmute/vizmute/internal/types"
)

// Smoother consumes amplitude frames from a bounded queue and maintains a
// temporally smoothed vector using a discrete exponential moving average.
// It is safe for concurrent use.
type Smoother struct {
	frames <-chan types.AmplitudeFrame

	mu      sync.Mutex
	current types.AmplitudeFrame
	target  types.AmplitudeFrame
}

// NewSmoother creates a smoother over the given frame queue, initialized to
// an all-zero vector of the given bar count.
func NewSmoother(frames <-chan types.AmplitudeFrame, bars int) *Smoother {
	return &Smoother{
		frames:  frames,
		current: types.ZeroFrame(bars),
		target:  types.ZeroFrame(bars),
	}
}

// Tick drains all pending frames keeping only the newest as the target,
// applies one smoothing step with the given factor, and returns a copy of
// the smoothed vector.
//
// A malformed bar count or a stale frame of the wrong size never aborts the
// tick; the pipeline falls back to its last-known-good state.
func (s *Smoother) Tick(bars int, alpha float64) types.AmplitudeFrame {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bars < 1 {
		slog.Warn("ignoring invalid bar count", "bars", bars)
		bars = len(s.current)
	}
	if bars != len(s.current) {
		// Resizing discards smoothing state; old values are not
		// interpolated onto the new shape.
		s.current = types.ZeroFrame(bars)
		s.target = types.ZeroFrame(bars)
	}

	s.drainLatest(bars)

	for i := range s.current {
		s.current[i] = alpha*s.current[i] + (1-alpha)*s.target[i]
	}
	return s.current.Clone()
}

// drainLatest empties the queue and keeps only the most recently enqueued
// frame that matches the current bar count. Caller must hold s.mu.
func (s *Smoother) drainLatest(bars int) {
	var latest types.AmplitudeFrame
	for {
		select {
		case frame := <-s.frames:
			if len(frame) == bars {
				latest = frame
			}
		default:
			if latest != nil {
				s.target = latest
			}
			return
		}
	}
}

// Current returns a copy of the current smoothed vector.
func (s *Smoother) Current() types.AmplitudeFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}
