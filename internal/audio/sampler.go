package audio

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vizmute/vizmute/internal/config"
	"github.com/vizmute/vizmute/internal/types"
)

// FrameQueueSize bounds the amplitude queue between the sampling goroutine
// and the consumer tick. On overflow the oldest unread frame is dropped:
// recency beats completeness for a live display.
const FrameQueueSize = 8

// Sentinel errors for sampler lifecycle operations.
var (
	ErrAlreadyRunning = errors.New("sampler already running")
	ErrNotRunning     = errors.New("sampler not running")
)

// Sampler reads session peak levels on its own goroutine at the configured
// frame rate and emits one AmplitudeFrame per tick.
type Sampler struct {
	cfg    *config.Config
	lister SessionLister
	shaper FrameShaper
	frames chan types.AmplitudeFrame

	mu       sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// NewSampler creates a sampler reading from the given session lister.
func NewSampler(cfg *config.Config, lister SessionLister, shaper FrameShaper) *Sampler {
	return &Sampler{
		cfg:    cfg,
		lister: lister,
		shaper: shaper,
		frames: make(chan types.AmplitudeFrame, FrameQueueSize),
	}
}

// Frames returns the bounded output queue of amplitude frames.
func (s *Sampler) Frames() <-chan types.AmplitudeFrame {
	return s.frames
}

// Start begins the sampling loop on a new goroutine.
func (s *Sampler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopChan != nil {
		return ErrAlreadyRunning
	}
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(s.stopChan, s.done)
	return nil
}

// Stop requests termination and waits for the sampling goroutine to exit,
// bounded by types.ShutdownTimeout. A timeout is logged, not fatal.
func (s *Sampler) Stop() error {
	s.mu.Lock()
	if s.stopChan == nil {
		s.mu.Unlock()
		return ErrNotRunning
	}
	close(s.stopChan)
	s.stopChan = nil
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
		slog.Info("sampler stopped")
	case <-time.After(types.ShutdownTimeout):
		slog.Warn("sampler did not stop in time")
	}
	return nil
}

// run is the sampling loop. The stop flag is polled once per iteration.
func (s *Sampler) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	slog.Info("sampler started")

	for {
		snap := s.cfg.Snapshot()
		s.sampleOnce(snap.BarCount)

		select {
		case <-stop:
			return
		case <-time.After(time.Second / time.Duration(snap.UpdateRate)):
		}
	}
}

// sampleOnce reads all session peaks and emits one frame. Per-session read
// failures are logged and skipped; they never abort the tick.
func (s *Sampler) sampleOnce(bars int) {
	sessions, err := s.lister.Sessions()
	if err != nil {
		slog.Debug("session enumeration failed", "error", err)
		s.emit(types.ZeroFrame(bars))
		return
	}

	maxPeak := -1.0
	for _, session := range sessions {
		peak, err := session.Peak()
		if err != nil {
			slog.Debug("failed to read session meter", "session", session.Name(), "error", err)
			continue
		}
		if peak > maxPeak {
			maxPeak = peak
		}
	}

	if maxPeak < 0 {
		// No session yielded a readable level.
		s.emit(types.ZeroFrame(bars))
		return
	}
	s.emit(s.shaper.Shape(bars, maxPeak))
}

// emit enqueues a frame, dropping the oldest unread frame when full.
func (s *Sampler) emit(frame types.AmplitudeFrame) {
	select {
	case s.frames <- frame:
		return
	default:
	}

	select {
	case <-s.frames:
	default:
	}
	select {
	case s.frames <- frame:
	default:
	}
}
