package audio

import (
	"math"
	"sync"
	"time"
)

// SyntheticLister is a SessionLister that fabricates a single session with a
// slowly pulsing peak level. It stands in for real OS session enumeration on
// platforms where none is wired up, and in development.
type SyntheticLister struct {
	start    time.Time
	mu       sync.Mutex
	muted    bool
	sessions []Session
}

// NewSyntheticLister returns a lister with one synthetic session.
func NewSyntheticLister() *SyntheticLister {
	l := &SyntheticLister{start: time.Now()}
	l.sessions = []Session{&syntheticSession{lister: l}}
	return l
}

// Sessions returns the synthetic session set.
func (l *SyntheticLister) Sessions() ([]Session, error) {
	return l.sessions, nil
}

// Muted reports whether the synthetic session is muted.
func (l *SyntheticLister) Muted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.muted
}

type syntheticSession struct {
	lister *SyntheticLister
}

func (s *syntheticSession) Name() string { return "synthetic" }

// Peak pulses between 0 and 1 with a ~4 second period, zero while muted.
func (s *syntheticSession) Peak() (float64, error) {
	s.lister.mu.Lock()
	muted := s.lister.muted
	s.lister.mu.Unlock()
	if muted {
		return 0, nil
	}
	elapsed := time.Since(s.lister.start).Seconds()
	return math.Abs(math.Sin(elapsed * math.Pi / 2)), nil
}

func (s *syntheticSession) SetMute(muted bool) error {
	s.lister.mu.Lock()
	s.lister.muted = muted
	s.lister.mu.Unlock()
	return nil
}
