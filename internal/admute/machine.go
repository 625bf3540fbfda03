// Package admute converts media signals into mute/unmute actions and a
// post-advertisement countdown.
package admute

import (
	"sync"
	"time"

	"github.com/vizmute/vizmute/internal/types"
)

// Controller applies mute state to the system audio sessions.
// *audio.Muter satisfies it.
type Controller interface {
	SetMuted(muted bool)
}

// Event is the result of consuming one media signal. The Just* flags fire
// only on the tick where the transition happens.
type Event struct {
	State             types.DisplayState
	Signal            types.MediaSignal
	JustMuted         bool // An advertisement episode started
	JustUnmuted       bool // The advertisement episode ended
	CountdownFinished bool // The post-ad countdown reached zero
}

// Machine is the advertisement/countdown state machine:
// Blank -> Advertisement (muted) -> Countdown -> Blank.
// It is safe for concurrent use.
type Machine struct {
	ctrl Controller

	mu           sync.Mutex
	inAd         bool
	armed        time.Duration // countdown length armed at ad start
	countdownEnd time.Time     // zero when no countdown is ticking
	state        types.DisplayState
}

// NewMachine creates a machine in the Blank state.
func NewMachine(ctrl Controller) *Machine {
	return &Machine{
		ctrl:  ctrl,
		state: types.DisplayState{Indicator: types.IndicatorNone},
	}
}

// Update consumes one media signal and re-derives the display state.
// countdown is the length to arm for the next post-ad countdown; it is read
// from the configuration snapshot at the moment an advertisement starts.
//
// Mute and unmute are issued only on episode edges, so repeated or
// out-of-order signals with an unchanged advertisement flag cause no
// additional side effects.
func (m *Machine) Update(sig types.MediaSignal, countdown time.Duration, now time.Time) Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	event := Event{Signal: sig}

	if sig.IsAdvertisement {
		if !m.inAd {
			m.inAd = true
			m.armed = countdown
			m.countdownEnd = time.Time{}
			event.JustMuted = true
			m.ctrl.SetMuted(true)
		}
		m.state = types.DisplayState{Muted: true, Indicator: types.IndicatorAdvertisement}
		event.State = m.state
		return event
	}

	if m.inAd {
		// Advertisement just ended: unmute once and start the armed
		// countdown from the current wall clock.
		m.inAd = false
		event.JustUnmuted = true
		m.ctrl.SetMuted(false)
		if m.armed > 0 {
			m.countdownEnd = now.Add(m.armed)
		}
	}

	if !m.countdownEnd.IsZero() {
		remaining := m.countdownEnd.Sub(now)
		if remaining <= 0 {
			m.countdownEnd = time.Time{}
			event.CountdownFinished = true
		} else {
			m.state = types.DisplayState{
				Indicator:        types.IndicatorCountdown,
				RemainingSeconds: int64((remaining + time.Second - 1) / time.Second),
			}
			event.State = m.state
			return event
		}
	}

	m.state = types.DisplayState{Indicator: types.IndicatorNone}
	event.State = m.state
	return event
}

// State returns the most recently derived display state.
func (m *Machine) State() types.DisplayState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ForceMute mutes immediately without touching machine state. The automatic
// machine wins again on its next natural transition.
func (m *Machine) ForceMute() {
	m.ctrl.SetMuted(true)
}

// ForceUnmute unmutes immediately without touching machine state.
func (m *Machine) ForceUnmute() {
	m.ctrl.SetMuted(false)
}
