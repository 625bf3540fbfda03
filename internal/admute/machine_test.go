package admute

import (
	"testing"
	"time"

	"github.com/vizmute/vizmute/internal/types"
)

// recordingController records every mute call in order.
type recordingController struct {
	calls []bool
}

func (c *recordingController) SetMuted(muted bool) {
	c.calls = append(c.calls, muted)
}

func ad(title string) types.MediaSignal {
	return types.MediaSignal{Title: title, IsAdvertisement: true}
}

func track(title string) types.MediaSignal {
	return types.MediaSignal{Title: title}
}

func TestAdEpisodeMutesOnceAndUnmutesOnce(t *testing.T) {
	ctrl := &recordingController{}
	m := NewMachine(ctrl)
	now := time.Now()

	e := m.Update(ad("Spot"), 0, now)
	if !e.JustMuted {
		t.Error("first ad signal should report JustMuted")
	}
	if !e.State.Muted || e.State.Indicator != types.IndicatorAdvertisement {
		t.Errorf("unexpected state during ad: %+v", e.State)
	}

	// Repeated ad signals are idempotent.
	for i := 0; i < 3; i++ {
		e = m.Update(ad("Spot"), 0, now)
		if e.JustMuted {
			t.Errorf("repeat ad signal %d reported JustMuted again", i)
		}
	}

	e = m.Update(track("Song"), 0, now)
	if !e.JustUnmuted {
		t.Error("first non-ad signal should report JustUnmuted")
	}
	if e.State.Muted {
		t.Errorf("still muted after ad ended: %+v", e.State)
	}

	want := []bool{true, false}
	if len(ctrl.calls) != len(want) {
		t.Fatalf("controller called %d times (%v), want %v", len(ctrl.calls), ctrl.calls, want)
	}
	for i := range want {
		if ctrl.calls[i] != want[i] {
			t.Errorf("call %d = %v, want %v", i, ctrl.calls[i], want[i])
		}
	}
}

func TestCountdownStartsWhenAdEnds(t *testing.T) {
	m := NewMachine(&recordingController{})
	now := time.Now()

	m.Update(ad("Spot"), 90*time.Second, now)
	e := m.Update(track("Song"), 90*time.Second, now)

	if e.State.Indicator != types.IndicatorCountdown {
		t.Fatalf("indicator = %v, want countdown", e.State.Indicator)
	}
	if e.State.RemainingSeconds != 90 {
		t.Errorf("remaining = %d, want 90", e.State.RemainingSeconds)
	}
}

func TestCountdownCountsDownAndFinishesOnce(t *testing.T) {
	m := NewMachine(&recordingController{})
	start := time.Now()

	m.Update(ad("Spot"), 10*time.Second, start)
	m.Update(track("Song"), 10*time.Second, start)

	e := m.Update(track("Song"), 10*time.Second, start.Add(4*time.Second))
	if e.State.RemainingSeconds != 6 {
		t.Errorf("remaining after 4s = %d, want 6", e.State.RemainingSeconds)
	}

	e = m.Update(track("Song"), 10*time.Second, start.Add(10*time.Second))
	if !e.CountdownFinished {
		t.Error("countdown should finish at its deadline")
	}
	if e.State.Indicator != types.IndicatorNone {
		t.Errorf("indicator after countdown = %v, want none", e.State.Indicator)
	}

	e = m.Update(track("Song"), 10*time.Second, start.Add(11*time.Second))
	if e.CountdownFinished {
		t.Error("CountdownFinished fired twice")
	}
}

func TestCountdownRemainingRoundsUp(t *testing.T) {
	m := NewMachine(&recordingController{})
	start := time.Now()

	m.Update(ad("Spot"), 10*time.Second, start)
	m.Update(track("Song"), 10*time.Second, start)

	// 9.5s remaining must display as 10, not 9.
	e := m.Update(track("Song"), 10*time.Second, start.Add(500*time.Millisecond))
	if e.State.RemainingSeconds != 10 {
		t.Errorf("remaining = %d, want 10", e.State.RemainingSeconds)
	}
}

func TestNewAdCancelsRunningCountdown(t *testing.T) {
	m := NewMachine(&recordingController{})
	start := time.Now()

	m.Update(ad("Spot"), 60*time.Second, start)
	m.Update(track("Song"), 60*time.Second, start)

	e := m.Update(ad("Spot 2"), 60*time.Second, start.Add(5*time.Second))
	if e.State.Indicator != types.IndicatorAdvertisement {
		t.Fatalf("indicator = %v, want advertisement", e.State.Indicator)
	}

	// The countdown restarts fresh when the new ad ends.
	e = m.Update(track("Song 2"), 60*time.Second, start.Add(20*time.Second))
	if e.State.RemainingSeconds != 60 {
		t.Errorf("remaining = %d, want a fresh 60", e.State.RemainingSeconds)
	}
}

func TestZeroCountdownSkipsCountdownPhase(t *testing.T) {
	m := NewMachine(&recordingController{})
	now := time.Now()

	m.Update(ad("Spot"), 0, now)
	e := m.Update(track("Song"), 0, now)

	if e.State.Indicator != types.IndicatorNone {
		t.Errorf("indicator = %v, want none with zero countdown", e.State.Indicator)
	}
}

func TestCountdownLengthArmedAtAdStart(t *testing.T) {
	m := NewMachine(&recordingController{})
	now := time.Now()

	// Config changes mid-ad: the length armed at ad start wins.
	m.Update(ad("Spot"), 120*time.Second, now)
	e := m.Update(track("Song"), 30*time.Second, now)

	if e.State.RemainingSeconds != 120 {
		t.Errorf("remaining = %d, want the armed 120", e.State.RemainingSeconds)
	}
}

func TestForceMuteBypassesMachineState(t *testing.T) {
	ctrl := &recordingController{}
	m := NewMachine(ctrl)
	now := time.Now()

	m.ForceMute()
	if len(ctrl.calls) != 1 || ctrl.calls[0] != true {
		t.Fatalf("ForceMute calls = %v, want [true]", ctrl.calls)
	}

	// An ad starting afterwards still issues its own mute edge: the manual
	// action did not consume the automatic transition.
	e := m.Update(ad("Spot"), 0, now)
	if !e.JustMuted {
		t.Error("ad start after ForceMute should still report JustMuted")
	}

	m.ForceUnmute()
	if last := ctrl.calls[len(ctrl.calls)-1]; last != false {
		t.Errorf("last call = %v, want false after ForceUnmute", last)
	}
	if st := m.State(); !st.Muted {
		t.Errorf("ForceUnmute changed machine state: %+v", st)
	}
}
