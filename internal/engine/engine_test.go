package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/vizmute/vizmute/internal/admute"
	"github.com/vizmute/vizmute/internal/audio"
	"github.com/vizmute/vizmute/internal/config"
	"github.com/vizmute/vizmute/internal/types"
)

// scriptedSource replays a fixed signal sequence, then either repeats the
// last signal or fails terminally.
type scriptedSource struct {
	mu       sync.Mutex
	signals  []types.MediaSignal
	idx      int
	terminal error
}

func (s *scriptedSource) Poll(_ context.Context) (types.MediaSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idx < len(s.signals) {
		sig := s.signals[s.idx]
		s.idx++
		if s.idx == len(s.signals) && s.terminal != nil {
			return sig, s.terminal
		}
		return sig, nil
	}
	return s.signals[len(s.signals)-1], nil
}

func (s *scriptedSource) Interval() time.Duration { return time.Millisecond }

// captureSink records all events it receives.
type captureSink struct {
	mu       sync.Mutex
	events   []admute.Event
	terminal error
}

func (c *captureSink) HandleEvent(event admute.Event) {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
}

func (c *captureSink) HandleSourceTerminated(err error) {
	c.mu.Lock()
	c.terminal = err
	c.mu.Unlock()
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *captureSink) terminalErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminal
}

// nopController discards mute calls.
type nopController struct{}

func (nopController) SetMuted(bool) {}

// recordingController captures every mute transition.
type recordingController struct {
	mu    sync.Mutex
	calls []bool
}

func (c *recordingController) SetMuted(muted bool) {
	c.mu.Lock()
	c.calls = append(c.calls, muted)
	c.mu.Unlock()
}

func (c *recordingController) recorded() []bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bool(nil), c.calls...)
}

func newTestEngine(t *testing.T, source *scriptedSource, ctrl admute.Controller, sink EventSink) *Engine {
	t.Helper()
	if ctrl == nil {
		ctrl = nopController{}
	}
	cfg := config.New(filepath.Join(t.TempDir(), "config.json"))
	sampler := audio.NewSampler(cfg, audio.NewSyntheticLister(), audio.RandomShaper{})
	machine := admute.NewMachine(ctrl)
	return New(cfg, sampler, machine, source, sink)
}

// waitUntil polls cond until it holds or the deadline passes. The engine's
// own consumer loop does all the ticking; tests only observe.
func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestEngineDrivesAdEpisodeThroughMachine(t *testing.T) {
	source := &scriptedSource{signals: []types.MediaSignal{
		{Title: "Song", Artist: "Band"},
		{Title: "Spot", IsAdvertisement: true},
		{Title: "Next Song", Artist: "Band"},
	}}
	sink := &captureSink{}
	eng := newTestEngine(t, source, nil, sink)

	if err := eng.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = eng.Stop() }()

	waitUntil(t, func() bool { return sink.count() >= 3 })

	sink.mu.Lock()
	defer sink.mu.Unlock()

	var muted, unmuted int
	for _, e := range sink.events {
		if e.JustMuted {
			muted++
		}
		if e.JustUnmuted {
			unmuted++
		}
	}
	if muted != 1 || unmuted != 1 {
		t.Errorf("muted=%d unmuted=%d, want exactly one each", muted, unmuted)
	}
}

func TestEngineMutesWithoutAttachedRenderer(t *testing.T) {
	// No render loop, no WebSocket client: the engine alone must still
	// consume ad signals and drive the mute.
	source := &scriptedSource{signals: []types.MediaSignal{
		{Title: "Spot", IsAdvertisement: true},
	}}
	ctrl := &recordingController{}
	eng := newTestEngine(t, source, ctrl, nil)

	if err := eng.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = eng.Stop() }()

	waitUntil(t, func() bool { return len(ctrl.recorded()) >= 1 })

	calls := ctrl.recorded()
	if !calls[0] {
		t.Errorf("first controller call = unmute, want mute")
	}
	for _, muted := range calls {
		if !muted {
			t.Errorf("controller calls %v contain an unmute during a continuous ad", calls)
		}
	}
	if display := eng.RenderState().Display; !display.Muted {
		t.Errorf("display %+v, want muted", display)
	}
}

func TestEngineRecordsTerminalSourceError(t *testing.T) {
	terminal := errors.New("credentials revoked")
	source := &scriptedSource{
		signals:  []types.MediaSignal{{Title: types.AuthErrorTitle, IsAdvertisement: true}},
		terminal: terminal,
	}
	sink := &captureSink{}
	eng := newTestEngine(t, source, nil, sink)

	if err := eng.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = eng.Stop() }()

	// The sentinel signal is delivered before the loop exits, so the
	// display ends up muted even though the producer is gone.
	waitUntil(t, func() bool { return eng.SourceErr() != nil })
	waitUntil(t, func() bool { return eng.RenderState().Display.Muted })

	if !errors.Is(eng.SourceErr(), terminal) {
		t.Errorf("SourceErr = %v, want the terminal error", eng.SourceErr())
	}
	if !errors.Is(sink.terminalErr(), terminal) {
		t.Errorf("sink received %v, want the terminal error", sink.terminalErr())
	}
}

func TestEngineLifecycle(t *testing.T) {
	source := &scriptedSource{signals: []types.MediaSignal{{Title: "Song"}}}
	eng := newTestEngine(t, source, nil, nil)

	if err := eng.Stop(); !errors.Is(err, audio.ErrNotRunning) {
		t.Errorf("Stop before Start = %v, want ErrNotRunning", err)
	}
	if err := eng.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := eng.Start(); !errors.Is(err, audio.ErrAlreadyRunning) {
		t.Errorf("second Start = %v, want ErrAlreadyRunning", err)
	}
	if err := eng.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestEngineSmoothsFramesOnItsOwnCadence(t *testing.T) {
	source := &scriptedSource{signals: []types.MediaSignal{{Title: "Song"}}}
	eng := newTestEngine(t, source, nil, nil)

	if err := eng.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = eng.Stop() }()

	waitUntil(t, func() bool {
		frame := eng.RenderState().Frame
		if len(frame) != config.DefaultBarCount {
			t.Fatalf("frame has %d bars, want %d", len(frame), config.DefaultBarCount)
		}
		for _, v := range frame {
			if v > 0 {
				return true // smoothing picked up real sampler output
			}
		}
		return false
	})
}

func TestEngineRenderStateReflectsNowPlaying(t *testing.T) {
	source := &scriptedSource{signals: []types.MediaSignal{{Title: "Blue Train", Artist: "John Coltrane"}}}
	eng := newTestEngine(t, source, nil, nil)

	if err := eng.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = eng.Stop() }()

	waitUntil(t, func() bool { return eng.RenderState().NowPlaying.Title == "Blue Train" })

	state := eng.RenderState()
	if state.NowPlaying.Artist != "John Coltrane" {
		t.Errorf("NowPlaying = %+v", state.NowPlaying)
	}
}
