// Package engine orchestrates the producer/consumer pipelines: it starts
// and stops the background producers, owns the bounded queues, and runs
// the single consumer loop that advances smoothing and the ad state
// machine at the configured frame rate.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vizmute/vizmute/internal/admute"
	"github.com/vizmute/vizmute/internal/audio"
	"github.com/vizmute/vizmute/internal/config"
	"github.com/vizmute/vizmute/internal/media"
	"github.com/vizmute/vizmute/internal/pipeline"
	"github.com/vizmute/vizmute/internal/types"
)

// SignalQueueSize bounds the media signal queue. The channel is low-volume;
// the producer may block briefly when it is full.
const SignalQueueSize = 16

// EventSink receives state machine events for notification fan-out.
type EventSink interface {
	HandleEvent(event admute.Event)
	HandleSourceTerminated(err error)
}

// RenderState is what the renderer receives once per consumer tick.
type RenderState struct {
	Frame      types.AmplitudeFrame `json:"frame"`
	Display    types.DisplayState   `json:"display"`
	NowPlaying types.NowPlaying     `json:"now_playing"`
}

// Engine wires the sampler, smoothing pipeline, media source and ad state
// machine together. Producers run on their own goroutines; a single
// engine-owned consumer loop drives both pipelines at the configured frame
// rate, independent of any attached renderer.
type Engine struct {
	cfg      *config.Config
	sampler  *audio.Sampler
	smoother *pipeline.Smoother
	machine  *admute.Machine
	source   media.Source
	sink     EventSink

	signals chan types.MediaSignal

	mu         sync.Mutex
	nowPlaying types.NowPlaying
	display    types.DisplayState
	sourceErr  error

	cancel       context.CancelFunc
	mediaDone    chan struct{}
	consumerDone chan struct{}
	started      bool
}

// New creates an engine over the given components.
func New(cfg *config.Config, sampler *audio.Sampler, machine *admute.Machine, source media.Source, sink EventSink) *Engine {
	return &Engine{
		cfg:      cfg,
		sampler:  sampler,
		smoother: pipeline.NewSmoother(sampler.Frames(), cfg.Snapshot().BarCount),
		machine:  machine,
		source:   source,
		sink:     sink,
		signals:  make(chan types.MediaSignal, SignalQueueSize),
		display:  types.DisplayState{Indicator: types.IndicatorNone},
	}
}

// Start launches the level sampler, the media polling goroutine, and the
// consumer tick loop.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return audio.ErrAlreadyRunning
	}

	if err := e.sampler.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.mediaDone = make(chan struct{})
	e.consumerDone = make(chan struct{})
	e.started = true

	go e.runMediaLoop(ctx, e.mediaDone)
	go e.runConsumerLoop(ctx, e.consumerDone)
	return nil
}

// Stop shuts down the producers and the consumer loop cooperatively,
// bounded by the shutdown timeout. A goroutine that fails to exit in time
// is logged and leaked, not a crash.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return audio.ErrNotRunning
	}
	e.started = false
	cancel := e.cancel
	mediaDone := e.mediaDone
	consumerDone := e.consumerDone
	e.mu.Unlock()

	cancel()
	stopped := make(chan struct{})
	go func() {
		<-mediaDone
		<-consumerDone
		close(stopped)
	}()
	select {
	case <-stopped:
		slog.Info("media source and consumer loop stopped")
	case <-time.After(types.ShutdownTimeout):
		slog.Warn("engine loops did not stop in time")
	}

	return e.sampler.Stop()
}

// runMediaLoop polls the media source and pushes signals into the bounded
// queue. A terminal source error ends the loop after its sentinel signal is
// delivered; no producer failure ever propagates to the consumer loop.
func (e *Engine) runMediaLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	slog.Info("media source started")

	for {
		signal, err := e.source.Poll(ctx)

		select {
		case e.signals <- signal:
		case <-ctx.Done():
			return
		}

		if err != nil {
			slog.Error("media source terminated", "error", err)
			e.mu.Lock()
			e.sourceErr = err
			e.mu.Unlock()
			if e.sink != nil {
				e.sink.HandleSourceTerminated(err)
			}
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(e.source.Interval()):
		}
	}
}

// runConsumerLoop drives the consumer side of both pipelines at the
// configured frame rate, whether or not any renderer is attached. The
// ticker is rebuilt when the update rate changes.
func (e *Engine) runConsumerLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	period := e.cfg.Snapshot().FramePeriod()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if p := e.cfg.Snapshot().FramePeriod(); p != period {
				period = p
				ticker.Reset(period)
			}
			e.tickVisual()
			e.tickMedia(now)
		}
	}
}

// tickVisual advances the smoothing pipeline one step.
func (e *Engine) tickVisual() {
	snap := e.cfg.Snapshot()
	e.mu.Lock()
	e.smoother.Tick(snap.BarCount, snap.Smoothing)
	e.mu.Unlock()
}

// tickMedia consumes all pending media signals through the state machine.
func (e *Engine) tickMedia(now time.Time) {
	snap := e.cfg.Snapshot()
	countdown := time.Duration(snap.CountdownSeconds) * time.Second

	for {
		select {
		case signal := <-e.signals:
			event := e.machine.Update(signal, countdown, now)
			e.apply(event)
		default:
			return
		}
	}
}

// apply records the event's display state, tracks the current track, and
// fans the event out to the notification sink.
func (e *Engine) apply(event admute.Event) {
	e.mu.Lock()
	e.display = event.State
	changed := event.Signal.Title != e.nowPlaying.Title || event.Signal.Artist != e.nowPlaying.Artist
	if changed {
		e.nowPlaying = types.NowPlaying{Title: event.Signal.Title, Artist: event.Signal.Artist}
	}
	e.mu.Unlock()

	if changed {
		slog.Info("media changed", "title", event.Signal.Title, "artist", event.Signal.Artist,
			"advertisement", event.Signal.IsAdvertisement)
	}
	if e.sink != nil {
		e.sink.HandleEvent(event)
	}
}

// RenderState returns the current render state without advancing anything.
func (e *Engine) RenderState() RenderState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return RenderState{
		Frame:      e.smoother.Current(),
		Display:    e.display,
		NowPlaying: e.nowPlaying,
	}
}

// ForceMute applies a manual mute, orthogonal to the automatic machine.
func (e *Engine) ForceMute() { e.machine.ForceMute() }

// ForceUnmute applies a manual unmute, orthogonal to the automatic machine.
func (e *Engine) ForceUnmute() { e.machine.ForceUnmute() }

// SourceErr returns the terminal media source error, if any.
func (e *Engine) SourceErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sourceErr
}
