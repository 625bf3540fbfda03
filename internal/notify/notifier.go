package notify

import (
	"log/slog"

	"github.com/vizmute/vizmute/internal/admute"
	"github.com/vizmute/vizmute/internal/config"
	"github.com/vizmute/vizmute/internal/eventlog"
	"github.com/vizmute/vizmute/internal/types"
)

// Notifier fans advertisement state machine events out to the configured
// channels. Edge events fire once per episode, so every notification is
// sent at most once per advertisement.
type Notifier struct {
	cfg    *config.Config
	events *eventlog.Logger // nil when the event log is disabled
}

// NewNotifier returns a Notifier over the given config and event logger.
// events may be nil.
func NewNotifier(cfg *config.Config, events *eventlog.Logger) *Notifier {
	return &Notifier{cfg: cfg, events: events}
}

// HandleEvent processes one state machine event.
func (n *Notifier) HandleEvent(event admute.Event) {
	switch {
	case event.JustMuted:
		slog.Info("advertisement detected, muting",
			"title", event.Signal.Title, "artist", event.Signal.Artist)
		n.dispatchAd(eventlog.AdStarted, "ad_started", event.Signal)
	case event.JustUnmuted:
		slog.Info("advertisement ended, unmuting")
		n.dispatchAd(eventlog.AdEnded, "ad_ended", event.Signal)
	case event.CountdownFinished:
		slog.Info("post-advertisement countdown finished")
		n.logEvent(eventlog.CountdownFinished, "", "")
	}
}

// HandleSourceTerminated records the media source's terminal failure in the
// event log.
func (n *Notifier) HandleSourceTerminated(err error) {
	if n.events == nil {
		return
	}
	if logErr := n.events.Log(&eventlog.Event{Type: eventlog.SourceTerminated, Message: err.Error()}); logErr != nil {
		slog.Warn("event log write failed", "type", eventlog.SourceTerminated, "error", logErr)
	}
}

// dispatchAd sends the webhook asynchronously and appends to the event log.
func (n *Notifier) dispatchAd(logType eventlog.EventType, webhookEvent string, sig types.MediaSignal) {
	snap := n.cfg.Snapshot()
	if snap.HasWebhook() {
		go func() {
			if err := SendAdWebhook(snap.WebhookURL, webhookEvent, sig.Title, sig.Artist); err != nil {
				slog.Warn("webhook delivery failed", "event", webhookEvent, "error", err)
			}
		}()
	}
	n.logEvent(logType, sig.Title, sig.Artist)
}

func (n *Notifier) logEvent(logType eventlog.EventType, title, artist string) {
	if n.events == nil {
		return
	}
	if err := n.events.LogAd(logType, title, artist); err != nil {
		slog.Warn("event log write failed", "type", logType, "error", err)
	}
}
