package audio

import (
	"log/slog"
	"sync"
)

// Muter mutes and unmutes all system audio sessions. Failures on individual
// sessions are logged and skipped; a partial failure never blocks the
// caller's state transition.
type Muter struct {
	lister SessionLister

	mu    sync.Mutex
	muted bool
}

// NewMuter creates a muter over the given session lister.
func NewMuter(lister SessionLister) *Muter {
	return &Muter{lister: lister}
}

// SetMuted applies the mute state to every current session, best-effort.
func (m *Muter) SetMuted(muted bool) {
	m.mu.Lock()
	m.muted = muted
	m.mu.Unlock()

	sessions, err := m.lister.Sessions()
	if err != nil {
		slog.Warn("mute: session enumeration failed", "muted", muted, "error", err)
		return
	}

	for _, session := range sessions {
		if err := session.SetMute(muted); err != nil {
			slog.Debug("failed to set session mute", "session", session.Name(), "muted", muted, "error", err)
			continue
		}
	}
	slog.Debug("audio sessions updated", "muted", muted, "sessions", len(sessions))
}

// Muted reports the last mute state applied.
func (m *Muter) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}
