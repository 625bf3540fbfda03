// Package audio provides system audio session access: peak level sampling
// for the visualizer and best-effort muting of all sessions.
//
// Enumerating real OS audio sessions is platform work that lives behind the
// SessionLister interface; the core only ever talks to these contracts.
package audio

// Session is a single system audio session.
type Session interface {
	// Name identifies the session for logging.
	Name() string
	// Peak returns the current peak meter level in [0,1].
	Peak() (float64, error)
	// SetMute mutes or unmutes the session.
	SetMute(muted bool) error
}

// SessionLister enumerates the currently active audio sessions.
type SessionLister interface {
	Sessions() ([]Session, error)
}
