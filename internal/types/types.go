// Package types provides shared type definitions used across the visualizer.
package types

import (
	"slices"
	"time"
)

// AmplitudeFrame is one vector of per-bar loudness values for a single
// rendering tick. Values are non-negative; index i drives visual bar i.
type AmplitudeFrame []float64

// ZeroFrame returns an all-zero frame with the given bar count.
func ZeroFrame(bars int) AmplitudeFrame {
	return make(AmplitudeFrame, bars)
}

// Clone returns an independent copy of the frame.
func (f AmplitudeFrame) Clone() AmplitudeFrame {
	return slices.Clone(f)
}

// MediaSignal describes what the media source currently reports as playing.
type MediaSignal struct {
	Title           string `json:"title"`
	Artist          string `json:"artist,omitempty"`
	Description     string `json:"description,omitempty"`
	IsAdvertisement bool   `json:"is_advertisement"`
}

// SameTrack reports whether two signals refer to the same (title, artist)
// pair. The advertisement flag is not compared.
func (s MediaSignal) SameTrack(o MediaSignal) bool {
	return s.Title == o.Title && s.Artist == o.Artist
}

// AuthErrorTitle is the sentinel title emitted by the remote media source
// when token refresh has failed and the source is shutting down.
const AuthErrorTitle = "auth error"

// Indicator identifies what the display should show alongside the bars.
type Indicator string

const (
	// IndicatorNone means no overlay is shown.
	IndicatorNone Indicator = "none"
	// IndicatorAdvertisement means an advertisement is playing and audio is muted.
	IndicatorAdvertisement Indicator = "advertisement"
	// IndicatorCountdown means the post-advertisement countdown is ticking.
	IndicatorCountdown Indicator = "countdown"
)

// DisplayState is the derived state handed to the renderer on every media
// tick. It is recomputed from each consumed MediaSignal and never persisted.
type DisplayState struct {
	Muted            bool      `json:"muted"`
	Indicator        Indicator `json:"indicator"`
	RemainingSeconds int64     `json:"remaining_seconds,omitempty"` // Countdown only
}

// NowPlaying is the most recent track information for the renderer.
type NowPlaying struct {
	Title  string `json:"title"`
	Artist string `json:"artist,omitempty"`
}

const (
	// ShutdownTimeout is the duration to wait for a producer goroutine to
	// exit cooperatively before giving up on the join.
	ShutdownTimeout = 3000 * time.Millisecond
	// MediaPollInterval is the cadence of the remote now-playing poll.
	MediaPollInterval = 1000 * time.Millisecond
	// LocalPollInterval is the cadence of the window-title scan.
	LocalPollInterval = 500 * time.Millisecond
)

// DefaultCountdownSeconds is the length of the post-advertisement countdown.
const DefaultCountdownSeconds = 1800

// VersionInfo contains version comparison data.
type VersionInfo struct {
	Current     string `json:"current"`              // Current version
	Latest      string `json:"latest,omitempty"`     // Latest available version
	UpdateAvail bool   `json:"update_available"`     // Update is available
	Commit      string `json:"commit,omitempty"`     // Git commit hash
	BuildTime   string `json:"build_time,omitempty"` // Build timestamp
}
