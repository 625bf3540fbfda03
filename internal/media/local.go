package media

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/vizmute/vizmute/internal/config"
	"github.com/vizmute/vizmute/internal/types"
)

// Fixed signal reported when no media player window is found.
const (
	NoTitle    = "No title"
	NoPlayback = "No playback"
)

// titleDelimiter separates the two halves of a player window title. Which
// half is the artist and which the title varies by player; the split is
// reported verbatim, best-effort.
const titleDelimiter = " - "

// Window is one visible top-level window.
type Window struct {
	Title string
	PID   int
}

// WindowLister enumerates visible top-level windows. The OS-specific
// implementation lives behind this interface.
type WindowLister interface {
	ListWindows() ([]Window, error)
}

// LocalSource derives the media signal from visible window titles.
type LocalSource struct {
	cfg    *config.Config
	lister WindowLister
}

// NewLocalSource creates a local heuristic source over the given lister.
func NewLocalSource(cfg *config.Config, lister WindowLister) *LocalSource {
	return &LocalSource{cfg: cfg, lister: lister}
}

// Interval returns the window-scan cadence.
func (s *LocalSource) Interval() time.Duration {
	return types.LocalPollInterval
}

// Poll scans window titles and reports the first candidate. Enumeration
// failures are transient: they are logged and the no-playback signal is
// returned. This source has no terminal failure path.
func (s *LocalSource) Poll(_ context.Context) (types.MediaSignal, error) {
	snap := s.cfg.Snapshot()
	ads := NewClassifier(snap.AdKeywords)

	windows, err := s.lister.ListWindows()
	if err != nil {
		slog.Debug("window enumeration failed", "error", err)
		return types.MediaSignal{Title: NoTitle, Artist: NoPlayback}, nil
	}

	title, ok := firstCandidate(windows, snap.PlayerKeywords, snap.SelectPID)
	if !ok {
		return types.MediaSignal{Title: NoTitle, Artist: NoPlayback}, nil
	}

	signal := parseTitle(title)
	signal.IsAdvertisement = ads.Match(signal.Title, signal.Artist, signal.Description)
	return signal, nil
}

// firstCandidate returns the first window title that looks like a media
// player. With a PID filter set, only windows owned by that process count;
// otherwise titles containing a player keyword (case-insensitive) match.
func firstCandidate(windows []Window, playerKeywords []string, selectPID int) (string, bool) {
	players := NewClassifier(playerKeywords)
	for _, w := range windows {
		if w.Title == "" {
			continue
		}
		if selectPID != 0 {
			if w.PID == selectPID {
				return w.Title, true
			}
			continue
		}
		if players.Match(w.Title) {
			return w.Title, true
		}
	}
	return "", false
}

// parseTitle splits "first - second" window titles into the two halves,
// without attempting to disambiguate artist vs. title order.
func parseTitle(title string) types.MediaSignal {
	if strings.Contains(title, titleDelimiter) {
		parts := strings.Split(title, titleDelimiter)
		if len(parts) >= 2 {
			first := strings.TrimSpace(parts[0])
			second := strings.TrimSpace(strings.Join(parts[1:], titleDelimiter))
			return types.MediaSignal{Title: first, Artist: second}
		}
	}
	return types.MediaSignal{Title: title}
}
