package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/vizmute/vizmute/internal/config"
	"github.com/vizmute/vizmute/internal/types"
	"github.com/vizmute/vizmute/internal/util"
)

// remoteHTTPTimeout bounds each now-playing request.
const remoteHTTPTimeout = 10 * time.Second

// errUnauthorized marks a 401 from the now-playing endpoint.
var errUnauthorized = errors.New("unauthorized")

// ErrAuthTerminal is returned by Poll when token refresh has failed and the
// source cannot recover without a restart.
var ErrAuthTerminal = errors.New("media source authorization is terminally broken")

// TokenProvider supplies bearer tokens for the remote API and performs a
// refresh when the API rejects one. *token.Manager satisfies it.
type TokenProvider interface {
	AccessToken() string
	Refresh(ctx context.Context) error
}

// RemoteSource polls the remote media API for the currently playing item.
// Anything that is not a playing track (nothing playing, paused, or a
// non-track item) is reported as an advertisement.
type RemoteSource struct {
	cfg    *config.Config
	tokens TokenProvider
	client *http.Client

	mu   sync.Mutex
	last types.MediaSignal
}

// NewRemoteSource creates a remote API source using the given token provider.
func NewRemoteSource(cfg *config.Config, tokens TokenProvider) *RemoteSource {
	return &RemoteSource{
		cfg:    cfg,
		tokens: tokens,
		client: &http.Client{Timeout: remoteHTTPTimeout},
		last:   types.MediaSignal{IsAdvertisement: true},
	}
}

// Interval returns the now-playing poll cadence.
func (s *RemoteSource) Interval() time.Duration {
	return types.MediaPollInterval
}

// Poll fetches the currently playing item. Transient network or server
// errors are logged and the last known signal is returned. A 401 triggers
// exactly one token refresh and a single retry; a failed refresh is the one
// fatal path: Poll returns the sentinel auth-error signal and a terminal
// error, after which the caller should stop polling.
func (s *RemoteSource) Poll(ctx context.Context) (types.MediaSignal, error) {
	snap := s.cfg.Snapshot()

	signal, err := s.fetch(ctx, snap.RemoteNowPlayingURL)
	if errors.Is(err, errUnauthorized) {
		if rerr := s.tokens.Refresh(ctx); rerr != nil {
			slog.Error("token refresh failed, stopping media source", "error", rerr)
			sentinel := types.MediaSignal{Title: types.AuthErrorTitle, IsAdvertisement: true}
			return sentinel, fmt.Errorf("%w: %w", ErrAuthTerminal, rerr)
		}
		signal, err = s.fetch(ctx, snap.RemoteNowPlayingURL)
	}
	if err != nil {
		// Transient: retry on the next poll at the normal interval.
		slog.Debug("now-playing request failed", "error", err)
		return s.lastSignal(), nil
	}

	s.mu.Lock()
	s.last = signal
	s.mu.Unlock()
	return signal, nil
}

func (s *RemoteSource) lastSignal() types.MediaSignal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// playingResponse is the wire shape of the currently-playing endpoint.
type playingResponse struct {
	IsPlaying            bool   `json:"is_playing"`
	CurrentlyPlayingType string `json:"currently_playing_type"`
	Item                 *struct {
		Name    string `json:"name"`
		Type    string `json:"type"`
		Artists []struct {
			Name string `json:"name"`
		} `json:"artists"`
	} `json:"item"`
}

// fetch performs one bearer-authenticated read of the now-playing endpoint.
func (s *RemoteSource) fetch(ctx context.Context, url string) (types.MediaSignal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return types.MediaSignal{}, util.WrapError("create now-playing request", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.tokens.AccessToken())

	resp, err := s.client.Do(req)
	if err != nil {
		return types.MediaSignal{}, util.WrapError("request now playing", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		// Nothing playing at all.
		return types.MediaSignal{IsAdvertisement: true}, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return types.MediaSignal{}, errUnauthorized
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.MediaSignal{}, fmt.Errorf("now-playing endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.MediaSignal{}, util.WrapError("read now-playing response", err)
	}
	if len(body) == 0 {
		return types.MediaSignal{IsAdvertisement: true}, nil
	}

	var playing playingResponse
	if err := json.Unmarshal(body, &playing); err != nil {
		return types.MediaSignal{}, util.WrapError("parse now-playing response", err)
	}

	if !playing.IsPlaying || playing.Item == nil || playing.CurrentlyPlayingType != "track" {
		return types.MediaSignal{IsAdvertisement: true}, nil
	}

	signal := types.MediaSignal{Title: playing.Item.Name}
	if len(playing.Item.Artists) > 0 {
		signal.Artist = playing.Item.Artists[0].Name
	}
	return signal, nil
}
