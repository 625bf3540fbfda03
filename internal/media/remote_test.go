package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vizmute/vizmute/internal/types"
)

// fakeTokens is a TokenProvider with scripted refresh behavior.
type fakeTokens struct {
	token      string
	refreshErr error
	refreshed  int
}

func (f *fakeTokens) AccessToken() string { return f.token }

func (f *fakeTokens) Refresh(_ context.Context) error {
	f.refreshed++
	if f.refreshErr != nil {
		return f.refreshErr
	}
	f.token = "refreshed-token"
	return nil
}

func remoteFixture(t *testing.T, handler http.HandlerFunc) (*RemoteSource, *fakeTokens) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := testConfig(t)
	cfg.Remote.NowPlayingURL = srv.URL

	tokens := &fakeTokens{token: "initial-token"}
	return NewRemoteSource(cfg, tokens), tokens
}

func TestRemoteSourcePlayingTrack(t *testing.T) {
	src, _ := remoteFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer initial-token" {
			t.Errorf("Authorization = %q", got)
		}
		fmt.Fprint(w, `{"is_playing":true,"currently_playing_type":"track",
			"item":{"name":"Blue Train","type":"track","artists":[{"name":"John Coltrane"},{"name":"Other"}]}}`)
	})

	sig, err := src.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	want := types.MediaSignal{Title: "Blue Train", Artist: "John Coltrane"}
	if sig != want {
		t.Errorf("got %+v, want %+v", sig, want)
	}
}

func TestRemoteSourceNotPlayingIsAdvertisement(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"no content", "", http.StatusNoContent},
		{"empty body", "", http.StatusOK},
		{"paused", `{"is_playing":false,"currently_playing_type":"track","item":{"name":"X","type":"track"}}`, http.StatusOK},
		{"non-track item", `{"is_playing":true,"currently_playing_type":"ad"}`, http.StatusOK},
		{"missing item", `{"is_playing":true,"currently_playing_type":"track"}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, _ := remoteFixture(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.code)
				fmt.Fprint(w, tt.body)
			})

			sig, err := src.Poll(context.Background())
			if err != nil {
				t.Fatalf("Poll: %v", err)
			}
			if !sig.IsAdvertisement {
				t.Errorf("got %+v, want advertisement", sig)
			}
		})
	}
}

func TestRemoteSourceRefreshesOnceOn401(t *testing.T) {
	var requests int
	src, tokens := remoteFixture(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get("Authorization") != "Bearer refreshed-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"is_playing":true,"currently_playing_type":"track","item":{"name":"After","type":"track"}}`)
	})

	sig, err := src.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if tokens.refreshed != 1 {
		t.Errorf("refreshed %d times, want 1", tokens.refreshed)
	}
	if requests != 2 {
		t.Errorf("made %d requests, want 2 (original + retry)", requests)
	}
	if sig.Title != "After" {
		t.Errorf("Title = %q after refresh retry", sig.Title)
	}
}

func TestRemoteSourceRefreshFailureIsTerminal(t *testing.T) {
	src, tokens := remoteFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	tokens.refreshErr = errors.New("refresh denied")

	sig, err := src.Poll(context.Background())
	if !errors.Is(err, ErrAuthTerminal) {
		t.Fatalf("err = %v, want ErrAuthTerminal", err)
	}
	if sig.Title != types.AuthErrorTitle || !sig.IsAdvertisement {
		t.Errorf("got %+v, want the auth-error sentinel signal", sig)
	}
	if tokens.refreshed != 1 {
		t.Errorf("refreshed %d times, want exactly 1", tokens.refreshed)
	}
}

func TestRemoteSourceTransientErrorReturnsLastSignal(t *testing.T) {
	var fail bool
	src, _ := remoteFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"is_playing":true,"currently_playing_type":"track","item":{"name":"Cached","type":"track"}}`)
	})

	if _, err := src.Poll(context.Background()); err != nil {
		t.Fatalf("first Poll: %v", err)
	}

	fail = true
	sig, err := src.Poll(context.Background())
	if err != nil {
		t.Fatalf("transient failure must not return an error, got %v", err)
	}
	if sig.Title != "Cached" {
		t.Errorf("got %+v, want the last good signal", sig)
	}
}

func TestRemoteSourceInitialSignalIsAdvertisement(t *testing.T) {
	src, _ := remoteFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	// First poll fails before any signal was cached: the conservative
	// default keeps the display muted rather than guessing a track.
	sig, err := src.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !sig.IsAdvertisement {
		t.Errorf("initial fallback signal %+v should be an advertisement", sig)
	}
}
