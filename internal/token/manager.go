package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/vizmute/vizmute/internal/config"
	"github.com/vizmute/vizmute/internal/eventlog"
)

// AuthorizeTimeout bounds the wait for the browser callback.
const AuthorizeTimeout = 3 * time.Minute

// State is the credential lifecycle state.
type State string

const (
	// StateUnauthenticated means no usable credentials exist.
	StateUnauthenticated State = "unauthenticated"
	// StateAuthorizing means an interactive authorization flow is in flight.
	StateAuthorizing State = "authorizing"
	// StateAuthenticated means a valid token set is held and persisted.
	StateAuthenticated State = "authenticated"
	// StateRefreshing means a refresh call is in flight.
	StateRefreshing State = "refreshing"
	// StateFatal means refresh failed; this manager instance is unusable
	// until the process is restarted and re-authorized.
	StateFatal State = "fatal"
)

// Sentinel errors for manager operations.
var (
	ErrAuthorizationInFlight = errors.New("authorization flow already in progress")
	ErrNotAuthenticated      = errors.New("not authenticated")
	ErrNoRefreshToken        = errors.New("no refresh token held")
	ErrFatal                 = errors.New("token manager is in fatal state")
)

// Manager owns the TokenSet: it acquires it interactively, persists every
// successful obtain/refresh before returning, and serializes refreshes so
// at most one network call is in flight (concurrent callers share its
// result). It is safe for concurrent use.
type Manager struct {
	oauth *oauth2.Config
	store *Store
	port  int

	// openBrowser launches the user's browser; replaced in tests.
	openBrowser func(url string) error

	events *eventlog.Logger // nil when the event log is disabled

	mu         sync.Mutex
	state      State
	current    TokenSet
	refreshing chan struct{} // non-nil while a refresh is in flight
	refreshErr error         // result of the last completed refresh
}

// NewManager creates a manager from the remote API configuration.
func NewManager(snap config.Snapshot) *Manager {
	redirect := fmt.Sprintf("http://%s:%d%s", callbackHost, snap.RedirectPort, CallbackPath)
	return &Manager{
		oauth: &oauth2.Config{
			ClientID:     snap.RemoteClientID,
			ClientSecret: snap.RemoteClientSecret,
			RedirectURL:  redirect,
			Scopes:       snap.RemoteScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  snap.RemoteAuthURL,
				TokenURL: snap.RemoteTokenURL,
			},
		},
		store:       NewStore(snap.TokenFile),
		port:        snap.RedirectPort,
		openBrowser: openBrowser,
		state:       StateUnauthenticated,
	}
}

// SetEventLog attaches the credential event log. events may be nil.
func (m *Manager) SetEventLog(events *eventlog.Logger) {
	m.events = events
}

// logAuthEvent appends a credential lifecycle event, if a log is attached.
func (m *Manager) logAuthEvent(eventType eventlog.EventType, message string) {
	if m.events == nil {
		return
	}
	if err := m.events.LogAuth(eventType, message); err != nil {
		slog.Warn("event log write failed", "type", eventType, "error", err)
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// AccessToken returns the current access token, or "" when unauthenticated.
// The media source observes tokens only through this accessor.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.AccessToken
}

// Load restores a persisted token set. It returns true when credentials
// were found; false means Authorize must run.
func (m *Manager) Load() bool {
	ts, ok := m.store.Load()
	if !ok {
		return false
	}

	m.mu.Lock()
	m.current = ts
	m.state = StateAuthenticated
	m.mu.Unlock()

	slog.Info("loaded persisted tokens", "obtained_at", ts.ObtainedAt)
	return true
}

// Authorize runs the one-time interactive flow: bind the loopback callback
// listener, open the authorization URL in the user's browser, wait for
// exactly one code, exchange it, and persist the result before returning.
//
// At most one flow may be in flight; a concurrent call fails with
// ErrAuthorizationInFlight. An exchange failure is fatal for this startup
// attempt and is surfaced to the caller, never silently retried.
func (m *Manager) Authorize(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateAuthorizing {
		m.mu.Unlock()
		return ErrAuthorizationInFlight
	}
	m.state = StateAuthorizing
	m.mu.Unlock()

	err := m.authorize(ctx)

	m.mu.Lock()
	if err != nil {
		m.state = StateUnauthenticated
	} else {
		m.state = StateAuthenticated
	}
	m.mu.Unlock()

	if err != nil {
		m.logAuthEvent(eventlog.AuthFailed, err.Error())
	} else {
		m.logAuthEvent(eventlog.AuthAuthorized, "interactive authorization completed")
	}
	return err
}

func (m *Manager) authorize(ctx context.Context) error {
	nonce, err := randomState()
	if err != nil {
		return fmt.Errorf("generate state parameter: %w", err)
	}

	listener := NewCallbackListener(nonce)
	if _, err := listener.Start(m.port); err != nil {
		return err
	}

	authURL := m.oauth.AuthCodeURL(nonce)
	slog.Info("authorization required, opening browser", "url", authURL)
	if err := m.openBrowser(authURL); err != nil {
		slog.Warn("could not open browser, visit the URL manually", "url", authURL, "error", err)
	}

	code, err := listener.Wait(ctx, AuthorizeTimeout)
	if err != nil {
		return fmt.Errorf("authorization callback: %w", err)
	}

	// The code is single-use: it is consumed by this exchange and never
	// stored anywhere.
	tok, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	return m.persistAndAdopt(TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ObtainedAt:   time.Now(),
	})
}

// Refresh obtains a new access token using the stored refresh token.
// Concurrent callers coalesce onto a single in-flight network call and
// share its result. On failure the manager transitions to the fatal state
// and all subsequent calls fail fast with ErrFatal.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateFatal:
		m.mu.Unlock()
		return ErrFatal
	case StateUnauthenticated, StateAuthorizing:
		m.mu.Unlock()
		return ErrNotAuthenticated
	}

	if m.refreshing != nil {
		// Another refresh is in flight: wait for its result instead of
		// issuing a duplicate network call.
		waiting := m.refreshing
		m.mu.Unlock()
		<-waiting
		m.mu.Lock()
		err := m.refreshErr
		m.mu.Unlock()
		return err
	}

	done := make(chan struct{})
	m.refreshing = done
	m.state = StateRefreshing
	prior := m.current
	m.mu.Unlock()

	err := m.doRefresh(ctx, prior)

	m.mu.Lock()
	m.refreshErr = err
	m.refreshing = nil
	if err != nil {
		m.state = StateFatal
	} else {
		m.state = StateAuthenticated
	}
	m.mu.Unlock()
	close(done)

	if err != nil {
		m.logAuthEvent(eventlog.AuthFailed, err.Error())
	} else {
		m.logAuthEvent(eventlog.AuthRefreshed, "access token refreshed")
	}
	return err
}

func (m *Manager) doRefresh(ctx context.Context, prior TokenSet) error {
	if prior.RefreshToken == "" {
		return ErrNoRefreshToken
	}

	// Force a refresh grant by presenting an already-expired token.
	stale := &oauth2.Token{
		AccessToken:  prior.AccessToken,
		RefreshToken: prior.RefreshToken,
		Expiry:       time.Now().Add(-time.Minute),
	}
	tok, err := m.oauth.TokenSource(ctx, stale).Token()
	if err != nil {
		return fmt.Errorf("refresh token grant: %w", err)
	}

	next := TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ObtainedAt:   time.Now(),
	}
	// A refresh response may omit the refresh token; the prior one stays
	// valid and is preserved.
	if next.RefreshToken == "" {
		next.RefreshToken = prior.RefreshToken
	}

	if err := m.persistAndAdopt(next); err != nil {
		return err
	}
	slog.Info("access token refreshed")
	return nil
}

// persistAndAdopt writes the token set to the store and only then makes it
// the in-memory current set, so the two can never diverge after success.
func (m *Manager) persistAndAdopt(ts TokenSet) error {
	if err := m.store.Save(ts); err != nil {
		return err
	}
	m.mu.Lock()
	m.current = ts
	m.mu.Unlock()
	return nil
}

// randomState returns a random hex nonce for the OAuth state parameter.
func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// openBrowser launches the platform browser for the given URL.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		return exec.Command("open", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
