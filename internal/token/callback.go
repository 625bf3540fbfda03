package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/vizmute/vizmute/internal/util"
)

// CallbackPath is the only path the authorization listener accepts.
const CallbackPath = "/callback"

// callbackHost is the loopback address the listener binds.
const callbackHost = "127.0.0.1"

// ErrCallbackTimeout is returned when no authorization code arrives within
// the wait deadline.
var ErrCallbackTimeout = errors.New("timed out waiting for authorization callback")

const successPage = `<!DOCTYPE html>
<html><head><title>Authorized</title></head>
<body><h1>Authorization complete</h1>
<p>You can close this tab and return to the visualizer.</p></body></html>`

// CallbackListener is a short-lived loopback HTTP listener scoped to exactly
// one authorization attempt. It captures a single authorization code and
// stops accepting further requests immediately afterwards.
type CallbackListener struct {
	server *http.Server
	state  string

	code     chan string
	deliver  sync.Once
	captured chan struct{}
}

// NewCallbackListener creates a listener expecting the given OAuth state
// parameter on the callback.
func NewCallbackListener(state string) *CallbackListener {
	l := &CallbackListener{
		state:    state,
		code:     make(chan string, 1),
		captured: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, l.handleCallback)
	l.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return l
}

// Start binds the loopback port and begins serving. It returns the redirect
// URL to hand to the authorization endpoint.
func (l *CallbackListener) Start(port int) (string, error) {
	addr := net.JoinHostPort(callbackHost, fmt.Sprintf("%d", port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", util.WrapError("bind callback listener", err)
	}

	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("callback listener error", "error", err)
		}
	}()

	return fmt.Sprintf("http://%s%s", ln.Addr().String(), CallbackPath), nil
}

// handleCallback accepts the single well-formed callback request. Requests
// on other paths never reach it (the mux returns 404); a request with the
// wrong state or without a code is rejected.
func (l *CallbackListener) handleCallback(w http.ResponseWriter, r *http.Request) {
	select {
	case <-l.captured:
		http.Error(w, "authorization already completed", http.StatusGone)
		return
	default:
	}

	q := r.URL.Query()
	if errMsg := q.Get("error"); errMsg != "" {
		http.Error(w, "authorization denied: "+errMsg, http.StatusBadRequest)
		return
	}
	if l.state != "" && q.Get("state") != l.state {
		http.Error(w, "state mismatch", http.StatusBadRequest)
		return
	}
	code := q.Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	l.deliver.Do(func() {
		l.code <- code
		close(l.captured)
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprint(w, successPage)
}

// Wait blocks until a code is captured, the timeout elapses, or ctx is
// canceled. The listener stops accepting requests once this returns.
func (l *CallbackListener) Wait(ctx context.Context, timeout time.Duration) (string, error) {
	defer l.Close()

	select {
	case code := <-l.code:
		return code, nil
	case <-time.After(timeout):
		return "", ErrCallbackTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close shuts the listener down, releasing the port.
func (l *CallbackListener) Close() {
	if err := l.server.Close(); err != nil {
		slog.Debug("callback listener close error", "error", err)
	}
}
