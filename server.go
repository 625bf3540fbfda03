package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/vizmute/vizmute/internal/config"
	"github.com/vizmute/vizmute/internal/engine"
	"github.com/vizmute/vizmute/internal/server"
	"github.com/vizmute/vizmute/internal/types"
)

// Server is an HTTP server that serves the renderer page and the WebSocket
// stream that drives it.
type Server struct {
	config   *config.Config
	engine   *engine.Engine
	commands *server.CommandHandler
	version  *VersionChecker
}

// NewServer returns a new Server over the provided config and engine.
func NewServer(cfg *config.Config, eng *engine.Engine) *Server {
	return &Server{
		config:   cfg,
		engine:   eng,
		commands: server.NewCommandHandler(cfg, eng),
		version:  NewVersionChecker(),
	}
}

// wsRenderMessage carries one rendering tick to the browser.
type wsRenderMessage struct {
	Type       string               `json:"type"`
	Frame      types.AmplitudeFrame `json:"frame"`
	Display    types.DisplayState   `json:"display"`
	NowPlaying types.NowPlaying     `json:"now_playing"`
}

// wsStatusMessage carries settings and housekeeping info to the browser.
type wsStatusMessage struct {
	Type      string            `json:"type"`
	Display   map[string]any    `json:"display"`
	Media     map[string]any    `json:"media"`
	SourceErr string            `json:"source_error,omitempty"`
	Platform  string            `json:"platform"`
	Version   types.VersionInfo `json:"version"`
}

// handleWebSocket handles bidirectional WebSocket communication for real-time updates.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := server.UpgradeConnection(w, r)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	// Create buffered send channel for thread-safe writes.
	// Only the writer goroutine writes to the connection, preventing race conditions.
	send := make(chan any, 16)
	done := make(chan struct{})
	statusUpdate := make(chan struct{}, 1)

	// Writer goroutine - sole writer to the connection
	go s.runWebSocketWriter(conn, send)

	// Reader goroutine - handles incoming commands
	go s.runWebSocketReader(conn, send, done, statusUpdate)

	s.runWebSocketEventLoop(send, done, statusUpdate)
}

// runWebSocketWriter writes messages from the send channel to the connection.
func (s *Server) runWebSocketWriter(conn server.WebSocketConn, send <-chan any) {
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("WebSocket close error", "error", err)
		}
	}()
	for msg := range send {
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// runWebSocketReader reads commands from the connection and dispatches them.
func (s *Server) runWebSocketReader(conn server.WebSocketConn, send chan<- any, done, statusUpdate chan<- struct{}) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in WebSocket reader", "panic", r)
		}
		close(done)
	}()

	for {
		var cmd server.WSCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		s.commands.Handle(cmd, send, func() {
			select {
			case statusUpdate <- struct{}{}:
			default:
			}
		})
	}
}

// runWebSocketEventLoop streams render and status updates to one client.
// The engine's own consumer loop advances the pipelines; this loop only
// reads the current render state and pushes it. The ticker is rebuilt when
// the configured update rate changes.
func (s *Server) runWebSocketEventLoop(send chan any, done, statusUpdate <-chan struct{}) {
	period := s.config.Snapshot().FramePeriod()
	renderTicker := time.NewTicker(period)
	statusTicker := time.NewTicker(3000 * time.Millisecond)
	defer renderTicker.Stop()
	defer statusTicker.Stop()

	// trySend attempts to send a message, returning false if done is closed
	trySend := func(msg any) bool {
		select {
		case send <- msg:
			return true
		case <-done:
			return false
		}
	}

	// Send initial status
	if !trySend(s.buildWSStatus()) {
		close(send)
		return
	}

	for {
		select {
		case <-done:
			close(send)
			return
		case <-statusUpdate:
			if !trySend(s.buildWSStatus()) {
				close(send)
				return
			}
		case <-renderTicker.C:
			if p := s.config.Snapshot().FramePeriod(); p != period {
				period = p
				renderTicker.Reset(period)
			}
			state := s.engine.RenderState()
			msg := wsRenderMessage{
				Type:       "render",
				Frame:      state.Frame,
				Display:    state.Display,
				NowPlaying: state.NowPlaying,
			}
			if !trySend(msg) {
				close(send)
				return
			}
		case <-statusTicker.C:
			if !trySend(s.buildWSStatus()) {
				close(send)
				return
			}
		}
	}
}

// buildWSStatus returns the current WebSocket status message.
func (s *Server) buildWSStatus() wsStatusMessage {
	snap := s.config.Snapshot()

	msg := wsStatusMessage{
		Type: "status",
		Display: map[string]any{
			"bar_count":        snap.BarCount,
			"bar_color":        snap.BarColor,
			"background_color": snap.BackgroundColor,
			"mirror_bars":      snap.MirrorBars,
			"update_rate":      snap.UpdateRate,
			"show_clock":       snap.ShowClock,
			"smoothing":        snap.Smoothing,
			"gradient":         snap.Gradient,
			"gradient_start":   snap.GradientStart,
			"gradient_end":     snap.GradientEnd,
			"gradient_slices":  snap.GradientSlices,
		},
		Media: map[string]any{
			"source":            snap.MediaSource,
			"select_pid":        snap.SelectPID,
			"ad_keywords":       snap.AdKeywords,
			"countdown_seconds": snap.CountdownSeconds,
		},
		Platform: runtime.GOOS,
		Version:  s.version.Info(),
	}
	if err := s.engine.SourceErr(); err != nil {
		msg.SourceErr = err.Error()
	}
	return msg
}

// SetupRoutes returns an [http.Handler] configured with all application routes.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/", s.handleIndex)

	return securityHeaders(mux)
}

// securityHeaders returns middleware that wraps handlers with security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// handleIndex serves the embedded renderer page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	if _, err := w.Write([]byte(indexHTML)); err != nil {
		slog.Error("failed to write index.html", "error", err)
	}
}

// Start begins the HTTP server.
// Returns an *http.Server that can be used for graceful shutdown.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.config.Snapshot().WebPort)
	slog.Info("starting web server", "addr", addr)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.SetupRoutes(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	return srv
}
