// Package eventlog provides unified event logging for the visualizer.
// It captures advertisement episodes (ad_started, ad_ended,
// countdown_finished) and credential lifecycle events in a single JSON
// lines file.
package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event.
type EventType string

// Advertisement event types.
const (
	AdStarted         EventType = "ad_started"
	AdEnded           EventType = "ad_ended"
	CountdownFinished EventType = "countdown_finished"
)

// Credential event types.
const (
	AuthAuthorized   EventType = "auth_authorized"
	AuthRefreshed    EventType = "auth_refreshed"
	AuthFailed       EventType = "auth_failed"
	SourceTerminated EventType = "source_terminated"
)

// Event represents a single log entry with type-specific details.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Type      EventType `json:"type"`
	Message   string    `json:"msg,omitempty"`
	Details   any       `json:"details,omitempty"`
}

// AdDetails contains advertisement-specific event details.
type AdDetails struct {
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
}

// Logger writes events to a JSON lines file. It is safe for concurrent use.
type Logger struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
}

// NewLogger creates a new event logger appending to the specified path.
func NewLogger(filePath string) (*Logger, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &Logger{file: file, encoder: json.NewEncoder(file)}, nil
}

// Log writes an event to the log file.
func (l *Logger) Log(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return l.encoder.Encode(event)
}

// LogAd logs an advertisement episode event.
func (l *Logger) LogAd(eventType EventType, title, artist string) error {
	return l.Log(&Event{
		Type:    eventType,
		Details: &AdDetails{Title: title, Artist: artist},
	})
}

// LogAuth logs a credential lifecycle event.
func (l *Logger) LogAuth(eventType EventType, message string) error {
	return l.Log(&Event{Type: eventType, Message: message})
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}
