// Package config provides application configuration management.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/vizmute/vizmute/internal/types"
	"github.com/vizmute/vizmute/internal/util"
)

// Configuration defaults are used when values are not specified.
const (
	DefaultWebPort         = 8080
	DefaultBarCount        = 32
	DefaultBarColor        = "#66CCFF"
	DefaultBackgroundColor = "#111111"
	DefaultUpdateRate      = 30
	DefaultSmoothing       = 0.6
	DefaultGradientSlices  = 8
	DefaultRedirectPort    = 8912
	DefaultTokenFile       = "tokens.txt"
)

// DefaultPlayerKeywords are the window-title substrings that identify a
// media player window for the local media source.
var DefaultPlayerKeywords = []string{"spotify", "youtube", "vlc", "music", "mpv", "media"}

// MaxBarCount bounds the number of bars a frame may carry.
const MaxBarCount = 512

// colorPattern matches #RRGGBB hex colors.
var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// DisplayConfig holds the visual settings consumed by the renderer and the
// smoothing pipeline.
type DisplayConfig struct {
	BarCount        int     `json:"bar_count"`        // Number of visual bars
	BarColor        string  `json:"bar_color"`        // Bar color (#RRGGBB)
	BackgroundColor string  `json:"background_color"` // Canvas background (#RRGGBB)
	MirrorBars      bool    `json:"mirror_bars"`      // Mirror bars below the midline
	UpdateRate      int     `json:"update_rate"`      // Consumer ticks per second
	ShowClock       bool    `json:"show_clock"`       // Show the clock overlay
	Smoothing       float64 `json:"smoothing"`        // EMA factor in [0,1)
	Gradient        bool    `json:"gradient"`         // Render bars with a gradient
	GradientStart   string  `json:"gradient_start"`   // Gradient start color
	GradientEnd     string  `json:"gradient_end"`     // Gradient end color
	GradientSlices  int     `json:"gradient_slices"`  // Slices per bar for the gradient
}

// AdsConfig holds advertisement detection and countdown settings.
type AdsConfig struct {
	Keywords         []string `json:"keywords"`          // Lowercase substrings that mark an ad
	CountdownSeconds int64    `json:"countdown_seconds"` // Post-ad countdown length
}

// MediaConfig selects and tunes the media source.
type MediaConfig struct {
	Source         string   `json:"source"`          // "windows" or "remote"
	PlayerKeywords []string `json:"player_keywords"` // Window-title substrings to scan for
	SelectPID      int      `json:"select_pid"`      // Restrict title lookup to this process (0 = off)
}

// RemoteConfig holds the remote media API and OAuth settings.
type RemoteConfig struct {
	ClientID      string   `json:"client_id"`       // OAuth client ID
	ClientSecret  string   `json:"client_secret"`   // OAuth client secret
	AuthURL       string   `json:"auth_url"`        // Authorization endpoint
	TokenURL      string   `json:"token_url"`       // Token endpoint
	NowPlayingURL string   `json:"now_playing_url"` // Currently-playing read endpoint
	Scopes        []string `json:"scopes"`          // Requested authorization scopes
	RedirectPort  int      `json:"redirect_port"`   // Loopback port for the auth callback
	TokenFile     string   `json:"token_file"`      // Persisted token store path
}

// WebhookConfig holds webhook notification settings.
type WebhookConfig struct {
	URL string `json:"url"` // Webhook URL for advertisement events
}

// EventLogConfig holds event log file settings.
type EventLogConfig struct {
	Path string `json:"path"` // JSON-lines event file path (empty = disabled)
}

// NotificationsConfig holds all notification channel settings.
type NotificationsConfig struct {
	Webhook  WebhookConfig  `json:"webhook"`
	EventLog EventLogConfig `json:"event_log"`
}

// SystemConfig holds system-level settings that require restart.
type SystemConfig struct {
	Port int `json:"port"` // HTTP server port
}

// Config holds all application configuration. It is safe for concurrent use.
type Config struct {
	Display       DisplayConfig       `json:"display"`
	Ads           AdsConfig           `json:"ads"`
	Media         MediaConfig         `json:"media"`
	Remote        RemoteConfig        `json:"remote"`
	Notifications NotificationsConfig `json:"notifications"`
	System        SystemConfig        `json:"system"`

	mu       sync.RWMutex
	filePath string
}

// New creates a new Config with default values.
func New(filePath string) *Config {
	return &Config{
		Display: DisplayConfig{
			BarCount:        DefaultBarCount,
			BarColor:        DefaultBarColor,
			BackgroundColor: DefaultBackgroundColor,
			MirrorBars:      true,
			UpdateRate:      DefaultUpdateRate,
			ShowClock:       true,
			Smoothing:       DefaultSmoothing,
			GradientStart:   DefaultBarColor,
			GradientEnd:     DefaultBarColor,
			GradientSlices:  DefaultGradientSlices,
		},
		Ads: AdsConfig{
			Keywords:         []string{},
			CountdownSeconds: types.DefaultCountdownSeconds,
		},
		Media: MediaConfig{
			Source:         "windows",
			PlayerKeywords: slices.Clone(DefaultPlayerKeywords),
		},
		Remote: RemoteConfig{
			RedirectPort: DefaultRedirectPort,
			TokenFile:    DefaultTokenFile,
		},
		System:   SystemConfig{Port: DefaultWebPort},
		filePath: filePath,
	}
}

// Load reads config from file, creating a default file if none exists.
// Fields absent from the file keep their defaults.
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		return c.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return util.WrapError("parse config", err)
	}

	c.applyDefaults()

	return c.validate()
}

// applyDefaults repairs zero-value fields that have no meaningful zero.
func (c *Config) applyDefaults() {
	if c.Display.BarCount == 0 {
		c.Display.BarCount = DefaultBarCount
	}
	if c.Display.UpdateRate == 0 {
		c.Display.UpdateRate = DefaultUpdateRate
	}
	if c.Display.BarColor == "" {
		c.Display.BarColor = DefaultBarColor
	}
	if c.Display.BackgroundColor == "" {
		c.Display.BackgroundColor = DefaultBackgroundColor
	}
	if c.Display.GradientStart == "" {
		c.Display.GradientStart = c.Display.BarColor
	}
	if c.Display.GradientEnd == "" {
		c.Display.GradientEnd = c.Display.BarColor
	}
	if c.Display.GradientSlices == 0 {
		c.Display.GradientSlices = DefaultGradientSlices
	}
	if c.Ads.Keywords == nil {
		c.Ads.Keywords = []string{}
	}
	if c.Ads.CountdownSeconds == 0 {
		c.Ads.CountdownSeconds = types.DefaultCountdownSeconds
	}
	if c.Media.Source == "" {
		c.Media.Source = "windows"
	}
	if c.Media.PlayerKeywords == nil {
		c.Media.PlayerKeywords = slices.Clone(DefaultPlayerKeywords)
	}
	if c.Remote.RedirectPort == 0 {
		c.Remote.RedirectPort = DefaultRedirectPort
	}
	if c.Remote.TokenFile == "" {
		c.Remote.TokenFile = DefaultTokenFile
	}
	if c.System.Port == 0 {
		c.System.Port = DefaultWebPort
	}

	// Keyword matching is case-insensitive; normalize once at load time.
	for i, kw := range c.Ads.Keywords {
		c.Ads.Keywords[i] = strings.ToLower(strings.TrimSpace(kw))
	}
	for i, kw := range c.Media.PlayerKeywords {
		c.Media.PlayerKeywords[i] = strings.ToLower(strings.TrimSpace(kw))
	}
}

// validate checks all configuration fields for correctness.
func (c *Config) validate() error {
	if c.Display.BarCount < 1 || c.Display.BarCount > MaxBarCount {
		return fmt.Errorf("invalid bar_count %d: must be 1-%d", c.Display.BarCount, MaxBarCount)
	}
	if c.Display.UpdateRate < 1 || c.Display.UpdateRate > 240 {
		return fmt.Errorf("invalid update_rate %d: must be 1-240", c.Display.UpdateRate)
	}
	if c.Display.Smoothing < 0 || c.Display.Smoothing >= 1 {
		return fmt.Errorf("invalid smoothing %v: must be in [0,1)", c.Display.Smoothing)
	}
	if !colorPattern.MatchString(c.Display.BarColor) {
		return fmt.Errorf("invalid bar_color %q: must be hex format (#RRGGBB)", c.Display.BarColor)
	}
	if !colorPattern.MatchString(c.Display.BackgroundColor) {
		return fmt.Errorf("invalid background_color %q: must be hex format (#RRGGBB)", c.Display.BackgroundColor)
	}
	if c.Display.Gradient {
		if !colorPattern.MatchString(c.Display.GradientStart) {
			return fmt.Errorf("invalid gradient_start %q: must be hex format (#RRGGBB)", c.Display.GradientStart)
		}
		if !colorPattern.MatchString(c.Display.GradientEnd) {
			return fmt.Errorf("invalid gradient_end %q: must be hex format (#RRGGBB)", c.Display.GradientEnd)
		}
	}
	if c.Ads.CountdownSeconds < 0 {
		return fmt.Errorf("invalid countdown_seconds %d: must be >= 0", c.Ads.CountdownSeconds)
	}
	switch c.Media.Source {
	case "windows", "remote":
	default:
		return fmt.Errorf("invalid media source %q: must be windows or remote", c.Media.Source)
	}
	return nil
}

// saveLocked persists configuration. Caller must hold c.mu.
func (c *Config) saveLocked() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return util.WrapError("marshal config", err)
	}

	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return util.WrapError("create config directory", err)
	}

	if err := os.WriteFile(c.filePath, data, 0o600); err != nil {
		return util.WrapError("write config", err)
	}

	return nil
}

// --- Setters for runtime-adjustable settings ---

// SetSmoothing updates the smoothing factor and saves the configuration.
func (c *Config) SetSmoothing(alpha float64) error {
	if alpha < 0 || alpha >= 1 {
		return fmt.Errorf("invalid smoothing %v: must be in [0,1)", alpha)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Display.Smoothing = alpha
	return c.saveLocked()
}

// SetBarCount updates the bar count and saves the configuration.
func (c *Config) SetBarCount(n int) error {
	if n < 1 || n > MaxBarCount {
		return fmt.Errorf("invalid bar_count %d: must be 1-%d", n, MaxBarCount)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Display.BarCount = n
	return c.saveLocked()
}

// SetAdKeywords replaces the advertisement keyword list and saves.
func (c *Config) SetAdKeywords(keywords []string) error {
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			normalized = append(normalized, kw)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Ads.Keywords = normalized
	return c.saveLocked()
}

// SetSelectPID updates the media title PID filter and saves.
func (c *Config) SetSelectPID(pid int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Media.SelectPID = pid
	return c.saveLocked()
}

// SetWebhookURL updates the webhook URL and saves the configuration.
func (c *Config) SetWebhookURL(url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications.Webhook.URL = url
	return c.saveLocked()
}

// --- Snapshot for atomic reads ---

// Snapshot is a point-in-time copy of configuration values. Consumers hold
// one per tick instead of reading shared mutable state.
type Snapshot struct {
	// Display
	BarCount        int
	BarColor        string
	BackgroundColor string
	MirrorBars      bool
	UpdateRate      int
	ShowClock       bool
	Smoothing       float64
	Gradient        bool
	GradientStart   string
	GradientEnd     string
	GradientSlices  int

	// Ads
	AdKeywords       []string
	CountdownSeconds int64

	// Media
	MediaSource    string
	PlayerKeywords []string
	SelectPID      int

	// Remote API
	RemoteClientID      string
	RemoteClientSecret  string
	RemoteAuthURL       string
	RemoteTokenURL      string
	RemoteNowPlayingURL string
	RemoteScopes        []string
	RedirectPort        int
	TokenFile           string

	// Notifications
	WebhookURL   string
	EventLogPath string

	// System
	WebPort int
}

// Snapshot returns a point-in-time copy of all configuration values.
func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		BarCount:        c.Display.BarCount,
		BarColor:        c.Display.BarColor,
		BackgroundColor: c.Display.BackgroundColor,
		MirrorBars:      c.Display.MirrorBars,
		UpdateRate:      c.Display.UpdateRate,
		ShowClock:       c.Display.ShowClock,
		Smoothing:       c.Display.Smoothing,
		Gradient:        c.Display.Gradient,
		GradientStart:   c.Display.GradientStart,
		GradientEnd:     c.Display.GradientEnd,
		GradientSlices:  c.Display.GradientSlices,

		AdKeywords:       slices.Clone(c.Ads.Keywords),
		CountdownSeconds: c.Ads.CountdownSeconds,

		MediaSource:    c.Media.Source,
		PlayerKeywords: slices.Clone(c.Media.PlayerKeywords),
		SelectPID:      c.Media.SelectPID,

		RemoteClientID:      c.Remote.ClientID,
		RemoteClientSecret:  c.Remote.ClientSecret,
		RemoteAuthURL:       c.Remote.AuthURL,
		RemoteTokenURL:      c.Remote.TokenURL,
		RemoteNowPlayingURL: c.Remote.NowPlayingURL,
		RemoteScopes:        slices.Clone(c.Remote.Scopes),
		RedirectPort:        c.Remote.RedirectPort,
		TokenFile:           c.Remote.TokenFile,

		WebhookURL:   c.Notifications.Webhook.URL,
		EventLogPath: c.Notifications.EventLog.Path,

		WebPort: c.System.Port,
	}
}

// HasWebhook reports whether a webhook URL is configured.
func (s *Snapshot) HasWebhook() bool {
	return s.WebhookURL != ""
}

// HasRemote reports whether the remote media API is fully configured.
func (s Snapshot) HasRemote() bool {
	return util.IsConfigured(s.RemoteClientID, s.RemoteClientSecret,
		s.RemoteAuthURL, s.RemoteTokenURL, s.RemoteNowPlayingURL)
}

// FramePeriod returns the consumer tick period derived from the update rate.
func (s Snapshot) FramePeriod() time.Duration {
	return time.Second / time.Duration(s.UpdateRate)
}
