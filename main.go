// Package main provides an audio-reactive display that visualizes system
// audio levels and mutes playback during advertisement breaks.
//
// Usage:
//
//	vizmute [-config path/to/config.json]
//
// If -config is not specified, the visualizer looks for config.json in the
// same directory as the binary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/vizmute/vizmute/internal/admute"
	"github.com/vizmute/vizmute/internal/audio"
	"github.com/vizmute/vizmute/internal/config"
	"github.com/vizmute/vizmute/internal/engine"
	"github.com/vizmute/vizmute/internal/eventlog"
	"github.com/vizmute/vizmute/internal/media"
	"github.com/vizmute/vizmute/internal/notify"
	"github.com/vizmute/vizmute/internal/token"
	"github.com/vizmute/vizmute/internal/util"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: config.json next to binary)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		slog.Info("version info", "version", Version, "commit", Commit, "build_time", BuildTime)
		return
	}

	if *configPath == "" {
		execPath, err := os.Executable()
		if err != nil {
			slog.Error("failed to get executable path", "error", err)
			os.Exit(1)
		}
		*configPath = filepath.Join(filepath.Dir(execPath), "config.json")
	}

	slog.Info("using config file", "path", *configPath)

	cfg := config.New(*configPath)
	if err := cfg.Load(); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var events *eventlog.Logger
	if path := cfg.Snapshot().EventLogPath; path != "" {
		var err error
		events, err = eventlog.NewLogger(path)
		if err != nil {
			slog.Warn("event log disabled", "path", path, "error", err)
		}
	}

	lister := audio.NewSystemLister()
	muter := audio.NewMuter(lister)
	sampler := audio.NewSampler(cfg, lister, audio.RandomShaper{})
	machine := admute.NewMachine(muter)

	source, err := buildSource(cfg, events)
	if err != nil {
		slog.Error("failed to set up media source", "error", err)
		os.Exit(1)
	}

	eng := engine.New(cfg, sampler, machine, source, notify.NewNotifier(cfg, events))
	if err := eng.Start(); err != nil {
		slog.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	srv := NewServer(cfg, eng)
	httpServer := srv.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, util.ShutdownSignals()...)
	<-sigChan

	slog.Info("shutting down")

	// Stop version checker goroutine
	srv.version.Stop()

	// Shut down HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if err := eng.Stop(); err != nil {
		slog.Error("error stopping engine", "error", err)
	}

	// Leave audio unmuted on exit.
	muter.SetMuted(false)

	if events != nil {
		if err := events.Close(); err != nil {
			slog.Error("error closing event log", "error", err)
		}
	}

	slog.Info("shutdown complete")
}

// buildSource constructs the configured media source. For the remote API
// source, stored tokens are restored if present; otherwise the interactive
// browser authorization runs before the source is returned.
func buildSource(cfg *config.Config, events *eventlog.Logger) (media.Source, error) {
	snap := cfg.Snapshot()

	if snap.MediaSource != "remote" {
		return media.NewLocalSource(cfg, media.NewSystemWindowLister()), nil
	}

	if !snap.HasRemote() {
		return nil, fmt.Errorf("media source is %q but the remote API credentials are not configured", snap.MediaSource)
	}

	mgr := token.NewManager(snap)
	mgr.SetEventLog(events)
	if mgr.Load() {
		slog.Info("restored stored tokens", "file", snap.TokenFile)
	} else {
		slog.Info("no stored tokens, starting browser authorization")
		ctx, cancel := context.WithTimeout(context.Background(), token.AuthorizeTimeout)
		defer cancel()
		if err := mgr.Authorize(ctx); err != nil {
			return nil, util.WrapError("authorize with remote API", err)
		}
	}

	return media.NewRemoteSource(cfg, mgr), nil
}
