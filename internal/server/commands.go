package server

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/vizmute/vizmute/internal/config"
	"github.com/vizmute/vizmute/internal/engine"
	"github.com/vizmute/vizmute/internal/notify"
)

// WSCommand is a command received from a WebSocket client.
type WSCommand struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// CommandHandler processes WebSocket commands.
type CommandHandler struct {
	cfg    *config.Config
	engine *engine.Engine
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(cfg *config.Config, eng *engine.Engine) *CommandHandler {
	return &CommandHandler{cfg: cfg, engine: eng}
}

// Handle processes a WebSocket command and performs the requested action.
// Commands use slash-style format: namespace/action (e.g., "display/update",
// "control/force-mute")
func (h *CommandHandler) Handle(cmd WSCommand, send chan<- any, triggerStatusUpdate func()) {
	parts := strings.SplitN(cmd.Type, "/", 3)
	namespace := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}
	subaction := ""
	if len(parts) > 2 {
		subaction = parts[2]
	}

	switch namespace {
	case "display":
		h.handleDisplay(action, cmd, send)
	case "ads":
		h.handleAds(action, cmd, send)
	case "media":
		h.handleMedia(action, cmd, send)
	case "control":
		h.handleControl(action, cmd, send)
	case "notifications":
		h.handleNotifications(action, subaction, cmd, send)
	case "config":
		h.handleConfig(action, send)
	case "status":
		h.handleStatus(action, send)
	default:
		slog.Warn("unknown WebSocket command", "type", cmd.Type)
	}

	triggerStatusUpdate()
}

// --- Namespace handlers ---

// handleDisplay routes display/* commands
func (h *CommandHandler) handleDisplay(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "update":
		h.handleDisplayUpdate(cmd, send)
	case "get":
		h.handleDisplayGet(send)
	default:
		slog.Warn("unknown display action", "action", action)
	}
}

// handleAds routes ads/* commands
func (h *CommandHandler) handleAds(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "update":
		h.handleAdsUpdate(cmd, send)
	case "get":
		h.handleAdsGet(send)
	default:
		slog.Warn("unknown ads action", "action", action)
	}
}

// handleMedia routes media/* commands
func (h *CommandHandler) handleMedia(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "update":
		h.handleMediaUpdate(cmd, send)
	default:
		slog.Warn("unknown media action", "action", action)
	}
}

// handleControl routes control/* commands
func (h *CommandHandler) handleControl(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "force-mute":
		h.engine.ForceMute()
		SendSuccess(send, cmd.Type, nil)
	case "force-unmute":
		h.engine.ForceUnmute()
		SendSuccess(send, cmd.Type, nil)
	default:
		slog.Warn("unknown control action", "action", action)
	}
}

// handleNotifications routes notifications/*/* commands
func (h *CommandHandler) handleNotifications(action, subaction string, cmd WSCommand, send chan<- any) {
	switch action {
	case "webhook":
		switch subaction {
		case "update":
			h.handleWebhookUpdate(cmd, send)
		case "test":
			h.handleWebhookTest(cmd, send)
		case "get":
			h.handleWebhookGet(send)
		default:
			slog.Warn("unknown webhook action", "subaction", subaction)
		}
	default:
		slog.Warn("unknown notifications action", "action", action)
	}
}

// handleConfig routes config/* commands
func (h *CommandHandler) handleConfig(action string, send chan<- any) {
	switch action {
	case "get":
		h.handleConfigGet(send)
	default:
		slog.Warn("unknown config action", "action", action)
	}
}

// handleStatus routes status/* commands
func (h *CommandHandler) handleStatus(action string, send chan<- any) {
	switch action {
	case "get":
		// Status is sent automatically, but explicit get triggers immediate update
		slog.Debug("status/get received, status update will be triggered")
	default:
		slog.Warn("unknown status action", "action", action)
	}
}

// --- Command implementations ---

func (h *CommandHandler) handleDisplayUpdate(cmd WSCommand, send chan<- any) {
	HandleCommand(cmd, send, func(req *DisplayUpdateRequest) error {
		if req.Smoothing != nil {
			if err := h.cfg.SetSmoothing(*req.Smoothing); err != nil {
				return err
			}
		}
		if req.BarCount != nil {
			if err := h.cfg.SetBarCount(*req.BarCount); err != nil {
				return err
			}
		}
		return nil
	})
}

func (h *CommandHandler) handleDisplayGet(send chan<- any) {
	snap := h.cfg.Snapshot()
	SendSuccess(send, "display/get", map[string]any{
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
	})
}

func (h *CommandHandler) handleAdsUpdate(cmd WSCommand, send chan<- any) {
	HandleCommand(cmd, send, func(req *AdsUpdateRequest) error {
		return h.cfg.SetAdKeywords(req.Keywords)
	})
}

func (h *CommandHandler) handleAdsGet(send chan<- any) {
	snap := h.cfg.Snapshot()
	SendSuccess(send, "ads/get", map[string]any{
		"keywords":          snap.AdKeywords,
		"countdown_seconds": snap.CountdownSeconds,
	})
}

func (h *CommandHandler) handleMediaUpdate(cmd WSCommand, send chan<- any) {
	HandleCommand(cmd, send, func(req *MediaUpdateRequest) error {
		if req.SelectPID != nil {
			return h.cfg.SetSelectPID(*req.SelectPID)
		}
		return nil
	})
}

func (h *CommandHandler) handleWebhookUpdate(cmd WSCommand, send chan<- any) {
	HandleCommand(cmd, send, func(req *WebhookUpdateRequest) error {
		return h.cfg.SetWebhookURL(req.URL)
	})
}

func (h *CommandHandler) handleWebhookTest(cmd WSCommand, send chan<- any) {
	snap := h.cfg.Snapshot()
	if err := notify.SendTestWebhook(snap.WebhookURL); err != nil {
		SendError(send, cmd.Type, err)
		return
	}
	SendSuccess(send, cmd.Type, nil)
}

func (h *CommandHandler) handleWebhookGet(send chan<- any) {
	snap := h.cfg.Snapshot()
	SendSuccess(send, "notifications/webhook/get", map[string]any{
		"url": snap.WebhookURL,
	})
}

func (h *CommandHandler) handleConfigGet(send chan<- any) {
	snap := h.cfg.Snapshot()
	SendSuccess(send, "config/get", map[string]any{
		"media_source":      snap.MediaSource,
		"player_keywords":   snap.PlayerKeywords,
		"select_pid":        snap.SelectPID,
		"countdown_seconds": snap.CountdownSeconds,
		"web_port":          snap.WebPort,
	})
}
