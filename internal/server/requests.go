package server

// DisplayUpdateRequest updates the visual rendering settings. Pointer fields
// distinguish "absent" from "zero"; only present fields are applied.
type DisplayUpdateRequest struct {
	Smoothing *float64 `json:"smoothing" validate:"omitempty,gte=0,lt=1"`
	BarCount  *int     `json:"bar_count" validate:"omitempty,gte=1,lte=512"`
}

// AdsUpdateRequest replaces the advertisement keyword list.
type AdsUpdateRequest struct {
	Keywords []string `json:"keywords" validate:"required,dive,min=1,max=128"`
}

// MediaUpdateRequest updates the media title selection.
type MediaUpdateRequest struct {
	SelectPID *int `json:"select_pid" validate:"omitempty,gte=0"`
}

// WebhookUpdateRequest updates the notification webhook endpoint. An empty
// URL disables webhook delivery.
type WebhookUpdateRequest struct {
	URL string `json:"url" validate:"omitempty,url,max=2048"`
}
