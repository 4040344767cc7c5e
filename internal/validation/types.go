package validation

// PurchaseWebhookRequest is the payload for POST /webhooks/purchase.
// Track objects are kept raw; their keys vary by store and are normalized by
// NormalizeTrack.
type PurchaseWebhookRequest struct {
	OrderID string           `json:"order_id" validate:"required"`
	Tracks  []map[string]any `json:"tracks" validate:"required"`
}

// SweepRequest is the optional payload for POST /webhooks/sweep.
type SweepRequest struct {
	Limit int `json:"limit,omitempty" validate:"omitempty,min=1,max=10"`
}
