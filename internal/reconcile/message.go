package reconcile

import "time"

// SweepMessage is the queued request to reconcile a fixed set of records.
type SweepMessage struct {
	SweepID     string    `json:"sweep_id"`
	ItemIDs     []string  `json:"item_ids"`
	RequestedAt time.Time `json:"requested_at"`
}
