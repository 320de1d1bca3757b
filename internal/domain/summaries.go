package domain

import "time"

// PairSummary is the rolling AI summary a creator accumulates toward one
// friend, keyed by the canonical pair key. LastUpdateID makes fan-out
// re-delivery idempotent: an update already stamped here is not applied
// twice, and UpdateCount stays monotonic.
type PairSummary struct {
	PairKey      string    `json:"-"`
	CreatorID    string    `json:"creator_id"`
	TargetID     string    `json:"target_id"`
	Summary      string    `json:"summary"`
	Suggestions  string    `json:"suggestions,omitempty"`
	LastUpdateID string    `json:"last_update_id"`
	UpdateCount  int       `json:"update_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
