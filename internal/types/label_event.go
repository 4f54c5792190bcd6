package types

import "time"

// LabelEvent is one immutable entry in an image's label history. Append
// order, not the labeledAt timestamp, is authoritative for derived state;
// concurrent clients are free to submit skewed clocks.
type LabelEvent struct {
	Label     string    `json:"label"`
	LabeledBy string    `json:"labeledBy"`
	LabeledAt time.Time `json:"labeledAt"`
}
