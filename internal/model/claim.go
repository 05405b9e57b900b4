package model

import "time"

// AttemptState is the lifecycle state of an in-flight claim.
type AttemptState string

const (
	AttemptSubmitted  AttemptState = "submitted"
	AttemptConfirming AttemptState = "confirming"
	AttemptConfirmed  AttemptState = "confirmed"
	AttemptFailed     AttemptState = "failed"
)

// ClaimAttempt tracks one claim operation from submission to resolution.
type ClaimAttempt struct {
	ID          string       `json:"id"`
	Owner       string       `json:"owner"`
	ChainID     uint64       `json:"chain_id"`
	RecordIDs   []string     `json:"record_ids"`
	TxHash      string       `json:"tx_hash,omitempty"`
	State       AttemptState `json:"state"`
	SubmittedAt time.Time    `json:"submitted_at"`
	ResolvedAt  *time.Time   `json:"resolved_at,omitempty"`
}
