package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// NativeToken is the sentinel token address for a chain's native asset.
const NativeToken = "0x0000000000000000000000000000000000000000"

// RewardStatus is the lifecycle state of a reward record.
type RewardStatus string

const (
	StatusPending    RewardStatus = "pending"
	StatusClaimable  RewardStatus = "claimable"
	StatusProcessing RewardStatus = "processing"
	StatusClaimed    RewardStatus = "claimed"
	StatusFailed     RewardStatus = "failed"
)

// RewardRecord is one accounted reward unit for an owner on a chain.
// Amount is fixed at creation; only Status and TxHash mutate, and only
// forward through the claim lifecycle (a failed claim reverts the record
// to claimable).
type RewardRecord struct {
	ID            string          `json:"id"`
	Owner         string          `json:"owner"`
	ChainID       uint64          `json:"chain_id"`
	Token         string          `json:"token"`
	Level         int             `json:"level"`
	Amount        decimal.Decimal `json:"amount"`
	Status        RewardStatus    `json:"status"`
	DistributedAt *time.Time      `json:"distributed_at,omitempty"`
	TxHash        string          `json:"tx_hash,omitempty"`
}

// CountsTowardPending reports whether the record's amount belongs in the
// pending total (credited but not yet claimed).
func (r RewardRecord) CountsTowardPending() bool {
	switch r.Status {
	case StatusPending, StatusClaimable, StatusProcessing:
		return true
	default:
		return false
	}
}

// ClaimableBundle groups the currently claimable records of one owner on
// one chain. Derived on each aggregation pass, never persisted.
type ClaimableBundle struct {
	ChainID     uint64          `json:"chain_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	RecordIDs   []string        `json:"record_ids"`
}
