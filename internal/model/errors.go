package model

import (
	"errors"
	"fmt"
)

// ErrSourceUnavailable marks a single reward source as unable to answer.
// It is absorbed inside the source adapter chain and never reaches callers.
var ErrSourceUnavailable = errors.New("reward source unavailable")

// ErrClaimAlreadyInFlight is returned when a claim is requested for an
// (owner, chain) pair that already has an unresolved claim.
var ErrClaimAlreadyInFlight = errors.New("claim already in flight for this chain")

// ErrChannelDegraded signals the push channel exhausted its reconnect
// attempts; callers should fall back to polling.
var ErrChannelDegraded = errors.New("push channel degraded, polling only")

// InvalidClaimRequestError reports a claim precondition violation.
type InvalidClaimRequestError struct {
	Reason string
}

func (e *InvalidClaimRequestError) Error() string {
	return fmt.Sprintf("invalid claim request: %s", e.Reason)
}

// ClaimFailedError reports a submitted claim that reverted or was rejected.
// The referenced records have been reverted to claimable; the claim can be
// retried.
type ClaimFailedError struct {
	ChainID uint64
	TxHash  string
	Err     error
}

func (e *ClaimFailedError) Error() string {
	if e.TxHash != "" {
		return fmt.Sprintf("claim failed on chain %d (tx %s): %v", e.ChainID, e.TxHash, e.Err)
	}
	return fmt.Sprintf("claim failed on chain %d: %v", e.ChainID, e.Err)
}

func (e *ClaimFailedError) Unwrap() error {
	return e.Err
}
