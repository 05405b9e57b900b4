package claim

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rewardscope/internal/model"
)

// RecordStore is the reward cache view the orchestrator validates
// against and reconciles into.
type RecordStore interface {
	Records(owner string, chainID uint64) []model.RewardRecord
	SetStatus(owner string, chainID uint64, ids []string, status model.RewardStatus, txHash string) int
	Invalidate(owner string, chainID uint64)
}

// SubmitRequest describes one claim submission.
type SubmitRequest struct {
	Owner     string
	ChainID   uint64
	RecordIDs []string
	Amount    decimal.Decimal
	// ClaimAll is set when the request covers every claimable record on
	// the chain, letting the submitter use the aggregate claim call.
	ClaimAll bool
}

// Submitter executes a claim transaction and returns its hash. Both the
// signer-executed path and the gasless backend path satisfy this.
type Submitter interface {
	Submit(ctx context.Context, req SubmitRequest) (string, error)
}

// SubmitterFunc adapts a function to the Submitter interface.
type SubmitterFunc func(ctx context.Context, req SubmitRequest) (string, error)

func (f SubmitterFunc) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	return f(ctx, req)
}

// ReceiptWatcher resolves whether a submitted transaction succeeded.
type ReceiptWatcher interface {
	WaitForReceipt(ctx context.Context, chainID uint64, txHash string) (bool, error)
}

// Ledger records claim attempts for audit. Optional; write failures are
// logged, never fatal to the claim.
type Ledger interface {
	RecordClaimAttempt(ctx context.Context, attempt model.ClaimAttempt) error
}

// Config holds orchestrator settings.
type Config struct {
	// ConfirmTimeout bounds the wait for transaction confirmation.
	// Timeout expiry fails the claim and reverts its records.
	ConfirmTimeout time.Duration
}

// Orchestrator drives claims through submitted, confirming, and
// confirmed or failed, reconciling record statuses on resolution. One
// claim per (owner, chain) may be in flight at a time.
type Orchestrator struct {
	cfg       Config
	store     RecordStore
	submitter Submitter
	watcher   ReceiptWatcher
	ledger    Ledger
	logger    *zap.Logger

	inflight inflightSet

	// OnConfirmed runs after a confirmed claim has invalidated the cache,
	// typically to trigger a refetch and re-aggregation.
	OnConfirmed func(owner string, chainID uint64)
}

// NewOrchestrator builds a claim orchestrator. The ledger may be nil.
func NewOrchestrator(cfg Config, store RecordStore, submitter Submitter, watcher ReceiptWatcher, ledger Ledger, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:       cfg,
		store:     store,
		submitter: submitter,
		watcher:   watcher,
		ledger:    ledger,
		logger:    logger,
	}
}

// Claim submits a claim for the given records and drives it to
// resolution. Every record must be claimable on the given chain for the
// given owner.
func (o *Orchestrator) Claim(ctx context.Context, owner string, chainID uint64, recordIDs []string) (*model.ClaimAttempt, error) {
	owner = strings.ToLower(owner)

	if len(recordIDs) == 0 {
		return nil, &model.InvalidClaimRequestError{Reason: "no records requested"}
	}

	// The guard runs before record validation: an unresolved claim holds
	// its records in processing, and a concurrent request must be told
	// the claim is in flight, not that the records are invalid.
	if !o.inflight.acquire(owner, chainID) {
		return nil, model.ErrClaimAlreadyInFlight
	}
	defer o.inflight.release(owner, chainID)

	records := o.store.Records(owner, chainID)
	byID := make(map[string]model.RewardRecord, len(records))
	claimableCount := 0
	for _, record := range records {
		byID[record.ID] = record
		if record.Status == model.StatusClaimable {
			claimableCount++
		}
	}

	total := decimal.Zero
	for _, id := range recordIDs {
		record, ok := byID[id]
		if !ok {
			return nil, &model.InvalidClaimRequestError{Reason: fmt.Sprintf("record %s not found on chain %d", id, chainID)}
		}
		if record.ChainID != chainID {
			return nil, &model.InvalidClaimRequestError{Reason: fmt.Sprintf("record %s belongs to chain %d, not %d", id, record.ChainID, chainID)}
		}
		if record.Status != model.StatusClaimable {
			return nil, &model.InvalidClaimRequestError{Reason: fmt.Sprintf("record %s is %s, not claimable", id, record.Status)}
		}
		total = total.Add(record.Amount)
	}

	o.store.SetStatus(owner, chainID, recordIDs, model.StatusProcessing, "")

	attempt := &model.ClaimAttempt{
		ID:          uuid.New().String(),
		Owner:       owner,
		ChainID:     chainID,
		RecordIDs:   append([]string(nil), recordIDs...),
		State:       model.AttemptSubmitted,
		SubmittedAt: time.Now().UTC(),
	}

	txHash, err := o.submitter.Submit(ctx, SubmitRequest{
		Owner:     owner,
		ChainID:   chainID,
		RecordIDs: recordIDs,
		Amount:    total,
		ClaimAll:  len(recordIDs) == claimableCount,
	})
	if err != nil {
		return nil, o.fail(ctx, attempt, err)
	}

	attempt.TxHash = txHash
	attempt.State = model.AttemptConfirming
	o.logger.Info("claim submitted",
		zap.String("owner", owner),
		zap.Uint64("chain_id", chainID),
		zap.String("tx_hash", txHash),
		zap.Int("records", len(recordIDs)),
		zap.String("amount", total.String()),
	)

	waitCtx := ctx
	if o.cfg.ConfirmTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, o.cfg.ConfirmTimeout)
		defer cancel()
	}

	success, err := o.watcher.WaitForReceipt(waitCtx, chainID, txHash)
	if err != nil {
		return nil, o.fail(ctx, attempt, fmt.Errorf("await confirmation: %w", err))
	}
	if !success {
		return nil, o.fail(ctx, attempt, fmt.Errorf("transaction reverted"))
	}

	o.store.SetStatus(owner, chainID, recordIDs, model.StatusClaimed, txHash)
	now := time.Now().UTC()
	attempt.State = model.AttemptConfirmed
	attempt.ResolvedAt = &now
	o.record(ctx, *attempt)

	o.store.Invalidate(owner, chainID)
	if o.OnConfirmed != nil {
		o.OnConfirmed(owner, chainID)
	}

	o.logger.Info("claim confirmed",
		zap.String("owner", owner),
		zap.Uint64("chain_id", chainID),
		zap.String("tx_hash", txHash),
	)
	return attempt, nil
}

// fail reverts the attempt's records to claimable and returns a
// retryable ClaimFailedError.
func (o *Orchestrator) fail(ctx context.Context, attempt *model.ClaimAttempt, cause error) error {
	o.store.SetStatus(attempt.Owner, attempt.ChainID, attempt.RecordIDs, model.StatusClaimable, "")

	now := time.Now().UTC()
	attempt.State = model.AttemptFailed
	attempt.ResolvedAt = &now
	o.record(ctx, *attempt)

	o.logger.Warn("claim failed",
		zap.String("owner", attempt.Owner),
		zap.Uint64("chain_id", attempt.ChainID),
		zap.String("tx_hash", attempt.TxHash),
		zap.Error(cause),
	)
	return &model.ClaimFailedError{ChainID: attempt.ChainID, TxHash: attempt.TxHash, Err: cause}
}

func (o *Orchestrator) record(ctx context.Context, attempt model.ClaimAttempt) {
	if o.ledger == nil {
		return
	}
	if err := o.ledger.RecordClaimAttempt(ctx, attempt); err != nil {
		o.logger.Warn("claim ledger write failed", zap.String("attempt", attempt.ID), zap.Error(err))
	}
}
