package claim

import (
	"context"

	"rewardscope/internal/model"
)

// ChainFailure names the chain a batch constituent failed on.
type ChainFailure struct {
	ChainID uint64 `json:"chain_id"`
	Err     error  `json:"-"`
	Reason  string `json:"reason"`
}

// BatchResult reports per-chain outcomes of a multi-chain claim. A batch
// with any failure is partial success, never reported as full success.
type BatchResult struct {
	Succeeded []uint64             `json:"succeeded"`
	Failed    []ChainFailure       `json:"failed"`
	Attempts  []model.ClaimAttempt `json:"attempts"`
}

// AllSucceeded reports whether every attempted chain confirmed.
func (r BatchResult) AllSucceeded() bool {
	return len(r.Failed) == 0
}

// ClaimAll claims every claimable record on each listed chain,
// chain-by-chain. It is not atomic across chains: a failure on a later
// chain leaves earlier chains claimed and the failed chain retryable.
// Chains with nothing claimable are skipped.
func (o *Orchestrator) ClaimAll(ctx context.Context, owner string, chainIDs []uint64) BatchResult {
	var result BatchResult

	for _, chainID := range chainIDs {
		if ctx.Err() != nil {
			result.Failed = append(result.Failed, ChainFailure{
				ChainID: chainID,
				Err:     ctx.Err(),
				Reason:  ctx.Err().Error(),
			})
			continue
		}

		var ids []string
		for _, record := range o.store.Records(owner, chainID) {
			if record.Status == model.StatusClaimable {
				ids = append(ids, record.ID)
			}
		}
		if len(ids) == 0 {
			continue
		}

		attempt, err := o.Claim(ctx, owner, chainID, ids)
		if err != nil {
			result.Failed = append(result.Failed, ChainFailure{
				ChainID: chainID,
				Err:     err,
				Reason:  err.Error(),
			})
			continue
		}

		result.Succeeded = append(result.Succeeded, chainID)
		result.Attempts = append(result.Attempts, *attempt)
	}

	return result
}
