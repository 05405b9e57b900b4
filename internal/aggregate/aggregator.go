package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"rewardscope/internal/model"
)

// Summary holds the aggregated view of a reward record set.
type Summary struct {
	TotalPending     decimal.Decimal            `json:"total_pending"`
	TotalClaimed     decimal.Decimal            `json:"total_claimed"`
	ByChain          map[uint64]decimal.Decimal `json:"by_chain"`
	ByLevel          map[int]decimal.Decimal    `json:"by_level"`
	ByToken          map[string]decimal.Decimal `json:"by_token"`
	ClaimableBundles []model.ClaimableBundle    `json:"claimable_bundles"`
}

// Aggregate computes totals, per-dimension breakdowns, and claimable
// bundles over the given records. It is a pure function: callers filter
// the record set first if they want a narrower view. All sums use decimal
// arithmetic; display rounding is applied only at presentation time.
func Aggregate(records []model.RewardRecord) Summary {
	summary := Summary{
		TotalPending:     decimal.Zero,
		TotalClaimed:     decimal.Zero,
		ByChain:          make(map[uint64]decimal.Decimal),
		ByLevel:          make(map[int]decimal.Decimal),
		ByToken:          make(map[string]decimal.Decimal),
		ClaimableBundles: []model.ClaimableBundle{},
	}

	bundles := make(map[uint64]*model.ClaimableBundle)

	for _, record := range records {
		if record.CountsTowardPending() {
			summary.TotalPending = summary.TotalPending.Add(record.Amount)
		} else if record.Status == model.StatusClaimed {
			summary.TotalClaimed = summary.TotalClaimed.Add(record.Amount)
		}

		summary.ByChain[record.ChainID] = summary.ByChain[record.ChainID].Add(record.Amount)
		summary.ByLevel[record.Level] = summary.ByLevel[record.Level].Add(record.Amount)
		summary.ByToken[record.Token] = summary.ByToken[record.Token].Add(record.Amount)

		if record.Status == model.StatusClaimable {
			bundle := bundles[record.ChainID]
			if bundle == nil {
				bundle = &model.ClaimableBundle{ChainID: record.ChainID, TotalAmount: decimal.Zero}
				bundles[record.ChainID] = bundle
			}
			bundle.TotalAmount = bundle.TotalAmount.Add(record.Amount)
			bundle.RecordIDs = append(bundle.RecordIDs, record.ID)
		}
	}

	for _, bundle := range bundles {
		summary.ClaimableBundles = append(summary.ClaimableBundles, *bundle)
	}
	sort.Slice(summary.ClaimableBundles, func(i, j int) bool {
		return summary.ClaimableBundles[i].ChainID < summary.ClaimableBundles[j].ChainID
	})

	return summary
}

// FormatAmount renders an amount with fixed display precision. Applied at
// presentation time only, never before summation.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(4)
}
