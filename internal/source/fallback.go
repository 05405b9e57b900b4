package source

import (
	"context"

	"github.com/shopspring/decimal"

	"rewardscope/internal/model"
)

// FallbackSource synthesizes deterministic placeholder rows for
// presentational defaults when no real data exists. Amounts are a pure
// function of the chain ID and are attributed to the zero address, never
// to a real account.
type FallbackSource struct {
	Levels int
}

func (s *FallbackSource) Name() string { return "fallback" }

// FetchRewards returns placeholder display rows for a chain.
func (s *FallbackSource) FetchRewards(_ context.Context, _ string, chainID uint64) ([]model.RewardRecord, error) {
	levels := s.Levels
	if levels <= 0 || levels > 5 {
		levels = 3
	}

	records := make([]model.RewardRecord, 0, levels)
	for level := 1; level <= levels; level++ {
		seed := int64(chainID%97) + int64(level)*10
		records = append(records, model.RewardRecord{
			ID:      recordID(chainID, model.NativeToken, level, "placeholder"),
			Owner:   model.NativeToken,
			ChainID: chainID,
			Token:   model.NativeToken,
			Level:   level,
			Amount:  decimal.NewFromInt(seed).Div(decimal.NewFromInt(10)),
			Status:  model.StatusPending,
		})
	}
	return records, nil
}
