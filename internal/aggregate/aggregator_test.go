package aggregate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewardscope/internal/model"
)

func record(id string, chainID uint64, level int, amount string, status model.RewardStatus) model.RewardRecord {
	return model.RewardRecord{
		ID:      id,
		Owner:   "0x1111111111111111111111111111111111111111",
		ChainID: chainID,
		Token:   model.NativeToken,
		Level:   level,
		Amount:  decimal.RequireFromString(amount),
		Status:  status,
	}
}

func TestAggregateEmpty(t *testing.T) {
	summary := Aggregate(nil)

	assert.True(t, summary.TotalPending.IsZero())
	assert.True(t, summary.TotalClaimed.IsZero())
	assert.Empty(t, summary.ByChain)
	assert.Empty(t, summary.ByLevel)
	assert.Empty(t, summary.ByToken)
	assert.Empty(t, summary.ClaimableBundles)
}

func TestAggregateTotals(t *testing.T) {
	records := []model.RewardRecord{
		record("a", 8453, 1, "10", model.StatusPending),
		record("b", 8453, 1, "5", model.StatusClaimable),
		record("c", 56, 2, "3", model.StatusProcessing),
		record("d", 56, 2, "7", model.StatusClaimed),
		record("e", 1, 3, "2", model.StatusFailed),
	}

	summary := Aggregate(records)

	assert.Equal(t, "18", summary.TotalPending.String())
	assert.Equal(t, "7", summary.TotalClaimed.String())
}

func TestAggregateByLevel(t *testing.T) {
	records := []model.RewardRecord{
		record("a", 1, 1, "10", model.StatusClaimable),
		record("b", 1, 1, "5", model.StatusClaimable),
		record("c", 1, 2, "3", model.StatusClaimable),
	}

	summary := Aggregate(records)

	require.Len(t, summary.ByLevel, 2)
	assert.Equal(t, "15", summary.ByLevel[1].String())
	assert.Equal(t, "3", summary.ByLevel[2].String())
}

func TestAggregateByChainSumConsistency(t *testing.T) {
	records := []model.RewardRecord{
		record("a", 8453, 1, "1.25", model.StatusClaimable),
		record("b", 8453, 2, "2.5", model.StatusPending),
		record("c", 56, 1, "0.75", model.StatusProcessing),
	}

	summary := Aggregate(records)

	chainSum := decimal.Zero
	for _, amount := range summary.ByChain {
		chainSum = chainSum.Add(amount)
	}
	assert.True(t, chainSum.Equal(summary.TotalPending), "by-chain sum %s != total pending %s", chainSum, summary.TotalPending)
}

func TestAggregateClaimableBundles(t *testing.T) {
	records := []model.RewardRecord{
		record("a", 8453, 1, "12.5", model.StatusClaimable),
		record("b", 8453, 2, "7.5", model.StatusClaimable),
		record("c", 56, 1, "4", model.StatusClaimable),
		record("d", 1, 1, "100", model.StatusPending),
	}

	summary := Aggregate(records)

	require.Len(t, summary.ClaimableBundles, 2)

	assert.Equal(t, uint64(56), summary.ClaimableBundles[0].ChainID)
	assert.Equal(t, "4", summary.ClaimableBundles[0].TotalAmount.String())
	assert.Equal(t, []string{"c"}, summary.ClaimableBundles[0].RecordIDs)

	assert.Equal(t, uint64(8453), summary.ClaimableBundles[1].ChainID)
	assert.Equal(t, "20", summary.ClaimableBundles[1].TotalAmount.String())
	assert.ElementsMatch(t, []string{"a", "b"}, summary.ClaimableBundles[1].RecordIDs)
}

func TestAggregateSmallAmountsNoDrift(t *testing.T) {
	var records []model.RewardRecord
	for i := 0; i < 1000; i++ {
		records = append(records, record("r", 1, 1, "0.0001", model.StatusClaimable))
	}

	summary := Aggregate(records)

	assert.Equal(t, "0.1", summary.TotalPending.String())
	assert.Equal(t, "0.1000", FormatAmount(summary.TotalPending))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "12.5000", FormatAmount(decimal.RequireFromString("12.5")))
	assert.Equal(t, "0.0000", FormatAmount(decimal.Zero))
	assert.Equal(t, "1.2346", FormatAmount(decimal.RequireFromString("1.23456")))
}

func TestFilters(t *testing.T) {
	records := []model.RewardRecord{
		record("a", 8453, 1, "1", model.StatusClaimable),
		record("b", 56, 2, "2", model.StatusPending),
		record("c", 8453, 2, "3", model.StatusClaimed),
	}

	byChain := FilterByChain(records, 8453)
	require.Len(t, byChain, 2)
	assert.Equal(t, "a", byChain[0].ID)
	assert.Equal(t, "c", byChain[1].ID)

	byLevel := FilterByLevel(records, 2)
	require.Len(t, byLevel, 2)

	byStatus := FilterByStatus(records, model.StatusClaimable, model.StatusPending)
	require.Len(t, byStatus, 2)
	assert.Equal(t, "a", byStatus[0].ID)
	assert.Equal(t, "b", byStatus[1].ID)
}
