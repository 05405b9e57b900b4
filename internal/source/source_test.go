package source

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewardscope/internal/model"
)

const testOwner = "0x1111111111111111111111111111111111111111"

type stubSource struct {
	name    string
	records []model.RewardRecord
	err     error
	calls   int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) FetchRewards(_ context.Context, _ string, _ uint64) ([]model.RewardRecord, error) {
	s.calls++
	return s.records, s.err
}

func testRecord(id string) model.RewardRecord {
	return model.RewardRecord{
		ID:      id,
		Owner:   testOwner,
		ChainID: 8453,
		Token:   model.NativeToken,
		Level:   1,
		Amount:  decimal.RequireFromString("12.5"),
		Status:  model.StatusClaimable,
	}
}

func TestChainFirstSourceWins(t *testing.T) {
	first := &stubSource{name: "contract", records: []model.RewardRecord{testRecord("a")}}
	second := &stubSource{name: "api", records: []model.RewardRecord{testRecord("b")}}
	chain := NewChain(nil, nil, first, second)

	records, err := chain.FetchRewards(context.Background(), testOwner, 8453)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, 0, second.calls, "second source should not be tried")
}

func TestChainFallthroughOnError(t *testing.T) {
	first := &stubSource{name: "contract", err: errors.New("rpc unreachable")}
	second := &stubSource{name: "api", records: []model.RewardRecord{testRecord("b")}}
	chain := NewChain(nil, nil, first, second)

	records, err := chain.FetchRewards(context.Background(), testOwner, 8453)
	require.NoError(t, err, "source errors must be absorbed")
	require.Len(t, records, 1)
	assert.Equal(t, "b", records[0].ID)
}

func TestChainFallthroughOnEmpty(t *testing.T) {
	first := &stubSource{name: "contract"}
	second := &stubSource{name: "api", records: []model.RewardRecord{testRecord("b")}}
	chain := NewChain(nil, nil, first, second)

	records, err := chain.FetchRewards(context.Background(), testOwner, 8453)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, first.calls)
}

func TestChainAllEmptyYieldsEmptyList(t *testing.T) {
	chain := NewChain(nil, &FallbackSource{}, &stubSource{name: "contract"}, &stubSource{name: "api"})

	records, err := chain.FetchRewards(context.Background(), testOwner, 8453)
	require.NoError(t, err)
	require.NotNil(t, records)
	assert.Empty(t, records, "owner data must never be synthesized")
}

func TestChainDisplayFallback(t *testing.T) {
	chain := NewChain(nil, &FallbackSource{Levels: 2}, &stubSource{name: "contract"}, &stubSource{name: "api"})

	records, err := chain.FetchRewards(context.Background(), testOwner, 8453, WithDisplayFallback())
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, record := range records {
		assert.Equal(t, model.NativeToken, record.Owner, "placeholder rows are not attributed to the caller")
	}
}

func TestChainInvalidOwnerPropagates(t *testing.T) {
	chain := NewChain(nil, nil, &stubSource{name: "contract"})

	_, err := chain.FetchRewards(context.Background(), "not-an-address", 8453)
	require.Error(t, err)

	_, err = chain.FetchRewards(context.Background(), testOwner, 0)
	require.Error(t, err)
}

func TestFallbackDeterministic(t *testing.T) {
	fallback := &FallbackSource{}

	first, err := fallback.FetchRewards(context.Background(), testOwner, 8453)
	require.NoError(t, err)
	second, err := fallback.FetchRewards(context.Background(), testOwner, 8453)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
