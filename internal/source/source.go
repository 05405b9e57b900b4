package source

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"rewardscope/internal/model"
)

// Source resolves reward records for an owner on one chain. An
// unreachable or empty source returns an error wrapping
// model.ErrSourceUnavailable or an empty list; it never fabricates data.
type Source interface {
	Name() string
	FetchRewards(ctx context.Context, owner string, chainID uint64) ([]model.RewardRecord, error)
}

// FetchOption adjusts a single fetch.
type FetchOption func(*fetchOptions)

type fetchOptions struct {
	displayFallback bool
}

// WithDisplayFallback allows synthesized placeholder values when every
// source comes back empty. Only for presentational defaults (pool
// listings); owner-attributed reward data never gets synthesized amounts.
func WithDisplayFallback() FetchOption {
	return func(o *fetchOptions) {
		o.displayFallback = true
	}
}

// Chain tries sources in fixed priority order and short-circuits on the
// first non-empty, non-error result. Source failures degrade to "no data
// from this source" and advance to the next source; only invalid
// arguments propagate as errors.
type Chain struct {
	sources  []Source
	fallback Source
	logger   *zap.Logger
}

// NewChain builds an adapter chain. Sources are tried in the order given;
// fallback is consulted only when WithDisplayFallback is requested.
func NewChain(logger *zap.Logger, fallback Source, sources ...Source) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{
		sources:  sources,
		fallback: fallback,
		logger:   logger,
	}
}

// FetchRewards resolves the reward list for an owner on a chain. The
// result is possibly empty, never nil on success.
func (c *Chain) FetchRewards(ctx context.Context, owner string, chainID uint64, opts ...FetchOption) ([]model.RewardRecord, error) {
	if !common.IsHexAddress(owner) {
		return nil, fmt.Errorf("invalid owner address: %q", owner)
	}
	if chainID == 0 {
		return nil, fmt.Errorf("chain id must be greater than zero")
	}

	var options fetchOptions
	for _, opt := range opts {
		opt(&options)
	}

	for _, src := range c.sources {
		records, err := src.FetchRewards(ctx, owner, chainID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("reward source unavailable",
				zap.String("source", src.Name()),
				zap.Uint64("chain_id", chainID),
				zap.Error(err),
			)
			continue
		}
		if len(records) > 0 {
			return records, nil
		}
	}

	if options.displayFallback && c.fallback != nil {
		records, err := c.fallback.FetchRewards(ctx, owner, chainID)
		if err != nil {
			c.logger.Warn("fallback source failed", zap.Uint64("chain_id", chainID), zap.Error(err))
			return []model.RewardRecord{}, nil
		}
		return records, nil
	}

	return []model.RewardRecord{}, nil
}
