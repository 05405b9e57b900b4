package source

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rewardscope/internal/chain"
	"rewardscope/internal/model"
)

const nativeDecimals = 18

// ContractConfig holds retry settings for contract reads.
type ContractConfig struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

// ContractSource reads reward accounting from the on-chain reward vault.
// A missing deployment or unreachable endpoint is "no data from this
// source"; a single token's failed read skips that token only.
type ContractSource struct {
	cfg      ContractConfig
	registry *chain.Registry
	pool     *chain.Pool
	logger   *zap.Logger
	decimals *tokenDecimalsCache
}

// NewContractSource builds the on-chain source over the client pool.
func NewContractSource(cfg ContractConfig, registry *chain.Registry, pool *chain.Pool, logger *zap.Logger) *ContractSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContractSource{
		cfg:      cfg,
		registry: registry,
		pool:     pool,
		logger:   logger,
		decimals: newTokenDecimalsCache(),
	}
}

func (s *ContractSource) Name() string { return "contract" }

// FetchRewards reads the vault's token list and per-token pending/claimed
// breakdown for the owner.
func (s *ContractSource) FetchRewards(ctx context.Context, owner string, chainID uint64) ([]model.RewardRecord, error) {
	vault, ok := s.registry.ContractAddress(chainID, chain.RoleRewardVault)
	if !ok {
		return nil, fmt.Errorf("%w: chain %d has no reward vault", model.ErrSourceUnavailable, chainID)
	}

	client, err := s.pool.Client(ctx, chainID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrSourceUnavailable, err)
	}

	vaultABI, err := RewardVaultABI()
	if err != nil {
		return nil, fmt.Errorf("parse reward vault abi: %w", err)
	}

	ownerAddr := common.HexToAddress(owner)

	tokens, err := s.rewardTokens(ctx, client, vaultABI, vault)
	if err != nil {
		return nil, fmt.Errorf("%w: reward tokens: %v", model.ErrSourceUnavailable, err)
	}

	records := make([]model.RewardRecord, 0, len(tokens)*2)
	for _, token := range tokens {
		tokenRecords, err := s.fetchTokenRewards(ctx, client, vaultABI, vault, ownerAddr, token, chainID)
		if err != nil {
			s.logger.Warn("token reward read failed, skipping token",
				zap.Uint64("chain_id", chainID),
				zap.String("token", token.Hex()),
				zap.Error(err),
			)
			continue
		}
		records = append(records, tokenRecords...)
	}

	return records, nil
}

func (s *ContractSource) fetchTokenRewards(
	ctx context.Context,
	client *chain.Client,
	vaultABI abiCodec,
	vault common.Address,
	owner common.Address,
	token common.Address,
	chainID uint64,
) ([]model.RewardRecord, error) {
	pending, err := s.callUint256(ctx, client, vaultABI, vault, "pendingReward", owner, token)
	if err != nil {
		return nil, fmt.Errorf("pendingReward: %w", err)
	}
	claimed, err := s.callUint256(ctx, client, vaultABI, vault, "claimedReward", owner, token)
	if err != nil {
		return nil, fmt.Errorf("claimedReward: %w", err)
	}

	if pending.Sign() == 0 && claimed.Sign() == 0 {
		return nil, nil
	}

	level, err := s.callUint8(ctx, client, vaultABI, vault, "rewardLevel", owner, token)
	if err != nil {
		return nil, fmt.Errorf("rewardLevel: %w", err)
	}
	if level == 0 {
		level = 1
	}

	distTS, err := s.callUint256(ctx, client, vaultABI, vault, "lastDistribution", owner, token)
	if err != nil {
		return nil, fmt.Errorf("lastDistribution: %w", err)
	}
	var distributedAt *time.Time
	if distTS.Sign() > 0 && distTS.IsInt64() {
		ts := time.Unix(distTS.Int64(), 0).UTC()
		distributedAt = &ts
	}

	decimals, err := s.tokenDecimals(ctx, client, token)
	if err != nil {
		return nil, fmt.Errorf("token decimals: %w", err)
	}

	records := make([]model.RewardRecord, 0, 2)
	if pending.Sign() > 0 {
		records = append(records, model.RewardRecord{
			ID:            recordID(chainID, token.Hex(), int(level), "pending"),
			Owner:         owner.Hex(),
			ChainID:       chainID,
			Token:         token.Hex(),
			Level:         int(level),
			Amount:        decimal.NewFromBigInt(pending, -int32(decimals)),
			Status:        model.StatusClaimable,
			DistributedAt: distributedAt,
		})
	}
	if claimed.Sign() > 0 {
		records = append(records, model.RewardRecord{
			ID:            recordID(chainID, token.Hex(), int(level), "claimed"),
			Owner:         owner.Hex(),
			ChainID:       chainID,
			Token:         token.Hex(),
			Level:         int(level),
			Amount:        decimal.NewFromBigInt(claimed, -int32(decimals)),
			Status:        model.StatusClaimed,
			DistributedAt: distributedAt,
		})
	}
	return records, nil
}

type abiCodec interface {
	Pack(name string, args ...interface{}) ([]byte, error)
	Unpack(name string, data []byte) ([]interface{}, error)
}

func (s *ContractSource) rewardTokens(ctx context.Context, client *chain.Client, codec abiCodec, vault common.Address) ([]common.Address, error) {
	values, err := s.call(ctx, client, codec, vault, "rewardTokens")
	if err != nil {
		return nil, err
	}
	tokens, ok := values[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("unexpected rewardTokens result type %T", values[0])
	}
	return tokens, nil
}

func (s *ContractSource) callUint256(ctx context.Context, client *chain.Client, codec abiCodec, vault common.Address, method string, args ...interface{}) (*big.Int, error) {
	values, err := s.call(ctx, client, codec, vault, method, args...)
	if err != nil {
		return nil, err
	}
	value, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result type %T", method, values[0])
	}
	return value, nil
}

func (s *ContractSource) callUint8(ctx context.Context, client *chain.Client, codec abiCodec, vault common.Address, method string, args ...interface{}) (uint8, error) {
	values, err := s.call(ctx, client, codec, vault, method, args...)
	if err != nil {
		return 0, err
	}
	value, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected %s result type %T", method, values[0])
	}
	return value, nil
}

func (s *ContractSource) call(ctx context.Context, client *chain.Client, codec abiCodec, target common.Address, method string, args ...interface{}) ([]interface{}, error) {
	input, err := codec.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	var raw []byte
	err = withRetry(ctx, s.cfg.MaxRetries, s.cfg.RetryBackoff, func(ctx context.Context) error {
		var callErr error
		raw, callErr = client.CallContract(ctx, ethereum.CallMsg{To: &target, Data: input})
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := codec.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("empty %s result", method)
	}
	return values, nil
}

func (s *ContractSource) tokenDecimals(ctx context.Context, client *chain.Client, token common.Address) (uint8, error) {
	if token == (common.Address{}) {
		return nativeDecimals, nil
	}
	if decimals, ok := s.decimals.get(token); ok {
		return decimals, nil
	}

	codec, err := erc20DecimalsABIInstance()
	if err != nil {
		return 0, err
	}
	values, err := s.call(ctx, client, codec, token, "decimals")
	if err != nil {
		return 0, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals result type %T", values[0])
	}

	s.decimals.set(token, decimals)
	return decimals, nil
}

func recordID(chainID uint64, token string, level int, kind string) string {
	return fmt.Sprintf("%d:%s:%d:%s", chainID, token, level, kind)
}

// tokenDecimalsCache caches token decimals by address.
type tokenDecimalsCache struct {
	mu   sync.RWMutex
	data map[common.Address]uint8
}

func newTokenDecimalsCache() *tokenDecimalsCache {
	return &tokenDecimalsCache{data: make(map[common.Address]uint8)}
}

func (c *tokenDecimalsCache) get(address common.Address) (uint8, bool) {
	c.mu.RLock()
	decimals, ok := c.data[address]
	c.mu.RUnlock()
	return decimals, ok
}

func (c *tokenDecimalsCache) set(address common.Address, decimals uint8) {
	c.mu.Lock()
	c.data[address] = decimals
	c.mu.Unlock()
}
