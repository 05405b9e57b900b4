package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rewardscope/internal/model"
)

// APIConfig holds settings for the reward history endpoint.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// APISource fetches reward history from the referral API. Non-2xx
// responses and malformed bodies degrade to "source unavailable";
// individually malformed records are skipped with a warning.
type APISource struct {
	cfg    APIConfig
	client *http.Client
	logger *zap.Logger
}

// apiReward is the validated wire shape of one reward entry.
type apiReward struct {
	ID            string `json:"id"`
	Referrer      string `json:"referrer_address"`
	ChainID       uint64 `json:"chain_id"`
	Token         string `json:"token"`
	Level         int    `json:"level"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
	DistributedAt *int64 `json:"distributed_at,omitempty"`
	TxHash        string `json:"tx_hash,omitempty"`
}

type apiRewardResponse struct {
	Rewards []apiReward `json:"rewards"`
}

// NewAPISource builds the HTTP source.
func NewAPISource(cfg APIConfig, logger *zap.Logger) *APISource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &APISource{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (s *APISource) Name() string { return "api" }

// FetchRewards queries the reward-history endpoint scoped by owner and chain.
func (s *APISource) FetchRewards(ctx context.Context, owner string, chainID uint64) ([]model.RewardRecord, error) {
	if s.cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: api base url not configured", model.ErrSourceUnavailable)
	}

	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + "/api/v1/referral/rewards"
	query := url.Values{}
	query.Set("address", owner)
	query.Set("chain_id", strconv.FormatUint(chainID, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d", model.ErrSourceUnavailable, resp.StatusCode)
	}

	var payload apiRewardResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", model.ErrSourceUnavailable, err)
	}

	records := make([]model.RewardRecord, 0, len(payload.Rewards))
	for _, entry := range payload.Rewards {
		record, err := s.toRecord(entry, owner, chainID)
		if err != nil {
			s.logger.Warn("malformed reward entry skipped",
				zap.Uint64("chain_id", chainID),
				zap.String("id", entry.ID),
				zap.Error(err),
			)
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

func (s *APISource) toRecord(entry apiReward, owner string, chainID uint64) (model.RewardRecord, error) {
	amount, err := decimal.NewFromString(entry.Amount)
	if err != nil {
		return model.RewardRecord{}, fmt.Errorf("parse amount %q: %w", entry.Amount, err)
	}
	if amount.IsNegative() {
		return model.RewardRecord{}, fmt.Errorf("negative amount %s", entry.Amount)
	}

	status, err := parseStatus(entry.Status)
	if err != nil {
		return model.RewardRecord{}, err
	}

	if entry.ChainID != 0 && entry.ChainID != chainID {
		return model.RewardRecord{}, fmt.Errorf("chain id mismatch: got %d, want %d", entry.ChainID, chainID)
	}

	level := entry.Level
	if level < 1 || level > 5 {
		return model.RewardRecord{}, fmt.Errorf("level %d out of range", level)
	}

	token := entry.Token
	if token == "" {
		token = model.NativeToken
	}

	id := entry.ID
	if id == "" {
		id = recordID(chainID, token, level, string(status))
	}

	record := model.RewardRecord{
		ID:      id,
		Owner:   owner,
		ChainID: chainID,
		Token:   token,
		Level:   level,
		Amount:  amount,
		Status:  status,
		TxHash:  entry.TxHash,
	}

	if entry.DistributedAt != nil && *entry.DistributedAt > 0 {
		ts := time.Unix(*entry.DistributedAt, 0).UTC()
		record.DistributedAt = &ts
	}

	return record, nil
}

func parseStatus(raw string) (model.RewardStatus, error) {
	switch model.RewardStatus(strings.ToLower(raw)) {
	case model.StatusPending:
		return model.StatusPending, nil
	case model.StatusClaimable:
		return model.StatusClaimable, nil
	case model.StatusProcessing:
		return model.StatusProcessing, nil
	case model.StatusClaimed:
		return model.StatusClaimed, nil
	case model.StatusFailed:
		return model.StatusFailed, nil
	default:
		return "", fmt.Errorf("unknown status %q", raw)
	}
}
