package claim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// APISubmitterConfig holds settings for the gasless claim endpoint.
type APISubmitterConfig struct {
	BaseURL string
	Timeout time.Duration
}

// APISubmitter submits claims through the backend claim endpoint. The
// backend either executes the claim itself (gasless) and returns the
// transaction hash, or returns the contract call to execute locally, in
// which case the request is handed to the signer.
type APISubmitter struct {
	cfg    APISubmitterConfig
	client *http.Client
	signer Submitter
	logger *zap.Logger
}

type apiClaimRequest struct {
	Address   string   `json:"address"`
	ChainID   uint64   `json:"chain_id"`
	RecordIDs []string `json:"record_ids"`
	ClaimAll  bool     `json:"claim_all"`
}

type apiClaimResponse struct {
	TxHash          string `json:"tx_hash,omitempty"`
	ContractAddress string `json:"contract_address,omitempty"`
	Amount          string `json:"amount,omitempty"`
}

// NewAPISubmitter builds the gasless submitter. The signer is optional;
// without one, responses that require local execution fail the claim.
func NewAPISubmitter(cfg APISubmitterConfig, signer Submitter, logger *zap.Logger) *APISubmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &APISubmitter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		signer: signer,
		logger: logger,
	}
}

// Submit posts the claim and returns the resulting transaction hash.
func (s *APISubmitter) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if s.cfg.BaseURL == "" {
		return "", fmt.Errorf("claim api base url is required")
	}

	body, err := json.Marshal(apiClaimRequest{
		Address:   req.Owner,
		ChainID:   req.ChainID,
		RecordIDs: req.RecordIDs,
		ClaimAll:  req.ClaimAll,
	})
	if err != nil {
		return "", fmt.Errorf("marshal claim request: %w", err)
	}

	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + "/api/v1/referral/claim"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build claim request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("submit claim: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("claim endpoint returned status %d", resp.StatusCode)
	}

	var payload apiClaimResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode claim response: %w", err)
	}

	if payload.TxHash != "" {
		s.logger.Debug("gasless claim executed by backend",
			zap.Uint64("chain_id", req.ChainID),
			zap.String("tx_hash", payload.TxHash),
		)
		return payload.TxHash, nil
	}

	if payload.ContractAddress == "" {
		return "", fmt.Errorf("claim response has neither tx hash nor contract address")
	}
	if s.signer == nil {
		return "", fmt.Errorf("claim requires local signing but no signer is configured")
	}

	s.logger.Debug("claim requires local execution, delegating to signer",
		zap.Uint64("chain_id", req.ChainID),
		zap.String("contract", payload.ContractAddress),
	)
	return s.signer.Submit(ctx, req)
}
