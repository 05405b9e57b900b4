package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rewardscope/internal/chain"
	"rewardscope/internal/claim"
	"rewardscope/internal/config"
	"rewardscope/internal/model"
	"rewardscope/internal/reward"
	"rewardscope/internal/storage/postgres"
)

func runClaim(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadClaim(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Owner == "" {
		return fmt.Errorf("owner address is required")
	}
	if cfg.APIBase == "" {
		return fmt.Errorf("claim api base url is required")
	}
	if !cfg.AllChains && cfg.ChainID == 0 {
		return fmt.Errorf("either --chain or --all-chains is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := config.BuildRegistry(cfg.ChainEntries)
	pool := chain.NewPool(registry, logger)
	defer pool.Close()

	sources := newSourceChain(cfg.APIBase, 0, cfg.MaxRetries, cfg.RetryBackoff, registry, pool, logger)
	service := reward.NewService(sources, logger)

	var ledger claim.Ledger
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		ledger = store
	}

	submitter := claim.NewAPISubmitter(claim.APISubmitterConfig{BaseURL: cfg.APIBase}, nil, logger)
	orchestrator := claim.NewOrchestrator(claim.Config{
		ConfirmTimeout: cfg.ConfirmTimeout,
	}, service, submitter, pool, ledger, logger)

	chains := []uint64{cfg.ChainID}
	if cfg.AllChains {
		chains = registry.ChainIDs()
		if len(chains) == 0 {
			return fmt.Errorf("no chains configured")
		}
	}

	service.RefreshAll(ctx, cfg.Owner, chains)

	if cfg.AllChains {
		return runBatchClaim(ctx, orchestrator, cfg.Owner, chains, logger)
	}

	recordIDs := cfg.Records
	if len(recordIDs) == 0 {
		for _, record := range service.Records(cfg.Owner, cfg.ChainID) {
			if record.Status == model.StatusClaimable {
				recordIDs = append(recordIDs, record.ID)
			}
		}
	}
	if len(recordIDs) == 0 {
		return fmt.Errorf("nothing claimable on chain %d", cfg.ChainID)
	}

	attempt, err := orchestrator.Claim(ctx, cfg.Owner, cfg.ChainID, recordIDs)
	if err != nil {
		var failed *model.ClaimFailedError
		if errors.As(err, &failed) {
			return fmt.Errorf("claim on chain %d failed and can be retried: %w", failed.ChainID, err)
		}
		return err
	}

	return printJSON(attempt)
}

func runBatchClaim(ctx context.Context, orchestrator *claim.Orchestrator, owner string, chains []uint64, logger *zap.Logger) error {
	result := orchestrator.ClaimAll(ctx, owner, chains)

	if err := printJSON(result); err != nil {
		return err
	}

	if !result.AllSucceeded() {
		for _, failure := range result.Failed {
			logger.Warn("chain claim failed",
				zap.Uint64("chain_id", failure.ChainID),
				zap.String("reason", failure.Reason),
			)
		}
		return fmt.Errorf("batch claim partially failed: %d chains succeeded, %d failed", len(result.Succeeded), len(result.Failed))
	}

	return nil
}

func printJSON(value interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
