package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rewardscope/internal/chain"
	"rewardscope/internal/config"
	"rewardscope/internal/model"
	"rewardscope/internal/reward"
	"rewardscope/internal/source"
	"rewardscope/internal/storage"
	"rewardscope/internal/storage/postgres"
)

func runFetch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFetch(cfgFile, cmd.Flags())
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
	if len(cfg.Chains) == 0 {
		return fmt.Errorf("at least one chain id is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := config.BuildRegistry(cfg.ChainEntries)
	pool := chain.NewPool(registry, logger)
	defer pool.Close()

	sources := newSourceChain(cfg.APIBase, cfg.APITimeout, cfg.MaxRetries, cfg.RetryBackoff, registry, pool, logger)
	service := reward.NewService(sources, logger)

	logger.Info("fetch start",
		zap.String("owner", cfg.Owner),
		zap.Uint64s("chains", cfg.Chains),
		zap.String("api_base", cfg.APIBase),
		zap.Bool("display_fallback", cfg.DisplayFallback),
	)

	var records []model.RewardRecord
	for _, chainID := range cfg.Chains {
		chainRecords, err := service.Refresh(ctx, cfg.Owner, chainID)
		if err != nil {
			return fmt.Errorf("fetch chain %d: %w", chainID, err)
		}
		records = append(records, chainRecords...)
	}

	// Placeholder rows are display-only: they are printed but never cached
	// or persisted as owner rewards.
	if cfg.DisplayFallback && len(records) == 0 {
		for _, chainID := range cfg.Chains {
			placeholders, err := sources.FetchRewards(ctx, cfg.Owner, chainID, source.WithDisplayFallback())
			if err != nil {
				return fmt.Errorf("fetch placeholders for chain %d: %w", chainID, err)
			}
			records = append(records, placeholders...)
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(records); err != nil {
			return fmt.Errorf("encode placeholders: %w", err)
		}
		logger.Info("no reward data, printed display placeholders", zap.Int("rows", len(records)))
		return nil
	}

	summary := service.Summary(cfg.Owner, cfg.Chains...)

	if cfg.Out != "" {
		sink := storage.NewJsonlStorage(cfg.Out)
		if err := sink.PutRewardSnapshot(records); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
	}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.UpsertRewards(ctx, records); err != nil {
			return fmt.Errorf("persist rewards: %w", err)
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	logger.Info("fetch complete",
		zap.Int("records", len(records)),
		zap.String("total_pending", summary.TotalPending.String()),
		zap.String("total_claimed", summary.TotalClaimed.String()),
	)

	return nil
}

func newSourceChain(apiBase string, apiTimeout time.Duration, maxRetries int, retryBackoff time.Duration, registry *chain.Registry, pool *chain.Pool, logger *zap.Logger) *source.Chain {
	contractSource := source.NewContractSource(source.ContractConfig{
		MaxRetries:   maxRetries,
		RetryBackoff: retryBackoff,
	}, registry, pool, logger)

	apiSource := source.NewAPISource(source.APIConfig{
		BaseURL: apiBase,
		Timeout: apiTimeout,
	}, logger)

	return source.NewChain(logger, &source.FallbackSource{}, contractSource, apiSource)
}
