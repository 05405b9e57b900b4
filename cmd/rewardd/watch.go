package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rewardscope/internal/aggregate"
	"rewardscope/internal/chain"
	"rewardscope/internal/config"
	"rewardscope/internal/notify"
	"rewardscope/internal/reward"
	"rewardscope/internal/storage"
)

func runWatch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWatch(cfgFile, cmd.Flags())
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

	sources := newSourceChain(cfg.APIBase, 0, 2, 500*time.Millisecond, registry, pool, logger)
	service := reward.NewService(sources, logger)

	var channel *notify.Channel
	if cfg.WSURL != "" {
		channel = notify.NewChannel(notify.Config{
			URL:        cfg.WSURL,
			RetryDelay: cfg.RetryDelay,
			MaxRetries: cfg.MaxRetries,
		}, logger)
	}

	var sink *storage.JsonlStorage
	if cfg.Out != "" {
		sink = storage.NewJsonlStorage(cfg.Out)
	}

	onUpdate := func(summary aggregate.Summary) {
		logger.Info("reward view updated",
			zap.String("total_pending", aggregate.FormatAmount(summary.TotalPending)),
			zap.String("total_claimed", aggregate.FormatAmount(summary.TotalClaimed)),
			zap.Int("claimable_bundles", len(summary.ClaimableBundles)),
		)
		if sink == nil {
			return
		}
		for _, chainID := range cfg.Chains {
			if err := sink.PutRewardSnapshot(service.Records(cfg.Owner, chainID)); err != nil {
				logger.Warn("snapshot write failed", zap.Uint64("chain_id", chainID), zap.Error(err))
			}
		}
	}

	logger.Info("watch start",
		zap.String("owner", cfg.Owner),
		zap.Uint64s("chains", cfg.Chains),
		zap.String("ws_url", cfg.WSURL),
		zap.Duration("poll_interval", cfg.PollInterval),
	)

	err = service.Watch(ctx, reward.WatchConfig{
		Owner:        cfg.Owner,
		ChainIDs:     cfg.Chains,
		PollInterval: cfg.PollInterval,
		OnUpdate:     onUpdate,
	}, channel)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
