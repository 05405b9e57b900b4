package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "rewardd",
		Short:        "Multi-chain reward reconciliation service",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and aggregate rewards for an owner",
		RunE:  runFetch,
	}

	fetchCmd.Flags().String("owner", "", "owner address")
	fetchCmd.Flags().StringSlice("chain", nil, "chain ids (comma-separated)")
	fetchCmd.Flags().String("api-base", "", "reward API base URL")
	fetchCmd.Flags().Duration("api-timeout", 10*time.Second, "reward API request timeout")
	fetchCmd.Flags().String("out", "", "snapshot JSONL path (optional)")
	fetchCmd.Flags().String("pg-dsn", "", "Postgres DSN for reward history (optional)")
	fetchCmd.Flags().Bool("display-fallback", false, "allow placeholder rows when all sources are empty")
	fetchCmd.Flags().Int("max-retries", 2, "contract read retry attempts")
	fetchCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial contract read retry backoff")
	fetchCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(fetchCmd)

	claimCmd := &cobra.Command{
		Use:   "claim",
		Short: "Claim rewards on one chain or across all chains",
		RunE:  runClaim,
	}

	claimCmd.Flags().String("owner", "", "owner address")
	claimCmd.Flags().Uint64("chain", 0, "chain id to claim on")
	claimCmd.Flags().Bool("all-chains", false, "claim every claimable record on every configured chain")
	claimCmd.Flags().StringSlice("record", nil, "record ids to claim (default: all claimable on the chain)")
	claimCmd.Flags().String("api-base", "", "claim API base URL")
	claimCmd.Flags().String("pg-dsn", "", "Postgres DSN for the claim ledger (optional)")
	claimCmd.Flags().Duration("confirm-timeout", 5*time.Minute, "max wait for claim confirmation")
	claimCmd.Flags().Int("max-retries", 2, "contract read retry attempts")
	claimCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial contract read retry backoff")
	claimCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(claimCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch push events and keep the reward view fresh",
		RunE:  runWatch,
	}

	watchCmd.Flags().String("owner", "", "owner address")
	watchCmd.Flags().StringSlice("chain", nil, "chain ids (comma-separated)")
	watchCmd.Flags().String("api-base", "", "reward API base URL")
	watchCmd.Flags().String("ws-url", "", "push channel websocket URL")
	watchCmd.Flags().Duration("poll-interval", 30*time.Second, "polling interval after channel degradation")
	watchCmd.Flags().Duration("retry-delay", 5*time.Second, "fixed delay between reconnect attempts")
	watchCmd.Flags().Int("max-retries", 5, "reconnect attempts before degrading to polling")
	watchCmd.Flags().String("out", "", "snapshot JSONL path (optional)")
	watchCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(watchCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
