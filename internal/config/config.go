package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"rewardscope/internal/chain"
)

// ChainEntry is one chain definition from the config file.
type ChainEntry struct {
	ID               uint64 `mapstructure:"id"`
	Name             string `mapstructure:"name"`
	NativeSymbol     string `mapstructure:"native_symbol"`
	RPC              string `mapstructure:"rpc"`
	RewardVault      string `mapstructure:"reward_vault"`
	ReferralRegistry string `mapstructure:"referral_registry"`
	GasLimit         uint64 `mapstructure:"gas_limit"`
	TipCapGwei       int64  `mapstructure:"tip_cap_gwei"`
}

// FetchConfig holds configuration for the fetch command.
type FetchConfig struct {
	Owner           string
	Chains          []uint64
	APIBase         string
	APITimeout      time.Duration
	Out             string
	PGDSN           string
	DisplayFallback bool
	MaxRetries      int
	RetryBackoff    time.Duration
	LogLevel        string
	ChainEntries    []ChainEntry
}

// ClaimConfig holds configuration for the claim command.
type ClaimConfig struct {
	Owner          string
	ChainID        uint64
	AllChains      bool
	Records        []string
	APIBase        string
	PGDSN          string
	ConfirmTimeout time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	LogLevel       string
	ChainEntries   []ChainEntry
}

// WatchConfig holds configuration for the watch command.
type WatchConfig struct {
	Owner        string
	Chains       []uint64
	APIBase      string
	WSURL        string
	PollInterval time.Duration
	RetryDelay   time.Duration
	MaxRetries   int
	Out          string
	LogLevel     string
	ChainEntries []ChainEntry
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("REWARDSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

// LoadFetch merges config file, environment variables, and flags into
// FetchConfig.
func LoadFetch(cfgFile string, flags *pflag.FlagSet) (FetchConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return FetchConfig{}, err
	}

	v.SetDefault("api-timeout", 10*time.Second)
	v.SetDefault("max-retries", 2)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	chains, err := parseChainIDs(getStringSlice(v, "chain"))
	if err != nil {
		return FetchConfig{}, err
	}

	entries, err := chainEntries(v)
	if err != nil {
		return FetchConfig{}, err
	}

	return FetchConfig{
		Owner:           v.GetString("owner"),
		Chains:          chains,
		APIBase:         v.GetString("api-base"),
		APITimeout:      v.GetDuration("api-timeout"),
		Out:             v.GetString("out"),
		PGDSN:           v.GetString("pg-dsn"),
		DisplayFallback: v.GetBool("display-fallback"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		LogLevel:        v.GetString("log-level"),
		ChainEntries:    entries,
	}, nil
}

// LoadClaim merges config file, environment variables, and flags into
// ClaimConfig.
func LoadClaim(cfgFile string, flags *pflag.FlagSet) (ClaimConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ClaimConfig{}, err
	}

	v.SetDefault("confirm-timeout", 5*time.Minute)
	v.SetDefault("max-retries", 2)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	entries, err := chainEntries(v)
	if err != nil {
		return ClaimConfig{}, err
	}

	return ClaimConfig{
		Owner:          v.GetString("owner"),
		ChainID:        v.GetUint64("chain"),
		AllChains:      v.GetBool("all-chains"),
		Records:        getStringSlice(v, "record"),
		APIBase:        v.GetString("api-base"),
		PGDSN:          v.GetString("pg-dsn"),
		ConfirmTimeout: v.GetDuration("confirm-timeout"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		LogLevel:       v.GetString("log-level"),
		ChainEntries:   entries,
	}, nil
}

// LoadWatch merges config file, environment variables, and flags into
// WatchConfig.
func LoadWatch(cfgFile string, flags *pflag.FlagSet) (WatchConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return WatchConfig{}, err
	}

	v.SetDefault("poll-interval", 30*time.Second)
	v.SetDefault("retry-delay", 5*time.Second)
	v.SetDefault("max-retries", 5)
	v.SetDefault("log-level", "info")

	chains, err := parseChainIDs(getStringSlice(v, "chain"))
	if err != nil {
		return WatchConfig{}, err
	}

	entries, err := chainEntries(v)
	if err != nil {
		return WatchConfig{}, err
	}

	return WatchConfig{
		Owner:        v.GetString("owner"),
		Chains:       chains,
		APIBase:      v.GetString("api-base"),
		WSURL:        v.GetString("ws-url"),
		PollInterval: v.GetDuration("poll-interval"),
		RetryDelay:   v.GetDuration("retry-delay"),
		MaxRetries:   v.GetInt("max-retries"),
		Out:          v.GetString("out"),
		LogLevel:     v.GetString("log-level"),
		ChainEntries: entries,
	}, nil
}

// defaultChains covers the commonly used networks so the CLI works
// without a config file. Contract deployments always come from config.
var defaultChains = []ChainEntry{
	{ID: 1, Name: "Ethereum", NativeSymbol: "ETH", RPC: "https://eth.llamarpc.com"},
	{ID: 56, Name: "BNB Chain", NativeSymbol: "BNB", RPC: "https://bsc-dataseed.binance.org"},
	{ID: 8453, Name: "Base", NativeSymbol: "ETH", RPC: "https://mainnet.base.org"},
	{ID: 42161, Name: "Arbitrum One", NativeSymbol: "ETH", RPC: "https://arb1.arbitrum.io/rpc"},
}

// mergeChainEntries overlays configured entries onto the defaults; a
// configured entry replaces the default with the same ID outright.
func mergeChainEntries(entries []ChainEntry) []ChainEntry {
	configured := make(map[uint64]struct{}, len(entries))
	for _, entry := range entries {
		configured[entry.ID] = struct{}{}
	}

	merged := make([]ChainEntry, 0, len(defaultChains)+len(entries))
	for _, entry := range defaultChains {
		if _, ok := configured[entry.ID]; ok {
			continue
		}
		merged = append(merged, entry)
	}
	return append(merged, entries...)
}

// BuildRegistry turns config chain entries, merged with the built-in
// defaults, into the chain registry.
func BuildRegistry(entries []ChainEntry) *chain.Registry {
	entries = mergeChainEntries(entries)

	infos := make([]chain.Info, 0, len(entries))
	deployments := make(map[uint64]map[chain.Role]string)
	gas := make(map[uint64]chain.GasSettings)

	for _, entry := range entries {
		infos = append(infos, chain.Info{
			ChainID:      entry.ID,
			Name:         entry.Name,
			NativeSymbol: entry.NativeSymbol,
			RPCURL:       entry.RPC,
		})
		roles := make(map[chain.Role]string)
		if entry.RewardVault != "" {
			roles[chain.RoleRewardVault] = entry.RewardVault
		}
		if entry.ReferralRegistry != "" {
			roles[chain.RoleReferralRegistry] = entry.ReferralRegistry
		}
		if len(roles) > 0 {
			deployments[entry.ID] = roles
		}
		if entry.GasLimit > 0 || entry.TipCapGwei > 0 {
			gas[entry.ID] = chain.GasSettings{GasLimit: entry.GasLimit, TipCapGwei: entry.TipCapGwei}
		}
	}

	return chain.NewRegistry(infos, deployments, gas)
}

func chainEntries(v *viper.Viper) ([]ChainEntry, error) {
	if !v.IsSet("chains") {
		return nil, nil
	}
	var entries []ChainEntry
	if err := v.UnmarshalKey("chains", &entries); err != nil {
		return nil, fmt.Errorf("parse chains config: %w", err)
	}
	return entries, nil
}

func parseChainIDs(values []string) ([]uint64, error) {
	ids := make([]uint64, 0, len(values))
	for _, value := range values {
		id, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %q: %w", value, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
