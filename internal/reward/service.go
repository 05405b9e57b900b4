package reward

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"rewardscope/internal/aggregate"
	"rewardscope/internal/model"
	"rewardscope/internal/notify"
	"rewardscope/internal/source"
)

// Service drives the source adapter chain into the cache and exposes the
// aggregated reward view. Redundant concurrent refreshes for the same key
// are tolerated: a request sequence number per key discards results that
// arrive after a newer request has started, so the cache only moves
// forward.
type Service struct {
	sources *source.Chain
	cache   *Cache
	logger  *zap.Logger

	mu  sync.Mutex
	seq map[cacheKey]uint64
}

// NewService builds a reward service over the source chain.
func NewService(sources *source.Chain, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sources: sources,
		cache:   NewCache(),
		logger:  logger,
		seq:     make(map[cacheKey]uint64),
	}
}

// Refresh fetches rewards for an (owner, chain) pair through the source
// chain and replaces the cache entry wholesale. A result that is stale by
// the time it resolves is discarded rather than applied.
func (s *Service) Refresh(ctx context.Context, owner string, chainID uint64) ([]model.RewardRecord, error) {
	key := cacheKey{owner: normalizeOwner(owner), chainID: chainID}

	s.mu.Lock()
	s.seq[key]++
	requestSeq := s.seq[key]
	s.mu.Unlock()

	records, err := s.sources.FetchRewards(ctx, owner, chainID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	current := s.seq[key]
	s.mu.Unlock()

	if requestSeq != current {
		s.logger.Debug("stale fetch discarded",
			zap.String("owner", owner),
			zap.Uint64("chain_id", chainID),
			zap.Uint64("request_seq", requestSeq),
			zap.Uint64("current_seq", current),
		)
		return records, nil
	}

	s.cache.Replace(owner, chainID, records)
	return records, nil
}

// RefreshAll refreshes every listed chain for an owner. Individual chain
// failures are logged and skipped so one bad endpoint does not hide the
// rest of the view.
func (s *Service) RefreshAll(ctx context.Context, owner string, chainIDs []uint64) {
	for _, chainID := range chainIDs {
		if _, err := s.Refresh(ctx, owner, chainID); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("chain refresh failed",
				zap.String("owner", owner),
				zap.Uint64("chain_id", chainID),
				zap.Error(err),
			)
		}
	}
}

// Records returns the cached records for an (owner, chain) pair.
func (s *Service) Records(owner string, chainID uint64) []model.RewardRecord {
	return s.cache.Records(owner, chainID)
}

// Summary aggregates the cached records for an owner. With no chain IDs
// given it covers every cached chain.
func (s *Service) Summary(owner string, chainIDs ...uint64) aggregate.Summary {
	if len(chainIDs) == 0 {
		return aggregate.Aggregate(s.cache.AllRecords(owner))
	}

	var records []model.RewardRecord
	for _, chainID := range chainIDs {
		records = append(records, s.cache.Records(owner, chainID)...)
	}
	return aggregate.Aggregate(records)
}

// SetStatus moves cached records to a new status. Implements the claim
// orchestrator's record store.
func (s *Service) SetStatus(owner string, chainID uint64, ids []string, status model.RewardStatus, txHash string) int {
	return s.cache.SetStatus(owner, chainID, ids, status, txHash)
}

// Invalidate drops the cache entry for an (owner, chain) pair.
func (s *Service) Invalidate(owner string, chainID uint64) {
	s.cache.Invalidate(owner, chainID)
}

// WatchConfig controls the long-lived watch loop.
type WatchConfig struct {
	Owner        string
	ChainIDs     []uint64
	PollInterval time.Duration
	OnUpdate     func(aggregate.Summary)
}

// Watch runs until the context is done: push events from the channel
// trigger a refetch and re-aggregation; once the channel degrades the
// loop falls back to interval polling.
func (s *Service) Watch(ctx context.Context, cfg WatchConfig, channel *notify.Channel) error {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}

	refresh := make(chan struct{}, 1)
	trigger := func(notify.Event) {
		select {
		case refresh <- struct{}{}:
		default:
		}
	}

	runRefresh := func() {
		s.RefreshAll(ctx, cfg.Owner, cfg.ChainIDs)
		if cfg.OnUpdate != nil {
			cfg.OnUpdate(s.Summary(cfg.Owner, cfg.ChainIDs...))
		}
	}

	runRefresh()

	var degraded <-chan struct{}
	if channel != nil {
		// Handlers are registered before the dial so an event delivered
		// as soon as the connection opens is not lost.
		for _, kind := range []notify.EventKind{notify.EventNewReferral, notify.EventRewardEarned, notify.EventReferralUpdate} {
			unsubscribe := channel.Subscribe(kind, trigger)
			defer unsubscribe()
		}
		if err := channel.Connect(ctx, cfg.Owner); err != nil {
			s.logger.Warn("push channel connect failed, polling only", zap.Error(err))
			degraded = closedChan()
		} else {
			defer channel.Disconnect()
			degraded = channel.Degraded()
		}
	} else {
		degraded = closedChan()
	}

	var ticker *time.Ticker
	var tick <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if ticker != nil {
				ticker.Stop()
			}
			return ctx.Err()
		case <-refresh:
			runRefresh()
		case <-degraded:
			degraded = nil
			s.logger.Warn("push channel degraded, switching to polling",
				zap.Duration("poll_interval", cfg.PollInterval),
			)
			ticker = time.NewTicker(cfg.PollInterval)
			tick = ticker.C
		case <-tick:
			runRefresh()
		}
	}
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
