package reward

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewardscope/internal/model"
	"rewardscope/internal/notify"
	"rewardscope/internal/source"
)

type staticSource struct {
	records map[uint64][]model.RewardRecord
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) FetchRewards(_ context.Context, _ string, chainID uint64) ([]model.RewardRecord, error) {
	return s.records[chainID], nil
}

type gatedSource struct {
	mu     sync.Mutex
	calls  int
	gate   chan struct{}
	first  []model.RewardRecord
	second []model.RewardRecord
}

func (s *gatedSource) Name() string { return "gated" }

// The first call blocks until the gate opens; later calls return
// immediately. Used to force an out-of-order fetch resolution.
func (s *gatedSource) FetchRewards(_ context.Context, _ string, _ uint64) ([]model.RewardRecord, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()

	if call == 1 {
		<-s.gate
		return s.first, nil
	}
	return s.second, nil
}

func (s *gatedSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestServiceRefreshCaches(t *testing.T) {
	src := &staticSource{records: map[uint64][]model.RewardRecord{
		8453: {cachedRecord("a", 8453, model.StatusClaimable)},
	}}
	service := NewService(source.NewChain(nil, nil, src), nil)

	records, err := service.Refresh(context.Background(), testOwner, 8453)
	require.NoError(t, err)
	require.Len(t, records, 1)

	cached := service.Records(testOwner, 8453)
	require.Len(t, cached, 1)
	assert.Equal(t, "a", cached[0].ID)
}

func TestServiceStaleFetchDiscarded(t *testing.T) {
	src := &gatedSource{
		gate:   make(chan struct{}),
		first:  []model.RewardRecord{cachedRecord("stale", 8453, model.StatusClaimable)},
		second: []model.RewardRecord{cachedRecord("fresh", 8453, model.StatusClaimable)},
	}
	service := NewService(source.NewChain(nil, nil, src), nil)

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		service.Refresh(context.Background(), testOwner, 8453)
	}()

	require.Eventually(t, func() bool { return src.callCount() == 1 }, time.Second, 5*time.Millisecond)

	// A newer request starts and resolves while the first is in flight.
	_, err := service.Refresh(context.Background(), testOwner, 8453)
	require.NoError(t, err)

	close(src.gate)
	<-firstDone

	cached := service.Records(testOwner, 8453)
	require.Len(t, cached, 1)
	assert.Equal(t, "fresh", cached[0].ID, "the stale result must not overwrite the newer one")
}

func TestServiceSummaryAcrossChains(t *testing.T) {
	base := cachedRecord("a", 8453, model.StatusClaimable)
	base.Amount = decimal.RequireFromString("12.5")
	bsc := cachedRecord("b", 56, model.StatusClaimed)
	bsc.Amount = decimal.RequireFromString("3")

	src := &staticSource{records: map[uint64][]model.RewardRecord{
		8453: {base},
		56:   {bsc},
	}}
	service := NewService(source.NewChain(nil, nil, src), nil)

	service.RefreshAll(context.Background(), testOwner, []uint64{8453, 56})

	summary := service.Summary(testOwner, 8453, 56)
	assert.Equal(t, "12.5", summary.TotalPending.String())
	assert.Equal(t, "3", summary.TotalClaimed.String())
	require.Len(t, summary.ClaimableBundles, 1)
	assert.Equal(t, uint64(8453), summary.ClaimableBundles[0].ChainID)
}

type countingSource struct {
	mu    sync.Mutex
	calls int
}

func (s *countingSource) Name() string { return "counting" }

func (s *countingSource) FetchRewards(_ context.Context, _ string, _ uint64) ([]model.RewardRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return nil, nil
}

func (s *countingSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestServiceWatchEventTriggersRefetch(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// Deliver an event the moment the connection opens.
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"reward_earned","chain_id":8453}`))
		conn.ReadMessage()
	}))
	defer server.Close()

	src := &countingSource{}
	service := NewService(source.NewChain(nil, nil, src), nil)
	channel := notify.NewChannel(notify.Config{
		URL: "ws" + strings.TrimPrefix(server.URL, "http"),
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		service.Watch(ctx, WatchConfig{
			Owner:        testOwner,
			ChainIDs:     []uint64{8453},
			PollInterval: time.Hour,
		}, channel)
	}()

	require.Eventually(t, func() bool { return src.callCount() >= 2 }, 2*time.Second, 5*time.Millisecond,
		"an event delivered at connect time must trigger a refetch")

	cancel()
	<-watchDone
}

func TestServiceSetStatusAndInvalidate(t *testing.T) {
	src := &staticSource{records: map[uint64][]model.RewardRecord{
		8453: {cachedRecord("a", 8453, model.StatusClaimable)},
	}}
	service := NewService(source.NewChain(nil, nil, src), nil)

	_, err := service.Refresh(context.Background(), testOwner, 8453)
	require.NoError(t, err)

	updated := service.SetStatus(testOwner, 8453, []string{"a"}, model.StatusClaimed, "0xabc")
	assert.Equal(t, 1, updated)

	service.Invalidate(testOwner, 8453)
	assert.Empty(t, service.Records(testOwner, 8453))
}
