package chain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Pool dials and caches one Client per chain, using RPC URLs from the
// registry. Clients are created lazily on first use.
type Pool struct {
	registry *Registry
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[uint64]*Client
}

// NewPool builds a client pool over the registry.
func NewPool(registry *Registry, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		registry: registry,
		logger:   logger,
		clients:  make(map[uint64]*Client),
	}
}

// Client returns the client for a chain, dialing it if needed.
func (p *Pool) Client(ctx context.Context, chainID uint64) (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.clients[chainID]; ok {
		return client, nil
	}

	info, ok := p.registry.Chain(chainID)
	if !ok || info.RPCURL == "" {
		return nil, fmt.Errorf("chain %d has no configured rpc endpoint", chainID)
	}

	client, err := NewClient(ctx, info.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain %d: %w", chainID, err)
	}

	p.logger.Debug("chain client connected", zap.Uint64("chain_id", chainID), zap.String("name", info.Name))
	p.clients[chainID] = client
	return client, nil
}

// WaitForReceipt resolves the claim-confirmation watcher contract against
// the chain's RPC endpoint.
func (p *Pool) WaitForReceipt(ctx context.Context, chainID uint64, txHash string) (bool, error) {
	client, err := p.Client(ctx, chainID)
	if err != nil {
		return false, err
	}
	return client.WaitForReceipt(ctx, common.HexToHash(txHash), 2*time.Second)
}

// Close closes every dialed client.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, client := range p.clients {
		client.Close()
	}
	p.clients = make(map[uint64]*Client)
}
