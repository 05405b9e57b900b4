package reward

import (
	"strings"
	"sync"

	"rewardscope/internal/model"
)

type cacheKey struct {
	owner   string
	chainID uint64
}

// Cache holds reward records keyed by (owner, chain). Entries are
// replaced wholesale on each successful fetch, never patched
// field-by-field, so readers always see a complete snapshot.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey][]model.RewardRecord
}

func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey][]model.RewardRecord)}
}

func normalizeOwner(owner string) string {
	return strings.ToLower(owner)
}

// Replace swaps the full record set for an (owner, chain) pair.
func (c *Cache) Replace(owner string, chainID uint64, records []model.RewardRecord) {
	key := cacheKey{owner: normalizeOwner(owner), chainID: chainID}
	copied := make([]model.RewardRecord, len(records))
	copy(copied, records)

	c.mu.Lock()
	c.entries[key] = copied
	c.mu.Unlock()
}

// Records returns a copy of the cached records for an (owner, chain) pair.
func (c *Cache) Records(owner string, chainID uint64) []model.RewardRecord {
	key := cacheKey{owner: normalizeOwner(owner), chainID: chainID}

	c.mu.RLock()
	cached := c.entries[key]
	out := make([]model.RewardRecord, len(cached))
	copy(out, cached)
	c.mu.RUnlock()

	return out
}

// AllRecords returns a copy of every cached record for an owner across
// all chains.
func (c *Cache) AllRecords(owner string) []model.RewardRecord {
	normalized := normalizeOwner(owner)

	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []model.RewardRecord
	for key, records := range c.entries {
		if key.owner != normalized {
			continue
		}
		out = append(out, records...)
	}
	return out
}

// SetStatus moves the given records to a new status, optionally stamping
// a transaction hash. Returns how many records were updated.
func (c *Cache) SetStatus(owner string, chainID uint64, ids []string, status model.RewardStatus, txHash string) int {
	key := cacheKey{owner: normalizeOwner(owner), chainID: chainID}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	updated := 0
	records := c.entries[key]
	for i := range records {
		if _, ok := wanted[records[i].ID]; !ok {
			continue
		}
		records[i].Status = status
		if txHash != "" {
			records[i].TxHash = txHash
		}
		updated++
	}
	return updated
}

// Invalidate drops the cached entry for an (owner, chain) pair so the
// next fetch rebuilds it.
func (c *Cache) Invalidate(owner string, chainID uint64) {
	key := cacheKey{owner: normalizeOwner(owner), chainID: chainID}

	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
