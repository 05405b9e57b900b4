package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Role identifies a deployed contract within a chain's deployment set.
type Role string

const (
	RoleRewardVault      Role = "reward_vault"
	RoleReferralRegistry Role = "referral_registry"
)

// Info describes a supported chain.
type Info struct {
	ChainID      uint64
	Name         string
	NativeSymbol string
	RPCURL       string
}

// GasSettings carries per-chain gas overrides for claim transactions.
type GasSettings struct {
	GasLimit   uint64
	TipCapGwei int64
}

// Registry is the chain configuration provider. A missing entry means the
// chain is unsupported for that operation, not an error.
type Registry struct {
	chains    map[uint64]Info
	contracts map[uint64]map[Role]common.Address
	gas       map[uint64]GasSettings
}

// NewRegistry builds a registry from chain definitions and per-chain
// contract deployments. Contract addresses are keyed by role; invalid
// addresses are dropped.
func NewRegistry(chains []Info, deployments map[uint64]map[Role]string, gas map[uint64]GasSettings) *Registry {
	r := &Registry{
		chains:    make(map[uint64]Info, len(chains)),
		contracts: make(map[uint64]map[Role]common.Address),
		gas:       make(map[uint64]GasSettings, len(gas)),
	}

	for _, info := range chains {
		if info.ChainID == 0 {
			continue
		}
		r.chains[info.ChainID] = info
	}

	for chainID, roles := range deployments {
		for role, raw := range roles {
			addr := strings.TrimSpace(raw)
			if !common.IsHexAddress(addr) {
				continue
			}
			if r.contracts[chainID] == nil {
				r.contracts[chainID] = make(map[Role]common.Address)
			}
			r.contracts[chainID][role] = common.HexToAddress(addr)
		}
	}

	for chainID, settings := range gas {
		r.gas[chainID] = settings
	}

	return r
}

// Chain returns the chain info, or ok=false when unsupported.
func (r *Registry) Chain(chainID uint64) (Info, bool) {
	info, ok := r.chains[chainID]
	return info, ok
}

// ChainIDs returns all configured chain IDs.
func (r *Registry) ChainIDs() []uint64 {
	ids := make([]uint64, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	return ids
}

// ContractAddress returns the deployed address for a role on a chain, or
// ok=false when the chain has no such deployment.
func (r *Registry) ContractAddress(chainID uint64, role Role) (common.Address, bool) {
	roles, ok := r.contracts[chainID]
	if !ok {
		return common.Address{}, false
	}
	addr, ok := roles[role]
	return addr, ok
}

// GasSettingsFor returns gas overrides for a chain, or ok=false when none
// are configured.
func (r *Registry) GasSettingsFor(chainID uint64) (GasSettings, bool) {
	settings, ok := r.gas[chainID]
	return settings, ok
}
