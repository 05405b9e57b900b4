package source

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const rewardVaultABIJSON = `[
  {
    "inputs": [],
    "name": "rewardTokens",
    "outputs": [{"internalType": "address[]", "name": "", "type": "address[]"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "owner", "type": "address"},
      {"internalType": "address", "name": "token", "type": "address"}
    ],
    "name": "pendingReward",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "owner", "type": "address"},
      {"internalType": "address", "name": "token", "type": "address"}
    ],
    "name": "claimedReward",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "owner", "type": "address"},
      {"internalType": "address", "name": "token", "type": "address"}
    ],
    "name": "rewardLevel",
    "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "owner", "type": "address"},
      {"internalType": "address", "name": "token", "type": "address"}
    ],
    "name": "lastDistribution",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const erc20DecimalsABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"}
]`

var (
	rewardVaultABI     abi.ABI
	rewardVaultABIOnce sync.Once
	rewardVaultABIErr  error

	erc20DecimalsABI     abi.ABI
	erc20DecimalsABIOnce sync.Once
	erc20DecimalsABIErr  error
)

// RewardVaultABI returns the parsed reward vault ABI.
func RewardVaultABI() (abi.ABI, error) {
	rewardVaultABIOnce.Do(func() {
		rewardVaultABI, rewardVaultABIErr = abi.JSON(strings.NewReader(rewardVaultABIJSON))
	})
	return rewardVaultABI, rewardVaultABIErr
}

func erc20DecimalsABIInstance() (abi.ABI, error) {
	erc20DecimalsABIOnce.Do(func() {
		erc20DecimalsABI, erc20DecimalsABIErr = abi.JSON(strings.NewReader(erc20DecimalsABIJSON))
	})
	return erc20DecimalsABI, erc20DecimalsABIErr
}
