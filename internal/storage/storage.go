package storage

import "rewardscope/internal/model"

// Storage defines a sink for reward snapshots.
type Storage interface {
	PutRewardSnapshot(records []model.RewardRecord) error
}
