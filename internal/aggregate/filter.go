package aggregate

import "rewardscope/internal/model"

// FilterByChain returns the records accrued on the given chain.
func FilterByChain(records []model.RewardRecord, chainID uint64) []model.RewardRecord {
	out := make([]model.RewardRecord, 0, len(records))
	for _, record := range records {
		if record.ChainID == chainID {
			out = append(out, record)
		}
	}
	return out
}

// FilterByLevel returns the records earned at the given referral level.
func FilterByLevel(records []model.RewardRecord, level int) []model.RewardRecord {
	out := make([]model.RewardRecord, 0, len(records))
	for _, record := range records {
		if record.Level == level {
			out = append(out, record)
		}
	}
	return out
}

// FilterByStatus returns the records in any of the given statuses.
func FilterByStatus(records []model.RewardRecord, statuses ...model.RewardStatus) []model.RewardRecord {
	out := make([]model.RewardRecord, 0, len(records))
	for _, record := range records {
		for _, status := range statuses {
			if record.Status == status {
				out = append(out, record)
				break
			}
		}
	}
	return out
}
