package schedule

import "gamecal/internal/model"

// Completion returns, per player, the percentage (0-100, rounded half up) of
// candidate dates the player has answered with any status. Records outside
// the window are ignored. An empty window yields an empty map.
func Completion(playerIDs []string, cfg WindowConfig, records []model.AvailabilityRecord, today model.Date) (map[string]int, error) {
	dates, err := Window(cfg, today)
	if err != nil {
		return nil, err
	}

	result := make(map[string]int)
	total := len(dates)
	if total == 0 {
		return result, nil
	}

	inWindow := make(map[model.Date]bool, total)
	for _, d := range dates {
		inWindow[d] = true
	}

	filled := make(map[string]map[model.Date]bool, len(playerIDs))
	for _, r := range records {
		if !inWindow[r.Date] {
			continue
		}
		seen := filled[r.PlayerID]
		if seen == nil {
			seen = make(map[model.Date]bool)
			filled[r.PlayerID] = seen
		}
		seen[r.Date] = true
	}

	for _, id := range playerIDs {
		result[id] = percentHalfUp(len(filled[id]), total)
	}
	return result, nil
}

// percentHalfUp computes round(n*100/total) with halves rounded up.
func percentHalfUp(n, total int) int {
	return (n*200 + total) / (2 * total)
}
