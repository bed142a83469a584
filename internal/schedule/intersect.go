package schedule

import "gamecal/internal/model"

// TimeWindow is the feasible session window for a date. A nil bound means
// nobody constrained it.
type TimeWindow struct {
	EarliestStart *model.Clock `json:"earliest_start_time"`
	LatestEnd     *model.Clock `json:"latest_end_time"`
}

// Intersect derives the window every available player can make: the latest
// AvailableAfter and the earliest AvailableUntil. Only pass the Available
// bucket of a Classification.
func Intersect(available []Response) TimeWindow {
	var w TimeWindow
	for _, r := range available {
		if r.AvailableAfter != nil && (w.EarliestStart == nil || r.AvailableAfter.After(*w.EarliestStart)) {
			v := *r.AvailableAfter
			w.EarliestStart = &v
		}
		if r.AvailableUntil != nil && (w.LatestEnd == nil || r.AvailableUntil.Before(*w.LatestEnd)) {
			v := *r.AvailableUntil
			w.LatestEnd = &v
		}
	}
	return w
}

// Empty reports whether both bounds are set and leave no time at all.
func (w TimeWindow) Empty() bool {
	return w.EarliestStart != nil && w.LatestEnd != nil && !w.EarliestStart.Before(*w.LatestEnd)
}
