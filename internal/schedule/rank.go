package schedule

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"gamecal/internal/model"
)

// Order selects how suggestions are sorted.
type Order string

const (
	// OrderRanked sorts by group availability (see rankedKeys).
	OrderRanked Order = "ranked"
	// OrderChronological sorts by date only.
	OrderChronological Order = "chronological"
)

// ParseOrder accepts "ranked", "chronological" or "" (ranked).
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case "", OrderRanked:
		return OrderRanked, nil
	case OrderChronological:
		return OrderChronological, nil
	default:
		return "", fmt.Errorf("%w: unknown order %q", ErrInvalidInput, s)
	}
}

// Suggestion is the availability summary of one candidate date.
type Suggestion struct {
	Date    model.Date   `json:"date"`
	Weekday time.Weekday `json:"weekday"`

	Available   []Response     `json:"available"`
	Maybe       []Response     `json:"maybe"`
	Unavailable []Response     `json:"unavailable"`
	Pending     []model.Player `json:"pending"`

	AvailableCount   int `json:"available_count"`
	MaybeCount       int `json:"maybe_count"`
	UnavailableCount int `json:"unavailable_count"`
	PendingCount     int `json:"pending_count"`
	TotalPlayers     int `json:"total_players"`

	TimeWindow

	MeetsThreshold bool `json:"meets_threshold"`
}

// direction of a sort key.
type direction int

const (
	ascending  direction = 1
	descending direction = -1
)

// sortKey is one step of the suggestion comparator.
type sortKey struct {
	name string
	dir  direction
	cmp  func(a, b *Suggestion) int
}

func intKey(f func(*Suggestion) int) func(a, b *Suggestion) int {
	return func(a, b *Suggestion) int { return cmp.Compare(f(a), f(b)) }
}

func boolKey(f func(*Suggestion) bool) func(a, b *Suggestion) int {
	return func(a, b *Suggestion) int { return cmp.Compare(b2i(f(a)), b2i(f(b))) }
}

// rankedKeys is the ranked ordering, applied in sequence until one key
// separates the two suggestions. Dates are unique, so the last key always
// decides.
var rankedKeys = []sortKey{
	{name: "meets_threshold", dir: descending, cmp: boolKey(func(s *Suggestion) bool { return s.MeetsThreshold })},
	{name: "available_count", dir: descending, cmp: intKey(func(s *Suggestion) int { return s.AvailableCount })},
	{name: "maybe_count", dir: descending, cmp: intKey(func(s *Suggestion) int { return s.MaybeCount })},
	{name: "pending_count", dir: ascending, cmp: intKey(func(s *Suggestion) int { return s.PendingCount })},
	{name: "date", dir: ascending, cmp: compareDates},
}

var chronologicalKeys = []sortKey{
	{name: "date", dir: ascending, cmp: compareDates},
}

func compareDates(a, b *Suggestion) int { return a.Date.Compare(b.Date) }

func comparator(keys []sortKey) func(a, b Suggestion) int {
	return func(a, b Suggestion) int {
		for _, k := range keys {
			if c := k.cmp(&a, &b) * int(k.dir); c != 0 {
				return c
			}
		}
		return 0
	}
}

// SortSuggestions sorts in place.
func SortSuggestions(suggestions []Suggestion, order Order) {
	keys := rankedKeys
	if order == OrderChronological {
		keys = chronologicalKeys
	}
	slices.SortStableFunc(suggestions, comparator(keys))
}

// Rank builds one Suggestion per candidate date and sorts them. A
// minPlayers of zero or less disables the threshold.
func Rank(dates []model.Date, players []model.Player, ix *Index, minPlayers int, order Order) []Suggestion {
	out := make([]Suggestion, 0, len(dates))
	for _, d := range dates {
		c := Classify(players, ix, d)
		s := Suggestion{
			Date:             d,
			Weekday:          d.Weekday(),
			Available:        c.Available,
			Maybe:            c.Maybe,
			Unavailable:      c.Unavailable,
			Pending:          c.Pending,
			AvailableCount:   len(c.Available),
			MaybeCount:       len(c.Maybe),
			UnavailableCount: len(c.Unavailable),
			PendingCount:     len(c.Pending),
			TotalPlayers:     len(players),
			TimeWindow:       Intersect(c.Available),
		}
		s.MeetsThreshold = minPlayers <= 0 || s.AvailableCount >= minPlayers
		out = append(out, s)
	}
	SortSuggestions(out, order)
	return out
}

// SuggestInput is everything Suggest needs for one computation.
type SuggestInput struct {
	Game         model.GameConfig
	Players      []model.Player
	Availability []model.AvailabilityRecord
	MinPlayers   int
	Order        Order
	Today        model.Date
}

// Suggest enumerates the game's window from in.Today and ranks it.
func Suggest(in SuggestInput) ([]Suggestion, error) {
	dates, err := Window(WindowFor(in.Game), in.Today)
	if err != nil {
		return nil, err
	}
	ix, err := NewIndex(in.Availability)
	if err != nil {
		return nil, err
	}
	order := in.Order
	if order == "" {
		order = OrderRanked
	}
	if order != OrderRanked && order != OrderChronological {
		return nil, fmt.Errorf("%w: unknown order %q", ErrInvalidInput, order)
	}
	return Rank(dates, in.Players, ix, in.MinPlayers, order), nil
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
