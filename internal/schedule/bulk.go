package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gamecal/internal/model"
)

// RemainingToken selects dates the player has not answered yet.
const RemainingToken = "remaining"

// BulkFilter selects which dates a bulk status change applies to: either
// all unanswered dates, or every date on one weekday. The zero value is the
// Sunday filter.
type BulkFilter struct {
	remaining bool
	weekday   time.Weekday
}

// Remaining returns the "only unset dates" filter.
func Remaining() BulkFilter { return BulkFilter{remaining: true} }

// OnWeekday returns the filter for a single weekday.
func OnWeekday(wd time.Weekday) (BulkFilter, error) {
	if err := validWeekday(wd); err != nil {
		return BulkFilter{}, err
	}
	return BulkFilter{weekday: wd}, nil
}

// ParseBulkFilter accepts RemainingToken or a weekday number 0-6.
func ParseBulkFilter(s string) (BulkFilter, error) {
	s = strings.TrimSpace(s)
	if s == RemainingToken {
		return Remaining(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return BulkFilter{}, fmt.Errorf("%w: bulk filter %q", ErrInvalidInput, s)
	}
	return OnWeekday(time.Weekday(n))
}

func (f BulkFilter) String() string {
	if f.remaining {
		return RemainingToken
	}
	return strconv.Itoa(int(f.weekday))
}

// BulkInput is the input of FilterBulkDates.
type BulkInput struct {
	Filter BulkFilter
	// Dates to consider, usually one month supplied by the caller.
	Dates        []model.Date
	PlayWeekdays []time.Weekday
	SpecialDates []model.Date
	// Existing holds the caller's own records keyed by date.
	Existing map[model.Date]model.AvailabilityRecord
	Today    model.Date
}

// FilterBulkDates returns the dates, in input order, a bulk action should
// touch. A date must be a play day or special date and not before Today; the
// filter then keeps either unanswered dates or dates on its weekday.
func FilterBulkDates(in BulkInput) ([]model.Date, error) {
	if !in.Filter.remaining {
		if err := validWeekday(in.Filter.weekday); err != nil {
			return nil, err
		}
	}
	if in.Today.IsZero() {
		return nil, fmt.Errorf("%w: zero today", ErrInvalidInput)
	}

	out := make([]model.Date, 0)
	for _, d := range in.Dates {
		if d.Before(in.Today) || !IsPlayDate(d, in.PlayWeekdays, in.SpecialDates) {
			continue
		}
		if in.Filter.remaining {
			if _, set := in.Existing[d]; set {
				continue
			}
		} else if d.Weekday() != in.Filter.weekday {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// RecordsByDate keys one player's records by date.
func RecordsByDate(records []model.AvailabilityRecord, playerID string) map[model.Date]model.AvailabilityRecord {
	out := make(map[model.Date]model.AvailabilityRecord)
	for _, r := range records {
		if r.PlayerID == playerID {
			out[r.Date] = r
		}
	}
	return out
}

// MonthDates lists every day of the given month.
func MonthDates(year int, month time.Month) []model.Date {
	first := model.Date{Year: year, Month: month, Day: 1}
	last := WindowEnd(first, 0)
	out := make([]model.Date, 0, last.Day)
	for d := first; !d.After(last); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}
