// Package schedule turns a group's calendar rules and per-player answers
// into candidate dates, ranked suggestions, completion figures and bulk-edit
// date sets. Every function is a pure function of its arguments; "today" and
// "now" are always passed in.
package schedule

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/teambition/rrule-go"

	"gamecal/internal/model"
)

// ErrInvalidInput marks a caller contract violation (bad weekday, negative
// window, unknown filter token, ...). Nothing is computed when it is returned.
var ErrInvalidInput = errors.New("schedule: invalid input")

// rruleWeekdays maps time.Weekday (0 = Sunday) to rrule weekdays.
var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// WindowConfig is the part of a GameConfig that defines candidate dates.
type WindowConfig struct {
	PlayWeekdays []time.Weekday
	SpecialDates []model.Date
	WindowMonths int
}

// WindowFor extracts the window rules from a game.
func WindowFor(g model.GameConfig) WindowConfig {
	return WindowConfig{
		PlayWeekdays: g.PlayWeekdays,
		SpecialDates: g.SpecialDates,
		WindowMonths: g.WindowMonths,
	}
}

// Validate checks the window rules.
func (c WindowConfig) Validate() error {
	if c.WindowMonths < 0 {
		return fmt.Errorf("%w: window months %d is negative", ErrInvalidInput, c.WindowMonths)
	}
	for _, wd := range c.PlayWeekdays {
		if err := validWeekday(wd); err != nil {
			return err
		}
	}
	for _, d := range c.SpecialDates {
		if d.IsZero() {
			return fmt.Errorf("%w: zero special date", ErrInvalidInput)
		}
	}
	return nil
}

func validWeekday(wd time.Weekday) error {
	if wd < time.Sunday || wd > time.Saturday {
		return fmt.Errorf("%w: weekday %d outside 0-6", ErrInvalidInput, int(wd))
	}
	return nil
}

// WindowEnd returns the last day of the calendar month that is months
// months after ref's month.
func WindowEnd(ref model.Date, months int) model.Date {
	// Day 0 of the following month is the last day of the target month.
	last := time.Date(ref.Year, ref.Month+time.Month(months)+1, 0, 0, 0, 0, 0, time.UTC)
	return model.DateOf(last)
}

// CandidateDates returns the ascending candidate dates from ref (inclusive)
// through WindowEnd. A date qualifies if its weekday is a play day or it is
// one of the special dates; special dates outside the window are dropped.
//
// The returned sequence is lazy and can be ranged over any number of times.
func CandidateDates(cfg WindowConfig, ref model.Date) (iter.Seq[model.Date], error) {
	if ref.IsZero() {
		return nil, fmt.Errorf("%w: zero reference date", ErrInvalidInput)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	end := WindowEnd(ref, cfg.WindowMonths)

	var rule *rrule.RRule
	if len(cfg.PlayWeekdays) > 0 {
		byDay := make([]rrule.Weekday, 0, len(cfg.PlayWeekdays))
		seen := make(map[time.Weekday]bool, len(cfg.PlayWeekdays))
		for _, wd := range cfg.PlayWeekdays {
			if seen[wd] {
				continue
			}
			seen[wd] = true
			byDay = append(byDay, rruleWeekdays[wd])
		}

		r, err := rrule.NewRRule(rrule.ROption{
			Freq:      rrule.WEEKLY,
			Dtstart:   ref.Time(),
			Until:     end.Time(),
			Byweekday: byDay,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		rule = r
	}

	special := make([]time.Time, 0, len(cfg.SpecialDates))
	for _, d := range cfg.SpecialDates {
		if d.Before(ref) || d.After(end) {
			continue
		}
		special = append(special, d.Time())
	}

	return func(yield func(model.Date) bool) {
		// A fresh set per iteration keeps the sequence restartable.
		var set rrule.Set
		if rule != nil {
			set.RRule(rule)
		}
		set.SetRDates(special)

		next := set.Iterator()
		for t, ok := next(); ok; t, ok = next() {
			if !yield(model.DateOf(t)) {
				return
			}
		}
	}, nil
}

// Window collects CandidateDates into a slice.
func Window(cfg WindowConfig, ref model.Date) ([]model.Date, error) {
	seq, err := CandidateDates(cfg, ref)
	if err != nil {
		return nil, err
	}
	dates := make([]model.Date, 0)
	for d := range seq {
		dates = append(dates, d)
	}
	return dates, nil
}

// IsPlayDate reports whether d falls on a play weekday or is a special date.
func IsPlayDate(d model.Date, playWeekdays []time.Weekday, specialDates []model.Date) bool {
	wd := d.Weekday()
	for _, p := range playWeekdays {
		if p == wd {
			return true
		}
	}
	for _, s := range specialDates {
		if s == d {
			return true
		}
	}
	return false
}
