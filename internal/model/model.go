package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidStatus = errors.New("invalid availability status")

// Status is a player's stored answer for one date. "Pending" is not a
// Status: it is the absence of an AvailabilityRecord.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusUnavailable Status = "unavailable"
	StatusMaybe       Status = "maybe"
)

// ParseStatus validates a status token.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusAvailable, StatusUnavailable, StatusMaybe:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Valid reports whether s is one of the canonical constants.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusUnavailable, StatusMaybe:
		return true
	}
	return false
}

// UnmarshalText stores the canonical form of a status token, so
// "Available" decodes to StatusAvailable.
func (s *Status) UnmarshalText(b []byte) error {
	st, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// GameConfig holds the scheduling rules of one group.
type GameConfig struct {
	Title string `yaml:"title" json:"title"`

	// PlayWeekdays uses time.Weekday numbering (0 = Sunday).
	PlayWeekdays []time.Weekday `yaml:"play_weekdays" json:"play_weekdays"`

	// SpecialDates are one-off candidate dates outside the weekday pattern.
	SpecialDates []Date `yaml:"special_dates" json:"special_dates"`

	// WindowMonths is how many months past the current one candidates extend.
	WindowMonths int `yaml:"window_months" json:"window_months"`

	DefaultStartTime *Clock `yaml:"default_start_time,omitempty" json:"default_start_time,omitempty"`
	DefaultEndTime   *Clock `yaml:"default_end_time,omitempty" json:"default_end_time,omitempty"`

	// Timezone is an IANA name; empty means floating local time.
	Timezone string `yaml:"timezone,omitempty" json:"timezone,omitempty"`
}

// Player is identity only.
type Player struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// AvailabilityRecord is one player's answer for one date. There is at most
// one record per (player, date).
type AvailabilityRecord struct {
	PlayerID       string `yaml:"player_id" json:"player_id"`
	Date           Date   `yaml:"date" json:"date"`
	Status         Status `yaml:"status" json:"status"`
	Comment        string `yaml:"comment,omitempty" json:"comment,omitempty"`
	AvailableAfter *Clock `yaml:"available_after,omitempty" json:"available_after,omitempty"`
	AvailableUntil *Clock `yaml:"available_until,omitempty" json:"available_until,omitempty"`
}

// ConfirmedSession is a date a coordinator has locked in.
type ConfirmedSession struct {
	Date      Date   `yaml:"date" json:"date"`
	StartTime *Clock `yaml:"start_time,omitempty" json:"start_time,omitempty"`
	EndTime   *Clock `yaml:"end_time,omitempty" json:"end_time,omitempty"`
}
