package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Clock is a wall-clock time of day with second precision ("local time").
// Optional clocks are carried as *Clock; nil means "no constraint".
type Clock struct {
	Hour   int
	Minute int
	Second int
}

// ParseClock accepts HH:MM or HH:MM:SS.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	var vals [3]int
	for i, p := range parts {
		if len(p) != 2 {
			return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
		vals[i] = n
	}

	c := Clock{Hour: vals[0], Minute: vals[1], Second: vals[2]}
	if c.Hour > 23 || c.Minute > 59 || c.Second > 59 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return c, nil
}

// MustParseClock is like ParseClock but panics on malformed input.
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ClockPtr parses s and returns a pointer, or nil for an empty string.
func ClockPtr(s string) *Clock {
	if s == "" {
		return nil
	}
	c := MustParseClock(s)
	return &c
}

func (c Clock) seconds() int { return c.Hour*3600 + c.Minute*60 + c.Second }

func (c Clock) Compare(o Clock) int { return cmpInt(c.seconds(), o.seconds()) }

func (c Clock) Before(o Clock) bool { return c.Compare(o) < 0 }

func (c Clock) After(o Clock) bool { return c.Compare(o) > 0 }

// String formats c as HH:MM:SS.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// Compact formats c as HHMMSS.
func (c Clock) Compact() string {
	return fmt.Sprintf("%02d%02d%02d", c.Hour, c.Minute, c.Second)
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidClock, string(b))
	}
	return c.UnmarshalText([]byte(s))
}
