package schedule

import (
	"fmt"

	"gamecal/internal/model"
)

type recordKey struct {
	playerID string
	date     model.Date
}

// Index looks up the single AvailabilityRecord of a (player, date) pair.
// A missing entry means the player is pending for that date.
type Index struct {
	records map[recordKey]model.AvailabilityRecord
}

// NewIndex validates and indexes records. A second record for the same
// (player, date) or an unknown status is rejected.
func NewIndex(records []model.AvailabilityRecord) (*Index, error) {
	ix := &Index{records: make(map[recordKey]model.AvailabilityRecord, len(records))}
	for _, r := range records {
		if !r.Status.Valid() {
			return nil, fmt.Errorf("%w: player %q on %s has status %q", ErrInvalidInput, r.PlayerID, r.Date, r.Status)
		}
		if r.Date.IsZero() {
			return nil, fmt.Errorf("%w: player %q has a record without date", ErrInvalidInput, r.PlayerID)
		}
		k := recordKey{playerID: r.PlayerID, date: r.Date}
		if _, dup := ix.records[k]; dup {
			return nil, fmt.Errorf("%w: duplicate record for player %q on %s", ErrInvalidInput, r.PlayerID, r.Date)
		}
		ix.records[k] = r
	}
	return ix, nil
}

// Lookup returns the record for playerID on date, if any.
func (ix *Index) Lookup(playerID string, date model.Date) (model.AvailabilityRecord, bool) {
	if ix == nil {
		return model.AvailabilityRecord{}, false
	}
	r, ok := ix.records[recordKey{playerID: playerID, date: date}]
	return r, ok
}

// Response is one player's answer carried through classification. Time
// constraints are copied as-is whatever the status.
type Response struct {
	Player         model.Player `json:"player"`
	Comment        string       `json:"comment,omitempty"`
	AvailableAfter *model.Clock `json:"available_after,omitempty"`
	AvailableUntil *model.Clock `json:"available_until,omitempty"`
}

// Classification partitions the players of a group for a single date.
type Classification struct {
	Date        model.Date     `json:"date"`
	Available   []Response     `json:"available"`
	Maybe       []Response     `json:"maybe"`
	Unavailable []Response     `json:"unavailable"`
	Pending     []model.Player `json:"pending"`
}

// Total is always the number of players classified.
func (c Classification) Total() int {
	return len(c.Available) + len(c.Maybe) + len(c.Unavailable) + len(c.Pending)
}

// Classify buckets players by their answer for date, keeping player order
// within each bucket.
func Classify(players []model.Player, ix *Index, date model.Date) Classification {
	c := Classification{
		Date:        date,
		Available:   []Response{},
		Maybe:       []Response{},
		Unavailable: []Response{},
		Pending:     []model.Player{},
	}

	for _, p := range players {
		rec, ok := ix.Lookup(p.ID, date)
		if !ok {
			c.Pending = append(c.Pending, p)
			continue
		}

		resp := Response{
			Player:         p,
			Comment:        rec.Comment,
			AvailableAfter: rec.AvailableAfter,
			AvailableUntil: rec.AvailableUntil,
		}
		switch rec.Status {
		case model.StatusAvailable:
			c.Available = append(c.Available, resp)
		case model.StatusMaybe:
			c.Maybe = append(c.Maybe, resp)
		case model.StatusUnavailable:
			c.Unavailable = append(c.Unavailable, resp)
		default:
			// Not a usable answer; the player still has to respond.
			c.Pending = append(c.Pending, p)
		}
	}

	return c
}
