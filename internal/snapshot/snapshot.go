// Package snapshot loads the point-in-time group data the scheduling engine
// works on: game rules, players, availability answers and confirmed
// sessions. It stands in for the storage layer, which owns that data.
package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gamecal/internal/model"
	"gamecal/internal/schedule"
)

var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Format of a snapshot body.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Document is the on-disk / on-wire snapshot shape.
type Document struct {
	Game         model.GameConfig           `yaml:"game" json:"game"`
	Players      []model.Player             `yaml:"players" json:"players"`
	Availability []model.AvailabilityRecord `yaml:"availability" json:"availability"`
	Sessions     []model.ConfirmedSession   `yaml:"sessions" json:"sessions"`

	// SessionsFeed optionally points at an ICS feed (path or URL) whose
	// events are added to Sessions.
	SessionsFeed string `yaml:"sessions_feed,omitempty" json:"sessions_feed,omitempty"`
}

// Snapshot is a decoded, validated Document plus load metadata.
type Snapshot struct {
	Document

	// Version changes whenever the underlying bodies change.
	Version   string
	LoadedAt  time.Time
	FromCache bool
}

// DetectFormat picks the format from a content type, then the source name.
// YAML is the default since it is a superset of JSON.
func DetectFormat(source, contentType string) Format {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return FormatJSON
	case strings.Contains(ct, "yaml"):
		return FormatYAML
	}
	if strings.EqualFold(filepath.Ext(stripQuery(source)), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

func stripQuery(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		return s[:i]
	}
	return s
}

// Decode parses body in the given format and validates it.
func Decode(body []byte, format Format) (Document, error) {
	var doc Document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return Document{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(body))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return Document{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
	}
	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Validate checks what the engine relies on.
func (d Document) Validate() error {
	if err := schedule.WindowFor(d.Game).Validate(); err != nil {
		return fmt.Errorf("%w: game: %v", ErrInvalidSnapshot, err)
	}
	if d.Game.Timezone != "" {
		if _, err := time.LoadLocation(d.Game.Timezone); err != nil {
			return fmt.Errorf("%w: game timezone %q: %v", ErrInvalidSnapshot, d.Game.Timezone, err)
		}
	}

	known := make(map[string]bool, len(d.Players))
	for _, p := range d.Players {
		if p.ID == "" {
			return fmt.Errorf("%w: player %q has no id", ErrInvalidSnapshot, p.Name)
		}
		if known[p.ID] {
			return fmt.Errorf("%w: duplicate player id %q", ErrInvalidSnapshot, p.ID)
		}
		known[p.ID] = true
	}

	for _, r := range d.Availability {
		if !known[r.PlayerID] {
			return fmt.Errorf("%w: availability for unknown player %q", ErrInvalidSnapshot, r.PlayerID)
		}
	}
	if _, err := schedule.NewIndex(d.Availability); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	for _, s := range d.Sessions {
		if s.Date.IsZero() {
			return fmt.Errorf("%w: session without date", ErrInvalidSnapshot)
		}
	}
	return nil
}

// GameLocation resolves the game's timezone; floating games use UTC.
func (d Document) GameLocation() *time.Location {
	if d.Game.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(d.Game.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func version(bodies ...[]byte) string {
	h := sha256.New()
	for _, b := range bodies {
		h.Write(b)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}
