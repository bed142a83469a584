package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "gamecal/internal/log"
	"gamecal/internal/model"
)

var ErrInvalidEvent = errors.New("ics: invalid event")

// ParseSessions reads a published session calendar back into confirmed
// sessions, in document order.
//
//   - VALUE=DATE (or a value without 'T') is an all-day session: nil times.
//   - Local and TZID date-times keep their wall-clock value unchanged.
//   - UTC date-times ("...Z") are converted into loc (UTC if nil).
//
// VEVENTs without a usable DTSTART are logged and skipped.
func ParseSessions(body []byte, loc *time.Location) ([]model.ConfirmedSession, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.UTC
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics parse: %w", err)
	}

	sessions := make([]model.ConfirmedSession, 0)
	for _, ve := range cal.Events() {
		s, perr := parseSession(ve, loc)
		if perr != nil {
			uid := ""
			if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
				uid = p.Value
			}
			appLog.Warn("ics vevent skipped", "uid", uid, "reason", perr.Error())
			continue
		}
		sessions = append(sessions, s)
	}

	appLog.Debug("ics parse completed", "session_count", len(sessions))
	return sessions, nil
}

func parseSession(ve *ical.VEvent, loc *time.Location) (model.ConfirmedSession, error) {
	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil || startProp.Value == "" {
		return model.ConfirmedSession{}, fmt.Errorf("%w: missing DTSTART", ErrInvalidEvent)
	}

	startDate, startClock, err := parseStamp(startProp, loc)
	if err != nil {
		return model.ConfirmedSession{}, err
	}
	s := model.ConfirmedSession{Date: startDate}
	if startClock == nil {
		return s, nil
	}

	endProp := ve.GetProperty(ical.ComponentPropertyDtEnd)
	if endProp == nil || endProp.Value == "" {
		// A timed start without end is kept as a date only.
		return s, nil
	}
	_, endClock, err := parseStamp(endProp, loc)
	if err != nil {
		return model.ConfirmedSession{}, err
	}
	if endClock == nil {
		return s, nil
	}

	s.StartTime = startClock
	s.EndTime = endClock
	return s, nil
}

// parseStamp returns the date and, for DATE-TIME values, the clock.
func parseStamp(p *ical.IANAProperty, loc *time.Location) (model.Date, *model.Clock, error) {
	val := strings.TrimSpace(p.Value)

	allDay := !strings.Contains(val, "T")
	if vs, ok := p.ICalParameters[string(ical.ParameterValue)]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		allDay = true
	}

	if allDay {
		t, err := time.Parse("20060102", val)
		if err != nil {
			return model.Date{}, nil, fmt.Errorf("%w: date %q", ErrInvalidEvent, val)
		}
		return model.DateOf(t), nil, nil
	}

	var t time.Time
	var err error
	if strings.HasSuffix(val, "Z") {
		t, err = time.Parse("20060102T150405Z", val)
		t = t.In(loc)
	} else {
		t, err = time.Parse("20060102T150405", val)
	}
	if err != nil {
		return model.Date{}, nil, fmt.Errorf("%w: date-time %q", ErrInvalidEvent, val)
	}

	c := model.Clock{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
	return model.DateOf(t), &c, nil
}
