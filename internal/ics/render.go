package ics

import (
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"

	"gamecal/internal/model"
)

const (
	DefaultProductID = "-//gamecal//Game Night Scheduler//EN"
	DefaultUIDDomain = "gamecal.local"

	// ContentType is the MIME type of Render's output.
	ContentType = "text/calendar; charset=utf-8"
)

// Event is one confirmed session ready for export.
type Event struct {
	Date      model.Date
	StartTime *model.Clock
	EndTime   *model.Clock

	Title       string
	Description string
	Location    string

	// Timezone is an IANA name used as TZID; empty renders floating time.
	Timezone string
}

// RenderOptions customise the document identity. Zero values fall back to
// DefaultProductID and DefaultUIDDomain.
type RenderOptions struct {
	ProductID string
	UIDDomain string
}

// Render serializes events as an iCalendar document with CRLF line breaks.
// Events keep input order; UIDs are <YYYYMMDD>-<index>@<domain>.
//
// Rendering rules:
//   - no start and end time: all-day event, DTSTART and DTEND on the same date
//   - both times: DTSTART/DTEND with TZID=<Timezone>, or floating if empty
//   - exactly one time: rendered all-day, a single bound is not a session span
//
// Wall-clock times are never converted between zones.
func Render(events []Event, now time.Time, opts RenderOptions) string {
	return Build(events, now, opts).Serialize(ical.WithNewLineWindows)
}

// Build assembles the calendar without serializing it.
func Build(events []Event, now time.Time, opts RenderOptions) *ical.Calendar {
	if opts.ProductID == "" {
		opts.ProductID = DefaultProductID
	}
	if opts.UIDDomain == "" {
		opts.UIDDomain = DefaultUIDDomain
	}

	cal := ical.NewCalendarFor("gamecal")
	cal.SetProductId(opts.ProductID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)

	for i, ev := range events {
		uid := ev.Date.Compact() + "-" + strconv.Itoa(i) + "@" + opts.UIDDomain
		vev := cal.AddEvent(uid)
		vev.SetDtStampTime(now)

		if ev.StartTime != nil && ev.EndTime != nil {
			var params []ical.PropertyParameter
			if ev.Timezone != "" {
				params = append(params, ical.WithTZID(ev.Timezone))
			}
			vev.SetProperty(ical.ComponentPropertyDtStart, localStamp(ev.Date, *ev.StartTime), params...)
			vev.SetProperty(ical.ComponentPropertyDtEnd, localStamp(ev.Date, *ev.EndTime), params...)
		} else {
			vev.SetAllDayStartAt(ev.Date.Time())
			vev.SetAllDayEndAt(ev.Date.Time())
		}

		// TEXT values are escaped by the library on serialization.
		if ev.Title != "" {
			vev.SetSummary(ev.Title)
		}
		if ev.Description != "" {
			vev.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			vev.SetLocation(ev.Location)
		}
	}

	return cal
}

// localStamp formats YYYYMMDDTHHMMSS without zone designator.
func localStamp(d model.Date, c model.Clock) string {
	return d.Compact() + "T" + c.Compact()
}

// EventsFromSessions maps confirmed sessions to exportable events. Missing
// session times are filled from the game's defaults.
func EventsFromSessions(game model.GameConfig, sessions []model.ConfirmedSession, description, location string) []Event {
	out := make([]Event, 0, len(sessions))
	for _, s := range sessions {
		start, end := s.StartTime, s.EndTime
		if start == nil && end == nil {
			start, end = game.DefaultStartTime, game.DefaultEndTime
		}
		out = append(out, Event{
			Date:        s.Date,
			StartTime:   start,
			EndTime:     end,
			Title:       game.Title,
			Description: description,
			Location:    location,
			Timezone:    game.Timezone,
		})
	}
	return out
}
