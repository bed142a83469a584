package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamecal/internal/model"
)

var stamp = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

func TestRender_AllDayDocument(t *testing.T) {
	out := Render([]Event{{Date: model.MustParseDate("2025-01-24"), Title: "Game Night"}}, stamp, RenderOptions{})

	want := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//gamecal//Game Night Scheduler//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"BEGIN:VEVENT",
		"UID:20250124-0@gamecal.local",
		"DTSTAMP:20250110T120000Z",
		"DTSTART;VALUE=DATE:20250124",
		"DTEND;VALUE=DATE:20250124",
		"SUMMARY:Game Night",
		"END:VEVENT",
		"END:VCALENDAR",
	}, "\r\n") + "\r\n"
	assert.Equal(t, want, out)
}

func TestRender_TimedWithTimezone(t *testing.T) {
	out := Render([]Event{{
		Date:      model.MustParseDate("2025-01-20"),
		StartTime: model.ClockPtr("18:00"),
		EndTime:   model.ClockPtr("22:00"),
		Title:     "Game Night",
		Timezone:  "America/New_York",
	}}, stamp, RenderOptions{})

	assert.Contains(t, out, "DTSTART;TZID=America/New_York:20250120T180000\r\n")
	assert.Contains(t, out, "DTEND;TZID=America/New_York:20250120T220000\r\n")
}

func TestRender_FloatingTime(t *testing.T) {
	out := Render([]Event{{
		Date:      model.MustParseDate("2025-01-20"),
		StartTime: model.ClockPtr("18:30:15"),
		EndTime:   model.ClockPtr("23:59"),
	}}, stamp, RenderOptions{})

	assert.Contains(t, out, "\r\nDTSTART:20250120T183015\r\n")
	assert.Contains(t, out, "\r\nDTEND:20250120T235900\r\n")
	assert.NotContains(t, out, "TZID")
	assert.NotContains(t, out, "SUMMARY")
}

func TestRender_SingleBoundIsAllDay(t *testing.T) {
	out := Render([]Event{{
		Date:      model.MustParseDate("2025-01-20"),
		StartTime: model.ClockPtr("18:00"),
		Timezone:  "Europe/Berlin",
	}}, stamp, RenderOptions{})

	assert.Contains(t, out, "DTSTART;VALUE=DATE:20250120\r\n")
	assert.NotContains(t, out, "TZID")
}

func TestRender_EscapesText(t *testing.T) {
	out := Render([]Event{{
		Date:        model.MustParseDate("2025-01-20"),
		Title:       "Dice, Snacks; Fun",
		Description: "Bring chairs\nand a\\b",
		Location:    "Room 4, Floor 2",
	}}, stamp, RenderOptions{})

	assert.Contains(t, out, `SUMMARY:Dice\, Snacks\; Fun`+"\r\n")
	assert.Contains(t, out, `DESCRIPTION:Bring chairs\nand a\\b`+"\r\n")
	assert.Contains(t, out, `LOCATION:Room 4\, Floor 2`+"\r\n")
}

func TestRender_UIDsUniquePerDocument(t *testing.T) {
	d := model.MustParseDate("2025-02-07")
	out := Render([]Event{{Date: d}, {Date: d}, {Date: model.MustParseDate("2025-02-14")}}, stamp, RenderOptions{
		ProductID: "-//Example//Tabletop//EN",
		UIDDomain: "games.example.org",
	})

	assert.Contains(t, out, "UID:20250207-0@games.example.org\r\n")
	assert.Contains(t, out, "UID:20250207-1@games.example.org\r\n")
	assert.Contains(t, out, "UID:20250214-2@games.example.org\r\n")
	assert.Contains(t, out, "PRODID:-//Example//Tabletop//EN\r\n")
	assert.Equal(t, 3, strings.Count(out, "BEGIN:VEVENT"))
}

func TestRender_DTStampIsUTC(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	now := time.Date(2025, 3, 1, 9, 30, 5, 0, loc)

	out := Render([]Event{{Date: model.MustParseDate("2025-03-01")}}, now, RenderOptions{})

	assert.Contains(t, out, "DTSTAMP:20250301T003005Z\r\n")
}

func TestRender_Empty(t *testing.T) {
	out := Render(nil, stamp, RenderOptions{})

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\nVERSION:2.0\r\n"))
	assert.True(t, strings.HasSuffix(out, "METHOD:PUBLISH\r\nEND:VCALENDAR\r\n"))
	assert.NotContains(t, strings.ReplaceAll(out, "\r\n", ""), "\n")
}

func TestEventsFromSessions(t *testing.T) {
	game := model.GameConfig{
		Title:            "Campaign",
		DefaultStartTime: model.ClockPtr("19:00"),
		DefaultEndTime:   model.ClockPtr("23:00"),
		Timezone:         "Europe/Berlin",
	}
	sessions := []model.ConfirmedSession{
		{Date: model.MustParseDate("2025-01-24")},
		{Date: model.MustParseDate("2025-01-31"), StartTime: model.ClockPtr("17:00"), EndTime: model.ClockPtr("20:00")},
	}

	events := EventsFromSessions(game, sessions, "Session zero", "")

	require.Len(t, events, 2)
	assert.Equal(t, "19:00:00", events[0].StartTime.String())
	assert.Equal(t, "23:00:00", events[0].EndTime.String())
	assert.Equal(t, "17:00:00", events[1].StartTime.String())
	assert.Equal(t, "Campaign", events[1].Title)
	assert.Equal(t, "Session zero", events[1].Description)
	assert.Equal(t, "Europe/Berlin", events[1].Timezone)

	noDefaults := EventsFromSessions(model.GameConfig{Title: "Open"}, sessions[:1], "", "")
	assert.Nil(t, noDefaults[0].StartTime)
	assert.Nil(t, noDefaults[0].EndTime)
}
