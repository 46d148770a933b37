// /home/krylon/go/src/github.com/blicero/wecker/calendar/01_calendar_test.go
// -*- mode: go; coding: utf-8; -*-
// Created on 26. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-11 18:02:31 krylon>

package calendar

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blicero/wecker/common"
	"github.com/blicero/wecker/objects"
)

var baseDir string

func TestMain(m *testing.M) {
	baseDir = time.Now().Format("/tmp/wecker_calendar_test_20060102_150405")

	if err := common.SetBaseDir(baseDir); err != nil {
		fmt.Printf("Cannot set base directory to %s: %s\n",
			baseDir,
			err.Error())
		os.Exit(1)
	}

	var result = m.Run()

	os.RemoveAll(baseDir) // nolint: errcheck
	os.Exit(result)
} // func TestMain(m *testing.M)

// 2023-07-18 is a Tuesday.
var sampleICS = strings.Join([]string{
	"BEGIN:VCALENDAR",
	"VERSION:2.0",
	"PRODID:-//Test//Test//EN",
	"BEGIN:VEVENT",
	"UID:dentist@example.com",
	"SUMMARY:Zahnarzt",
	"LOCATION:Praxis Dr. Sommer",
	"DTSTART:20230718T091500Z",
	"DTEND:20230718T100000Z",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:standup@example.com",
	"SUMMARY:Standup",
	"DTSTART:20230710T080000Z",
	"DTEND:20230710T081500Z",
	"RRULE:FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:vacation@example.com",
	"SUMMARY:Urlaub",
	"DTSTART;VALUE=DATE:20230718",
	"END:VEVENT",
	"END:VCALENDAR",
	"",
}, "\r\n")

var src *Source

func TestParseFeed(t *testing.T) {
	var (
		err  error
		path = filepath.Join(baseDir, "test.ics")
	)

	if err = os.WriteFile(path, []byte(sampleICS), 0644); err != nil {
		t.Fatalf("Cannot write sample calendar to %s: %s",
			path,
			err.Error())
	} else if src, err = New(path); err != nil {
		src = nil
		t.Fatalf("Cannot create calendar Source: %s",
			err.Error())
	}

	var (
		from   = time.Date(2023, 7, 18, 0, 0, 0, 0, time.UTC)
		to     = from.AddDate(0, 0, 1)
		events []objects.Appointment
	)

	if events, err = src.Events(from, to); err != nil {
		t.Fatalf("Cannot read events: %s",
			err.Error())
	} else if len(events) != 3 {
		t.Fatalf("Expected 3 events on 2023-07-18, got %d (%v)",
			len(events),
			events)
	}

	// Sorted by beginning: the expanded standup comes first.
	if events[0].UID != "standup@example.com" {
		t.Errorf("Expected the recurring event first, got %s",
			events[0].UID)
	} else if !events[0].Begin.Equal(from.Add(time.Hour * 8)) {
		t.Errorf("Expected the standup at 08:00 UTC, got %s",
			events[0].Begin.Format(common.TimestampFormat))
	} else if events[0].End.Sub(events[0].Begin) != time.Minute*15 {
		t.Errorf("The expanded occurrence should keep its duration, got %s",
			events[0].End.Sub(events[0].Begin))
	}

	for _, app := range events {
		if app.UID == "vacation@example.com" && !app.AllDay {
			t.Errorf("Event %s should be all-day",
				app.UID)
		}
	}
} // func TestParseFeed(t *testing.T)

func TestEarliestEvent(t *testing.T) {
	if src == nil {
		t.SkipNow()
	}

	var (
		err  error
		from = time.Date(2023, 7, 18, 0, 0, 0, 0, time.UTC)
		noon = from.Add(time.Hour * 12)
		app  *objects.Appointment
	)

	// The all-day vacation is skipped, the standup at 08:00 wins.
	if app, err = src.EarliestEvent(from, noon); err != nil {
		t.Fatalf("EarliestEvent failed: %s",
			err.Error())
	} else if app == nil {
		t.Fatal("EarliestEvent found nothing")
	} else if app.UID != "standup@example.com" {
		t.Errorf("Expected the standup, got %s",
			app.UID)
	}

	// A window past all timed events yields nothing.
	var evening = from.Add(time.Hour * 18)

	if app, err = src.EarliestEvent(evening, evening.Add(time.Hour*4)); err != nil {
		t.Fatalf("EarliestEvent failed: %s",
			err.Error())
	} else if app != nil {
		t.Errorf("Expected no event in the evening, got %s",
			app.UID)
	}
} // func TestEarliestEvent(t *testing.T)
