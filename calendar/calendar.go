// /home/krylon/go/src/github.com/blicero/wecker/calendar/calendar.go
// -*- mode: go; coding: utf-8; -*-
// Created on 26. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-11 17:32:19 krylon>

// Package calendar gives read-only access to an external appointment
// calendar, consumed as an ICS feed from a local file or an HTTP URL.
// Recurring events are expanded within the requested window.
package calendar

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/blicero/wecker/common"
	"github.com/blicero/wecker/logdomain"
	"github.com/blicero/wecker/objects"
	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
)

// fetchTimeout is how long we wait for a remote calendar.
const fetchTimeout = time.Second * 30

// Source is an ICS calendar, local or remote.
type Source struct {
	log      *log.Logger
	location string
	client   http.Client
}

// New creates a Source for the given location, either a filesystem
// path or an http(s) URL.
func New(location string) (*Source, error) {
	var (
		err error
		src = &Source{
			location: location,
			client:   http.Client{Timeout: fetchTimeout},
		}
	)

	if src.log, err = common.GetLogger(logdomain.Calendar); err != nil {
		return nil, err
	}

	return src, nil
} // func New(location string) (*Source, error)

// Events returns all appointments intersecting [from, to), recurring
// ones expanded, sorted by their beginning.
func (src *Source) Events(from, to time.Time) ([]objects.Appointment, error) {
	var (
		err error
		rc  io.ReadCloser
	)

	if rc, err = src.open(); err != nil {
		src.log.Printf("[ERROR] Cannot open calendar %s: %s\n",
			src.location,
			err.Error())
		return nil, err
	}

	defer rc.Close() // nolint: errcheck

	var list []objects.Appointment

	if list, err = src.parse(rc, from, to); err != nil {
		return nil, err
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].Begin.Before(list[j].Begin)
	})

	return list, nil
} // func (src *Source) Events(from, to time.Time) ([]objects.Appointment, error)

// EarliestEvent returns the earliest appointment beginning within
// [from, to), skipping all-day events, or nil if there is none.
func (src *Source) EarliestEvent(from, to time.Time) (*objects.Appointment, error) {
	var events, err = src.Events(from, to)
	if err != nil {
		return nil, err
	}

	for _, app := range events {
		if app.AllDay {
			continue
		} else if app.Begin.Before(from) || !app.Begin.Before(to) {
			continue
		}

		var hit = app
		return &hit, nil
	}

	return nil, nil
} // func (src *Source) EarliestEvent(from, to time.Time) (*objects.Appointment, error)

func (src *Source) open() (io.ReadCloser, error) {
	if strings.HasPrefix(src.location, "http://") ||
		strings.HasPrefix(src.location, "https://") {
		var res, err = src.client.Get(src.location)
		if err != nil {
			return nil, err
		} else if res.StatusCode != http.StatusOK {
			res.Body.Close() // nolint: errcheck
			return nil, fmt.Errorf("calendar %s: HTTP status %s",
				src.location,
				res.Status)
		}

		return res.Body, nil
	}

	return os.Open(src.location)
} // func (src *Source) open() (io.ReadCloser, error)

func (src *Source) parse(r io.Reader, from, to time.Time) ([]objects.Appointment, error) {
	var (
		list []objects.Appointment
		dec  = ical.NewDecoder(r)
	)

	for {
		var cal, err = dec.Decode()

		if err == io.EOF {
			break
		} else if err != nil {
			src.log.Printf("[ERROR] Cannot decode calendar %s: %s\n",
				src.location,
				err.Error())
			return nil, err
		}

		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}

			list = append(list, src.expandEvent(comp, from, to)...)
		}
	}

	return list, nil
} // func (src *Source) parse(r io.Reader, from, to time.Time) ([]objects.Appointment, error)

// expandEvent turns one VEVENT into zero or more Appointments
// intersecting [from, to).
func (src *Source) expandEvent(comp *ical.Component, from, to time.Time) []objects.Appointment {
	var (
		err        error
		app        objects.Appointment
		begin, end time.Time
	)

	if p := comp.Props.Get(ical.PropUID); p != nil {
		app.UID = p.Value
	}
	if p := comp.Props.Get(ical.PropSummary); p != nil {
		app.Title = p.Value
	}
	if p := comp.Props.Get(ical.PropLocation); p != nil {
		app.Location = p.Value
	}

	var startProp = comp.Props.Get(ical.PropDateTimeStart)

	if startProp == nil {
		src.log.Printf("[WARN] Event %q has no DTSTART, skipping\n",
			app.Title)
		return nil
	} else if begin, err = parseStamp(startProp); err != nil {
		src.log.Printf("[WARN] Cannot parse DTSTART of event %q: %s\n",
			app.Title,
			err.Error())
		return nil
	}

	app.AllDay = startProp.ValueType() == ical.ValueDate ||
		len(startProp.Value) == 8

	if p := comp.Props.Get(ical.PropDateTimeEnd); p != nil {
		if end, err = parseStamp(p); err != nil {
			src.log.Printf("[WARN] Cannot parse DTEND of event %q: %s\n",
				app.Title,
				err.Error())
			end = time.Time{}
		}
	}

	if end.IsZero() {
		if app.AllDay {
			end = begin.Add(time.Hour * 24)
		} else {
			end = begin.Add(time.Hour)
		}
	}

	var rruleProp = comp.Props.Get(ical.PropRecurrenceRule)

	if rruleProp == nil {
		if end.Before(from) || !begin.Before(to) {
			return nil
		}

		app.Begin = begin
		app.End = end
		return []objects.Appointment{app}
	}

	// Recurring event, expand within the window.
	var r *rrule.RRule

	if r, err = rrule.StrToRRule(rruleProp.Value); err != nil {
		src.log.Printf("[WARN] Cannot parse RRULE of event %q (%s): %s\n",
			app.Title,
			rruleProp.Value,
			err.Error())
		return nil
	}

	r.DTStart(begin)

	var set rrule.Set
	set.RRule(r)

	for _, exProp := range comp.Props.Values(ical.PropExceptionDates) {
		var ex time.Time

		if ex, err = parseStamp(&exProp); err != nil {
			src.log.Printf("[WARN] Cannot parse EXDATE of event %q: %s\n",
				app.Title,
				err.Error())
			continue
		}

		set.ExDate(ex.In(begin.Location()))
	}

	var (
		duration = end.Sub(begin)
		stamps   = set.Between(from.In(begin.Location()), to.In(begin.Location()), true)
		out      = make([]objects.Appointment, 0, len(stamps))
	)

	for _, stamp := range stamps {
		var occ = app
		occ.Begin = stamp
		occ.End = stamp.Add(duration)
		out = append(out, occ)
	}

	return out
} // func (src *Source) expandEvent(comp *ical.Component, from, to time.Time) []objects.Appointment

// parseStamp reads a date or datetime property, falling back to a few
// raw formats for feeds that omit the timezone parameter.
func parseStamp(prop *ical.Prop) (time.Time, error) {
	var stamp, err = prop.DateTime(time.Local)
	if err == nil {
		return stamp, nil
	}

	for _, format := range []string{
		"20060102T150405",
		"20060102T150405Z",
		"20060102",
		time.RFC3339,
	} {
		if stamp, err = time.ParseInLocation(format, prop.Value, time.Local); err == nil {
			return stamp, nil
		}
	}

	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", prop.Value)
} // func parseStamp(prop *ical.Prop) (time.Time, error)
