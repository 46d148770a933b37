// /home/krylon/go/src/github.com/blicero/wecker/objects/alarm.go
// -*- mode: go; coding: utf-8; -*-
// Created on 05. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-02 19:21:37 krylon>

// Package objects provides the data types used by the application.
package objects

import (
	"fmt"
	"time"

	"github.com/blicero/wecker/common"
	"github.com/blicero/wecker/objects/disposition"
)

//go:generate ffjson alarm.go

// Go's time package has a type Weekday, but it insists on Sunday being
// the first day of the week, whereas around here it is considered the
// last one. So the weekday defaults are indexed Monday = 0 ... Sunday = 6.

var wDayStr = []string{
	"Mo",
	"Di",
	"Mi",
	"Do",
	"Fr",
	"Sa",
	"So",
}

// WeekdayIndex converts a time.Weekday to the Monday-first index used
// throughout the application.
func WeekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
} // func WeekdayIndex(d time.Weekday) int

// DateOverride is a single calendar date's alarm setting, at most one
// per date. Depending on its Disposition it disables the day's alarm,
// replaces its time, or defers to the WeekdayDefault.
type DateOverride struct {
	ID          int64
	Date        time.Time
	Disposition disposition.Disposition
	Hour        int
	Minute      int
	UUID        string
	Changed     time.Time
}

// DateKey returns the date the override is attached to, formatted for
// use as a lookup key.
func (o *DateOverride) DateKey() string {
	return o.Date.Format(common.TimestampFormatDate)
} // func (o *DateOverride) DateKey() string

// EffectiveTime returns the override's alarm time on its date.
// Meaningful only if the Disposition is Enabled.
func (o *DateOverride) EffectiveTime() time.Time {
	return time.Date(
		o.Date.Year(), o.Date.Month(), o.Date.Day(),
		o.Hour, o.Minute, 0, 0,
		o.Date.Location())
} // func (o *DateOverride) EffectiveTime() time.Time

func (o *DateOverride) String() string {
	return fmt.Sprintf("DateOverride{ Date: %s, Disposition: %s, Time: %02d:%02d }",
		o.DateKey(),
		o.Disposition,
		o.Hour,
		o.Minute)
} // func (o *DateOverride) String() string

// WeekdayDefault is the recurring weekly alarm template for one
// weekday. There are always exactly seven of these.
type WeekdayDefault struct {
	Day     int // Monday = 0 ... Sunday = 6
	Enabled bool
	Hour    int
	Minute  int
	Changed time.Time
}

// TimeOn returns the concrete alarm timestamp the default yields on
// the given date. It is the caller's business to make sure the date's
// weekday actually matches.
func (w *WeekdayDefault) TimeOn(date time.Time) time.Time {
	return time.Date(
		date.Year(), date.Month(), date.Day(),
		w.Hour, w.Minute, 0, 0,
		date.Location())
} // func (w *WeekdayDefault) TimeOn(date time.Time) time.Time

// SameTime returns true if both defaults ring at the same time of day.
func (w *WeekdayDefault) SameTime(other *WeekdayDefault) bool {
	return w.Hour == other.Hour && w.Minute == other.Minute
} // func (w *WeekdayDefault) SameTime(other *WeekdayDefault) bool

func (w *WeekdayDefault) String() string {
	var state = "off"
	if w.Enabled {
		state = "on"
	}

	return fmt.Sprintf("WeekdayDefault{ %s %02d:%02d (%s) }",
		wDayStr[w.Day],
		w.Hour,
		w.Minute,
		state)
} // func (w *WeekdayDefault) String() string

// OneTimeAlarm is an independent alarm bound to an absolute instant.
// The Timestamp is normalized to UTC when the record is stored so a
// timezone change does not move the alarm.
// A OneTimeAlarm is consumed - soft-deleted - once its occurrence has
// been dismissed or superseded; consumed alarms are kept for the
// history view.
type OneTimeAlarm struct {
	ID        int64
	Timestamp time.Time
	Name      string
	Consumed  bool
	UUID      string
	Changed   time.Time
}

// Pending returns true if the alarm has not been consumed and its
// instant has not passed, relative to the given reference time.
func (a *OneTimeAlarm) Pending(ref time.Time) bool {
	return !a.Consumed && !a.Timestamp.Before(ref)
} // func (a *OneTimeAlarm) Pending(ref time.Time) bool

func (a *OneTimeAlarm) String() string {
	return fmt.Sprintf("OneTimeAlarm{ ID: %d, Name: %q, Timestamp: %s, Consumed: %t }",
		a.ID,
		a.Name,
		a.Timestamp.Format(common.TimestampFormat),
		a.Consumed)
} // func (a *OneTimeAlarm) String() string
