// /home/krylon/go/src/github.com/blicero/wecker/objects/appointment.go
// -*- mode: go; coding: utf-8; -*-
// Created on 11. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-08 16:40:12 krylon>

package objects

import (
	"fmt"
	"time"

	"github.com/blicero/wecker/common"
)

//go:generate ffjson appointment.go

// Appointment is a single event from the external calendar. We only
// consume these, we never create or edit them.
type Appointment struct {
	UID      string
	Title    string
	Location string
	Begin    time.Time
	End      time.Time
	AllDay   bool
}

func (a *Appointment) String() string {
	if a == nil {
		return "(None)"
	}

	return fmt.Sprintf("Appointment{ %q at %s }",
		a.Title,
		a.Begin.Format(common.TimestampFormatMinute))
} // func (a *Appointment) String() string

// Advisory is the outcome of comparing tomorrow's resolved alarm
// against the earliest morning appointment.
type Advisory struct {
	AttentionNeeded bool
	TargetTime      time.Time // the alarm time that would fit the appointment
	AlarmTime       time.Time // tomorrow's currently resolved alarm time (zero if none)
	Appointment     *Appointment
	CreatedAt       time.Time
}

// Due returns the instant the Advisory was raised.
func (a *Advisory) Due() time.Time {
	return a.CreatedAt
} // func (a *Advisory) Due() time.Time

// IsDue returns true; an Advisory is for immediate consumption.
func (a *Advisory) IsDue() bool {
	return true
} // func (a *Advisory) IsDue() bool

// Payload returns a title and a body for notifying the user.
func (a *Advisory) Payload() (string, string) {
	var body string

	if a.AlarmTime.IsZero() {
		body = fmt.Sprintf("No alarm is set for tomorrow, but %q begins at %s.",
			a.Appointment.Title,
			a.Appointment.Begin.Format(common.TimestampFormatMinute))
	} else {
		body = fmt.Sprintf("Your alarm at %s may be too late for %q at %s.",
			a.AlarmTime.Format(common.TimestampFormatTime),
			a.Appointment.Title,
			a.Appointment.Begin.Format(common.TimestampFormatMinute))
	}

	return "Early appointment tomorrow", body
} // func (a *Advisory) Payload() (string, string)
