// /home/krylon/go/src/github.com/blicero/wecker/objects/occurrence.go
// -*- mode: go; coding: utf-8; -*-
// Created on 05. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-02 19:40:18 krylon>

package objects

import (
	"fmt"
	"time"

	"github.com/blicero/wecker/common"
)

//go:generate ffjson occurrence.go

// Kind tags the two flavors of Occurrence. The union is closed on
// purpose, the Resolver switches over it exhaustively.
type Kind uint8

// Recurring occurrences come out of the WeekdayDefault/DateOverride
// machinery, OneTime occurrences out of OneTimeAlarm records.
const (
	Recurring Kind = iota
	OneTime
)

func (k Kind) String() string {
	switch k {
	case Recurring:
		return "Recurring"
	case OneTime:
		return "OneTime"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
} // func (k Kind) String() string

// Occurrence is a concrete instant at which an alarm is due to ring,
// the output of the Resolver.
type Occurrence struct {
	Kind      Kind
	Timestamp time.Time
	AlarmID   int64 // ID of the backing OneTimeAlarm; 0 for Recurring
	Name      string
	Label     string // holiday label, if the date happens to be one
}

// Due returns the instant the Occurrence is due.
func (o *Occurrence) Due() time.Time {
	return o.Timestamp
} // func (o *Occurrence) Due() time.Time

// IsDue returns true if the Occurrence's instant has passed.
func (o *Occurrence) IsDue() bool {
	return o.Timestamp.Before(time.Now())
} // func (o *Occurrence) IsDue() bool

// Payload returns a title and a body for notifying the user.
func (o *Occurrence) Payload() (string, string) {
	var title = "Alarm"
	if o.Name != "" {
		title = o.Name
	}

	return title, fmt.Sprintf("Alarm at %s",
		o.Timestamp.Format(common.TimestampFormatMinute))
} // func (o *Occurrence) Payload() (string, string)

// Sooner returns true if the receiver takes precedence over the
// argument as the next occurrence. Ordering is by instant; among
// simultaneous occurrences one-time alarms win over recurring ones,
// and among those, lower IDs (i.e. older records) win. This makes the
// answer to "what rings next" deterministic.
func (o *Occurrence) Sooner(other *Occurrence) bool {
	if other == nil {
		return true
	} else if !o.Timestamp.Equal(other.Timestamp) {
		return o.Timestamp.Before(other.Timestamp)
	} else if o.Kind != other.Kind {
		return o.Kind == OneTime
	}

	return o.AlarmID < other.AlarmID
} // func (o *Occurrence) Sooner(other *Occurrence) bool

func (o *Occurrence) String() string {
	if o == nil {
		return "(None)"
	}

	return fmt.Sprintf("Occurrence{ %s at %s, AlarmID: %d, Name: %q }",
		o.Kind,
		o.Timestamp.Format(common.TimestampFormat),
		o.AlarmID,
		o.Name)
} // func (o *Occurrence) String() string

// ResolvedDay is the outcome of applying the override/default/holiday
// precedence to a single date: whether a recurring alarm goes off on
// that date at all, and if so, when.
type ResolvedDay struct {
	Date         time.Time
	Enabled      bool
	Hour         int
	Minute       int
	FromOverride bool
	HolidayLabel string
}

// Time returns the concrete alarm timestamp on the resolved date.
// Meaningful only if Enabled is true.
func (r *ResolvedDay) Time() time.Time {
	return time.Date(
		r.Date.Year(), r.Date.Month(), r.Date.Day(),
		r.Hour, r.Minute, 0, 0,
		r.Date.Location())
} // func (r *ResolvedDay) Time() time.Time

func (r *ResolvedDay) String() string {
	if !r.Enabled {
		return fmt.Sprintf("ResolvedDay{ %s: off }",
			r.Date.Format(common.TimestampFormatDate))
	}

	return fmt.Sprintf("ResolvedDay{ %s at %02d:%02d }",
		r.Date.Format(common.TimestampFormatDate),
		r.Hour,
		r.Minute)
} // func (r *ResolvedDay) String() string
