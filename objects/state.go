// /home/krylon/go/src/github.com/blicero/wecker/objects/state.go
// -*- mode: go; coding: utf-8; -*-
// Created on 05. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-08 16:02:49 krylon>

package objects

import (
	"fmt"
	"time"

	"github.com/blicero/wecker/common"
	"github.com/blicero/wecker/objects/phase"
)

//go:generate ffjson state.go

// TrackedAlarmState is the persisted singleton describing the
// disposition of the alarm occurrence currently being tracked.
// The Phase is only meaningful in combination with the instant it was
// stamped with; compared against any other instant it counts as
// Undefined.
// SnoozeUntil is the wake-up instant while the phase is Snoozed and
// zero otherwise. It is persisted because the in-process snooze timer
// does not survive a restart; the wake-up is re-derived from it.
type TrackedAlarmState struct {
	Phase       phase.Phase
	AlarmTime   time.Time
	SnoozeUntil time.Time
	Changed     time.Time
}

// PhaseFor returns the phase relative to the given occurrence
// instant. A stale identity - a persisted phase stamped with some
// other instant - reads as Undefined.
func (s *TrackedAlarmState) PhaseFor(instant time.Time) phase.Phase {
	if s == nil || !s.AlarmTime.Equal(instant) {
		return phase.Undefined
	}

	return s.Phase
} // func (s *TrackedAlarmState) PhaseFor(instant time.Time) phase.Phase

// Active returns true if the tracked occurrence is currently ringing
// or snoozed.
func (s *TrackedAlarmState) Active() bool {
	return s != nil && s.Phase.Active()
} // func (s *TrackedAlarmState) Active() bool

func (s *TrackedAlarmState) String() string {
	if s == nil {
		return "TrackedAlarmState{ (nil) }"
	}

	return fmt.Sprintf("TrackedAlarmState{ Phase: %s, AlarmTime: %s }",
		s.Phase,
		s.AlarmTime.Format(common.TimestampFormat))
} // func (s *TrackedAlarmState) String() string

// SkippedAlarm records an occurrence that was still ringing or
// snoozed when a newer occurrence superseded it, e.g. after an
// unclean shutdown. Kept for reporting, the engine never reads these
// back for its own decisions.
type SkippedAlarm struct {
	ID        int64
	AlarmTime time.Time
	Phase     phase.Phase
	Noted     time.Time
}

func (s *SkippedAlarm) String() string {
	return fmt.Sprintf("SkippedAlarm{ AlarmTime: %s, Phase: %s, Noted: %s }",
		s.AlarmTime.Format(common.TimestampFormat),
		s.Phase,
		s.Noted.Format(common.TimestampFormat))
} // func (s *SkippedAlarm) String() string
