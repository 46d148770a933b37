// /home/krylon/go/src/github.com/blicero/wecker/lifecycle/01_lifecycle_test.go
// -*- mode: go; coding: utf-8; -*-
// Created on 19. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-10 19:21:40 krylon>

package lifecycle

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/blicero/wecker/common"
	"github.com/blicero/wecker/database"
	"github.com/blicero/wecker/objects"
	"github.com/blicero/wecker/objects/phase"
	"github.com/blicero/wecker/scheduler/action"
)

// fakeCoord records what the Machine asks of the coordinator.
type fakeCoord struct {
	refreshed  int
	snoozedAt  time.Time
	registered struct {
		instant time.Time
		act     action.Action
		ok      bool
	}
}

func (f *fakeCoord) OnAlarmDefinitionsChanged() error {
	f.refreshed++
	return nil
} // func (f *fakeCoord) OnAlarmDefinitionsChanged() error

func (f *fakeCoord) ScheduleSnooze(instant time.Time) {
	f.snoozedAt = instant
} // func (f *fakeCoord) ScheduleSnooze(instant time.Time)

func (f *fakeCoord) Registered() (time.Time, action.Action, bool) {
	return f.registered.instant, f.registered.act, f.registered.ok
} // func (f *fakeCoord) Registered() (time.Time, action.Action, bool)

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time {
	return c.now
} // func (c *manualClock) Now() time.Time

var (
	db *database.Database
	// 2023-07-17 is a Monday.
	monday = time.Date(2023, 7, 17, 0, 0, 0, 0, time.UTC)
)

func TestMain(m *testing.M) {
	var baseDir = time.Now().Format("/tmp/wecker_lifecycle_test_20060102_150405")

	if err := common.SetBaseDir(baseDir); err != nil {
		fmt.Printf("Cannot set base directory to %s: %s\n",
			baseDir,
			err.Error())
		os.Exit(1)
	}

	var result = m.Run()

	if db != nil {
		db.Close() // nolint: errcheck
	}

	os.RemoveAll(baseDir) // nolint: errcheck
	os.Exit(result)
} // func TestMain(m *testing.M)

func makeMachine(t *testing.T, coord *fakeCoord, clock *manualClock) *Machine {
	var err error

	if db == nil {
		if db, err = database.Open(common.DbPath); err != nil {
			t.Fatalf("Cannot open database at %s: %s",
				common.DbPath,
				err.Error())
		}
	}

	var m *Machine

	if m, err = New(db, coord, clock); err != nil {
		t.Fatalf("Cannot create Machine: %s",
			err.Error())
	}

	return m
} // func makeMachine(t *testing.T, coord *fakeCoord, clock *manualClock) *Machine

func expectPhase(t *testing.T, m *Machine, p phase.Phase, instant time.Time) {
	t.Helper()

	var got, stamp, err = m.Phase()

	if err != nil {
		t.Fatalf("Cannot read phase: %s",
			err.Error())
	} else if got != p {
		t.Fatalf("Expected phase %s, got %s",
			p,
			got)
	} else if !instant.IsZero() && !stamp.Equal(instant) {
		t.Fatalf("Expected identity %s, got %s",
			instant.Format(common.TimestampFormat),
			stamp.Format(common.TimestampFormat))
	}
} // func expectPhase(t *testing.T, m *Machine, p phase.Phase, instant time.Time)

func TestRoundTrip(t *testing.T) {
	var (
		err   error
		coord = &fakeCoord{}
		clock = &manualClock{now: monday.Add(time.Hour * 5)}
		stamp = monday.Add(time.Hour * 7)
		m     = makeMachine(t, coord, clock)
		rang  bool
	)

	if err = m.EnterNearFuture(stamp); err != nil {
		t.Fatalf("EnterNearFuture failed: %s",
			err.Error())
	}

	expectPhase(t, m, phase.Future, stamp)

	clock.now = stamp

	if rang, err = m.Ring(stamp); err != nil {
		t.Fatalf("Ring failed: %s",
			err.Error())
	} else if !rang {
		t.Fatal("Ring was suppressed unexpectedly")
	}

	expectPhase(t, m, phase.Ringing, stamp)

	if err = m.Snooze(time.Minute * 10); err != nil {
		t.Fatalf("Snooze failed: %s",
			err.Error())
	}

	expectPhase(t, m, phase.Snoozed, stamp)

	var wakeup = stamp.Add(time.Minute * 10)

	if !coord.snoozedAt.Equal(wakeup) {
		t.Errorf("Snooze Ring should be scheduled for %s, got %s",
			wakeup.Format(common.TimestampFormat),
			coord.snoozedAt.Format(common.TimestampFormat))
	}

	// The wake-up instant must survive a restart, so it has to be in
	// the database, not just in the coordinator's timer.
	var persisted *objects.TrackedAlarmState

	if persisted, err = db.StateGet(); err != nil {
		t.Fatalf("Cannot read persisted state: %s",
			err.Error())
	} else if !persisted.SnoozeUntil.Equal(wakeup) {
		t.Errorf("Persisted wake-up is %s, expected %s",
			persisted.SnoozeUntil.Format(common.TimestampFormat),
			wakeup.Format(common.TimestampFormat))
	}

	// The snooze timer fires. Identity is still the original
	// occurrence, so this is a resumption, not a supersede.
	clock.now = wakeup

	if rang, err = m.Ring(stamp); err != nil {
		t.Fatalf("Ring after snooze failed: %s",
			err.Error())
	} else if !rang {
		t.Fatal("Ring after snooze was suppressed")
	}

	expectPhase(t, m, phase.Ringing, stamp)

	if persisted, err = db.StateGet(); err != nil {
		t.Fatalf("Cannot read persisted state: %s",
			err.Error())
	} else if !persisted.SnoozeUntil.IsZero() {
		t.Errorf("The wake-up instant should be cleared once the alarm rings again, got %s",
			persisted.SnoozeUntil.Format(common.TimestampFormat))
	}

	if err = m.Dismiss(); err != nil {
		t.Fatalf("Dismiss failed: %s",
			err.Error())
	}

	expectPhase(t, m, phase.Dismissed, stamp)

	if coord.refreshed == 0 {
		t.Error("Dismiss should make the coordinator re-resolve")
	}
} // func TestRoundTrip(t *testing.T)

func TestPersistenceAcrossRestart(t *testing.T) {
	if t.Failed() {
		t.SkipNow()
	}

	// A fresh Machine over the same database must see the phase the
	// previous one persisted.
	var (
		coord = &fakeCoord{}
		clock = &manualClock{now: monday.Add(time.Hour * 8)}
		m     = makeMachine(t, coord, clock)
	)

	expectPhase(t, m, phase.Dismissed, monday.Add(time.Hour*7))
} // func TestPersistenceAcrossRestart(t *testing.T)

func TestSupersede(t *testing.T) {
	if t.Failed() {
		t.SkipNow()
	}

	var (
		err   error
		coord = &fakeCoord{}
		stale = monday.AddDate(0, 0, 1).Add(time.Hour * 7)
		fresh = monday.AddDate(0, 0, 2).Add(time.Hour * 7)
		clock = &manualClock{now: stale}
		m     = makeMachine(t, coord, clock)
		rang  bool
	)

	if rang, err = m.Ring(stale); err != nil {
		t.Fatalf("Ring failed: %s",
			err.Error())
	} else if !rang {
		t.Fatal("Ring was suppressed unexpectedly")
	}

	// The process dies without a dismissal; a day later the next
	// occurrence fires.
	clock.now = fresh

	if rang, err = m.Ring(fresh); err != nil {
		t.Fatalf("Ring failed: %s",
			err.Error())
	} else if !rang {
		t.Fatal("The superseding occurrence should still ring")
	}

	expectPhase(t, m, phase.Ringing, fresh)

	var list, lerr = db.SkippedGetRecent(5)

	if lerr != nil {
		t.Fatalf("Cannot read skipped occurrences: %s",
			lerr.Error())
	} else if len(list) != 1 {
		t.Fatalf("Expected 1 skipped occurrence, got %d",
			len(list))
	} else if !list[0].AlarmTime.Equal(stale) || list[0].Phase != phase.Ringing {
		t.Errorf("Unexpected skipped record %s",
			&list[0])
	}

	if err = m.Dismiss(); err != nil {
		t.Fatalf("Dismiss failed: %s",
			err.Error())
	}
} // func TestSupersede(t *testing.T)

func TestDismissBeforeRinging(t *testing.T) {
	if t.Failed() {
		t.SkipNow()
	}

	var (
		err   error
		coord = &fakeCoord{}
		stamp = monday.AddDate(0, 0, 3).Add(time.Hour * 7)
		clock = &manualClock{now: stamp.Add(-time.Hour)}
		m     = makeMachine(t, coord, clock)
		alarm = objects.OneTimeAlarm{
			Timestamp: stamp,
			Name:      "Flug nach Oslo",
		}
	)

	if err = db.OnetimeAdd(&alarm); err != nil {
		t.Fatalf("Cannot add one-time alarm: %s",
			err.Error())
	}

	if err = m.EnterNearFuture(stamp); err != nil {
		t.Fatalf("EnterNearFuture failed: %s",
			err.Error())
	} else if err = m.DismissBeforeRinging(); err != nil {
		t.Fatalf("DismissBeforeRinging failed: %s",
			err.Error())
	}

	expectPhase(t, m, phase.DismissedBeforeRinging, stamp)

	if coord.refreshed == 0 {
		t.Error("DismissBeforeRinging should make the coordinator re-resolve")
	}

	// The one-time alarm's occurrence will never come around again, the
	// record must be spent even though it never rang.
	var fetched *objects.OneTimeAlarm

	if fetched, err = db.OnetimeGetByID(alarm.ID); err != nil {
		t.Fatalf("Cannot fetch one-time alarm %d: %s",
			alarm.ID,
			err.Error())
	} else if fetched == nil {
		t.Fatalf("One-time alarm %d has vanished",
			alarm.ID)
	} else if !fetched.Consumed {
		t.Error("A one-time alarm struck down ahead of time must be consumed")
	}

	// Should the timer fire anyway, the alarm stays quiet.
	clock.now = stamp

	var rang bool

	if rang, err = m.Ring(stamp); err != nil {
		t.Fatalf("Ring failed: %s",
			err.Error())
	} else if rang {
		t.Error("A dismissed-ahead occurrence must not ring")
	}
} // func TestDismissBeforeRinging(t *testing.T)

func TestChainedRearm(t *testing.T) {
	if t.Failed() {
		t.SkipNow()
	}

	var (
		err   error
		coord = &fakeCoord{}
		stamp = monday.AddDate(0, 0, 4).Add(time.Hour * 7)
		next  = monday.AddDate(0, 0, 4).Add(time.Hour * 8)
		clock = &manualClock{now: stamp}
		m     = makeMachine(t, coord, clock)
		rang  bool
	)

	if rang, err = m.Ring(stamp); err != nil {
		t.Fatalf("Ring failed: %s",
			err.Error())
	} else if !rang {
		t.Fatal("Ring was suppressed unexpectedly")
	}

	// By the time the user dismisses, a one-time alarm an hour later
	// is already inside its near-future window; the coordinator will
	// have registered a Ring for it.
	coord.registered.instant = next
	coord.registered.act = action.Ring
	coord.registered.ok = true

	if err = m.Dismiss(); err != nil {
		t.Fatalf("Dismiss failed: %s",
			err.Error())
	}

	expectPhase(t, m, phase.Future, next)
} // func TestChainedRearm(t *testing.T)

func TestBadTransitions(t *testing.T) {
	if t.Failed() {
		t.SkipNow()
	}

	var (
		err   error
		coord = &fakeCoord{}
		clock = &manualClock{now: monday.AddDate(0, 0, 5)}
		m     = makeMachine(t, coord, clock)
	)

	if err = m.CancelForReplacement(); err != nil {
		t.Fatalf("CancelForReplacement failed: %s",
			err.Error())
	}

	expectPhase(t, m, phase.Undefined, time.Time{})

	if err = m.Dismiss(); !errors.Is(err, ErrTransition) {
		t.Errorf("Dismiss with nothing ringing should fail, got %v",
			err)
	} else if err = m.Snooze(0); !errors.Is(err, ErrTransition) {
		t.Errorf("Snooze with nothing ringing should fail, got %v",
			err)
	} else if err = m.DismissBeforeRinging(); !errors.Is(err, ErrTransition) {
		t.Errorf("DismissBeforeRinging without a Future occurrence should fail, got %v",
			err)
	}
} // func TestBadTransitions(t *testing.T)
