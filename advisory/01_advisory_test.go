// /home/krylon/go/src/github.com/blicero/wecker/advisory/01_advisory_test.go
// -*- mode: go; coding: utf-8; -*-
// Created on 02. 04. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-12 22:19:33 krylon>

package advisory

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/blicero/wecker/common"
	"github.com/blicero/wecker/objects"
	"github.com/blicero/wecker/objects/disposition"
)

type fakeResolver struct {
	days map[string]*objects.ResolvedDay
}

func (f *fakeResolver) ResolveForDate(date time.Time) (*objects.ResolvedDay, error) {
	if day, ok := f.days[date.Format(common.TimestampFormatDate)]; ok {
		return day, nil
	}

	return &objects.ResolvedDay{Date: date}, nil
} // func (f *fakeResolver) ResolveForDate(date time.Time) (*objects.ResolvedDay, error)

type fakeCalendar struct {
	events []objects.Appointment
}

func (f *fakeCalendar) EarliestEvent(from, to time.Time) (*objects.Appointment, error) {
	var hit *objects.Appointment

	for i, app := range f.events {
		if app.AllDay || app.Begin.Before(from) || !app.Begin.Before(to) {
			continue
		} else if hit == nil || app.Begin.Before(hit.Begin) {
			hit = &f.events[i]
		}
	}

	return hit, nil
} // func (f *fakeCalendar) EarliestEvent(from, to time.Time) (*objects.Appointment, error)

type fakeStore struct {
	lastBegin  time.Time
	lastAction string
	overrides  map[string]*objects.DateOverride
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		overrides: make(map[string]*objects.DateOverride),
	}
} // func newFakeStore() *fakeStore

func (s *fakeStore) AdvisoryGetLast() (time.Time, string, error) {
	return s.lastBegin, s.lastAction, nil
} // func (s *fakeStore) AdvisoryGetLast() (time.Time, string, error)

func (s *fakeStore) AdvisorySetLast(begin time.Time, action string) error {
	s.lastBegin = begin
	s.lastAction = action
	return nil
} // func (s *fakeStore) AdvisorySetLast(begin time.Time, action string) error

func (s *fakeStore) OverrideGetByDate(date time.Time) (*objects.DateOverride, error) {
	return s.overrides[date.Format(common.TimestampFormatDate)], nil
} // func (s *fakeStore) OverrideGetByDate(date time.Time) (*objects.DateOverride, error)

func (s *fakeStore) OverrideAdd(o *objects.DateOverride) error {
	s.overrides[o.DateKey()] = o
	return nil
} // func (s *fakeStore) OverrideAdd(o *objects.DateOverride) error

func (s *fakeStore) OverrideUpdate(o *objects.DateOverride) error {
	s.overrides[o.DateKey()] = o
	return nil
} // func (s *fakeStore) OverrideUpdate(o *objects.DateOverride) error

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time {
	return c.now
} // func (c *manualClock) Now() time.Time

var (
	// 2023-07-17 is a Monday.
	monday   = time.Date(2023, 7, 17, 0, 0, 0, 0, time.UTC)
	tuesday  = monday.AddDate(0, 0, 1)
	tueAlarm = &objects.ResolvedDay{
		Date:    tuesday,
		Enabled: true,
		Hour:    7,
	}
)

func TestMain(m *testing.M) {
	var baseDir = time.Now().Format("/tmp/wecker_advisory_test_20060102_150405")

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

func makeAdvisor(t *testing.T, res *fakeResolver, cal *fakeCalendar, store *fakeStore, clock *manualClock) *Advisor {
	var a, err = New(res, cal, store, clock)

	if err != nil {
		t.Fatalf("Cannot create Advisor: %s",
			err.Error())
	}

	return a
} // func makeAdvisor(t *testing.T, ...) *Advisor

func TestQuietWithoutAppointments(t *testing.T) {
	var (
		res = &fakeResolver{
			days: map[string]*objects.ResolvedDay{
				tuesday.Format(common.TimestampFormatDate): tueAlarm,
			},
		}
		clock = &manualClock{now: monday.Add(time.Hour * 21)}
		a     = makeAdvisor(t, res, &fakeCalendar{}, newFakeStore(), clock)
	)

	var adv, err = a.Check()

	if err != nil {
		t.Fatalf("Check failed: %s",
			err.Error())
	} else if adv != nil {
		t.Errorf("No appointment, no advisory; got %+v",
			adv)
	}
} // func TestQuietWithoutAppointments(t *testing.T)

func TestAlarmTooLate(t *testing.T) {
	var (
		res = &fakeResolver{
			days: map[string]*objects.ResolvedDay{
				tuesday.Format(common.TimestampFormatDate): tueAlarm,
			},
		}
		cal = &fakeCalendar{
			events: []objects.Appointment{
				{
					UID:   "dentist",
					Title: "Zahnarzt",
					Begin: tuesday.Add(time.Hour*7 + time.Minute*30),
				},
			},
		}
		store = newFakeStore()
		clock = &manualClock{now: monday.Add(time.Hour * 21)}
		a     = makeAdvisor(t, res, cal, store, clock)
	)

	// Alarm 07:00, appointment 07:30, gap 60m: attention needed.
	var adv, err = a.Check()

	if err != nil {
		t.Fatalf("Check failed: %s",
			err.Error())
	} else if adv == nil {
		t.Fatal("Expected an advisory")
	} else if !adv.AttentionNeeded {
		t.Fatal("Expected AttentionNeeded")
	} else if !adv.TargetTime.Equal(tuesday.Add(time.Hour*6 + time.Minute*30)) {
		t.Errorf("Expected target time 06:30, got %s",
			adv.TargetTime.Format(common.TimestampFormat))
	} else if store.lastAction != ActionRaised {
		t.Errorf("Expected bookkeeping %q, got %q",
			ActionRaised,
			store.lastAction)
	}

	// The same appointment must not be raised a second time.
	if adv, err = a.Check(); err != nil {
		t.Fatalf("Check failed: %s",
			err.Error())
	} else if adv != nil {
		t.Errorf("Advisory for an already handled appointment must stay quiet, got %+v",
			adv)
	}

	// An earlier-starting appointment renews the advisory.
	cal.events = append(cal.events, objects.Appointment{
		UID:   "flight",
		Title: "Flug nach Oslo",
		Begin: tuesday.Add(time.Hour * 6),
	})

	if adv, err = a.Check(); err != nil {
		t.Fatalf("Check failed: %s",
			err.Error())
	} else if adv == nil {
		t.Fatal("An earlier appointment should renew the advisory")
	} else if adv.Appointment.UID != "flight" {
		t.Errorf("Expected the flight to trigger, got %s",
			adv.Appointment.UID)
	}
} // func TestAlarmTooLate(t *testing.T)

func TestNoAlarmResolved(t *testing.T) {
	var (
		res = &fakeResolver{days: map[string]*objects.ResolvedDay{}}
		cal = &fakeCalendar{
			events: []objects.Appointment{
				{
					UID:   "meeting",
					Title: "Meeting",
					Begin: tuesday.Add(time.Hour * 10),
				},
			},
		}
		clock = &manualClock{now: monday.Add(time.Hour * 21)}
		a     = makeAdvisor(t, res, cal, newFakeStore(), clock)
	)

	var adv, err = a.Check()

	if err != nil {
		t.Fatalf("Check failed: %s",
			err.Error())
	} else if adv == nil || !adv.AttentionNeeded {
		t.Error("A morning appointment with no alarm at all needs attention")
	} else if !adv.AlarmTime.IsZero() {
		t.Errorf("Expected no alarm time, got %s",
			adv.AlarmTime.Format(common.TimestampFormat))
	}
} // func TestNoAlarmResolved(t *testing.T)

func TestAlarmEarlyEnough(t *testing.T) {
	var (
		res = &fakeResolver{
			days: map[string]*objects.ResolvedDay{
				tuesday.Format(common.TimestampFormatDate): tueAlarm,
			},
		}
		cal = &fakeCalendar{
			events: []objects.Appointment{
				{
					UID:   "brunch",
					Title: "Brunch",
					Begin: tuesday.Add(time.Hour * 9),
				},
			},
		}
		clock = &manualClock{now: monday.Add(time.Hour * 21)}
		a     = makeAdvisor(t, res, cal, newFakeStore(), clock)
	)

	// Alarm 07:00, appointment 09:00, gap 60m: fine.
	var adv, err = a.Check()

	if err != nil {
		t.Fatalf("Check failed: %s",
			err.Error())
	} else if adv != nil {
		t.Errorf("The alarm leaves enough room, no advisory expected; got %+v",
			adv)
	}
} // func TestAlarmEarlyEnough(t *testing.T)

func TestAccept(t *testing.T) {
	var (
		res = &fakeResolver{
			days: map[string]*objects.ResolvedDay{
				tuesday.Format(common.TimestampFormatDate): tueAlarm,
			},
		}
		cal = &fakeCalendar{
			events: []objects.Appointment{
				{
					UID:   "dentist",
					Title: "Zahnarzt",
					Begin: tuesday.Add(time.Hour*7 + time.Minute*30),
				},
			},
		}
		store = newFakeStore()
		clock = &manualClock{now: monday.Add(time.Hour * 21)}
		a     = makeAdvisor(t, res, cal, store, clock)
	)

	var adv, err = a.Check()

	if err != nil {
		t.Fatalf("Check failed: %s",
			err.Error())
	} else if adv == nil {
		t.Fatal("Expected an advisory")
	} else if err = a.Accept(adv); err != nil {
		t.Fatalf("Accept failed: %s",
			err.Error())
	}

	var o = store.overrides[tuesday.Format(common.TimestampFormatDate)]

	if o == nil {
		t.Fatal("Accept should have written a DateOverride for tomorrow")
	} else if o.Disposition != disposition.Enabled {
		t.Errorf("Expected an Enabled override, got %s",
			o.Disposition)
	} else if o.Hour != 6 || o.Minute != 30 {
		t.Errorf("Expected the override at 06:30, got %02d:%02d",
			o.Hour,
			o.Minute)
	} else if store.lastAction != ActionAccepted {
		t.Errorf("Expected bookkeeping %q, got %q",
			ActionAccepted,
			store.lastAction)
	}
} // func TestAccept(t *testing.T)
