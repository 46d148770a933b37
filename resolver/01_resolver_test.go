// /home/krylon/go/src/github.com/blicero/wecker/resolver/01_resolver_test.go
// -*- mode: go; coding: utf-8; -*-
// Created on 12. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-09 19:55:08 krylon>

package resolver

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/blicero/wecker/common"
	"github.com/blicero/wecker/objects"
	"github.com/blicero/wecker/objects/disposition"
)

// fakeStore keeps the alarm definitions in memory so the tests can
// set up scenarios without a database.
type fakeStore struct {
	overrides map[string]*objects.DateOverride
	defaults  [7]objects.WeekdayDefault
	onetime   []objects.OneTimeAlarm
}

func newFakeStore() *fakeStore {
	var s = &fakeStore{
		overrides: make(map[string]*objects.DateOverride),
	}

	for i := 0; i < 7; i++ {
		s.defaults[i] = objects.WeekdayDefault{Day: i, Hour: 7}
	}

	return s
} // func newFakeStore() *fakeStore

func (s *fakeStore) OverrideGetByDate(date time.Time) (*objects.DateOverride, error) {
	return s.overrides[date.Format(common.TimestampFormatDate)], nil
} // func (s *fakeStore) OverrideGetByDate(date time.Time) (*objects.DateOverride, error)

func (s *fakeStore) DefaultGetByDay(day int) (*objects.WeekdayDefault, error) {
	var w = s.defaults[day]
	return &w, nil
} // func (s *fakeStore) DefaultGetByDay(day int) (*objects.WeekdayDefault, error)

func (s *fakeStore) OnetimeGetPending(ref time.Time) ([]objects.OneTimeAlarm, error) {
	var list = make([]objects.OneTimeAlarm, 0, len(s.onetime))

	for _, a := range s.onetime {
		if a.Pending(ref) {
			list = append(list, a)
		}
	}

	return list, nil
} // func (s *fakeStore) OnetimeGetPending(ref time.Time) ([]objects.OneTimeAlarm, error)

type fakeHolidays map[string]string

func (f fakeHolidays) IsHoliday(date time.Time) bool {
	return f[date.Format(common.TimestampFormatDate)] != ""
} // func (f fakeHolidays) IsHoliday(date time.Time) bool

func (f fakeHolidays) Label(date time.Time) string {
	return f[date.Format(common.TimestampFormatDate)]
} // func (f fakeHolidays) Label(date time.Time) string

// 2023-07-17 is a Monday.
var monday = time.Date(2023, 7, 17, 0, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	var baseDir = time.Now().Format("/tmp/wecker_resolver_test_20060102_150405")

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

func TestPrecedence(t *testing.T) {
	var (
		err   error
		store = newFakeStore()
		r     *Resolver
	)

	store.defaults[0].Enabled = true // Monday, 07:00

	if r, err = New(store, fakeHolidays{}); err != nil {
		t.Fatalf("Cannot create Resolver: %s",
			err.Error())
	}

	type testCase struct {
		name       string
		override   *objects.DateOverride
		expectOn   bool
		expectHour int
		expectMin  int
	}

	var cases = []testCase{
		{
			name:       "NoOverride",
			expectOn:   true,
			expectHour: 7,
		},
		{
			name: "UseDefault",
			override: &objects.DateOverride{
				Date:        monday,
				Disposition: disposition.UseDefault,
				Hour:        13, // must be ignored
			},
			expectOn:   true,
			expectHour: 7,
		},
		{
			name: "Disabled",
			override: &objects.DateOverride{
				Date:        monday,
				Disposition: disposition.Disabled,
			},
			expectOn: false,
		},
		{
			name: "Enabled",
			override: &objects.DateOverride{
				Date:        monday,
				Disposition: disposition.Enabled,
				Hour:        6,
				Minute:      0,
			},
			expectOn:   true,
			expectHour: 6,
		},
	}

	for _, c := range cases {
		delete(store.overrides, monday.Format(common.TimestampFormatDate))
		if c.override != nil {
			store.overrides[c.override.DateKey()] = c.override
		}

		var day *objects.ResolvedDay

		if day, err = r.ResolveForDate(monday); err != nil {
			t.Fatalf("%s: ResolveForDate failed: %s",
				c.name,
				err.Error())
		} else if day.Enabled != c.expectOn {
			t.Errorf("%s: expected Enabled == %t, got %s",
				c.name,
				c.expectOn,
				day)
		} else if day.Enabled && (day.Hour != c.expectHour || day.Minute != c.expectMin) {
			t.Errorf("%s: expected %02d:%02d, got %s",
				c.name,
				c.expectHour,
				c.expectMin,
				day)
		}
	}
} // func TestPrecedence(t *testing.T)

func TestHolidaySuppression(t *testing.T) {
	var (
		err      error
		store    = newFakeStore()
		holidays = fakeHolidays{
			"2023-07-17": "Tag des Testens",
		}
		r *Resolver
	)

	store.defaults[0].Enabled = true

	if r, err = New(store, holidays); err != nil {
		t.Fatalf("Cannot create Resolver: %s",
			err.Error())
	}

	var day *objects.ResolvedDay

	if day, err = r.ResolveForDate(monday); err != nil {
		t.Fatalf("ResolveForDate failed: %s",
			err.Error())
	} else if day.Enabled {
		t.Errorf("A holiday should suppress the weekday default, got %s",
			day)
	} else if day.HolidayLabel != "Tag des Testens" {
		t.Errorf("Unexpected holiday label %q",
			day.HolidayLabel)
	}

	// ... but an explicit override rings regardless.
	var o = &objects.DateOverride{
		Date:        monday,
		Disposition: disposition.Enabled,
		Hour:        9,
	}
	store.overrides[o.DateKey()] = o

	if day, err = r.ResolveForDate(monday); err != nil {
		t.Fatalf("ResolveForDate failed: %s",
			err.Error())
	} else if !day.Enabled || day.Hour != 9 {
		t.Errorf("An Enabled override should beat the holiday, got %s",
			day)
	}
} // func TestHolidaySuppression(t *testing.T)

func TestOneTimeIndependence(t *testing.T) {
	var (
		err   error
		store = newFakeStore()
		now   = monday // midnight
		r     *Resolver
	)

	store.defaults[0].Enabled = true // Monday 07:00
	store.onetime = []objects.OneTimeAlarm{
		{
			ID:        1,
			Timestamp: monday.Add(time.Hour * 5),
			Name:      "Flight",
		},
	}

	if r, err = New(store, fakeHolidays{}); err != nil {
		t.Fatalf("Cannot create Resolver: %s",
			err.Error())
	}

	var next *objects.Occurrence

	if next, err = r.ResolveNext(now, 30); err != nil {
		t.Fatalf("ResolveNext failed: %s",
			err.Error())
	} else if next == nil {
		t.Fatal("ResolveNext returned no Occurrence")
	} else if next.Kind != objects.OneTime || !next.Timestamp.Equal(monday.Add(time.Hour*5)) {
		t.Errorf("Expected the one-time alarm at 05:00, got %s",
			next)
	}

	// Consuming the one-time alarm must not affect the recurring
	// occurrence on the same date.
	store.onetime[0].Consumed = true

	if next, err = r.ResolveNext(now, 30); err != nil {
		t.Fatalf("ResolveNext failed: %s",
			err.Error())
	} else if next == nil {
		t.Fatal("ResolveNext returned no Occurrence")
	} else if next.Kind != objects.Recurring || !next.Timestamp.Equal(monday.Add(time.Hour*7)) {
		t.Errorf("Expected the recurring occurrence at 07:00, got %s",
			next)
	}
} // func TestOneTimeIndependence(t *testing.T)

func TestTieBreak(t *testing.T) {
	var (
		err   error
		store = newFakeStore()
		stamp = monday.Add(time.Hour * 7)
		r     *Resolver
	)

	store.defaults[0].Enabled = true // Monday 07:00
	store.onetime = []objects.OneTimeAlarm{
		{ID: 7, Timestamp: stamp, Name: "Second"},
		{ID: 3, Timestamp: stamp, Name: "First"},
	}

	if r, err = New(store, fakeHolidays{}); err != nil {
		t.Fatalf("Cannot create Resolver: %s",
			err.Error())
	}

	var next *objects.Occurrence

	if next, err = r.ResolveNext(monday, 30); err != nil {
		t.Fatalf("ResolveNext failed: %s",
			err.Error())
	} else if next == nil {
		t.Fatal("ResolveNext returned no Occurrence")
	} else if next.Kind != objects.OneTime || next.AlarmID != 3 {
		t.Errorf("Tie-break should pick the one-time alarm with the lowest ID, got %s",
			next)
	}
} // func TestTieBreak(t *testing.T)

func TestPastOccurrenceSkipped(t *testing.T) {
	var (
		err   error
		store = newFakeStore()
		now   = monday.Add(time.Hour * 8) // Monday, 08:00, past the alarm
		r     *Resolver
	)

	store.defaults[0].Enabled = true // Monday 07:00, all other days off

	if r, err = New(store, fakeHolidays{}); err != nil {
		t.Fatalf("Cannot create Resolver: %s",
			err.Error())
	}

	var next *objects.Occurrence

	if next, err = r.ResolveNext(now, 30); err != nil {
		t.Fatalf("ResolveNext failed: %s",
			err.Error())
	} else if next == nil {
		t.Fatal("ResolveNext returned no Occurrence")
	}

	var expected = monday.AddDate(0, 0, 7).Add(time.Hour * 7)

	if !next.Timestamp.Equal(expected) {
		t.Errorf("Expected next Monday at 07:00 (%s), got %s",
			expected.Format(common.TimestampFormat),
			next)
	}
} // func TestPastOccurrenceSkipped(t *testing.T)

func TestNothingResolvable(t *testing.T) {
	var (
		err   error
		store = newFakeStore() // everything disabled
		r     *Resolver
	)

	if r, err = New(store, fakeHolidays{}); err != nil {
		t.Fatalf("Cannot create Resolver: %s",
			err.Error())
	}

	var next *objects.Occurrence

	if next, err = r.ResolveNext(monday, 30); err != nil {
		t.Fatalf("ResolveNext failed: %s",
			err.Error())
	} else if next != nil {
		t.Errorf("Nothing should resolve, got %s",
			next)
	}
} // func TestNothingResolvable(t *testing.T)

func TestDeterminism(t *testing.T) {
	var (
		err   error
		store = newFakeStore()
		r     *Resolver
	)

	store.defaults[2].Enabled = true // Wednesday
	store.onetime = []objects.OneTimeAlarm{
		{ID: 1, Timestamp: monday.Add(time.Hour * 50)},
	}

	if r, err = New(store, fakeHolidays{}); err != nil {
		t.Fatalf("Cannot create Resolver: %s",
			err.Error())
	}

	var first *objects.Occurrence

	if first, err = r.ResolveNext(monday, 30); err != nil {
		t.Fatalf("ResolveNext failed: %s",
			err.Error())
	} else if first == nil {
		t.Fatal("ResolveNext returned no Occurrence")
	}

	for i := 0; i < 16; i++ {
		var again *objects.Occurrence

		if again, err = r.ResolveNext(monday, 30); err != nil {
			t.Fatalf("ResolveNext failed on repeat call: %s",
				err.Error())
		} else if again == nil || !again.Timestamp.Equal(first.Timestamp) ||
			again.Kind != first.Kind || again.AlarmID != first.AlarmID {
			t.Fatalf("ResolveNext is not deterministic: %s vs %s",
				first,
				again)
		}
	}
} // func TestDeterminism(t *testing.T)
