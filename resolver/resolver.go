// /home/krylon/go/src/github.com/blicero/wecker/resolver/resolver.go
// -*- mode: go; coding: utf-8; -*-
// Created on 12. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-09 19:28:33 krylon>

// Package resolver computes, from the layered alarm definitions and
// the holiday calendar, the single earliest future occurrence at
// which the alarm must ring. It has no side effects and is safe to
// invoke arbitrarily often; all decisions about timers and state are
// made elsewhere.
package resolver

import (
	"log"
	"time"

	"github.com/blicero/wecker/common"
	"github.com/blicero/wecker/logdomain"
	"github.com/blicero/wecker/objects"
	"github.com/blicero/wecker/objects/disposition"
)

// Store is the slice of the database the Resolver reads.
type Store interface {
	OverrideGetByDate(date time.Time) (*objects.DateOverride, error)
	DefaultGetByDay(day int) (*objects.WeekdayDefault, error)
	OnetimeGetPending(ref time.Time) ([]objects.OneTimeAlarm, error)
}

// HolidayProvider answers whether a date is a holiday.
type HolidayProvider interface {
	IsHoliday(date time.Time) bool
	Label(date time.Time) string
}

// Resolver applies the override/default/holiday precedence.
type Resolver struct {
	log      *log.Logger
	store    Store
	holidays HolidayProvider
}

// New creates a Resolver reading from the given Store and
// HolidayProvider.
func New(store Store, holidays HolidayProvider) (*Resolver, error) {
	var (
		err error
		r   = &Resolver{
			store:    store,
			holidays: holidays,
		}
	)

	if r.log, err = common.GetLogger(logdomain.Resolver); err != nil {
		return nil, err
	}

	return r, nil
} // func New(store Store, holidays HolidayProvider) (*Resolver, error)

// ResolveForDate applies the precedence rules to a single date:
// a DateOverride beats the holiday calendar beats the WeekdayDefault.
// One-time alarms are not part of this answer, they contribute their
// occurrences independently in ResolveNext.
func (r *Resolver) ResolveForDate(date time.Time) (*objects.ResolvedDay, error) {
	var (
		err error
		o   *objects.DateOverride
		day = &objects.ResolvedDay{
			Date:         time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()),
			HolidayLabel: r.holidays.Label(date),
		}
	)

	if o, err = r.store.OverrideGetByDate(date); err != nil {
		r.log.Printf("[ERROR] Cannot look up DateOverride for %s: %s\n",
			date.Format(common.TimestampFormatDate),
			err.Error())
		return nil, err
	}

	if o != nil {
		switch o.Disposition {
		case disposition.Disabled:
			day.FromOverride = true
			return day, nil
		case disposition.Enabled:
			// An explicit override rings on holidays, too.
			day.Enabled = true
			day.FromOverride = true
			day.Hour = o.Hour
			day.Minute = o.Minute
			return day, nil
		case disposition.UseDefault:
			// fall through to the default
		}
	}

	if day.HolidayLabel != "" {
		return day, nil
	}

	var w *objects.WeekdayDefault

	if w, err = r.store.DefaultGetByDay(objects.WeekdayIndex(date.Weekday())); err != nil {
		r.log.Printf("[ERROR] Cannot look up WeekdayDefault for %s: %s\n",
			date.Weekday(),
			err.Error())
		return nil, err
	}

	if w.Enabled {
		day.Enabled = true
		day.Hour = w.Hour
		day.Minute = w.Minute
	}

	return day, nil
} // func (r *Resolver) ResolveForDate(date time.Time) (*objects.ResolvedDay, error)

// ResolveNext returns the earliest occurrence at or after now, or nil
// if no recurring occurrence falls within the horizon and no one-time
// alarm is pending. Recurring lookups are bounded by horizonDays,
// one-time alarms are not, they are never pruned by distance.
//
// Among simultaneous candidates the answer is deterministic: one-time
// beats recurring, older record beats newer.
func (r *Resolver) ResolveNext(now time.Time, horizonDays int) (*objects.Occurrence, error) {
	var (
		err     error
		best    *objects.Occurrence
		pending []objects.OneTimeAlarm
	)

	if pending, err = r.store.OnetimeGetPending(now); err != nil {
		r.log.Printf("[ERROR] Cannot fetch pending one-time alarms: %s\n",
			err.Error())
		return nil, err
	}

	for idx := range pending {
		var c = &objects.Occurrence{
			Kind:      objects.OneTime,
			Timestamp: pending[idx].Timestamp,
			AlarmID:   pending[idx].ID,
			Name:      pending[idx].Name,
			Label:     r.holidays.Label(pending[idx].Timestamp.In(now.Location())),
		}

		if best == nil || c.Sooner(best) {
			best = c
		}
	}

	for i := 0; i <= horizonDays; i++ {
		var (
			date = now.AddDate(0, 0, i)
			day  *objects.ResolvedDay
		)

		if day, err = r.ResolveForDate(date); err != nil {
			return nil, err
		} else if !day.Enabled {
			continue
		}

		var stamp = day.Time()
		if stamp.Before(now) {
			// Today's occurrence has already passed.
			continue
		}

		var c = &objects.Occurrence{
			Kind:      objects.Recurring,
			Timestamp: stamp,
			Label:     day.HolidayLabel,
		}

		if best == nil || c.Sooner(best) {
			best = c
		}

		// Dates are scanned in ascending order, the first recurring
		// hit is the earliest one.
		break
	}

	return best, nil
} // func (r *Resolver) ResolveNext(now time.Time, horizonDays int) (*objects.Occurrence, error)
