// /home/krylon/go/src/github.com/blicero/wecker/advisory/advisory.go
// -*- mode: go; coding: utf-8; -*-
// Created on 02. 04. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-12 21:48:10 krylon>

// Package advisory compares tomorrow's resolved alarm against the
// earliest morning appointment from the external calendar and decides
// whether the user should be told their alarm may be too late.
package advisory

import (
	"log"
	"time"

	"github.com/blicero/wecker/common"
	"github.com/blicero/wecker/logdomain"
	"github.com/blicero/wecker/objects"
	"github.com/blicero/wecker/objects/disposition"
	"github.com/blicero/wecker/scheduler"
)

// Bookkeeping values for the last advisory decision.
const (
	ActionRaised   = "raised"
	ActionAccepted = "accepted"
	ActionDeclined = "declined"
)

// morningHours bounds the appointment lookup: only events beginning
// before noon can make an alarm too late.
const morningHours = 12

// Resolver is the slice of the alarm resolver the Advisor needs.
type Resolver interface {
	ResolveForDate(date time.Time) (*objects.ResolvedDay, error)
}

// Calendar is the external appointment calendar.
type Calendar interface {
	EarliestEvent(from, to time.Time) (*objects.Appointment, error)
}

// Store persists advisory bookkeeping and quick-set overrides.
// Satisfied by database.Database.
type Store interface {
	AdvisoryGetLast() (time.Time, string, error)
	AdvisorySetLast(begin time.Time, action string) error
	OverrideGetByDate(date time.Time) (*objects.DateOverride, error)
	OverrideAdd(o *objects.DateOverride) error
	OverrideUpdate(o *objects.DateOverride) error
}

// Advisor evaluates the appointment advisory.
type Advisor struct {
	log   *log.Logger
	res   Resolver
	cal   Calendar
	store Store
	clock scheduler.Clock
	gap   time.Duration
}

// New creates an Advisor.
func New(res Resolver, cal Calendar, store Store, clock scheduler.Clock) (*Advisor, error) {
	var (
		err error
		a   = &Advisor{
			res:   res,
			cal:   cal,
			store: store,
			clock: clock,
			gap:   common.DefaultAdvisoryGap,
		}
	)

	if a.log, err = common.GetLogger(logdomain.Advisory); err != nil {
		return nil, err
	}

	return a, nil
} // func New(res Resolver, cal Calendar, store Store, clock scheduler.Clock) (*Advisor, error)

// SetGap adjusts the minimum interval the user wants between waking
// up and their first appointment.
func (a *Advisor) SetGap(gap time.Duration) {
	a.gap = gap
} // func (a *Advisor) SetGap(gap time.Duration)

// Evaluate compares the resolved alarm for the given date against the
// earliest timed appointment that morning. It is pure bookkeeping-wise,
// the reconciliation rule lives in Check.
func (a *Advisor) Evaluate(date time.Time) (*objects.Advisory, error) {
	var (
		err  error
		day  *objects.ResolvedDay
		app  *objects.Appointment
		from = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	)

	if day, err = a.res.ResolveForDate(date); err != nil {
		a.log.Printf("[ERROR] Cannot resolve %s: %s\n",
			date.Format(common.TimestampFormatDate),
			err.Error())
		return nil, err
	} else if app, err = a.cal.EarliestEvent(from, from.Add(time.Hour*morningHours)); err != nil {
		a.log.Printf("[ERROR] Cannot query calendar for %s: %s\n",
			date.Format(common.TimestampFormatDate),
			err.Error())
		return nil, err
	}

	var adv = &objects.Advisory{
		Appointment: app,
		CreatedAt:   a.clock.Now(),
	}

	if day.Enabled {
		adv.AlarmTime = day.Time()
	}

	if app == nil {
		return adv, nil
	}

	adv.TargetTime = app.Begin.Add(-a.gap)
	adv.AttentionNeeded = !day.Enabled || adv.AlarmTime.After(adv.TargetTime)

	return adv, nil
} // func (a *Advisor) Evaluate(date time.Time) (*objects.Advisory, error)

// Check evaluates tomorrow and applies the reconciliation rule: an
// advisory already shown is renewed only when an earlier-starting
// appointment appears or the one that triggered it is gone; otherwise
// it stays untouched so the user is not flooded with notifications.
// It returns the Advisory to show, or nil.
func (a *Advisor) Check() (*objects.Advisory, error) {
	var (
		err      error
		adv      *objects.Advisory
		tomorrow = a.clock.Now().AddDate(0, 0, 1)
	)

	if adv, err = a.Evaluate(tomorrow); err != nil {
		return nil, err
	} else if adv == nil || !adv.AttentionNeeded {
		return nil, nil
	}

	var lastBegin time.Time

	if lastBegin, _, err = a.store.AdvisoryGetLast(); err != nil {
		return nil, err
	} else if !lastBegin.IsZero() && adv.Appointment.Begin.Equal(lastBegin) {
		a.log.Printf("[DEBUG] Advisory for appointment at %s was already handled\n",
			lastBegin.Format(common.TimestampFormat))
		return nil, nil
	}

	if err = a.store.AdvisorySetLast(adv.Appointment.Begin, ActionRaised); err != nil {
		a.log.Printf("[ERROR] Cannot record advisory bookkeeping: %s\n",
			err.Error())
		return nil, err
	}

	a.log.Printf("[INFO] Raise advisory: alarm %s vs appointment %s\n",
		adv.AlarmTime.Format(common.TimestampFormat),
		adv.Appointment.Begin.Format(common.TimestampFormat))

	return adv, nil
} // func (a *Advisor) Check() (*objects.Advisory, error)

// Accept performs the quick-set: it writes a DateOverride for the
// advisory's date so the alarm rings at TargetTime.
func (a *Advisor) Accept(adv *objects.Advisory) error {
	var (
		err    error
		o      *objects.DateOverride
		target = adv.TargetTime
	)

	if o, err = a.store.OverrideGetByDate(target); err != nil {
		return err
	} else if o == nil {
		o = &objects.DateOverride{
			Date:        target,
			Disposition: disposition.Enabled,
			Hour:        target.Hour(),
			Minute:      target.Minute(),
		}
		err = a.store.OverrideAdd(o)
	} else {
		o.Disposition = disposition.Enabled
		o.Hour = target.Hour()
		o.Minute = target.Minute()
		err = a.store.OverrideUpdate(o)
	}

	if err != nil {
		a.log.Printf("[ERROR] Cannot quick-set override for %s: %s\n",
			target.Format(common.TimestampFormat),
			err.Error())
		return err
	}

	a.log.Printf("[INFO] Quick-set alarm for %s at %02d:%02d\n",
		target.Format(common.TimestampFormatDate),
		o.Hour,
		o.Minute)

	return a.store.AdvisorySetLast(adv.Appointment.Begin, ActionAccepted)
} // func (a *Advisor) Accept(adv *objects.Advisory) error

// Decline records that the user saw the advisory and chose to leave
// their alarm alone.
func (a *Advisor) Decline(adv *objects.Advisory) error {
	return a.store.AdvisorySetLast(adv.Appointment.Begin, ActionDeclined)
} // func (a *Advisor) Decline(adv *objects.Advisory) error
