// /home/krylon/go/src/github.com/blicero/wecker/scheduler/scheduler.go
// -*- mode: go; coding: utf-8; -*-
// Created on 12. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-09 20:12:55 krylon>

// Package scheduler keeps the single outstanding timer registration
// in sync with what the Resolver says should happen next. All
// registrations are routed through one set operation that atomically
// replaces the prior one, so there can never be two conflicting
// timers.
package scheduler

import (
	"log"
	"sync"
	"time"

	"github.com/blicero/wecker/common"
	"github.com/blicero/wecker/logdomain"
	"github.com/blicero/wecker/objects"
	"github.com/blicero/wecker/objects/phase"
	"github.com/blicero/wecker/scheduler/action"
)

// NextSource produces the next occurrence to wake up for.
type NextSource interface {
	ResolveNext(now time.Time, horizonDays int) (*objects.Occurrence, error)
}

// StateSource reads the persisted TrackedAlarmState.
type StateSource interface {
	StateGet() (*objects.TrackedAlarmState, error)
}

// registration is what we remember about the timer currently
// registered: just enough to cancel or compare it.
type registration struct {
	instant time.Time
	act     action.Action
}

// Coordinator owns the outstanding timer registration.
type Coordinator struct {
	log         *log.Logger
	lock        sync.Mutex
	timers      TimerService
	clock       Clock
	next        NextSource
	state       StateSource
	current     *registration
	leadTime    time.Duration
	horizonDays int
}

// New creates a Coordinator.
func New(timers TimerService, clock Clock, next NextSource, state StateSource) (*Coordinator, error) {
	var (
		err error
		c   = &Coordinator{
			timers:      timers,
			clock:       clock,
			next:        next,
			state:       state,
			leadTime:    common.DefaultLeadTime,
			horizonDays: common.DefaultHorizonDays,
		}
	)

	if c.log, err = common.GetLogger(logdomain.Scheduler); err != nil {
		return nil, err
	}

	return c, nil
} // func New(timers TimerService, clock Clock, next NextSource, state StateSource) (*Coordinator, error)

// Tune adjusts the near-future lead time and the horizon.
func (c *Coordinator) Tune(leadTime time.Duration, horizonDays int) {
	c.lock.Lock()
	c.leadTime = leadTime
	c.horizonDays = horizonDays
	c.lock.Unlock()
} // func (c *Coordinator) Tune(leadTime time.Duration, horizonDays int)

// OnAlarmDefinitionsChanged is invoked after any definition was
// created, edited or deleted.
func (c *Coordinator) OnAlarmDefinitionsChanged() error {
	return c.refresh()
} // func (c *Coordinator) OnAlarmDefinitionsChanged() error

// OnExternalClockEvent is invoked on boot, wall-clock adjustments and
// timezone changes.
func (c *Coordinator) OnExternalClockEvent() error {
	// A clock jump invalidates any delay computed earlier, so the
	// remembered registration must not be trusted for the idempotence
	// shortcut.
	c.lock.Lock()
	if c.current != nil {
		c.timers.Cancel(c.current.act)
		c.current = nil
	}
	c.lock.Unlock()

	return c.refresh()
} // func (c *Coordinator) OnExternalClockEvent() error

// OnHorizonReached is invoked when a Rescan timer fires.
func (c *Coordinator) OnHorizonReached() error {
	return c.refresh()
} // func (c *Coordinator) OnHorizonReached() error

// ScheduleSnooze registers a Ring at the given instant, bypassing the
// Resolver; the snooze time is authoritative, not recomputed.
func (c *Coordinator) ScheduleSnooze(instant time.Time) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.set(instant, action.Ring)
} // func (c *Coordinator) ScheduleSnooze(instant time.Time)

// Suspend drops the outstanding registration, if any. Used on
// shutdown.
func (c *Coordinator) Suspend() {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.current != nil {
		c.timers.Cancel(c.current.act)
		c.current = nil
	}
} // func (c *Coordinator) Suspend()

// Registered returns the instant and action of the outstanding
// registration.
func (c *Coordinator) Registered() (time.Time, action.Action, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.current == nil {
		return time.Time{}, 0, false
	}

	return c.current.instant, c.current.act, true
} // func (c *Coordinator) Registered() (time.Time, action.Action, bool)

func (c *Coordinator) refresh() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	var (
		err   error
		now   = c.clock.Now()
		next  *objects.Occurrence
		state *objects.TrackedAlarmState
	)

	if next, err = c.next.ResolveNext(now, c.horizonDays); err != nil {
		c.log.Printf("[ERROR] Cannot resolve next occurrence: %s\n",
			err.Error())
		return err
	} else if state, err = c.state.StateGet(); err != nil {
		c.log.Printf("[ERROR] Cannot read tracked alarm state: %s\n",
			err.Error())
		return err
	}

	var horizon = time.Duration(c.horizonDays) * 24 * time.Hour

	// The tracked occurrence outranks whatever the resolver offers; a
	// snoozed wake-up exists even when nothing resolves at all.
	if state.Active() {
		// A second alarm must not interrupt one already ringing or
		// snoozed, but the obligation itself has to stay registered.
		c.log.Printf("[DEBUG] Tracked alarm at %s is %s, holding back registration\n",
			state.AlarmTime.Format(common.TimestampFormat),
			state.Phase)

		if state.Phase == phase.Snoozed {
			// The wake-up is re-derived from the persisted instant;
			// the in-process timer that was armed for it does not
			// survive a restart. A wake-up that came and went while
			// no process was around rings right away.
			var wake = state.SnoozeUntil
			if !wake.After(now) {
				wake = now.Add(common.MinTimerDelay)
			}
			c.set(wake, action.Ring)
			return nil
		}

		// Ringing: we are waiting on the user, but the registration
		// must not run dry in the meantime.
		c.set(now.Add(horizon), action.Rescan)
		return nil
	}

	if next == nil {
		// Nothing to wake up for, but a dormant process could not
		// notice a definition edit happening beyond the horizon, so
		// we look again at the boundary.
		c.set(now.Add(horizon), action.Rescan)
		return nil
	}

	if state.PhaseFor(next.Timestamp) == phase.DismissedBeforeRinging {
		// The user already dismissed this occurrence, so we must not
		// wake for it. Look again just past its instant, when
		// resolution moves on to the following one.
		c.set(next.Timestamp.Add(common.MinTimerDelay), action.Rescan)
		return nil
	}

	var wait = next.Timestamp.Sub(now)

	switch {
	case wait > horizon:
		c.set(now.Add(horizon), action.Rescan)
	case wait > c.leadTime:
		c.set(next.Timestamp.Add(-c.leadTime), action.EnterNearFuture)
	default:
		c.set(next.Timestamp, action.Ring)
	}

	return nil
} // func (c *Coordinator) refresh() error

// set is the only code path that mutates the outstanding
// registration. It cancels the prior one unless it is identical to
// what is being requested.
// Callers must hold c.lock.
func (c *Coordinator) set(instant time.Time, act action.Action) {
	if c.current != nil {
		if c.current.instant.Equal(instant) && c.current.act == act {
			// Nothing changed, leave the registration alone.
			return
		}

		c.timers.Cancel(c.current.act)
	}

	c.timers.Set(instant, act)
	c.current = &registration{
		instant: instant,
		act:     act,
	}

	c.log.Printf("[DEBUG] Registration is now %s at %s\n",
		act,
		instant.Format(common.TimestampFormat))
} // func (c *Coordinator) set(instant time.Time, act action.Action)
