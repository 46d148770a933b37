// /home/krylon/go/src/github.com/blicero/wecker/lifecycle/lifecycle.go
// -*- mode: go; coding: utf-8; -*-
// Created on 19. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-10 18:44:36 krylon>

// Package lifecycle implements the persisted state machine tracking
// the disposition of the current alarm occurrence. All external
// triggers pass through its event methods, one at a time; every
// transition persists the new phase together with the occurrence
// instant it applies to before the method returns, so a restart
// mid-sequence resumes from a valid state.
package lifecycle

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/blicero/wecker/common"
	"github.com/blicero/wecker/logdomain"
	"github.com/blicero/wecker/objects"
	"github.com/blicero/wecker/objects/phase"
	"github.com/blicero/wecker/scheduler"
	"github.com/blicero/wecker/scheduler/action"
)

// ErrTransition indicates an event that is not legal in the current
// phase, e.g. dismissing an alarm that is not ringing.
var ErrTransition = errors.New("event is not valid in the current phase")

// StateStore persists the TrackedAlarmState, the supersede bookkeeping
// and the one-time alarm records the machine disposes of. Satisfied by
// database.Database.
type StateStore interface {
	StateGet() (*objects.TrackedAlarmState, error)
	StateSet(s *objects.TrackedAlarmState) error
	SkippedAdd(alarmTime time.Time, p phase.Phase) error
	OnetimeGetPending(ref time.Time) ([]objects.OneTimeAlarm, error)
	OnetimeSetConsumed(a *objects.OneTimeAlarm, consumed bool) error
}

// Coordinator is the slice of the scheduling coordinator the state
// machine drives.
type Coordinator interface {
	OnAlarmDefinitionsChanged() error
	ScheduleSnooze(instant time.Time)
	Registered() (time.Time, action.Action, bool)
}

// Machine is the lifecycle state machine.
type Machine struct {
	log    *log.Logger
	lock   sync.Mutex
	store  StateStore
	coord  Coordinator
	clock  scheduler.Clock
	snooze time.Duration
}

// New creates a Machine.
func New(store StateStore, coord Coordinator, clock scheduler.Clock) (*Machine, error) {
	var (
		err error
		m   = &Machine{
			store:  store,
			coord:  coord,
			clock:  clock,
			snooze: common.DefaultSnooze,
		}
	)

	if m.log, err = common.GetLogger(logdomain.Lifecycle); err != nil {
		return nil, err
	}

	return m, nil
} // func New(store StateStore, coord Coordinator, clock scheduler.Clock) (*Machine, error)

// SetSnooze adjusts the default snooze duration.
func (m *Machine) SetSnooze(d time.Duration) {
	m.lock.Lock()
	m.snooze = d
	m.lock.Unlock()
} // func (m *Machine) SetSnooze(d time.Duration)

// Phase returns the persisted phase and the occurrence instant it
// applies to.
func (m *Machine) Phase() (phase.Phase, time.Time, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	var state, err = m.store.StateGet()
	if err != nil {
		return phase.Undefined, time.Time{}, err
	}

	return state.Phase, state.AlarmTime, nil
} // func (m *Machine) Phase() (phase.Phase, time.Time, error)

// EnterNearFuture arms the state machine for the given occurrence. If
// the tracked occurrence is still ringing or snoozed, this is a no-op;
// an alarm must not be re-armed mid-ring.
func (m *Machine) EnterNearFuture(instant time.Time) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	var state, err = m.store.StateGet()
	if err != nil {
		return err
	} else if state.Active() {
		m.log.Printf("[DEBUG] Ignore EnterNearFuture(%s), tracked occurrence %s is %s\n",
			instant.Format(common.TimestampFormat),
			state.AlarmTime.Format(common.TimestampFormat),
			state.Phase)
		return nil
	}

	return m.persist(phase.Future, instant)
} // func (m *Machine) EnterNearFuture(instant time.Time) error

// Ring transitions to Ringing for the given occurrence. It returns
// true if the alarm should actually ring now; a firing for an
// occurrence the user dismissed ahead of time is suppressed.
//
// If the tracked state was still Ringing or Snoozed for a different
// occurrence, that one was never dismissed (unclean shutdown, device
// off at the time); it is recorded as skipped before we move on.
func (m *Machine) Ring(instant time.Time) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	var state, err = m.store.StateGet()
	if err != nil {
		return false, err
	}

	if state.Active() && !state.AlarmTime.Equal(instant) {
		m.log.Printf("[WARN] Occurrence %s was never dismissed (still %s), superseded by %s\n",
			state.AlarmTime.Format(common.TimestampFormat),
			state.Phase,
			instant.Format(common.TimestampFormat))

		if err = m.store.SkippedAdd(state.AlarmTime, state.Phase); err != nil {
			// Reporting only, the new occurrence still rings.
			m.log.Printf("[ERROR] Cannot record skipped occurrence: %s\n",
				err.Error())
		}
	} else if state.PhaseFor(instant) == phase.DismissedBeforeRinging {
		m.log.Printf("[INFO] Occurrence %s was dismissed ahead of time, not ringing\n",
			instant.Format(common.TimestampFormat))
		return false, nil
	}

	if err = m.persist(phase.Ringing, instant); err != nil {
		return false, err
	}

	m.consumeOnetime(instant)

	return true, nil
} // func (m *Machine) Ring(instant time.Time) (bool, error)

// Dismiss ends a ringing or snoozed occurrence. If the next
// occurrence has already entered its own near-future window by the
// time of the dismissal, the machine is re-armed for it immediately,
// leaving no gap.
func (m *Machine) Dismiss() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	var state, err = m.store.StateGet()
	if err != nil {
		return err
	} else if !state.Active() {
		m.log.Printf("[WARN] Dismiss: tracked state is %s, nothing to dismiss\n",
			state)
		return ErrTransition
	} else if err = m.persist(phase.Dismissed, state.AlarmTime); err != nil {
		return err
	}

	return m.rearm()
} // func (m *Machine) Dismiss() error

// DismissBeforeRinging dismisses the tracked occurrence before its
// instant arrives, then has the coordinator re-resolve so the machine
// does not wake for it.
func (m *Machine) DismissBeforeRinging() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	var state, err = m.store.StateGet()
	if err != nil {
		return err
	} else if state == nil || state.Phase != phase.Future {
		m.log.Printf("[WARN] DismissBeforeRinging: tracked state is %s\n",
			state)
		return ErrTransition
	} else if m.clock.Now().After(state.AlarmTime) {
		m.log.Printf("[WARN] DismissBeforeRinging: occurrence %s has already arrived\n",
			state.AlarmTime.Format(common.TimestampFormat))
		return ErrTransition
	} else if err = m.persist(phase.DismissedBeforeRinging, state.AlarmTime); err != nil {
		return err
	}

	// The occurrence will never ring; a one-time alarm bound to it is
	// spent just as if it had rung.
	m.consumeOnetime(state.AlarmTime)

	return m.coord.OnAlarmDefinitionsChanged()
} // func (m *Machine) DismissBeforeRinging() error

// Snooze transitions a ringing occurrence to Snoozed and registers a
// Ring at now + d. The snooze time is authoritative, the resolver is
// not consulted. A non-positive duration means the configured
// default.
func (m *Machine) Snooze(d time.Duration) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if d <= 0 {
		d = m.snooze
	}

	var state, err = m.store.StateGet()
	if err != nil {
		return err
	} else if state == nil || state.Phase != phase.Ringing {
		m.log.Printf("[WARN] Snooze: tracked state is %s, nothing is ringing\n",
			state)
		return ErrTransition
	}

	// The wake-up instant is persisted along with the phase, it is all
	// that survives a restart.
	var at = m.clock.Now().Add(d)

	if err = m.write(&objects.TrackedAlarmState{
		Phase:       phase.Snoozed,
		AlarmTime:   state.AlarmTime,
		SnoozeUntil: at,
		Changed:     m.clock.Now(),
	}); err != nil {
		return err
	}

	m.log.Printf("[INFO] Occurrence %s snoozed until %s\n",
		state.AlarmTime.Format(common.TimestampFormat),
		at.Format(common.TimestampFormat))

	m.coord.ScheduleSnooze(at)
	return nil
} // func (m *Machine) Snooze(d time.Duration) error

// CancelForReplacement resets the machine to Undefined, used when a
// new, earlier definition supersedes the occurrence currently
// tracked. Terminal phases are left alone, they carry no obligation
// to cancel.
func (m *Machine) CancelForReplacement() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	var state, err = m.store.StateGet()
	if err != nil {
		return err
	} else if state == nil || state.Phase.Terminal() || state.Phase == phase.Undefined {
		return nil
	}

	return m.persist(phase.Undefined, time.Time{})
} // func (m *Machine) CancelForReplacement() error

// rearm asks the coordinator to re-resolve, then chains an
// EnterNearFuture if the next occurrence is already inside its
// near-future window.
// Caller holds m.lock.
func (m *Machine) rearm() error {
	var err error

	if err = m.coord.OnAlarmDefinitionsChanged(); err != nil {
		return err
	}

	// A Ring registration means the next occurrence is already inside
	// the window; its instant is the occurrence itself.
	if instant, act, ok := m.coord.Registered(); ok && act == action.Ring {
		return m.persist(phase.Future, instant)
	}

	return nil
} // func (m *Machine) rearm() error

// persist writes the new phase and identity synchronously.
// Caller holds m.lock.
func (m *Machine) persist(p phase.Phase, instant time.Time) error {
	return m.write(&objects.TrackedAlarmState{
		Phase:     p,
		AlarmTime: instant,
		Changed:   m.clock.Now(),
	})
} // func (m *Machine) persist(p phase.Phase, instant time.Time) error

// write stores the given state.
// Caller holds m.lock.
func (m *Machine) write(state *objects.TrackedAlarmState) error {
	if err := m.store.StateSet(state); err != nil {
		m.log.Printf("[ERROR] Cannot persist %s: %s\n",
			state,
			err.Error())
		return err
	}

	m.log.Printf("[TRACE] Tracked state is now %s\n",
		state)
	return nil
} // func (m *Machine) write(state *objects.TrackedAlarmState) error

// consumeOnetime soft-deletes the one-time alarms bound to the given
// instant; their occurrence is spent, the records stay around for the
// history view. Reporting only, errors do not fail the transition.
// Caller holds m.lock.
func (m *Machine) consumeOnetime(instant time.Time) {
	var pending, err = m.store.OnetimeGetPending(instant)

	if err != nil {
		m.log.Printf("[ERROR] Cannot look up one-time alarms at %s: %s\n",
			instant.Format(common.TimestampFormat),
			err.Error())
		return
	}

	for idx := range pending {
		if !pending[idx].Timestamp.Equal(instant) {
			continue
		}

		if err = m.store.OnetimeSetConsumed(&pending[idx], true); err != nil {
			m.log.Printf("[ERROR] Cannot consume one-time alarm %d: %s\n",
				pending[idx].ID,
				err.Error())
		}
	}
} // func (m *Machine) consumeOnetime(instant time.Time)
