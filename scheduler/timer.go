// /home/krylon/go/src/github.com/blicero/wecker/scheduler/timer.go
// -*- mode: go; coding: utf-8; -*-
// Created on 12. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-08 18:50:23 krylon>

package scheduler

import (
	"log"
	"sync"
	"time"

	"github.com/blicero/wecker/common"
	"github.com/blicero/wecker/logdomain"
	"github.com/blicero/wecker/scheduler/action"
)

// Clock hands out the current time. It exists so tests can simulate
// arbitrary instants and clock jumps.
type Clock interface {
	Now() time.Time
}

// SystemClock is the Clock used outside of tests.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time {
	return time.Now()
} // func (SystemClock) Now() time.Time

// TimerService is the boundary to the host's timer facility: at most
// one registration per action tag, a registration delivers exactly
// one callback, setting an action tag again replaces its prior
// registration.
type TimerService interface {
	Set(instant time.Time, act action.Action)
	Cancel(act action.Action)
}

// SystemTimer is the TimerService used outside of tests, backed by
// time.AfterFunc.
type SystemTimer struct {
	log     *log.Logger
	lock    sync.Mutex
	handler func(action.Action)
	timers  map[action.Action]*time.Timer
}

// NewSystemTimer creates a SystemTimer delivering callbacks to the
// given handler. Callbacks are delivered from their own goroutine;
// the handler is expected to serialize them.
func NewSystemTimer(handler func(action.Action)) (*SystemTimer, error) {
	var (
		err error
		t   = &SystemTimer{
			handler: handler,
			timers:  make(map[action.Action]*time.Timer),
		}
	)

	if t.log, err = common.GetLogger(logdomain.Scheduler); err != nil {
		return nil, err
	}

	return t, nil
} // func NewSystemTimer(handler func(action.Action)) (*SystemTimer, error)

// Set registers a timer to fire at the given instant, replacing any
// prior registration for the same action tag. An instant in the past
// fires almost immediately; the handler is expected to re-derive its
// intent from persisted state anyway.
func (t *SystemTimer) Set(instant time.Time, act action.Action) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if old, ok := t.timers[act]; ok {
		old.Stop()
	}

	var delay = time.Until(instant)
	if delay < common.MinTimerDelay {
		delay = common.MinTimerDelay
	}

	t.log.Printf("[DEBUG] Register timer %s to fire at %s (in %s)\n",
		act,
		instant.Format(common.TimestampFormat),
		delay)

	t.timers[act] = time.AfterFunc(delay, func() {
		t.fire(act)
	})
} // func (t *SystemTimer) Set(instant time.Time, act action.Action)

// Cancel drops the registration for the given action tag, if any.
func (t *SystemTimer) Cancel(act action.Action) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if old, ok := t.timers[act]; ok {
		old.Stop()
		delete(t.timers, act)
		t.log.Printf("[DEBUG] Cancelled timer %s\n",
			act)
	}
} // func (t *SystemTimer) Cancel(act action.Action)

// Stop cancels all outstanding registrations.
func (t *SystemTimer) Stop() {
	t.lock.Lock()
	defer t.lock.Unlock()

	for act, tm := range t.timers {
		tm.Stop()
		delete(t.timers, act)
	}
} // func (t *SystemTimer) Stop()

func (t *SystemTimer) fire(act action.Action) {
	t.lock.Lock()
	delete(t.timers, act)
	t.lock.Unlock()

	t.log.Printf("[DEBUG] Timer %s fires\n",
		act)
	t.handler(act)
} // func (t *SystemTimer) fire(act action.Action)
