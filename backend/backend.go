// /home/krylon/go/src/github.com/blicero/wecker/backend/backend.go
// -*- mode: go; coding: utf-8; -*-
// Created on 09. 04. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-14 19:58:21 krylon>

// Package backend implements the Daemon, the part of the application
// that wires the database, the resolver, the scheduler, the lifecycle
// state machine and the advisory together, talks to DBus, and serves
// the HTTP API the clients use.
package backend

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/blicero/wecker/advisory"
	"github.com/blicero/wecker/calendar"
	"github.com/blicero/wecker/common"
	"github.com/blicero/wecker/database"
	"github.com/blicero/wecker/holiday"
	"github.com/blicero/wecker/lifecycle"
	"github.com/blicero/wecker/logdomain"
	"github.com/blicero/wecker/objects"
	"github.com/blicero/wecker/objects/phase"
	"github.com/blicero/wecker/resolver"
	"github.com/blicero/wecker/scheduler"
	"github.com/blicero/wecker/scheduler/action"
	"github.com/godbus/dbus/v5"
	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
)

const (
	notifyObj    = "org.freedesktop.Notifications"
	notifyPath   = "/org/freedesktop/Notifications"
	notifyMethod = "org.freedesktop.Notifications.Notify"
	queueDepth   = 5
	queueTimeout = time.Second * 2
)

// Keys of the user-tunable engine parameters in the settings table.
const (
	settLeadTime  = "engine.leadtime_minutes"
	settSnooze    = "engine.snooze_minutes"
	settHorizon   = "engine.horizon_days"
	settCheckTime = "advisory.check_time"
	settGap       = "advisory.gap_minutes"
	settCalendar  = "advisory.calendar"
)

// Daemon is the centerpiece of the backend, coordinating between the
// database, the alarm engine, and the clients.
type Daemon struct {
	log        *log.Logger
	pool       *database.Pool
	db         *database.Database // dedicated engine connection
	bus        *dbus.Conn
	lock       sync.RWMutex
	evtLock    sync.Mutex // serializes engine entry points
	active     bool
	Queue      chan objects.Notification
	web        http.Server
	router     *mux.Router
	listenAddr string
	idLock     sync.Mutex
	idCnt      int64

	clock    scheduler.Clock
	timers   *scheduler.SystemTimer
	holidays *holiday.Provider
	res      *resolver.Resolver
	coord    *scheduler.Coordinator
	machine  *lifecycle.Machine
	cal      *calendar.Source
	advisor  *advisory.Advisor
	cron     *cron.Cron
	horizon  int
}

// Summon summons a Daemon and returns it. No sacrifice or idolatry is
// required.
func Summon(addr string) (*Daemon, error) {
	var (
		err error
		d   = &Daemon{
			listenAddr: addr,
			active:     true,
			Queue:      make(chan objects.Notification, queueDepth),
			router:     mux.NewRouter(),
			clock:      scheduler.SystemClock{},
			horizon:    common.DefaultHorizonDays,
		}
	)

	if d.log, err = common.GetLogger(logdomain.Backend); err != nil {
		fmt.Printf("ERROR initializing Logger: %s\n",
			err.Error())
		return nil, err
	} else if d.pool, err = database.NewPool(4); err != nil {
		d.log.Printf("[ERROR] Cannot initialize database pool: %s\n",
			err.Error())
		return nil, err
	} else if d.bus, err = dbus.SessionBus(); err != nil {
		d.log.Printf("[ERROR] Failed to connect to DBus Session bus: %s\n",
			err.Error())
		return nil, err
	} else if d.holidays, err = holiday.New(common.HolidayPath); err != nil {
		d.log.Printf("[ERROR] Cannot initialize holiday provider: %s\n",
			err.Error())
		return nil, err
	}

	// The engine keeps one connection to itself; its entry points are
	// serialized anyway.
	d.db = d.pool.Get()

	if d.res, err = resolver.New(d.db, d.holidays); err != nil {
		return nil, err
	} else if d.timers, err = scheduler.NewSystemTimer(d.handleTimer); err != nil {
		return nil, err
	} else if d.coord, err = scheduler.New(d.timers, d.clock, d.res, d.db); err != nil {
		return nil, err
	} else if d.machine, err = lifecycle.New(d.db, d.coord, d.clock); err != nil {
		return nil, err
	}

	if err = d.applySettings(); err != nil {
		return nil, err
	}

	d.web.Addr = addr
	d.web.ErrorLog = d.log
	d.web.Handler = d.router

	if err = d.initWebHandlers(); err != nil {
		d.log.Printf("[ERROR] Failed to initialize web server: %s\n",
			err.Error())
		return nil, err
	}

	go d.notifyLoop()
	go d.serveHTTP()

	d.recoverTrackedState()

	// Boot counts as an external clock event.
	if err = d.OnExternalClockEvent(); err != nil {
		d.log.Printf("[ERROR] Cannot perform initial scheduling: %s\n",
			err.Error())
	}

	return d, nil
} // func Summon(addr string) (*Daemon, error)

// applySettings loads the user-tunable engine parameters from the
// settings table and pushes them into the components. Unset or
// damaged values fall back to the compiled defaults.
func (d *Daemon) applySettings() error {
	var (
		err                   error
		lead, snooze, horizon int64
		gap                   int64
		checkTime, calPath    string
	)

	if lead, err = d.db.SettingGetInt(settLeadTime, int64(common.DefaultLeadTime/time.Minute)); err != nil {
		return err
	} else if snooze, err = d.db.SettingGetInt(settSnooze, int64(common.DefaultSnooze/time.Minute)); err != nil {
		return err
	} else if horizon, err = d.db.SettingGetInt(settHorizon, common.DefaultHorizonDays); err != nil {
		return err
	} else if gap, err = d.db.SettingGetInt(settGap, int64(common.DefaultAdvisoryGap/time.Minute)); err != nil {
		return err
	}

	d.horizon = int(horizon)
	d.coord.Tune(time.Duration(lead)*time.Minute, d.horizon)
	d.machine.SetSnooze(time.Duration(snooze) * time.Minute)

	if calPath, err = d.db.SettingGet(settCalendar); err != nil {
		return err
	} else if calPath == "" {
		d.log.Println("[INFO] No appointment calendar is configured, the advisory stays off")
		return nil
	}

	if d.cal, err = calendar.New(calPath); err != nil {
		return err
	} else if d.advisor, err = advisory.New(d.res, d.cal, d.db, d.clock); err != nil {
		return err
	}

	d.advisor.SetGap(time.Duration(gap) * time.Minute)

	if checkTime, err = d.db.SettingGet(settCheckTime); err != nil {
		return err
	} else if checkTime == "" {
		checkTime = common.DefaultCheckTime
	}

	var stamp time.Time

	if stamp, err = time.Parse(common.TimestampFormatTime, checkTime+":00"); err != nil {
		d.log.Printf("[ERROR] Cannot parse advisory check time %q: %s\n",
			checkTime,
			err.Error())
		stamp, _ = time.Parse(common.TimestampFormatTime, common.DefaultCheckTime+":00") // nolint: errcheck
	}

	d.cron = cron.New()

	if _, err = d.cron.AddFunc(
		fmt.Sprintf("%d %d * * *", stamp.Minute(), stamp.Hour()),
		d.advisoryCheck); err != nil {
		d.log.Printf("[ERROR] Cannot schedule advisory check: %s\n",
			err.Error())
		return err
	}

	d.cron.Start()
	return nil
} // func (d *Daemon) applySettings() error

// IsAlive returns true if the Daemon's active flag is set.
func (d *Daemon) IsAlive() bool {
	d.lock.RLock()
	var alive = d.active
	d.lock.RUnlock()

	return alive
} // func (d *Daemon) IsAlive() bool

// Banish clears the Daemon's active flag and shuts its components
// down.
func (d *Daemon) Banish() error {
	var (
		err         error
		ctx, cancel = context.WithTimeout(context.Background(), time.Second*3)
	)
	defer cancel()

	if d.cron != nil {
		d.cron.Stop()
	}

	d.coord.Suspend()
	d.timers.Stop()

	if err = d.web.Shutdown(ctx); err != nil {
		d.log.Printf("[ERROR] Failed to shutdown web server: %s\n",
			err.Error())
	}

	if ctx.Err() != nil {
		err = ctx.Err()
		d.log.Printf("[ERROR] Failed to gracefully shut down web server: %s\n",
			ctx.Err().Error())
		d.web.Close() // nolint: errcheck
	}

	d.lock.Lock()
	d.active = false
	d.lock.Unlock()
	return err
} // func (d *Daemon) Banish() error

// recoverTrackedState inspects the persisted state once at startup. A
// phase of Ringing cannot have survived the previous process - the
// occurrence was never dismissed - so it is recorded as skipped and
// the machine reset before scheduling starts. A Snoozed wake-up needs
// nothing here, the coordinator re-derives it from the persisted
// instant.
func (d *Daemon) recoverTrackedState() {
	d.evtLock.Lock()
	defer d.evtLock.Unlock()

	var state, err = d.db.StateGet()

	if err != nil {
		d.log.Printf("[ERROR] Cannot read tracked alarm state: %s\n",
			err.Error())
		return
	} else if state.Phase != phase.Ringing {
		return
	}

	d.log.Printf("[WARN] Occurrence %s was still ringing when the previous process died\n",
		state.AlarmTime.Format(common.TimestampFormat))

	if err = d.db.SkippedAdd(state.AlarmTime, state.Phase); err != nil {
		d.log.Printf("[ERROR] Cannot record skipped occurrence: %s\n",
			err.Error())
	}

	if err = d.machine.CancelForReplacement(); err != nil {
		d.log.Printf("[ERROR] Cannot reset tracked alarm state: %s\n",
			err.Error())
	}
} // func (d *Daemon) recoverTrackedState()

// OnAlarmDefinitionsChanged re-derives the outstanding registration
// after any definition was created, edited or deleted.
func (d *Daemon) OnAlarmDefinitionsChanged() error {
	d.evtLock.Lock()
	defer d.evtLock.Unlock()

	var (
		err   error
		state *objects.TrackedAlarmState
	)

	if err = d.coord.OnAlarmDefinitionsChanged(); err != nil {
		return err
	} else if state, err = d.db.StateGet(); err != nil {
		return err
	}

	// If the edit moved the occurrence the machine was armed for, the
	// old identity no longer applies; cancel it before arming the new
	// one.
	if state != nil && state.Phase == phase.Future {
		if instant, act, ok := d.coord.Registered(); ok && act == action.Ring && !instant.Equal(state.AlarmTime) {
			if err = d.machine.CancelForReplacement(); err != nil {
				return err
			}

			return d.machine.EnterNearFuture(instant)
		}
	}

	return nil
} // func (d *Daemon) OnAlarmDefinitionsChanged() error

// OnExternalClockEvent re-derives the outstanding registration after
// boot, a wall clock adjustment, or a timezone change.
func (d *Daemon) OnExternalClockEvent() error {
	d.evtLock.Lock()
	defer d.evtLock.Unlock()

	return d.coord.OnExternalClockEvent()
} // func (d *Daemon) OnExternalClockEvent() error

// handleTimer is the single callback for firing timers. The action
// tag says what the registration meant, but the decision what to do
// is always re-derived from persisted state and a fresh resolution,
// never taken from the callback alone.
func (d *Daemon) handleTimer(act action.Action) {
	d.evtLock.Lock()
	defer d.evtLock.Unlock()

	var err error

	switch act {
	case action.Rescan:
		err = d.coord.OnHorizonReached()
	case action.EnterNearFuture:
		err = d.enterNearFuture()
	case action.Ring:
		err = d.ring()
	default:
		d.log.Printf("[CANTHAPPEN] Timer fired with unknown action %d\n",
			act)
	}

	if err != nil {
		d.log.Printf("[ERROR] Cannot handle timer %s: %s\n",
			act,
			err.Error())
	}
} // func (d *Daemon) handleTimer(act action.Action)

func (d *Daemon) enterNearFuture() error {
	var (
		err  error
		next *objects.Occurrence
	)

	if next, err = d.res.ResolveNext(d.clock.Now(), d.horizon); err != nil {
		return err
	} else if next == nil {
		// The occurrence went away between registration and firing.
		return d.coord.OnAlarmDefinitionsChanged()
	}

	if err = d.machine.EnterNearFuture(next.Timestamp); err != nil {
		return err
	}

	d.Queue <- next

	// Move the registration on to the Ring.
	return d.coord.OnAlarmDefinitionsChanged()
} // func (d *Daemon) enterNearFuture() error

func (d *Daemon) ring() error {
	var (
		err     error
		state   *objects.TrackedAlarmState
		instant time.Time
		occ     *objects.Occurrence
	)

	if state, err = d.db.StateGet(); err != nil {
		return err
	}

	// A snoozed or armed occurrence carries its identity in the
	// tracked state; otherwise the resolver tells us what is due.
	switch state.Phase {
	case phase.Future, phase.Ringing, phase.Snoozed, phase.DismissedBeforeRinging:
		instant = state.AlarmTime
	default:
		if occ, err = d.res.ResolveNext(d.clock.Now().Add(-common.MinTimerDelay), d.horizon); err != nil {
			return err
		} else if occ == nil || occ.Timestamp.After(d.clock.Now().Add(common.MinTimerDelay)) {
			// Stale firing, nothing is actually due.
			d.log.Println("[WARN] Ring timer fired, but nothing is due; re-deriving")
			return d.coord.OnAlarmDefinitionsChanged()
		}
		instant = occ.Timestamp
	}

	var rang bool

	if rang, err = d.machine.Ring(instant); err != nil {
		return err
	} else if !rang {
		return d.coord.OnAlarmDefinitionsChanged()
	}

	if occ == nil {
		occ = &objects.Occurrence{Timestamp: instant}
	}

	d.Queue <- occ

	return nil
} // func (d *Daemon) ring() error

// advisoryCheck runs the daily appointment advisory.
func (d *Daemon) advisoryCheck() {
	if d.advisor == nil {
		return
	}

	d.evtLock.Lock()
	defer d.evtLock.Unlock()

	var adv, err = d.advisor.Check()

	if err != nil {
		d.log.Printf("[ERROR] Advisory check failed: %s\n",
			err.Error())
	} else if adv != nil {
		d.Queue <- adv
	}
} // func (d *Daemon) advisoryCheck()

func (d *Daemon) notifyLoop() {
	defer d.log.Println("[TRACE] Quitting notifyLoop")

	var (
		err  error
		tick = time.NewTicker(queueTimeout)
	)
	defer tick.Stop()

	for d.IsAlive() {
		select {
		case <-tick.C:
			continue
		case m := <-d.Queue:
			var title, body = m.Payload()
			d.log.Printf("[DEBUG] Received Notification: %s\n%s\n",
				title,
				body)

			if err = d.notify(m); err != nil {
				d.log.Printf("[ERROR] Failed to post Notification %q: %s\n",
					title,
					err.Error())
			}
		}
	}
} // func (d *Daemon) notifyLoop()

func (d *Daemon) notify(n objects.Notification) error {
	var (
		err        error
		obj        = d.bus.Object(notifyObj, notifyPath)
		head, body string
	)

	if obj == nil {
		err = fmt.Errorf("Did not find object %s (%s) on session bus",
			notifyObj,
			notifyPath)
		d.log.Printf("[ERROR] %s\n", err.Error())
		return err
	}

	head, body = n.Payload()

	var res = obj.Call(
		notifyMethod,
		0,
		common.AppName,
		uint32(0),
		"",
		head,
		body,
		[]string{},
		map[string]dbus.Variant{},
		int32(0),
	)

	if res.Err != nil {
		d.log.Printf("[ERROR] Cannot send Notification %q: %s\n",
			head,
			res.Err.Error())
		return res.Err
	}

	return nil
} // func (d *Daemon) notify(n objects.Notification) error
