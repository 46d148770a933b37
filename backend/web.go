// /home/krylon/go/src/github.com/blicero/wecker/backend/web.go
// -*- mode: go; coding: utf-8; -*-
// Created on 09. 04. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-15 21:26:40 krylon>

package backend

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/blicero/wecker/common"
	"github.com/blicero/wecker/database"
	"github.com/blicero/wecker/objects"
	"github.com/blicero/wecker/objects/disposition"
	"github.com/gorilla/mux"
	"github.com/pquerna/ffjson/ffjson"
)

const skippedLimit = 25

func (d *Daemon) initWebHandlers() error {
	d.router.HandleFunc("/override/set", d.handleOverrideSet)
	d.router.HandleFunc("/override/delete", d.handleOverrideDelete)
	d.router.HandleFunc("/override/all", d.handleOverrideGetAll)
	d.router.HandleFunc("/default/update", d.handleDefaultUpdate)
	d.router.HandleFunc("/default/all", d.handleDefaultGetAll)
	d.router.HandleFunc("/onetime/add", d.handleOnetimeAdd)
	d.router.HandleFunc("/onetime/{id:(?:\\d+)}/consume", d.handleOnetimeConsume)
	d.router.HandleFunc("/onetime/{id:(?:\\d+)}/delete", d.handleOnetimeDelete)
	d.router.HandleFunc("/onetime/pending", d.handleOnetimeGetPending)
	d.router.HandleFunc("/onetime/all", d.handleOnetimeGetAll)
	d.router.HandleFunc("/alarm/phase", d.handlePhase)
	d.router.HandleFunc("/alarm/next", d.handleNextSummary)
	d.router.HandleFunc("/alarm/dismiss", d.handleDismiss)
	d.router.HandleFunc("/alarm/dismissbefore", d.handleDismissBeforeRinging)
	d.router.HandleFunc("/alarm/snooze", d.handleSnooze)
	d.router.HandleFunc("/alarm/skipped", d.handleSkipped)
	d.router.HandleFunc("/resolve/{date:(?:\\d{4}-\\d{2}-\\d{2})}", d.handleResolveDate)
	d.router.HandleFunc("/advisory/check", d.handleAdvisoryCheck)
	d.router.HandleFunc("/advisory/accept", d.handleAdvisoryAccept)
	d.router.HandleFunc("/advisory/decline", d.handleAdvisoryDecline)
	d.router.HandleFunc("/clock/changed", d.handleClockChanged)

	return nil
} // func (d *Daemon) initWebHandlers() error

func (d *Daemon) serveHTTP() {
	var err error

	defer d.log.Println("[INFO] Web server is shutting down")

	d.log.Printf("[INFO] API is going online at %s\n", d.web.Addr)

	if err = d.web.ListenAndServe(); err != nil {
		if err != http.ErrServerClosed {
			d.log.Printf("[ERROR] ListenAndServe returned an error: %s\n",
				err.Error())
		} else {
			d.log.Println("[INFO] HTTP Server has shut down.")
		}
	}
} // func (d *Daemon) serveHTTP()

// refreshEngine re-derives the outstanding registration after an
// edit, logging rather than propagating errors: the edit itself has
// already succeeded.
func (d *Daemon) refreshEngine() {
	if err := d.OnAlarmDefinitionsChanged(); err != nil {
		d.log.Printf("[ERROR] Cannot re-derive schedule after edit: %s\n",
			err.Error())
	}
} // func (d *Daemon) refreshEngine()

func (d *Daemon) handleOverrideSet(w http.ResponseWriter, r *http.Request) {
	d.log.Printf("[TRACE] Handle %s from %s\n",
		r.URL,
		r.RemoteAddr)

	var (
		err                error
		db                 *database.Database
		o                  *objects.DateOverride
		date               time.Time
		disp, hour, minute int
		msg                string
		response           = objects.Response{ID: d.getID()}
	)

	if err = r.ParseForm(); err != nil {
		d.log.Printf("[ERROR] Cannot parse form data: %s\n",
			err.Error())
		response.Message = err.Error()
		goto SEND_RESPONSE
	}

	if date, err = time.ParseInLocation(common.TimestampFormatDate, r.FormValue("date"), time.Local); err != nil {
		msg = fmt.Sprintf("Cannot parse date %q: %s",
			r.FormValue("date"),
			err.Error())
		d.log.Printf("[ERROR] %s\n", msg)
		response.Message = msg
		goto SEND_RESPONSE
	} else if disp, err = strconv.Atoi(r.FormValue("disposition")); err != nil {
		msg = fmt.Sprintf("Cannot parse disposition %q: %s",
			r.FormValue("disposition"),
			err.Error())
		d.log.Printf("[ERROR] %s\n", msg)
		response.Message = msg
		goto SEND_RESPONSE
	} else if !disposition.Disposition(disp).Valid() {
		msg = fmt.Sprintf("Invalid disposition %d", disp)
		d.log.Printf("[ERROR] %s\n", msg)
		response.Message = msg
		goto SEND_RESPONSE
	}

	// hour and minute only matter for an Enabled override, missing
	// values read as zero.
	hour, _ = strconv.Atoi(r.FormValue("hour"))     // nolint: errcheck
	minute, _ = strconv.Atoi(r.FormValue("minute")) // nolint: errcheck

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		msg = fmt.Sprintf("Invalid time of day %02d:%02d", hour, minute)
		d.log.Printf("[ERROR] %s\n", msg)
		response.Message = msg
		goto SEND_RESPONSE
	}

	db = d.pool.Get()
	defer d.pool.Put(db)

	if o, err = db.OverrideGetByDate(date); err != nil {
		msg = fmt.Sprintf("Cannot look up override for %s: %s",
			date.Format(common.TimestampFormatDate),
			err.Error())
		d.log.Printf("[ERROR] %s\n", msg)
		response.Message = msg
		goto SEND_RESPONSE
	} else if o == nil {
		o = &objects.DateOverride{
			Date:        date,
			Disposition: disposition.Disposition(disp),
			Hour:        hour,
			Minute:      minute,
		}
		err = db.OverrideAdd(o)
	} else {
		o.Disposition = disposition.Disposition(disp)
		o.Hour = hour
		o.Minute = minute
		err = db.OverrideUpdate(o)
	}

	if err != nil {
		msg = fmt.Sprintf("Cannot store override for %s: %s",
			date.Format(common.TimestampFormatDate),
			err.Error())
		d.log.Printf("[ERROR] %s\n", msg)
		response.Message = msg
		goto SEND_RESPONSE
	}

	response.Message = o.UUID
	response.Status = true
	d.refreshEngine()

SEND_RESPONSE:
	d.sendResponseJSON(w, &response)
} // func (d *Daemon) handleOverrideSet(w http.ResponseWriter, r *http.Request)

func (d *Daemon) handleOverrideDelete(w http.ResponseWriter, r *http.Request) {
	d.log.Printf("[TRACE] Handle %s from %s\n",
		r.URL,
		r.RemoteAddr)

	var (
		err      error
		db       *database.Database
		o        *objects.DateOverride
		date     time.Time
		msg      string
		response = objects.Response{ID: d.getID()}
	)

	if err = r.ParseForm(); err != nil {
		d.log.Printf("[ERROR] Cannot parse form data: %s\n",
			err.Error())
		response.Message = err.Error()
		goto SEND_RESPONSE
	}

	if date, err = time.ParseInLocation(common.TimestampFormatDate, r.FormValue("date"), time.Local); err != nil {
		msg = fmt.Sprintf("Cannot parse date %q: %s",
			r.FormValue("date"),
			err.Error())
		d.log.Printf("[ERROR] %s\n", msg)
		response.Message = msg
		goto SEND_RESPONSE
	}

	db = d.pool.Get()
	defer d.pool.Put(db)

	if o, err = db.OverrideGetByDate(date); err != nil {
		msg = fmt.Sprintf("Cannot look up override for %s: %s",
			date.Format(common.TimestampFormatDate),
			err.Error())
		d.log.Printf("[ERROR] %s\n", msg)
		response.Message = msg
		goto SEND_RESPONSE
	} else if o == nil {
		msg = fmt.Sprintf("No override exists for %s",
			date.Format(common.TimestampFormatDate))
		d.log.Printf("[DEBUG] %s\n", msg)
		response.Message = msg
		goto SEND_RESPONSE
	} else if err = db.OverrideDelete(o); err != nil {
		msg = fmt.Sprintf("Cannot delete override for %s: %s",
			date.Format(common.TimestampFormatDate),
			err.Error())
		d.log.Printf("[ERROR] %s\n", msg)
		response.Message = msg
		goto SEND_RESPONSE
	}

	response.Message = fmt.Sprintf("Override for %s was deleted",
		date.Format(common.TimestampFormatDate))
	response.Status = true
	d.refreshEngine()

SEND_RESPONSE:
	d.sendResponseJSON(w, &response)
} // func (d *Daemon) handleOverrideDelete(w http.ResponseWriter, r *http.Request)

func (d *Daemon) handleOverrideGetAll(w http.ResponseWriter, r *http.Request) {
	d.log.Printf("[TRACE] Handle %s from %s\n",
		r.URL,
		r.RemoteAddr)

	var (
		err  error
		db   *database.Database
		list []objects.DateOverride
	)

	db = d.pool.Get()
	defer d.pool.Put(db)

	if list, err = db.OverrideGetAll(); err != nil {
		d.log.Printf("[ERROR] Cannot load overrides: %s\n",
			err.Error())
	}

	d.sendJSON(w, list)
} // func (d *Daemon) handleOverrideGetAll(w http.ResponseWriter, r *http.Request)

func (d *Daemon) handleDefaultUpdate(w http.ResponseWriter, r *http.Request) {
	d.log.Printf("[TRACE] Handle %s from %s\n",
		r.URL,
		r.RemoteAddr)

	var (
		err               error
		db                *database.Database
		old, upd          *objects.WeekdayDefault
		all               []objects.WeekdayDefault
		day, hour, minute int
		msg               string
		txStatus          bool
		response          = objects.Response{ID: d.getID()}
	)

	if err = r.ParseForm(); err != nil {
		d.log.Printf("[ERROR] Cannot parse form data: %s\n",
			err.Error())
		response.Message = err.Error()
		goto SEND_RESPONSE
	}

	if day, err = strconv.Atoi(r.FormValue("day")); err != nil || day < 0 || day > 6 {
		msg = fmt.Sprintf("Invalid weekday %q", r.FormValue("day"))
		d.log.Printf("[ERROR] %s\n", msg)
		response.Message = msg
		goto SEND_RESPONSE
	}

	hour, _ = strconv.Atoi(r.FormValue("hour"))     // nolint: errcheck
	minute, _ = strconv.Atoi(r.FormValue("minute")) // nolint: errcheck

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		msg = fmt.Sprintf("Invalid time of day %02d:%02d", hour, minute)
		d.log.Printf("[ERROR] %s\n", msg)
		response.Message = msg
		goto SEND_RESPONSE
	}

	db = d.pool.Get()
	defer d.pool.Put(db)

	if old, err = db.DefaultGetByDay(day); err != nil {
		msg = fmt.Sprintf("Cannot look up weekday default %d: %s",
			day,
			err.Error())
		d.log.Printf("[ERROR] %s\n", msg)
		response.Message = msg
		goto SEND_RESPONSE
	} else if err = db.Begin(); err != nil {
		msg = fmt.Sprintf("Error starting transaction: %s",
			err.Error())
		d.log.Printf("[ERROR] %s\n", msg)
		response.Message = msg
		goto SEND_RESPONSE
	}

	upd = &objects.WeekdayDefault{
		Day:     day,
		Enabled: r.FormValue("enabled") == "true",
		Hour:    hour,
		Minute:  minute,
	}

	if err = db.DefaultUpdate(upd); err != nil {
		msg = fmt.Sprintf("Cannot update weekday default %d: %s",
			day,
			err.Error())
		d.log.Printf("[ERROR] %s\n", msg)
		response.Message = msg
		goto SEND_RESPONSE
	}

	// With explicit confirmation, the new time propagates to every
	// other weekday that previously shared the old time.
	if r.FormValue("propagate") == "true" {
		if all, err = db.DefaultGetAll(); err != nil {
			msg = fmt.Sprintf("Cannot load weekday defaults: %s",
				err.Error())
			d.log.Printf("[ERROR] %s\n", msg)
			response.Message = msg
			goto SEND_RESPONSE
		}

		for idx := range all {
			var other = &all[idx]

			if other.Day == day || !other.SameTime(old) {
				continue
			}

			other.Hour = hour
			other.Minute = minute

			if err = db.DefaultUpdate(other); err != nil {
				msg = fmt.Sprintf("Cannot propagate time to weekday %d: %s",
					other.Day,
					err.Error())
				d.log.Printf("[ERROR] %s\n", msg)
				response.Message = msg
				goto SEND_RESPONSE
			}
		}
	}

	response.Message = "OK"
	response.Status = true
	txStatus = true

SEND_RESPONSE:
	if txStatus {
		if err = db.Commit(); err != nil {
			msg = fmt.Sprintf("Error committing transaction: %s",
				err.Error())
			d.log.Printf("[ERROR] %s\n", msg)
			response.Message = msg
			response.Status = false
		} else {
			d.refreshEngine()
		}
	} else if db != nil {
		db.Rollback() // nolint: errcheck
	}

	d.sendResponseJSON(w, &response)
} // func (d *Daemon) handleDefaultUpdate(w http.ResponseWriter, r *http.Request)

func (d *Daemon) handleDefaultGetAll(w http.ResponseWriter, r *http.Request) {
	d.log.Printf("[TRACE] Handle %s from %s\n",
		r.URL,
		r.RemoteAddr)

	var (
		err  error
		db   *database.Database
		list []objects.WeekdayDefault
	)

	db = d.pool.Get()
	defer d.pool.Put(db)

	if list, err = db.DefaultGetAll(); err != nil {
		d.log.Printf("[ERROR] Cannot load weekday defaults: %s\n",
			err.Error())
	}

	d.sendJSON(w, list)
} // func (d *Daemon) handleDefaultGetAll(w http.ResponseWriter, r *http.Request)

func (d *Daemon) handleOnetimeAdd(w http.ResponseWriter, r *http.Request) {
	d.log.Printf("[TRACE] Handle %s from %s\n",
		r.URL,
		r.RemoteAddr)

	var (
		err      error
		db       *database.Database
		alarm    objects.OneTimeAlarm
		tstr     string
		msg      string
		response = objects.Response{ID: d.getID()}
	)

	if err = r.ParseForm(); err != nil {
		d.log.Printf("[ERROR] Cannot parse form data: %s\n",
			err.Error())
		response.Message = err.Error()
		goto SEND_RESPONSE
	}

	alarm.Name = r.PostFormValue("name")
	tstr = r.PostFormValue("time")

	if alarm.Timestamp, err = time.Parse(time.RFC3339, tstr); err != nil {
		msg = fmt.Sprintf("Cannot parse time stamp %q: %s",
			tstr,
			err.Error())
		d.log.Printf("[ERROR] %s\n", msg)
		response.Message = msg
		goto SEND_RESPONSE
	} else if alarm.Timestamp.Before(time.Now()) {
		msg = fmt.Sprintf("Timestamp %s is in the past", tstr)
		d.log.Printf("[ERROR] %s\n", msg)
		response.Message = msg
		goto SEND_RESPONSE
	}

	db = d.pool.Get()
	defer d.pool.Put(db)

	if err = db.OnetimeAdd(&alarm); err != nil {
		msg = fmt.Sprintf("Cannot add one-time alarm %q: %s",
			alarm.Name,
			err.Error())
		d.log.Printf("[ERROR] %s\n", msg)
		response.Message = msg
		goto SEND_RESPONSE
	}

	response.Message = alarm.UUID
	response.Status = true
	d.refreshEngine()

SEND_RESPONSE:
	d.sendResponseJSON(w, &response)
} // func (d *Daemon) handleOnetimeAdd(w http.ResponseWriter, r *http.Request)

func (d *Daemon) handleOnetimeConsume(w http.ResponseWriter, r *http.Request) {
	d.onetimeFlagOrDelete(w, r, false)
} // func (d *Daemon) handleOnetimeConsume(w http.ResponseWriter, r *http.Request)

func (d *Daemon) handleOnetimeDelete(w http.ResponseWriter, r *http.Request) {
	d.onetimeFlagOrDelete(w, r, true)
} // func (d *Daemon) handleOnetimeDelete(w http.ResponseWriter, r *http.Request)

// onetimeFlagOrDelete handles both consuming (soft delete, the record
// stays for the history view) and physically deleting a one-time
// alarm.
func (d *Daemon) onetimeFlagOrDelete(w http.ResponseWriter, r *http.Request, physical bool) {
	d.log.Printf("[TRACE] Handle %s from %s\n",
		r.URL,
		r.RemoteAddr)

	var (
		err        error
		db         *database.Database
		alarm      *objects.OneTimeAlarm
		idstr, msg string
		id         int64
		response   = objects.Response{ID: d.getID()}
	)

	idstr = mux.Vars(r)["id"]

	if id, err = strconv.ParseInt(idstr, 10, 64); err != nil {
		msg = fmt.Sprintf("Cannot parse ID %q: %s",
			idstr,
			err.Error())
		d.log.Printf("[CANTHAPPEN] %s\n", msg)
		response.Message = msg
		goto SEND_RESPONSE
	}

	db = d.pool.Get()
	defer d.pool.Put(db)

	if alarm, err = db.OnetimeGetByID(id); err != nil {
		msg = fmt.Sprintf("Cannot look up one-time alarm %d: %s",
			id,
			err.Error())
		d.log.Printf("[ERROR] %s\n", msg)
		response.Message = msg
		goto SEND_RESPONSE
	} else if alarm == nil {
		msg = fmt.Sprintf("One-time alarm %d was not found", id)
		d.log.Printf("[DEBUG] %s\n", msg)
		response.Message = msg
		goto SEND_RESPONSE
	}

	if physical {
		err = db.OnetimeDelete(alarm)
	} else {
		err = db.OnetimeSetConsumed(alarm, true)
	}

	if err != nil {
		msg = fmt.Sprintf("Cannot dispose of one-time alarm %d (%q): %s",
			id,
			alarm.Name,
			err.Error())
		d.log.Printf("[ERROR] %s\n", msg)
		response.Message = msg
		goto SEND_RESPONSE
	}

	response.Message = fmt.Sprintf("One-time alarm %d (%q) was disposed of",
		id,
		alarm.Name)
	response.Status = true
	d.refreshEngine()

SEND_RESPONSE:
	d.sendResponseJSON(w, &response)
} // func (d *Daemon) onetimeFlagOrDelete(w http.ResponseWriter, r *http.Request, physical bool)

func (d *Daemon) handleOnetimeGetPending(w http.ResponseWriter, r *http.Request) {
	d.log.Printf("[TRACE] Handle %s from %s\n",
		r.URL,
		r.RemoteAddr)

	var (
		err  error
		db   *database.Database
		list []objects.OneTimeAlarm
	)

	db = d.pool.Get()
	defer d.pool.Put(db)

	if list, err = db.OnetimeGetPending(time.Now()); err != nil {
		d.log.Printf("[ERROR] Cannot load pending one-time alarms: %s\n",
			err.Error())
	}

	d.sendJSON(w, list)
} // func (d *Daemon) handleOnetimeGetPending(w http.ResponseWriter, r *http.Request)

func (d *Daemon) handleOnetimeGetAll(w http.ResponseWriter, r *http.Request) {
	d.log.Printf("[TRACE] Handle %s from %s\n",
		r.URL,
		r.RemoteAddr)

	var (
		err  error
		db   *database.Database
		list []objects.OneTimeAlarm
	)

	db = d.pool.Get()
	defer d.pool.Put(db)

	if list, err = db.OnetimeGetAll(); err != nil {
		d.log.Printf("[ERROR] Cannot load one-time alarms: %s\n",
			err.Error())
	}

	d.sendJSON(w, list)
} // func (d *Daemon) handleOnetimeGetAll(w http.ResponseWriter, r *http.Request)

func (d *Daemon) handlePhase(w http.ResponseWriter, r *http.Request) {
	d.log.Printf("[TRACE] Handle %s from %s\n",
		r.URL,
		r.RemoteAddr)

	var p, stamp, err = d.machine.Phase()

	if err != nil {
		d.log.Printf("[ERROR] Cannot read phase: %s\n",
			err.Error())
	}

	var status = struct {
		Phase     string
		AlarmTime time.Time
	}{
		Phase:     p.String(),
		AlarmTime: stamp,
	}

	d.sendJSON(w, &status)
} // func (d *Daemon) handlePhase(w http.ResponseWriter, r *http.Request)

func (d *Daemon) handleNextSummary(w http.ResponseWriter, r *http.Request) {
	d.log.Printf("[TRACE] Handle %s from %s\n",
		r.URL,
		r.RemoteAddr)

	var next, err = d.res.ResolveNext(time.Now(), d.horizon)

	if err != nil {
		d.log.Printf("[ERROR] Cannot resolve next occurrence: %s\n",
			err.Error())
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	} else if next == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	} else if next.Label == "" && d.holidays.IsHoliday(next.Timestamp) {
		next.Label = d.holidays.Label(next.Timestamp)
	}

	d.sendJSON(w, next)
} // func (d *Daemon) handleNextSummary(w http.ResponseWriter, r *http.Request)

func (d *Daemon) handleDismiss(w http.ResponseWriter, r *http.Request) {
	d.log.Printf("[TRACE] Handle %s from %s\n",
		r.URL,
		r.RemoteAddr)

	var response = objects.Response{ID: d.getID()}

	d.evtLock.Lock()
	var err = d.machine.Dismiss()
	d.evtLock.Unlock()

	if err != nil {
		d.log.Printf("[ERROR] Cannot dismiss: %s\n",
			err.Error())
		response.Message = err.Error()
	} else {
		response.Message = "OK"
		response.Status = true
	}

	d.sendResponseJSON(w, &response)
} // func (d *Daemon) handleDismiss(w http.ResponseWriter, r *http.Request)

func (d *Daemon) handleDismissBeforeRinging(w http.ResponseWriter, r *http.Request) {
	d.log.Printf("[TRACE] Handle %s from %s\n",
		r.URL,
		r.RemoteAddr)

	var response = objects.Response{ID: d.getID()}

	d.evtLock.Lock()
	var err = d.machine.DismissBeforeRinging()
	d.evtLock.Unlock()

	if err != nil {
		d.log.Printf("[ERROR] Cannot dismiss ahead of time: %s\n",
			err.Error())
		response.Message = err.Error()
	} else {
		response.Message = "OK"
		response.Status = true
	}

	d.sendResponseJSON(w, &response)
} // func (d *Daemon) handleDismissBeforeRinging(w http.ResponseWriter, r *http.Request)

func (d *Daemon) handleSnooze(w http.ResponseWriter, r *http.Request) {
	d.log.Printf("[TRACE] Handle %s from %s\n",
		r.URL,
		r.RemoteAddr)

	var (
		err      error
		minutes  int
		response = objects.Response{ID: d.getID()}
	)

	if err = r.ParseForm(); err != nil {
		d.log.Printf("[ERROR] Cannot parse form data: %s\n",
			err.Error())
		response.Message = err.Error()
		goto SEND_RESPONSE
	}

	// A missing or zero duration means the configured default.
	minutes, _ = strconv.Atoi(r.FormValue("minutes")) // nolint: errcheck

	d.evtLock.Lock()
	err = d.machine.Snooze(time.Duration(minutes) * time.Minute)
	d.evtLock.Unlock()

	if err != nil {
		d.log.Printf("[ERROR] Cannot snooze: %s\n",
			err.Error())
		response.Message = err.Error()
		goto SEND_RESPONSE
	}

	response.Message = "OK"
	response.Status = true

SEND_RESPONSE:
	d.sendResponseJSON(w, &response)
} // func (d *Daemon) handleSnooze(w http.ResponseWriter, r *http.Request)

func (d *Daemon) handleSkipped(w http.ResponseWriter, r *http.Request) {
	d.log.Printf("[TRACE] Handle %s from %s\n",
		r.URL,
		r.RemoteAddr)

	var (
		err  error
		db   *database.Database
		list []objects.SkippedAlarm
	)

	db = d.pool.Get()
	defer d.pool.Put(db)

	if list, err = db.SkippedGetRecent(skippedLimit); err != nil {
		d.log.Printf("[ERROR] Cannot load skipped occurrences: %s\n",
			err.Error())
	}

	d.sendJSON(w, list)
} // func (d *Daemon) handleSkipped(w http.ResponseWriter, r *http.Request)

func (d *Daemon) handleResolveDate(w http.ResponseWriter, r *http.Request) {
	d.log.Printf("[TRACE] Handle %s from %s\n",
		r.URL,
		r.RemoteAddr)

	var (
		err  error
		date time.Time
		day  *objects.ResolvedDay
		dstr = mux.Vars(r)["date"]
	)

	if date, err = time.ParseInLocation(common.TimestampFormatDate, dstr, time.Local); err != nil {
		d.log.Printf("[CANTHAPPEN] Cannot parse date %q: %s\n",
			dstr,
			err.Error())
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	} else if day, err = d.res.ResolveForDate(date); err != nil {
		d.log.Printf("[ERROR] Cannot resolve %s: %s\n",
			dstr,
			err.Error())
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	d.sendJSON(w, day)
} // func (d *Daemon) handleResolveDate(w http.ResponseWriter, r *http.Request)

func (d *Daemon) handleAdvisoryCheck(w http.ResponseWriter, r *http.Request) {
	d.log.Printf("[TRACE] Handle %s from %s\n",
		r.URL,
		r.RemoteAddr)

	if d.advisor == nil {
		var response = objects.Response{
			ID:      d.getID(),
			Message: "No appointment calendar is configured",
		}
		d.sendResponseJSON(w, &response)
		return
	}

	d.evtLock.Lock()
	var adv, err = d.advisor.Check()
	d.evtLock.Unlock()

	if err != nil {
		d.log.Printf("[ERROR] Advisory check failed: %s\n",
			err.Error())
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	} else if adv != nil {
		d.Queue <- adv
	}

	d.sendJSON(w, adv)
} // func (d *Daemon) handleAdvisoryCheck(w http.ResponseWriter, r *http.Request)

func (d *Daemon) handleAdvisoryAccept(w http.ResponseWriter, r *http.Request) {
	d.advisoryDecide(w, r, true)
} // func (d *Daemon) handleAdvisoryAccept(w http.ResponseWriter, r *http.Request)

func (d *Daemon) handleAdvisoryDecline(w http.ResponseWriter, r *http.Request) {
	d.advisoryDecide(w, r, false)
} // func (d *Daemon) handleAdvisoryDecline(w http.ResponseWriter, r *http.Request)

// advisoryDecide applies the user's decision on the pending advisory.
// Accepting quick-sets an override at the advisory's target time and
// re-derives the schedule; declining just records the decision so the
// advisory is not raised again.
func (d *Daemon) advisoryDecide(w http.ResponseWriter, r *http.Request, accept bool) {
	d.log.Printf("[TRACE] Handle %s from %s\n",
		r.URL,
		r.RemoteAddr)

	var response = objects.Response{ID: d.getID()}

	if d.advisor == nil {
		response.Message = "No appointment calendar is configured"
		d.sendResponseJSON(w, &response)
		return
	}

	var (
		err error
		adv *objects.Advisory
	)

	d.evtLock.Lock()

	if adv, err = d.advisor.Evaluate(time.Now().AddDate(0, 0, 1)); err != nil {
		d.evtLock.Unlock()
		d.log.Printf("[ERROR] Cannot evaluate advisory: %s\n",
			err.Error())
		response.Message = err.Error()
		d.sendResponseJSON(w, &response)
		return
	} else if adv == nil || adv.Appointment == nil {
		d.evtLock.Unlock()
		response.Message = "No appointment advisory is pending"
		d.sendResponseJSON(w, &response)
		return
	}

	if accept {
		err = d.advisor.Accept(adv)
	} else {
		err = d.advisor.Decline(adv)
	}

	d.evtLock.Unlock()

	if err != nil {
		d.log.Printf("[ERROR] Cannot apply advisory decision: %s\n",
			err.Error())
		response.Message = err.Error()
		d.sendResponseJSON(w, &response)
		return
	}

	if accept {
		// The quick-set override changes what rings tomorrow.
		d.refreshEngine()
	}

	response.Message = "OK"
	response.Status = true
	d.sendResponseJSON(w, &response)
} // func (d *Daemon) advisoryDecide(w http.ResponseWriter, r *http.Request, accept bool)

// handleClockChanged lets collaborators report a wall clock or
// timezone change.
func (d *Daemon) handleClockChanged(w http.ResponseWriter, r *http.Request) {
	d.log.Printf("[TRACE] Handle %s from %s\n",
		r.URL,
		r.RemoteAddr)

	var response = objects.Response{ID: d.getID()}

	if err := d.OnExternalClockEvent(); err != nil {
		d.log.Printf("[ERROR] Cannot handle clock change: %s\n",
			err.Error())
		response.Message = err.Error()
	} else {
		response.Message = "OK"
		response.Status = true
	}

	d.sendResponseJSON(w, &response)
} // func (d *Daemon) handleClockChanged(w http.ResponseWriter, r *http.Request)

//////////////////////////////////////////////////////////////////////////////////////////////////
/// Helpers //////////////////////////////////////////////////////////////////////////////////////
//////////////////////////////////////////////////////////////////////////////////////////////////

func (d *Daemon) sendJSON(w http.ResponseWriter, payload interface{}) {
	var buf, err = ffjson.Marshal(payload)

	if err != nil {
		d.log.Printf("[ERROR] Cannot serialize %T: %s\n",
			payload,
			err.Error())
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	defer ffjson.Pool(buf)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)
	w.Write(buf) // nolint: errcheck
} // func (d *Daemon) sendJSON(w http.ResponseWriter, payload interface{})

func (d *Daemon) sendResponseJSON(w http.ResponseWriter, res *objects.Response) {
	var (
		err error
		buf []byte
	)

	if buf, err = ffjson.Marshal(res); err != nil {
		d.log.Printf("[ERROR] Cannot serialize Response object %#v: %s\n",
			res,
			err.Error())
		return
	}

	defer ffjson.Pool(buf)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)
	w.Write(buf) // nolint: errcheck
} // func (d *Daemon) sendResponseJSON(w http.ResponseWriter, res *objects.Response)

func (d *Daemon) getID() int64 {
	d.idLock.Lock()
	d.idCnt++
	var id = d.idCnt
	d.idLock.Unlock()
	return id
} // func (d *Daemon) getID() int64
