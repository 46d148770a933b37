// /home/krylon/go/src/github.com/blicero/wecker/database/database.go
// -*- mode: go; coding: utf-8; -*-
// Created on 05. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-09 18:44:52 krylon>

// Package database is the storage backend, using SQLite. It persists
// the alarm definitions (overrides, weekday defaults, one-time
// alarms), the tracked alarm state, the user-tunable settings, and
// the log of skipped alarms.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/blicero/krylib"
	"github.com/blicero/wecker/common"
	"github.com/blicero/wecker/database/query"
	"github.com/blicero/wecker/logdomain"
	"github.com/blicero/wecker/objects"
	"github.com/blicero/wecker/objects/disposition"
	"github.com/blicero/wecker/objects/phase"
	_ "github.com/mattn/go-sqlite3" // Import the database driver
)

var (
	openLock sync.Mutex
	idCnt    int64
)

// ErrTxInProgress indicates that an attempt to initiate a transaction
// failed because there is already one in progress.
var ErrTxInProgress = errors.New("A Transaction is already in progress")

// ErrNoTxInProgress indicates that an attempt was made to finish a
// transaction when none was active.
var ErrNoTxInProgress = errors.New("There is no transaction in progress")

// If a query returns an error and the error text is matched by this
// regex, we consider the error as transient and try again after a
// short delay.
var retryPat = regexp.MustCompile("(?i)database is (?:locked|busy)")

// worthARetry returns true if an error returned from the database
// is matched by the retryPat regex.
func worthARetry(e error) bool {
	return retryPat.MatchString(e.Error())
} // func worthARetry(e error) bool

// retryDelay is the amount of time we wait before we repeat a database
// operation that failed due to a transient error.
const retryDelay = 25 * time.Millisecond

func waitForRetry() {
	time.Sleep(retryDelay)
} // func waitForRetry()

// Settings keys for the tracked alarm state and advisory bookkeeping.
const (
	keyStatePhase     = "state.phase"
	keyStateAlarmTime = "state.alarm_time"
	keyStateSnooze    = "state.snooze_until"
	keyAdvisoryBegin  = "advisory.last_begin"
	keyAdvisoryAction = "advisory.last_action"
)

// Database wraps a database connection and associated state.
type Database struct {
	id      int64
	db      *sql.DB
	tx      *sql.Tx
	log     *log.Logger
	path    string
	queries map[query.ID]*sql.Stmt
}

// Open opens a Database. If the database specified by the path does
// not exist, yet, it is created and initialized.
func Open(path string) (*Database, error) {
	var (
		err      error
		dbExists bool
		db       = &Database{
			path:    path,
			queries: make(map[query.ID]*sql.Stmt, len(dbQueries)),
		}
	)

	openLock.Lock()
	defer openLock.Unlock()
	idCnt++
	db.id = idCnt

	if db.log, err = common.GetLogger(logdomain.Database); err != nil {
		return nil, err
	}

	var connstring = fmt.Sprintf("%s?_locking=NORMAL&_journal=WAL&_fk=1&recursive_triggers=0",
		path)

	if dbExists, err = krylib.Fexists(path); err != nil {
		db.log.Printf("[ERROR] Failed to check if %s exists: %s\n",
			path,
			err.Error())
		return nil, err
	} else if db.db, err = sql.Open("sqlite3", connstring); err != nil {
		db.log.Printf("[ERROR] Failed to open %s: %s\n",
			path,
			err.Error())
		return nil, err
	}

	if !dbExists {
		if err = db.initialize(); err != nil {
			var e2 error
			if e2 = db.db.Close(); e2 != nil {
				db.log.Printf("[CRITICAL] Failed to close database: %s\n",
					e2.Error())
				return nil, e2
			}
			db.db = nil
			return nil, err
		}
		db.log.Printf("[INFO] Database at %s has been initialized\n",
			path)
	}

	return db, nil
} // func Open(path string) (*Database, error)

func (db *Database) initialize() error {
	var err error
	var tx *sql.Tx

	if tx, err = db.db.Begin(); err != nil {
		db.log.Printf("[ERROR] Cannot begin transaction: %s\n",
			err.Error())
		return err
	}

	for _, q := range initQueries {
		db.log.Printf("[TRACE] Execute init query:\n%s\n",
			q)
		if _, err = tx.Exec(q); err != nil {
			db.log.Printf("[ERROR] Cannot execute init query: %s\n%s\n",
				err.Error(),
				q)
			if rbErr := tx.Rollback(); rbErr != nil {
				db.log.Printf("[CANTHAPPEN] Cannot rollback transaction: %s\n",
					rbErr.Error())
				return rbErr
			}
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		db.log.Printf("[CANTHAPPEN] Failed to commit init transaction: %s\n",
			err.Error())
		return err
	}

	return nil
} // func (db *Database) initialize() error

// Close closes the database.
// If there is a pending transaction, it is rolled back.
func (db *Database) Close() error {
	// I wonder if would make more snese to panic() if something goes
	// wrong, because a failure to close the database is not something
	// we can usually recover from.
	var err error

	if db.tx != nil {
		if err = db.tx.Rollback(); err != nil {
			db.log.Printf("[CRITICAL] Cannot roll back pending transaction: %s\n",
				err.Error())
			return err
		}
		db.tx = nil
	}

	for key, stmt := range db.queries {
		if err = stmt.Close(); err != nil {
			db.log.Printf("[CRITICAL] Cannot close statement handle %s: %s\n",
				key,
				err.Error())
			return err
		}
		delete(db.queries, key)
	}

	if err = db.db.Close(); err != nil {
		db.log.Printf("[CRITICAL] Cannot close database: %s\n",
			err.Error())
	}

	db.db = nil
	return nil
} // func (db *Database) Close() error

func (db *Database) getQuery(id query.ID) (*sql.Stmt, error) {
	var (
		stmt *sql.Stmt
		ok   bool
		err  error
	)

	if stmt, ok = db.queries[id]; ok {
		return stmt, nil
	} else if _, ok = dbQueries[id]; !ok {
		return nil, fmt.Errorf("Unknown query %d",
			id)
	}

PREPARE_QUERY:
	if stmt, err = db.db.Prepare(dbQueries[id]); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto PREPARE_QUERY
		}

		db.log.Printf("[ERROR] Cannot parse query %s: %s\n%s\n",
			id,
			err.Error(),
			dbQueries[id])
		return nil, err
	}

	db.queries[id] = stmt

	return stmt, nil
} // func (db *Database) getQuery(query.ID) (*sql.Stmt, error)

// Begin begins an explicit database transaction.
// Only one transaction can be in progress at once, attempting to start
// one, while another transaction is already in progress will yield ErrTxInProgress.
func (db *Database) Begin() error {
	var err error

	db.log.Printf("[DEBUG] Database#%d Begin Transaction\n",
		db.id)

	if db.tx != nil {
		return ErrTxInProgress
	}

BEGIN_TX:
	for db.tx == nil {
		if db.tx, err = db.db.Begin(); err != nil {
			if worthARetry(err) {
				waitForRetry()
				continue BEGIN_TX
			}

			db.log.Printf("[ERROR] Failed to start transaction: %s\n",
				err.Error())
			return err
		}
	}

	return nil
} // func (db *Database) Begin() error

// Commit ends the active transaction, making any changes made during that
// transaction permanent and visible to other connections.
func (db *Database) Commit() error {
	var err error

	db.log.Printf("[DEBUG] Database#%d Commit Transaction\n",
		db.id)

	if db.tx == nil {
		return ErrNoTxInProgress
	}

COMMIT_TX:
	if err = db.tx.Commit(); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto COMMIT_TX
		}

		db.log.Printf("[ERROR] Failed to commit transaction: %s\n",
			err.Error())
		return err
	}

	db.tx = nil
	return nil
} // func (db *Database) Commit() error

// Rollback terminates a pending transaction, undoing any changes to the
// database made during that transaction.
func (db *Database) Rollback() error {
	var err error

	db.log.Printf("[DEBUG] Database#%d Roll back Transaction\n",
		db.id)

	if db.tx == nil {
		return ErrNoTxInProgress
	}

	if err = db.tx.Rollback(); err != nil {
		db.log.Printf("[ERROR] Failed to roll back transaction: %s\n",
			err.Error())
		return err
	}

	db.tx = nil
	return nil
} // func (db *Database) Rollback() error

///////////////////////////////////////////////////////////////////////////////
//// DateOverride /////////////////////////////////////////////////////////////
///////////////////////////////////////////////////////////////////////////////

// OverrideAdd adds a DateOverride to the database. The day it is
// attached to must not have one, yet.
func (db *Database) OverrideAdd(o *objects.DateOverride) error {
	const qid query.ID = query.OverrideAdd
	var (
		err  error
		stmt *sql.Stmt
	)

	if stmt, err = db.getQuery(qid); err != nil {
		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return err
	} else if db.tx != nil {
		stmt = db.tx.Stmt(stmt)
	}

	if o.UUID == "" {
		o.UUID = common.GetUUID()
	}
	o.Changed = time.Now()

EXEC_QUERY:
	var res sql.Result
	if res, err = stmt.Exec(
		o.DateKey(),
		o.Disposition,
		o.Hour,
		o.Minute,
		o.UUID,
		o.Changed.Unix()); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto EXEC_QUERY
		}

		db.log.Printf("[ERROR] Cannot add DateOverride for %s: %s\n",
			o.DateKey(),
			err.Error())
		return err
	}

	var id int64
	if id, err = res.LastInsertId(); err != nil {
		db.log.Printf("[ERROR] Cannot get ID of new DateOverride: %s\n",
			err.Error())
		return err
	}

	o.ID = id
	return nil
} // func (db *Database) OverrideAdd(o *objects.DateOverride) error

// OverrideUpdate persists the disposition and time of the given
// DateOverride.
func (db *Database) OverrideUpdate(o *objects.DateOverride) error {
	const qid query.ID = query.OverrideUpdate
	var (
		err  error
		stmt *sql.Stmt
	)

	if stmt, err = db.getQuery(qid); err != nil {
		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return err
	} else if db.tx != nil {
		stmt = db.tx.Stmt(stmt)
	}

	o.Changed = time.Now()

EXEC_QUERY:
	if _, err = stmt.Exec(
		o.Disposition,
		o.Hour,
		o.Minute,
		o.Changed.Unix(),
		o.ID); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto EXEC_QUERY
		}

		db.log.Printf("[ERROR] Cannot update DateOverride %d: %s\n",
			o.ID,
			err.Error())
		return err
	}

	return nil
} // func (db *Database) OverrideUpdate(o *objects.DateOverride) error

// OverrideDelete removes the given DateOverride from the database.
func (db *Database) OverrideDelete(o *objects.DateOverride) error {
	const qid query.ID = query.OverrideDelete
	var (
		err  error
		stmt *sql.Stmt
	)

	if stmt, err = db.getQuery(qid); err != nil {
		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return err
	} else if db.tx != nil {
		stmt = db.tx.Stmt(stmt)
	}

EXEC_QUERY:
	if _, err = stmt.Exec(o.ID); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto EXEC_QUERY
		}

		db.log.Printf("[ERROR] Cannot delete DateOverride %d: %s\n",
			o.ID,
			err.Error())
		return err
	}

	return nil
} // func (db *Database) OverrideDelete(o *objects.DateOverride) error

// OverrideGetByDate looks up the DateOverride for the given date.
// If the date has none, it returns nil, but no error.
func (db *Database) OverrideGetByDate(date time.Time) (*objects.DateOverride, error) {
	const qid query.ID = query.OverrideGetByDate
	var (
		err  error
		stmt *sql.Stmt
	)

	if stmt, err = db.getQuery(qid); err != nil {
		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return nil, err
	} else if db.tx != nil {
		stmt = db.tx.Stmt(stmt)
	}

	var key = date.Format(common.TimestampFormatDate)

EXEC_QUERY:
	var rows *sql.Rows
	if rows, err = stmt.Query(key); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto EXEC_QUERY
		}

		db.log.Printf("[ERROR] Cannot query DateOverride for %s: %s\n",
			key,
			err.Error())
		return nil, err
	}

	defer rows.Close() // nolint: errcheck

	if rows.Next() {
		var (
			o       = &objects.DateOverride{}
			disp    int
			changed int64
		)

		if err = rows.Scan(&o.ID, &disp, &o.Hour, &o.Minute, &o.UUID, &changed); err != nil {
			db.log.Printf("[ERROR] Cannot scan DateOverride for %s: %s\n",
				key,
				err.Error())
			return nil, err
		}

		o.Date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
		o.Disposition = disposition.Disposition(disp)
		o.Changed = time.Unix(changed, 0)

		if !o.Disposition.Valid() {
			// A record in an unexpected shape is fatal only to that
			// record: it reads as UseDefault.
			db.log.Printf("[ERROR] DateOverride %d has invalid disposition %d, treating as UseDefault\n",
				o.ID,
				disp)
			o.Disposition = disposition.UseDefault
		}

		return o, nil
	}

	return nil, nil
} // func (db *Database) OverrideGetByDate(date time.Time) (*objects.DateOverride, error)

// OverrideGetRange returns all DateOverrides in [from, to), ordered
// by date.
func (db *Database) OverrideGetRange(from, to time.Time) ([]objects.DateOverride, error) {
	const qid query.ID = query.OverrideGetRange
	var (
		err  error
		stmt *sql.Stmt
	)

	if stmt, err = db.getQuery(qid); err != nil {
		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return nil, err
	} else if db.tx != nil {
		stmt = db.tx.Stmt(stmt)
	}

EXEC_QUERY:
	var rows *sql.Rows
	if rows, err = stmt.Query(
		from.Format(common.TimestampFormatDate),
		to.Format(common.TimestampFormatDate)); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto EXEC_QUERY
		}

		db.log.Printf("[ERROR] Cannot query DateOverride range: %s\n",
			err.Error())
		return nil, err
	}

	defer rows.Close() // nolint: errcheck

	var list = make([]objects.DateOverride, 0, 8)

	for rows.Next() {
		var (
			o       objects.DateOverride
			day     string
			disp    int
			changed int64
		)

		if err = rows.Scan(&o.ID, &day, &disp, &o.Hour, &o.Minute, &o.UUID, &changed); err != nil {
			db.log.Printf("[ERROR] Cannot scan DateOverride: %s\n",
				err.Error())
			return nil, err
		}

		if o.Date, err = time.ParseInLocation(common.TimestampFormatDate, day, from.Location()); err != nil {
			db.log.Printf("[ERROR] DateOverride %d has an unparseable date %q, skipping: %s\n",
				o.ID,
				day,
				err.Error())
			continue
		}

		o.Disposition = disposition.Disposition(disp)
		o.Changed = time.Unix(changed, 0)

		if !o.Disposition.Valid() {
			db.log.Printf("[ERROR] DateOverride %d has invalid disposition %d, treating as UseDefault\n",
				o.ID,
				disp)
			o.Disposition = disposition.UseDefault
		}

		list = append(list, o)
	}

	return list, nil
} // func (db *Database) OverrideGetRange(from, to time.Time) ([]objects.DateOverride, error)

// OverrideGetAll returns all DateOverrides, ordered by date.
func (db *Database) OverrideGetAll() ([]objects.DateOverride, error) {
	const qid query.ID = query.OverrideGetAll
	var (
		err  error
		stmt *sql.Stmt
	)

	if stmt, err = db.getQuery(qid); err != nil {
		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return nil, err
	} else if db.tx != nil {
		stmt = db.tx.Stmt(stmt)
	}

EXEC_QUERY:
	var rows *sql.Rows
	if rows, err = stmt.Query(); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto EXEC_QUERY
		}

		db.log.Printf("[ERROR] Cannot query all DateOverrides: %s\n",
			err.Error())
		return nil, err
	}

	defer rows.Close() // nolint: errcheck

	var list = make([]objects.DateOverride, 0, 16)

	for rows.Next() {
		var (
			o       objects.DateOverride
			day     string
			disp    int
			changed int64
		)

		if err = rows.Scan(&o.ID, &day, &disp, &o.Hour, &o.Minute, &o.UUID, &changed); err != nil {
			db.log.Printf("[ERROR] Cannot scan DateOverride: %s\n",
				err.Error())
			return nil, err
		}

		if o.Date, err = time.ParseInLocation(common.TimestampFormatDate, day, time.Local); err != nil {
			db.log.Printf("[ERROR] DateOverride %d has an unparseable date %q, skipping: %s\n",
				o.ID,
				day,
				err.Error())
			continue
		}

		o.Disposition = disposition.Disposition(disp)
		o.Changed = time.Unix(changed, 0)

		if !o.Disposition.Valid() {
			db.log.Printf("[ERROR] DateOverride %d has invalid disposition %d, treating as UseDefault\n",
				o.ID,
				disp)
			o.Disposition = disposition.UseDefault
		}

		list = append(list, o)
	}

	return list, nil
} // func (db *Database) OverrideGetAll() ([]objects.DateOverride, error)

///////////////////////////////////////////////////////////////////////////////
//// WeekdayDefault ///////////////////////////////////////////////////////////
///////////////////////////////////////////////////////////////////////////////

// DefaultUpdate persists the given WeekdayDefault. The seven records
// always exist, so there is no Add.
func (db *Database) DefaultUpdate(w *objects.WeekdayDefault) error {
	const qid query.ID = query.DefaultUpdate
	var (
		err  error
		stmt *sql.Stmt
	)

	if stmt, err = db.getQuery(qid); err != nil {
		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return err
	} else if db.tx != nil {
		stmt = db.tx.Stmt(stmt)
	}

	w.Changed = time.Now()

EXEC_QUERY:
	if _, err = stmt.Exec(
		w.Enabled,
		w.Hour,
		w.Minute,
		w.Changed.Unix(),
		w.Day); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto EXEC_QUERY
		}

		db.log.Printf("[ERROR] Cannot update WeekdayDefault %d: %s\n",
			w.Day,
			err.Error())
		return err
	}

	return nil
} // func (db *Database) DefaultUpdate(w *objects.WeekdayDefault) error

// DefaultGetByDay returns the WeekdayDefault for the given weekday
// index (Monday = 0).
func (db *Database) DefaultGetByDay(day int) (*objects.WeekdayDefault, error) {
	const qid query.ID = query.DefaultGetByDay
	var (
		err  error
		stmt *sql.Stmt
	)

	if stmt, err = db.getQuery(qid); err != nil {
		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return nil, err
	} else if db.tx != nil {
		stmt = db.tx.Stmt(stmt)
	}

EXEC_QUERY:
	var rows *sql.Rows
	if rows, err = stmt.Query(day); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto EXEC_QUERY
		}

		db.log.Printf("[ERROR] Cannot query WeekdayDefault %d: %s\n",
			day,
			err.Error())
		return nil, err
	}

	defer rows.Close() // nolint: errcheck

	if rows.Next() {
		var (
			w       = &objects.WeekdayDefault{Day: day}
			changed int64
		)

		if err = rows.Scan(&w.Enabled, &w.Hour, &w.Minute, &changed); err != nil {
			db.log.Printf("[ERROR] Cannot scan WeekdayDefault %d: %s\n",
				day,
				err.Error())
			return nil, err
		}

		w.Changed = time.Unix(changed, 0)
		return w, nil
	}

	// The row is supposed to always exist; if it does not, we hand
	// out a disabled default rather than fail the whole engine.
	db.log.Printf("[ERROR] WeekdayDefault %d is missing, using disabled default\n",
		day)
	return &objects.WeekdayDefault{Day: day, Hour: 7}, nil
} // func (db *Database) DefaultGetByDay(day int) (*objects.WeekdayDefault, error)

// DefaultGetAll returns all seven WeekdayDefaults, Monday first.
func (db *Database) DefaultGetAll() ([]objects.WeekdayDefault, error) {
	const qid query.ID = query.DefaultGetAll
	var (
		err  error
		stmt *sql.Stmt
	)

	if stmt, err = db.getQuery(qid); err != nil {
		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return nil, err
	} else if db.tx != nil {
		stmt = db.tx.Stmt(stmt)
	}

EXEC_QUERY:
	var rows *sql.Rows
	if rows, err = stmt.Query(); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto EXEC_QUERY
		}

		db.log.Printf("[ERROR] Cannot query WeekdayDefaults: %s\n",
			err.Error())
		return nil, err
	}

	defer rows.Close() // nolint: errcheck

	var list = make([]objects.WeekdayDefault, 0, 7)

	for rows.Next() {
		var (
			w       objects.WeekdayDefault
			changed int64
		)

		if err = rows.Scan(&w.Day, &w.Enabled, &w.Hour, &w.Minute, &changed); err != nil {
			db.log.Printf("[ERROR] Cannot scan WeekdayDefault: %s\n",
				err.Error())
			return nil, err
		}

		w.Changed = time.Unix(changed, 0)
		list = append(list, w)
	}

	return list, nil
} // func (db *Database) DefaultGetAll() ([]objects.WeekdayDefault, error)

///////////////////////////////////////////////////////////////////////////////
//// OneTimeAlarm /////////////////////////////////////////////////////////////
///////////////////////////////////////////////////////////////////////////////

// OnetimeAdd adds a OneTimeAlarm to the database. The timestamp is
// normalized to UTC so it survives timezone changes.
func (db *Database) OnetimeAdd(a *objects.OneTimeAlarm) error {
	const qid query.ID = query.OnetimeAdd
	var (
		err  error
		stmt *sql.Stmt
	)

	if stmt, err = db.getQuery(qid); err != nil {
		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return err
	} else if db.tx != nil {
		stmt = db.tx.Stmt(stmt)
	}

	if a.UUID == "" {
		a.UUID = common.GetUUID()
	}
	a.Timestamp = a.Timestamp.In(time.UTC)
	a.Changed = time.Now()

EXEC_QUERY:
	var res sql.Result
	if res, err = stmt.Exec(
		a.Timestamp.Unix(),
		a.Name,
		a.UUID,
		a.Changed.Unix()); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto EXEC_QUERY
		}

		db.log.Printf("[ERROR] Cannot add OneTimeAlarm %q: %s\n",
			a.Name,
			err.Error())
		return err
	}

	var id int64
	if id, err = res.LastInsertId(); err != nil {
		db.log.Printf("[ERROR] Cannot get ID of new OneTimeAlarm: %s\n",
			err.Error())
		return err
	}

	a.ID = id
	return nil
} // func (db *Database) OnetimeAdd(a *objects.OneTimeAlarm) error

// OnetimeSetConsumed flips the consumed flag of the given alarm.
func (db *Database) OnetimeSetConsumed(a *objects.OneTimeAlarm, consumed bool) error {
	const qid query.ID = query.OnetimeSetConsumed
	var (
		err  error
		stmt *sql.Stmt
	)

	if stmt, err = db.getQuery(qid); err != nil {
		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return err
	} else if db.tx != nil {
		stmt = db.tx.Stmt(stmt)
	}

	var now = time.Now()

EXEC_QUERY:
	if _, err = stmt.Exec(consumed, now.Unix(), a.ID); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto EXEC_QUERY
		}

		db.log.Printf("[ERROR] Cannot set consumed flag on OneTimeAlarm %d: %s\n",
			a.ID,
			err.Error())
		return err
	}

	a.Consumed = consumed
	a.Changed = now
	return nil
} // func (db *Database) OnetimeSetConsumed(a *objects.OneTimeAlarm, consumed bool) error

// OnetimeDelete physically removes the given alarm. Normally alarms
// are only consumed; this exists for the user explicitly cleaning up.
func (db *Database) OnetimeDelete(a *objects.OneTimeAlarm) error {
	const qid query.ID = query.OnetimeDelete
	var (
		err  error
		stmt *sql.Stmt
	)

	if stmt, err = db.getQuery(qid); err != nil {
		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return err
	} else if db.tx != nil {
		stmt = db.tx.Stmt(stmt)
	}

EXEC_QUERY:
	if _, err = stmt.Exec(a.ID); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto EXEC_QUERY
		}

		db.log.Printf("[ERROR] Cannot delete OneTimeAlarm %d: %s\n",
			a.ID,
			err.Error())
		return err
	}

	return nil
} // func (db *Database) OnetimeDelete(a *objects.OneTimeAlarm) error

// OnetimeGetPending returns all unconsumed OneTimeAlarms whose
// instant is at or after the given reference time, soonest first.
func (db *Database) OnetimeGetPending(ref time.Time) ([]objects.OneTimeAlarm, error) {
	const qid query.ID = query.OnetimeGetPending
	var (
		err  error
		stmt *sql.Stmt
	)

	if stmt, err = db.getQuery(qid); err != nil {
		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return nil, err
	} else if db.tx != nil {
		stmt = db.tx.Stmt(stmt)
	}

EXEC_QUERY:
	var rows *sql.Rows
	if rows, err = stmt.Query(ref.Unix()); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto EXEC_QUERY
		}

		db.log.Printf("[ERROR] Cannot query pending OneTimeAlarms: %s\n",
			err.Error())
		return nil, err
	}

	defer rows.Close() // nolint: errcheck

	var list = make([]objects.OneTimeAlarm, 0, 4)

	for rows.Next() {
		var (
			a              objects.OneTimeAlarm
			stamp, changed int64
		)

		if err = rows.Scan(&a.ID, &stamp, &a.Name, &a.UUID, &changed); err != nil {
			db.log.Printf("[ERROR] Cannot scan OneTimeAlarm: %s\n",
				err.Error())
			return nil, err
		}

		a.Timestamp = time.Unix(stamp, 0).In(time.UTC)
		a.Changed = time.Unix(changed, 0)
		list = append(list, a)
	}

	return list, nil
} // func (db *Database) OnetimeGetPending(ref time.Time) ([]objects.OneTimeAlarm, error)

// OnetimeGetAll returns all OneTimeAlarms, including consumed ones.
func (db *Database) OnetimeGetAll() ([]objects.OneTimeAlarm, error) {
	const qid query.ID = query.OnetimeGetAll
	var (
		err  error
		stmt *sql.Stmt
	)

	if stmt, err = db.getQuery(qid); err != nil {
		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return nil, err
	} else if db.tx != nil {
		stmt = db.tx.Stmt(stmt)
	}

EXEC_QUERY:
	var rows *sql.Rows
	if rows, err = stmt.Query(); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto EXEC_QUERY
		}

		db.log.Printf("[ERROR] Cannot query OneTimeAlarms: %s\n",
			err.Error())
		return nil, err
	}

	defer rows.Close() // nolint: errcheck

	var list = make([]objects.OneTimeAlarm, 0, 8)

	for rows.Next() {
		var (
			a              objects.OneTimeAlarm
			stamp, changed int64
		)

		if err = rows.Scan(&a.ID, &stamp, &a.Name, &a.Consumed, &a.UUID, &changed); err != nil {
			db.log.Printf("[ERROR] Cannot scan OneTimeAlarm: %s\n",
				err.Error())
			return nil, err
		}

		a.Timestamp = time.Unix(stamp, 0).In(time.UTC)
		a.Changed = time.Unix(changed, 0)
		list = append(list, a)
	}

	return list, nil
} // func (db *Database) OnetimeGetAll() ([]objects.OneTimeAlarm, error)

// OnetimeGetByID looks up a OneTimeAlarm by its ID.
func (db *Database) OnetimeGetByID(id int64) (*objects.OneTimeAlarm, error) {
	const qid query.ID = query.OnetimeGetByID
	var (
		err  error
		stmt *sql.Stmt
	)

	if stmt, err = db.getQuery(qid); err != nil {
		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return nil, err
	} else if db.tx != nil {
		stmt = db.tx.Stmt(stmt)
	}

EXEC_QUERY:
	var rows *sql.Rows
	if rows, err = stmt.Query(id); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto EXEC_QUERY
		}

		db.log.Printf("[ERROR] Cannot query OneTimeAlarm %d: %s\n",
			id,
			err.Error())
		return nil, err
	}

	defer rows.Close() // nolint: errcheck

	if rows.Next() {
		var (
			a              = &objects.OneTimeAlarm{ID: id}
			stamp, changed int64
		)

		if err = rows.Scan(&stamp, &a.Name, &a.Consumed, &a.UUID, &changed); err != nil {
			db.log.Printf("[ERROR] Cannot scan OneTimeAlarm %d: %s\n",
				id,
				err.Error())
			return nil, err
		}

		a.Timestamp = time.Unix(stamp, 0).In(time.UTC)
		a.Changed = time.Unix(changed, 0)
		return a, nil
	}

	return nil, nil
} // func (db *Database) OnetimeGetByID(id int64) (*objects.OneTimeAlarm, error)

///////////////////////////////////////////////////////////////////////////////
//// Settings /////////////////////////////////////////////////////////////////
///////////////////////////////////////////////////////////////////////////////

// SettingSet stores a key/value pair, replacing any prior value.
func (db *Database) SettingSet(key, value string) error {
	const qid query.ID = query.SettingSet
	var (
		err  error
		stmt *sql.Stmt
	)

	if stmt, err = db.getQuery(qid); err != nil {
		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return err
	} else if db.tx != nil {
		stmt = db.tx.Stmt(stmt)
	}

EXEC_QUERY:
	if _, err = stmt.Exec(key, value, time.Now().Unix()); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto EXEC_QUERY
		}

		db.log.Printf("[ERROR] Cannot set setting %s: %s\n",
			key,
			err.Error())
		return err
	}

	return nil
} // func (db *Database) SettingSet(key, value string) error

// SettingGet returns the value stored for the given key, or the empty
// string if the key is not present.
func (db *Database) SettingGet(key string) (string, error) {
	const qid query.ID = query.SettingGet
	var (
		err  error
		stmt *sql.Stmt
	)

	if stmt, err = db.getQuery(qid); err != nil {
		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return "", err
	} else if db.tx != nil {
		stmt = db.tx.Stmt(stmt)
	}

EXEC_QUERY:
	var rows *sql.Rows
	if rows, err = stmt.Query(key); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto EXEC_QUERY
		}

		db.log.Printf("[ERROR] Cannot query setting %s: %s\n",
			key,
			err.Error())
		return "", err
	}

	defer rows.Close() // nolint: errcheck

	if rows.Next() {
		var value string
		if err = rows.Scan(&value); err != nil {
			db.log.Printf("[ERROR] Cannot scan setting %s: %s\n",
				key,
				err.Error())
			return "", err
		}
		return value, nil
	}

	return "", nil
} // func (db *Database) SettingGet(key string) (string, error)

// SettingGetInt returns the setting for the given key as an integer,
// falling back to the given default if the key is absent or the value
// does not parse.
func (db *Database) SettingGetInt(key string, fallback int64) (int64, error) {
	var (
		err error
		raw string
		val int64
	)

	if raw, err = db.SettingGet(key); err != nil {
		return fallback, err
	} else if raw == "" {
		return fallback, nil
	} else if val, err = strconv.ParseInt(raw, 10, 64); err != nil {
		db.log.Printf("[ERROR] Setting %s holds garbage (%q), using default %d: %s\n",
			key,
			raw,
			fallback,
			err.Error())
		return fallback, nil
	}

	return val, nil
} // func (db *Database) SettingGetInt(key string, fallback int64) (int64, error)

///////////////////////////////////////////////////////////////////////////////
//// TrackedAlarmState ////////////////////////////////////////////////////////
///////////////////////////////////////////////////////////////////////////////

// StateSet persists the TrackedAlarmState. Phase and alarm-time
// identity are written within one transaction so a crash cannot leave
// them out of sync.
func (db *Database) StateSet(s *objects.TrackedAlarmState) error {
	var (
		err   error
		ownTx bool
		wake  int64
	)

	if db.tx == nil {
		if err = db.Begin(); err != nil {
			return err
		}
		ownTx = true
	}

	if !s.SnoozeUntil.IsZero() {
		wake = s.SnoozeUntil.Unix()
	}

	if err = db.SettingSet(keyStatePhase, strconv.Itoa(int(s.Phase))); err != nil {
		goto ROLLBACK
	} else if err = db.SettingSet(keyStateAlarmTime, strconv.FormatInt(s.AlarmTime.Unix(), 10)); err != nil {
		goto ROLLBACK
	} else if err = db.SettingSet(keyStateSnooze, strconv.FormatInt(wake, 10)); err != nil {
		goto ROLLBACK
	}

	if ownTx {
		return db.Commit()
	}
	return nil

ROLLBACK:
	if ownTx {
		if rbErr := db.Rollback(); rbErr != nil {
			db.log.Printf("[CANTHAPPEN] Cannot roll back transaction: %s\n",
				rbErr.Error())
		}
	}
	return err
} // func (db *Database) StateSet(s *objects.TrackedAlarmState) error

// StateGet reads the TrackedAlarmState back. A missing or damaged
// record reads as Undefined, never as an error that would stall the
// engine.
func (db *Database) StateGet() (*objects.TrackedAlarmState, error) {
	var (
		err              error
		rawPhase         string
		pVal, tVal, sVal int64
		s                = &objects.TrackedAlarmState{}
	)

	if rawPhase, err = db.SettingGet(keyStatePhase); err != nil {
		return nil, err
	} else if rawPhase == "" {
		return s, nil
	}

	if pVal, err = strconv.ParseInt(rawPhase, 10, 8); err != nil || !phase.Phase(pVal).Valid() {
		db.log.Printf("[ERROR] Persisted phase is damaged (%q), resetting to Undefined\n",
			rawPhase)
		return &objects.TrackedAlarmState{}, nil
	}

	if tVal, err = db.SettingGetInt(keyStateAlarmTime, 0); err != nil {
		return nil, err
	} else if sVal, err = db.SettingGetInt(keyStateSnooze, 0); err != nil {
		return nil, err
	}

	s.Phase = phase.Phase(pVal)
	s.AlarmTime = time.Unix(tVal, 0).In(time.UTC)

	if sVal != 0 {
		s.SnoozeUntil = time.Unix(sVal, 0).In(time.UTC)
	}

	return s, nil
} // func (db *Database) StateGet() (*objects.TrackedAlarmState, error)

///////////////////////////////////////////////////////////////////////////////
//// Advisory bookkeeping /////////////////////////////////////////////////////
///////////////////////////////////////////////////////////////////////////////

// AdvisorySetLast stores the begin time of the appointment that
// triggered the most recent advisory, plus what was done about it.
func (db *Database) AdvisorySetLast(begin time.Time, action string) error {
	var err error

	if err = db.SettingSet(keyAdvisoryBegin, strconv.FormatInt(begin.Unix(), 10)); err != nil {
		return err
	}

	return db.SettingSet(keyAdvisoryAction, action)
} // func (db *Database) AdvisorySetLast(begin time.Time, action string) error

// AdvisoryGetLast returns the bookkeeping stored by AdvisorySetLast.
// A zero time means no advisory has been raised so far.
func (db *Database) AdvisoryGetLast() (time.Time, string, error) {
	var (
		err    error
		stamp  int64
		action string
	)

	if stamp, err = db.SettingGetInt(keyAdvisoryBegin, 0); err != nil {
		return time.Time{}, "", err
	} else if action, err = db.SettingGet(keyAdvisoryAction); err != nil {
		return time.Time{}, "", err
	}

	if stamp == 0 {
		return time.Time{}, action, nil
	}

	return time.Unix(stamp, 0), action, nil
} // func (db *Database) AdvisoryGetLast() (time.Time, string, error)

///////////////////////////////////////////////////////////////////////////////
//// SkippedAlarm /////////////////////////////////////////////////////////////
///////////////////////////////////////////////////////////////////////////////

// SkippedAdd records an occurrence that got superseded while still
// ringing or snoozed.
func (db *Database) SkippedAdd(alarmTime time.Time, p phase.Phase) error {
	const qid query.ID = query.SkippedAdd
	var (
		err  error
		stmt *sql.Stmt
	)

	if stmt, err = db.getQuery(qid); err != nil {
		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return err
	} else if db.tx != nil {
		stmt = db.tx.Stmt(stmt)
	}

EXEC_QUERY:
	if _, err = stmt.Exec(alarmTime.Unix(), p, time.Now().Unix()); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto EXEC_QUERY
		}

		db.log.Printf("[ERROR] Cannot record skipped alarm at %s: %s\n",
			alarmTime.Format(common.TimestampFormat),
			err.Error())
		return err
	}

	return nil
} // func (db *Database) SkippedAdd(alarmTime time.Time, p phase.Phase) error

// SkippedGetRecent returns the most recently recorded skipped alarms.
func (db *Database) SkippedGetRecent(limit int) ([]objects.SkippedAlarm, error) {
	const qid query.ID = query.SkippedGetRecent
	var (
		err  error
		stmt *sql.Stmt
	)

	if stmt, err = db.getQuery(qid); err != nil {
		db.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return nil, err
	} else if db.tx != nil {
		stmt = db.tx.Stmt(stmt)
	}

EXEC_QUERY:
	var rows *sql.Rows
	if rows, err = stmt.Query(limit); err != nil {
		if worthARetry(err) {
			waitForRetry()
			goto EXEC_QUERY
		}

		db.log.Printf("[ERROR] Cannot query skipped alarms: %s\n",
			err.Error())
		return nil, err
	}

	defer rows.Close() // nolint: errcheck

	var list = make([]objects.SkippedAlarm, 0, limit)

	for rows.Next() {
		var (
			s            objects.SkippedAlarm
			p            int
			stamp, noted int64
		)

		if err = rows.Scan(&s.ID, &stamp, &p, &noted); err != nil {
			db.log.Printf("[ERROR] Cannot scan skipped alarm: %s\n",
				err.Error())
			return nil, err
		}

		s.AlarmTime = time.Unix(stamp, 0)
		s.Phase = phase.Phase(p)
		s.Noted = time.Unix(noted, 0)
		list = append(list, s)
	}

	return list, nil
} // func (db *Database) SkippedGetRecent(limit int) ([]objects.SkippedAlarm, error)
