// /home/krylon/go/src/github.com/blicero/wecker/database/initqueries.go
// -*- mode: go; coding: utf-8; -*-
// Created on 05. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-02 20:31:19 krylon>

package database

var initQueries = []string{
	`
CREATE TABLE override (
    id          INTEGER PRIMARY KEY,
    day         TEXT UNIQUE NOT NULL,
    disposition INTEGER NOT NULL DEFAULT 0,
    hour        INTEGER NOT NULL DEFAULT 0,
    minute      INTEGER NOT NULL DEFAULT 0,
    uuid        TEXT UNIQUE NOT NULL,
    changed     INTEGER NOT NULL,
    CHECK (disposition BETWEEN 0 AND 2),
    CHECK (hour BETWEEN 0 AND 23),
    CHECK (minute BETWEEN 0 AND 59)
)
`,
	"CREATE INDEX override_day_idx ON override (day)",
	`
CREATE TABLE weekday_default (
    day     INTEGER PRIMARY KEY,
    enabled INTEGER NOT NULL DEFAULT 0,
    hour    INTEGER NOT NULL DEFAULT 7,
    minute  INTEGER NOT NULL DEFAULT 0,
    changed INTEGER NOT NULL,
    CHECK (day BETWEEN 0 AND 6),
    CHECK (hour BETWEEN 0 AND 23),
    CHECK (minute BETWEEN 0 AND 59)
)
`,
	// The seven defaults always exist, one per weekday, Monday first.
	`
INSERT INTO weekday_default (day, enabled, hour, minute, changed)
VALUES (0, 0, 7, 0, strftime('%s', 'now')),
       (1, 0, 7, 0, strftime('%s', 'now')),
       (2, 0, 7, 0, strftime('%s', 'now')),
       (3, 0, 7, 0, strftime('%s', 'now')),
       (4, 0, 7, 0, strftime('%s', 'now')),
       (5, 0, 7, 0, strftime('%s', 'now')),
       (6, 0, 7, 0, strftime('%s', 'now'))
`,
	`
CREATE TABLE onetime (
    id        INTEGER PRIMARY KEY,
    timestamp INTEGER NOT NULL,
    name      TEXT NOT NULL DEFAULT '',
    consumed  INTEGER NOT NULL DEFAULT 0,
    uuid      TEXT UNIQUE NOT NULL,
    changed   INTEGER NOT NULL
)
`,
	"CREATE INDEX onetime_timestamp_idx ON onetime (timestamp)",
	"CREATE INDEX onetime_consumed_idx ON onetime (consumed)",
	`
CREATE TABLE setting (
    key     TEXT PRIMARY KEY,
    value   TEXT NOT NULL,
    changed INTEGER NOT NULL
)
`,
	`
CREATE TABLE skipped_alarm (
    id         INTEGER PRIMARY KEY,
    alarm_time INTEGER NOT NULL,
    phase      INTEGER NOT NULL,
    noted      INTEGER NOT NULL
)
`,
	"CREATE INDEX skipped_noted_idx ON skipped_alarm (noted)",
}
