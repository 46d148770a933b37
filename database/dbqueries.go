// /home/krylon/go/src/github.com/blicero/wecker/database/dbqueries.go
// -*- mode: go; coding: utf-8; -*-
// Created on 05. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-08 17:22:05 krylon>

package database

import "github.com/blicero/wecker/database/query"

var dbQueries = map[query.ID]string{
	query.OverrideAdd: `
INSERT INTO override (day, disposition, hour, minute, uuid, changed)
VALUES               (  ?,           ?,    ?,      ?,    ?,       ?)
`,
	query.OverrideUpdate: `
UPDATE override
SET disposition = ?, hour = ?, minute = ?, changed = ?
WHERE id = ?
`,
	query.OverrideDelete: "DELETE FROM override WHERE id = ?",
	query.OverrideGetByDate: `
SELECT
    id,
    disposition,
    hour,
    minute,
    uuid,
    changed
FROM override
WHERE day = ?
`,
	query.OverrideGetRange: `
SELECT
    id,
    day,
    disposition,
    hour,
    minute,
    uuid,
    changed
FROM override
WHERE day >= ? AND day < ?
ORDER BY day
`,
	query.OverrideGetAll: `
SELECT
    id,
    day,
    disposition,
    hour,
    minute,
    uuid,
    changed
FROM override
ORDER BY day
`,
	query.DefaultUpdate: `
UPDATE weekday_default
SET enabled = ?, hour = ?, minute = ?, changed = ?
WHERE day = ?
`,
	query.DefaultGetByDay: `
SELECT
    enabled,
    hour,
    minute,
    changed
FROM weekday_default
WHERE day = ?
`,
	query.DefaultGetAll: `
SELECT
    day,
    enabled,
    hour,
    minute,
    changed
FROM weekday_default
ORDER BY day
`,
	query.OnetimeAdd: `
INSERT INTO onetime (timestamp, name, uuid, changed)
VALUES              (        ?,    ?,    ?,       ?)
`,
	query.OnetimeSetConsumed: `
UPDATE onetime
SET consumed = ?, changed = ?
WHERE id = ?
`,
	query.OnetimeDelete: "DELETE FROM onetime WHERE id = ?",
	query.OnetimeGetPending: `
SELECT
    id,
    timestamp,
    name,
    uuid,
    changed
FROM onetime
WHERE consumed = 0 AND timestamp >= ?
ORDER BY timestamp, id
`,
	query.OnetimeGetAll: `
SELECT
    id,
    timestamp,
    name,
    consumed,
    uuid,
    changed
FROM onetime
ORDER BY timestamp, id
`,
	query.OnetimeGetByID: `
SELECT
    timestamp,
    name,
    consumed,
    uuid,
    changed
FROM onetime
WHERE id = ?
`,
	query.SettingSet: `
INSERT INTO setting (key, value, changed)
VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, changed = excluded.changed
`,
	query.SettingGet: "SELECT value FROM setting WHERE key = ?",
	query.SkippedAdd: `
INSERT INTO skipped_alarm (alarm_time, phase, noted)
VALUES                    (         ?,     ?,     ?)
`,
	query.SkippedGetRecent: `
SELECT
    id,
    alarm_time,
    phase,
    noted
FROM skipped_alarm
ORDER BY noted DESC
LIMIT ?
`,
}
