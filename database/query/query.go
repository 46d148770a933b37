// /home/krylon/go/src/github.com/blicero/wecker/database/query/query.go
// -*- mode: go; coding: utf-8; -*-
// Created on 05. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-02 20:14:48 krylon>

// Package query provides symbolic constants for identifying SQL queries.
package query

//go:generate stringer -type=ID

type ID uint8

const (
	OverrideAdd ID = iota
	OverrideUpdate
	OverrideDelete
	OverrideGetByDate
	OverrideGetRange
	OverrideGetAll
	DefaultUpdate
	DefaultGetByDay
	DefaultGetAll
	OnetimeAdd
	OnetimeSetConsumed
	OnetimeDelete
	OnetimeGetPending
	OnetimeGetAll
	OnetimeGetByID
	SettingSet
	SettingGet
	SkippedAdd
	SkippedGetRecent
)
