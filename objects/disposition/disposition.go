// /home/krylon/go/src/github.com/blicero/wecker/objects/disposition/disposition.go
// -*- mode: go; coding: utf-8; -*-
// Created on 05. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-03-05 17:12:44 krylon>

//go:generate stringer -type=Disposition

// Package disposition contains symbolic constants to specify what a
// DateOverride does to the day it is attached to.
package disposition

// Disposition describes the effect of a DateOverride.
type Disposition uint8

// UseDefault means the day falls through to its WeekdayDefault.
// Enabled means the override's own time is used.
// Disabled means no recurring alarm goes off on that day at all.
const (
	UseDefault Disposition = iota
	Enabled
	Disabled
)

// Valid returns true if the receiver is one of the defined constants.
func (d Disposition) Valid() bool {
	return d <= Disabled
} // func (d Disposition) Valid() bool
