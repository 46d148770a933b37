// /home/krylon/go/src/github.com/blicero/wecker/objects/phase/phase.go
// -*- mode: go; coding: utf-8; -*-
// Created on 05. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-04-29 14:03:21 krylon>

//go:generate stringer -type=Phase

// Package phase contains symbolic constants to describe the
// disposition of the alarm occurrence currently being tracked.
package phase

// Phase is the state of the tracked alarm occurrence.
type Phase uint8

// Undefined is the initial/reset state, nothing is being tracked.
// Future means an occurrence is coming up and has entered the
// near-future window.
// Ringing and Snoozed should be self-explanatory.
// Dismissed is the regular terminal state.
// DismissedBeforeRinging is the terminal state of an occurrence the
// user struck down before it ever rang.
const (
	Undefined Phase = iota
	Future
	Ringing
	Snoozed
	Dismissed
	DismissedBeforeRinging
)

// Terminal returns true if no further transitions are expected for
// the tracked occurrence.
func (p Phase) Terminal() bool {
	return p == Dismissed || p == DismissedBeforeRinging
} // func (p Phase) Terminal() bool

// Active returns true if the tracked occurrence currently demands the
// user's attention.
func (p Phase) Active() bool {
	return p == Ringing || p == Snoozed
} // func (p Phase) Active() bool

// Valid returns true if the receiver is one of the defined constants.
func (p Phase) Valid() bool {
	return p <= DismissedBeforeRinging
} // func (p Phase) Valid() bool
