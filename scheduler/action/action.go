// /home/krylon/go/src/github.com/blicero/wecker/scheduler/action/action.go
// -*- mode: go; coding: utf-8; -*-
// Created on 12. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-02 21:40:11 krylon>

//go:generate stringer -type=Action

// Package action contains symbolic constants for the tags carried by
// timer registrations, i.e. what is supposed to happen when a timer
// fires.
package action

// Action describes what a timer firing means.
type Action uint8

// Rescan means no occurrence was within the horizon, look again.
// EnterNearFuture means the next occurrence's near-future window
// begins, arm the pre-alert.
// Ring means the occurrence is due.
const (
	Rescan Action = iota
	EnterNearFuture
	Ring
)
