// /home/krylon/go/src/github.com/blicero/wecker/logdomain/logdomain.go
// -*- mode: go; coding: utf-8; -*-
// Created on 04. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-03-04 18:55:31 krylon>

// Package logdomain provides symbolic constants to identify the
// various "areas" of the application that perform logging.
package logdomain

//go:generate stringer -type=ID

// ID represents an area of concern.
type ID uint8

// These constants identify the various log sources.
const (
	Common ID = iota
	Backend
	Client
	Database
	DBPool
	Resolver
	Scheduler
	Lifecycle
	Advisory
	Holiday
	Calendar
)

// DomainCount is the number of log domains.
const DomainCount = int(Calendar) + 1

// AllDomains returns a slice of all the known log sources.
func AllDomains() []ID {
	return []ID{
		Common,
		Backend,
		Client,
		Database,
		DBPool,
		Resolver,
		Scheduler,
		Lifecycle,
		Advisory,
		Holiday,
		Calendar,
	}
} // func AllDomains() []ID
