// /home/krylon/go/src/github.com/blicero/wecker/objects/notification.go
// -*- mode: go; coding: utf-8; -*-
// Created on 05. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-03-11 18:20:02 krylon>

package objects

import "time"

// Notification is the common interface for items the user should be
// notified about.
type Notification interface {
	Due() time.Time
	IsDue() bool
	Payload() (string, string)
}
