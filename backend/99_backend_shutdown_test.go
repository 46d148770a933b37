// /home/krylon/go/src/github.com/blicero/wecker/backend/99_backend_shutdown_test.go
// -*- mode: go; coding: utf-8; -*-
// Created on 09. 04. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-15 22:12:40 krylon>

package backend

import "testing"

func TestBanish(t *testing.T) {
	if back == nil {
		t.SkipNow()
	} else if !back.IsAlive() {
		t.SkipNow()
	}

	var err error

	if err = back.Banish(); err != nil {
		t.Errorf("Failed to banish Daemon: %s", err.Error())
	}
} // func TestBanish(t *testing.T)
