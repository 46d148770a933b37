// /home/krylon/go/src/github.com/blicero/wecker/clients/alarmctl/main.go
// -*- mode: go; coding: utf-8; -*-
// Created on 12. 07. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-16 19:21:37 krylon>

// alarmctl is a small command line client to talk to the alarm daemon.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/blicero/wecker/clients/clientlib"
	"github.com/blicero/wecker/common"
)

func main() {
	var (
		err                error
		c                  *clientlib.Client
		srv, cmd, name, ts string
		minutes            int
	)

	flag.StringVar(
		&srv,
		"server",
		fmt.Sprintf("localhost:%d", common.DefaultPort),
		"Address of the alarm daemon")
	flag.StringVar(
		&cmd,
		"cmd",
		"phase",
		"Command to run (phase, next, dismiss, dismissbefore, snooze, add, accept, decline)")
	flag.StringVar(
		&name,
		"name",
		"",
		"Name for a one-time alarm (cmd=add)")
	flag.StringVar(
		&ts,
		"time",
		"",
		"Timestamp for a one-time alarm, RFC3339 (cmd=add)")
	flag.IntVar(
		&minutes,
		"minutes",
		0,
		"Snooze duration in minutes, 0 = daemon default (cmd=snooze)")

	flag.Parse()

	if c, err = clientlib.NewClient(srv); err != nil {
		fmt.Fprintf(
			os.Stderr,
			"Cannot create Client: %s\n",
			err.Error())
		os.Exit(1)
	}

	switch cmd {
	case "phase":
		var (
			p     string
			stamp time.Time
		)

		if p, stamp, err = c.GetPhase(); err != nil {
			break
		} else if stamp.IsZero() {
			fmt.Printf("Phase: %s\n", p)
		} else {
			fmt.Printf("Phase: %s (%s)\n",
				p,
				stamp.Format(common.TimestampFormat))
		}
	case "next":
		var occ, nerr = c.GetNextOccurrence()
		err = nerr
		if err == nil {
			if occ == nil {
				fmt.Println("No alarm is coming up.")
			} else {
				var head, body = occ.Payload()
				fmt.Printf("%s: %s\n",
					head,
					body)
			}
		}
	case "dismiss":
		err = c.Dismiss()
	case "dismissbefore":
		err = c.DismissAhead()
	case "snooze":
		err = c.Snooze(minutes)
	case "accept":
		err = c.AcceptAdvisory()
	case "decline":
		err = c.DeclineAdvisory()
	case "add":
		var stamp time.Time

		if ts == "" {
			fmt.Fprintln(os.Stderr, "add needs a -time argument")
			os.Exit(1)
		} else if stamp, err = time.Parse(time.RFC3339, ts); err != nil {
			fmt.Fprintf(
				os.Stderr,
				"Cannot parse timestamp %q: %s\n",
				ts,
				err.Error())
			os.Exit(1)
		}

		err = c.AddOneTimeAlarm(stamp, name)
	default:
		fmt.Fprintf(
			os.Stderr,
			"Unknown command %q\n",
			cmd)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(
			os.Stderr,
			"Command %s failed: %s\n",
			cmd,
			err.Error())
		os.Exit(1)
	}
}
