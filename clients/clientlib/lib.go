// /home/krylon/go/src/github.com/blicero/wecker/clients/clientlib/lib.go
// -*- mode: go; coding: utf-8; -*-
// Created on 11. 07. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-16 18:47:21 krylon>

// Package clientlib provides the basic framework for building
// clients that talk to the alarm daemon.
package clientlib

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/blicero/wecker/common"
	"github.com/blicero/wecker/logdomain"
	"github.com/blicero/wecker/objects"
	"github.com/pquerna/ffjson/ffjson"
)

const (
	onetimeAddPath = "/onetime/add"
	dismissPath    = "/alarm/dismiss"
	dismissAhead   = "/alarm/dismissbefore"
	snoozePath     = "/alarm/snooze"
	phasePath      = "/alarm/phase"
	nextPath       = "/alarm/next"
	acceptPath     = "/advisory/accept"
	declinePath    = "/advisory/decline"
)

// Client implements the fundamental communication with the Daemon.
type Client struct {
	Server *url.URL
	Client http.Client
	log    *log.Logger
}

// NewClient creates a new Client.
func NewClient(srv string) (*Client, error) {
	var (
		err error
		c   = &Client{
			Client: http.Client{
				Timeout: time.Second * 10,
			},
		}
	)

	if c.log, err = common.GetLogger(logdomain.Client); err != nil {
		fmt.Fprintf(
			os.Stderr,
			"Cannot create Logger: %s\n",
			err.Error())
		return nil, err
	} else if c.Server, err = url.Parse(srv); err != nil {
		c.log.Printf("[ERROR] Cannot parse URL %q: %s\n",
			srv,
			err.Error())
		return nil, err
	}

	c.Server.Scheme = "http"

	return c, nil
} // func NewClient(srv string) (*Client, error)

func (c *Client) GetLogger() *log.Logger {
	return c.log
} // func (c *Client) GetLogger() *log.Logger

func (c *Client) addr(path string) string {
	var u = *c.Server
	u.Path = path
	return u.String()
} // func (c *Client) addr(path string) string

// postForm POSTs the given values to the given path on the Daemon
// and parses the Response.
func (c *Client) postForm(path string, values url.Values) (*objects.Response, error) {
	var (
		err    error
		msg    string
		rcvBuf bytes.Buffer
		hres   *http.Response
		ores   objects.Response
		uri    = c.addr(path)
	)

	if hres, err = c.Client.PostForm(uri, values); err != nil {
		c.log.Printf("[ERROR] Failed to POST to %s: %s\n",
			uri,
			err.Error())
		return nil, err
	} else if hres.StatusCode != http.StatusOK {
		msg = fmt.Sprintf("Unexpected status from %s: %s",
			uri,
			hres.Status)
		c.log.Printf("[ERROR] %s\n", msg)
		return nil, errors.New(msg)
	} else if _, err = io.Copy(&rcvBuf, hres.Body); err != nil {
		c.log.Printf("[ERROR] Failed to read Response body from %s: %s\n",
			uri,
			err.Error())
		return nil, err
	} else if err = ffjson.Unmarshal(rcvBuf.Bytes(), &ores); err != nil {
		c.log.Printf("[ERROR] Cannot de-serialize Response from %s: %s\n",
			uri,
			err.Error())
		return nil, err
	} else if !ores.Status {
		err = fmt.Errorf("Request to %s failed: %s",
			uri,
			ores.Message)
		c.log.Printf("[ERROR] %s\n",
			err.Error())
		return nil, err
	}

	c.log.Printf("[DEBUG] Request to %s was successful: %s\n",
		uri,
		ores.Message)

	return &ores, nil
} // func (c *Client) postForm(path string, values url.Values) (*objects.Response, error)

// AddOneTimeAlarm registers a single non-repeating alarm with the Daemon.
func (c *Client) AddOneTimeAlarm(timestamp time.Time, name string) error {
	var values = url.Values{
		"name": {name},
		"time": {timestamp.Format(time.RFC3339)},
	}

	var _, err = c.postForm(onetimeAddPath, values)
	return err
} // func (c *Client) AddOneTimeAlarm(timestamp time.Time, name string) error

// Dismiss tells the Daemon to silence the currently ringing or snoozed alarm.
func (c *Client) Dismiss() error {
	var _, err = c.postForm(dismissPath, url.Values{})
	return err
} // func (c *Client) Dismiss() error

// DismissAhead tells the Daemon to skip the upcoming alarm before it rings.
func (c *Client) DismissAhead() error {
	var _, err = c.postForm(dismissAhead, url.Values{})
	return err
} // func (c *Client) DismissAhead() error

// Snooze tells the Daemon to pause the ringing alarm for the given
// number of minutes. Zero means the Daemon's configured default.
func (c *Client) Snooze(minutes int) error {
	var values = url.Values{}

	if minutes > 0 {
		values["minutes"] = []string{fmt.Sprintf("%d", minutes)}
	}

	var _, err = c.postForm(snoozePath, values)
	return err
} // func (c *Client) Snooze(minutes int) error

// AcceptAdvisory accepts the pending appointment advisory, quick-setting
// tomorrow's alarm to the advisory's target time.
func (c *Client) AcceptAdvisory() error {
	var _, err = c.postForm(acceptPath, url.Values{})
	return err
} // func (c *Client) AcceptAdvisory() error

// DeclineAdvisory declines the pending appointment advisory, leaving
// the alarm alone.
func (c *Client) DeclineAdvisory() error {
	var _, err = c.postForm(declinePath, url.Values{})
	return err
} // func (c *Client) DeclineAdvisory() error

// GetPhase asks the Daemon which phase the tracked alarm is in.
func (c *Client) GetPhase() (string, time.Time, error) {
	var (
		err    error
		hres   *http.Response
		rcvBuf bytes.Buffer
		uri    = c.addr(phasePath)
		status struct {
			Phase     string
			AlarmTime time.Time
		}
	)

	if hres, err = c.Client.Get(uri); err != nil {
		c.log.Printf("[ERROR] Failed to GET %s: %s\n",
			uri,
			err.Error())
		return "", time.Time{}, err
	} else if hres.StatusCode != http.StatusOK {
		err = fmt.Errorf("Unexpected status from %s: %s",
			uri,
			hres.Status)
		c.log.Printf("[ERROR] %s\n", err.Error())
		return "", time.Time{}, err
	} else if _, err = io.Copy(&rcvBuf, hres.Body); err != nil {
		c.log.Printf("[ERROR] Failed to read body from %s: %s\n",
			uri,
			err.Error())
		return "", time.Time{}, err
	} else if err = ffjson.Unmarshal(rcvBuf.Bytes(), &status); err != nil {
		c.log.Printf("[ERROR] Cannot de-serialize phase from %s: %s\n",
			uri,
			err.Error())
		return "", time.Time{}, err
	}

	return status.Phase, status.AlarmTime, nil
} // func (c *Client) GetPhase() (string, time.Time, error)

// GetNextOccurrence asks the Daemon for the next time an alarm is
// going to ring. A nil Occurrence means no alarm is coming up.
func (c *Client) GetNextOccurrence() (*objects.Occurrence, error) {
	var (
		err    error
		hres   *http.Response
		rcvBuf bytes.Buffer
		occ    objects.Occurrence
		uri    = c.addr(nextPath)
	)

	if hres, err = c.Client.Get(uri); err != nil {
		c.log.Printf("[ERROR] Failed to GET %s: %s\n",
			uri,
			err.Error())
		return nil, err
	} else if hres.StatusCode == http.StatusNoContent {
		return nil, nil
	} else if hres.StatusCode != http.StatusOK {
		err = fmt.Errorf("Unexpected status from %s: %s",
			uri,
			hres.Status)
		c.log.Printf("[ERROR] %s\n", err.Error())
		return nil, err
	} else if _, err = io.Copy(&rcvBuf, hres.Body); err != nil {
		c.log.Printf("[ERROR] Failed to read body from %s: %s\n",
			uri,
			err.Error())
		return nil, err
	} else if err = ffjson.Unmarshal(rcvBuf.Bytes(), &occ); err != nil {
		c.log.Printf("[ERROR] Cannot de-serialize Occurrence from %s: %s\n",
			uri,
			err.Error())
		return nil, err
	}

	return &occ, nil
} // func (c *Client) GetNextOccurrence() (*objects.Occurrence, error)
