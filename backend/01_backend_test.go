// /home/krylon/go/src/github.com/blicero/wecker/backend/01_backend_test.go
// -*- mode: go; coding: utf-8; -*-
// Created on 09. 04. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-15 22:10:03 krylon>

package backend

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/blicero/wecker/common"
	"github.com/blicero/wecker/objects"
	"github.com/blicero/wecker/objects/disposition"
	"github.com/pquerna/ffjson/ffjson"
)

var (
	back     *Daemon
	testAddr = fmt.Sprintf("[::1]:%d", common.DefaultPort+17)
)

func TestMain(m *testing.M) {
	var baseDir = time.Now().Format("/tmp/wecker_backend_test_20060102_150405")

	if err := common.SetBaseDir(baseDir); err != nil {
		fmt.Printf("Cannot set base directory to %s: %s\n",
			baseDir,
			err.Error())
		os.Exit(1)
	}

	var result = m.Run()

	os.RemoveAll(baseDir) // nolint: errcheck
	os.Exit(result)
} // func TestMain(m *testing.M)

func TestSummon(t *testing.T) {
	var err error

	if back, err = Summon(testAddr); err != nil {
		back = nil
		// Most likely there is no session bus around, e.g. on a
		// headless builder.
		t.Skipf("Cannot summon Daemon: %s",
			err.Error())
	}

	// Give the web server a moment to come up.
	time.Sleep(time.Millisecond * 50)
} // func TestSummon(t *testing.T)

func TestNotify(t *testing.T) {
	if back == nil {
		t.SkipNow()
	}

	var (
		err error
		occ = &objects.Occurrence{
			Kind:      objects.OneTime,
			Timestamp: time.Now(),
			Name:      "Testing, one, two",
		}
	)

	if err = back.notify(occ); err != nil {
		t.Errorf("Cannot send notification via DBus: %s",
			err.Error())
	}
} // func TestNotify(t *testing.T)

func TestOverrideRoundTrip(t *testing.T) {
	if back == nil {
		t.SkipNow()
	}

	var (
		err      error
		res      *http.Response
		response objects.Response
		date     = time.Now().AddDate(0, 0, 3)
		dstr     = date.Format(common.TimestampFormatDate)
		buf      [4096]byte
	)

	if res, err = http.PostForm(
		fmt.Sprintf("http://%s/override/set", testAddr),
		url.Values{
			"date":        {dstr},
			"disposition": {fmt.Sprintf("%d", disposition.Enabled)},
			"hour":        {"6"},
			"minute":      {"15"},
		}); err != nil {
		t.Fatalf("Cannot POST override: %s",
			err.Error())
	}

	defer res.Body.Close() // nolint: errcheck

	var n int

	if n, err = res.Body.Read(buf[:]); err != nil && n == 0 {
		t.Fatalf("Cannot read response: %s",
			err.Error())
	} else if err = ffjson.Unmarshal(buf[:n], &response); err != nil {
		t.Fatalf("Cannot parse response %q: %s",
			buf[:n],
			err.Error())
	} else if !response.Status {
		t.Fatalf("Setting the override failed: %s",
			response.Message)
	}

	// The resolver must see it.
	if res, err = http.Get(fmt.Sprintf("http://%s/resolve/%s", testAddr, dstr)); err != nil {
		t.Fatalf("Cannot GET resolved day: %s",
			err.Error())
	}

	defer res.Body.Close() // nolint: errcheck

	var day objects.ResolvedDay

	if n, err = res.Body.Read(buf[:]); err != nil && n == 0 {
		t.Fatalf("Cannot read response: %s",
			err.Error())
	} else if err = ffjson.Unmarshal(buf[:n], &day); err != nil {
		t.Fatalf("Cannot parse ResolvedDay %q: %s",
			buf[:n],
			err.Error())
	} else if !day.Enabled || day.Hour != 6 || day.Minute != 15 {
		t.Errorf("Resolved day does not reflect the override: %s",
			&day)
	} else if !day.FromOverride {
		t.Errorf("Resolved day should come from the override: %s",
			&day)
	}
} // func TestOverrideRoundTrip(t *testing.T)

func TestPhaseEndpoint(t *testing.T) {
	if back == nil {
		t.SkipNow()
	}

	var (
		err error
		res *http.Response
		buf [4096]byte
	)

	if res, err = http.Get(fmt.Sprintf("http://%s/alarm/phase", testAddr)); err != nil {
		t.Fatalf("Cannot GET phase: %s",
			err.Error())
	}

	defer res.Body.Close() // nolint: errcheck

	var status struct {
		Phase     string
		AlarmTime time.Time
	}

	var n int

	if n, err = res.Body.Read(buf[:]); err != nil && n == 0 {
		t.Fatalf("Cannot read response: %s",
			err.Error())
	} else if err = ffjson.Unmarshal(buf[:n], &status); err != nil {
		t.Fatalf("Cannot parse phase %q: %s",
			buf[:n],
			err.Error())
	} else if status.Phase == "" {
		t.Error("Phase endpoint returned an empty phase")
	}
} // func TestPhaseEndpoint(t *testing.T)

func TestAdvisoryEndpoints(t *testing.T) {
	if back == nil {
		t.SkipNow()
	}

	// The test Daemon has no appointment calendar configured, so the
	// decision endpoints must answer with a proper refusal rather than
	// a 404.
	var paths = []string{
		"/advisory/accept",
		"/advisory/decline",
	}

	for _, path := range paths {
		var (
			err      error
			res      *http.Response
			response objects.Response
			buf      [4096]byte
		)

		if res, err = http.PostForm(
			fmt.Sprintf("http://%s%s", testAddr, path),
			url.Values{}); err != nil {
			t.Fatalf("Cannot POST to %s: %s",
				path,
				err.Error())
		}

		var n int

		if n, err = res.Body.Read(buf[:]); err != nil && n == 0 {
			t.Fatalf("Cannot read response from %s: %s",
				path,
				err.Error())
		} else if err = ffjson.Unmarshal(buf[:n], &response); err != nil {
			t.Fatalf("Cannot parse response from %s %q: %s",
				path,
				buf[:n],
				err.Error())
		} else if response.Status {
			t.Errorf("Decision on %s should be refused without a calendar",
				path)
		} else if response.Message != "No appointment calendar is configured" {
			t.Errorf("Unexpected refusal from %s: %q",
				path,
				response.Message)
		}

		res.Body.Close() // nolint: errcheck
	}
} // func TestAdvisoryEndpoints(t *testing.T)
