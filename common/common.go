// /home/krylon/go/src/github.com/blicero/wecker/common/common.go
// -*- mode: go; coding: utf-8; -*-
// Created on 04. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-06-18 21:44:10 krylon>

// Package common provides constants and utility functions
// used throughout the application.
package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blicero/krylib"
	"github.com/blicero/wecker/logdomain"
	"github.com/hashicorp/logutils"
	"github.com/odeke-em/go-uuid"
)

//go:generate ./build_time_stamp.pl

// AppName is the name the application identifies itself by,
// Version is the version number, BuildStamp the time at which
// the running binary was built.
const (
	AppName    = "Wecker"
	Version    = "0.4.2"
	TimeFormat = "2006-01-02 15:04:05"
	DebugBuild = true
)

// Time stamp formats for displaying and parsing timestamps.
const (
	TimestampFormat          = "2006-01-02 15:04:05"
	TimestampFormatMinute    = "2006-01-02 15:04"
	TimestampFormatSubSecond = "2006-01-02 15:04:05.0000 MST"
	TimestampFormatTime      = "15:04:05"
	TimestampFormatDate      = "2006-01-02"
)

// DefaultPort is the TCP port the backend listens on by default.
const DefaultPort = 7202

// Defaults for the user-tunable engine parameters. The authoritative
// values live in the settings table in the database; these are the
// fallbacks for a fresh or damaged installation.
const (
	DefaultLeadTime    = time.Hour * 2
	DefaultSnooze      = time.Minute * 10
	DefaultHorizonDays = 30
	DefaultAdvisoryGap = time.Minute * 60
	DefaultCheckTime   = "21:00"
	MinTimerDelay      = time.Second
)

// BuildStamp is the time when the application was built.
var BuildStamp = time.Date(2023, 6, 18, 21, 30, 0, 0, time.UTC)

// BaseDir is the folder where all application-specific files
// (database, log, holiday files) are stored.
var BaseDir = filepath.Join(
	os.Getenv("HOME"),
	fmt.Sprintf(".%s.d", strings.ToLower(AppName)))

// LogPath is the file to which the log is written.
var LogPath = filepath.Join(BaseDir, strings.ToLower(AppName)+".log")

// DbPath is the path of the database.
var DbPath = filepath.Join(BaseDir, strings.ToLower(AppName)+".db")

// HolidayPath is the path of the optional holiday region file.
var HolidayPath = filepath.Join(BaseDir, "holidays.yaml")

// MinLogLevel is the minimum level of log messages that actually get
// written out.
var MinLogLevel logutils.LogLevel = "TRACE"

// PackageLevels defines minimum log levels per package.
var PackageLevels = func() (m map[logdomain.ID]logutils.LogLevel) {
	m = make(map[logdomain.ID]logutils.LogLevel, logdomain.DomainCount)

	for _, id := range logdomain.AllDomains() {
		m[id] = MinLogLevel
	}

	return
}()

// SetBaseDir sets the BaseDir and the paths that depend on it,
// and makes sure the directory exists.
func SetBaseDir(path string) error {
	fmt.Printf("Setting BaseDir to %s\n", path)

	BaseDir = path
	LogPath = filepath.Join(BaseDir, strings.ToLower(AppName)+".log")
	DbPath = filepath.Join(BaseDir, strings.ToLower(AppName)+".db")
	HolidayPath = filepath.Join(BaseDir, "holidays.yaml")

	if err := InitApp(); err != nil {
		fmt.Fprintf(os.Stderr,
			"Error initializing application environment: %s\n",
			err.Error())
		return err
	}

	return nil
} // func SetBaseDir(path string) error

// InitApp performs some basic preparations for the application to run.
// Currently, this means creating the BaseDir, if it does not exist.
func InitApp() error {
	var (
		err error
		ex  bool
	)

	if ex, err = krylib.Fexists(BaseDir); err != nil {
		return fmt.Errorf("Error checking BaseDir %s: %s",
			BaseDir,
			err.Error())
	} else if !ex {
		if err = os.MkdirAll(BaseDir, 0700); err != nil {
			return fmt.Errorf("Error creating BaseDir %s: %s",
				BaseDir,
				err.Error())
		}
	}

	return nil
} // func InitApp() error

// GetLogger tries to create a Logger for the given log domain.
func GetLogger(dom logdomain.ID) (*log.Logger, error) {
	var (
		err error
		fh  *os.File
	)

	if err = InitApp(); err != nil {
		return nil, fmt.Errorf("Error initializing application environment: %s",
			err.Error())
	}

	var logName = fmt.Sprintf("%s.%s",
		AppName,
		dom)

	if fh, err = os.OpenFile(LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600); err != nil {
		return nil, fmt.Errorf("Error opening log file %s: %s",
			LogPath,
			err.Error())
	}

	var filter = &logutils.LevelFilter{
		Levels: []logutils.LogLevel{
			"TRACE",
			"DEBUG",
			"INFO",
			"WARN",
			"ERROR",
			"CRITICAL",
			"CANTHAPPEN",
			"SILENT",
		},
		MinLevel: PackageLevels[dom],
		Writer:   io.MultiWriter(os.Stderr, fh),
	}

	var logger = log.New(filter, logName+" ", log.Ldate|log.Ltime|log.Lshortfile)

	return logger, nil
} // func GetLogger(dom logdomain.ID) (*log.Logger, error)

// GetUUID returns a randomized UUID.
func GetUUID() string {
	return uuid.NewRandom().String()
} // func GetUUID() string
