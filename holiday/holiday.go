// /home/krylon/go/src/github.com/blicero/wecker/holiday/holiday.go
// -*- mode: go; coding: utf-8; -*-
// Created on 11. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-08 18:12:40 krylon>

// Package holiday answers the question whether a given date is a
// holiday, and if so, what it is called. It knows the common fixed
// and Easter-derived holidays and can be extended or overridden by a
// YAML region file.
package holiday

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/blicero/krylib"
	"github.com/blicero/wecker/common"
	"github.com/blicero/wecker/logdomain"
	"gopkg.in/yaml.v3"
)

// FixedHoliday is a holiday that falls on the same calendar date
// every year.
type FixedHoliday struct {
	Month int    `yaml:"month"`
	Day   int    `yaml:"day"`
	Label string `yaml:"label"`
}

// EasterHoliday is a holiday defined by its offset, in days, from
// Easter Sunday.
type EasterHoliday struct {
	Offset int    `yaml:"offset"`
	Label  string `yaml:"label"`
}

// RegionFile is the on-disk shape of a holiday region definition.
// If Replace is true, the built-in holidays are discarded entirely.
type RegionFile struct {
	Region  string          `yaml:"region"`
	Replace bool            `yaml:"replace"`
	Fixed   []FixedHoliday  `yaml:"fixed"`
	Easter  []EasterHoliday `yaml:"easter"`
}

var builtinFixed = []FixedHoliday{
	{Month: 1, Day: 1, Label: "Neujahr"},
	{Month: 5, Day: 1, Label: "Tag der Arbeit"},
	{Month: 10, Day: 3, Label: "Tag der Deutschen Einheit"},
	{Month: 12, Day: 25, Label: "1. Weihnachtstag"},
	{Month: 12, Day: 26, Label: "2. Weihnachtstag"},
}

var builtinEaster = []EasterHoliday{
	{Offset: -2, Label: "Karfreitag"},
	{Offset: 0, Label: "Ostersonntag"},
	{Offset: 1, Label: "Ostermontag"},
	{Offset: 39, Label: "Christi Himmelfahrt"},
	{Offset: 50, Label: "Pfingstmontag"},
}

// Provider answers holiday queries. It is safe for concurrent use.
type Provider struct {
	log    *log.Logger
	lock   sync.Mutex
	fixed  []FixedHoliday
	easter []EasterHoliday
	years  map[int]map[string]string // year -> date key -> label
}

// New creates a Provider. If path names an existing region file, it
// is loaded; otherwise the built-in holidays are used. An unreadable
// or malformed region file is logged and ignored, it does not sink
// the Provider.
func New(path string) (*Provider, error) {
	var (
		err error
		p   = &Provider{
			fixed:  builtinFixed,
			easter: builtinEaster,
			years:  make(map[int]map[string]string),
		}
	)

	if p.log, err = common.GetLogger(logdomain.Holiday); err != nil {
		return nil, err
	}

	if path == "" {
		return p, nil
	}

	var ex bool

	if ex, err = krylib.Fexists(path); err != nil {
		p.log.Printf("[ERROR] Cannot check region file %s: %s\n",
			path,
			err.Error())
		return p, nil
	} else if !ex {
		return p, nil
	}

	var region RegionFile

	if region, err = loadRegionFile(path); err != nil {
		p.log.Printf("[ERROR] Cannot load region file %s, using built-in holidays: %s\n",
			path,
			err.Error())
		return p, nil
	}

	p.log.Printf("[INFO] Loaded holiday region %q from %s\n",
		region.Region,
		path)

	if region.Replace {
		p.fixed = region.Fixed
		p.easter = region.Easter
	} else {
		p.fixed = append(p.fixed, region.Fixed...)
		p.easter = append(p.easter, region.Easter...)
	}

	return p, nil
} // func New(path string) (*Provider, error)

func loadRegionFile(path string) (RegionFile, error) {
	var (
		err    error
		raw    []byte
		region RegionFile
	)

	if raw, err = os.ReadFile(path); err != nil {
		return region, err
	} else if err = yaml.Unmarshal(raw, &region); err != nil {
		return region, err
	}

	return region, nil
} // func loadRegionFile(path string) (RegionFile, error)

// IsHoliday returns true if the given date is a holiday.
func (p *Provider) IsHoliday(date time.Time) bool {
	return p.Label(date) != ""
} // func (p *Provider) IsHoliday(date time.Time) bool

// Label returns the display label of the holiday the given date falls
// on, or the empty string if it is a regular day.
func (p *Provider) Label(date time.Time) string {
	p.lock.Lock()
	defer p.lock.Unlock()

	var (
		year = date.Year()
		tbl  map[string]string
		ok   bool
	)

	if tbl, ok = p.years[year]; !ok {
		tbl = p.computeYear(year, date.Location())
		p.years[year] = tbl
	}

	return tbl[date.Format(common.TimestampFormatDate)]
} // func (p *Provider) Label(date time.Time) string

func (p *Provider) computeYear(year int, loc *time.Location) map[string]string {
	var tbl = make(map[string]string, len(p.fixed)+len(p.easter))

	for _, h := range p.fixed {
		var d = time.Date(year, time.Month(h.Month), h.Day, 0, 0, 0, 0, loc)
		tbl[d.Format(common.TimestampFormatDate)] = h.Label
	}

	var easter = easterSunday(year, loc)

	for _, h := range p.easter {
		var d = easter.AddDate(0, 0, h.Offset)
		tbl[d.Format(common.TimestampFormatDate)] = h.Label
	}

	return tbl
} // func (p *Provider) computeYear(year int, loc *time.Location) map[string]string

// easterSunday computes the date of Easter Sunday for the given year,
// using the anonymous Gregorian algorithm.
func easterSunday(year int, loc *time.Location) time.Time {
	var (
		a = year % 19
		b = year / 100
		c = year % 100
		d = b / 4
		e = b % 4
		f = (b + 8) / 25
		g = (b - f + 1) / 3
		h = (19*a + b - d - g + 15) % 30
		i = c / 4
		k = c % 4
		l = (32 + 2*e + 2*i - h - k) % 7
		m = (a + 11*h + 22*l) / 451
	)

	var month = (h + l - 7*m + 114) / 31
	var day = (h+l-7*m+114)%31 + 1

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
} // func easterSunday(year int, loc *time.Location) time.Time

func (p *Provider) String() string {
	return fmt.Sprintf("holiday.Provider{ %d fixed, %d easter-derived }",
		len(p.fixed),
		len(p.easter))
} // func (p *Provider) String() string
