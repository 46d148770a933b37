// /home/krylon/go/src/github.com/blicero/wecker/database/pool.go
// -*- mode: go; coding: utf-8; -*-
// Created on 05. 03. 2023 by Benjamin Walkenhorst
// (c) 2023 Benjamin Walkenhorst
// Time-stamp: <2023-07-02 21:05:33 krylon>

package database

import (
	"log"
	"sync"

	"github.com/blicero/wecker/common"
	"github.com/blicero/wecker/logdomain"
)

// Pool is a pool of database connections.
type Pool struct {
	lock sync.Mutex
	cond *sync.Cond
	log  *log.Logger
	pool []*Database
}

// NewPool creates a Pool of database connections of the given size.
func NewPool(cnt int) (*Pool, error) {
	var (
		err  error
		pool = &Pool{
			pool: make([]*Database, 0, cnt),
		}
	)

	pool.cond = sync.NewCond(&pool.lock)

	if pool.log, err = common.GetLogger(logdomain.DBPool); err != nil {
		return nil, err
	}

	for i := 0; i < cnt; i++ {
		var db *Database

		if db, err = Open(common.DbPath); err != nil {
			pool.log.Printf("[ERROR] Cannot open database connection #%d: %s\n",
				i+1,
				err.Error())
			return nil, err
		}

		pool.pool = append(pool.pool, db)
	}

	return pool, nil
} // func NewPool(cnt int) (*Pool, error)

// Get returns a database connection from the pool.
// If the pool is empty, it blocks until a connection is returned.
func (p *Pool) Get() *Database {
	p.lock.Lock()
	defer p.lock.Unlock()

	for len(p.pool) == 0 {
		p.cond.Wait()
	}

	var db = p.pool[len(p.pool)-1]
	p.pool = p.pool[:len(p.pool)-1]

	return db
} // func (p *Pool) Get() *Database

// GetNoWait returns a database connection from the pool.
// If the pool is empty, a fresh connection is opened.
func (p *Pool) GetNoWait() (*Database, error) {
	p.lock.Lock()

	if len(p.pool) > 0 {
		var db = p.pool[len(p.pool)-1]
		p.pool = p.pool[:len(p.pool)-1]
		p.lock.Unlock()
		return db, nil
	}

	p.lock.Unlock()

	var (
		err error
		db  *Database
	)

	if db, err = Open(common.DbPath); err != nil {
		p.log.Printf("[ERROR] Cannot open fresh database connection: %s\n",
			err.Error())
		return nil, err
	}

	return db, nil
} // func (p *Pool) GetNoWait() (*Database, error)

// Put returns a database connection to the pool.
func (p *Pool) Put(db *Database) {
	p.lock.Lock()
	p.pool = append(p.pool, db)
	p.cond.Signal()
	p.lock.Unlock()
} // func (p *Pool) Put(db *Database)

// Close closes all connections currently in the pool.
func (p *Pool) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	for _, db := range p.pool {
		var err error

		if err = db.Close(); err != nil {
			p.log.Printf("[ERROR] Cannot close database connection: %s\n",
				err.Error())
			return err
		}
	}

	p.pool = p.pool[:0]
	return nil
} // func (p *Pool) Close() error
