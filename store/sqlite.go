// Package store is the sqlite-backed configuration store: persisted CRUD for
// sources and destinations, their mutable status fields, the cached
// published body for sources, and a per-cycle sync history log.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps a *sql.DB opened against a single sqlite file under DATA_DIR.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path and applies
// the schema. busy_timeout is set so that brief writer contention between
// concurrent sync units is absorbed by sqlite itself rather than surfacing
// as SQLITE_BUSY on every call site.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1) // modernc.org/sqlite: serialize writers in-process, rely on busy_timeout for the rest

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

// Ping reports whether the database file is reachable, for the detailed
// health endpoint's db_ok field.
func (d *DB) Ping() bool {
	return d.conn.Ping() == nil
}

// retry retries op with exponential backoff when sqlite reports the database
// as busy or locked under concurrent writers; any other error is returned
// immediately.
func retry(op func() error) error {
	var lastErr error
	for i := 0; i < 5; i++ {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err
		msg := err.Error()
		if !strings.Contains(msg, "SQLITE_BUSY") && !strings.Contains(msg, "database is locked") {
			return err
		}
		backoff := time.Duration(100*(1<<i)) * time.Millisecond
		if backoff > 2*time.Second {
			backoff = 2 * time.Second
		}
		time.Sleep(backoff)
	}
	return lastErr
}
