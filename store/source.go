package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get/Update/Delete when no row matches the id.
var ErrNotFound = errors.New("store: not found")

// Source mirrors the sources table. Password is stored in plaintext at rest
// — a deliberate product decision (see the doc comment on config.Load), never
// serialized back out over the API, and never logged.
type Source struct {
	ID               int64
	ICSPath          string
	Name             string
	CalDAVBaseURL    string
	Username         string
	Password         string
	SyncIntervalSecs int
	LastSynced       *time.Time
	LastSyncStatus   string // "unset" | "ok" | "error"
	LastSyncError    *string
	CachedBody       []byte
	CachedType       string
	CachedAt         *time.Time
	CreatedAt        time.Time
}

func (d *DB) CreateSource(s *Source) (int64, error) {
	var id int64
	err := retry(func() error {
		res, err := d.conn.Exec(
			`INSERT INTO sources (ics_path, name, caldav_base_url, username, password, sync_interval_secs)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			s.ICSPath, s.Name, s.CalDAVBaseURL, s.Username, s.Password, s.SyncIntervalSecs,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

func (d *DB) GetSource(id int64) (*Source, error) {
	row := d.conn.QueryRow(`SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)
	return scanSource(row)
}

func (d *DB) GetSourceByICSPath(icsPath string) (*Source, error) {
	row := d.conn.QueryRow(`SELECT `+sourceColumns+` FROM sources WHERE ics_path = ?`, icsPath)
	return scanSource(row)
}

func (d *DB) ListSources() ([]*Source, error) {
	rows, err := d.conn.Query(`SELECT ` + sourceColumns + ` FROM sources ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateSource applies a partial update: an empty password leaves the
// stored password untouched, matching the API contract that password is
// write-only and optional on PUT.
func (d *DB) UpdateSource(s *Source) error {
	return retry(func() error {
		var res sql.Result
		var err error
		if s.Password == "" {
			res, err = d.conn.Exec(
				`UPDATE sources SET name=?, caldav_base_url=?, username=?, sync_interval_secs=? WHERE id=?`,
				s.Name, s.CalDAVBaseURL, s.Username, s.SyncIntervalSecs, s.ID,
			)
		} else {
			res, err = d.conn.Exec(
				`UPDATE sources SET name=?, caldav_base_url=?, username=?, password=?, sync_interval_secs=? WHERE id=?`,
				s.Name, s.CalDAVBaseURL, s.Username, s.Password, s.SyncIntervalSecs, s.ID,
			)
		}
		if err != nil {
			return err
		}
		return checkAffected(res)
	})
}

func (d *DB) DeleteSource(id int64) error {
	return retry(func() error {
		res, err := d.conn.Exec(`DELETE FROM sources WHERE id=?`, id)
		if err != nil {
			return err
		}
		return checkAffected(res)
	})
}

// MarkSourceSynced atomically records a successful cycle: the cached body,
// its content type, last_synced, and a cleared error — together, so that no
// reader ever observes a new timestamp paired with a stale or missing body.
func (d *DB) MarkSourceSynced(id int64, body []byte, contentType string, at time.Time) error {
	return retry(func() error {
		res, err := d.conn.Exec(
			`UPDATE sources SET cached_body=?, cached_content_type=?, cached_at=?,
			 last_synced=?, last_sync_status='ok', last_sync_error=NULL WHERE id=?`,
			body, contentType, at, at, id,
		)
		if err != nil {
			return err
		}
		return checkAffected(res)
	})
}

// MarkSourceError records a failed cycle without touching the cached body —
// stale-serving is preferred over no-serving.
func (d *DB) MarkSourceError(id int64, message string) error {
	return retry(func() error {
		res, err := d.conn.Exec(
			`UPDATE sources SET last_sync_status='error', last_sync_error=? WHERE id=?`,
			truncate(message, 2048), id,
		)
		if err != nil {
			return err
		}
		return checkAffected(res)
	})
}

const sourceColumns = `id, ics_path, name, caldav_base_url, username, password, sync_interval_secs,
	last_synced, last_sync_status, last_sync_error, cached_body, cached_content_type, cached_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*Source, error) {
	var s Source
	var lastSynced, cachedAt sql.NullTime
	var lastSyncError, cachedType sql.NullString
	var cachedBody []byte

	err := row.Scan(
		&s.ID, &s.ICSPath, &s.Name, &s.CalDAVBaseURL, &s.Username, &s.Password, &s.SyncIntervalSecs,
		&lastSynced, &s.LastSyncStatus, &lastSyncError, &cachedBody, &cachedType, &cachedAt, &s.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if lastSynced.Valid {
		s.LastSynced = &lastSynced.Time
	}
	if lastSyncError.Valid {
		s.LastSyncError = &lastSyncError.String
	}
	if cachedAt.Valid {
		s.CachedAt = &cachedAt.Time
	}
	s.CachedType = cachedType.String
	s.CachedBody = cachedBody
	return &s, nil
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return fmt.Sprintf("%s... (truncated)", s[:max])
}
