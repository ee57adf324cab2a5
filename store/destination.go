package store

import (
	"database/sql"
	"time"
)

// Destination mirrors the destinations table.
type Destination struct {
	ID               int64
	Name             string
	RemoteICSURL     string
	CalDAVBaseURL    string
	CalendarName     string
	Username         string
	Password         string
	SyncIntervalSecs int
	SyncAll          bool
	KeepLocal        bool
	LastSynced       *time.Time
	LastSyncStatus   string
	LastSyncError    *string
	CreatedAt        time.Time
}

func (d *DB) CreateDestination(dst *Destination) (int64, error) {
	var id int64
	err := retry(func() error {
		res, err := d.conn.Exec(
			`INSERT INTO destinations
			 (name, remote_ics_url, caldav_base_url, calendar_name, username, password,
			  sync_interval_secs, sync_all, keep_local)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			dst.Name, dst.RemoteICSURL, dst.CalDAVBaseURL, dst.CalendarName, dst.Username, dst.Password,
			dst.SyncIntervalSecs, boolToInt(dst.SyncAll), boolToInt(dst.KeepLocal),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

func (d *DB) GetDestination(id int64) (*Destination, error) {
	row := d.conn.QueryRow(`SELECT `+destColumns+` FROM destinations WHERE id = ?`, id)
	return scanDestination(row)
}

func (d *DB) ListDestinations() ([]*Destination, error) {
	rows, err := d.conn.Query(`SELECT ` + destColumns + ` FROM destinations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Destination
	for rows.Next() {
		dst, err := scanDestination(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, dst)
	}
	return out, rows.Err()
}

func (d *DB) UpdateDestination(dst *Destination) error {
	return retry(func() error {
		var res sql.Result
		var err error
		if dst.Password == "" {
			res, err = d.conn.Exec(
				`UPDATE destinations SET name=?, remote_ics_url=?, caldav_base_url=?, calendar_name=?,
				 username=?, sync_interval_secs=?, sync_all=?, keep_local=? WHERE id=?`,
				dst.Name, dst.RemoteICSURL, dst.CalDAVBaseURL, dst.CalendarName, dst.Username,
				dst.SyncIntervalSecs, boolToInt(dst.SyncAll), boolToInt(dst.KeepLocal), dst.ID,
			)
		} else {
			res, err = d.conn.Exec(
				`UPDATE destinations SET name=?, remote_ics_url=?, caldav_base_url=?, calendar_name=?,
				 username=?, password=?, sync_interval_secs=?, sync_all=?, keep_local=? WHERE id=?`,
				dst.Name, dst.RemoteICSURL, dst.CalDAVBaseURL, dst.CalendarName, dst.Username, dst.Password,
				dst.SyncIntervalSecs, boolToInt(dst.SyncAll), boolToInt(dst.KeepLocal), dst.ID,
			)
		}
		if err != nil {
			return err
		}
		return checkAffected(res)
	})
}

func (d *DB) DeleteDestination(id int64) error {
	return retry(func() error {
		res, err := d.conn.Exec(`DELETE FROM destinations WHERE id=?`, id)
		if err != nil {
			return err
		}
		return checkAffected(res)
	})
}

func (d *DB) MarkDestinationSynced(id int64, at time.Time) error {
	return retry(func() error {
		res, err := d.conn.Exec(
			`UPDATE destinations SET last_synced=?, last_sync_status='ok', last_sync_error=NULL WHERE id=?`,
			at, id,
		)
		if err != nil {
			return err
		}
		return checkAffected(res)
	})
}

func (d *DB) MarkDestinationError(id int64, message string) error {
	return retry(func() error {
		res, err := d.conn.Exec(
			`UPDATE destinations SET last_sync_status='error', last_sync_error=? WHERE id=?`,
			truncate(message, 2048), id,
		)
		if err != nil {
			return err
		}
		return checkAffected(res)
	})
}

const destColumns = `id, name, remote_ics_url, caldav_base_url, calendar_name, username, password,
	sync_interval_secs, sync_all, keep_local, last_synced, last_sync_status, last_sync_error, created_at`

func scanDestination(row rowScanner) (*Destination, error) {
	var dst Destination
	var syncAll, keepLocal int
	var lastSynced sql.NullTime
	var lastSyncError sql.NullString

	err := row.Scan(
		&dst.ID, &dst.Name, &dst.RemoteICSURL, &dst.CalDAVBaseURL, &dst.CalendarName, &dst.Username, &dst.Password,
		&dst.SyncIntervalSecs, &syncAll, &keepLocal, &lastSynced, &dst.LastSyncStatus, &lastSyncError, &dst.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	dst.SyncAll = syncAll != 0
	dst.KeepLocal = keepLocal != 0
	if lastSynced.Valid {
		dst.LastSynced = &lastSynced.Time
	}
	if lastSyncError.Valid {
		dst.LastSyncError = &lastSyncError.String
	}
	return &dst, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
