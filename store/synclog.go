package store

import "time"

// LogEntry is one row of sync_log — a supplementary record beyond what
// spec.md's status triplet requires, letting operators see a unit's recent
// history rather than only its current state.
type LogEntry struct {
	ID        int64
	UnitKind  string // "source" | "destination"
	UnitID    int64
	Status    string // "ok" | "error"
	Message   string
	Created   int
	Updated   int
	Deleted   int
	Duration  time.Duration
	CreatedAt time.Time
}

func (d *DB) AppendLog(e LogEntry) error {
	return retry(func() error {
		_, err := d.conn.Exec(
			`INSERT INTO sync_log (unit_kind, unit_id, status, message, created_count, updated_count, deleted_count, duration_ms)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.UnitKind, e.UnitID, e.Status, truncate(e.Message, 2048), e.Created, e.Updated, e.Deleted, e.Duration.Milliseconds(),
		)
		return err
	})
}

// ListLog returns the most recent limit entries for a unit, newest first.
func (d *DB) ListLog(unitKind string, unitID int64, limit int) ([]LogEntry, error) {
	rows, err := d.conn.Query(
		`SELECT id, unit_kind, unit_id, status, message, created_count, updated_count, deleted_count, duration_ms, created_at
		 FROM sync_log WHERE unit_kind=? AND unit_id=? ORDER BY created_at DESC, id DESC LIMIT ?`,
		unitKind, unitID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		var durationMs int64
		if err := rows.Scan(&e.ID, &e.UnitKind, &e.UnitID, &e.Status, &e.Message,
			&e.Created, &e.Updated, &e.Deleted, &durationMs, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}
