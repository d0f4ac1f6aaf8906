package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sw33tLie/callerid/pkg/directory"
	"github.com/sw33tLie/callerid/pkg/phone"

	_ "modernc.org/sqlite"
)

// DefaultDBTimeout is how long a writer waits for another process holding the database.
const DefaultDBTimeout = 5 * time.Second

type DB struct {
	sql    *sql.DB
	region string
}

var _ directory.Backend = (*DB)(nil)

// Open opens (creating if needed) the SQLite file at path. region is the
// numbering plan used to rebuild phone numbers when rows are loaded.
func Open(path string, timeout time.Duration, region string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	if timeout <= 0 {
		timeout = DefaultDBTimeout
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", path, timeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS identities (
  first_name  TEXT NOT NULL,
  last_name   TEXT NOT NULL,
  phone       TEXT NOT NULL,
  created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (first_name, last_name)
);
    `); err != nil {
		db.Close()
		return nil, err
	}
	if region == "" {
		region = phone.DefaultRegion
	}
	return &DB{sql: db, region: region}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// Load returns every identity in insertion order.
func (d *DB) Load(ctx context.Context) ([]directory.Record, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT first_name, last_name, phone FROM identities ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []directory.Record
	for rows.Next() {
		var first, last, stored string
		if err := rows.Scan(&first, &last, &stored); err != nil {
			return nil, err
		}
		n, err := phone.FromStorageForm(stored, d.region)
		if err != nil {
			return nil, fmt.Errorf("identity %s %s: %w", first, last, err)
		}
		out = append(out, directory.Record{FirstName: first, LastName: last, Phone: n})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert inserts r or replaces the phone of the existing row with the same
// name. The row keeps its rowid, so list order is stable across edits.
func (d *DB) Upsert(ctx context.Context, r directory.Record) error {
	_, err := d.sql.ExecContext(ctx, `
INSERT INTO identities(first_name, last_name, phone, created_at, updated_at)
VALUES(?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
ON CONFLICT(first_name, last_name) DO UPDATE SET phone = excluded.phone, updated_at = CURRENT_TIMESTAMP`,
		r.FirstName, r.LastName, phone.ToStorageForm(r.Phone))
	return err
}

func (d *DB) Delete(ctx context.Context, key directory.Key) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM identities WHERE first_name = ? AND last_name = ?", key.FirstName, key.LastName)
	return err
}

func (d *DB) DeleteAll(ctx context.Context) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM identities")
	return err
}

// GetStats counts identities per phone kind. Rows from the older schema hold
// a bare number and count as Home.
func (d *DB) GetStats(ctx context.Context) ([]KindStats, error) {
	query := `
		SELECT
			CASE WHEN json_valid(phone) THEN COALESCE(json_extract(phone, '$.type'), 'Home') ELSE 'Home' END AS kind,
			COUNT(*),
			MAX(updated_at)
		FROM
			identities
		GROUP BY
			kind
		ORDER BY
			kind;
	`
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []KindStats
	for rows.Next() {
		var (
			label     string
			lastEdit  sql.NullString
			kindStats KindStats
		)
		if err := rows.Scan(&label, &kindStats.Count, &lastEdit); err != nil {
			return nil, err
		}
		kindStats.Kind = phone.ParseKind(label)
		kindStats.LastUpdated = parseTimestamp(lastEdit.String)
		stats = append(stats, kindStats)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
