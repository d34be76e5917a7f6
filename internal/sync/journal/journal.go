// Package journal records completed transfers and migrations in a
// local sqlite database, giving `phi history` something to show.
package journal

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type DB struct {
	db *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	instance := &DB{db: db}
	if err := instance.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return instance, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, schemaSQL)
	return err
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS transfers (
	id TEXT PRIMARY KEY,
	op TEXT NOT NULL,
	kind TEXT NOT NULL,
	item_id TEXT NOT NULL,
	files INTEGER NOT NULL DEFAULT 0,
	bytes INTEGER NOT NULL DEFAULT 0,
	success INTEGER NOT NULL DEFAULT 0,
	error TEXT,
	started_at INTEGER NOT NULL,
	finished_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transfers_item ON transfers(kind, item_id);
CREATE INDEX IF NOT EXISTS idx_transfers_finished ON transfers(finished_at);
`

// Record is one journaled transfer.
type Record struct {
	ID         string
	Op         string
	Kind       string
	ItemID     string
	Files      int
	Bytes      int64
	Success    bool
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Append stores a record, generating its ID when empty.
func (d *DB) Append(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO transfers (id, op, kind, item_id, files, bytes, success, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.Op, rec.Kind, rec.ItemID, rec.Files, rec.Bytes,
		boolToInt(rec.Success), rec.Error,
		rec.StartedAt.UnixMilli(), rec.FinishedAt.UnixMilli(),
	)
	return err
}

// List returns the most recent records, newest first.
func (d *DB) List(ctx context.Context, limit int) (records []Record, err error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, op, kind, item_id, files, bytes, success, error, started_at, finished_at
		FROM transfers ORDER BY finished_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		var rec Record
		var success int
		var errText sql.NullString
		var started, finished int64
		if err := rows.Scan(&rec.ID, &rec.Op, &rec.Kind, &rec.ItemID, &rec.Files, &rec.Bytes,
			&success, &errText, &started, &finished); err != nil {
			return nil, err
		}
		rec.Success = success != 0
		rec.Error = errText.String
		rec.StartedAt = time.UnixMilli(started).UTC()
		rec.FinishedAt = time.UnixMilli(finished).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// ListForItem returns records for one item, newest first.
func (d *DB) ListForItem(ctx context.Context, kind, itemID string, limit int) (records []Record, err error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, op, kind, item_id, files, bytes, success, error, started_at, finished_at
		FROM transfers WHERE kind = ? AND item_id = ?
		ORDER BY finished_at DESC, id LIMIT ?
	`, kind, itemID, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		var rec Record
		var success int
		var errText sql.NullString
		var started, finished int64
		if err := rows.Scan(&rec.ID, &rec.Op, &rec.Kind, &rec.ItemID, &rec.Files, &rec.Bytes,
			&success, &errText, &started, &finished); err != nil {
			return nil, err
		}
		rec.Success = success != 0
		rec.Error = errText.String
		rec.StartedAt = time.UnixMilli(started).UTC()
		rec.FinishedAt = time.UnixMilli(finished).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
