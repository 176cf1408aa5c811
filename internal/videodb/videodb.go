// Package videodb persists scraped metadata and download bookkeeping in a
// single SQLite file, videos.db under the application data directory.
//
// One row per normalized code. The info column holds the merged metadata as
// JSON and is NULL for codes that were marked downloaded before any scrape
// succeeded. downloaded_at is a Unix timestamp, NULL until the first mark.
package videodb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/karoyqiu/avmeta/internal/video"
)

// schemaVersion is tracked in PRAGMA user_version.
const schemaVersion = 1

// Record is one stored row.
type Record struct {
	Code         string
	Info         *video.Info
	DownloadedAt *time.Time
}

// Downloaded reports whether the code has been marked downloaded.
func (r *Record) Downloaded() bool {
	return r != nil && r.DownloadedAt != nil
}

// DB is the metadata store. SQLite handles one writer at a time, so all
// operations serialize on a single connection guarded by a mutex; the
// read-modify-write in MarkDownloaded depends on that.
type DB struct {
	mu   sync.Mutex
	conn *sql.Conn
	db   *sql.DB
}

// Open opens or creates the store at path and migrates the schema.
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	d := &DB{conn: conn, db: db}
	if err := d.init(ctx); err != nil {
		conn.Close()
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) init(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
		// 0x10002 limits analysis to tables that need it; paired with the
		// plain optimize pass in Close.
		"PRAGMA optimize = 0x10002",
	}
	for _, p := range pragmas {
		if _, err := d.conn.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("videodb: %s: %w", p, err)
		}
	}

	var version int
	if err := d.conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return err
	}
	if version > schemaVersion {
		return fmt.Errorf("videodb: database version %d is newer than supported %d", version, schemaVersion)
	}
	if version < schemaVersion {
		if err := d.migrate(ctx, version); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) migrate(ctx context.Context, from int) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if from < 1 {
		const ddl = `
			CREATE TABLE IF NOT EXISTS video_info_record (
				code          TEXT PRIMARY KEY NOT NULL,
				info          TEXT,
				downloaded_at INTEGER
			)`
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// Close optimizes and closes the store.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.conn.ExecContext(context.Background(), "PRAGMA optimize")
	d.conn.Close()
	return d.db.Close()
}

// Find returns the record for code, or nil when absent.
func (d *DB) Find(ctx context.Context, code string) (*Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.findLocked(ctx, code)
}

func (d *DB) findLocked(ctx context.Context, code string) (*Record, error) {
	row := d.conn.QueryRowContext(ctx,
		"SELECT info, downloaded_at FROM video_info_record WHERE code = ?", code)

	var info sql.NullString
	var downloadedAt sql.NullInt64
	switch err := row.Scan(&info, &downloadedAt); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, err
	}

	r := &Record{Code: code}
	if info.Valid {
		var vi video.Info
		if err := json.Unmarshal([]byte(info.String), &vi); err != nil {
			return nil, fmt.Errorf("videodb: corrupt info for %s: %w", code, err)
		}
		r.Info = &vi
	}
	if downloadedAt.Valid {
		t := time.Unix(downloadedAt.Int64, 0)
		r.DownloadedAt = &t
	}
	return r, nil
}

// SaveInfo upserts the metadata for info.Code, preserving any existing
// downloaded_at.
func (d *DB) SaveInfo(ctx context.Context, info *video.Info) error {
	if info == nil || info.Code == "" {
		return fmt.Errorf("videodb: refusing to save info without a code")
	}
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	_, err = d.conn.ExecContext(ctx, `
		INSERT INTO video_info_record (code, info) VALUES (?, ?)
		ON CONFLICT (code) DO UPDATE SET info = excluded.info`,
		info.Code, string(data))
	return err
}

// MarkDownloaded records when code was downloaded. The first write wins:
// marking an already-marked code keeps the original timestamp. A code never
// scraped gets a row with NULL info.
func (d *DB) MarkDownloaded(ctx context.Context, code string, at time.Time) error {
	if code == "" {
		return fmt.Errorf("videodb: refusing to mark an empty code")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO video_info_record (code, downloaded_at) VALUES (?, ?)
		ON CONFLICT (code) DO UPDATE SET downloaded_at = excluded.downloaded_at
			WHERE video_info_record.downloaded_at IS NULL`,
		code, at.Unix())
	return err
}
