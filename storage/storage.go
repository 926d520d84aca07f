package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout matches the producer's timestamp format so last_updated
// stays comparable to the timestamps in the live data file.
const timeLayout = "2006-01-02 15:04:05"

// ErrNotFound is returned when a counter row is not found.
var ErrNotFound = errors.New("not found")

// Row is one persisted counter: how often a keyword was mentioned during
// a given hour of the day, and when that count last changed.
type Row struct {
	Hour        int
	Keyword     string
	Count       int64
	LastUpdated string
}

// DB wraps the SQLite database connection and provides counter operations.
type DB struct {
	conn *sql.DB
}

// Open ensures the parent directory exists and opens the database at
// path. The schema is left untouched; call Reset to (re)create it.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Reset drops the counter table if present and creates it fresh, so a
// new run always starts counting from zero.
func (db *DB) Reset(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `DROP TABLE IF EXISTS keyword_popularity`); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS keyword_popularity (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hour_of_day INTEGER NOT NULL,
		keyword TEXT NOT NULL,
		count INTEGER NOT NULL,
		last_updated TEXT NOT NULL,
		UNIQUE(hour_of_day, keyword)
	)
	`
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	return nil
}

// Increment records one mention of keyword during the given hour. The
// first mention inserts the row with count 1; later mentions bump the
// existing count. Insert and update happen in a single statement, so no
// increment can be lost between a read and a write.
func (db *DB) Increment(ctx context.Context, hour int, keyword string) error {
	query := `
	INSERT INTO keyword_popularity (hour_of_day, keyword, count, last_updated)
	VALUES (?, ?, 1, ?)
	ON CONFLICT(hour_of_day, keyword) DO UPDATE SET
		count = count + 1,
		last_updated = excluded.last_updated
	`
	_, err := db.conn.ExecContext(ctx, query, hour, keyword, time.Now().Format(timeLayout))
	return err
}

// Get retrieves the counter for an (hour, keyword) pair.
func (db *DB) Get(ctx context.Context, hour int, keyword string) (Row, error) {
	query := `
	SELECT hour_of_day, keyword, count, last_updated
	FROM keyword_popularity
	WHERE hour_of_day = ? AND keyword = ?
	`

	var row Row
	err := db.conn.QueryRowContext(ctx, query, hour, keyword).Scan(
		&row.Hour,
		&row.Keyword,
		&row.Count,
		&row.LastUpdated,
	)
	if err == sql.ErrNoRows {
		return Row{}, ErrNotFound
	}
	if err != nil {
		return Row{}, err
	}

	return row, nil
}

// TopKeywords returns up to limit counters ordered by count descending.
// Ties break alphabetically so the order is stable.
func (db *DB) TopKeywords(ctx context.Context, limit int) ([]Row, error) {
	query := `
	SELECT hour_of_day, keyword, count, last_updated
	FROM keyword_popularity
	ORDER BY count DESC, keyword ASC
	LIMIT ?
	`

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.Hour, &row.Keyword, &row.Count, &row.LastUpdated); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// PeakHours returns, for each keyword, the hour of day with its highest
// count. SQLite pairs the bare hour_of_day and last_updated columns with
// the row that produced MAX(count).
func (db *DB) PeakHours(ctx context.Context) ([]Row, error) {
	query := `
	SELECT hour_of_day, keyword, MAX(count) AS count, last_updated
	FROM keyword_popularity
	GROUP BY keyword
	ORDER BY keyword ASC
	`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.Hour, &row.Keyword, &row.Count, &row.LastUpdated); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
