package store

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS students (
		srcode           TEXT PRIMARY KEY,
		fullname         TEXT NOT NULL DEFAULT '',
		email            TEXT NOT NULL,
		type             TEXT NOT NULL DEFAULT 'student',
		attendance_count INTEGER NOT NULL DEFAULT 0,
		book_count       INTEGER NOT NULL DEFAULT 0,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		isbn       TEXT PRIMARY KEY,
		bookname   TEXT NOT NULL,
		bookauthor TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS borrows (
		id          UUID PRIMARY KEY,
		srcode      TEXT NOT NULL REFERENCES students (srcode),
		email       TEXT NOT NULL,
		isbn        TEXT NOT NULL REFERENCES books (isbn),
		bookname    TEXT NOT NULL,
		bookauthor  TEXT NOT NULL,
		borrow_date DATE NOT NULL,
		return_date DATE NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS borrows_isbn_return_idx ON borrows (isbn, return_date)`,
	`CREATE INDEX IF NOT EXISTS borrows_return_date_idx ON borrows (return_date)`,
	`CREATE INDEX IF NOT EXISTS borrows_srcode_idx ON borrows (srcode)`,
	// attendance.srcode has no foreign key: unregistered teachers may still check in.
	`CREATE TABLE IF NOT EXISTS attendance (
		id          UUID PRIMARY KEY,
		srcode      TEXT NOT NULL,
		attend_date DATE NOT NULL,
		time_in     TIMESTAMPTZ NOT NULL,
		time_out    TIMESTAMPTZ NOT NULL,
		UNIQUE (srcode, attend_date)
	)`,
	`CREATE INDEX IF NOT EXISTS attendance_date_idx ON attendance (attend_date)`,
	`CREATE TABLE IF NOT EXISTS admins (
		id            BIGSERIAL PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates the ledger schema if it does not exist.
func (d *DB) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
