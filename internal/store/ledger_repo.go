package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"campuslibrary/internal/calendar"
	"campuslibrary/internal/ledger"
)

const pgUniqueViolation = "23505"

// LedgerRepository persists the ledger in Postgres.
type LedgerRepository struct {
	db  *sqlx.DB
	loc *time.Location
}

// NewLedgerRepository creates a repo. Dates read back are re-anchored to loc.
func NewLedgerRepository(db *sqlx.DB, loc *time.Location) *LedgerRepository {
	return &LedgerRepository{db: db, loc: loc}
}

// WithTx runs fn in one transaction after taking a transaction-scoped advisory lock per key.
// Keys are locked in sorted order so two callers never wait on each other in a cycle.
func (r *LedgerRepository) WithTx(ctx context.Context, lockKeys []string, fn func(tx ledger.Tx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	keys := append([]string(nil), lockKeys...)
	sort.Strings(keys)
	for _, key := range keys {
		if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
			return fmt.Errorf("lock %s: %w", key, err)
		}
	}

	if err = fn(&pgTx{tx: tx, loc: r.loc}); err != nil {
		return err
	}
	return tx.Commit()
}

// CurrentBorrow returns the student's held book with the earliest return date.
func (r *LedgerRepository) CurrentBorrow(ctx context.Context, srcode string) (*ledger.BorrowRecord, error) {
	var rec ledger.BorrowRecord
	err := r.db.GetContext(ctx, &rec, `
		SELECT id, srcode, email, isbn, bookname, bookauthor, borrow_date, return_date, created_at
		FROM borrows
		WHERE srcode = $1
		ORDER BY return_date ASC, created_at ASC
		LIMIT 1
	`, srcode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	r.anchorBorrow(&rec)
	return &rec, nil
}

// BorrowsDueOn returns every borrow whose return date is exactly day.
func (r *LedgerRepository) BorrowsDueOn(ctx context.Context, day time.Time) ([]ledger.DueBorrow, error) {
	var rows []ledger.DueBorrow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT b.id, b.srcode, s.email, b.isbn, b.bookname, b.bookauthor, b.borrow_date, b.return_date, b.created_at,
		       s.fullname
		FROM borrows b
		JOIN students s ON s.srcode = b.srcode
		WHERE b.return_date = $1::date
		ORDER BY b.srcode, b.isbn
	`, calendar.FormatDate(day))
	if err != nil {
		return nil, err
	}
	for i := range rows {
		r.anchorBorrow(&rows[i].BorrowRecord)
	}
	return rows, nil
}

// TopAttendance ranks students by whole hours attended.
func (r *LedgerRepository) TopAttendance(ctx context.Context, limit int) ([]ledger.AttendanceRank, error) {
	var rows []ledger.AttendanceRank
	err := r.db.SelectContext(ctx, &rows, `
		SELECT s.srcode,
		       COALESCE(NULLIF(s.fullname, ''), 'Unknown') AS name,
		       COALESCE(SUM(FLOOR(EXTRACT(EPOCH FROM (a.time_out - a.time_in)) / 3600)), 0)::int AS total_hours
		FROM students s
		LEFT JOIN attendance a ON a.srcode = s.srcode
		WHERE s.type = 'student'
		GROUP BY s.srcode, s.fullname
		ORDER BY total_hours DESC, s.srcode
		LIMIT $1
	`, limit)
	return rows, err
}

// MostBorrowed ranks students by lifetime borrow count.
func (r *LedgerRepository) MostBorrowed(ctx context.Context, limit int) ([]ledger.BorrowRank, error) {
	var rows []ledger.BorrowRank
	err := r.db.SelectContext(ctx, &rows, `
		SELECT srcode,
		       COALESCE(NULLIF(fullname, ''), 'Unknown') AS name,
		       book_count AS books_borrowed
		FROM students
		WHERE type = 'student'
		ORDER BY book_count DESC, srcode
		LIMIT $1
	`, limit)
	return rows, err
}

// AttendanceOnDay lists the visits recorded for day, newest first.
func (r *LedgerRepository) AttendanceOnDay(ctx context.Context, day time.Time) ([]ledger.DailyAttendance, error) {
	var rows []ledger.DailyAttendance
	err := r.db.SelectContext(ctx, &rows, `
		SELECT a.srcode,
		       COALESCE(NULLIF(s.fullname, ''), 'Unknown') AS name,
		       FLOOR(EXTRACT(EPOCH FROM (a.time_out - a.time_in)) / 3600)::int AS hours,
		       a.time_in
		FROM attendance a
		LEFT JOIN students s ON s.srcode = a.srcode
		WHERE a.attend_date = $1::date
		ORDER BY a.time_in DESC
	`, calendar.FormatDate(day))
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].TimeIn = rows[i].TimeIn.In(r.loc)
	}
	return rows, nil
}

// GetAdmin returns the admin or nil.
func (r *LedgerRepository) GetAdmin(ctx context.Context, username string) (*ledger.Admin, error) {
	var a ledger.Admin
	err := r.db.GetContext(ctx, &a, `SELECT id, username, password_hash, created_at FROM admins WHERE username = $1`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// CountAdmins returns the number of admin accounts.
func (r *LedgerRepository) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM admins`)
	return n, err
}

// UpsertAdmin creates an admin or replaces its password hash.
func (r *LedgerRepository) UpsertAdmin(ctx context.Context, username, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admins (username, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash
	`, username, passwordHash)
	return err
}

func (r *LedgerRepository) anchorBorrow(rec *ledger.BorrowRecord) {
	rec.BorrowDate = calendar.DateOf(rec.BorrowDate, r.loc)
	rec.ReturnDate = calendar.DateOf(rec.ReturnDate, r.loc)
}

// pgTx implements ledger.Tx on an open transaction.
type pgTx struct {
	tx  *sqlx.Tx
	loc *time.Location
}

func (t *pgTx) GetStudent(ctx context.Context, srcode string) (*ledger.Student, error) {
	var s ledger.Student
	err := t.tx.GetContext(ctx, &s, `
		SELECT srcode, fullname, email, type, attendance_count, book_count, created_at
		FROM students WHERE srcode = $1
	`, srcode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (t *pgTx) InsertStudent(ctx context.Context, s ledger.Student) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO students (srcode, fullname, email, type, attendance_count, book_count)
		VALUES ($1, $2, $3, $4, 0, 0)
		ON CONFLICT (srcode) DO NOTHING
	`, s.SRCode, s.FullName, s.Email, string(s.Type))
	return err
}

func (t *pgTx) IncrementAttendanceCount(ctx context.Context, srcode string) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE students SET attendance_count = attendance_count + 1 WHERE srcode = $1`, srcode)
	return err
}

func (t *pgTx) IncrementBookCount(ctx context.Context, srcode string) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE students SET book_count = book_count + 1 WHERE srcode = $1`, srcode)
	return err
}

func (t *pgTx) AttendanceOn(ctx context.Context, srcode string, day time.Time) (*ledger.AttendanceRecord, error) {
	var rec ledger.AttendanceRecord
	err := t.tx.GetContext(ctx, &rec, `
		SELECT id, srcode, attend_date, time_in, time_out
		FROM attendance WHERE srcode = $1 AND attend_date = $2::date
	`, srcode, calendar.FormatDate(day))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rec.Day = calendar.DateOf(rec.Day, t.loc)
	return &rec, nil
}

func (t *pgTx) InsertAttendance(ctx context.Context, rec ledger.AttendanceRecord) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO attendance (id, srcode, attend_date, time_in, time_out)
		VALUES ($1, $2, $3::date, $4, $5)
	`, rec.ID, rec.SRCode, calendar.FormatDate(rec.Day), rec.TimeIn, rec.TimeOut)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: attendance already recorded for today", ledger.ErrConflict)
	}
	return err
}

func (t *pgTx) InsertBook(ctx context.Context, b ledger.Book) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO books (isbn, bookname, bookauthor)
		VALUES ($1, $2, $3)
		ON CONFLICT (isbn) DO NOTHING
	`, b.ISBN, b.Title, b.Author)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (t *pgTx) OutstandingBorrow(ctx context.Context, isbn string, today time.Time) (*ledger.DueBorrow, error) {
	var rec ledger.DueBorrow
	err := t.tx.GetContext(ctx, &rec, `
		SELECT b.id, b.srcode, b.email, b.isbn, b.bookname, b.bookauthor, b.borrow_date, b.return_date, b.created_at,
		       COALESCE(s.fullname, '') AS fullname
		FROM borrows b
		LEFT JOIN students s ON s.srcode = b.srcode
		WHERE b.isbn = $1 AND b.return_date >= $2::date
		ORDER BY b.return_date DESC
		LIMIT 1
	`, isbn, calendar.FormatDate(today))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rec.BorrowDate = calendar.DateOf(rec.BorrowDate, t.loc)
	rec.ReturnDate = calendar.DateOf(rec.ReturnDate, t.loc)
	return &rec, nil
}

func (t *pgTx) InsertBorrow(ctx context.Context, rec ledger.BorrowRecord) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO borrows (id, srcode, email, isbn, bookname, bookauthor, borrow_date, return_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8::date)
	`, rec.ID, rec.SRCode, rec.Email, rec.ISBN, rec.Title, rec.Author,
		calendar.FormatDate(rec.BorrowDate), calendar.FormatDate(rec.ReturnDate))
	return err
}

func (t *pgTx) FindBorrow(ctx context.Context, srcode, isbn string) (*ledger.BorrowRecord, error) {
	var rec ledger.BorrowRecord
	err := t.tx.GetContext(ctx, &rec, `
		SELECT id, srcode, email, isbn, bookname, bookauthor, borrow_date, return_date, created_at
		FROM borrows WHERE srcode = $1 AND isbn = $2
		ORDER BY return_date ASC
		LIMIT 1
	`, srcode, isbn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rec.BorrowDate = calendar.DateOf(rec.BorrowDate, t.loc)
	rec.ReturnDate = calendar.DateOf(rec.ReturnDate, t.loc)
	return &rec, nil
}

func (t *pgTx) DeleteBorrow(ctx context.Context, srcode, isbn string) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM borrows WHERE srcode = $1 AND isbn = $2`, srcode, isbn)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
