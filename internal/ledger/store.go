package ledger

import (
	"context"
	"time"
)

// Tx is the set of writes and reads available inside one unit of work.
// Lookups return nil, nil when nothing matches.
type Tx interface {
	GetStudent(ctx context.Context, srcode string) (*Student, error)
	// InsertStudent creates the row; an existing srcode is left untouched.
	InsertStudent(ctx context.Context, s Student) error
	IncrementAttendanceCount(ctx context.Context, srcode string) error
	IncrementBookCount(ctx context.Context, srcode string) error

	AttendanceOn(ctx context.Context, srcode string, day time.Time) (*AttendanceRecord, error)
	// InsertAttendance fails with ErrConflict when (srcode, day) already exists.
	InsertAttendance(ctx context.Context, rec AttendanceRecord) error

	// InsertBook reports whether the row was created; an existing ISBN is not an error.
	InsertBook(ctx context.Context, b Book) (bool, error)
	// OutstandingBorrow returns a record for isbn due on or after today, with the borrower's name.
	OutstandingBorrow(ctx context.Context, isbn string, today time.Time) (*DueBorrow, error)
	InsertBorrow(ctx context.Context, rec BorrowRecord) error
	FindBorrow(ctx context.Context, srcode, isbn string) (*BorrowRecord, error)
	DeleteBorrow(ctx context.Context, srcode, isbn string) (int64, error)
}

// Store is the durable ledger. WithTx serializes callers that share a lock key
// and commits only if fn returns nil.
type Store interface {
	WithTx(ctx context.Context, lockKeys []string, fn func(tx Tx) error) error

	CurrentBorrow(ctx context.Context, srcode string) (*BorrowRecord, error)
	BorrowsDueOn(ctx context.Context, day time.Time) ([]DueBorrow, error)

	TopAttendance(ctx context.Context, limit int) ([]AttendanceRank, error)
	MostBorrowed(ctx context.Context, limit int) ([]BorrowRank, error)
	AttendanceOnDay(ctx context.Context, day time.Time) ([]DailyAttendance, error)

	GetAdmin(ctx context.Context, username string) (*Admin, error)
	CountAdmins(ctx context.Context) (int, error)
	UpsertAdmin(ctx context.Context, username, passwordHash string) error
}

func attendanceLockKey(srcode string, day time.Time) string {
	return "attendance:" + srcode + ":" + day.Format(time.DateOnly)
}

func isbnLockKey(isbn string) string { return "isbn:" + isbn }
