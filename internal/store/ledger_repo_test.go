package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campuslibrary/internal/calendar"
	"campuslibrary/internal/ledger"
)

// newTestRepository connects to DATABASE_URL, migrates, and empties the ledger tables
// before and after the test. Tests are skipped when no database is configured.
func newTestRepository(t *testing.T) (*LedgerRepository, *time.Location) {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := NewDB(ctx, url)
	if err != nil {
		_ = db.Close()
		t.Fatalf("connect: %v", err)
	}
	require.NoError(t, db.Migrate(ctx))

	truncate(t, db)
	t.Cleanup(func() {
		truncate(t, db)
		_ = db.Close()
	})

	loc, err := time.LoadLocation(calendar.DefaultZone)
	require.NoError(t, err)
	return NewLedgerRepository(db.Client, loc), loc
}

func truncate(t *testing.T, db *DB) {
	_, err := db.Client.Exec(`TRUNCATE TABLE borrows, attendance, books, students, admins RESTART IDENTITY CASCADE`)
	assert.NoError(t, err, "truncating ledger tables failed")
}

func tally(t *testing.T, errs <-chan error) (ok, conflicts int) {
	t.Helper()
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ledger.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	return ok, conflicts
}

func Test_LedgerRepository_ConcurrentBorrowsOfOneISBN(t *testing.T) {
	repo, loc := newTestRepository(t)
	clock := calendar.FixedClock(loc, time.Date(2026, 10, 19, 10, 0, 0, 0, loc))
	l := ledger.NewLendingLedger(repo, ledger.NewDirectory(""), clock, nil)

	const callers = 12
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.Borrow(context.Background(), ledger.BorrowRequest{
				Identity: ledger.Identity{SRCode: fmt.Sprintf("24-%05d", i), FullName: fmt.Sprintf("Borrower %d", i), Type: "student"},
				ISBN:     "9780134685991",
				Title:    "Effective Java",
				Author:   "Joshua Bloch",
				LoanDays: 2,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	ok, conflicts := tally(t, errs)
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, conflicts)

	var held int
	require.NoError(t, repo.db.Get(&held, `SELECT COUNT(*) FROM borrows WHERE isbn = $1`, "9780134685991"))
	assert.Equal(t, 1, held)
}

func Test_LedgerRepository_ConcurrentAttendanceForOneDay(t *testing.T) {
	repo, loc := newTestRepository(t)
	clock := calendar.FixedClock(loc, time.Date(2026, 10, 19, 9, 0, 0, 0, loc))
	l := ledger.NewAttendanceLedger(repo, ledger.NewDirectory(""), clock, nil)
	juan := ledger.Identity{SRCode: "24-43298", FullName: "Juan Dela Cruz", Type: "student"}

	const callers = 12
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Record(context.Background(), ledger.AttendanceRequest{Identity: juan, Hours: 2})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok, conflicts := tally(t, errs)
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, conflicts)

	var count int
	require.NoError(t, repo.db.Get(&count, `SELECT attendance_count FROM students WHERE srcode = $1`, juan.SRCode))
	assert.Equal(t, 1, count)
}

func Test_LedgerRepository_InsertAttendanceDuplicateIsConflict(t *testing.T) {
	repo, loc := newTestRepository(t)
	ctx := context.Background()
	day := time.Date(2026, 10, 19, 0, 0, 0, 0, loc)
	in := day.Add(9 * time.Hour)

	insert := func() error {
		return repo.WithTx(ctx, nil, func(tx ledger.Tx) error {
			return tx.InsertAttendance(ctx, ledger.AttendanceRecord{
				ID: uuid.NewString(), SRCode: "T-0001", Day: day, TimeIn: in, TimeOut: in.Add(time.Hour),
			})
		})
	}
	require.NoError(t, insert())
	assert.ErrorIs(t, insert(), ledger.ErrConflict)

	err := repo.WithTx(ctx, nil, func(tx ledger.Tx) error {
		rec, err := tx.AttendanceOn(ctx, "T-0001", day)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.True(t, rec.Day.Equal(day))
		assert.Equal(t, loc, rec.Day.Location())
		return nil
	})
	require.NoError(t, err)
}

func Test_LedgerRepository_BookFirstWriterWins(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	var created []bool
	for _, title := range []string{"Clean Code", "Dirty Code"} {
		err := repo.WithTx(ctx, []string{"isbn:111"}, func(tx ledger.Tx) error {
			ok, err := tx.InsertBook(ctx, ledger.Book{ISBN: "111", Title: title, Author: "Robert Martin"})
			created = append(created, ok)
			return err
		})
		require.NoError(t, err)
	}
	assert.Equal(t, []bool{true, false}, created)

	var title string
	require.NoError(t, repo.db.Get(&title, `SELECT bookname FROM books WHERE isbn = $1`, "111"))
	assert.Equal(t, "Clean Code", title)
}

func Test_LedgerRepository_BorrowsDueOnMatchesExactDate(t *testing.T) {
	repo, loc := newTestRepository(t)
	ctx := context.Background()
	today := time.Date(2026, 10, 19, 0, 0, 0, 0, loc)
	tomorrow := today.AddDate(0, 0, 1)

	seed := []struct {
		srcode, isbn string
		due          time.Time
	}{
		{"24-00001", "111", tomorrow},
		{"24-00002", "222", today.AddDate(0, 0, 2)},
		{"24-00003", "333", today},
	}
	err := repo.WithTx(ctx, nil, func(tx ledger.Tx) error {
		for _, s := range seed {
			if err := tx.InsertStudent(ctx, ledger.Student{SRCode: s.srcode, FullName: "Name " + s.srcode, Email: s.srcode + "@example.com", Type: ledger.AccountStudent}); err != nil {
				return err
			}
			if _, err := tx.InsertBook(ctx, ledger.Book{ISBN: s.isbn, Title: "Book " + s.isbn, Author: "Author"}); err != nil {
				return err
			}
			if err := tx.InsertBorrow(ctx, ledger.BorrowRecord{
				ID: uuid.NewString(), SRCode: s.srcode, Email: s.srcode + "@example.com", ISBN: s.isbn,
				Title: "Book " + s.isbn, Author: "Author", BorrowDate: today, ReturnDate: s.due,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	due, err := repo.BorrowsDueOn(ctx, tomorrow)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "24-00001", due[0].SRCode)
	assert.Equal(t, "Name 24-00001", due[0].FullName)
	assert.True(t, due[0].ReturnDate.Equal(tomorrow))
	assert.Equal(t, loc, due[0].ReturnDate.Location())
	assert.True(t, due[0].BorrowDate.Equal(today))
}
