package ledger

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"campuslibrary/internal/calendar"
	"campuslibrary/internal/isbn"
	"campuslibrary/internal/metrics"
)

// BorrowNotifier is told about committed borrows. Failures never undo the borrow.
type BorrowNotifier interface {
	BorrowConfirmed(ctx context.Context, student Student, rec BorrowRecord) error
}

// BorrowRequest asks to lend a book for LoanDays business days starting today.
type BorrowRequest struct {
	Identity Identity
	ISBN     string
	Title    string
	Author   string
	LoanDays int
}

// LendingLedger enforces at most one outstanding borrow per ISBN.
type LendingLedger struct {
	store    Store
	dir      *Directory
	clock    *calendar.Clock
	notifier BorrowNotifier
}

// NewLendingLedger creates the ledger. notifier may be nil.
func NewLendingLedger(store Store, dir *Directory, clock *calendar.Clock, notifier BorrowNotifier) *LendingLedger {
	return &LendingLedger{store: store, dir: dir, clock: clock, notifier: notifier}
}

// Borrow lends a book to the caller.
func (l *LendingLedger) Borrow(ctx context.Context, req BorrowRequest) (Receipt, error) {
	receipt, err := l.borrow(ctx, req)
	metrics.LedgerOutcome("borrow", err, outcomeClasses...)
	return receipt, err
}

func (l *LendingLedger) borrow(ctx context.Context, req BorrowRequest) (Receipt, error) {
	id := req.Identity
	id.SRCode = strings.TrimSpace(id.SRCode)
	id.FullName = strings.TrimSpace(id.FullName)
	id.Type = strings.TrimSpace(id.Type)
	code := isbn.Normalize(req.ISBN)
	title := strings.TrimSpace(req.Title)
	author := strings.TrimSpace(req.Author)

	switch {
	case id.SRCode == "" || id.FullName == "" || id.Type == "":
		return Receipt{}, invalid("srcode, fullname and type are required")
	case code == "":
		return Receipt{}, invalid("isbn is required")
	case title == "" || author == "":
		return Receipt{}, invalid("book title and author are required")
	case req.LoanDays < 0:
		return Receipt{}, invalid("loan length must not be negative")
	}

	today := l.clock.Today()
	due, err := calendar.ReturnDate(today, req.LoanDays)
	if err != nil {
		return Receipt{}, invalid("%v", err)
	}

	var (
		student    *Student
		registered bool
		rec        BorrowRecord
	)
	err = l.store.WithTx(ctx, []string{isbnLockKey(code)}, func(tx Tx) error {
		var err error
		student, registered, err = l.dir.Ensure(ctx, tx, id, PurposeBorrow)
		if err != nil {
			return err
		}
		if student == nil {
			return invalid("account type %q cannot borrow", id.Type)
		}

		// First writer wins; later borrowers keep the original title and author.
		if _, err := tx.InsertBook(ctx, Book{ISBN: code, Title: title, Author: author}); err != nil {
			return err
		}

		held, err := tx.OutstandingBorrow(ctx, code, today)
		if err != nil {
			return err
		}
		if held != nil {
			borrower := held.FullName
			if borrower == "" {
				borrower = held.SRCode
			}
			return &BorrowedError{ISBN: code, Borrower: borrower}
		}

		rec = BorrowRecord{
			ID:         uuid.NewString(),
			SRCode:     student.SRCode,
			Email:      student.Email,
			ISBN:       code,
			Title:      title,
			Author:     author,
			BorrowDate: today,
			ReturnDate: due,
		}
		if err := tx.InsertBorrow(ctx, rec); err != nil {
			return err
		}
		if err := tx.IncrementBookCount(ctx, student.SRCode); err != nil {
			return err
		}
		student.BookCount++
		return nil
	})
	if err != nil {
		return Receipt{}, storeFailure(err)
	}

	if l.notifier != nil {
		if nerr := l.notifier.BorrowConfirmed(ctx, *student, rec); nerr != nil {
			log.Printf("borrow confirmation for %s failed: %v", student.Email, nerr)
		}
	}
	log.Printf("%s borrowed %s until %s", student.SRCode, code, calendar.FormatDate(due))

	return Receipt{
		Message:    fmt.Sprintf("%s borrowed '%s' successfully.", id.FullName, title),
		Student:    *student,
		Registered: registered,
		Borrow:     &rec,
	}, nil
}

// Return removes the caller's borrow record for the book.
func (l *LendingLedger) Return(ctx context.Context, id Identity, rawISBN string) (Receipt, error) {
	receipt, err := l.returnBook(ctx, id, rawISBN)
	metrics.LedgerOutcome("return", err, outcomeClasses...)
	return receipt, err
}

func (l *LendingLedger) returnBook(ctx context.Context, id Identity, rawISBN string) (Receipt, error) {
	srcode := strings.TrimSpace(id.SRCode)
	code := isbn.Normalize(rawISBN)
	if srcode == "" || code == "" {
		return Receipt{}, invalid("srcode and isbn are required")
	}

	var rec *BorrowRecord
	err := l.store.WithTx(ctx, []string{isbnLockKey(code)}, func(tx Tx) error {
		var err error
		rec, err = tx.FindBorrow(ctx, srcode, code)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("%w: you have no record of borrowing this book", ErrNotFound)
		}
		_, err = tx.DeleteBorrow(ctx, srcode, code)
		return err
	})
	if err != nil {
		return Receipt{}, storeFailure(err)
	}

	log.Printf("%s returned %s", srcode, code)
	return Receipt{
		Message: fmt.Sprintf("%s returned the book successfully.", id.FullName),
		Borrow:  rec,
	}, nil
}

// Current returns the book the student holds with the earliest return date, or nil.
func (l *LendingLedger) Current(ctx context.Context, srcode string) (*BorrowRecord, error) {
	srcode = strings.TrimSpace(srcode)
	if srcode == "" {
		return nil, invalid("srcode is required")
	}
	rec, err := l.store.CurrentBorrow(ctx, srcode)
	if err != nil {
		return nil, storeFailure(err)
	}
	return rec, nil
}
