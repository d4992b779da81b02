package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrStoreFailure    = errors.New("store failure")
)

// BorrowedError reports that a book is held by someone else. It matches ErrConflict.
type BorrowedError struct {
	ISBN     string
	Borrower string
}

func (e *BorrowedError) Error() string {
	return fmt.Sprintf("book is currently borrowed by %s", e.Borrower)
}

// Is lets errors.Is(err, ErrConflict) match.
func (e *BorrowedError) Is(target error) bool { return target == ErrConflict }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// storeFailure wraps unclassified errors so the boundary reports them as store failures.
func storeFailure(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrStoreFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreFailure, err)
}
