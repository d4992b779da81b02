package ledger

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"campuslibrary/internal/calendar"
	"campuslibrary/internal/metrics"
)

// AttendanceListener is told about every committed attendance record.
type AttendanceListener interface {
	AttendanceRecorded(name string, rec AttendanceRecord)
}

// MaxVisitHours bounds a single visit.
const MaxVisitHours = 24

// AttendanceRequest asks for a visit of Hours hours starting now.
type AttendanceRequest struct {
	Identity Identity
	Hours    int
}

// AttendanceLedger enforces one attendance record per student per library-local day.
type AttendanceLedger struct {
	store    Store
	dir      *Directory
	clock    *calendar.Clock
	listener AttendanceListener
}

// NewAttendanceLedger creates the ledger. listener may be nil.
func NewAttendanceLedger(store Store, dir *Directory, clock *calendar.Clock, listener AttendanceListener) *AttendanceLedger {
	return &AttendanceLedger{store: store, dir: dir, clock: clock, listener: listener}
}

// Record checks the caller in for today.
func (l *AttendanceLedger) Record(ctx context.Context, req AttendanceRequest) (Receipt, error) {
	receipt, err := l.record(ctx, req)
	metrics.LedgerOutcome("attendance", err, outcomeClasses...)
	return receipt, err
}

func (l *AttendanceLedger) record(ctx context.Context, req AttendanceRequest) (Receipt, error) {
	id := req.Identity
	id.SRCode = strings.TrimSpace(id.SRCode)
	if id.SRCode == "" {
		return Receipt{}, invalid("srcode is required")
	}
	if req.Hours <= 0 {
		return Receipt{}, invalid("hours must be greater than zero")
	}
	if req.Hours > MaxVisitHours {
		return Receipt{}, invalid("hours must not exceed %d", MaxVisitHours)
	}

	now := l.clock.Now()
	today := calendar.DateOf(now, l.clock.Location())
	rec := AttendanceRecord{
		ID:      uuid.NewString(),
		SRCode:  id.SRCode,
		Day:     today,
		TimeIn:  now,
		TimeOut: now.Add(time.Duration(req.Hours) * time.Hour),
	}

	var (
		student    *Student
		registered bool
	)
	err := l.store.WithTx(ctx, []string{attendanceLockKey(id.SRCode, today)}, func(tx Tx) error {
		existing, err := tx.AttendanceOn(ctx, id.SRCode, today)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: attendance already recorded for today", ErrConflict)
		}

		student, registered, err = l.dir.Ensure(ctx, tx, id, PurposeAttendance)
		if err != nil {
			return err
		}
		if err := tx.InsertAttendance(ctx, rec); err != nil {
			return err
		}
		if student == nil {
			return nil
		}
		if err := tx.IncrementAttendanceCount(ctx, id.SRCode); err != nil {
			return err
		}
		student.AttendanceCount++
		return nil
	})
	if err != nil {
		return Receipt{}, storeFailure(err)
	}

	name := strings.TrimSpace(id.FullName)
	receipt := Receipt{Registered: registered, Attendance: &rec}
	if student != nil {
		receipt.Student = *student
		if name == "" {
			name = student.FullName
		}
	}
	receipt.Message = fmt.Sprintf("Attendance recorded successfully for %s.", name)
	if l.listener != nil {
		l.listener.AttendanceRecorded(name, rec)
	}
	log.Printf("attendance recorded for %s (%d h)", id.SRCode, req.Hours)
	return receipt, nil
}

var outcomeClasses = []metrics.Classifier{
	{Label: "invalid", Target: ErrInvalidArgument},
	{Label: "conflict", Target: ErrConflict},
	{Label: "not_found", Target: ErrNotFound},
	{Label: "store_failure", Target: ErrStoreFailure},
}
