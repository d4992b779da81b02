package ledger

import (
	"context"

	"campuslibrary/internal/calendar"
)

// ReportLimit caps the ranked admin reports.
const ReportLimit = 100

// Reports serves the read-only admin views.
type Reports struct {
	store Store
	clock *calendar.Clock
}

func NewReports(store Store, clock *calendar.Clock) *Reports {
	return &Reports{store: store, clock: clock}
}

// TopAttendance ranks students by total attended hours.
func (r *Reports) TopAttendance(ctx context.Context) ([]AttendanceRank, error) {
	rows, err := r.store.TopAttendance(ctx, ReportLimit)
	return rows, storeFailure(err)
}

// MostBorrowed ranks students by lifetime borrow count.
func (r *Reports) MostBorrowed(ctx context.Context) ([]BorrowRank, error) {
	rows, err := r.store.MostBorrowed(ctx, ReportLimit)
	return rows, storeFailure(err)
}

// Today lists today's visits, newest first.
func (r *Reports) Today(ctx context.Context) ([]DailyAttendance, error) {
	rows, err := r.store.AttendanceOnDay(ctx, r.clock.Today())
	return rows, storeFailure(err)
}
