package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"campuslibrary/internal/calendar"
	"campuslibrary/internal/ledger"
)

// Memory is an in-process ledger store for dev/testing. Every transaction runs under one
// mutex against a working copy, so units of work are serialized and roll back by being dropped.
type Memory struct {
	mu   sync.Mutex
	loc  *time.Location
	now  func() time.Time
	data memData
}

type memData struct {
	students   map[string]ledger.Student
	books      map[string]ledger.Book
	borrows    []ledger.BorrowRecord
	attendance []ledger.AttendanceRecord
	admins     map[string]ledger.Admin
	nextAdmin  int64
}

// NewMemory creates an empty store. loc anchors report dates.
func NewMemory(loc *time.Location) *Memory {
	return &Memory{
		loc: loc,
		now: time.Now,
		data: memData{
			students: map[string]ledger.Student{},
			books:    map[string]ledger.Book{},
			admins:   map[string]ledger.Admin{},
		},
	}
}

func (d memData) clone() memData {
	out := memData{
		students:   make(map[string]ledger.Student, len(d.students)),
		books:      make(map[string]ledger.Book, len(d.books)),
		borrows:    append([]ledger.BorrowRecord(nil), d.borrows...),
		attendance: append([]ledger.AttendanceRecord(nil), d.attendance...),
		admins:     make(map[string]ledger.Admin, len(d.admins)),
		nextAdmin:  d.nextAdmin,
	}
	for k, v := range d.students {
		out.students[k] = v
	}
	for k, v := range d.books {
		out.books[k] = v
	}
	for k, v := range d.admins {
		out.admins[k] = v
	}
	return out
}

// WithTx runs fn against a working copy and publishes it only when fn succeeds.
// Lock keys are implied by the global mutex.
func (m *Memory) WithTx(ctx context.Context, _ []string, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.data.clone()
	if err := fn(&memTx{d: &work, now: m.now}); err != nil {
		return err
	}
	m.data = work
	return nil
}

// CurrentBorrow returns the student's held book with the earliest return date.
func (m *Memory) CurrentBorrow(_ context.Context, srcode string) (*ledger.BorrowRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *ledger.BorrowRecord
	for i := range m.data.borrows {
		b := m.data.borrows[i]
		if b.SRCode != srcode {
			continue
		}
		if best == nil || b.ReturnDate.Before(best.ReturnDate) {
			best = &b
		}
	}
	return best, nil
}

// BorrowsDueOn returns every borrow whose return date is exactly day.
func (m *Memory) BorrowsDueOn(_ context.Context, day time.Time) ([]ledger.DueBorrow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []ledger.DueBorrow
	for _, b := range m.data.borrows {
		if !calendar.SameDay(b.ReturnDate, day) {
			continue
		}
		s, ok := m.data.students[b.SRCode]
		if !ok {
			continue
		}
		b.Email = s.Email
		out = append(out, ledger.DueBorrow{BorrowRecord: b, FullName: s.FullName})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SRCode != out[j].SRCode {
			return out[i].SRCode < out[j].SRCode
		}
		return out[i].ISBN < out[j].ISBN
	})
	return out, nil
}

// TopAttendance ranks students by whole hours attended.
func (m *Memory) TopAttendance(_ context.Context, limit int) ([]ledger.AttendanceRank, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hours := map[string]int{}
	for _, a := range m.data.attendance {
		hours[a.SRCode] += int(a.TimeOut.Sub(a.TimeIn) / time.Hour)
	}
	var out []ledger.AttendanceRank
	for _, s := range m.data.students {
		if s.Type != ledger.AccountStudent {
			continue
		}
		out = append(out, ledger.AttendanceRank{SRCode: s.SRCode, Name: displayName(s.FullName), TotalHours: hours[s.SRCode]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalHours != out[j].TotalHours {
			return out[i].TotalHours > out[j].TotalHours
		}
		return out[i].SRCode < out[j].SRCode
	})
	return capRows(out, limit), nil
}

// MostBorrowed ranks students by lifetime borrow count.
func (m *Memory) MostBorrowed(_ context.Context, limit int) ([]ledger.BorrowRank, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []ledger.BorrowRank
	for _, s := range m.data.students {
		if s.Type != ledger.AccountStudent {
			continue
		}
		out = append(out, ledger.BorrowRank{SRCode: s.SRCode, Name: displayName(s.FullName), BooksBorrowed: s.BookCount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BooksBorrowed != out[j].BooksBorrowed {
			return out[i].BooksBorrowed > out[j].BooksBorrowed
		}
		return out[i].SRCode < out[j].SRCode
	})
	return capRows(out, limit), nil
}

// AttendanceOnDay lists the visits recorded for day, newest first.
func (m *Memory) AttendanceOnDay(_ context.Context, day time.Time) ([]ledger.DailyAttendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []ledger.DailyAttendance
	for _, a := range m.data.attendance {
		if !calendar.SameDay(a.Day, day) {
			continue
		}
		out = append(out, ledger.DailyAttendance{
			SRCode: a.SRCode,
			Name:   displayName(m.data.students[a.SRCode].FullName),
			Hours:  int(a.TimeOut.Sub(a.TimeIn) / time.Hour),
			TimeIn: a.TimeIn.In(m.loc),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimeIn.After(out[j].TimeIn) })
	return out, nil
}

// GetAdmin returns the admin or nil.
func (m *Memory) GetAdmin(_ context.Context, username string) (*ledger.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.data.admins[username]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// CountAdmins returns the number of admin accounts.
func (m *Memory) CountAdmins(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data.admins), nil
}

// UpsertAdmin creates an admin or replaces its password hash.
func (m *Memory) UpsertAdmin(_ context.Context, username, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.data.admins[username]
	if !ok {
		m.data.nextAdmin++
		a = ledger.Admin{ID: m.data.nextAdmin, Username: username, CreatedAt: m.now()}
	}
	a.PasswordHash = passwordHash
	m.data.admins[username] = a
	return nil
}

func displayName(name string) string {
	if name == "" {
		return "Unknown"
	}
	return name
}

func capRows[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

type memTx struct {
	d   *memData
	now func() time.Time
}

func (t *memTx) GetStudent(_ context.Context, srcode string) (*ledger.Student, error) {
	s, ok := t.d.students[srcode]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (t *memTx) InsertStudent(_ context.Context, s ledger.Student) error {
	if _, ok := t.d.students[s.SRCode]; ok {
		return nil
	}
	s.AttendanceCount, s.BookCount = 0, 0
	s.CreatedAt = t.now()
	t.d.students[s.SRCode] = s
	return nil
}

func (t *memTx) IncrementAttendanceCount(_ context.Context, srcode string) error {
	if s, ok := t.d.students[srcode]; ok {
		s.AttendanceCount++
		t.d.students[srcode] = s
	}
	return nil
}

func (t *memTx) IncrementBookCount(_ context.Context, srcode string) error {
	if s, ok := t.d.students[srcode]; ok {
		s.BookCount++
		t.d.students[srcode] = s
	}
	return nil
}

func (t *memTx) AttendanceOn(_ context.Context, srcode string, day time.Time) (*ledger.AttendanceRecord, error) {
	for _, a := range t.d.attendance {
		if a.SRCode == srcode && calendar.SameDay(a.Day, day) {
			return &a, nil
		}
	}
	return nil, nil
}

func (t *memTx) InsertAttendance(ctx context.Context, rec ledger.AttendanceRecord) error {
	if existing, _ := t.AttendanceOn(ctx, rec.SRCode, rec.Day); existing != nil {
		return fmt.Errorf("%w: attendance already recorded for today", ledger.ErrConflict)
	}
	t.d.attendance = append(t.d.attendance, rec)
	return nil
}

func (t *memTx) InsertBook(_ context.Context, b ledger.Book) (bool, error) {
	if _, ok := t.d.books[b.ISBN]; ok {
		return false, nil
	}
	b.CreatedAt = t.now()
	t.d.books[b.ISBN] = b
	return true, nil
}

func (t *memTx) OutstandingBorrow(_ context.Context, isbn string, today time.Time) (*ledger.DueBorrow, error) {
	for _, b := range t.d.borrows {
		if b.ISBN == isbn && b.Outstanding(today) {
			return &ledger.DueBorrow{BorrowRecord: b, FullName: t.d.students[b.SRCode].FullName}, nil
		}
	}
	return nil, nil
}

func (t *memTx) InsertBorrow(_ context.Context, rec ledger.BorrowRecord) error {
	if _, ok := t.d.students[rec.SRCode]; !ok {
		return fmt.Errorf("borrow references unknown student %s", rec.SRCode)
	}
	if _, ok := t.d.books[rec.ISBN]; !ok {
		return fmt.Errorf("borrow references unknown book %s", rec.ISBN)
	}
	rec.CreatedAt = t.now()
	t.d.borrows = append(t.d.borrows, rec)
	return nil
}

func (t *memTx) FindBorrow(_ context.Context, srcode, isbn string) (*ledger.BorrowRecord, error) {
	for _, b := range t.d.borrows {
		if b.SRCode == srcode && b.ISBN == isbn {
			return &b, nil
		}
	}
	return nil, nil
}

func (t *memTx) DeleteBorrow(_ context.Context, srcode, isbn string) (int64, error) {
	kept := t.d.borrows[:0:0]
	var n int64
	for _, b := range t.d.borrows {
		if b.SRCode == srcode && b.ISBN == isbn {
			n++
			continue
		}
		kept = append(kept, b)
	}
	t.d.borrows = kept
	return n, nil
}
