package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campuslibrary/internal/ledger"
)

func Test_Memory_RollbackDropsWork(t *testing.T) {
	m := NewMemory(time.UTC)
	ctx := context.Background()
	boom := errors.New("boom")

	err := m.WithTx(ctx, nil, func(tx ledger.Tx) error {
		require.NoError(t, tx.InsertStudent(ctx, ledger.Student{SRCode: "24-00001", FullName: "A"}))
		_, err := tx.InsertBook(ctx, ledger.Book{ISBN: "1", Title: "t", Author: "a"})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, m.WithTx(ctx, nil, func(tx ledger.Tx) error {
		s, err := tx.GetStudent(ctx, "24-00001")
		assert.Nil(t, s)
		return err
	}))
}

func Test_Memory_BookIsImmutable(t *testing.T) {
	m := NewMemory(time.UTC)
	ctx := context.Background()

	require.NoError(t, m.WithTx(ctx, nil, func(tx ledger.Tx) error {
		created, err := tx.InsertBook(ctx, ledger.Book{ISBN: "1", Title: "First", Author: "A"})
		assert.True(t, created)
		if err != nil {
			return err
		}
		created, err = tx.InsertBook(ctx, ledger.Book{ISBN: "1", Title: "Second", Author: "B"})
		assert.False(t, created)
		return err
	}))
	assert.Equal(t, "First", m.data.books["1"].Title)
}

func Test_Memory_InsertBorrowRequiresReferences(t *testing.T) {
	m := NewMemory(time.UTC)
	ctx := context.Background()

	err := m.WithTx(ctx, nil, func(tx ledger.Tx) error {
		return tx.InsertBorrow(ctx, ledger.BorrowRecord{SRCode: "24-00001", ISBN: "1"})
	})
	assert.Error(t, err)
}

func Test_Memory_AttendanceUniquePerDay(t *testing.T) {
	m := NewMemory(time.UTC)
	ctx := context.Background()
	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	insert := func(in time.Time) error {
		return m.WithTx(ctx, nil, func(tx ledger.Tx) error {
			return tx.InsertAttendance(ctx, ledger.AttendanceRecord{SRCode: "24-00001", Day: day, TimeIn: in, TimeOut: in.Add(time.Hour)})
		})
	}
	require.NoError(t, insert(day.Add(9*time.Hour)))
	assert.ErrorIs(t, insert(day.Add(14*time.Hour)), ledger.ErrConflict)
}

func Test_Memory_Admins(t *testing.T) {
	m := NewMemory(time.UTC)
	ctx := context.Background()

	n, err := m.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, m.UpsertAdmin(ctx, "admin", "h1"))
	require.NoError(t, m.UpsertAdmin(ctx, "admin", "h2"))

	n, err = m.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	a, err := m.GetAdmin(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "h2", a.PasswordHash)
	assert.Equal(t, int64(1), a.ID)

	missing, err := m.GetAdmin(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func Test_CapRows(t *testing.T) {
	assert.Equal(t, []int{1, 2}, capRows([]int{1, 2, 3}, 2))
	assert.Equal(t, []int{1, 2, 3}, capRows([]int{1, 2, 3}, 0))
	assert.Equal(t, []int{1}, capRows([]int{1}, 5))
}

func Test_Memory_CancelledContext(t *testing.T) {
	m := NewMemory(time.UTC)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := m.WithTx(ctx, nil, func(ledger.Tx) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
