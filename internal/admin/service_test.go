package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campuslibrary/internal/auth"
	"campuslibrary/internal/ledger"
	"campuslibrary/internal/store"
)

func Test_EnsureDefault_OnlyWhenEmpty(t *testing.T) {
	mem := store.NewMemory(time.UTC)
	svc := NewService(mem, "campus-library", "secret", time.Hour)
	ctx := context.Background()

	created, err := svc.EnsureDefault(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureDefault(ctx, "other", "pw")
	require.NoError(t, err)
	assert.False(t, created)

	n, err := mem.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func Test_Login(t *testing.T) {
	mem := store.NewMemory(time.UTC)
	svc := NewService(mem, "campus-library", "secret", time.Hour)
	ctx := context.Background()
	require.NoError(t, svc.SetPassword(ctx, "librarian", "s3cret"))

	session, err := svc.Login(ctx, "librarian", "s3cret")
	require.NoError(t, err)
	claims, err := auth.ParseAdmin(session.Token, "secret", "campus-library")
	require.NoError(t, err)
	assert.Equal(t, "librarian", claims.Username)

	_, err = svc.Login(ctx, "librarian", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "ghost", "s3cret")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "", "x")
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
}

func Test_SetPassword_Replaces(t *testing.T) {
	mem := store.NewMemory(time.UTC)
	svc := NewService(mem, "i", "k", time.Hour)
	ctx := context.Background()

	require.NoError(t, svc.SetPassword(ctx, "admin", "one"))
	require.NoError(t, svc.SetPassword(ctx, "admin", "two"))

	_, err := svc.Login(ctx, "admin", "one")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "admin", "two")
	assert.NoError(t, err)
}
