package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Load_Defaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "AUTH_MODE", "LIBRARY_TZ", "ADMIN_TOKEN_TTL", "DEFAULT_LOAN_DAYS"} {
		t.Setenv(key, "")
	}
	cfg := Load()

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "verify", cfg.AuthMode)
	assert.Equal(t, "Asia/Manila", cfg.LibraryTZ)
	assert.Equal(t, 24*time.Hour, cfg.AdminTokenTTL)
	assert.Equal(t, 3, cfg.DefaultLoanDays)
	assert.False(t, cfg.Production())
	assert.NoError(t, cfg.Validate())
}

func Test_Load_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("NOTIFY_SEND_TIMEOUT", "5s")
	t.Setenv("NOTIFY_CONCURRENCY", "8")
	t.Setenv("ADMIN_TOKEN_TTL", "not-a-duration")
	t.Setenv("SMTP_PORT", "nope")

	cfg := Load()
	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, 5*time.Second, cfg.NotifySendTimeout)
	assert.Equal(t, 8, cfg.NotifyConcurrency)
	assert.Equal(t, 24*time.Hour, cfg.AdminTokenTTL)
	assert.Equal(t, 587, cfg.SMTPPort)
}

func Test_Validate_Production(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*App)
		wantErr string
	}{
		{name: "ok", mutate: func(a *App) {}},
		{name: "passthrough", mutate: func(a *App) { a.AuthMode = "passthrough" }, wantErr: "AUTH_MODE=passthrough"},
		{name: "dev_key", mutate: func(a *App) { a.TokenSigningKey = "dev-signing-secret-change" }, wantErr: "TOKEN_SIGNING_KEY"},
		{name: "memory_store", mutate: func(a *App) { a.StoreBackend = "memory" }, wantErr: "STORE_BACKEND"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := App{Env: "production", AuthMode: "verify", TokenSigningKey: "prod-secret", StoreBackend: "postgres", NotifyConcurrency: 1}
			tc.mutate(&a)
			err := a.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func Test_Validate_PassthroughAllowedOutsideProduction(t *testing.T) {
	a := App{Env: "dev", AuthMode: "passthrough", NotifyConcurrency: 1}
	assert.NoError(t, a.Validate())
}

func Test_SMTP(t *testing.T) {
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("MAIL_FROM", "library@example.com")
	t.Setenv("NOTIFY_SEND_TIMEOUT", "5s")

	smtp := Load().SMTP()
	assert.Equal(t, "smtp.example.com", smtp.Host)
	assert.Equal(t, 2525, smtp.Port)
	assert.Equal(t, "library@example.com", smtp.From)
	assert.Equal(t, 5*time.Second, smtp.Timeout)
}
