package admin

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"campuslibrary/internal/auth"
	"campuslibrary/internal/ledger"
)

// Accounts is the admin slice of the ledger store.
type Accounts interface {
	GetAdmin(ctx context.Context, username string) (*ledger.Admin, error)
	CountAdmins(ctx context.Context) (int, error)
	UpsertAdmin(ctx context.Context, username, passwordHash string) error
}

// Service authenticates dashboard operators and issues their session tokens.
type Service struct {
	accounts Accounts
	issuer   string
	key      string
	ttl      time.Duration
}

func NewService(accounts Accounts, issuer, signingKey string, ttl time.Duration) *Service {
	return &Service{accounts: accounts, issuer: issuer, key: signingKey, ttl: ttl}
}

// EnsureDefault creates the given account when no admin exists yet.
func (s *Service) EnsureDefault(ctx context.Context, username, password string) (bool, error) {
	n, err := s.accounts.CountAdmins(ctx)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	if err := s.SetPassword(ctx, username, password); err != nil {
		return false, err
	}
	log.Printf("default admin %q created, change its password", username)
	return true, nil
}

// SetPassword creates the admin or replaces its password.
func (s *Service) SetPassword(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", ledger.ErrInvalidArgument)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.accounts.UpsertAdmin(ctx, username, hash); err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrStoreFailure, err)
	}
	return nil
}

// Login checks the credentials and returns a signed session.
func (s *Service) Login(ctx context.Context, username, password string) (auth.AdminSession, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return auth.AdminSession{}, fmt.Errorf("%w: username and password are required", ledger.ErrInvalidArgument)
	}
	a, err := s.accounts.GetAdmin(ctx, username)
	if err != nil {
		return auth.AdminSession{}, fmt.Errorf("%w: %w", ledger.ErrStoreFailure, err)
	}
	if a == nil || !auth.CheckPassword(a.PasswordHash, password) {
		return auth.AdminSession{}, auth.ErrInvalidCredentials
	}
	return auth.IssueAdmin(a.Username, s.issuer, s.key, s.ttl)
}
