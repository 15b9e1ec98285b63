// Package identity provides email/password authentication for accounts.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hearth/api/internal/store"
	"hearth/api/internal/util"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// Service provides email/password authentication
type Service struct {
	store AccountStore
}

// AccountStore defines the storage interface for authentication
type AccountStore interface {
	GetAccountByEmail(ctx context.Context, email string) (store.Account, error)
	CreateAccount(ctx context.Context, account store.Account) error
}

// NewService creates a new identity service
func NewService(accountStore AccountStore) *Service {
	return &Service{store: accountStore}
}

// SignUpRequest contains sign-up parameters
type SignUpRequest struct {
	Email       string
	Password    string
	DisplayName string
}

// SignUp creates a new account
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (store.Account, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" || strings.TrimSpace(req.DisplayName) == "" {
		return store.Account{}, errors.New("email, password, and display name are required")
	}
	if len(req.Password) < 8 {
		return store.Account{}, errors.New("password must be at least 8 characters")
	}

	if _, err := s.store.GetAccountByEmail(ctx, email); err == nil {
		return store.Account{}, errors.New("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return store.Account{}, fmt.Errorf("hash password: %w", err)
	}

	account := store.Account{
		ID:           util.NewID("acc"),
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return store.Account{}, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

// SignInRequest contains sign-in parameters
type SignInRequest struct {
	Email    string
	Password string
}

// SignIn authenticates an account. Lookup and password failures collapse to
// the same error so callers cannot tell which emails exist.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (store.Account, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return store.Account{}, errors.New("email and password are required")
	}

	account, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		return store.Account{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return store.Account{}, ErrInvalidCredentials
	}
	return account, nil
}
