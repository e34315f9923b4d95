package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

// Service manages account lifecycle.
type Service struct {
	repo Repository
}

// NewService creates a new account service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a new account with a hashed secret.
func (s *Service) Register(ctx context.Context, creds Credentials) (Account, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if email == "" || !strings.Contains(email, "@") {
		return Account{}, errors.New("a valid email is required")
	}
	if len(creds.Password) < minPasswordLen {
		return Account{}, fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}

	acc := Account{
		ID:         uuid.New().String(),
		Email:      email,
		SecretHash: hash,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, acc); err != nil {
		return Account{}, err
	}

	return acc, nil
}

// Authenticate verifies credentials and returns the matching account.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (Account, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	acc, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, ErrUnauthenticated
		}
		return Account{}, err
	}

	if err := bcrypt.CompareHashAndPassword(acc.SecretHash, []byte(creds.Password)); err != nil {
		return Account{}, ErrUnauthenticated
	}

	return acc, nil
}

// Get fetches an account by identity.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	return s.repo.FindByID(ctx, id)
}
