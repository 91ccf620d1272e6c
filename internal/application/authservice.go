package application

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/ericfisherdev/reviewboard/internal/domain/model"
	"github.com/ericfisherdev/reviewboard/internal/domain/port/driven"
)

// AuthService checks user credentials against stored password hashes.
type AuthService struct {
	userStore driven.UserStore
}

// NewAuthService creates a new AuthService.
func NewAuthService(userStore driven.UserStore) *AuthService {
	return &AuthService{userStore: userStore}
}

// Authenticate returns the user matching the credentials. Unknown users, users
// without a password and wrong passwords all yield ErrLoginFailed.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.userStore.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get user %q: %w", username, err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil, ErrLoginFailed
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return nil, ErrLoginFailed
	}
	if err != nil {
		return nil, fmt.Errorf("compare password for %q: %w", username, err)
	}

	return user, nil
}

// HashPassword returns the bcrypt hash stored for a password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
