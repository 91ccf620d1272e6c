package driven

import (
	"context"

	"github.com/ericfisherdev/reviewboard/internal/domain/model"
)

// UserStore defines the driven port for user accounts.
type UserStore interface {
	// Create returns ErrAlreadyExists if the username is taken.
	Create(ctx context.Context, user model.User) (model.User, error)
	// GetByUsername returns nil, nil if the user does not exist.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// GetOrCreate returns the existing user or creates one without a password.
	GetOrCreate(ctx context.Context, username string) (model.User, error)
}
