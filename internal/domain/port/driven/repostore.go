package driven

import (
	"context"

	"github.com/ericfisherdev/reviewboard/internal/domain/model"
)

// RepoStore defines the driven port for repository persistence.
type RepoStore interface {
	// Add returns ErrAlreadyExists if a repository with the same path and tool exists.
	Add(ctx context.Context, repo model.Repository) (model.Repository, error)
	// GetByPath returns nil, nil if the repository does not exist.
	GetByPath(ctx context.Context, tool, path string) (*model.Repository, error)
	ListAll(ctx context.Context) ([]model.Repository, error)
}
