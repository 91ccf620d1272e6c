package driven

import (
	"context"

	"github.com/ericfisherdev/reviewboard/internal/domain/model"
)

// DiffStore defines the driven port for diff revisions and their file diffs.
type DiffStore interface {
	// CreateDiffSet stores a new revision with its file diffs in one transaction.
	// The revision number is assigned as one past the latest revision.
	CreateDiffSet(ctx context.Context, ds model.DiffSet, files []model.FileDiff) (model.DiffSet, []model.FileDiff, error)
	// GetLatestDiffSet returns nil, nil if the review request has no diffs.
	GetLatestDiffSet(ctx context.Context, reviewRequestID int64) (*model.DiffSet, error)
	// GetFileDiff resolves a file diff by ID within one revision of a review
	// request. Returns nil, nil if any part of the path does not match.
	GetFileDiff(ctx context.Context, reviewRequestID int64, revision int, fileDiffID int64) (*model.FileDiff, error)
	ListFileDiffs(ctx context.Context, diffSetID int64) ([]model.FileDiff, error)
}
