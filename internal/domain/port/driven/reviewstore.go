package driven

import (
	"context"

	"github.com/ericfisherdev/reviewboard/internal/domain/model"
)

// FileDiffCommentQuery selects the comments on one file diff of one diff revision.
type FileDiffCommentQuery struct {
	ReviewRequestID int64
	DiffRevision    int
	FileDiffID      int64

	// ViewerID is the requesting user; nil for anonymous viewers. Comments of
	// unpublished reviews are only included for their owner.
	ViewerID *int64

	// Optional list filters.
	Line              *int
	InterdiffRevision *int

	Start      int
	MaxResults int
}

// ReviewStore defines the driven port for reviews and their diff comments.
type ReviewStore interface {
	// CreateReview inserts a review. Reviews with an ExternalID are upserted on it.
	CreateReview(ctx context.Context, review model.Review) (model.Review, error)
	// CreateComment inserts a diff comment. Comments with an ExternalID are
	// inserted once; later calls return the stored comment unchanged.
	CreateComment(ctx context.Context, comment model.DiffComment) (model.DiffComment, error)
	// ListFileDiffComments returns one page of matching comments ordered by
	// timestamp, together with the total number of matches.
	ListFileDiffComments(ctx context.Context, q FileDiffCommentQuery) ([]model.DiffComment, int, error)
}
