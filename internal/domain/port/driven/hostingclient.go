package driven

import (
	"context"

	"github.com/ericfisherdev/reviewboard/internal/domain/model"
)

// HostingClient defines the driven port for reading pull requests from a code
// hosting service.
type HostingClient interface {
	FetchPullRequest(ctx context.Context, repoFullName string, number int) (*model.HostedPullRequest, error)
	FetchPullRequestFiles(ctx context.Context, repoFullName string, number int) ([]model.HostedFile, error)
	FetchReviews(ctx context.Context, repoFullName string, number int) ([]model.HostedReview, error)
	FetchReviewComments(ctx context.Context, repoFullName string, number int) ([]model.HostedComment, error)
}
