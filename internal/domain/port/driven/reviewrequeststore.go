package driven

import (
	"context"

	"github.com/ericfisherdev/reviewboard/internal/domain/model"
)

// ReviewRequestStore defines the driven port for review request persistence.
type ReviewRequestStore interface {
	// Create assigns the next site-local ID when LocalSiteID is set.
	Create(ctx context.Context, rr model.ReviewRequest) (model.ReviewRequest, error)
	// GetByDisplayID looks up a review request by the ID used in URLs. A nil
	// localSiteID matches review requests outside any local site. Returns nil, nil
	// if not found.
	GetByDisplayID(ctx context.Context, localSiteID *int64, displayID int64) (*model.ReviewRequest, error)
	// GetByExternalRef returns nil, nil if no review request carries the ref.
	GetByExternalRef(ctx context.Context, ref string) (*model.ReviewRequest, error)
	Update(ctx context.Context, rr model.ReviewRequest) error
}
