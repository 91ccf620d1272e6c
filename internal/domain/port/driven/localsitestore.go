package driven

import (
	"context"

	"github.com/ericfisherdev/reviewboard/internal/domain/model"
)

// LocalSiteStore defines the driven port for local site lookup and membership.
type LocalSiteStore interface {
	// Create returns ErrAlreadyExists if a site with the same name exists.
	Create(ctx context.Context, site model.LocalSite) (model.LocalSite, error)
	// GetByName returns nil, nil if no site has that name.
	GetByName(ctx context.Context, name string) (*model.LocalSite, error)
	AddMember(ctx context.Context, siteID, userID int64) error
	IsMember(ctx context.Context, siteID, userID int64) (bool, error)
}
