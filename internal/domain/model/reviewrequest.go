package model

import "time"

// ReviewRequest is the unit of work under review.
type ReviewRequest struct {
	ID           int64
	LocalSiteID  *int64
	LocalID      int64 // Site-scoped ID; 0 when LocalSiteID is nil.
	SubmitterID  int64
	RepositoryID *int64
	Summary      string
	Description  string
	Status       ReviewRequestStatus
	Public       bool
	ExternalRef  string // e.g. "github:owner/repo#42" for imported pull requests.
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayID returns the ID shown in URLs: the site-local ID inside a local site,
// the global ID otherwise.
func (rr ReviewRequest) DisplayID() int64 {
	if rr.LocalSiteID != nil {
		return rr.LocalID
	}
	return rr.ID
}

// IsAccessibleBy reports whether the given viewer may see the review request.
// A nil viewer is anonymous.
func (rr ReviewRequest) IsAccessibleBy(viewer *User) bool {
	if rr.Public {
		return true
	}
	return viewer != nil && viewer.ID == rr.SubmitterID
}
