package application

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/reviewboard/internal/domain/model"
	"github.com/ericfisherdev/reviewboard/internal/domain/port/driven"
)

// Pagination bounds for list resources.
const (
	DefaultMaxResults = 25
	MaxResultsLimit   = 200
)

// FileDiffCommentsRequest identifies the file diff whose comments are listed and
// who is asking.
type FileDiffCommentsRequest struct {
	LocalSite       string // Empty outside a local site.
	ReviewRequestID int64  // Display ID: site-local inside a local site.
	DiffRevision    int
	FileDiffID      int64
	Viewer          *model.User // nil for anonymous requests.

	Line              *int
	InterdiffRevision *int
	Start             int
	MaxResults        int
}

// FileDiffCommentsPage is one page of comments on a resolved file diff.
type FileDiffCommentsPage struct {
	ReviewRequest model.ReviewRequest
	FileDiff      model.FileDiff
	Comments      []model.DiffComment
	Total         int
	Start         int
	MaxResults    int
}

// CommentService answers read queries for diff comments, enforcing local site
// and review request access before touching the comment store.
type CommentService struct {
	siteStore   driven.LocalSiteStore
	rrStore     driven.ReviewRequestStore
	diffStore   driven.DiffStore
	reviewStore driven.ReviewStore
}

// NewCommentService creates a new CommentService with the required dependencies.
func NewCommentService(
	siteStore driven.LocalSiteStore,
	rrStore driven.ReviewRequestStore,
	diffStore driven.DiffStore,
	reviewStore driven.ReviewStore,
) *CommentService {
	return &CommentService{
		siteStore:   siteStore,
		rrStore:     rrStore,
		diffStore:   diffStore,
		reviewStore: reviewStore,
	}
}

// ListFileDiffComments returns the comments on one file diff of one diff
// revision visible to the viewer. The file diff must resolve within the review
// request and revision, otherwise ErrDoesNotExist is returned.
func (s *CommentService) ListFileDiffComments(ctx context.Context, req FileDiffCommentsRequest) (*FileDiffCommentsPage, error) {
	siteID, err := s.resolveLocalSite(ctx, req.LocalSite, req.Viewer)
	if err != nil {
		return nil, err
	}

	rr, err := s.rrStore.GetByDisplayID(ctx, siteID, req.ReviewRequestID)
	if err != nil {
		return nil, fmt.Errorf("get review request %d: %w", req.ReviewRequestID, err)
	}
	if rr == nil {
		return nil, ErrDoesNotExist
	}
	if !rr.IsAccessibleBy(req.Viewer) {
		return nil, denied(req.Viewer)
	}

	fd, err := s.diffStore.GetFileDiff(ctx, rr.ID, req.DiffRevision, req.FileDiffID)
	if err != nil {
		return nil, fmt.Errorf("get filediff %d: %w", req.FileDiffID, err)
	}
	if fd == nil {
		return nil, ErrDoesNotExist
	}

	start, maxResults := clampPage(req.Start, req.MaxResults)

	q := driven.FileDiffCommentQuery{
		ReviewRequestID:   rr.ID,
		DiffRevision:      req.DiffRevision,
		FileDiffID:        fd.ID,
		Line:              req.Line,
		InterdiffRevision: req.InterdiffRevision,
		Start:             start,
		MaxResults:        maxResults,
	}
	if req.Viewer != nil {
		q.ViewerID = &req.Viewer.ID
	}

	comments, total, err := s.reviewStore.ListFileDiffComments(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list comments on filediff %d: %w", fd.ID, err)
	}

	return &FileDiffCommentsPage{
		ReviewRequest: *rr,
		FileDiff:      *fd,
		Comments:      comments,
		Total:         total,
		Start:         start,
		MaxResults:    maxResults,
	}, nil
}

// resolveLocalSite returns the ID of the named local site, or nil when name is
// empty. Non-public sites are restricted to their members.
func (s *CommentService) resolveLocalSite(ctx context.Context, name string, viewer *model.User) (*int64, error) {
	if name == "" {
		return nil, nil
	}

	site, err := s.siteStore.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get local site %q: %w", name, err)
	}
	if site == nil {
		return nil, ErrDoesNotExist
	}

	if !site.Public {
		if viewer == nil {
			return nil, ErrNotLoggedIn
		}
		member, err := s.siteStore.IsMember(ctx, site.ID, viewer.ID)
		if err != nil {
			return nil, fmt.Errorf("check membership of local site %q: %w", name, err)
		}
		if !member {
			return nil, ErrPermissionDenied
		}
	}

	return &site.ID, nil
}

func denied(viewer *model.User) error {
	if viewer == nil {
		return ErrNotLoggedIn
	}
	return ErrPermissionDenied
}

func clampPage(start, maxResults int) (int, int) {
	if start < 0 {
		start = 0
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return start, min(maxResults, MaxResultsLimit)
}
