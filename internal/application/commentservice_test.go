package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewboard/internal/application"
	"github.com/ericfisherdev/reviewboard/internal/domain/model"
)

type commentFixture struct {
	svc     *application.CommentService
	sites   *mockLocalSiteStore
	rrs     *mockReviewRequestStore
	diffs   *mockDiffStore
	reviews *mockReviewStore
}

// newCommentFixture stores:
//   - review request 1 (public, global) with revision 1 holding filediff 1
//   - review request 2 (private, submitted by user 7) with revision 1 holding filediff 2
//   - review request local 1 in private site "team" (site ID 3) holding filediff 3
func newCommentFixture() commentFixture {
	siteID := int64(3)
	sites := &mockLocalSiteStore{
		sites: map[string]model.LocalSite{
			"team":   {ID: 3, Name: "team"},
			"public": {ID: 4, Name: "public", Public: true},
		},
		members: map[int64][]int64{3: {7}},
	}
	rrs := &mockReviewRequestStore{requests: []model.ReviewRequest{
		{ID: 1, SubmitterID: 5, Public: true},
		{ID: 2, SubmitterID: 7, Public: false},
		{ID: 3, LocalSiteID: &siteID, LocalID: 1, SubmitterID: 7, Public: true},
	}}
	diffs := &mockDiffStore{
		diffSets: []model.DiffSet{
			{ID: 1, ReviewRequestID: 1, Revision: 1},
			{ID: 2, ReviewRequestID: 2, Revision: 1},
			{ID: 3, ReviewRequestID: 3, Revision: 1},
		},
		fileDiffs: []model.FileDiff{
			{ID: 1, DiffSetID: 1, DestFile: "main.go"},
			{ID: 2, DiffSetID: 2, DestFile: "main.go"},
			{ID: 3, DiffSetID: 3, DestFile: "main.go"},
		},
	}
	reviews := newMockReviewStore()
	reviews.listed = []model.DiffComment{{ID: 10, Text: "nit"}}
	reviews.total = 1

	return commentFixture{
		svc:     application.NewCommentService(sites, rrs, diffs, reviews),
		sites:   sites,
		rrs:     rrs,
		diffs:   diffs,
		reviews: reviews,
	}
}

func TestCommentService_ListFileDiffComments(t *testing.T) {
	owner := &model.User{ID: 7, Username: "owner"}
	stranger := &model.User{ID: 8, Username: "stranger"}

	tests := []struct {
		name    string
		req     application.FileDiffCommentsRequest
		wantErr error
	}{
		{
			name: "public review request",
			req:  application.FileDiffCommentsRequest{ReviewRequestID: 1, DiffRevision: 1, FileDiffID: 1},
		},
		{
			name:    "unknown review request",
			req:     application.FileDiffCommentsRequest{ReviewRequestID: 99, DiffRevision: 1, FileDiffID: 1},
			wantErr: application.ErrDoesNotExist,
		},
		{
			name:    "unknown revision",
			req:     application.FileDiffCommentsRequest{ReviewRequestID: 1, DiffRevision: 2, FileDiffID: 1},
			wantErr: application.ErrDoesNotExist,
		},
		{
			name:    "filediff of another review request",
			req:     application.FileDiffCommentsRequest{ReviewRequestID: 1, DiffRevision: 1, FileDiffID: 2},
			wantErr: application.ErrDoesNotExist,
		},
		{
			name:    "private review request anonymously",
			req:     application.FileDiffCommentsRequest{ReviewRequestID: 2, DiffRevision: 1, FileDiffID: 2},
			wantErr: application.ErrNotLoggedIn,
		},
		{
			name:    "private review request as another user",
			req:     application.FileDiffCommentsRequest{ReviewRequestID: 2, DiffRevision: 1, FileDiffID: 2, Viewer: stranger},
			wantErr: application.ErrPermissionDenied,
		},
		{
			name: "private review request as submitter",
			req:  application.FileDiffCommentsRequest{ReviewRequestID: 2, DiffRevision: 1, FileDiffID: 2, Viewer: owner},
		},
		{
			name:    "unknown local site",
			req:     application.FileDiffCommentsRequest{LocalSite: "nope", ReviewRequestID: 1, DiffRevision: 1, FileDiffID: 3},
			wantErr: application.ErrDoesNotExist,
		},
		{
			name:    "private local site anonymously",
			req:     application.FileDiffCommentsRequest{LocalSite: "team", ReviewRequestID: 1, DiffRevision: 1, FileDiffID: 3},
			wantErr: application.ErrNotLoggedIn,
		},
		{
			name:    "private local site as non-member",
			req:     application.FileDiffCommentsRequest{LocalSite: "team", ReviewRequestID: 1, DiffRevision: 1, FileDiffID: 3, Viewer: stranger},
			wantErr: application.ErrPermissionDenied,
		},
		{
			name: "private local site as member uses local ID",
			req:  application.FileDiffCommentsRequest{LocalSite: "team", ReviewRequestID: 1, DiffRevision: 1, FileDiffID: 3, Viewer: owner},
		},
		{
			name:    "global ID does not resolve inside a local site",
			req:     application.FileDiffCommentsRequest{LocalSite: "public", ReviewRequestID: 1, DiffRevision: 1, FileDiffID: 1},
			wantErr: application.ErrDoesNotExist,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newCommentFixture()

			page, err := fx.svc.ListFileDiffComments(context.Background(), tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, page)
				assert.Empty(t, fx.reviews.queries, "comments must not be queried")
				return
			}

			require.NoError(t, err)
			require.NotNil(t, page)
			assert.Equal(t, tt.req.FileDiffID, page.FileDiff.ID)
			assert.Equal(t, 1, page.Total)
			assert.Len(t, page.Comments, 1)
		})
	}
}

func TestCommentService_ListFileDiffComments_Query(t *testing.T) {
	fx := newCommentFixture()
	viewer := &model.User{ID: 5}
	line := 12
	interdiff := 2

	page, err := fx.svc.ListFileDiffComments(context.Background(), application.FileDiffCommentsRequest{
		ReviewRequestID:   1,
		DiffRevision:      1,
		FileDiffID:        1,
		Viewer:            viewer,
		Line:              &line,
		InterdiffRevision: &interdiff,
		Start:             5,
		MaxResults:        10,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Start)
	assert.Equal(t, 10, page.MaxResults)

	require.Len(t, fx.reviews.queries, 1)
	q := fx.reviews.queries[0]
	assert.Equal(t, int64(1), q.ReviewRequestID)
	assert.Equal(t, 1, q.DiffRevision)
	assert.Equal(t, int64(1), q.FileDiffID)
	require.NotNil(t, q.ViewerID)
	assert.Equal(t, int64(5), *q.ViewerID)
	assert.Equal(t, &line, q.Line)
	assert.Equal(t, &interdiff, q.InterdiffRevision)
	assert.Equal(t, 5, q.Start)
	assert.Equal(t, 10, q.MaxResults)
}

func TestCommentService_ListFileDiffComments_Pagination(t *testing.T) {
	tests := []struct {
		name      string
		start     int
		max       int
		wantStart int
		wantMax   int
	}{
		{name: "defaults", wantStart: 0, wantMax: application.DefaultMaxResults},
		{name: "negative start", start: -3, max: 5, wantStart: 0, wantMax: 5},
		{name: "capped", start: 2, max: 1000, wantStart: 2, wantMax: application.MaxResultsLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newCommentFixture()

			page, err := fx.svc.ListFileDiffComments(context.Background(), application.FileDiffCommentsRequest{
				ReviewRequestID: 1,
				DiffRevision:    1,
				FileDiffID:      1,
				Start:           tt.start,
				MaxResults:      tt.max,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, page.Start)
			assert.Equal(t, tt.wantMax, page.MaxResults)
			assert.Nil(t, fx.reviews.queries[0].ViewerID)
		})
	}
}

func TestCommentService_ListFileDiffComments_StoreError(t *testing.T) {
	fx := newCommentFixture()
	fx.diffs.err = errStore

	_, err := fx.svc.ListFileDiffComments(context.Background(), application.FileDiffCommentsRequest{
		ReviewRequestID: 1,
		DiffRevision:    1,
		FileDiffID:      1,
	})
	require.ErrorIs(t, err, errStore)
	assert.NotErrorIs(t, err, application.ErrDoesNotExist)
}
