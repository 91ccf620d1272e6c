package application_test

import (
	"context"
	"errors"

	"github.com/ericfisherdev/reviewboard/internal/domain/model"
	"github.com/ericfisherdev/reviewboard/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockLocalSiteStore struct {
	sites   map[string]model.LocalSite
	members map[int64][]int64
}

func (m *mockLocalSiteStore) Create(_ context.Context, site model.LocalSite) (model.LocalSite, error) {
	return site, nil
}

func (m *mockLocalSiteStore) GetByName(_ context.Context, name string) (*model.LocalSite, error) {
	site, ok := m.sites[name]
	if !ok {
		return nil, nil
	}
	return &site, nil
}

func (m *mockLocalSiteStore) AddMember(_ context.Context, _, _ int64) error {
	return nil
}

func (m *mockLocalSiteStore) IsMember(_ context.Context, siteID, userID int64) (bool, error) {
	for _, id := range m.members[siteID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

type mockUserStore struct {
	users  map[string]model.User
	nextID int64
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: map[string]model.User{}, nextID: 1}
}

func (m *mockUserStore) Create(_ context.Context, user model.User) (model.User, error) {
	if _, ok := m.users[user.Username]; ok {
		return model.User{}, driven.ErrAlreadyExists
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.Username] = user
	return user, nil
}

func (m *mockUserStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	user, ok := m.users[username]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (m *mockUserStore) GetOrCreate(ctx context.Context, username string) (model.User, error) {
	if user, ok := m.users[username]; ok {
		return user, nil
	}
	return m.Create(ctx, model.User{Username: username})
}

type mockRepoStore struct {
	repos []model.Repository
}

func (m *mockRepoStore) Add(_ context.Context, repo model.Repository) (model.Repository, error) {
	repo.ID = int64(len(m.repos) + 1)
	m.repos = append(m.repos, repo)
	return repo, nil
}

func (m *mockRepoStore) GetByPath(_ context.Context, tool, path string) (*model.Repository, error) {
	for _, r := range m.repos {
		if r.Tool == tool && r.Path == path {
			return &r, nil
		}
	}
	return nil, nil
}

func (m *mockRepoStore) ListAll(_ context.Context) ([]model.Repository, error) {
	return m.repos, nil
}

type mockReviewRequestStore struct {
	requests []model.ReviewRequest
	updates  int
}

func (m *mockReviewRequestStore) Create(_ context.Context, rr model.ReviewRequest) (model.ReviewRequest, error) {
	rr.ID = int64(len(m.requests) + 1)
	m.requests = append(m.requests, rr)
	return rr, nil
}

func (m *mockReviewRequestStore) GetByDisplayID(_ context.Context, localSiteID *int64, displayID int64) (*model.ReviewRequest, error) {
	for _, rr := range m.requests {
		switch {
		case localSiteID == nil && rr.LocalSiteID == nil && rr.ID == displayID:
			return &rr, nil
		case localSiteID != nil && rr.LocalSiteID != nil && *rr.LocalSiteID == *localSiteID && rr.LocalID == displayID:
			return &rr, nil
		}
	}
	return nil, nil
}

func (m *mockReviewRequestStore) GetByExternalRef(_ context.Context, ref string) (*model.ReviewRequest, error) {
	for _, rr := range m.requests {
		if rr.ExternalRef == ref {
			return &rr, nil
		}
	}
	return nil, nil
}

func (m *mockReviewRequestStore) Update(_ context.Context, rr model.ReviewRequest) error {
	for i := range m.requests {
		if m.requests[i].ID == rr.ID {
			m.requests[i] = rr
			m.updates++
			return nil
		}
	}
	return driven.ErrNotFound
}

type mockDiffStore struct {
	diffSets  []model.DiffSet
	fileDiffs []model.FileDiff
	err       error
}

func (m *mockDiffStore) CreateDiffSet(_ context.Context, ds model.DiffSet, files []model.FileDiff) (model.DiffSet, []model.FileDiff, error) {
	ds.ID = int64(len(m.diffSets) + 1)
	ds.Revision = 1
	for _, existing := range m.diffSets {
		if existing.ReviewRequestID == ds.ReviewRequestID {
			ds.Revision = max(ds.Revision, existing.Revision+1)
		}
	}
	m.diffSets = append(m.diffSets, ds)

	saved := make([]model.FileDiff, 0, len(files))
	for _, f := range files {
		f.ID = int64(len(m.fileDiffs) + 1)
		f.DiffSetID = ds.ID
		m.fileDiffs = append(m.fileDiffs, f)
		saved = append(saved, f)
	}
	return ds, saved, nil
}

func (m *mockDiffStore) GetLatestDiffSet(_ context.Context, reviewRequestID int64) (*model.DiffSet, error) {
	var latest *model.DiffSet
	for i := range m.diffSets {
		ds := m.diffSets[i]
		if ds.ReviewRequestID == reviewRequestID && (latest == nil || ds.Revision > latest.Revision) {
			latest = &ds
		}
	}
	return latest, nil
}

func (m *mockDiffStore) GetFileDiff(_ context.Context, reviewRequestID int64, revision int, fileDiffID int64) (*model.FileDiff, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, fd := range m.fileDiffs {
		if fd.ID != fileDiffID {
			continue
		}
		for _, ds := range m.diffSets {
			if ds.ID == fd.DiffSetID && ds.ReviewRequestID == reviewRequestID && ds.Revision == revision {
				return &fd, nil
			}
		}
	}
	return nil, nil
}

func (m *mockDiffStore) ListFileDiffs(_ context.Context, diffSetID int64) ([]model.FileDiff, error) {
	var out []model.FileDiff
	for _, fd := range m.fileDiffs {
		if fd.DiffSetID == diffSetID {
			out = append(out, fd)
		}
	}
	return out, nil
}

type mockReviewStore struct {
	reviews  map[string]model.Review
	comments map[string]model.DiffComment
	queries  []driven.FileDiffCommentQuery
	listed   []model.DiffComment
	total    int
}

func newMockReviewStore() *mockReviewStore {
	return &mockReviewStore{
		reviews:  map[string]model.Review{},
		comments: map[string]model.DiffComment{},
	}
}

func (m *mockReviewStore) CreateReview(_ context.Context, review model.Review) (model.Review, error) {
	if existing, ok := m.reviews[review.ExternalID]; ok {
		review.ID = existing.ID
	} else {
		review.ID = int64(len(m.reviews) + 1)
	}
	m.reviews[review.ExternalID] = review
	return review, nil
}

func (m *mockReviewStore) CreateComment(_ context.Context, comment model.DiffComment) (model.DiffComment, error) {
	if existing, ok := m.comments[comment.ExternalID]; ok {
		return existing, nil
	}
	comment.ID = int64(len(m.comments) + 1)
	m.comments[comment.ExternalID] = comment
	return comment, nil
}

func (m *mockReviewStore) ListFileDiffComments(_ context.Context, q driven.FileDiffCommentQuery) ([]model.DiffComment, int, error) {
	m.queries = append(m.queries, q)
	return m.listed, m.total, nil
}

type mockHostingClient struct {
	pr       model.HostedPullRequest
	files    []model.HostedFile
	reviews  []model.HostedReview
	comments []model.HostedComment
	err      error

	fileFetches int
}

func (m *mockHostingClient) FetchPullRequest(_ context.Context, _ string, _ int) (*model.HostedPullRequest, error) {
	if m.err != nil {
		return nil, m.err
	}
	pr := m.pr
	return &pr, nil
}

func (m *mockHostingClient) FetchPullRequestFiles(_ context.Context, _ string, _ int) ([]model.HostedFile, error) {
	m.fileFetches++
	return m.files, nil
}

func (m *mockHostingClient) FetchReviews(_ context.Context, _ string, _ int) ([]model.HostedReview, error) {
	return m.reviews, nil
}

func (m *mockHostingClient) FetchReviewComments(_ context.Context, _ string, _ int) ([]model.HostedComment, error) {
	return m.comments, nil
}

var errStore = errors.New("store unavailable")
