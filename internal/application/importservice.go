package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/reviewboard/internal/domain/model"
	"github.com/ericfisherdev/reviewboard/internal/domain/port/driven"
)

// HostingToolGitHub is the repository tool recorded for imported GitHub repositories.
const HostingToolGitHub = "github"

// ImportResult summarizes one pull request import.
type ImportResult struct {
	ReviewRequest model.ReviewRequest
	DiffSet       *model.DiffSet
	NewRevision   bool
	Reviews       int
	Comments      int
	Skipped       int
}

// ImportService copies a hosted pull request into review requests, diff
// revisions, reviews and diff comments. Imports are idempotent: a revision is
// only added when the head commit changes, and reviews and comments are keyed
// by their hosted IDs.
type ImportService struct {
	client      driven.HostingClient
	repoStore   driven.RepoStore
	userStore   driven.UserStore
	rrStore     driven.ReviewRequestStore
	diffStore   driven.DiffStore
	reviewStore driven.ReviewStore
}

// NewImportService creates a new ImportService with all required dependencies.
func NewImportService(
	client driven.HostingClient,
	repoStore driven.RepoStore,
	userStore driven.UserStore,
	rrStore driven.ReviewRequestStore,
	diffStore driven.DiffStore,
	reviewStore driven.ReviewStore,
) *ImportService {
	return &ImportService{
		client:      client,
		repoStore:   repoStore,
		userStore:   userStore,
		rrStore:     rrStore,
		diffStore:   diffStore,
		reviewStore: reviewStore,
	}
}

// ExternalRef returns the reference stored on review requests imported from a
// GitHub pull request.
func ExternalRef(repoFullName string, number int) string {
	return fmt.Sprintf("github:%s#%d", repoFullName, number)
}

// ImportPullRequest imports one pull request.
func (s *ImportService) ImportPullRequest(ctx context.Context, repoFullName string, number int) (*ImportResult, error) {
	start := time.Now()

	pr, err := s.client.FetchPullRequest(ctx, repoFullName, number)
	if err != nil {
		return nil, fmt.Errorf("fetch pull request %s#%d: %w", repoFullName, number, err)
	}

	repo, err := s.ensureRepository(ctx, repoFullName)
	if err != nil {
		return nil, err
	}

	rr, err := s.upsertReviewRequest(ctx, pr, repo)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{ReviewRequest: rr}

	ds, created, err := s.syncDiff(ctx, pr, rr)
	if err != nil {
		return nil, err
	}
	result.DiffSet = ds
	result.NewRevision = created

	if err := s.syncReviews(ctx, pr, rr, ds, result); err != nil {
		return nil, err
	}

	slog.Info("pull request imported",
		"repo", repoFullName,
		"pr", number,
		"review_request", rr.ID,
		"new_revision", created,
		"reviews", result.Reviews,
		"comments", result.Comments,
		"skipped", result.Skipped,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return result, nil
}

func (s *ImportService) ensureRepository(ctx context.Context, repoFullName string) (model.Repository, error) {
	existing, err := s.repoStore.GetByPath(ctx, HostingToolGitHub, repoFullName)
	if err != nil {
		return model.Repository{}, fmt.Errorf("get repository %s: %w", repoFullName, err)
	}
	if existing != nil {
		return *existing, nil
	}

	repo, err := s.repoStore.Add(ctx, model.Repository{
		Name: repoFullName,
		Path: repoFullName,
		Tool: HostingToolGitHub,
	})
	if errors.Is(err, driven.ErrAlreadyExists) {
		existing, err = s.repoStore.GetByPath(ctx, HostingToolGitHub, repoFullName)
		if err == nil && existing != nil {
			return *existing, nil
		}
	}
	if err != nil {
		return model.Repository{}, fmt.Errorf("add repository %s: %w", repoFullName, err)
	}

	return repo, nil
}

func (s *ImportService) upsertReviewRequest(ctx context.Context, pr *model.HostedPullRequest, repo model.Repository) (model.ReviewRequest, error) {
	submitter, err := s.userStore.GetOrCreate(ctx, pr.Author)
	if err != nil {
		return model.ReviewRequest{}, fmt.Errorf("get submitter %q: %w", pr.Author, err)
	}

	status := model.ReviewRequestPending
	if !pr.Open {
		status = model.ReviewRequestSubmitted
	}

	ref := ExternalRef(pr.RepoFullName, pr.Number)
	existing, err := s.rrStore.GetByExternalRef(ctx, ref)
	if err != nil {
		return model.ReviewRequest{}, fmt.Errorf("get review request %s: %w", ref, err)
	}

	if existing == nil {
		rr, err := s.rrStore.Create(ctx, model.ReviewRequest{
			SubmitterID:  submitter.ID,
			RepositoryID: &repo.ID,
			Summary:      pr.Title,
			Description:  pr.Body,
			Status:       status,
			Public:       true,
			ExternalRef:  ref,
		})
		if err != nil {
			return model.ReviewRequest{}, fmt.Errorf("create review request %s: %w", ref, err)
		}
		return rr, nil
	}

	if existing.Summary == pr.Title && existing.Description == pr.Body && existing.Status == status {
		return *existing, nil
	}

	existing.Summary = pr.Title
	existing.Description = pr.Body
	existing.Status = status
	if err := s.rrStore.Update(ctx, *existing); err != nil {
		return model.ReviewRequest{}, fmt.Errorf("update review request %s: %w", ref, err)
	}

	return *existing, nil
}

// syncDiff adds a diff revision when the pull request head moved since the
// latest imported revision. It returns the latest revision either way.
func (s *ImportService) syncDiff(ctx context.Context, pr *model.HostedPullRequest, rr model.ReviewRequest) (*model.DiffSet, bool, error) {
	latest, err := s.diffStore.GetLatestDiffSet(ctx, rr.ID)
	if err != nil {
		return nil, false, fmt.Errorf("get latest diff of review request %d: %w", rr.ID, err)
	}
	if latest != nil && latest.Name == pr.HeadSHA {
		return latest, false, nil
	}

	files, err := s.client.FetchPullRequestFiles(ctx, pr.RepoFullName, pr.Number)
	if err != nil {
		return nil, false, fmt.Errorf("fetch files of %s#%d: %w", pr.RepoFullName, pr.Number, err)
	}

	fileDiffs := make([]model.FileDiff, 0, len(files))
	for _, f := range files {
		fileDiffs = append(fileDiffs, toFileDiff(f, pr))
	}

	ds, _, err := s.diffStore.CreateDiffSet(ctx, model.DiffSet{
		ReviewRequestID: rr.ID,
		Name:            pr.HeadSHA,
		BaseCommitID:    pr.BaseSHA,
	}, fileDiffs)
	if err != nil {
		return nil, false, fmt.Errorf("create diff for review request %d: %w", rr.ID, err)
	}

	return &ds, true, nil
}

func toFileDiff(f model.HostedFile, pr *model.HostedPullRequest) model.FileDiff {
	source := f.Filename
	if f.PreviousFilename != "" {
		source = f.PreviousFilename
	}

	return model.FileDiff{
		SourceFile:     source,
		DestFile:       f.Filename,
		SourceRevision: pr.BaseSHA,
		DestDetail:     pr.HeadSHA,
		Status:         fileDiffStatus(f.Status),
		Diff:           []byte("--- a/" + source + "\n+++ b/" + f.Filename + "\n" + f.Patch),
	}
}

func fileDiffStatus(hosted string) model.FileDiffStatus {
	switch hosted {
	case "added":
		return model.FileDiffAdded
	case "removed":
		return model.FileDiffDeleted
	case "renamed":
		return model.FileDiffMoved
	default:
		return model.FileDiffModified
	}
}

// syncReviews imports hosted reviews and their inline comments. Comments are
// attached to the file diffs of the latest revision by path; comments on files
// outside it, or outdated comments without a line, are skipped.
func (s *ImportService) syncReviews(ctx context.Context, pr *model.HostedPullRequest, rr model.ReviewRequest, ds *model.DiffSet, result *ImportResult) error {
	hostedReviews, err := s.client.FetchReviews(ctx, pr.RepoFullName, pr.Number)
	if err != nil {
		return fmt.Errorf("fetch reviews of %s#%d: %w", pr.RepoFullName, pr.Number, err)
	}

	reviewsByHostedID := make(map[int64]model.Review, len(hostedReviews))
	for _, hr := range hostedReviews {
		author, err := s.userStore.GetOrCreate(ctx, hr.Author)
		if err != nil {
			return fmt.Errorf("get reviewer %q: %w", hr.Author, err)
		}

		review, err := s.reviewStore.CreateReview(ctx, model.Review{
			ReviewRequestID: rr.ID,
			UserID:          author.ID,
			Public:          true,
			ShipIt:          hr.State == "APPROVED",
			BodyTop:         hr.Body,
			ExternalID:      fmt.Sprintf("github-review:%d", hr.ID),
			Timestamp:       hr.SubmittedAt,
		})
		if err != nil {
			return fmt.Errorf("store review %d: %w", hr.ID, err)
		}
		reviewsByHostedID[hr.ID] = review
		result.Reviews++
	}

	if ds == nil {
		return nil
	}

	fileDiffs, err := s.diffStore.ListFileDiffs(ctx, ds.ID)
	if err != nil {
		return fmt.Errorf("list filediffs of diffset %d: %w", ds.ID, err)
	}
	fileDiffsByPath := make(map[string]model.FileDiff, len(fileDiffs))
	for _, fd := range fileDiffs {
		fileDiffsByPath[fd.DestFile] = fd
	}

	hostedComments, err := s.client.FetchReviewComments(ctx, pr.RepoFullName, pr.Number)
	if err != nil {
		return fmt.Errorf("fetch review comments of %s#%d: %w", pr.RepoFullName, pr.Number, err)
	}

	for _, hc := range hostedComments {
		review, hasReview := reviewsByHostedID[hc.ReviewID]
		fd, hasFile := fileDiffsByPath[hc.Path]
		if !hasReview || !hasFile || hc.Line <= 0 {
			slog.Debug("skipping review comment", "repo", pr.RepoFullName, "pr", pr.Number, "comment", hc.ID, "path", hc.Path)
			result.Skipped++
			continue
		}

		firstLine := hc.Line
		if hc.StartLine > 0 && hc.StartLine < hc.Line {
			firstLine = hc.StartLine
		}

		_, err := s.reviewStore.CreateComment(ctx, model.DiffComment{
			ReviewID:   review.ID,
			FileDiffID: fd.ID,
			FirstLine:  firstLine,
			NumLines:   hc.Line - firstLine + 1,
			Text:       hc.Body,
			RichText:   true,
			ExternalID: fmt.Sprintf("github-comment:%d", hc.ID),
			Timestamp:  hc.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("store review comment %d: %w", hc.ID, err)
		}
		result.Comments++
	}

	return nil
}
