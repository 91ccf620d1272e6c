// Package github implements the HostingClient port using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/reviewboard/internal/domain/model"
	"github.com/ericfisherdev/reviewboard/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.HostingClient = (*Client)(nil)

// Client implements the driven.HostingClient port using the go-github library.
type Client struct {
	gh *gh.Client
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching, on disk under cacheDir
//     when set, in memory otherwise)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client, PAT auth when token is set)
func NewClient(token, cacheDir string) *Client {
	var cacheTransport *httpcache.Transport
	if cacheDir != "" {
		cacheTransport = httpcache.NewTransport(diskcache.New(cacheDir))
	} else {
		cacheTransport = httpcache.NewMemoryCacheTransport()
	}

	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &Client{gh: client}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client}, nil
}

// FetchPullRequest retrieves a single pull request.
func (c *Client) FetchPullRequest(ctx context.Context, repoFullName string, number int) (*model.HostedPullRequest, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	pr, resp, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("fetching pull request %s#%d: %w", repoFullName, number, err)
	}

	logRateLimit(resp, repoFullName+"/pull", 0, 1)

	hosted := mapPullRequest(pr, repoFullName)
	return &hosted, nil
}

// FetchPullRequestFiles retrieves the files changed by a pull request.
// It handles pagination automatically and maps go-github types to domain model types.
func (c *Client) FetchPullRequestFiles(ctx context.Context, repoFullName string, number int) ([]model.HostedFile, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.ListOptions{PerPage: 100}
	var allFiles []model.HostedFile

	for {
		files, resp, err := c.gh.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing files for %s#%d (page %d): %w", repoFullName, number, opts.Page, err)
		}

		logRateLimit(resp, repoFullName+"/files", opts.Page, len(files))

		for _, f := range files {
			allFiles = append(allFiles, mapFile(f))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allFiles, nil
}

// FetchReviews retrieves all reviews for a pull request.
// It handles pagination automatically and maps go-github types to domain model types.
func (c *Client) FetchReviews(ctx context.Context, repoFullName string, number int) ([]model.HostedReview, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.ListOptions{PerPage: 100}
	var allReviews []model.HostedReview

	for {
		reviews, resp, err := c.gh.PullRequests.ListReviews(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing reviews for %s#%d (page %d): %w", repoFullName, number, opts.Page, err)
		}

		logRateLimit(resp, repoFullName+"/reviews", opts.Page, len(reviews))

		for _, r := range reviews {
			allReviews = append(allReviews, mapReview(r))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allReviews, nil
}

// FetchReviewComments retrieves all review comments (inline code comments) for a pull request.
// It handles pagination automatically and maps go-github types to domain model types.
func (c *Client) FetchReviewComments(ctx context.Context, repoFullName string, number int) ([]model.HostedComment, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.PullRequestListCommentsOptions{
		Sort:        "created",
		Direction:   "asc",
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	var allComments []model.HostedComment

	for {
		comments, resp, err := c.gh.PullRequests.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing review comments for %s#%d (page %d): %w", repoFullName, number, opts.Page, err)
		}

		logRateLimit(resp, repoFullName+"/comments", opts.Page, len(comments))

		for _, comment := range comments {
			allComments = append(allComments, mapReviewComment(comment))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allComments, nil
}

// mapPullRequest converts a go-github PullRequest to a HostedPullRequest.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapPullRequest(pr *gh.PullRequest, repoFullName string) model.HostedPullRequest {
	return model.HostedPullRequest{
		RepoFullName: repoFullName,
		Number:       pr.GetNumber(),
		Title:        pr.GetTitle(),
		Body:         pr.GetBody(),
		Author:       pr.GetUser().GetLogin(),
		HeadSHA:      pr.GetHead().GetSHA(),
		BaseSHA:      pr.GetBase().GetSHA(),
		URL:          pr.GetHTMLURL(),
		Open:         pr.GetState() == "open",
	}
}

func mapFile(f *gh.CommitFile) model.HostedFile {
	return model.HostedFile{
		Filename:         f.GetFilename(),
		PreviousFilename: f.GetPreviousFilename(),
		Status:           f.GetStatus(),
		Patch:            f.GetPatch(),
		SHA:              f.GetSHA(),
	}
}

// mapReview converts a go-github PullRequestReview to a HostedReview.
func mapReview(r *gh.PullRequestReview) model.HostedReview {
	return model.HostedReview{
		ID:          r.GetID(),
		Author:      r.GetUser().GetLogin(),
		State:       strings.ToUpper(r.GetState()),
		Body:        r.GetBody(),
		CommitID:    r.GetCommitID(),
		SubmittedAt: r.GetSubmittedAt().Time,
	}
}

// mapReviewComment converts a go-github PullRequestComment to a HostedComment.
func mapReviewComment(c *gh.PullRequestComment) model.HostedComment {
	var inReplyTo *int64
	if c.InReplyTo != nil {
		val := c.GetInReplyTo()
		inReplyTo = &val
	}

	return model.HostedComment{
		ID:          c.GetID(),
		ReviewID:    c.GetPullRequestReviewID(),
		Author:      c.GetUser().GetLogin(),
		Body:        c.GetBody(),
		Path:        c.GetPath(),
		Line:        c.GetLine(),
		StartLine:   c.GetStartLine(),
		CommitID:    c.GetCommitID(),
		InReplyToID: inReplyTo,
		CreatedAt:   c.GetCreatedAt().Time,
	}
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
