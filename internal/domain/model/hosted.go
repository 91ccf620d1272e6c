package model

import "time"

// HostedPullRequest is a pull request fetched from a hosting service.
type HostedPullRequest struct {
	RepoFullName string
	Number       int
	Title        string
	Body         string
	Author       string
	HeadSHA      string
	BaseSHA      string
	URL          string
	Open         bool
}

// HostedFile is one changed file of a hosted pull request.
type HostedFile struct {
	Filename         string
	PreviousFilename string
	Status           string // GitHub status: added, removed, modified, renamed, ...
	Patch            string
	SHA              string
}

// HostedReview is a review submitted on a hosted pull request.
type HostedReview struct {
	ID          int64
	Author      string
	State       string
	Body        string
	CommitID    string
	SubmittedAt time.Time
}

// HostedComment is an inline comment on a hosted pull request.
type HostedComment struct {
	ID          int64
	ReviewID    int64
	Author      string
	Body        string
	Path        string
	Line        int
	StartLine   int
	CommitID    string
	InReplyToID *int64
	CreatedAt   time.Time
}
