package model

import "time"

// DiffSet is one numbered revision of the diff attached to a review request.
// Revisions start at 1 and increase with each upload.
type DiffSet struct {
	ID              int64
	ReviewRequestID int64
	Revision        int
	Name            string
	BaseCommitID    string
	CreatedAt       time.Time
}

// FileDiff is the part of a diff revision that touches a single file.
type FileDiff struct {
	ID             int64
	DiffSetID      int64
	SourceFile     string
	DestFile       string
	SourceRevision string
	DestDetail     string
	Status         FileDiffStatus
	Diff           []byte
}
