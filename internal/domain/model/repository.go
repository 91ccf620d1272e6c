package model

import "time"

// Repository is a source code repository that diffs are made against.
type Repository struct {
	ID      int64
	Name    string
	Path    string // "owner/repo" for GitHub-hosted repositories.
	Tool    string
	AddedAt time.Time
}
