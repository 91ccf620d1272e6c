package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/reviewboard/internal/domain/model"
	"github.com/ericfisherdev/reviewboard/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RepoStore = (*RepoRepo)(nil)

// RepoRepo is the SQLite implementation of the RepoStore port interface.
type RepoRepo struct {
	db *DB
}

// NewRepoRepo creates a new RepoRepo backed by the given DB.
func NewRepoRepo(db *DB) *RepoRepo {
	return &RepoRepo{db: db}
}

// Add inserts a new repository. Returns ErrAlreadyExists if a repository with the
// same tool and path is already registered.
func (r *RepoRepo) Add(ctx context.Context, repo model.Repository) (model.Repository, error) {
	const query = `INSERT INTO repositories (name, path, tool, added_at) VALUES (?, ?, ?, ?)`

	if repo.AddedAt.IsZero() {
		repo.AddedAt = time.Now().UTC()
	}

	result, err := r.db.Writer.ExecContext(ctx, query, repo.Name, repo.Path, repo.Tool, repo.AddedAt.UTC())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return model.Repository{}, fmt.Errorf("add repository %s: %w", repo.Path, driven.ErrAlreadyExists)
		}
		return model.Repository{}, fmt.Errorf("add repository %s: %w", repo.Path, err)
	}

	repo.ID, err = result.LastInsertId()
	if err != nil {
		return model.Repository{}, fmt.Errorf("read repository id: %w", err)
	}

	return repo, nil
}

// GetByPath retrieves a repository by tool and path. Returns nil, nil if the
// repository does not exist.
func (r *RepoRepo) GetByPath(ctx context.Context, tool, path string) (*model.Repository, error) {
	const query = `SELECT id, name, path, tool, added_at FROM repositories WHERE tool = ? AND path = ?`

	repo, err := scanRepository(r.db.Reader.QueryRowContext(ctx, query, tool, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get repository %s: %w", path, err)
	}

	return repo, nil
}

// ListAll returns all repositories ordered by name.
func (r *RepoRepo) ListAll(ctx context.Context) ([]model.Repository, error) {
	const query = `SELECT id, name, path, tool, added_at FROM repositories ORDER BY name`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer rows.Close()

	var repos []model.Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		repos = append(repos, *repo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate repositories: %w", err)
	}

	return repos, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRepository(s scanner) (*model.Repository, error) {
	var repo model.Repository
	var addedAt string

	err := s.Scan(&repo.ID, &repo.Name, &repo.Path, &repo.Tool, &addedAt)
	if err != nil {
		return nil, err
	}

	repo.AddedAt, err = parseTime(addedAt)
	if err != nil {
		return nil, fmt.Errorf("parse added_at: %w", err)
	}

	return &repo, nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
