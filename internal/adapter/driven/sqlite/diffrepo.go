package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/reviewboard/internal/domain/model"
	"github.com/ericfisherdev/reviewboard/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DiffStore = (*DiffRepo)(nil)

const fileDiffColumns = `
	f.id, f.diffset_id, f.source_file, f.dest_file, f.source_revision,
	f.dest_detail, f.status, f.diff`

// DiffRepo is the SQLite implementation of the DiffStore port interface.
type DiffRepo struct {
	db *DB
}

// NewDiffRepo creates a new DiffRepo backed by the given DB.
func NewDiffRepo(db *DB) *DiffRepo {
	return &DiffRepo{db: db}
}

// CreateDiffSet stores the next diff revision of a review request together with
// its file diffs. The revision number is assigned inside the transaction.
func (r *DiffRepo) CreateDiffSet(ctx context.Context, ds model.DiffSet, files []model.FileDiff) (model.DiffSet, []model.FileDiff, error) {
	const nextRevision = `SELECT COALESCE(MAX(revision), 0) + 1 FROM diffsets WHERE review_request_id = ?`
	const insertDiffSet = `
		INSERT INTO diffsets (review_request_id, revision, name, base_commit_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	const insertFileDiff = `
		INSERT INTO filediffs (diffset_id, source_file, dest_file, source_revision, dest_detail, status, diff)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if ds.CreatedAt.IsZero() {
		ds.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return model.DiffSet{}, nil, fmt.Errorf("begin create diffset: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.QueryRowContext(ctx, nextRevision, ds.ReviewRequestID).Scan(&ds.Revision); err != nil {
		return model.DiffSet{}, nil, fmt.Errorf("allocate diff revision: %w", err)
	}

	result, err := tx.ExecContext(ctx, insertDiffSet,
		ds.ReviewRequestID, ds.Revision, ds.Name, ds.BaseCommitID, ds.CreatedAt.UTC(),
	)
	if err != nil {
		return model.DiffSet{}, nil, fmt.Errorf("insert diffset r%d for review request %d: %w", ds.Revision, ds.ReviewRequestID, err)
	}

	ds.ID, err = result.LastInsertId()
	if err != nil {
		return model.DiffSet{}, nil, fmt.Errorf("read diffset id: %w", err)
	}

	saved := make([]model.FileDiff, 0, len(files))
	for _, f := range files {
		f.DiffSetID = ds.ID
		if f.Status == "" {
			f.Status = model.FileDiffModified
		}

		result, err := tx.ExecContext(ctx, insertFileDiff,
			f.DiffSetID, f.SourceFile, f.DestFile, f.SourceRevision, f.DestDetail, string(f.Status), f.Diff,
		)
		if err != nil {
			return model.DiffSet{}, nil, fmt.Errorf("insert filediff %s: %w", f.DestFile, err)
		}

		f.ID, err = result.LastInsertId()
		if err != nil {
			return model.DiffSet{}, nil, fmt.Errorf("read filediff id: %w", err)
		}
		saved = append(saved, f)
	}

	if err := tx.Commit(); err != nil {
		return model.DiffSet{}, nil, fmt.Errorf("commit diffset: %w", err)
	}

	return ds, saved, nil
}

// GetLatestDiffSet returns the highest revision of a review request's diff.
// Returns nil, nil if no diff has been uploaded.
func (r *DiffRepo) GetLatestDiffSet(ctx context.Context, reviewRequestID int64) (*model.DiffSet, error) {
	const query = `
		SELECT id, review_request_id, revision, name, base_commit_id, created_at
		FROM diffsets
		WHERE review_request_id = ?
		ORDER BY revision DESC
		LIMIT 1
	`

	var ds model.DiffSet
	var createdAt string
	err := r.db.Reader.QueryRowContext(ctx, query, reviewRequestID).Scan(
		&ds.ID, &ds.ReviewRequestID, &ds.Revision, &ds.Name, &ds.BaseCommitID, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest diffset for review request %d: %w", reviewRequestID, err)
	}

	ds.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &ds, nil
}

// GetFileDiff resolves a file diff through its review request and diff revision.
// Returns nil, nil when the file diff does not belong to that revision.
func (r *DiffRepo) GetFileDiff(ctx context.Context, reviewRequestID int64, revision int, fileDiffID int64) (*model.FileDiff, error) {
	query := `
		SELECT ` + fileDiffColumns + `
		FROM filediffs f
		JOIN diffsets d ON d.id = f.diffset_id
		WHERE d.review_request_id = ? AND d.revision = ? AND f.id = ?
	`

	f, err := scanFileDiff(r.db.Reader.QueryRowContext(ctx, query, reviewRequestID, revision, fileDiffID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get filediff %d (r%d) for review request %d: %w", fileDiffID, revision, reviewRequestID, err)
	}

	return f, nil
}

// ListFileDiffs returns the file diffs of a diff revision ordered by destination path.
func (r *DiffRepo) ListFileDiffs(ctx context.Context, diffSetID int64) ([]model.FileDiff, error) {
	query := `SELECT ` + fileDiffColumns + ` FROM filediffs f WHERE f.diffset_id = ? ORDER BY f.dest_file, f.id`

	rows, err := r.db.Reader.QueryContext(ctx, query, diffSetID)
	if err != nil {
		return nil, fmt.Errorf("query filediffs for diffset %d: %w", diffSetID, err)
	}
	defer rows.Close()

	var files []model.FileDiff
	for rows.Next() {
		f, err := scanFileDiff(rows)
		if err != nil {
			return nil, fmt.Errorf("scan filediff: %w", err)
		}
		files = append(files, *f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate filediffs: %w", err)
	}

	return files, nil
}

func scanFileDiff(s scanner) (*model.FileDiff, error) {
	var f model.FileDiff
	var status string

	err := s.Scan(
		&f.ID, &f.DiffSetID, &f.SourceFile, &f.DestFile, &f.SourceRevision,
		&f.DestDetail, &status, &f.Diff,
	)
	if err != nil {
		return nil, err
	}

	f.Status = model.FileDiffStatus(status)
	return &f, nil
}
