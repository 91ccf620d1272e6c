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
var _ driven.ReviewRequestStore = (*ReviewRequestRepo)(nil)

const reviewRequestColumns = `
	id, local_site_id, local_id, submitter_id, repository_id, summary, description,
	status, public, external_ref, created_at, updated_at`

// ReviewRequestRepo is the SQLite implementation of the ReviewRequestStore port interface.
type ReviewRequestRepo struct {
	db *DB
}

// NewReviewRequestRepo creates a new ReviewRequestRepo backed by the given DB.
func NewReviewRequestRepo(db *DB) *ReviewRequestRepo {
	return &ReviewRequestRepo{db: db}
}

// Create inserts a review request. Inside a local site the next local ID is
// allocated in the same transaction as the insert.
func (r *ReviewRequestRepo) Create(ctx context.Context, rr model.ReviewRequest) (model.ReviewRequest, error) {
	const nextLocalID = `SELECT COALESCE(MAX(local_id), 0) + 1 FROM review_requests WHERE local_site_id = ?`
	const insert = `
		INSERT INTO review_requests (
			local_site_id, local_id, submitter_id, repository_id, summary, description,
			status, public, external_ref, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	if rr.CreatedAt.IsZero() {
		rr.CreatedAt = now
	}
	if rr.UpdatedAt.IsZero() {
		rr.UpdatedAt = rr.CreatedAt
	}
	if rr.Status == "" {
		rr.Status = model.ReviewRequestPending
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return model.ReviewRequest{}, fmt.Errorf("begin create review request: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rr.LocalID = 0
	if rr.LocalSiteID != nil {
		if err := tx.QueryRowContext(ctx, nextLocalID, *rr.LocalSiteID).Scan(&rr.LocalID); err != nil {
			return model.ReviewRequest{}, fmt.Errorf("allocate local id: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, insert,
		nullInt64(rr.LocalSiteID), rr.LocalID, rr.SubmitterID, nullInt64(rr.RepositoryID),
		rr.Summary, rr.Description, string(rr.Status), boolToInt(rr.Public),
		nullString(rr.ExternalRef), rr.CreatedAt.UTC(), rr.UpdatedAt.UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return model.ReviewRequest{}, fmt.Errorf("create review request: %w", driven.ErrAlreadyExists)
		}
		return model.ReviewRequest{}, fmt.Errorf("create review request: %w", err)
	}

	rr.ID, err = result.LastInsertId()
	if err != nil {
		return model.ReviewRequest{}, fmt.Errorf("read review request id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.ReviewRequest{}, fmt.Errorf("commit review request: %w", err)
	}

	return rr, nil
}

// GetByDisplayID retrieves a review request by the ID used in URLs. Returns
// nil, nil if it does not exist in the given namespace.
func (r *ReviewRequestRepo) GetByDisplayID(ctx context.Context, localSiteID *int64, displayID int64) (*model.ReviewRequest, error) {
	var row *sql.Row
	if localSiteID != nil {
		query := `SELECT ` + reviewRequestColumns + ` FROM review_requests WHERE local_site_id = ? AND local_id = ?`
		row = r.db.Reader.QueryRowContext(ctx, query, *localSiteID, displayID)
	} else {
		query := `SELECT ` + reviewRequestColumns + ` FROM review_requests WHERE local_site_id IS NULL AND id = ?`
		row = r.db.Reader.QueryRowContext(ctx, query, displayID)
	}

	rr, err := scanReviewRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get review request %d: %w", displayID, err)
	}

	return rr, nil
}

// GetByExternalRef retrieves the review request imported from ref. Returns nil,
// nil if none exists.
func (r *ReviewRequestRepo) GetByExternalRef(ctx context.Context, ref string) (*model.ReviewRequest, error) {
	query := `SELECT ` + reviewRequestColumns + ` FROM review_requests WHERE external_ref = ?`

	rr, err := scanReviewRequest(r.db.Reader.QueryRowContext(ctx, query, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get review request %q: %w", ref, err)
	}

	return rr, nil
}

// Update overwrites the mutable fields of a review request.
func (r *ReviewRequestRepo) Update(ctx context.Context, rr model.ReviewRequest) error {
	const query = `
		UPDATE review_requests SET
			repository_id = ?, summary = ?, description = ?, status = ?, public = ?, updated_at = ?
		WHERE id = ?
	`

	updatedAt := rr.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		nullInt64(rr.RepositoryID), rr.Summary, rr.Description, string(rr.Status),
		boolToInt(rr.Public), updatedAt.UTC(), rr.ID,
	)
	if err != nil {
		return fmt.Errorf("update review request %d: %w", rr.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update review request %d: %w", rr.ID, driven.ErrNotFound)
	}

	return nil
}

func scanReviewRequest(s scanner) (*model.ReviewRequest, error) {
	var rr model.ReviewRequest
	var localSiteID, repositoryID sql.NullInt64
	var externalRef sql.NullString
	var status string
	var public int
	var createdAt, updatedAt string

	err := s.Scan(
		&rr.ID, &localSiteID, &rr.LocalID, &rr.SubmitterID, &repositoryID,
		&rr.Summary, &rr.Description, &status, &public, &externalRef,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if localSiteID.Valid {
		id := localSiteID.Int64
		rr.LocalSiteID = &id
	}
	if repositoryID.Valid {
		id := repositoryID.Int64
		rr.RepositoryID = &id
	}
	rr.ExternalRef = externalRef.String
	rr.Status = model.ReviewRequestStatus(status)
	rr.Public = public != 0

	rr.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	rr.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &rr, nil
}
