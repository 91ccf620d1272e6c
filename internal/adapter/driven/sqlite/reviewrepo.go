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
var _ driven.ReviewStore = (*ReviewRepo)(nil)

const diffCommentColumns = `
	c.id, c.review_id, c.filediff_id, c.interfilediff_id, c.first_line, c.num_lines,
	c.text, c.rich_text, c.issue_opened, c.issue_status, c.external_id, c.timestamp,
	u.username, r.public, COALESCE(ind.revision, 0)`

const diffCommentJoins = `
	FROM diff_comments c
	JOIN reviews r ON r.id = c.review_id
	JOIN users u ON u.id = r.user_id
	JOIN filediffs f ON f.id = c.filediff_id
	JOIN diffsets d ON d.id = f.diffset_id
	LEFT JOIN filediffs inf ON inf.id = c.interfilediff_id
	LEFT JOIN diffsets ind ON ind.id = inf.diffset_id`

// ReviewRepo is the SQLite implementation of the ReviewStore port interface.
type ReviewRepo struct {
	db *DB
}

// NewReviewRepo creates a new ReviewRepo backed by the given DB.
func NewReviewRepo(db *DB) *ReviewRepo {
	return &ReviewRepo{db: db}
}

// CreateReview inserts a review. A review carrying an ExternalID is upserted on
// that ID so re-imports refresh it in place.
func (r *ReviewRepo) CreateReview(ctx context.Context, review model.Review) (model.Review, error) {
	const query = `
		INSERT INTO reviews (review_request_id, user_id, public, ship_it, body_top, external_id, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			public = excluded.public,
			ship_it = excluded.ship_it,
			body_top = excluded.body_top
		RETURNING id
	`

	if review.Timestamp.IsZero() {
		review.Timestamp = time.Now().UTC()
	}

	err := r.db.Writer.QueryRowContext(ctx, query,
		review.ReviewRequestID, review.UserID, boolToInt(review.Public), boolToInt(review.ShipIt),
		review.BodyTop, nullString(review.ExternalID), review.Timestamp.UTC(),
	).Scan(&review.ID)
	if err != nil {
		return model.Review{}, fmt.Errorf("create review on review request %d: %w", review.ReviewRequestID, err)
	}

	return review, nil
}

// CreateComment inserts a diff comment. A comment whose ExternalID is already
// stored is left untouched and the stored copy is returned.
func (r *ReviewRepo) CreateComment(ctx context.Context, comment model.DiffComment) (model.DiffComment, error) {
	const insert = `
		INSERT INTO diff_comments (
			review_id, filediff_id, interfilediff_id, first_line, num_lines, text,
			rich_text, issue_opened, issue_status, external_id, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO NOTHING
		RETURNING id
	`
	const byExternalID = `
		SELECT id, review_id, filediff_id, interfilediff_id, first_line, num_lines, text,
		       rich_text, issue_opened, issue_status, timestamp
		FROM diff_comments
		WHERE external_id = ?
	`

	if comment.Timestamp.IsZero() {
		comment.Timestamp = time.Now().UTC()
	}
	if comment.NumLines == 0 {
		comment.NumLines = 1
	}
	if comment.IssueOpened && comment.IssueStatus == model.IssueStatusNone {
		comment.IssueStatus = model.IssueStatusOpen
	}

	err := r.db.Writer.QueryRowContext(ctx, insert,
		comment.ReviewID, comment.FileDiffID, nullInt64(comment.InterFileDiffID),
		comment.FirstLine, comment.NumLines, comment.Text, boolToInt(comment.RichText),
		boolToInt(comment.IssueOpened), string(comment.IssueStatus),
		nullString(comment.ExternalID), comment.Timestamp.UTC(),
	).Scan(&comment.ID)
	if err == nil {
		return comment, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.DiffComment{}, fmt.Errorf("create comment on filediff %d: %w", comment.FileDiffID, err)
	}

	// Conflict on external_id: return what is stored.
	var existing model.DiffComment
	var interFileDiffID sql.NullInt64
	var richText, issueOpened int
	var issueStatus, timestamp string

	err = r.db.Writer.QueryRowContext(ctx, byExternalID, comment.ExternalID).Scan(
		&existing.ID, &existing.ReviewID, &existing.FileDiffID, &interFileDiffID,
		&existing.FirstLine, &existing.NumLines, &existing.Text, &richText,
		&issueOpened, &issueStatus, &timestamp,
	)
	if err != nil {
		return model.DiffComment{}, fmt.Errorf("get comment %q: %w", comment.ExternalID, err)
	}

	if interFileDiffID.Valid {
		id := interFileDiffID.Int64
		existing.InterFileDiffID = &id
	}
	existing.RichText = richText != 0
	existing.IssueOpened = issueOpened != 0
	existing.IssueStatus = model.IssueStatus(issueStatus)
	existing.ExternalID = comment.ExternalID

	existing.Timestamp, err = parseTime(timestamp)
	if err != nil {
		return model.DiffComment{}, fmt.Errorf("parse timestamp: %w", err)
	}

	return existing, nil
}

// ListFileDiffComments returns the comments on one file diff of one diff
// revision that the viewer may see, ordered by timestamp.
func (r *ReviewRepo) ListFileDiffComments(ctx context.Context, q driven.FileDiffCommentQuery) ([]model.DiffComment, int, error) {
	where, args := fileDiffCommentFilter(q)

	var total int
	countQuery := `SELECT COUNT(*) ` + diffCommentJoins + where
	if err := r.db.Reader.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count comments on filediff %d: %w", q.FileDiffID, err)
	}

	limit := q.MaxResults
	if limit <= 0 {
		limit = -1 // SQLite: no limit.
	}

	listQuery := `SELECT ` + diffCommentColumns + diffCommentJoins + where + `
		ORDER BY c.timestamp, c.id
		LIMIT ? OFFSET ?`
	listArgs := append(args, limit, max(q.Start, 0))

	rows, err := r.db.Reader.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("query comments on filediff %d: %w", q.FileDiffID, err)
	}
	defer rows.Close()

	var comments []model.DiffComment
	for rows.Next() {
		comment, err := scanDiffComment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, *comment)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, total, nil
}

// fileDiffCommentFilter builds the WHERE clause shared by the count and list queries.
func fileDiffCommentFilter(q driven.FileDiffCommentQuery) (string, []any) {
	clauses := []string{
		"r.review_request_id = ?",
		"d.revision = ?",
		"f.id = ?",
	}
	args := []any{q.ReviewRequestID, q.DiffRevision, q.FileDiffID}

	if q.ViewerID != nil {
		clauses = append(clauses, "(r.public = 1 OR r.user_id = ?)")
		args = append(args, *q.ViewerID)
	} else {
		clauses = append(clauses, "r.public = 1")
	}

	if q.Line != nil {
		clauses = append(clauses, "c.first_line = ?")
		args = append(args, *q.Line)
	}

	if q.InterdiffRevision != nil {
		clauses = append(clauses, "ind.revision = ?")
		args = append(args, *q.InterdiffRevision)
	}

	return "\n\tWHERE " + strings.Join(clauses, " AND "), args
}

func scanDiffComment(s scanner) (*model.DiffComment, error) {
	var comment model.DiffComment
	var interFileDiffID sql.NullInt64
	var externalID sql.NullString
	var richText, issueOpened, reviewPublic int
	var issueStatus, timestamp string

	err := s.Scan(
		&comment.ID, &comment.ReviewID, &comment.FileDiffID, &interFileDiffID,
		&comment.FirstLine, &comment.NumLines, &comment.Text, &richText,
		&issueOpened, &issueStatus, &externalID, &timestamp,
		&comment.Username, &reviewPublic, &comment.InterdiffRevision,
	)
	if err != nil {
		return nil, err
	}

	if interFileDiffID.Valid {
		id := interFileDiffID.Int64
		comment.InterFileDiffID = &id
	}
	comment.ExternalID = externalID.String
	comment.RichText = richText != 0
	comment.IssueOpened = issueOpened != 0
	comment.IssueStatus = model.IssueStatus(issueStatus)
	comment.ReviewPublic = reviewPublic != 0

	comment.Timestamp, err = parseTime(timestamp)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}

	return &comment, nil
}
