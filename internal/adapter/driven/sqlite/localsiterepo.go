package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ericfisherdev/reviewboard/internal/domain/model"
	"github.com/ericfisherdev/reviewboard/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.LocalSiteStore = (*LocalSiteRepo)(nil)

// LocalSiteRepo is the SQLite implementation of the LocalSiteStore port interface.
type LocalSiteRepo struct {
	db *DB
}

// NewLocalSiteRepo creates a new LocalSiteRepo backed by the given DB.
func NewLocalSiteRepo(db *DB) *LocalSiteRepo {
	return &LocalSiteRepo{db: db}
}

// Create inserts a new local site and returns it with its assigned ID.
func (r *LocalSiteRepo) Create(ctx context.Context, site model.LocalSite) (model.LocalSite, error) {
	const query = `INSERT INTO local_sites (name, public) VALUES (?, ?)`

	result, err := r.db.Writer.ExecContext(ctx, query, site.Name, boolToInt(site.Public))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return model.LocalSite{}, fmt.Errorf("create local site %s: %w", site.Name, driven.ErrAlreadyExists)
		}
		return model.LocalSite{}, fmt.Errorf("create local site %s: %w", site.Name, err)
	}

	site.ID, err = result.LastInsertId()
	if err != nil {
		return model.LocalSite{}, fmt.Errorf("read local site id: %w", err)
	}

	return site, nil
}

// GetByName retrieves a local site by name. Returns nil, nil if it does not exist.
func (r *LocalSiteRepo) GetByName(ctx context.Context, name string) (*model.LocalSite, error) {
	const query = `SELECT id, name, public FROM local_sites WHERE name = ?`

	var site model.LocalSite
	var public int
	err := r.db.Reader.QueryRowContext(ctx, query, name).Scan(&site.ID, &site.Name, &public)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get local site %s: %w", name, err)
	}

	site.Public = public != 0
	return &site, nil
}

// AddMember grants a user access to a local site. Adding an existing member is a no-op.
func (r *LocalSiteRepo) AddMember(ctx context.Context, siteID, userID int64) error {
	const query = `INSERT OR IGNORE INTO local_site_users (local_site_id, user_id) VALUES (?, ?)`

	if _, err := r.db.Writer.ExecContext(ctx, query, siteID, userID); err != nil {
		return fmt.Errorf("add member %d to local site %d: %w", userID, siteID, err)
	}

	return nil
}

// IsMember reports whether the user belongs to the local site.
func (r *LocalSiteRepo) IsMember(ctx context.Context, siteID, userID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM local_site_users WHERE local_site_id = ? AND user_id = ?)`

	var exists int
	if err := r.db.Reader.QueryRowContext(ctx, query, siteID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check membership of %d in local site %d: %w", userID, siteID, err)
	}

	return exists != 0, nil
}
