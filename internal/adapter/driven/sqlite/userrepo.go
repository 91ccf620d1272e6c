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
var _ driven.UserStore = (*UserRepo)(nil)

// UserRepo is the SQLite implementation of the UserStore port interface.
type UserRepo struct {
	db *DB
}

// NewUserRepo creates a new UserRepo backed by the given DB.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a new user and returns it with its assigned ID.
func (r *UserRepo) Create(ctx context.Context, user model.User) (model.User, error) {
	const query = `INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)`

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.Writer.ExecContext(ctx, query, user.Username, user.Email, user.PasswordHash, user.CreatedAt.UTC())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return model.User{}, fmt.Errorf("create user %s: %w", user.Username, driven.ErrAlreadyExists)
		}
		return model.User{}, fmt.Errorf("create user %s: %w", user.Username, err)
	}

	user.ID, err = result.LastInsertId()
	if err != nil {
		return model.User{}, fmt.Errorf("read user id: %w", err)
	}

	return user, nil
}

// GetByUsername retrieves a user by username. Returns nil, nil if the user does
// not exist.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	const query = `SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?`

	user, err := scanUser(r.db.Reader.QueryRowContext(ctx, query, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}

	return user, nil
}

// GetOrCreate returns the user with the given username, creating a password-less
// account when none exists.
func (r *UserRepo) GetOrCreate(ctx context.Context, username string) (model.User, error) {
	const insert = `INSERT INTO users (username, created_at) VALUES (?, ?) ON CONFLICT(username) DO NOTHING`
	const query = `SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?`

	if _, err := r.db.Writer.ExecContext(ctx, insert, username, time.Now().UTC()); err != nil {
		return model.User{}, fmt.Errorf("ensure user %s: %w", username, err)
	}

	// Read back on the writer so the row is visible regardless of reader lag.
	user, err := scanUser(r.db.Writer.QueryRowContext(ctx, query, username))
	if err != nil {
		return model.User{}, fmt.Errorf("get user %s: %w", username, err)
	}

	return *user, nil
}

func scanUser(s scanner) (*model.User, error) {
	var user model.User
	var createdAt string

	err := s.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &createdAt)
	if err != nil {
		return nil, err
	}

	user.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &user, nil
}
