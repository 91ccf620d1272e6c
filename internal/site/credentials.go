package site

import (
	"context"
	"fmt"

	sqliteadapter "github.com/ericfisherdev/reviewboard/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/reviewboard/internal/config"
)

// Hosting credential names.
const (
	CredentialServiceGitHub = "github"
	CredentialKeyToken      = "token"
)

// SetCredential stores a hosting credential in an installed site, encrypted
// with the site's RB_SECRET_KEY.
func (m *Manager) SetCredential(ctx context.Context, site, service, key, value string) error {
	return m.withCredentials(ctx, site, func(repo *sqliteadapter.CredentialRepo) error {
		if err := repo.Set(ctx, service, key, value); err != nil {
			return err
		}
		m.logger.Info("credential stored", "site", site, "service", service, "key", key)
		return nil
	})
}

// Credential returns a stored hosting credential, or "" when none is stored.
func (m *Manager) Credential(ctx context.Context, site, service, key string) (string, error) {
	var value string
	err := m.withCredentials(ctx, site, func(repo *sqliteadapter.CredentialRepo) error {
		var err error
		value, err = repo.Get(ctx, service, key)
		return err
	})
	return value, err
}

// DeleteCredential removes a stored hosting credential.
func (m *Manager) DeleteCredential(ctx context.Context, site, service, key string) error {
	return m.withCredentials(ctx, site, func(repo *sqliteadapter.CredentialRepo) error {
		return repo.Delete(ctx, service, key)
	})
}

func (m *Manager) withCredentials(ctx context.Context, site string, fn func(*sqliteadapter.CredentialRepo) error) error {
	dir, err := m.ResolvePath(site)
	if err != nil {
		return err
	}

	db, err := m.Open(ctx, dir)
	if err != nil {
		return err
	}
	defer db.Close()

	cfg, err := config.LoadSite(dir)
	if err != nil {
		return fmt.Errorf("%s: %w", dir, err)
	}

	return fn(sqliteadapter.NewCredentialRepo(db, cfg.SecretKey))
}
