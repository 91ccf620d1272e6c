package site

import (
	"context"

	sqliteadapter "github.com/ericfisherdev/reviewboard/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/reviewboard/internal/application"
	"github.com/ericfisherdev/reviewboard/internal/domain/port/driven"
)

// ImportPullRequest imports one hosted pull request into an installed site.
func (m *Manager) ImportPullRequest(ctx context.Context, site string, client driven.HostingClient, repoFullName string, number int) (*application.ImportResult, error) {
	dir, err := m.ResolvePath(site)
	if err != nil {
		return nil, err
	}

	db, err := m.Open(ctx, dir)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	svc := application.NewImportService(
		client,
		sqliteadapter.NewRepoRepo(db),
		sqliteadapter.NewUserRepo(db),
		sqliteadapter.NewReviewRequestRepo(db),
		sqliteadapter.NewDiffRepo(db),
		sqliteadapter.NewReviewRepo(db),
	)

	return svc.ImportPullRequest(ctx, repoFullName, number)
}
