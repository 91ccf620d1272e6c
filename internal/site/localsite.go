package site

import (
	"context"
	"fmt"

	sqliteadapter "github.com/ericfisherdev/reviewboard/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/reviewboard/internal/domain/model"
)

// AddLocalSite creates a local site inside an installed site and adds the
// named users as members, creating accounts for unknown usernames.
func (m *Manager) AddLocalSite(ctx context.Context, site, name string, public bool, members []string) (model.LocalSite, error) {
	dir, err := m.ResolvePath(site)
	if err != nil {
		return model.LocalSite{}, err
	}

	db, err := m.Open(ctx, dir)
	if err != nil {
		return model.LocalSite{}, err
	}
	defer db.Close()

	sites := sqliteadapter.NewLocalSiteRepo(db)
	users := sqliteadapter.NewUserRepo(db)

	ls, err := sites.Create(ctx, model.LocalSite{Name: name, Public: public})
	if err != nil {
		return model.LocalSite{}, fmt.Errorf("create local site %q: %w", name, err)
	}

	for _, username := range members {
		u, err := users.GetOrCreate(ctx, username)
		if err != nil {
			return model.LocalSite{}, fmt.Errorf("get member %q: %w", username, err)
		}
		if err := sites.AddMember(ctx, ls.ID, u.ID); err != nil {
			return model.LocalSite{}, fmt.Errorf("add member %q: %w", username, err)
		}
	}

	m.logger.Info("local site created", "site", dir, "name", name, "public", public, "members", len(members))
	return ls, nil
}
