// Package site installs, upgrades and maintains Review Board site directories.
package site

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	sqliteadapter "github.com/ericfisherdev/reviewboard/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/reviewboard/internal/application"
	"github.com/ericfisherdev/reviewboard/internal/config"
	"github.com/ericfisherdev/reviewboard/internal/domain/model"
	"github.com/ericfisherdev/reviewboard/internal/platform"
)

// ErrAlreadyInstalled is returned when installing into a directory that already
// holds a site.
var ErrAlreadyInstalled = errors.New("site already installed")

// ErrNotInstalled is returned when a directory holds no site settings.
var ErrNotInstalled = errors.New("site not installed")

// InstallOptions configures a new site.
type InstallOptions struct {
	Site          string // Site name or path.
	ListenAddr    string
	CachePath     string
	WebServerUser string
	LogLevel      string

	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// UpgradeResult reports the schema version of one upgraded site.
type UpgradeResult struct {
	Dir     string
	Version uint
	Err     error
}

// Manager performs site operations rooted at a sites directory and a site list file.
type Manager struct {
	sitesRoot    string
	siteListPath string
	logger       *slog.Logger
}

// NewManager creates a Manager. Bare site names resolve under sitesRoot; the
// site list is kept at siteListPath.
func NewManager(sitesRoot, siteListPath string, logger *slog.Logger) *Manager {
	return &Manager{
		sitesRoot:    sitesRoot,
		siteListPath: siteListPath,
		logger:       logger,
	}
}

// NewDefaultManager creates a Manager using the platform paths.
func NewDefaultManager(logger *slog.Logger) *Manager {
	return NewManager(platform.InstalledSitePath, platform.SitelistFileUnix, logger)
}

// ResolvePath turns a site name or path into the site directory.
func (m *Manager) ResolvePath(site string) (string, error) {
	return platform.ResolveSitePathIn(m.sitesRoot, site)
}

// Install creates a site directory, migrates its database, optionally creates
// an admin account, writes its settings, hands ownership to the web server user
// and registers the site in the site list. It returns the site directory.
// A failed install leaves no settings file, so it can be retried.
func (m *Manager) Install(ctx context.Context, opts InstallOptions) (string, error) {
	dir, err := m.ResolvePath(opts.Site)
	if err != nil {
		return "", err
	}

	settingsPath := filepath.Join(dir, config.SettingsFile)
	if _, err := os.Stat(settingsPath); err == nil {
		return "", fmt.Errorf("%s: %w", dir, ErrAlreadyInstalled)
	}

	for _, sub := range []string{"conf", "data"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o750); err != nil {
			return "", fmt.Errorf("create %s directory: %w", sub, err)
		}
	}

	settings := installSettings(dir, opts)

	if cache := settings["RB_CACHE_PATH"]; cache != "" {
		if err := os.MkdirAll(cache, 0o755); err != nil {
			m.logger.Warn("could not create cache directory", "path", cache, "error", err)
		}
	}

	if err := m.initDatabase(ctx, dir, opts); err != nil {
		return "", err
	}

	// The settings file marks the site as installed, so it is written last.
	if err := writeSettings(settingsPath, settings); err != nil {
		return "", err
	}
	m.logger.Info("settings written", "path", settingsPath)

	if err := chownSite(dir, settings["RB_WEB_SERVER_USER"]); err != nil {
		m.logger.Warn("could not change site ownership", "user", settings["RB_WEB_SERVER_USER"], "error", err)
	}

	if err := m.register(dir); err != nil {
		m.logger.Warn("could not register site", "site_list", m.siteListPath, "error", err)
	}

	return dir, nil
}

func (m *Manager) initDatabase(ctx context.Context, dir string, opts InstallOptions) error {
	db, err := sqliteadapter.NewDB(ctx, config.DBPathForSite(dir))
	if err != nil {
		return fmt.Errorf("open site database: %w", err)
	}
	defer db.Close()

	version, err := sqliteadapter.MigrateUp(db.Writer)
	if err != nil {
		return err
	}
	m.logger.Info("database migrated", "version", version)

	if opts.AdminUsername == "" {
		return nil
	}
	if err := createAdmin(ctx, db, opts); err != nil {
		return err
	}
	m.logger.Info("admin user created", "username", opts.AdminUsername)
	return nil
}

// writeSettings writes the site settings readable by the owner only, since
// they hold RB_SECRET_KEY.
func writeSettings(path string, settings map[string]string) error {
	content, err := godotenv.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(path, []byte(content+"\n"), 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("restrict settings permissions: %w", err)
	}
	return nil
}

func installSettings(dir string, opts InstallOptions) map[string]string {
	listenAddr := opts.ListenAddr
	if listenAddr == "" {
		listenAddr = "127.0.0.1:8080"
	}
	cachePath := opts.CachePath
	if cachePath == "" {
		cachePath = platform.DefaultFSCachePath
	}
	webServerUser := opts.WebServerUser
	if webServerUser == "" {
		webServerUser = platform.DefaultWebServerUser
	}
	logLevel := opts.LogLevel
	if logLevel == "" {
		logLevel = "info"
	}

	secretKey := make([]byte, 32)
	_, _ = rand.Read(secretKey)

	return map[string]string{
		"RB_SITE_DIR":        dir,
		"RB_SECRET_KEY":      hex.EncodeToString(secretKey),
		"RB_LISTEN_ADDR":     listenAddr,
		"RB_DB_PATH":         config.DBPathForSite(dir),
		"RB_CACHE_PATH":      cachePath,
		"RB_WEB_SERVER_USER": webServerUser,
		"RB_LOG_LEVEL":       logLevel,
	}
}

func createAdmin(ctx context.Context, db *sqliteadapter.DB, opts InstallOptions) error {
	hash, err := application.HashPassword(opts.AdminPassword)
	if err != nil {
		return err
	}

	_, err = sqliteadapter.NewUserRepo(db).Create(ctx, model.User{
		Username:     opts.AdminUsername,
		Email:        opts.AdminEmail,
		PasswordHash: hash,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	return nil
}

// chownSite gives the web server user ownership of the site tree. It only acts
// when running as root and a user is configured.
func chownSite(dir, username string) error {
	if username == "" || os.Geteuid() != 0 {
		return nil
	}

	u, err := user.Lookup(username)
	if err != nil {
		return fmt.Errorf("look up user %q: %w", username, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return fmt.Errorf("parse uid of %q: %w", username, err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return fmt.Errorf("parse gid of %q: %w", username, err)
	}

	return filepath.WalkDir(dir, func(path string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		return os.Lchown(path, uid, gid)
	})
}

func (m *Manager) register(dir string) error {
	sl, err := platform.LoadSiteList(m.siteListPath)
	if err != nil {
		return err
	}
	if sl.Contains(dir) {
		return nil
	}
	sl.Add(dir)
	return sl.Save()
}

// Upgrade migrates the database of one installed site to the latest schema.
func (m *Manager) Upgrade(ctx context.Context, site string) (uint, error) {
	dir, err := m.ResolvePath(site)
	if err != nil {
		return 0, err
	}

	db, err := m.Open(ctx, dir)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	version, err := sqliteadapter.MigrateUp(db.Writer)
	if err != nil {
		return 0, fmt.Errorf("upgrade %s: %w", dir, err)
	}

	m.logger.Info("site upgraded", "site", dir, "version", version)
	return version, nil
}

// UpgradeAll upgrades every site in the site list. A failing site does not stop
// the others; each outcome is reported.
func (m *Manager) UpgradeAll(ctx context.Context) ([]UpgradeResult, error) {
	sites, err := m.List()
	if err != nil {
		return nil, err
	}

	results := make([]UpgradeResult, 0, len(sites))
	for _, dir := range sites {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}

		version, err := m.Upgrade(ctx, dir)
		if err != nil {
			m.logger.Error("site upgrade failed", "site", dir, "error", err)
		}
		results = append(results, UpgradeResult{Dir: dir, Version: version, Err: err})
	}

	return results, nil
}

// List returns the registered site directories.
func (m *Manager) List() ([]string, error) {
	sl, err := platform.LoadSiteList(m.siteListPath)
	if err != nil {
		return nil, err
	}
	return sl.Sites(), nil
}

// Open opens the database of an installed site. The site's settings file must exist.
func (m *Manager) Open(ctx context.Context, dir string) (*sqliteadapter.DB, error) {
	if _, err := os.Stat(filepath.Join(dir, config.SettingsFile)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", dir, ErrNotInstalled)
		}
		return nil, err
	}

	db, err := sqliteadapter.NewDB(ctx, config.DBPathForSite(dir))
	if err != nil {
		return nil, fmt.Errorf("open site database: %w", err)
	}
	return db, nil
}

// Config returns the configuration of an installed site.
func (m *Manager) Config(site string) (*config.Config, error) {
	dir, err := m.ResolvePath(site)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadSite(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotInstalled)
	}
	return cfg, err
}
