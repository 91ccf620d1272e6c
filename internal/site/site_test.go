package site_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqliteadapter "github.com/ericfisherdev/reviewboard/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/reviewboard/internal/application"
	"github.com/ericfisherdev/reviewboard/internal/config"
	"github.com/ericfisherdev/reviewboard/internal/domain/model"
	"github.com/ericfisherdev/reviewboard/internal/domain/port/driven"
	"github.com/ericfisherdev/reviewboard/internal/platform"
	"github.com/ericfisherdev/reviewboard/internal/site"
)

const schemaVersion = 5

func newTestManager(t *testing.T) (*site.Manager, string) {
	t.Helper()
	root := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return site.NewManager(filepath.Join(root, "sites"), filepath.Join(root, "etc", "sites"), logger), root
}

func installTestSite(t *testing.T, m *site.Manager, root, name string) string {
	t.Helper()
	dir, err := m.Install(context.Background(), site.InstallOptions{
		Site:          name,
		CachePath:     filepath.Join(root, "cache"),
		WebServerUser: "nobody-in-particular",
	})
	require.NoError(t, err)
	return dir
}

func TestInstall(t *testing.T) {
	m, root := newTestManager(t)

	dir, err := m.Install(context.Background(), site.InstallOptions{
		Site:          "reviews",
		ListenAddr:    "0.0.0.0:9000",
		CachePath:     filepath.Join(root, "cache"),
		WebServerUser: "nobody-in-particular",
		AdminUsername: "admin",
		AdminEmail:    "admin@example.com",
		AdminPassword: "s3cret",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "sites", "reviews"), dir)

	settings, err := godotenv.Read(filepath.Join(dir, config.SettingsFile))
	require.NoError(t, err)
	assert.Equal(t, dir, settings["RB_SITE_DIR"])
	assert.Equal(t, "0.0.0.0:9000", settings["RB_LISTEN_ADDR"])
	assert.Equal(t, config.DBPathForSite(dir), settings["RB_DB_PATH"])
	assert.Equal(t, filepath.Join(root, "cache"), settings["RB_CACHE_PATH"])
	assert.Equal(t, "nobody-in-particular", settings["RB_WEB_SERVER_USER"])
	assert.Equal(t, "info", settings["RB_LOG_LEVEL"])
	assert.Len(t, settings["RB_SECRET_KEY"], 64)

	assert.DirExists(t, filepath.Join(root, "cache"))
	assert.FileExists(t, config.DBPathForSite(dir))

	sites, err := m.List()
	require.NoError(t, err)
	assert.Equal(t, []string{dir}, sites)

	db, err := m.Open(context.Background(), dir)
	require.NoError(t, err)
	defer db.Close()

	admin, err := application.NewAuthService(sqliteadapter.NewUserRepo(db)).Authenticate(context.Background(), "admin", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", admin.Email)
}

func TestInstall_DefaultSettings(t *testing.T) {
	m, _ := newTestManager(t)

	dir, err := m.Install(context.Background(), site.InstallOptions{
		Site:      "defaults",
		CachePath: filepath.Join(t.TempDir(), "cache"),
	})
	require.NoError(t, err)

	settings, err := godotenv.Read(filepath.Join(dir, config.SettingsFile))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", settings["RB_LISTEN_ADDR"])
	assert.Equal(t, platform.DefaultWebServerUser, settings["RB_WEB_SERVER_USER"])
}

func TestInstall_AlreadyInstalled(t *testing.T) {
	m, root := newTestManager(t)
	installTestSite(t, m, root, "reviews")

	_, err := m.Install(context.Background(), site.InstallOptions{Site: "reviews"})
	require.ErrorIs(t, err, site.ErrAlreadyInstalled)
}

func TestInstall_SettingsOwnerOnly(t *testing.T) {
	m, root := newTestManager(t)
	dir := installTestSite(t, m, root, "reviews")

	info, err := os.Stat(filepath.Join(dir, config.SettingsFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "settings hold RB_SECRET_KEY")

	info, err = os.Stat(filepath.Join(dir, "conf"))
	require.NoError(t, err)
	assert.Zero(t, info.Mode().Perm()&0o007, "conf must not be world-accessible")
}

func TestInstall_RetryAfterFailure(t *testing.T) {
	m, root := newTestManager(t)
	dir := filepath.Join(root, "sites", "retry")

	// A directory where the database file belongs makes the install fail.
	dbPath := config.DBPathForSite(dir)
	require.NoError(t, os.MkdirAll(dbPath, 0o755))

	_, err := m.Install(context.Background(), site.InstallOptions{
		Site:          "retry",
		CachePath:     filepath.Join(root, "cache"),
		WebServerUser: "nobody-in-particular",
	})
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, config.SettingsFile))

	sites, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, sites)

	require.NoError(t, os.RemoveAll(dbPath))

	got := installTestSite(t, m, root, "retry")
	assert.Equal(t, dir, got)
	assert.FileExists(t, filepath.Join(dir, config.SettingsFile))
}

func TestInstall_EmptySite(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Install(context.Background(), site.InstallOptions{Site: "  "})
	require.Error(t, err)
}

func TestUpgrade(t *testing.T) {
	m, root := newTestManager(t)
	dir := installTestSite(t, m, root, "reviews")

	version, err := m.Upgrade(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, uint(schemaVersion), version)

	// By name resolves to the same site.
	version, err = m.Upgrade(context.Background(), "reviews")
	require.NoError(t, err)
	assert.Equal(t, uint(schemaVersion), version)
}

func TestUpgrade_NotInstalled(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Upgrade(context.Background(), t.TempDir())
	require.ErrorIs(t, err, site.ErrNotInstalled)
}

func TestUpgradeAll(t *testing.T) {
	m, root := newTestManager(t)
	first := installTestSite(t, m, root, "alpha")
	second := installTestSite(t, m, root, "beta")

	// A stale entry for a removed site.
	missing := filepath.Join(root, "sites", "gone")
	sl, err := platform.LoadSiteList(filepath.Join(root, "etc", "sites"))
	require.NoError(t, err)
	sl.Add(missing)
	require.NoError(t, sl.Save())

	results, err := m.UpgradeAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	byDir := map[string]site.UpgradeResult{}
	for _, r := range results {
		byDir[r.Dir] = r
	}
	assert.NoError(t, byDir[first].Err)
	assert.Equal(t, uint(schemaVersion), byDir[first].Version)
	assert.NoError(t, byDir[second].Err)
	assert.ErrorIs(t, byDir[missing].Err, site.ErrNotInstalled)
}

func TestAddLocalSite(t *testing.T) {
	m, root := newTestManager(t)
	dir := installTestSite(t, m, root, "reviews")
	ctx := context.Background()

	ls, err := m.AddLocalSite(ctx, dir, "team", false, []string{"alice", "bob"})
	require.NoError(t, err)
	assert.Equal(t, "team", ls.Name)
	assert.False(t, ls.Public)

	_, err = m.AddLocalSite(ctx, dir, "team", true, nil)
	require.ErrorIs(t, err, driven.ErrAlreadyExists)

	db, err := m.Open(ctx, dir)
	require.NoError(t, err)
	defer db.Close()

	alice, err := sqliteadapter.NewUserRepo(db).GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, alice)

	member, err := sqliteadapter.NewLocalSiteRepo(db).IsMember(ctx, ls.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, member)
}

// fakeHostingClient serves one pull request with a single inline comment.
type fakeHostingClient struct{}

func (fakeHostingClient) FetchPullRequest(_ context.Context, repoFullName string, number int) (*model.HostedPullRequest, error) {
	return &model.HostedPullRequest{
		RepoFullName: repoFullName,
		Number:       number,
		Title:        "Add widgets",
		Author:       "octocat",
		HeadSHA:      "head1",
		BaseSHA:      "base1",
		Open:         true,
	}, nil
}

func (fakeHostingClient) FetchPullRequestFiles(_ context.Context, _ string, _ int) ([]model.HostedFile, error) {
	return []model.HostedFile{{Filename: "widget.go", Status: "added", Patch: "@@ -0,0 +1 @@\n+package widgets"}}, nil
}

func (fakeHostingClient) FetchReviews(_ context.Context, _ string, _ int) ([]model.HostedReview, error) {
	return []model.HostedReview{{ID: 1, Author: "reviewer", State: "COMMENTED", SubmittedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}}, nil
}

func (fakeHostingClient) FetchReviewComments(_ context.Context, _ string, _ int) ([]model.HostedComment, error) {
	return []model.HostedComment{{
		ID: 9, ReviewID: 1, Author: "reviewer", Body: "nit", Path: "widget.go", Line: 1,
		CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}}, nil
}

func TestImportPullRequest(t *testing.T) {
	m, root := newTestManager(t)
	dir := installTestSite(t, m, root, "reviews")
	ctx := context.Background()

	result, err := m.ImportPullRequest(ctx, dir, fakeHostingClient{}, "octo/widgets", 42)
	require.NoError(t, err)
	assert.True(t, result.NewRevision)
	assert.Equal(t, 1, result.Comments)

	again, err := m.ImportPullRequest(ctx, dir, fakeHostingClient{}, "octo/widgets", 42)
	require.NoError(t, err)
	assert.False(t, again.NewRevision)
	assert.Equal(t, result.ReviewRequest.ID, again.ReviewRequest.ID)

	db, err := m.Open(ctx, dir)
	require.NoError(t, err)
	defer db.Close()

	fileDiffs, err := sqliteadapter.NewDiffRepo(db).ListFileDiffs(ctx, result.DiffSet.ID)
	require.NoError(t, err)
	require.Len(t, fileDiffs, 1)

	comments, total, err := sqliteadapter.NewReviewRepo(db).ListFileDiffComments(ctx, driven.FileDiffCommentQuery{
		ReviewRequestID: result.ReviewRequest.ID,
		DiffRevision:    1,
		FileDiffID:      fileDiffs[0].ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, comments, 1)
	assert.Equal(t, "nit", comments[0].Text)
	assert.Equal(t, "reviewer", comments[0].Username)
}

func TestImportPullRequest_NotInstalled(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.ImportPullRequest(context.Background(), t.TempDir(), fakeHostingClient{}, "octo/widgets", 1)
	require.ErrorIs(t, err, site.ErrNotInstalled)
}

func TestCredentials(t *testing.T) {
	m, root := newTestManager(t)
	dir := installTestSite(t, m, root, "reviews")
	ctx := context.Background()

	token, err := m.Credential(ctx, dir, site.CredentialServiceGitHub, site.CredentialKeyToken)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, m.SetCredential(ctx, dir, site.CredentialServiceGitHub, site.CredentialKeyToken, "ghp_stored"))

	token, err = m.Credential(ctx, dir, site.CredentialServiceGitHub, site.CredentialKeyToken)
	require.NoError(t, err)
	assert.Equal(t, "ghp_stored", token)

	require.NoError(t, m.DeleteCredential(ctx, dir, site.CredentialServiceGitHub, site.CredentialKeyToken))

	token, err = m.Credential(ctx, dir, site.CredentialServiceGitHub, site.CredentialKeyToken)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestCredentials_NoSecretKey(t *testing.T) {
	m, root := newTestManager(t)
	dir := installTestSite(t, m, root, "reviews")
	ctx := context.Background()

	settingsPath := filepath.Join(dir, config.SettingsFile)
	settings, err := godotenv.Read(settingsPath)
	require.NoError(t, err)
	delete(settings, "RB_SECRET_KEY")
	require.NoError(t, godotenv.Write(settings, settingsPath))

	err = m.SetCredential(ctx, dir, site.CredentialServiceGitHub, site.CredentialKeyToken, "ghp_stored")
	require.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
}

func TestConfig(t *testing.T) {
	m, root := newTestManager(t)
	dir := installTestSite(t, m, root, "reviews")

	cfg, err := m.Config("reviews")
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.SiteDir)
	assert.Equal(t, filepath.Join(root, "cache"), cfg.CachePath)
	assert.Len(t, cfg.SecretKey, 32)

	_, err = m.Config("missing")
	require.ErrorIs(t, err, site.ErrNotInstalled)
}
