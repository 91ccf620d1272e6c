// Command rb-site installs and maintains Review Board sites.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	githubadapter "github.com/ericfisherdev/reviewboard/internal/adapter/driven/github"
	"github.com/ericfisherdev/reviewboard/internal/domain/port/driven"
	"github.com/ericfisherdev/reviewboard/internal/platform"
	"github.com/ericfisherdev/reviewboard/internal/site"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	sitesRoot string
	siteList  string
	logLevel  string
}

func (o *rootOptions) manager(stderr io.Writer) (*site.Manager, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", o.logLevel, err)
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	return site.NewManager(o.sitesRoot, o.siteList, logger), nil
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "rb-site",
		Short:        "Install and maintain Review Board sites",
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&opts.sitesRoot, "sites-root", platform.InstalledSitePath, "directory holding sites given by name")
	root.PersistentFlags().StringVar(&opts.siteList, "site-list", platform.SitelistFileUnix, "file listing installed sites")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newInstallCmd(opts),
		newUpgradeCmd(opts),
		newListCmd(opts),
		newLocalSiteCmd(opts),
		newImportGitHubCmd(opts),
		newCredentialsCmd(opts),
	)

	return root
}

func newInstallCmd(opts *rootOptions) *cobra.Command {
	var install site.InstallOptions

	cmd := &cobra.Command{
		Use:   "install <site>",
		Short: "Install a new site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.manager(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			install.Site = args[0]
			if install.AdminUsername != "" && install.AdminPassword == "" {
				install.AdminPassword = os.Getenv("RB_ADMIN_PASSWORD")
			}

			dir, err := m.Install(cmd.Context(), install)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Site installed in %s\n", dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&install.ListenAddr, "listen-addr", "", "address the server listens on (default 127.0.0.1:8080)")
	cmd.Flags().StringVar(&install.CachePath, "cache-path", platform.DefaultFSCachePath, "file cache directory")
	cmd.Flags().StringVar(&install.WebServerUser, "web-server-user", platform.DefaultWebServerUser, "user that owns the site files")
	cmd.Flags().StringVar(&install.LogLevel, "site-log-level", "info", "log level written to the site settings")
	cmd.Flags().StringVar(&install.AdminUsername, "admin-user", "", "create an admin account with this username")
	cmd.Flags().StringVar(&install.AdminEmail, "admin-email", "", "admin account e-mail")
	cmd.Flags().StringVar(&install.AdminPassword, "admin-password", "", "admin account password (default $RB_ADMIN_PASSWORD)")

	return cmd
}

func newUpgradeCmd(opts *rootOptions) *cobra.Command {
	var allSites bool

	cmd := &cobra.Command{
		Use:   "upgrade [site]",
		Short: "Upgrade a site's database to the latest schema",
		Args: func(cmd *cobra.Command, args []string) error {
			if allSites {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.manager(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if !allSites {
				version, err := m.Upgrade(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Upgraded %s to schema version %d\n", args[0], version)
				return nil
			}

			results, err := m.UpgradeAll(cmd.Context())
			if err != nil {
				return err
			}

			var failed int
			for _, r := range results {
				if r.Err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "FAILED %s: %v\n", r.Dir, r.Err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Upgraded %s to schema version %d\n", r.Dir, r.Version)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d sites failed to upgrade", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&allSites, "all-sites", false, "upgrade every site in the site list")

	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := opts.manager(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			sites, err := m.List()
			if err != nil {
				return err
			}
			for _, dir := range sites {
				fmt.Fprintln(cmd.OutOrStdout(), dir)
			}
			return nil
		},
	}
}

func newLocalSiteCmd(opts *rootOptions) *cobra.Command {
	var (
		public  bool
		members []string
	)

	add := &cobra.Command{
		Use:   "add <site> <name>",
		Short: "Create a local site inside a site",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.manager(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ls, err := m.AddLocalSite(cmd.Context(), args[0], args[1], public, members)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Local site %q created (id %d)\n", ls.Name, ls.ID)
			return nil
		},
	}
	add.Flags().BoolVar(&public, "public", false, "allow anonymous access")
	add.Flags().StringSliceVar(&members, "member", nil, "username to add as a member (repeatable)")

	cmd := &cobra.Command{
		Use:   "local-site",
		Short: "Manage local sites",
	}
	cmd.AddCommand(add)

	return cmd
}

func newImportGitHubCmd(opts *rootOptions) *cobra.Command {
	var token, cachePath string

	cmd := &cobra.Command{
		Use:   "import-github <site> <owner/repo> <number>",
		Short: "Import a GitHub pull request as a review request",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[2])
			if err != nil || number <= 0 {
				return fmt.Errorf("invalid pull request number %q", args[2])
			}

			m, err := opts.manager(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			cfg, err := m.Config(args[0])
			if err != nil {
				return err
			}

			resolved, err := resolveGitHubToken(cmd.Context(), m, args[0], token, cfg.GitHubToken)
			if err != nil {
				return err
			}
			if resolved == "" {
				slog.Warn("importing without a GitHub token; unauthenticated rate limits apply")
			}
			if cachePath == "" && cfg.CachePath != "" {
				cachePath = filepath.Join(cfg.CachePath, "github")
			}
			client := githubadapter.NewClient(resolved, cachePath)

			result, err := m.ImportPullRequest(cmd.Context(), args[0], client, args[1], number)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s#%d as review request %d (revision %d, %d reviews, %d comments)\n",
				args[1], number, result.ReviewRequest.DisplayID(), result.DiffSet.Revision, result.Reviews, result.Comments)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "GitHub token (default: stored site credential, then RB_GITHUB_TOKEN)")
	cmd.Flags().StringVar(&cachePath, "cache-path", "", "HTTP cache directory for GitHub responses (default <RB_CACHE_PATH>/github, in memory when empty)")

	return cmd
}

// resolveGitHubToken prefers an explicit token, then the site's stored
// credential, then RB_GITHUB_TOKEN from the environment or site settings.
func resolveGitHubToken(ctx context.Context, m *site.Manager, siteName, explicit, configured string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	stored, err := m.Credential(ctx, siteName, site.CredentialServiceGitHub, site.CredentialKeyToken)
	switch {
	case errors.Is(err, driven.ErrEncryptionKeyNotSet):
		// Sites without a secret key have no stored credentials.
	case err != nil:
		return "", err
	case stored != "":
		return stored, nil
	}

	return configured, nil
}

func newCredentialsCmd(opts *rootOptions) *cobra.Command {
	var key string

	set := &cobra.Command{
		Use:   "set <site> <service>",
		Short: "Store a hosting credential read from stdin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.manager(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("read credential: %w", err)
				}
				return errors.New("no credential given on stdin")
			}
			value := strings.TrimSpace(scanner.Text())
			if value == "" {
				return errors.New("no credential given on stdin")
			}

			if err := m.SetCredential(cmd.Context(), args[0], args[1], key, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s %s credential\n", args[1], key)
			return nil
		},
	}
	set.Flags().StringVar(&key, "key", site.CredentialKeyToken, "credential name within the service")

	del := &cobra.Command{
		Use:   "delete <site> <service>",
		Short: "Remove a stored hosting credential",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.manager(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return m.DeleteCredential(cmd.Context(), args[0], args[1], key)
		},
	}
	del.Flags().StringVar(&key, "key", site.CredentialKeyToken, "credential name within the service")

	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage hosting service credentials stored in a site",
	}
	cmd.AddCommand(set, del)

	return cmd
}
