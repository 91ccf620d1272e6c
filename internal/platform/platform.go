// Package platform holds the deployment paths and service-account defaults used
// when installing and upgrading sites. Packagers may need to patch these values
// for their operating system.
package platform

import (
	"path/filepath"
	"strings"
)

const (
	// SitelistFileUnix is the file listing every installed site on this machine.
	// Upgrades read it so all sites are upgraded together.
	SitelistFileUnix = "/etc/reviewboard/sites"

	// DefaultFSCachePath is the cache directory used when a site is installed with
	// a file-based cache.
	DefaultFSCachePath = "/var/cache/reviewboard/cache"

	// InstalledSitePath is prepended to a site name that is not a path.
	InstalledSitePath = "/var/lib/reviewboard/sites"

	// DefaultWebServerUser owns installed site files. Empty disables chown.
	DefaultWebServerUser = "apache"
)

// ResolveSitePath turns a site argument into an absolute directory. A bare name
// such as "reviews" is placed under InstalledSitePath; anything containing a path
// separator is treated as a path.
func ResolveSitePath(site string) (string, error) {
	return ResolveSitePathIn(InstalledSitePath, site)
}

// ResolveSitePathIn is ResolveSitePath with an explicit directory for bare names.
func ResolveSitePathIn(base, site string) (string, error) {
	site = strings.TrimSpace(site)
	if site == "" {
		return "", errEmptySite
	}

	if !strings.ContainsRune(site, filepath.Separator) && site != "." && site != ".." {
		return filepath.Join(base, site), nil
	}

	abs, err := filepath.Abs(site)
	if err != nil {
		return "", err
	}
	return abs, nil
}
