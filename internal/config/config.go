// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ericfisherdev/reviewboard/internal/platform"
)

// SettingsFile is the site-relative path of the env file written by rb-site install.
const SettingsFile = "conf/settings.env"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	SiteDir       string
	ListenAddr    string
	DBPath        string
	CachePath     string
	GitHubToken   string
	WebServerUser string
	LogLevel      slog.Level
	SecretKey     []byte // nil when RB_SECRET_KEY is unset.
}

// Load reads configuration from environment variables and returns a validated Config.
// When RB_SITE_DIR is set, the site's conf/settings.env is loaded first; values
// already present in the process environment win.
// Optional variables with defaults: RB_LISTEN_ADDR (127.0.0.1:8080),
// RB_DB_PATH (<site>/data/reviewboard.db, or reviewboard.db without a site),
// RB_CACHE_PATH (platform.DefaultFSCachePath), RB_LOG_LEVEL (info),
// RB_WEB_SERVER_USER (platform.DefaultWebServerUser), RB_SECRET_KEY (64 hex
// characters; credential storage is disabled without it).
func Load() (*Config, error) {
	siteDir := os.Getenv("RB_SITE_DIR")
	if siteDir != "" {
		err := godotenv.Load(filepath.Join(siteDir, SettingsFile))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load site settings: %w", err)
		}
	}

	return fromLookup(siteDir, os.LookupEnv)
}

// LoadSite returns the configuration of an installed site without touching the
// process environment. Process env values still win over the settings file.
func LoadSite(siteDir string) (*Config, error) {
	settings, err := godotenv.Read(filepath.Join(siteDir, SettingsFile))
	if err != nil {
		return nil, fmt.Errorf("read site settings: %w", err)
	}

	return fromLookup(siteDir, func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := settings[key]
		return v, ok
	})
}

func fromLookup(siteDir string, lookup func(string) (string, bool)) (*Config, error) {
	listenAddr := "127.0.0.1:8080"
	if v, ok := lookup("RB_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "reviewboard.db"
	if siteDir != "" {
		dbPath = DBPathForSite(siteDir)
	}
	if v, ok := lookup("RB_DB_PATH"); ok && v != "" {
		dbPath = v
	}

	cachePath := platform.DefaultFSCachePath
	if v, ok := lookup("RB_CACHE_PATH"); ok {
		cachePath = v
	}

	webServerUser := platform.DefaultWebServerUser
	if v, ok := lookup("RB_WEB_SERVER_USER"); ok {
		webServerUser = v
	}

	logLevel := slog.LevelInfo
	if v, ok := lookup("RB_LOG_LEVEL"); ok && v != "" {
		if err := logLevel.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
			return nil, fmt.Errorf("RB_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	rawKey, _ := lookup("RB_SECRET_KEY")
	secretKey, err := ParseSecretKey(rawKey)
	if err != nil {
		return nil, fmt.Errorf("RB_SECRET_KEY: %w", err)
	}

	gitHubToken, _ := lookup("RB_GITHUB_TOKEN")

	return &Config{
		SiteDir:       siteDir,
		ListenAddr:    listenAddr,
		DBPath:        dbPath,
		CachePath:     cachePath,
		GitHubToken:   gitHubToken,
		WebServerUser: webServerUser,
		LogLevel:      logLevel,
		SecretKey:     secretKey,
	}, nil
}

// ParseSecretKey decodes a hex-encoded 32-byte AES-256 key. An empty string
// yields a nil key.
func ParseSecretKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("must be hex encoded: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// DBPathForSite returns the database file of an installed site.
func DBPathForSite(siteDir string) string {
	return filepath.Join(siteDir, "data", "reviewboard.db")
}
