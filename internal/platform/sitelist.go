package platform

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var errEmptySite = errors.New("site name is empty")

// SiteList is the set of installed site directories recorded in the site list file.
type SiteList struct {
	path  string
	sites []string
}

// LoadSiteList reads the site list at path. A missing file yields an empty list.
// Blank lines and lines starting with '#' are ignored.
func LoadSiteList(path string) (*SiteList, error) {
	sl := &SiteList{path: path}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return sl, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open site list %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sl.add(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read site list %s: %w", path, err)
	}

	return sl, nil
}

// Path returns the file backing the list.
func (sl *SiteList) Path() string {
	return sl.path
}

// Sites returns the recorded site directories in sorted order.
func (sl *SiteList) Sites() []string {
	return slices.Clone(sl.sites)
}

// Contains reports whether dir is recorded.
func (sl *SiteList) Contains(dir string) bool {
	_, found := slices.BinarySearch(sl.sites, filepath.Clean(dir))
	return found
}

// Add records dir. Adding a recorded site is a no-op.
func (sl *SiteList) Add(dir string) {
	sl.add(dir)
}

// Remove forgets dir and reports whether it was recorded.
func (sl *SiteList) Remove(dir string) bool {
	i, found := slices.BinarySearch(sl.sites, filepath.Clean(dir))
	if !found {
		return false
	}
	sl.sites = slices.Delete(sl.sites, i, i+1)
	return true
}

// Save writes the list back to disk, creating the parent directory if needed.
// An empty list removes the file.
func (sl *SiteList) Save() error {
	if len(sl.sites) == 0 {
		if err := os.Remove(sl.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove site list %s: %w", sl.path, err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(sl.path), 0o755); err != nil {
		return fmt.Errorf("create site list directory: %w", err)
	}

	data := strings.Join(sl.sites, "\n") + "\n"
	if err := os.WriteFile(sl.path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("write site list %s: %w", sl.path, err)
	}

	return nil
}

func (sl *SiteList) add(dir string) {
	dir = filepath.Clean(dir)
	i, found := slices.BinarySearch(sl.sites, dir)
	if found {
		return
	}
	sl.sites = slices.Insert(sl.sites, i, dir)
}
