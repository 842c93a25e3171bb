// Package update checks GitHub for a newer sqlimport release.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	goversion "github.com/hashicorp/go-version"
	"github.com/spf13/afero"

	"github.com/pthm/sqlimport/internal/version"
)

const (
	// ReleasesURL is the GitHub API endpoint for the latest release.
	ReleasesURL = "https://api.github.com/repos/pthm/sqlimport/releases/latest"

	cacheTTL  = 24 * time.Hour
	cacheFile = "update-check.json"
)

// Info contains update check results
type Info struct {
	LatestVersion   string    `json:"latest_version"`
	CurrentVersion  string    `json:"current_version"`
	ReleaseURL      string    `json:"release_url,omitempty"`
	CheckedAt       time.Time `json:"checked_at"`
	UpdateAvailable bool      `json:"update_available"`
}

// githubRelease represents the GitHub API response
type githubRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Checker queries the release endpoint and caches the answer for a day.
// The zero value is not usable; use NewChecker.
type Checker struct {
	URL      string
	Current  string
	Client   *http.Client
	Fs       afero.Fs
	CacheDir string

	now func() time.Time
}

// NewChecker returns a checker for the running binary using the user cache
// directory on the OS filesystem.
func NewChecker() *Checker {
	dir, err := cacheDir()
	if err != nil {
		dir = ""
	}
	return &Checker{
		URL:      ReleasesURL,
		Current:  version.Version,
		Client:   &http.Client{Timeout: 5 * time.Second},
		Fs:       afero.NewOsFs(),
		CacheDir: dir,
		now:      time.Now,
	}
}

// CheckWithCache checks for updates using cache when available
func (c *Checker) CheckWithCache(ctx context.Context) (*Info, error) {
	if info, err := c.loadCache(); err == nil && c.clock().Sub(info.CheckedAt) < cacheTTL {
		info.CurrentVersion = c.Current
		info.UpdateAvailable = newer(c.Current, info.LatestVersion)
		return info, nil
	}

	info, err := c.Check(ctx)
	if err != nil {
		return nil, err
	}

	// A failed cache write only costs another request next time.
	_ = c.saveCache(info)
	return info, nil
}

// Check fetches the latest release, bypassing the cache.
func (c *Checker) Check(ctx context.Context) (*Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "sqlimport/"+c.Current)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching latest release: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("decoding release: %w", err)
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	return &Info{
		LatestVersion:   latest,
		CurrentVersion:  c.Current,
		ReleaseURL:      release.HTMLURL,
		CheckedAt:       c.clock(),
		UpdateAvailable: newer(c.Current, latest),
	}, nil
}

func (c *Checker) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

// cacheDir returns the cache directory path
func cacheDir() (string, error) {
	// Use XDG_CACHE_HOME if set, otherwise ~/.cache
	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		cacheHome = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheHome, "sqlimport"), nil
}

func (c *Checker) loadCache() (*Info, error) {
	if c.CacheDir == "" {
		return nil, os.ErrNotExist
	}
	data, err := afero.ReadFile(c.Fs, filepath.Join(c.CacheDir, cacheFile))
	if err != nil {
		return nil, err
	}

	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Checker) saveCache(info *Info) error {
	if c.CacheDir == "" {
		return nil
	}
	if err := c.Fs.MkdirAll(c.CacheDir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(c.Fs, filepath.Join(c.CacheDir, cacheFile), data, 0o644)
}

// newer reports whether latest is a newer release than current. Development
// builds are never behind, and unparsable versions never compare newer.
func newer(current, latest string) bool {
	if current == "dev" {
		return false
	}
	cur, err := goversion.NewVersion(current)
	if err != nil {
		return false
	}
	lat, err := goversion.NewVersion(latest)
	if err != nil {
		return false
	}
	return cur.LessThan(lat)
}
