package update

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestNewer(t *testing.T) {
	tests := []struct {
		name    string
		current string
		latest  string
		want    bool
	}{
		{name: "patch behind", current: "1.0.0", latest: "1.0.1", want: true},
		{name: "patch ahead", current: "1.0.1", latest: "1.0.0", want: false},
		{name: "equal", current: "1.0.0", latest: "1.0.0", want: false},

		// With v prefix
		{name: "v prefix current", current: "v1.0.0", latest: "1.0.1", want: true},
		{name: "v prefix latest", current: "1.0.0", latest: "v1.0.1", want: true},

		// Minor and major version changes
		{name: "minor behind", current: "1.0.0", latest: "1.1.0", want: true},
		{name: "major ahead", current: "2.0.0", latest: "1.9.9", want: false},
		{name: "numeric not lexical", current: "0.9.0", latest: "0.10.0", want: true},

		// Pre-releases sort before their release
		{name: "beta behind release", current: "1.0.0-beta", latest: "1.0.0", want: true},

		{name: "dev is never behind", current: "dev", latest: "999.0.0", want: false},
		{name: "garbage latest", current: "1.0.0", latest: "not-a-version", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newer(tt.current, tt.latest); got != tt.want {
				t.Errorf("newer(%q, %q) = %v, want %v", tt.current, tt.latest, got, tt.want)
			}
		})
	}
}

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join("/tmp/xdg", "sqlimport"); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func newTestChecker(t *testing.T, tag string, status int) (*Checker, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "sqlimport/") {
			t.Errorf("unexpected User-Agent %q", r.Header.Get("User-Agent"))
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"tag_name":"` + tag + `","html_url":"https://example.com/r"}`))
	}))
	t.Cleanup(srv.Close)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return &Checker{
		URL:      srv.URL,
		Current:  "0.1.0",
		Client:   srv.Client(),
		Fs:       afero.NewMemMapFs(),
		CacheDir: "/cache",
		now:      func() time.Time { return now },
	}, &hits
}

func TestChecker_Check(t *testing.T) {
	c, _ := newTestChecker(t, "v0.2.0", http.StatusOK)

	info, err := c.Check(context.Background())
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if info.LatestVersion != "0.2.0" || !info.UpdateAvailable {
		t.Errorf("Check() = %+v, want update to 0.2.0", info)
	}
	if info.ReleaseURL != "https://example.com/r" {
		t.Errorf("ReleaseURL = %q", info.ReleaseURL)
	}
}

func TestChecker_CheckStatus(t *testing.T) {
	c, _ := newTestChecker(t, "", http.StatusForbidden)

	_, err := c.Check(context.Background())
	if err == nil || !strings.Contains(err.Error(), "status 403") {
		t.Errorf("Check() error = %v, want status 403", err)
	}
}

func TestChecker_CheckWithCache(t *testing.T) {
	c, hits := newTestChecker(t, "v0.2.0", http.StatusOK)
	ctx := context.Background()

	if _, err := c.CheckWithCache(ctx); err != nil {
		t.Fatalf("first check: %v", err)
	}
	if ok, _ := afero.Exists(c.Fs, "/cache/update-check.json"); !ok {
		t.Fatal("cache file was not written")
	}

	// The cached answer is reused and recompared against the current version.
	c.Current = "0.2.0"
	info, err := c.CheckWithCache(ctx)
	if err != nil {
		t.Fatalf("cached check: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1", hits.Load())
	}
	if info.UpdateAvailable {
		t.Error("UpdateAvailable = true after catching up")
	}

	// An expired cache goes back to the server.
	later := c.now().Add(cacheTTL + time.Minute)
	c.now = func() time.Time { return later }
	if _, err := c.CheckWithCache(ctx); err != nil {
		t.Fatalf("expired check: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("server hit %d times, want 2", hits.Load())
	}
}
