// Package testutil provides utilities for testing vipsfetch in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// overrideEnv lists every variable that changes installer decisions. They
// are cleared so a developer's shell cannot leak into tests.
var overrideEnv = []string{
	"VIPSFETCH_IGNORE_GLOBAL",
	"VIPSFETCH_FORCE_GLOBAL",
	"VIPSFETCH_INSTALL_FORCE",
	"VIPSFETCH_BUILD_FROM_SOURCE",
	"VIPSFETCH_PLATFORM",
	"VIPSFETCH_ARCH",
	"VIPSFETCH_LIBC",
	"VIPSFETCH_ARM_VERSION",
	"VIPSFETCH_PROXY",
	"VIPSFETCH_DIST_BASE_URL",
	"VIPSFETCH_BINARY_HOST",
	"VIPSFETCH_LOCAL_PREBUILDS",
	"VIPSFETCH_VERSION",
	"VIPSFETCH_RUNTIME_RANGE",
	"VIPSFETCH_KEYRING",
	"VIPSFETCH_CONFIG",
	"HTTPS_PROXY", "https_proxy", "HTTP_PROXY", "http_proxy", "ALL_PROXY", "all_proxy",
}

// TestEnv holds the isolated directories of one test.
type TestEnv struct {
	Root   string
	Cache  string
	Vendor string
	Temp   string
}

// SetupTestEnv creates isolated cache, vendor and temp directories for a
// test and points the VIPSFETCH_* variables at them. Cleanup is handled by
// t.TempDir and t.Setenv.
func SetupTestEnv(t *testing.T) TestEnv {
	t.Helper()

	tmpDir := t.TempDir()
	env := TestEnv{
		Root:   tmpDir,
		Cache:  filepath.Join(tmpDir, "cache"),
		Vendor: filepath.Join(tmpDir, "vendor"),
		Temp:   filepath.Join(tmpDir, "tmp"),
	}

	for _, key := range overrideEnv {
		t.Setenv(key, "")
	}
	t.Setenv("VIPSFETCH_CACHE_DIR", env.Cache)
	t.Setenv("VIPSFETCH_VENDOR_DIR", env.Vendor)

	for _, dir := range []string{env.Cache, env.Vendor, env.Temp} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	return env
}
