package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/binary"
	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/config"
	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/platform"
	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/testutil"
	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/transaction"
)

var (
	fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	glibcHost = &platform.Info{OS: "linux", Arch: "amd64", Libc: platform.LibcGlibc, LibcVersion: "2.35"}
)

func muslHost(libcVersion string) *platform.Info {
	return &platform.Info{OS: "linux", Arch: "amd64", Libc: platform.LibcMusl, LibcVersion: libcVersion}
}

type fakeProber bool

func (f fakeProber) UseGlobal(ctx context.Context) bool {
	return bool(f)
}

// testManifest builds a release manifest. integrity is recorded for
// linux-x64 when non-empty.
func testManifest(t *testing.T, integrity string) *config.Manifest {
	t.Helper()

	var linux strings.Builder
	linux.WriteString("  linux-x64:\n    prebuilt: true\n")
	if integrity != "" {
		fmt.Fprintf(&linux, "    integrity: %s\n", integrity)
	}

	data := "library: libvips\n" +
		"version: 8.15.0\n" +
		"dist_base_url: http://127.0.0.1:1/v{version}/\n" +
		"runtime: \">=1.21.0\"\n" +
		"artifacts:\n" +
		linux.String() +
		"  linuxmusl-x64:\n    prebuilt: true\n"

	m, err := config.ParseManifest([]byte(data))
	if err != nil {
		t.Fatalf("ParseManifest() error = %v", err)
	}
	return m
}

// fixture is an isolated install environment with a dist server.
type fixture struct {
	env      testutil.TestEnv
	vars     config.Env
	server   *httptest.Server
	requests atomic.Int32
}

func newFixture(t *testing.T, handler http.HandlerFunc) *fixture {
	t.Helper()

	f := &fixture{env: testutil.SetupTestEnv(t)}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		handler(w, r)
	}))
	t.Cleanup(f.server.Close)

	f.vars = config.EnvFromOS()
	f.vars[config.EnvDistBaseURL] = f.server.URL + "/"
	return f
}

func (f *fixture) installer(t *testing.T, info *platform.Info, manifest *config.Manifest, prober GlobalProber) *Installer {
	t.Helper()

	opts, err := config.Load(config.LoadInput{
		Env:            f.vars,
		Manifest:       manifest,
		Info:           info,
		RuntimeVersion: "go1.22.0",
	})
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}

	downloader, err := binary.NewDownloader(binary.DownloaderOptions{TempDir: f.env.Temp})
	if err != nil {
		t.Fatalf("NewDownloader() error = %v", err)
	}

	inst, err := New(opts, info, Deps{
		Prober:     prober,
		Downloader: downloader,
		Clock:      TestClock{FixedTime: fixedTime},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return inst
}

func serveArchive(archive []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}
}

func noNetwork(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request for %s", r.URL.Path)
		http.Error(w, "unexpected", http.StatusTeapot)
	}
}

func TestRun_CacheHit(t *testing.T) {
	f := newFixture(t, noNetwork(t))
	inst := f.installer(t, glibcHost, testManifest(t, ""), fakeProber(false))

	cachePath := inst.manager.Cache().Path("linux-x64", "8.15.0")
	testutil.WriteArchive(t, cachePath, testutil.LibraryFiles())

	outcome, err := inst.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if outcome.Action != ActionInstalled {
		t.Errorf("Action = %s, want %s", outcome.Action, ActionInstalled)
	}
	if outcome.Result.Source != binary.SourceCache {
		t.Errorf("Source = %s, want cache", outcome.Result.Source)
	}
	if got := f.requests.Load(); got != 0 {
		t.Errorf("made %d requests, want none", got)
	}

	wantPath := filepath.Join(f.env.Vendor, "8.15.0", "linux-x64")
	if outcome.Path != wantPath {
		t.Errorf("Path = %s, want %s", outcome.Path, wantPath)
	}
	if _, err := os.Stat(filepath.Join(wantPath, "lib", "libvips-cpp.so.42")); err != nil {
		t.Errorf("library not extracted: %v", err)
	}
	// linux-x64 has a prebuilt binding, so headers are not unpacked
	if _, err := os.Stat(filepath.Join(wantPath, "include", "vips", "vips.h")); !os.IsNotExist(err) {
		t.Errorf("headers should be skipped, stat error = %v", err)
	}

	receipt, err := transaction.Load(wantPath)
	if err != nil {
		t.Fatalf("receipt not written: %v", err)
	}
	if receipt.Source != "cache" || receipt.Platform != "linux-x64" || receipt.LibraryVersion != "8.15.0" {
		t.Errorf("unexpected receipt: %+v", receipt)
	}
	if receipt.Verification != "none" || !receipt.HeadersSkipped {
		t.Errorf("unexpected receipt: %+v", receipt)
	}
	if !receipt.Timestamp.Equal(fixedTime) {
		t.Errorf("receipt timestamp = %v, want %v", receipt.Timestamp, fixedTime)
	}

	if _, err := os.Stat(filepath.Join(f.env.Vendor, transaction.LockName("libvips", "8.15.0", "linux-x64"))); !os.IsNotExist(err) {
		t.Error("install lock should be released")
	}
}

func TestRun_Download(t *testing.T) {
	archive := testutil.Archive(t, "libvips.tar.br", testutil.LibraryFiles())
	digest, err := binary.ComputeDigest(bytes.NewReader(archive), binary.AlgSHA512)
	if err != nil {
		t.Fatalf("ComputeDigest() error = %v", err)
	}

	paths := make(chan string, 1)
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case paths <- r.URL.Path:
		default:
		}
		w.Write(archive)
	})
	inst := f.installer(t, glibcHost, testManifest(t, digest.String()), fakeProber(false))

	outcome, err := inst.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if gotPath := <-paths; gotPath != "/libvips-8.15.0-linux-x64.tar.br" {
		t.Errorf("requested %s", gotPath)
	}
	if outcome.Result.Source != binary.SourceRemote {
		t.Errorf("Source = %s, want remote", outcome.Result.Source)
	}
	if outcome.Result.Verified != binary.VerificationDigest {
		t.Errorf("Verified = %s, want digest", outcome.Result.Verified)
	}
	if !inst.manager.Cache().Exists(inst.manager.Cache().Path("linux-x64", "8.15.0")) {
		t.Error("downloaded archive should be cached")
	}
	if outcome.Receipt == nil || outcome.Receipt.Digest != digest.String() {
		t.Errorf("receipt digest = %+v, want %s", outcome.Receipt, digest)
	}

	// A second run finds the vendor directory and does nothing
	again, err := inst.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if again.Action != ActionVendored {
		t.Errorf("second Action = %s, want %s", again.Action, ActionVendored)
	}
	if got := f.requests.Load(); got != 1 {
		t.Errorf("made %d requests, want 1", got)
	}
}

func TestRun_NotAvailable(t *testing.T) {
	f := newFixture(t, http.NotFound)
	inst := f.installer(t, glibcHost, testManifest(t, ""), fakeProber(false))

	_, err := inst.Run(context.Background())

	var notAvailable *binary.NotAvailableError
	if !errors.As(err, &notAvailable) {
		t.Fatalf("expected NotAvailableError, got %v", err)
	}
	if !strings.Contains(err.Error(), "8.15.0") || !strings.Contains(err.Error(), "linux-x64") {
		t.Errorf("error should name version and platform: %v", err)
	}
	if _, statErr := os.Stat(inst.VendorPath()); !os.IsNotExist(statErr) {
		t.Error("vendor directory should not exist")
	}
	if len(Hints(err)) == 0 {
		t.Error("expected remediation hints")
	}
}

func TestRun_Global(t *testing.T) {
	f := newFixture(t, noNetwork(t))
	inst := f.installer(t, glibcHost, testManifest(t, ""), fakeProber(true))

	outcome, err := inst.Run(context.Background())
	if !errors.Is(err, ErrUseGlobal) {
		t.Fatalf("expected ErrUseGlobal, got %v", err)
	}
	if outcome.Action != ActionGlobal || outcome.Path != "" {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
}

func TestRun_AlreadyVendored(t *testing.T) {
	f := newFixture(t, noNetwork(t))
	// Compatibility is not checked for an existing install
	inst := f.installer(t, muslHost("1.1.0"), testManifest(t, ""), fakeProber(false))

	if err := os.MkdirAll(inst.VendorPath(), 0755); err != nil {
		t.Fatal(err)
	}

	outcome, err := inst.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if outcome.Action != ActionVendored {
		t.Errorf("Action = %s, want %s", outcome.Action, ActionVendored)
	}
}

func TestRun_MuslBelowMinimum(t *testing.T) {
	archive := testutil.Archive(t, "libvips.tar.br", testutil.LibraryFiles())

	t.Run("fatal without force", func(t *testing.T) {
		f := newFixture(t, serveArchive(archive))
		inst := f.installer(t, muslHost("1.1.20"), testManifest(t, ""), fakeProber(false))

		_, err := inst.Run(context.Background())

		var compat *CompatibilityError
		if !errors.As(err, &compat) {
			t.Fatalf("expected CompatibilityError, got %v", err)
		}
		if compat.Component != "musl" || compat.Required != "1.1.24" || compat.Platform != "linuxmusl-x64" {
			t.Errorf("unexpected error: %+v", compat)
		}
		if got := f.requests.Load(); got != 0 {
			t.Errorf("made %d requests, want none", got)
		}
	})

	t.Run("warning with force", func(t *testing.T) {
		f := newFixture(t, serveArchive(archive))
		f.vars[config.EnvInstallForce] = "1"
		inst := f.installer(t, muslHost("1.1.20"), testManifest(t, ""), fakeProber(false))

		outcome, err := inst.Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if outcome.Action != ActionInstalled || outcome.Platform != "linuxmusl-x64" {
			t.Errorf("unexpected outcome: %+v", outcome)
		}
		if got := f.requests.Load(); got != 1 {
			t.Errorf("made %d requests, want 1", got)
		}
	})
}

func TestRun_Unsupported(t *testing.T) {
	f := newFixture(t, noNetwork(t))
	f.vars[config.EnvPlatform] = "freebsd"
	inst := f.installer(t, glibcHost, testManifest(t, ""), fakeProber(false))

	_, err := inst.Run(context.Background())

	var unsupported *UnsupportedError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedError, got %v", err)
	}
	if unsupported.Platform != "freebsd-x64" || !strings.Contains(unsupported.Remedy, "8.15.0") {
		t.Errorf("unexpected error: %+v", unsupported)
	}
}

func TestRun_RuntimeOutOfRange(t *testing.T) {
	f := newFixture(t, noNetwork(t))
	f.vars[config.EnvRuntimeRange] = ">=9.0.0"
	inst := f.installer(t, glibcHost, testManifest(t, ""), fakeProber(false))

	_, err := inst.Run(context.Background())

	var compat *CompatibilityError
	if !errors.As(err, &compat) || compat.Component != "go" {
		t.Fatalf("expected go CompatibilityError, got %v", err)
	}
}

func TestRun_IntegrityMismatch(t *testing.T) {
	f := newFixture(t, noNetwork(t))
	wrong, err := binary.ComputeDigest(strings.NewReader("something else"), binary.AlgSHA512)
	if err != nil {
		t.Fatal(err)
	}
	inst := f.installer(t, glibcHost, testManifest(t, wrong.String()), fakeProber(false))

	cachePath := inst.manager.Cache().Path("linux-x64", "8.15.0")
	testutil.WriteArchive(t, cachePath, testutil.LibraryFiles())

	_, err = inst.Run(context.Background())

	var integrity *binary.IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("expected IntegrityError, got %v", err)
	}
	if _, statErr := os.Stat(cachePath); !os.IsNotExist(statErr) {
		t.Error("mismatching cache entry should be removed")
	}
	if _, statErr := os.Stat(inst.VendorPath()); !os.IsNotExist(statErr) {
		t.Error("partial vendor directory should be removed")
	}
}

func TestRun_ForceSkipsIntegrityCheck(t *testing.T) {
	f := newFixture(t, noNetwork(t))
	f.vars[config.EnvInstallForce] = "1"
	wrong, err := binary.ComputeDigest(strings.NewReader("something else"), binary.AlgSHA512)
	if err != nil {
		t.Fatal(err)
	}
	inst := f.installer(t, glibcHost, testManifest(t, wrong.String()), fakeProber(false))

	cachePath := inst.manager.Cache().Path("linux-x64", "8.15.0")
	testutil.WriteArchive(t, cachePath, testutil.LibraryFiles())

	outcome, err := inst.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if outcome.Result.Verified != binary.VerificationNone {
		t.Errorf("Verified = %s, want none", outcome.Result.Verified)
	}
	if _, err := os.Stat(cachePath); err != nil {
		t.Errorf("cache entry should be kept: %v", err)
	}

	receipt, err := transaction.Load(outcome.Path)
	if err != nil {
		t.Fatalf("receipt not written: %v", err)
	}
	if receipt.Verification != "none" {
		t.Errorf("receipt verification = %q, want none", receipt.Verification)
	}
}

func TestRun_BuildFromSourceKeepsHeaders(t *testing.T) {
	f := newFixture(t, noNetwork(t))
	f.vars[config.EnvBuildFromSource] = "true"
	inst := f.installer(t, glibcHost, testManifest(t, ""), fakeProber(false))

	testutil.WriteArchive(t, inst.manager.Cache().Path("linux-x64", "8.15.0"), testutil.LibraryFiles())

	outcome, err := inst.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(outcome.Path, "include", "vips", "vips.h")); err != nil {
		t.Errorf("headers should be kept: %v", err)
	}
}

func TestRun_LockHeld(t *testing.T) {
	f := newFixture(t, noNetwork(t))
	inst := f.installer(t, glibcHost, testManifest(t, ""), fakeProber(false))

	lock, err := transaction.AcquireLock(context.Background(), f.env.Vendor, transaction.LockName("libvips", "8.15.0", "linux-x64"))
	if err != nil {
		t.Fatal(err)
	}
	defer lock.Release()

	_, err = inst.Run(context.Background())
	if !errors.Is(err, transaction.ErrLockExists) {
		t.Fatalf("expected ErrLockExists, got %v", err)
	}
}

func TestNew_RequiresProber(t *testing.T) {
	if _, err := New(config.Options{}, glibcHost, Deps{}); err == nil {
		t.Error("expected error without a prober")
	}
}
