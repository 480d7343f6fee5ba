package testutil_test

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/testutil"
)

func TestSetupTestEnv(t *testing.T) {
	t.Setenv("VIPSFETCH_FORCE_GLOBAL", "1")

	env := testutil.SetupTestEnv(t)

	if got := os.Getenv("VIPSFETCH_CACHE_DIR"); got != env.Cache {
		t.Errorf("VIPSFETCH_CACHE_DIR = %q, want %q", got, env.Cache)
	}
	if got := os.Getenv("VIPSFETCH_VENDOR_DIR"); got != env.Vendor {
		t.Errorf("VIPSFETCH_VENDOR_DIR = %q, want %q", got, env.Vendor)
	}
	if got := os.Getenv("VIPSFETCH_FORCE_GLOBAL"); got != "" {
		t.Errorf("VIPSFETCH_FORCE_GLOBAL = %q, want cleared", got)
	}

	for _, dir := range []string{env.Cache, env.Vendor, env.Temp} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Errorf("directory %s does not exist", dir)
		}
		if !strings.HasPrefix(dir, env.Root) {
			t.Errorf("path %s is not under %s", dir, env.Root)
		}
	}
}

func TestSetupTestEnv_Isolation(t *testing.T) {
	env1 := testutil.SetupTestEnv(t)

	t.Run("subtest", func(t *testing.T) {
		env2 := testutil.SetupTestEnv(t)
		if env1.Root == env2.Root {
			t.Error("expected different temp directories for different test contexts")
		}
	})
}

func TestWriteArchive_Uncompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.tar")
	data := testutil.WriteArchive(t, path, testutil.LibraryFiles())

	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(onDisk, data) {
		t.Error("written archive differs from returned bytes")
	}

	var names []string
	tr := tar.NewReader(bytes.NewReader(data))
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read tar: %v", err)
		}
		names = append(names, header.Name)
	}
	if len(names) != len(testutil.LibraryFiles()) {
		t.Errorf("entries = %v", names)
	}
}
