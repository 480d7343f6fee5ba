package testutil

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// File is one entry of a test archive. Names ending in "/" are
// directories; Link makes a symlink.
type File struct {
	Name string
	Body string
	Mode int64
	Link string
}

// Archive builds a tarball compressed according to the suffix of name
// (.tar.br, .tar.gz, .tar.zst, .tar.xz or .tar).
func Archive(t *testing.T, name string, files []File) []byte {
	t.Helper()

	var buf bytes.Buffer
	w, closeCodec := compressor(t, name, &buf)

	tw := tar.NewWriter(w)
	for _, f := range files {
		header := &tar.Header{Name: f.Name, Mode: f.Mode}
		switch {
		case f.Link != "":
			header.Typeflag = tar.TypeSymlink
			header.Linkname = f.Link
		case strings.HasSuffix(f.Name, "/"):
			header.Typeflag = tar.TypeDir
		default:
			header.Typeflag = tar.TypeReg
			header.Size = int64(len(f.Body))
		}
		if header.Mode == 0 {
			header.Mode = 0644
			if header.Typeflag == tar.TypeDir {
				header.Mode = 0755
			}
		}

		if err := tw.WriteHeader(header); err != nil {
			t.Fatalf("failed to write header for %s: %v", f.Name, err)
		}
		if header.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(f.Body)); err != nil {
				t.Fatalf("failed to write content for %s: %v", f.Name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("failed to close tar writer: %v", err)
	}
	if err := closeCodec(); err != nil {
		t.Fatalf("failed to close compressor: %v", err)
	}

	return buf.Bytes()
}

// WriteArchive builds an archive and writes it to path.
func WriteArchive(t *testing.T, path string, files []File) []byte {
	t.Helper()

	data := Archive(t, path, files)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create archive dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write archive: %v", err)
	}
	return data
}

// LibraryFiles is a small vendor tree with a header, a library and a
// version symlink.
func LibraryFiles() []File {
	return []File{
		{Name: "include/"},
		{Name: "include/vips/vips.h", Body: "#define VIPS_MAJOR_VERSION 8\n"},
		{Name: "lib/"},
		{Name: "lib/libvips-cpp.so.42", Body: "ELF"},
		{Name: "lib/libvips-cpp.so", Link: "libvips-cpp.so.42"},
		{Name: "versions.json", Body: `{"vips":"8.15.0"}`},
	}
}

func compressor(t *testing.T, name string, w io.Writer) (io.Writer, func() error) {
	t.Helper()

	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.br"):
		bw := brotli.NewWriter(w)
		return bw, bw.Close
	case strings.HasSuffix(lower, ".tar.gz"):
		gw := gzip.NewWriter(w)
		return gw, gw.Close
	case strings.HasSuffix(lower, ".tar.zst"):
		zw, err := zstd.NewWriter(w)
		if err != nil {
			t.Fatalf("failed to create zstd writer: %v", err)
		}
		return zw, zw.Close
	case strings.HasSuffix(lower, ".tar.xz"):
		xw, err := xz.NewWriter(w)
		if err != nil {
			t.Fatalf("failed to create xz writer: %v", err)
		}
		return xw, xw.Close
	default:
		return w, func() error { return nil }
	}
}
