package binary

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// ExtractOptions describes one archive to unpack.
type ExtractOptions struct {
	// ArchivePath is the compressed tarball; its suffix picks the codec.
	ArchivePath string
	// DestDir is the vendor directory for one version and platform tag.
	DestDir string
	// Platform is the tag reported in integrity errors.
	Platform string
	// Expected is the recorded digest. The zero Digest skips comparison.
	Expected Digest
	// SkipHeaders drops entries below an include/ directory.
	SkipHeaders bool
}

// Extractor handles archive extraction
type Extractor struct{}

// NewExtractor creates a new extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract streams an archive through the integrity check, the decompressor
// and the tar reader into DestDir. On any error DestDir is removed, so a
// vendor directory only survives a complete, verified extraction.
func (e *Extractor) Extract(ctx context.Context, opts ExtractOptions) (*ExtractResult, error) {
	start := time.Now()

	archiveFile, err := os.Open(opts.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	// Already existing is fine
	if err := os.MkdirAll(opts.DestDir, 0755); err != nil {
		return nil, fmt.Errorf("create vendor dir: %w", err)
	}

	removeDest := func() { _ = os.RemoveAll(opts.DestDir) }
	verifier := NewVerifyingReader(archiveFile, opts.Expected, opts.Platform, removeDest)

	result := &ExtractResult{DestDir: opts.DestDir}
	if err := e.unpack(ctx, verifier, opts, result); err != nil {
		removeDest()
		return nil, e.classify(opts.ArchivePath, verifier, err)
	}

	result.Digest = verifier.Sum()
	if verifier.Verified() {
		result.Verified = VerificationDigest
	}
	result.Duration = time.Since(start)
	return result, nil
}

// unpack runs decompression and tar extraction, then drains the rest of
// the stream so the verifier sees every byte.
func (e *Extractor) unpack(ctx context.Context, src *VerifyingReader, opts ExtractOptions, result *ExtractResult) error {
	dec, err := openDecompressor(opts.ArchivePath, src)
	if err != nil {
		return err
	}
	defer dec.Close()

	destDir := filepath.Clean(opts.DestDir)
	tarReader := tar.NewReader(dec)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return fmt.Errorf("%w: %s", ErrUnsafePath, header.Name)
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		if opts.SkipHeaders && isHeaderPath(header.Name) {
			result.Skipped++
			continue
		}

		if err := writeEntry(destDir, header, tarReader); err != nil {
			return err
		}
		if header.Typeflag != tar.TypeDir {
			result.Files++
		}
	}

	if _, err := io.Copy(io.Discard, dec); err != nil {
		return fmt.Errorf("drain decompressor: %w", err)
	}
	if _, err := io.Copy(io.Discard, src); err != nil {
		return fmt.Errorf("drain archive: %w", err)
	}
	return nil
}

// classify maps a pipeline failure to the error reported to the caller. A
// digest mismatch wins over whatever the decompressor made of bad bytes.
func (e *Extractor) classify(archivePath string, verifier *VerifyingReader, err error) error {
	if ie := verifier.IntegrityErr(); ie != nil {
		return ie
	}
	if !verifier.Skipped() {
		_, _ = io.Copy(io.Discard, verifier)
		if ie := verifier.IntegrityErr(); ie != nil {
			return ie
		}
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return &CorruptArchiveError{Path: archivePath, Err: err}
	}
	return err
}

// writeEntry materialises one tar entry below destDir.
func writeEntry(destDir string, header *tar.Header, r io.Reader) error {
	target, err := safeJoin(destDir, header.Name)
	if err != nil {
		return err
	}

	switch header.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(target, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", target, err)
		}

	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("create parent dir for %s: %w", target, err)
		}

		outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode).Perm()|0200)
		if err != nil {
			return fmt.Errorf("create file %s: %w", target, err)
		}
		if _, err := io.Copy(outFile, r); err != nil {
			outFile.Close()
			return fmt.Errorf("write file %s: %w", target, err)
		}
		if err := outFile.Close(); err != nil {
			return fmt.Errorf("close file %s: %w", target, err)
		}

	case tar.TypeSymlink:
		linkTarget := header.Linkname
		if filepath.IsAbs(linkTarget) {
			return fmt.Errorf("%w: %s -> %s", ErrUnsafePath, header.Name, linkTarget)
		}
		if _, err := safeJoin(destDir, filepath.Join(filepath.Dir(header.Name), linkTarget)); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("create parent dir for %s: %w", target, err)
		}
		_ = os.Remove(target)
		if err := os.Symlink(linkTarget, target); err != nil {
			return fmt.Errorf("create symlink %s: %w", target, err)
		}

	case tar.TypeLink:
		source, err := safeJoin(destDir, header.Linkname)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("create parent dir for %s: %w", target, err)
		}
		_ = os.Remove(target)
		if err := os.Link(source, target); err != nil {
			return fmt.Errorf("create hard link %s: %w", target, err)
		}

	default:
		// Skip other types (char devices, block devices, etc.)
	}

	return nil
}

// safeJoin resolves name below destDir and rejects anything escaping it.
func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, name)
	if target != destDir && !strings.HasPrefix(target, destDir+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

// isHeaderPath reports whether an entry lives below an include/ directory.
func isHeaderPath(name string) bool {
	return strings.Contains("/"+filepath.ToSlash(name), "/include/")
}

// openDecompressor picks a codec from the archive suffix.
func openDecompressor(name string, r io.Reader) (io.ReadCloser, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.br"), strings.HasSuffix(lower, ".tbr"):
		return io.NopCloser(brotli.NewReader(r)), nil

	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		return gz, nil

	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create zstd reader: %w", err)
		}
		return zr.IOReadCloser(), nil

	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create xz reader: %w", err)
		}
		return io.NopCloser(xr), nil

	case strings.HasSuffix(lower, ".tar"):
		return io.NopCloser(r), nil

	default:
		return nil, fmt.Errorf("unsupported archive format: %s", filepath.Base(name))
	}
}
