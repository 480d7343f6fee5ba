package binary

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultArchiveExt is the compression suffix published by the dist host.
const DefaultArchiveExt = ".tar.br"

// ArchiveName returns the archive file name for a library release on a
// platform tag.
// Pattern: {library}-{version}-{tag}.tar.br
func ArchiveName(library, version, tag string) string {
	return fmt.Sprintf("%s-%s-%s%s", library, version, tag, DefaultArchiveExt)
}

// ArchiveURL joins a dist base URL and an archive name. The base is
// expected to end in "/"; one is added when missing.
func ArchiveURL(baseURL, library, version, tag string) string {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return baseURL + ArchiveName(library, version, tag)
}

// LocalPrebuildPath returns where an archive is looked up inside a local
// prebuilds directory.
// Pattern: {dir}/v{version}/{library}-{version}-{tag}.tar.br
func LocalPrebuildPath(dir, library, version, tag string) string {
	return filepath.Join(dir, "v"+version, ArchiveName(library, version, tag))
}

// VendorPath returns the installation directory for a version and tag.
// Pattern: {root}/{version}/{tag}
func VendorPath(root, version, tag string) string {
	return filepath.Join(root, version, tag)
}
