// Package binary acquires, verifies and unpacks prebuilt libvips archives.
//
// # Pipeline
//
// An archive is located by Manager.Acquire, in order:
//
//  1. the artifact cache ({cache}/_libvips/libvips-{version}-{tag}.tar.br)
//  2. a local prebuilds directory ({dir}/v{version}/...)
//  3. the dist host, downloaded into the cache
//
// Extraction is one streaming chain: file → VerifyingReader → decompressor
// → tar. The verifier hashes every byte and compares the digest at end of
// stream; a mismatch removes the partially written vendor directory and
// surfaces an *IntegrityError. Nothing is buffered in memory.
//
// # Verification
//
// Digests are algorithm-tagged ("sha512-<base64>", "sha256-...",
// "blake3-..."). A zero Digest skips the comparison; callers log that the
// archive was accepted unverified. When a keyring is configured a detached
// OpenPGP signature ({archive}.asc) is also required.
//
// # Errors
//
//   - *NotAvailableError: the dist host answered 404
//   - *StatusError: any other non-200 answer
//   - ErrIncompleteDownload: connection failure or short body
//   - *IntegrityError: digest mismatch
//   - ErrCorruptArchive: the decompressor ran out of data
//   - ErrUnsafePath: an entry would land outside the vendor directory
//
// There are no retries. Temporary files are removed before an error is
// returned.
package binary
