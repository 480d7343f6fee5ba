package binary

import (
	"errors"
	"fmt"
	"time"
)

// Source records where an archive came from.
type Source string

const (
	// SourceCache is an archive already present in the artifact cache.
	SourceCache Source = "cache"
	// SourceLocal is an archive read from a local prebuilds directory.
	SourceLocal Source = "local"
	// SourceRemote is an archive downloaded from the dist host.
	SourceRemote Source = "remote"
)

// String returns the string representation of the source
func (s Source) String() string {
	return string(s)
}

// VerificationMethod indicates how an archive was verified
type VerificationMethod int

const (
	// VerificationNone indicates verification was skipped
	VerificationNone VerificationMethod = iota
	// VerificationDigest indicates the recorded integrity digest matched
	VerificationDigest
	// VerificationSignature indicates a detached OpenPGP signature was
	// checked, in addition to the digest when one is recorded
	VerificationSignature
)

// String returns the string representation of the verification method
func (v VerificationMethod) String() string {
	switch v {
	case VerificationDigest:
		return "digest"
	case VerificationSignature:
		return "signature"
	case VerificationNone:
		return "none"
	default:
		return "unknown"
	}
}

// ExtractResult contains information about a completed extraction
type ExtractResult struct {
	DestDir  string
	Files    int
	Skipped  int
	Digest   Digest
	Verified VerificationMethod
	Duration time.Duration
}

var (
	// ErrCorruptArchive is returned when decompression hits an unexpected end of data.
	ErrCorruptArchive = errors.New("corrupt archive")
	// ErrIncompleteDownload is returned when the response body ends early or the connection drops.
	ErrIncompleteDownload = errors.New("incomplete download")
	// ErrUnsafePath is returned for archive entries that would land outside the destination.
	ErrUnsafePath = errors.New("archive entry escapes destination")
)

// NotAvailableError reports that the dist host has no archive for a platform.
type NotAvailableError struct {
	Library  string
	Version  string
	Platform string
}

func (e *NotAvailableError) Error() string {
	return fmt.Sprintf("no prebuilt %s %s binaries are available for %s", e.Library, e.Version, e.Platform)
}

// StatusError is a non-200, non-404 HTTP response.
type StatusError struct {
	URL    string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d %s fetching %s", e.Code, e.Status, e.URL)
}

// IntegrityError is a digest mismatch.
type IntegrityError struct {
	Platform string
	Expected string
	Received string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed for %s: expected %s, received %s", e.Platform, e.Expected, e.Received)
}

// CorruptArchiveError wraps ErrCorruptArchive with the archive path.
type CorruptArchiveError struct {
	Path string
	Err  error
}

func (e *CorruptArchiveError) Error() string {
	return fmt.Sprintf("%s is not a valid archive, delete it and retry: %v", e.Path, e.Err)
}

func (e *CorruptArchiveError) Unwrap() []error {
	return []error{ErrCorruptArchive, e.Err}
}
