package binary

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/zeebo/blake3"
)

// Supported digest algorithms.
const (
	AlgSHA256 = "sha256"
	AlgSHA512 = "sha512"
	AlgBLAKE3 = "blake3"
)

// Digest is an algorithm-tagged hash such as "sha512-<base64>".
type Digest struct {
	Algorithm string
	Sum       []byte
}

// ParseDigest parses "{alg}-{base64}". Hex encoded sums are accepted as
// well. An empty string yields the zero Digest.
func ParseDigest(s string) (Digest, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Digest{}, nil
	}

	alg, encoded, ok := strings.Cut(s, "-")
	if !ok {
		return Digest{}, fmt.Errorf("invalid digest %q: missing algorithm prefix", s)
	}
	alg = strings.ToLower(alg)

	size, err := digestSize(alg)
	if err != nil {
		return Digest{}, err
	}

	sum, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(sum) != size {
		if hexSum, hexErr := hex.DecodeString(encoded); hexErr == nil && len(hexSum) == size {
			return Digest{Algorithm: alg, Sum: hexSum}, nil
		}
		return Digest{}, fmt.Errorf("invalid %s digest %q", alg, s)
	}

	return Digest{Algorithm: alg, Sum: sum}, nil
}

// IsZero reports whether no digest is recorded.
func (d Digest) IsZero() bool {
	return d.Algorithm == "" && len(d.Sum) == 0
}

// String formats the digest as "{alg}-{base64}".
func (d Digest) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Algorithm + "-" + base64.StdEncoding.EncodeToString(d.Sum)
}

func digestSize(alg string) (int, error) {
	switch alg {
	case AlgSHA256:
		return sha256.Size, nil
	case AlgSHA512:
		return sha512.Size, nil
	case AlgBLAKE3:
		return 32, nil
	default:
		return 0, fmt.Errorf("unsupported digest algorithm %q", alg)
	}
}

func newHash(alg string) hash.Hash {
	switch alg {
	case AlgSHA256:
		return sha256.New()
	case AlgBLAKE3:
		return blake3.New()
	default:
		return sha512.New()
	}
}

// VerifyingReader passes bytes through unchanged while hashing them. At
// end of stream it compares the computed digest with the expected one.
//
// On mismatch the cleanup function runs once and Read returns an
// *IntegrityError in place of io.EOF; every later Read returns the same
// error. With a zero expected digest nothing is compared.
type VerifyingReader struct {
	r        io.Reader
	h        hash.Hash
	alg      string
	expected Digest
	platform string
	cleanup  func()

	err  error
	done bool
}

// NewVerifyingReader wraps r. platform names the archive in error
// messages; cleanup may be nil.
func NewVerifyingReader(r io.Reader, expected Digest, platform string, cleanup func()) *VerifyingReader {
	alg := expected.Algorithm
	if alg == "" {
		alg = AlgSHA512
	}
	return &VerifyingReader{
		r:        r,
		h:        newHash(alg),
		alg:      alg,
		expected: expected,
		platform: platform,
		cleanup:  cleanup,
	}
}

// Read implements io.Reader.
func (v *VerifyingReader) Read(p []byte) (int, error) {
	if v.err != nil {
		return 0, v.err
	}

	n, err := v.r.Read(p)
	if n > 0 {
		v.h.Write(p[:n])
	}
	if err != io.EOF {
		return n, err
	}

	v.done = true
	if !v.Skipped() && !bytes.Equal(v.h.Sum(nil), v.expected.Sum) {
		v.err = &IntegrityError{
			Platform: v.platform,
			Expected: v.expected.String(),
			Received: v.Sum().String(),
		}
		if v.cleanup != nil {
			v.cleanup()
		}
		return n, v.err
	}

	v.err = io.EOF
	return n, io.EOF
}

// Skipped reports whether no comparison is made.
func (v *VerifyingReader) Skipped() bool {
	return v.expected.IsZero()
}

// Verified reports whether the stream was fully read and matched.
func (v *VerifyingReader) Verified() bool {
	return v.done && !v.Skipped() && v.err == io.EOF
}

// Sum returns the digest of the bytes read so far.
func (v *VerifyingReader) Sum() Digest {
	return Digest{Algorithm: v.alg, Sum: v.h.Sum(nil)}
}

// ComputeDigest hashes everything read from r with the given algorithm.
func ComputeDigest(r io.Reader, alg string) (Digest, error) {
	if _, err := digestSize(alg); err != nil {
		return Digest{}, err
	}
	h := newHash(alg)
	if _, err := io.Copy(h, r); err != nil {
		return Digest{}, err
	}
	return Digest{Algorithm: alg, Sum: h.Sum(nil)}, nil
}

// IntegrityErr returns the mismatch error once the stream has ended, or nil.
func (v *VerifyingReader) IntegrityErr() *IntegrityError {
	ie, _ := v.err.(*IntegrityError)
	return ie
}
