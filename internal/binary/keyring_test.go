package binary

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"       //nolint:staticcheck // Using ProtonMail's maintained fork
	"github.com/ProtonMail/go-crypto/openpgp/armor" //nolint:staticcheck // Using ProtonMail's maintained fork
)

// signingFixture writes an armored public keyring, an archive and its
// armored detached signature into dir.
type signingFixture struct {
	keyringPath   string
	archivePath   string
	signaturePath string
}

func newSigningFixture(t *testing.T, dir string, content []byte) signingFixture {
	t.Helper()

	entity, err := openpgp.NewEntity("vipsfetch test", "", "test@example.com", nil)
	if err != nil {
		t.Fatalf("failed to create key: %v", err)
	}

	var pub bytes.Buffer
	w, err := armor.Encode(&pub, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatalf("failed to armor key: %v", err)
	}
	if err := entity.Serialize(w); err != nil {
		t.Fatalf("failed to serialize key: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close armor: %v", err)
	}

	var sig bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&sig, entity, bytes.NewReader(content), nil); err != nil {
		t.Fatalf("failed to sign: %v", err)
	}

	f := signingFixture{
		keyringPath:   filepath.Join(dir, "vips.asc"),
		archivePath:   filepath.Join(dir, "libvips-8.15.0-linux-x64.tar.br"),
		signaturePath: filepath.Join(dir, "libvips-8.15.0-linux-x64.tar.br"+SignatureExt),
	}
	for path, data := range map[string][]byte{
		f.keyringPath:   pub.Bytes(),
		f.archivePath:   content,
		f.signaturePath: sig.Bytes(),
	} {
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
	return f
}

func TestVerifySignature(t *testing.T) {
	dir := t.TempDir()
	f := newSigningFixture(t, dir, []byte("archive bytes"))

	tampered := filepath.Join(dir, "tampered.tar.br")
	if err := os.WriteFile(tampered, []byte("archive bytes!"), 0644); err != nil {
		t.Fatal(err)
	}
	emptyKeyring := filepath.Join(dir, "empty.asc")
	if err := os.WriteFile(emptyKeyring, nil, 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name          string
		keyringPath   string
		archivePath   string
		signaturePath string
		wantErr       bool
	}{
		{"valid_signature", f.keyringPath, f.archivePath, f.signaturePath, false},
		{"tampered_archive", f.keyringPath, tampered, f.signaturePath, true},
		{"missing_signature", f.keyringPath, f.archivePath, filepath.Join(dir, "nonexistent.asc"), true},
		{"missing_keyring", filepath.Join(dir, "nonexistent-keyring.asc"), f.archivePath, f.signaturePath, true},
		{"empty_keyring", emptyKeyring, f.archivePath, f.signaturePath, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(tt.keyringPath, tt.archivePath, tt.signaturePath)
			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
