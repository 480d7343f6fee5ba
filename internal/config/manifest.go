package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed manifest.yaml
var defaultManifest []byte

// Manifest describes one release of the native library: its version,
// where archives are published and the per-platform artifact records.
type Manifest struct {
	Library     string              `yaml:"library"`
	Version     string              `yaml:"version"`
	DistBaseURL string              `yaml:"dist_base_url"`
	Runtime     string              `yaml:"runtime"`
	Artifacts   map[string]Artifact `yaml:"artifacts"`
}

// Artifact is the record for one platform tag.
type Artifact struct {
	// Integrity is an algorithm-tagged digest, e.g. "sha512-<base64>".
	// Empty when no digest has been recorded.
	Integrity string `yaml:"integrity,omitempty"`
	// Prebuilt is true when a prebuilt binding exists for the platform.
	Prebuilt bool `yaml:"prebuilt"`
}

// DefaultManifest returns the manifest compiled into the binary.
func DefaultManifest() (*Manifest, error) {
	return ParseManifest(defaultManifest)
}

// LoadManifest reads a manifest from disk.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes and validates a YAML manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Library == "" {
		return nil, fmt.Errorf("manifest: library is required")
	}
	if m.Version == "" {
		return nil, fmt.Errorf("manifest: version is required")
	}
	if m.Artifacts == nil {
		m.Artifacts = map[string]Artifact{}
	}
	return &m, nil
}

// Record returns the artifact record for (tag, version). Records only exist
// for the manifest's own version; any other version has none.
func (m *Manifest) Record(tag, version string) (Artifact, bool) {
	if m == nil || strings.TrimPrefix(version, "v") != strings.TrimPrefix(m.Version, "v") {
		return Artifact{}, false
	}
	a, ok := m.Artifacts[tag]
	return a, ok
}

// HasPrebuilt reports whether a prebuilt binding exists for tag.
func (m *Manifest) HasPrebuilt(tag string) bool {
	if m == nil {
		return false
	}
	return m.Artifacts[tag].Prebuilt
}

// DistURL expands the {version} placeholder of the default dist base URL.
func (m *Manifest) DistURL(version string) string {
	return strings.ReplaceAll(m.DistBaseURL, "{version}", version)
}
