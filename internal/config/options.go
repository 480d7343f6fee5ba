package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/platform"
	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/version"
	"github.com/blang/semver"
)

const (
	// CacheSuffix is the fixed last element of the archive cache directory.
	CacheSuffix = "_libvips"
	// DefaultVendorDir is the vendor root used when none is configured.
	// It is not "vendor" so that it never collides with Go module vendoring.
	DefaultVendorDir = "third_party/libvips"
)

// Options is the installer configuration, resolved once at start and
// passed by value afterwards. Nothing reads the environment after Load.
type Options struct {
	Library      string
	Version      semver.Version
	RuntimeRange string
	// RuntimeVersion is the toolchain version checked against RuntimeRange.
	RuntimeVersion string

	IgnoreGlobal    bool
	ForceGlobal     bool
	ForceInstall    bool
	BuildFromSource bool

	Overrides platform.Overrides

	Proxy          string
	NoProxy        string
	DistBaseURL    string
	LocalPrebuilds string
	CacheDir       string
	VendorDir      string
	KeyringPath    string

	Manifest *Manifest
}

// LoadInput carries everything Load reads from.
type LoadInput struct {
	// Env is the environment snapshot; it wins over every other layer.
	Env Env
	// ConfigFile is an optional Lua config file.
	ConfigFile string
	// Manifest replaces the embedded release manifest when non-nil.
	Manifest *Manifest
	// Info is host detection, exposed to the Lua config.
	Info *platform.Info
	// RuntimeVersion defaults to runtime.Version().
	RuntimeVersion string
}

// Load resolves Options from defaults, the release manifest, an optional
// Lua config file and the environment, in increasing precedence.
func Load(in LoadInput) (Options, error) {
	manifest := in.Manifest
	if manifest == nil {
		var err error
		if manifest, err = DefaultManifest(); err != nil {
			return Options{}, err
		}
	}
	env := in.Env
	if env == nil {
		env = Env{}
	}

	envSettings := envLayer(env)
	layers := []*Layer{}

	if in.ConfigFile != "" {
		// The config sees the target as resolved from env overrides and
		// detection only; it cannot observe its own overrides.
		target := platform.Resolve(envSettings.overrides(), in.Info)
		fileSettings, err := ParseFile(in.ConfigFile, in.Info, target)
		if err != nil {
			return Options{}, fmt.Errorf("load config %s: %w", in.ConfigFile, err)
		}
		layers = append(layers, fileSettings)
	}
	layers = append(layers, envSettings)

	merged := &Layer{}
	for _, l := range layers {
		merged.apply(l)
	}

	rawVersion := manifest.Version
	if merged.Version != "" {
		rawVersion = merged.Version
	}
	v, err := version.Coerce(rawVersion)
	if err != nil {
		return Options{}, fmt.Errorf("invalid %s version: %w", manifest.Library, err)
	}

	opts := Options{
		Library:         manifest.Library,
		Version:         v,
		RuntimeRange:    firstSet(merged.RuntimeRange, manifest.Runtime),
		RuntimeVersion:  firstSet(in.RuntimeVersion, runtime.Version()),
		IgnoreGlobal:    isTrue(merged.IgnoreGlobal),
		ForceGlobal:     isTrue(merged.ForceGlobal),
		ForceInstall:    isTrue(merged.InstallForce),
		BuildFromSource: isTrue(merged.BuildFromSource),
		Overrides:       merged.overrides(),
		Proxy:           merged.Proxy,
		NoProxy:         env.noProxy(),
		LocalPrebuilds:  merged.LocalPrebuilds,
		VendorDir:       firstSet(merged.VendorDir, DefaultVendorDir),
		KeyringPath:     merged.Keyring,
		Manifest:        manifest,
	}

	opts.DistBaseURL = distBaseURL(merged, manifest, v.String())
	opts.CacheDir = cacheDir(merged.CacheDir)

	return opts, nil
}

// VersionString returns the required library version, e.g. "8.15.0".
func (o Options) VersionString() string {
	return o.Version.String()
}

// Target resolves the installation target for a detected host.
func (o Options) Target(info *platform.Info) platform.Target {
	return platform.Resolve(o.Overrides, info)
}

// apply copies every setting present in other over l.
func (l *Layer) apply(other *Layer) {
	strs, otherStrs := luaStringFields(l), luaStringFields(other)
	for key, src := range otherStrs {
		if *src != "" {
			*strs[key] = *src
		}
	}
	bools, otherBools := luaBoolFields(l), luaBoolFields(other)
	for key, src := range otherBools {
		if *src != nil {
			*bools[key] = *src
		}
	}
}

func (l *Layer) overrides() platform.Overrides {
	return platform.Overrides{
		Platform:   l.Platform,
		Arch:       l.Arch,
		Libc:       l.Libc,
		ARMVersion: l.ARMVersion,
	}
}

// distBaseURL picks the archive base URL: explicit URL, then binary host
// with a version path, then the manifest default. The result ends in "/".
func distBaseURL(l *Layer, m *Manifest, v string) string {
	var base string
	switch {
	case l.DistBaseURL != "":
		base = l.DistBaseURL
	case l.BinaryHost != "":
		base = fmt.Sprintf("%s/v%s/", strings.TrimRight(l.BinaryHost, "/"), v)
	default:
		base = m.DistURL(v)
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

// cacheDir returns the archive cache directory for a configured root.
func cacheDir(root string) string {
	if root == "" {
		if userCache, err := os.UserCacheDir(); err == nil {
			root = filepath.Join(userCache, "vipsfetch")
		} else {
			root = filepath.Join(os.TempDir(), "vipsfetch")
		}
	}
	return filepath.Join(root, CacheSuffix)
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
