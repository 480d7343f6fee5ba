package binary

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/config"
)

// Manager acquires, verifies and unpacks library archives
type Manager struct {
	library        string
	version        string
	vendorDir      string
	distBaseURL    string
	localPrebuilds string
	keyringPath    string
	cache          *Cache
	downloader     *Downloader
	extractor      *Extractor
	logger         config.Logger
}

// Config holds configuration for the archive manager
type Config struct {
	Library string
	Version string
	// VendorDir is the vendor root; installs land in {VendorDir}/{version}/{tag}
	VendorDir      string
	CacheDir       string
	DistBaseURL    string
	LocalPrebuilds string
	// KeyringPath enables detached signature checks when set
	KeyringPath string
	Downloader  *Downloader
	Logger      config.Logger
}

// InstallOptions selects what to install
type InstallOptions struct {
	Platform    string
	Expected    Digest
	SkipHeaders bool
}

// InstallResult contains information about a completed install
type InstallResult struct {
	Platform    string
	Version     string
	Path        string
	ArchivePath string
	Source      Source
	Digest      Digest
	Verified    VerificationMethod
	Files       int
	Skipped     int
	Duration    time.Duration
}

// NewManager creates a new archive manager
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Library == "" {
		return nil, fmt.Errorf("Library is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("Version is required")
	}
	if cfg.VendorDir == "" {
		return nil, fmt.Errorf("VendorDir is required")
	}
	if cfg.CacheDir == "" {
		return nil, fmt.Errorf("CacheDir is required")
	}

	downloader := cfg.Downloader
	if downloader == nil {
		var err error
		if downloader, err = NewDownloader(DownloaderOptions{}); err != nil {
			return nil, err
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = config.NopLogger()
	}

	return &Manager{
		library:        cfg.Library,
		version:        cfg.Version,
		vendorDir:      cfg.VendorDir,
		distBaseURL:    cfg.DistBaseURL,
		localPrebuilds: cfg.LocalPrebuilds,
		keyringPath:    cfg.KeyringPath,
		cache:          NewCache(cfg.CacheDir, cfg.Library),
		downloader:     downloader,
		extractor:      NewExtractor(),
		logger:         logger,
	}, nil
}

// Cache returns the artifact cache
func (m *Manager) Cache() *Cache {
	return m.cache
}

// VendorPath returns the install directory for a platform tag
func (m *Manager) VendorPath(platform string) string {
	return VendorPath(m.vendorDir, m.version, platform)
}

// IsInstalled checks if the vendor directory for a platform tag exists
func (m *Manager) IsInstalled(platform string) (bool, error) {
	info, err := os.Stat(m.VendorPath(platform))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat vendor dir: %w", err)
	}
	return info.IsDir(), nil
}

// ArchiveURL returns the remote location of the archive for a platform tag
func (m *Manager) ArchiveURL(platform string) string {
	return ArchiveURL(m.distBaseURL, m.library, m.version, platform)
}

// Acquire locates the archive for a platform tag: the cache first, then
// the local prebuilds directory, then the dist host (downloaded into the
// cache).
func (m *Manager) Acquire(ctx context.Context, platform string) (string, Source, error) {
	cachePath := m.cache.Path(platform, m.version)
	if m.cache.Exists(cachePath) {
		m.logger.Info("using cached archive", "path", cachePath)
		return cachePath, SourceCache, nil
	}

	if m.localPrebuilds != "" {
		localPath := LocalPrebuildPath(m.localPrebuilds, m.library, m.version, platform)
		if fileExists(localPath) {
			m.logger.Info("using local prebuilt archive", "path", localPath)
			return localPath, SourceLocal, nil
		}
		m.logger.Debug("no local prebuilt archive", "path", localPath)
	}

	if err := m.cache.Ensure(); err != nil {
		return "", "", err
	}
	url := m.ArchiveURL(platform)
	m.logger.Info("downloading archive", "url", url)
	err := m.downloader.Download(ctx, Request{
		URL:      url,
		Dest:     cachePath,
		Library:  m.library,
		Version:  m.version,
		Platform: platform,
	})
	if err != nil {
		return "", "", err
	}
	return cachePath, SourceRemote, nil
}

// Install acquires, verifies and extracts the archive for a platform tag
func (m *Manager) Install(ctx context.Context, opts InstallOptions) (*InstallResult, error) {
	start := time.Now()

	archivePath, source, err := m.Acquire(ctx, opts.Platform)
	if err != nil {
		return nil, fmt.Errorf("acquire archive: %w", err)
	}

	signed := false
	if m.keyringPath != "" {
		if err := m.verifySignature(ctx, archivePath, source, opts.Platform); err != nil {
			return nil, err
		}
		signed = true
	}

	dest := m.VendorPath(opts.Platform)
	extracted, err := m.extractor.Extract(ctx, ExtractOptions{
		ArchivePath: archivePath,
		DestDir:     dest,
		Platform:    opts.Platform,
		Expected:    opts.Expected,
		SkipHeaders: opts.SkipHeaders,
	})
	if err != nil {
		var integrityErr *IntegrityError
		if errors.As(err, &integrityErr) && source != SourceLocal {
			if rmErr := m.cache.Remove(archivePath); rmErr != nil {
				m.logger.Warn("failed to remove cache entry", "path", archivePath, "error", rmErr)
			}
		}
		return nil, fmt.Errorf("extract %s: %w", archivePath, err)
	}

	verified := extracted.Verified
	if signed {
		verified = VerificationSignature
	}

	return &InstallResult{
		Platform:    opts.Platform,
		Version:     m.version,
		Path:        dest,
		ArchivePath: archivePath,
		Source:      source,
		Digest:      extracted.Digest,
		Verified:    verified,
		Files:       extracted.Files,
		Skipped:     extracted.Skipped,
		Duration:    time.Since(start),
	}, nil
}

// verifySignature checks {archive}.asc, fetching it next to a cached or
// downloaded archive when missing. A configured keyring makes the
// signature mandatory.
func (m *Manager) verifySignature(ctx context.Context, archivePath string, source Source, platform string) error {
	sigPath := archivePath + SignatureExt
	if source != SourceLocal && !fileExists(sigPath) {
		err := m.downloader.Download(ctx, Request{
			URL:      m.ArchiveURL(platform) + SignatureExt,
			Dest:     sigPath,
			Library:  m.library,
			Version:  m.version,
			Platform: platform,
		})
		if err != nil {
			return fmt.Errorf("download signature: %w", err)
		}
	}

	if err := VerifySignature(m.keyringPath, archivePath, sigPath); err != nil {
		return fmt.Errorf("signature check for %s: %w", archivePath, err)
	}
	m.logger.Info("signature verified", "archive", archivePath)
	return nil
}
