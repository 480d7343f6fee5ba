// Package installer makes libvips available to a build. It either defers to
// a suitable system-wide libvips or installs a verified prebuilt archive
// into the vendor directory.
package installer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/binary"
	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/config"
	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/platform"
	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/transaction"
)

// Action is the path Run took.
type Action string

const (
	// ActionGlobal means the global libvips is used and nothing was installed.
	ActionGlobal Action = "global"
	// ActionVendored means the vendor directory already existed.
	ActionVendored Action = "vendored"
	// ActionInstalled means an archive was unpacked into the vendor directory.
	ActionInstalled Action = "installed"
)

// GlobalProber decides whether the system-wide libvips should be used.
type GlobalProber interface {
	UseGlobal(ctx context.Context) bool
}

// Outcome describes a finished run.
type Outcome struct {
	Action   Action
	Platform string
	Version  string
	// Path is the vendor directory, empty for ActionGlobal.
	Path string
	// Result and Receipt are set for ActionInstalled only.
	Result  *binary.InstallResult
	Receipt *transaction.Receipt
}

// Deps are the collaborators of an Installer.
type Deps struct {
	Prober GlobalProber
	// Downloader defaults to one built from the proxy options.
	Downloader *binary.Downloader
	Logger     config.Logger
	Clock      Clock
}

// Installer sequences the global check, the platform guards and the
// archive install for one target.
type Installer struct {
	opts    config.Options
	info    *platform.Info
	target  platform.Target
	prober  GlobalProber
	manager *binary.Manager
	logger  config.Logger
	clock   Clock
}

// New creates an installer for the host described by info.
func New(opts config.Options, info *platform.Info, deps Deps) (*Installer, error) {
	if deps.Prober == nil {
		return nil, fmt.Errorf("global prober is required")
	}
	if info == nil {
		info = &platform.Info{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = config.NopLogger()
	}
	clock := deps.Clock
	if clock == nil {
		clock = RealClock{}
	}

	downloader := deps.Downloader
	if downloader == nil {
		var err error
		downloader, err = binary.NewDownloader(binary.DownloaderOptions{
			Proxy:   opts.Proxy,
			NoProxy: opts.NoProxy,
		})
		if err != nil {
			return nil, err
		}
	}

	manager, err := binary.NewManager(binary.Config{
		Library:        opts.Library,
		Version:        opts.VersionString(),
		VendorDir:      opts.VendorDir,
		CacheDir:       opts.CacheDir,
		DistBaseURL:    opts.DistBaseURL,
		LocalPrebuilds: opts.LocalPrebuilds,
		KeyringPath:    opts.KeyringPath,
		Downloader:     downloader,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create archive manager: %w", err)
	}

	return &Installer{
		opts:    opts,
		info:    info,
		target:  opts.Target(info),
		prober:  deps.Prober,
		manager: manager,
		logger:  logger,
		clock:   clock,
	}, nil
}

// Target returns the resolved installation target.
func (i *Installer) Target() platform.Target {
	return i.target
}

// VendorPath returns the vendor directory of the target.
func (i *Installer) VendorPath() string {
	return i.manager.VendorPath(i.target.Tag())
}

// Run performs the install. It returns ErrUseGlobal, with an ActionGlobal
// outcome, when the global libvips should be linked instead.
func (i *Installer) Run(ctx context.Context) (Outcome, error) {
	tag := i.target.Tag()
	v := i.opts.VersionString()
	outcome := Outcome{Platform: tag, Version: v}

	if i.prober.UseGlobal(ctx) {
		i.logger.Info("detected globally-installed libvips", "required", v)
		outcome.Action = ActionGlobal
		return outcome, ErrUseGlobal
	}

	outcome.Path = i.VendorPath()
	if installed, err := i.manager.IsInstalled(tag); err != nil {
		return outcome, err
	} else if installed {
		i.logger.Info("libvips already vendored", "version", v, "platform", tag, "path", outcome.Path)
		outcome.Action = ActionVendored
		return outcome, nil
	}

	if err := checkSupported(i.target, v); err != nil {
		return outcome, err
	}
	if err := i.checkCompatibility(); err != nil {
		return outcome, err
	}

	lock, err := transaction.AcquireLock(ctx, i.opts.VendorDir, transaction.LockName(i.opts.Library, v, tag))
	if err != nil {
		return outcome, fmt.Errorf("lock vendor directory: %w", err)
	}
	defer func() {
		if relErr := lock.Release(); relErr != nil {
			i.logger.Warn("failed to release install lock", "path", lock.Path(), "error", relErr)
		}
	}()

	// Another process may have finished the same install while we waited.
	if installed, err := i.manager.IsInstalled(tag); err != nil {
		return outcome, err
	} else if installed {
		i.logger.Info("libvips already vendored", "version", v, "platform", tag, "path", outcome.Path)
		outcome.Action = ActionVendored
		return outcome, nil
	}

	installOpts, err := i.installOptions()
	if err != nil {
		return outcome, err
	}

	result, err := i.manager.Install(ctx, installOpts)
	if err != nil {
		return outcome, err
	}
	i.logger.Info("installed libvips",
		"version", v,
		"platform", tag,
		"source", result.Source,
		"verified", result.Verified,
		"files", result.Files,
		"duration", result.Duration)

	outcome.Action = ActionInstalled
	outcome.Result = result
	outcome.Receipt = i.writeReceipt(result)
	return outcome, nil
}

// checkCompatibility runs the libc and toolchain checks. With the force
// override every failure is logged and ignored.
func (i *Installer) checkCompatibility() error {
	var errs []error
	if libcErr := checkLibc(i.info, i.target); libcErr != nil {
		errs = append(errs, libcErr)
	}
	if err := checkRuntime(i.opts.RuntimeVersion, i.opts.RuntimeRange, i.target.Tag()); err != nil {
		var compat *CompatibilityError
		if !errors.As(err, &compat) {
			return err
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}

	if i.opts.ForceInstall {
		for _, err := range errs {
			i.logger.Warn("continuing despite incompatibility", "error", err)
		}
		return nil
	}
	return errors.Join(errs...)
}

// installOptions derives the expected digest and header policy from the
// release manifest. The force override leaves the digest unset.
func (i *Installer) installOptions() (binary.InstallOptions, error) {
	tag := i.target.Tag()
	opts := binary.InstallOptions{
		Platform:    tag,
		SkipHeaders: i.opts.Manifest.HasPrebuilt(tag) && !i.opts.BuildFromSource,
	}

	if !i.opts.ForceInstall {
		if record, ok := i.opts.Manifest.Record(tag, i.opts.VersionString()); ok {
			expected, err := binary.ParseDigest(record.Integrity)
			if err != nil {
				return opts, fmt.Errorf("manifest record for %s: %w", tag, err)
			}
			opts.Expected = expected
		}
	}
	if opts.Expected.IsZero() {
		i.logger.Warn("integrity check skipped; accepting unverified binaries", "platform", tag, "forced", i.opts.ForceInstall)
	}
	return opts, nil
}

// writeReceipt records the install. Failures are logged only.
func (i *Installer) writeReceipt(result *binary.InstallResult) *transaction.Receipt {
	receipt := transaction.NewReceipt(i.opts.Library, result.Version, result.Platform)
	receipt.Timestamp = i.clock.Now().UTC()
	receipt.Source = result.Source.String()
	receipt.Archive = result.ArchivePath
	receipt.Digest = result.Digest.String()
	receipt.Verification = result.Verified.String()
	receipt.HeadersSkipped = result.Skipped > 0
	receipt.Files = result.Files

	if err := receipt.Save(result.Path); err != nil {
		i.logger.Warn("failed to write install receipt", "path", result.Path, "error", err)
		return nil
	}
	return receipt
}
