package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/config"
	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/installer"
	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/platform"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath   string
	manifestPath string
	verbose      bool
	quiet        bool
}

// app carries the resolved state of one invocation.
type app struct {
	flags  *globalFlags
	env    config.Env
	stdout io.Writer
	stderr io.Writer
	logger config.Logger
	sync   func() error
}

// execute runs the CLI and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{flags: &globalFlags{}, env: config.EnvFromOS(), stdout: stdout, stderr: stderr}
	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if a.sync != nil {
		_ = a.sync()
	}
	if err == nil {
		return 0
	}

	if errors.Is(err, installer.ErrUseGlobal) && a.flags.quiet {
		return 1
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	for _, hint := range installer.Hints(err) {
		fmt.Fprintf(stderr, "  hint: %s\n", hint)
	}
	return 1
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "vipsfetch",
		Short: "Install the libvips native library for this platform",
		Long: `vipsfetch makes libvips available to a build. It uses a global libvips
when pkg-config reports a recent enough version, and otherwise downloads a
verified prebuilt archive and unpacks it into the vendor directory.

Running vipsfetch without a subcommand is the same as "vipsfetch install".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.logger, a.sync = newLogger(a.stderr, a.flags.verbose, a.flags.quiet)
			return nil
		},
		RunE: a.runInstall,
	}

	addGlobalFlags(root.PersistentFlags(), a.flags)
	root.MarkFlagsMutuallyExclusive("verbose", "quiet")

	root.AddCommand(
		newInstallCommand(a),
		newPlatformCommand(a),
		newGlobalCommand(a),
		newPkgConfigPathCommand(a),
		newStatusCommand(a),
		newEnvCommand(a),
		newDigestCommand(a),
		newVersionCommand(a),
	)
	return root
}

func addGlobalFlags(fs *pflag.FlagSet, flags *globalFlags) {
	fs.StringVarP(&flags.configPath, "config", "c", "", "Lua config file (default $"+config.EnvConfig+")")
	fs.StringVar(&flags.manifestPath, "manifest", "", "release manifest replacing the built-in one")
	fs.BoolVarP(&flags.verbose, "verbose", "v", false, "log debug output")
	fs.BoolVarP(&flags.quiet, "quiet", "q", false, "only log errors")
}

// newLogger builds a zap logger on w. Terminals get a colored console
// encoding, anything else gets JSON lines.
func newLogger(w io.Writer, verbose, quiet bool) (config.Logger, func() error) {
	level := zapcore.InfoLevel
	switch {
	case verbose:
		level = zapcore.DebugLevel
	case quiet:
		level = zapcore.ErrorLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if isTerminal(w) {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)
	logger := zap.New(core).Named("vipsfetch")
	return config.NewZapLogger(logger.Sugar()), logger.Sync
}

// isTerminal reports whether w is a terminal file.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// detect gathers host information.
func (a *app) detect(ctx context.Context) (*platform.Info, error) {
	info, err := platform.NewDetector().Detect(ctx)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("detected host",
		"os", info.OS,
		"arch", info.Arch,
		"kernel_arch", info.KernelArch,
		"distro", info.Platform,
		"libc", info.Libc,
		"libc_version", info.LibcVersion)
	return info, nil
}

// loadOptions resolves the configuration for the detected host.
func (a *app) loadOptions(ctx context.Context) (config.Options, *platform.Info, error) {
	info, err := a.detect(ctx)
	if err != nil {
		return config.Options{}, nil, err
	}

	var manifest *config.Manifest
	if a.flags.manifestPath != "" {
		if manifest, err = config.LoadManifest(a.flags.manifestPath); err != nil {
			return config.Options{}, nil, err
		}
	}

	configPath := a.flags.configPath
	if configPath == "" {
		configPath = a.env.Get(config.EnvConfig)
	}

	opts, err := config.Load(config.LoadInput{
		Env:        a.env,
		ConfigFile: configPath,
		Manifest:   manifest,
		Info:       info,
	})
	if err != nil {
		return config.Options{}, nil, err
	}
	return opts, info, nil
}
