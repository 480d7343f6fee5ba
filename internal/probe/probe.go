// Package probe decides whether a system-wide libvips can be used instead
// of a vendored one.
package probe

import (
	"context"
	"fmt"

	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/config"
	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/version"
)

// VersionProbe reports the version of an installed library, if any.
type VersionProbe interface {
	Query(ctx context.Context) (string, bool)
}

// Decision is the outcome of the global library check.
type Decision struct {
	UseGlobal bool
	// Reason is a short human-readable explanation.
	Reason string
	// Version is the installed version when one was queried and found.
	Version string
}

// Prober applies the global library rules. The first matching rule wins:
// ignore override, force override, translation layer, then the installed
// version compared with the required one.
type Prober struct {
	ignore     bool
	force      bool
	minVersion string
	probe      VersionProbe
	translated func() bool
	logger     config.Logger
}

// NewProber creates a prober for the required version in opts.
func NewProber(opts config.Options, probe VersionProbe, logger config.Logger) *Prober {
	if logger == nil {
		logger = config.NopLogger()
	}
	return &Prober{
		ignore:     opts.IgnoreGlobal,
		force:      opts.ForceGlobal,
		minVersion: opts.VersionString(),
		probe:      probe,
		translated: underTranslation,
		logger:     logger,
	}
}

// Decide evaluates the rules.
func (p *Prober) Decide(ctx context.Context) Decision {
	switch {
	case p.ignore:
		return Decision{Reason: "global libvips ignored by override"}
	case p.force:
		return Decision{UseGlobal: true, Reason: "global libvips forced by override"}
	case p.translated():
		return Decision{Reason: "running under an architecture translation layer"}
	}

	if p.probe == nil {
		return Decision{Reason: "no version probe"}
	}
	found, ok := p.probe.Query(ctx)
	if !ok {
		return Decision{Reason: "no global libvips found"}
	}

	if !version.AtLeast(found, p.minVersion) {
		return Decision{
			Version: found,
			Reason:  fmt.Sprintf("global libvips %s is older than the required %s", found, p.minVersion),
		}
	}
	return Decision{
		UseGlobal: true,
		Version:   found,
		Reason:    fmt.Sprintf("global libvips %s satisfies the required %s", found, p.minVersion),
	}
}

// UseGlobal reports whether the system-wide library should be used.
func (p *Prober) UseGlobal(ctx context.Context) bool {
	d := p.Decide(ctx)
	p.logger.Debug("global libvips check", "use_global", d.UseGlobal, "reason", d.Reason, "found", d.Version)
	return d.UseGlobal
}
