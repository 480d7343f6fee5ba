package probe

import (
	"context"
	"testing"

	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/config"
	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/version"
)

// fakeProbe is a VersionProbe that never spawns processes.
type fakeProbe struct {
	version string
	calls   int
}

func (f *fakeProbe) Query(ctx context.Context) (string, bool) {
	f.calls++
	return f.version, f.version != ""
}

func testOptions(ignore, force bool) config.Options {
	return config.Options{
		Version:      version.MustCoerce("8.15.0"),
		IgnoreGlobal: ignore,
		ForceGlobal:  force,
	}
}

func TestProber_Decide(t *testing.T) {
	tests := []struct {
		name       string
		ignore     bool
		force      bool
		translated bool
		found      string
		want       bool
		wantQuery  bool
	}{
		{name: "ignore_beats_newer_global", ignore: true, found: "8.16.0", want: false},
		{name: "ignore_beats_force", ignore: true, force: true, found: "8.16.0", want: false},
		{name: "force_without_global", force: true, want: true},
		{name: "force_beats_translation", force: true, translated: true, want: true},
		{name: "translation_layer", translated: true, found: "8.16.0", want: false},
		{name: "not_installed", found: "", want: false, wantQuery: true},
		{name: "older", found: "8.14.5", want: false, wantQuery: true},
		{name: "equal", found: "8.15.0", want: true, wantQuery: true},
		{name: "newer_minor", found: "8.16.1", want: true, wantQuery: true},
		{name: "semantic_not_lexical", found: "8.9.0", want: false, wantQuery: true},
		{name: "two_part_version", found: "8.15", want: true, wantQuery: true},
		{name: "garbage_output", found: "Package vips-cpp was not found", want: false, wantQuery: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeProbe{version: tt.found}
			p := NewProber(testOptions(tt.ignore, tt.force), fake, nil)
			p.translated = func() bool { return tt.translated }

			d := p.Decide(context.Background())
			if d.UseGlobal != tt.want {
				t.Errorf("UseGlobal = %v, want %v (%s)", d.UseGlobal, tt.want, d.Reason)
			}
			if d.Reason == "" {
				t.Error("Reason should be set")
			}
			if queried := fake.calls > 0; queried != tt.wantQuery {
				t.Errorf("queried = %v, want %v", queried, tt.wantQuery)
			}
			if p.UseGlobal(context.Background()) != tt.want {
				t.Error("UseGlobal() disagrees with Decide()")
			}
		})
	}
}

func TestProber_NilProbe(t *testing.T) {
	p := NewProber(testOptions(false, false), nil, config.NopLogger())
	p.translated = func() bool { return false }
	if p.UseGlobal(context.Background()) {
		t.Error("UseGlobal() = true without a probe")
	}
}

func TestUnderTranslation(t *testing.T) {
	// Only true for amd64 binaries on Apple silicon; must not panic anywhere.
	_ = underTranslation()
}
