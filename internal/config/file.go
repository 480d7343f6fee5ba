package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ZebulonRouseFrantzich/vipsfetch/internal/platform"
	lua "github.com/yuin/gopher-lua"
)

// luaGlobal is the table a config file must define.
const luaGlobal = "vipsfetch"

// Layer is one source of settings. Empty strings and nil booleans mean
// "not set by this layer".
type Layer struct {
	Version         string
	RuntimeRange    string
	IgnoreGlobal    *bool
	ForceGlobal     *bool
	InstallForce    *bool
	BuildFromSource *bool
	Platform        string
	Arch            string
	Libc            string
	ARMVersion      string
	Proxy           string
	DistBaseURL     string
	BinaryHost      string
	LocalPrebuilds  string
	CacheDir        string
	VendorDir       string
	Keyring         string
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// luaStringFields maps Lua keys to Layer string fields.
func luaStringFields(l *Layer) map[string]*string {
	return map[string]*string{
		"version":         &l.Version,
		"runtime":         &l.RuntimeRange,
		"platform":        &l.Platform,
		"arch":            &l.Arch,
		"libc":            &l.Libc,
		"arm_version":     &l.ARMVersion,
		"proxy":           &l.Proxy,
		"dist_base_url":   &l.DistBaseURL,
		"binary_host":     &l.BinaryHost,
		"local_prebuilds": &l.LocalPrebuilds,
		"cache_dir":       &l.CacheDir,
		"vendor_dir":      &l.VendorDir,
		"keyring":         &l.Keyring,
	}
}

// luaBoolFields maps Lua keys to Layer boolean fields.
func luaBoolFields(l *Layer) map[string]**bool {
	return map[string]**bool{
		"ignore_global":     &l.IgnoreGlobal,
		"force_global":      &l.ForceGlobal,
		"install_force":     &l.InstallForce,
		"build_from_source": &l.BuildFromSource,
	}
}

// ParseFile evaluates a Lua config file in the sandbox.
func ParseFile(path string, info *platform.Info, target platform.Target) (*Layer, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return ParseString(string(code), info, target)
}

// ParseString evaluates Lua config code in the sandbox. The code sees a
// read-only `platform` table and must assign a `vipsfetch` table.
func ParseString(code string, info *platform.Info, target platform.Target) (*Layer, error) {
	L := newSandboxedVM()
	defer L.Close()

	if err := platform.InjectPlatformTable(L, info, target); err != nil {
		return nil, fmt.Errorf("inject platform table: %w", err)
	}

	if err := L.DoString(code); err != nil {
		return nil, &ParseError{
			Message: "Lua error",
			Detail:  err.Error(),
		}
	}

	return extractLayer(L)
}

// extractLayer reads the vipsfetch table from a Lua state.
func extractLayer(L *lua.LState) (*Layer, error) {
	value := L.GetGlobal(luaGlobal)
	table, ok := value.(*lua.LTable)
	if !ok {
		return nil, &ParseError{
			Message: fmt.Sprintf("missing or invalid '%s' table", luaGlobal),
			Detail:  fmt.Sprintf("expected table, got %s", value.Type()),
		}
	}

	layer := &Layer{}
	strs := luaStringFields(layer)
	bools := luaBoolFields(layer)

	var unknown []string
	var problems []string
	table.ForEach(func(k, v lua.LValue) {
		key := k.String()
		if v == lua.LNil {
			return
		}
		if dst, ok := strs[key]; ok {
			switch v.Type() {
			case lua.LTString, lua.LTNumber:
				*dst = strings.TrimSpace(v.String())
			default:
				problems = append(problems, fmt.Sprintf("%s: expected string, got %s", key, v.Type()))
			}
			return
		}
		if dst, ok := bools[key]; ok {
			if v.Type() != lua.LTBool {
				problems = append(problems, fmt.Sprintf("%s: expected boolean, got %s", key, v.Type()))
				return
			}
			b := lua.LVAsBool(v)
			*dst = &b
			return
		}
		unknown = append(unknown, key)
	})

	if len(unknown) > 0 {
		sort.Strings(unknown)
		problems = append(problems, "unknown keys: "+strings.Join(unknown, ", "))
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, &ParseError{
			Message: "invalid config",
			Detail:  strings.Join(problems, "; "),
		}
	}

	return layer, nil
}

// envLayer reads the environment snapshot into a Layer.
func envLayer(env Env) *Layer {
	layer := &Layer{
		Version:        env.Get(EnvVersion),
		RuntimeRange:   env.Get(EnvRuntimeRange),
		Platform:       env.Get(EnvPlatform),
		Arch:           env.Get(EnvArch),
		Libc:           env.Get(EnvLibc),
		ARMVersion:     env.Get(EnvARMVersion),
		Proxy:          env.proxy(),
		DistBaseURL:    env.Get(EnvDistBaseURL),
		BinaryHost:     env.Get(EnvBinaryHost),
		LocalPrebuilds: env.Get(EnvLocalPrebuilds),
		CacheDir:       env.Get(EnvCacheDir),
		VendorDir:      env.Get(EnvVendorDir),
		Keyring:        env.Get(EnvKeyring),
	}
	for key, dst := range map[string]**bool{
		EnvIgnoreGlobal:    &layer.IgnoreGlobal,
		EnvForceGlobal:     &layer.ForceGlobal,
		EnvInstallForce:    &layer.InstallForce,
		EnvBuildFromSource: &layer.BuildFromSource,
	} {
		if v, set := env.Bool(key); set {
			*dst = &v
		}
	}
	return layer
}
