package config

import (
	"os"
	"strings"
)

// Environment variables read by Load.
const (
	EnvIgnoreGlobal    = "VIPSFETCH_IGNORE_GLOBAL"
	EnvForceGlobal     = "VIPSFETCH_FORCE_GLOBAL"
	EnvInstallForce    = "VIPSFETCH_INSTALL_FORCE"
	EnvBuildFromSource = "VIPSFETCH_BUILD_FROM_SOURCE"
	EnvPlatform        = "VIPSFETCH_PLATFORM"
	EnvArch            = "VIPSFETCH_ARCH"
	EnvLibc            = "VIPSFETCH_LIBC"
	EnvARMVersion      = "VIPSFETCH_ARM_VERSION"
	EnvProxy           = "VIPSFETCH_PROXY"
	EnvDistBaseURL     = "VIPSFETCH_DIST_BASE_URL"
	EnvBinaryHost      = "VIPSFETCH_BINARY_HOST"
	EnvLocalPrebuilds  = "VIPSFETCH_LOCAL_PREBUILDS"
	EnvCacheDir        = "VIPSFETCH_CACHE_DIR"
	EnvVendorDir       = "VIPSFETCH_VENDOR_DIR"
	EnvVersion         = "VIPSFETCH_VERSION"
	EnvRuntimeRange    = "VIPSFETCH_RUNTIME_RANGE"
	EnvKeyring         = "VIPSFETCH_KEYRING"
	EnvConfig          = "VIPSFETCH_CONFIG"
)

// proxyEnv lists the conventional proxy variables consulted, in order,
// when EnvProxy is not set.
var proxyEnv = []string{"HTTPS_PROXY", "https_proxy", "HTTP_PROXY", "http_proxy", "ALL_PROXY", "all_proxy"}

// Env is an immutable snapshot of environment variables.
type Env map[string]string

// EnvFromOS snapshots the process environment.
func EnvFromOS() Env {
	env := Env{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// Get returns the trimmed value of key, or "".
func (e Env) Get(key string) string {
	return strings.TrimSpace(e[key])
}

// Bool returns the boolean value of key and whether it was set at all.
func (e Env) Bool(key string) (value bool, set bool) {
	raw, ok := e[key]
	if !ok || strings.TrimSpace(raw) == "" {
		return false, false
	}
	return parseBool(raw), true
}

// parseBool accepts 1/true/yes/on in any case; everything else is false.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// proxy returns the explicit proxy override or the first conventional
// proxy variable set.
func (e Env) proxy() string {
	if p := e.Get(EnvProxy); p != "" {
		return p
	}
	for _, key := range proxyEnv {
		if p := e.Get(key); p != "" {
			return p
		}
	}
	return ""
}

// noProxy returns the NO_PROXY list.
func (e Env) noProxy() string {
	if v := e.Get("NO_PROXY"); v != "" {
		return v
	}
	return e.Get("no_proxy")
}
