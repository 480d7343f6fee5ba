// Package config resolves the installer's settings.
//
// # Sources
//
// Settings come from four layers, later layers winning:
//
//  1. built-in defaults
//  2. the release manifest (embedded manifest.yaml, or one given on the
//     command line)
//  3. an optional Lua config file
//  4. VIPSFETCH_* environment variables
//
// Load reads the environment once, from an Env snapshot, and returns an
// immutable Options value. Nothing else in the module touches os.Getenv
// for installer settings.
//
// # Lua Config
//
// The config file runs in a gopher-lua VM with os, io, require, load and
// debug removed. It receives the read-only `platform` table from the
// platform package and must assign a `vipsfetch` table:
//
//	vipsfetch = {
//	  version = "8.15.0",
//	  ignore_global = platform.is_windows,
//	  libc = platform.when(platform.is_musl, "musl"),
//	  cache_dir = "/var/cache/vipsfetch",
//	}
//
// Unknown keys and values of the wrong type are rejected with a ParseError.
//
// # Manifest
//
// The manifest names the library version, the default dist URL template
// and one record per platform tag:
//
//	artifacts:
//	  linux-x64:
//	    integrity: sha512-...
//	    prebuilt: true
//
// Records only apply to the manifest's own version.
//
// # Logging
//
// Logger is the structured logging interface used across the installer.
// NewZapLogger adapts a zap SugaredLogger; NopLogger discards everything.
package config
