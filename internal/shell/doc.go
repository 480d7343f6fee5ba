// Package shell renders the environment a build needs to find a vendored
// libvips, as statements for bash, zsh or fish.
//
// Users evaluate the output in their shell:
//
//	eval "$(vipsfetch env bash)"
//	vipsfetch env fish | source
//
// The exported variables prepend the vendor directory to the pkg-config
// search path and, where the platform needs it, to the dynamic loader
// search path. Existing values are kept after the vendored entries.
package shell
