// Command vipsfetch makes libvips available to a build, either by finding a
// suitable global install or by vendoring a prebuilt archive.
package main

import (
	"os"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0"

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
