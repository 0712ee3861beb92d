// Package rattler provides a typed client for the rattler-build command line
// tool, covering the build and upload subcommands this project depends on.
package rattler
