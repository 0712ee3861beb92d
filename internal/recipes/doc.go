// Package recipes discovers versioned recipe directories and parses the
// package metadata from their manifests.
package recipes
