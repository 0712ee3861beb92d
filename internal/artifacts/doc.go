// Package artifacts enumerates built package files beneath an output
// directory.
package artifacts
