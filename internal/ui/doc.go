// Package ui echoes command lifecycle events for people watching a run.
//
// ConsoleCommandEventLogger mirrors rattler-build invocations to the logger at
// human-readable levels, so publish runs show builds and uploads as they
// happen while detailed telemetry stays on the structured log stream.
package ui
