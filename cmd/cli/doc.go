// Package cli assembles the signing-tests command tree. The root command
// loads layered configuration and builds the shared zap logger; the publish,
// delete, and status subcommands act on the configured prefix.dev channel
// through rattler-build and the channel API.
package cli
