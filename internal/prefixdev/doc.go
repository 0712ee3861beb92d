// Package prefixdev integrates with the prefix.dev channel API to read the
// repodata index of a platform subdirectory and to delete individual channel
// artifacts using bearer-token authorization.
package prefixdev
