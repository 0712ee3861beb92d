// Package credentials resolves API tokens for channel operations.
//
// Tokens come from the process environment, optionally seeded from a
// dotenv-style file. Values already present in the environment always win over
// file contents so that CI-provided secrets are never overridden.
package credentials
