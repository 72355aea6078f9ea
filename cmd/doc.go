// Package cmd implements the ekv command line interface.
//
// Subpackages:
//
//   - kv: run commands on a local database or a server (set, get, scan, shell, perf, ...)
//   - serve: host database connections behind an RPC transport
//   - util: shared flag, environment and connection handling (internal use)
//
// See ekv --help for a list of all commands.
package cmd
