// Package cmd implements the command-line interface of rsnDB. Every
// command works on one store file: it is loaded before the command runs
// and saved afterwards if the command changed anything.
//
// The package is organized into several subpackages:
//
//   - table: Commands for tables and rows (create, insert, read, update, etc.)
//   - graph: Commands for edges between rows (link, unlink, walk, edges)
//   - kv: Commands for the key-value map (put, get, drop, keys)
//   - store: Commands for the store file, checkpoints and JSONL/SQLite exchange
//   - exec: Runs a script of JSON requests through the dispatcher
//   - bench: Local throughput and latency measurements
//   - util: Shared utilities for configuration, sessions and output (internal use)
//
// Configuration is read from flags, RSNDB_* environment variables (.env
// files included) and an optional --config file, in that order.
//
// See rsndb -help for a list of all commands.
package cmd
