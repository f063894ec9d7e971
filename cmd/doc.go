// Package cmd implements the command-line interface of jsondb. It provides a
// hierarchical command structure to inspect and modify a json document file.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for key-value operations (get, set, del, dump, load, perf, etc.)
//   - shell: An interactive shell with history and completion
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See jsondb -help for a list of all commands.
package cmd
