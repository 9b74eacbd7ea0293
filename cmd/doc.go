// Package cmd implements the command-line interface for the adaptive
// containers. It provides a hierarchical command structure with tools that
// exercise the containers under concurrent load.
//
// The package is organized into several subpackages:
//
//   - perf: Throughput and latency benchmarks for every kind in both modes
//   - stress: Concurrent checks of the container guarantees, exits non-zero on a violation
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set through an environment variable with the prefix
// ADAPTIVE_ (e.g. ADAPTIVE_THREADS=16). Variables are also read from .env and
// .env.local in the working directory.
//
// See adaptive -help for a list of all commands.
package cmd
