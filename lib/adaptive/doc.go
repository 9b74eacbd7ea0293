// Package adaptive defines thread-safe containers that can switch at runtime
// between two concurrency strategies.
//
// Modes:
//
//   - SLOW: every operation takes a single lock and works on one shared
//     structure. Writes are cheap. Iterators are fail-fast: a structural change
//     that is not made through the iterator makes its next step fail with
//     ErrConcurrentModification. Iterators support Remove.
//
//   - FAST: the container holds an immutable snapshot. Reads load the current
//     snapshot without locking. Writers are serialized, build a modified copy
//     of the snapshot and publish it atomically, so readers always see either
//     the complete old or the complete new state. Iterators walk the snapshot
//     they were created on and never fail. Iterator Remove is not supported.
//
// SLOW is the default. The mode is chosen with Options.Mode and can be changed
// at any time with SetFast. A switch carries the full content over, but an
// operation that is blocked on a lock while the switch happens still runs in
// the mode it started in, and its write can be lost.
//
// Key Components:
//
//   - Container, List, Map and SortedMap: the public interfaces. The
//     implementations live in the kinds subpackages (list, hashmap,
//     sortedmap).
//
//   - Options: mode, name, optional statistics and an optional
//     VictoriaMetrics set to register the container metrics in.
//
//   - Error: every failure is an *Error carrying a RetCode. Use errors.Is with
//     the Err* sentinels to check for a specific code.
//
//   - Info: kind, name, mode, size, the published snapshot version and, when
//     enabled, usage statistics.
//
// Logging goes through the dragonboat logger registry under LoggerName and can
// be configured with InitLoggers.
package adaptive
