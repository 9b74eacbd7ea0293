// Package sortedmap implements an adaptive map whose entries are ordered by a
// comparator.
//
// The entries live in a tidwall/btree B-tree. Cloning the tree for a FAST
// write is a constant time Copy: the clone shares all nodes with the
// published snapshot and copies only the nodes on the paths it changes. A
// FAST write therefore costs O(log n) node copies instead of a copy of the
// whole map.
//
// Key Components:
//
//   - SortedMap: created with New for an arbitrary comparator or with
//     NewOrdered for ordered key types. Keys, All, Ascend and the iterators
//     return the entries in ascending key order. Range covers [from, to).
//
//   - Navigation: First, Last, Floor and Ceiling answer on a single view of
//     the map, a snapshot in FAST mode or the shared tree under the lock in
//     SLOW mode.
//
// Key policy:
//
// Keys that cannot be ordered are rejected. Nil pointers, maps, slices,
// channels, functions and interfaces are rejected by every map, NaN is
// rejected by maps created with NewOrdered. Writes with a rejected key fail
// with the IllegalArgument code, lookups with a rejected key find nothing.
package sortedmap
