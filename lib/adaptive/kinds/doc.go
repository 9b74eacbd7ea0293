// Package kinds groups the container implementations.
//
//   - list: an indexed sequence backed by a Go slice
//   - hashmap: an unordered map backed by a Go map
//   - sortedmap: a map ordered by a comparator, backed by a copy-on-write B-tree
//
// All of them are built on the same core and behave identically with respect
// to modes, iterators and errors.
package kinds
