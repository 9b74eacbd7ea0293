// Package hashmap implements an adaptive unordered map backed by a Go map.
// A FAST write clones the map, iteration order is unspecified and any
// comparable key is accepted.
package hashmap
