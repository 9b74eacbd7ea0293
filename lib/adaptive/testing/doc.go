// Package testing provides standardised tests and benchmarks for container
// implementations that satisfy the adaptive.List, adaptive.Map and
// adaptive.SortedMap interfaces.
//
// The package contains:
//   - testing: Conformance suites that run every contract check in SLOW and in FAST mode
//   - benchmark: Parallel benchmarks for read heavy, write heavy and mixed workloads
//
// Every suite receives a factory that builds an empty container from a set of
// options. The suites set the mode and the name through the options, so a
// factory only has to forward them.
//
// Example usage:
//
//	factory := func(opts *adaptive.Options) adaptive.List[string] {
//		return list.New[string](opts)
//	}
//
//	// Running the standard test suite
//	testing.RunListTests(t, "list", factory)
//
//	// Running performance benchmarks
//	testing.RunListBenchmarks(b, "list", factory)
package testing
