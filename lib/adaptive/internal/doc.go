// Package internal holds the mode switching core shared by all container kinds.
//
// A Core owns the snapshot pointer for FAST mode and the shared structure with
// its modification count for SLOW mode. Container kinds only describe how to
// clone and measure their backing structure (Kind) and express every operation
// as a read function or an edit function that is handed to the core.
package internal
