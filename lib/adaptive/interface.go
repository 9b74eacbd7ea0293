package adaptive

import "iter"

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// Mode selects the concurrency strategy of a container.
type Mode uint8

const (
	ModeSlow Mode = iota // every operation runs under one exclusive lock
	ModeFast             // copy-on-write with lock-free reads
)

func (m Mode) String() string {
	switch m {
	case ModeSlow:
		return "slow"
	case ModeFast:
		return "fast"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name ("fast" or "slow") to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "fast", "FAST":
		return ModeFast, nil
	case "slow", "SLOW":
		return ModeSlow, nil
	default:
		return ModeSlow, NewError(RetCIllegalArgument, "unknown mode "+s)
	}
}

// Entry is a single key/value binding of a map container.
type Entry[K, V any] struct {
	Key   K `json:"key"`
	Value V `json:"value"`
}

// Stats holds the counters collected by a container when Options.CollectStats is set.
type Stats struct {
	FastReads          int64 `json:"fast_reads"`
	SlowReads          int64 `json:"slow_reads"`
	Writes             int64 `json:"writes"`
	Publications       int64 `json:"publications"`
	DiscardedClones    int64 `json:"discarded_clones"`
	ClonedElements     int64 `json:"cloned_elements"`
	ModeSwitches       int64 `json:"mode_switches"`
	AvgSnapshotSize    int   `json:"avg_snapshot_size"`
	MedianSnapshotSize int   `json:"median_snapshot_size"`
}

// Info describes the current state of a container.
type Info struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	Mode Mode   `json:"mode"`
	Size int    `json:"size"`
	// Version of the last published snapshot, 0 if none was published yet.
	// SLOW writes do not publish, so in SLOW mode it keeps the value of the
	// last FAST phase.
	Version uint64 `json:"version"`
	Stats   *Stats `json:"stats,omitempty"`
}

// --------------------------------------------------------------------------
// Container Interfaces
// --------------------------------------------------------------------------

// Container is the part of the API shared by every adaptive container.
type Container interface {
	// Size returns the number of elements.
	Size() int

	// IsEmpty reports whether the container holds no elements.
	IsEmpty() bool

	// Clear removes all elements.
	Clear()

	// IsFast reports whether the container runs in FAST (copy-on-write) mode.
	IsFast() bool

	// SetFast switches between FAST and SLOW mode. Switching to the active
	// mode is a no-op.
	//
	// The switch is not coordinated with writers that already decided on a
	// path: a SLOW writer blocked on the full lock while the container moves
	// to FAST applies its change to the retired shared structure and the
	// change is lost. Callers must make sure no writes are in flight while
	// switching.
	//
	// The structure of the previous mode stays referenced until the next
	// switch, so a container holds up to two copies of its content after a
	// switch. Structures of sorted maps share unchanged nodes.
	SetFast(fast bool)

	// Info returns the kind, mode, size and statistics of the container.
	Info() Info
}

// Iterator walks over the elements of a container.
//
// In FAST mode an iterator reads the snapshot that was current when it was
// created. It never fails because of later writes and Remove is not supported.
// In SLOW mode an iterator is fail-fast: any structural change not made
// through the iterator itself makes the next call return ErrConcurrentModification.
type Iterator[T any] interface {
	HasNext() bool
	Next() (T, error)
	Remove() error
}

// List is an index addressed sequence that keeps insertion order.
type List[T comparable] interface {
	Container

	// Get returns the element at index.
	Get(index int) (value T, err error)

	// Set replaces the element at index and returns the previous one.
	Set(index int, value T) (prev T, err error)

	// Add appends value to the end of the list.
	Add(value T)

	// Insert inserts value at index, shifting later elements to the right.
	// index may be equal to Size() to append.
	Insert(index int, value T) error

	// AddAll appends all values as one write.
	AddAll(values ...T)

	// InsertAll inserts all values at index as one write.
	InsertAll(index int, values []T) error

	// RemoveAt removes and returns the element at index.
	RemoveAt(index int) (value T, err error)

	// Remove removes the first occurrence of value and reports whether it was found.
	Remove(value T) (removed bool)

	// RemoveIf removes every element matching pred as one write and returns
	// the number of removed elements.
	RemoveIf(pred func(T) bool) (removed int)

	// Contains reports whether value is in the list.
	Contains(value T) bool

	// IndexOf returns the index of the first occurrence of value or -1.
	IndexOf(value T) int

	// ToSlice returns a copy of the elements.
	ToSlice() []T

	// Iterator returns an iterator over the elements in order.
	Iterator() Iterator[T]

	// All returns a range function over a consistent view of the list.
	All() iter.Seq2[int, T]
}

// Map is an unordered key/value container.
type Map[K comparable, V any] interface {
	Container

	// Get returns the value bound to key.
	Get(key K) (value V, loaded bool)

	// ContainsKey reports whether key is bound.
	ContainsKey(key K) bool

	// Put binds key to value and returns the previous value.
	Put(key K, value V) (prev V, loaded bool)

	// PutIfAbsent binds key to value if key is unbound. It returns the value
	// that is bound after the call and whether it was already present.
	PutIfAbsent(key K, value V) (actual V, loaded bool)

	// PutAll binds every entry of entries as one write.
	PutAll(entries map[K]V)

	// Remove unbinds key and returns the removed value.
	Remove(key K) (prev V, loaded bool)

	// Keys returns the bound keys in no particular order.
	Keys() []K

	// Iterator returns an iterator over the entries.
	Iterator() Iterator[Entry[K, V]]

	// All returns a range function over a consistent view of the map.
	All() iter.Seq2[K, V]
}

// SortedMap is a key/value container ordered by a comparator.
//
// Keys that cannot be compared (nil pointers, nil interfaces, ...) are
// rejected by the writing operations with ErrIllegalArgument. Reading
// operations treat them as absent.
type SortedMap[K, V any] interface {
	Container

	Get(key K) (value V, loaded bool)
	ContainsKey(key K) bool
	Put(key K, value V) (prev V, loaded bool, err error)
	PutIfAbsent(key K, value V) (actual V, loaded bool, err error)

	// PutAll binds every entry as one write. No entry is applied if any key is rejected.
	PutAll(entries ...Entry[K, V]) error

	Remove(key K) (prev V, loaded bool)

	// Keys returns the bound keys in ascending order.
	Keys() []K

	// First returns the entry with the smallest key.
	First() (Entry[K, V], error)

	// Last returns the entry with the largest key.
	Last() (Entry[K, V], error)

	// Floor returns the entry with the greatest key less than or equal to key.
	Floor(key K) (Entry[K, V], bool)

	// Ceiling returns the entry with the least key greater than or equal to key.
	Ceiling(key K) (Entry[K, V], bool)

	// Ascend calls fn for every entry with a key >= from in ascending order
	// until fn returns false.
	Ascend(from K, fn func(key K, value V) bool)

	// Range returns a range function over the entries with from <= key < to.
	Range(from, to K) iter.Seq2[K, V]

	Iterator() Iterator[Entry[K, V]]
	All() iter.Seq2[K, V]
}
