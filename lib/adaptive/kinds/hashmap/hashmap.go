package hashmap

import (
	"iter"
	"maps"

	"github.com/ValentinKolb/adaptive/lib/adaptive"
	"github.com/ValentinKolb/adaptive/lib/adaptive/internal"
)

// kind describes the Go map that backs a Map
type kind[K comparable, V any] struct{}

func (kind[K, V]) Name() string { return "hashmap" }

func (kind[K, V]) Clone(m map[K]V) map[K]V {
	c := make(map[K]V, len(m)+1)
	maps.Copy(c, m)
	return c
}

func (kind[K, V]) Len(m map[K]V) int { return len(m) }

// Map is an adaptive hash map. Keys have no defined order.
type Map[K comparable, V any] struct {
	core     *internal.Core[map[K]V]
	capacity int
}

var _ adaptive.Map[string, int] = (*Map[string, int])(nil)

// New creates an empty map. opts may be nil to use the defaults.
func New[K comparable, V any](opts *adaptive.Options) *Map[K, V] {
	opts = opts.Resolve()
	return &Map[K, V]{
		core:     internal.NewCore[map[K]V](kind[K, V]{}, make(map[K]V, opts.Capacity), opts),
		capacity: opts.Capacity,
	}
}

// NewFrom creates a map holding a copy of src.
func NewFrom[K comparable, V any](src map[K]V, opts *adaptive.Options) *Map[K, V] {
	opts = opts.Resolve()
	initial := make(map[K]V, max(len(src), opts.Capacity))
	maps.Copy(initial, src)
	return &Map[K, V]{
		core:     internal.NewCore[map[K]V](kind[K, V]{}, initial, opts),
		capacity: opts.Capacity,
	}
}

// --------------------------------------------------------------------------
// Query Operations
// --------------------------------------------------------------------------

// Size returns the number of bindings.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *Map[K, V]) Size() int {
	return m.core.Len()
}

// IsEmpty reports whether the map has no bindings.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *Map[K, V]) IsEmpty() bool {
	return m.core.Len() == 0
}

// Get returns the value bound to key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *Map[K, V]) Get(key K) (value V, loaded bool) {
	m.core.Read(func(s map[K]V) {
		value, loaded = s[key]
	})
	return value, loaded
}

// ContainsKey reports whether key is bound.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *Map[K, V]) ContainsKey(key K) bool {
	_, loaded := m.Get(key)
	return loaded
}

// Keys returns the bound keys in no particular order.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *Map[K, V]) Keys() (keys []K) {
	m.core.Read(func(s map[K]V) {
		keys = make([]K, 0, len(s))
		for k := range s {
			keys = append(keys, k)
		}
	})
	return keys
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Put binds key to value and returns the previous value.
// Overwriting an existing key is not a structural change.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *Map[K, V]) Put(key K, value V) (prev V, loaded bool) {
	_ = m.core.Write(func(s map[K]V) (map[K]V, internal.Result, error) {
		prev, loaded = s[key]
		s[key] = value
		if loaded {
			return s, internal.Updated, nil
		}
		return s, internal.Structural, nil
	})
	return prev, loaded
}

// PutIfAbsent binds key to value if key is unbound. It returns the value
// bound after the call and whether key was already bound.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *Map[K, V]) PutIfAbsent(key K, value V) (actual V, loaded bool) {
	_ = m.core.Write(func(s map[K]V) (map[K]V, internal.Result, error) {
		if actual, loaded = s[key]; loaded {
			return s, internal.Unchanged, nil
		}
		actual = value
		s[key] = value
		return s, internal.Structural, nil
	})
	return actual, loaded
}

// PutAll binds every entry of entries with a single write.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *Map[K, V]) PutAll(entries map[K]V) {
	_ = m.core.Write(func(s map[K]V) (map[K]V, internal.Result, error) {
		if len(entries) == 0 {
			return s, internal.Unchanged, nil
		}
		before := len(s)
		maps.Copy(s, entries)
		if len(s) != before {
			return s, internal.Structural, nil
		}
		return s, internal.Updated, nil
	})
}

// Remove unbinds key and returns the removed value.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *Map[K, V]) Remove(key K) (prev V, loaded bool) {
	_ = m.core.Write(func(s map[K]V) (map[K]V, internal.Result, error) {
		if prev, loaded = s[key]; !loaded {
			return s, internal.Unchanged, nil
		}
		delete(s, key)
		return s, internal.Structural, nil
	})
	return prev, loaded
}

// Clear removes all bindings.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *Map[K, V]) Clear() {
	m.core.Reset(func() map[K]V {
		return make(map[K]V, m.capacity)
	})
}

// --------------------------------------------------------------------------
// Mode
// --------------------------------------------------------------------------

func (m *Map[K, V]) IsFast() bool        { return m.core.IsFast() }
func (m *Map[K, V]) SetFast(fast bool)   { m.core.SetFast(fast) }
func (m *Map[K, V]) Info() adaptive.Info { return m.core.Info() }

// --------------------------------------------------------------------------
// Iteration
// --------------------------------------------------------------------------

// Iterator returns an iterator over the entries. The key order is fixed when
// the iterator is created.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
// The returned iterator itself must only be used by one goroutine.
func (m *Map[K, V]) Iterator() adaptive.Iterator[adaptive.Entry[K, V]] {
	var it adaptive.Iterator[adaptive.Entry[K, V]]
	m.core.Open(func(s map[K]V, fast bool, mod uint64) {
		if fast {
			entries := make([]adaptive.Entry[K, V], 0, len(s))
			for k, v := range s {
				entries = append(entries, adaptive.Entry[K, V]{Key: k, Value: v})
			}
			it = internal.NewSliceIterator(entries)
			return
		}

		keys := make([]K, 0, len(s))
		for k := range s {
			keys = append(keys, k)
		}
		it = &failFastIterator[K, V]{core: m.core, mod: mod, keys: keys, last: -1}
	})
	return it
}

// All returns a range function over the bindings. In SLOW mode the map is
// copied under the lock first, so the loop body may modify the map.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		var view map[K]V
		m.core.Open(func(s map[K]V, fast bool, _ uint64) {
			if fast {
				view = s
			} else {
				view = maps.Clone(s)
			}
		})
		for k, v := range view {
			if !yield(k, v) {
				return
			}
		}
	}
}

// failFastIterator walks the keys present when it was created. Any structural
// change not made through the iterator invalidates it, so the key list stays
// accurate for as long as it is usable.
type failFastIterator[K comparable, V any] struct {
	core   *internal.Core[map[K]V]
	mod    uint64
	keys   []K
	cursor int
	last   int
}

func (it *failFastIterator[K, V]) HasNext() bool {
	return it.cursor < len(it.keys)
}

func (it *failFastIterator[K, V]) Next() (entry adaptive.Entry[K, V], err error) {
	mod, gerr := it.core.Guard(it.mod, func(s map[K]V) (map[K]V, internal.Result) {
		if it.cursor >= len(it.keys) {
			err = internal.ErrExhausted()
			return s, internal.Unchanged
		}
		k := it.keys[it.cursor]
		entry = adaptive.Entry[K, V]{Key: k, Value: s[k]}
		it.last = it.cursor
		it.cursor++
		return s, internal.Unchanged
	})
	if gerr != nil {
		return entry, gerr
	}
	it.mod = mod
	return entry, err
}

func (it *failFastIterator[K, V]) Remove() error {
	if it.last < 0 {
		return internal.ErrRemoveBeforeNext()
	}
	mod, err := it.core.Guard(it.mod, func(s map[K]V) (map[K]V, internal.Result) {
		delete(s, it.keys[it.last])
		it.last = -1
		return s, internal.Structural
	})
	if err != nil {
		return err
	}
	it.mod = mod
	return nil
}
