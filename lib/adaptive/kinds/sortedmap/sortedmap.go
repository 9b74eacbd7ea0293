package sortedmap

import (
	"fmt"
	"iter"
	"reflect"

	"github.com/ValentinKolb/adaptive/lib/adaptive"
	"github.com/ValentinKolb/adaptive/lib/adaptive/internal"
	"github.com/tidwall/btree"
	"golang.org/x/exp/constraints"
)

// --------------------------------------------------------------------------
// Backing kind
// --------------------------------------------------------------------------

// kind describes the B-tree that backs a SortedMap.
//
// Clone uses the copy-on-write support of the tree: the copy shares all
// nodes with the original, and whichever of the two is written to first
// copies the nodes on its path. A published tree is never written to, so a
// clone can be edited without affecting readers of the snapshot.
type kind[K, V any] struct {
	less func(a, b adaptive.Entry[K, V]) bool
}

func (kind[K, V]) Name() string { return "sortedmap" }

func (kind[K, V]) Clone(t *btree.BTreeG[adaptive.Entry[K, V]]) *btree.BTreeG[adaptive.Entry[K, V]] {
	return t.Copy()
}

func (kind[K, V]) Len(t *btree.BTreeG[adaptive.Entry[K, V]]) int { return t.Len() }

// newTree creates an empty tree. Locking inside the tree is disabled, the
// core already serializes writers and published trees are read only.
func (k kind[K, V]) newTree() *btree.BTreeG[adaptive.Entry[K, V]] {
	return btree.NewBTreeGOptions(k.less, btree.Options{NoLocks: true})
}

// --------------------------------------------------------------------------
// SortedMap
// --------------------------------------------------------------------------

// SortedMap is an adaptive map ordered by a comparator.
type SortedMap[K, V any] struct {
	core   *internal.Core[*btree.BTreeG[adaptive.Entry[K, V]]]
	kind   kind[K, V]
	cmp    func(a, b K) int
	reject func(key K) bool
}

var _ adaptive.SortedMap[string, int] = (*SortedMap[string, int])(nil)

// New creates an empty map ordered by cmp, which returns a negative number
// if a < b, zero if a == b and a positive number if a > b.
// opts may be nil to use the defaults.
func New[K, V any](cmp func(a, b K) int, opts *adaptive.Options) *SortedMap[K, V] {
	return newSortedMap[K, V](cmp, isNil[K], nil, opts)
}

// NewOrdered creates an empty map ordered by the natural order of K.
// NaN keys are rejected since they are not ordered.
func NewOrdered[K constraints.Ordered, V any](opts *adaptive.Options) *SortedMap[K, V] {
	return newSortedMap[K, V](compareOrdered[K], isNaN[K], nil, opts)
}

// NewFrom creates a map ordered by cmp holding entries. It fails if a key is rejected.
func NewFrom[K, V any](cmp func(a, b K) int, entries []adaptive.Entry[K, V], opts *adaptive.Options) (*SortedMap[K, V], error) {
	for _, e := range entries {
		if isNil(e.Key) {
			return nil, errRejected(e.Key)
		}
	}
	return newSortedMap(cmp, isNil[K], entries, opts), nil
}

func newSortedMap[K, V any](cmp func(a, b K) int, reject func(K) bool, entries []adaptive.Entry[K, V], opts *adaptive.Options) *SortedMap[K, V] {
	opts = opts.Resolve()
	k := kind[K, V]{
		less: func(a, b adaptive.Entry[K, V]) bool {
			return cmp(a.Key, b.Key) < 0
		},
	}

	initial := k.newTree()
	for _, e := range entries {
		initial.Set(e)
	}

	return &SortedMap[K, V]{
		core:   internal.NewCore[*btree.BTreeG[adaptive.Entry[K, V]]](k, initial, opts),
		kind:   k,
		cmp:    cmp,
		reject: reject,
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func compareOrdered[K constraints.Ordered](a, b K) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// isNil reports whether key is a nil interface, pointer, map, slice, func or channel.
func isNil[K any](key K) bool {
	v := reflect.ValueOf(any(key))
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return v.IsNil()
	default:
		return false
	}
}

func isNaN[K constraints.Ordered](key K) bool {
	return key != key
}

func errRejected(key any) error {
	return adaptive.NewError(adaptive.RetCIllegalArgument, fmt.Sprintf("key %v cannot be ordered", key))
}

func probe[K, V any](key K) adaptive.Entry[K, V] {
	return adaptive.Entry[K, V]{Key: key}
}

// view returns a tree that does not change while the caller walks it. In
// FAST mode that is the current snapshot. In SLOW mode it is a copy of the
// shared tree taken under the lock.
func (m *SortedMap[K, V]) view() (t *btree.BTreeG[adaptive.Entry[K, V]]) {
	m.core.Open(func(s *btree.BTreeG[adaptive.Entry[K, V]], fast bool, _ uint64) {
		if fast {
			t = s
		} else {
			t = s.Copy()
		}
	})
	return t
}

// --------------------------------------------------------------------------
// Query Operations
// --------------------------------------------------------------------------

// Size returns the number of bindings.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *SortedMap[K, V]) Size() int {
	return m.core.Len()
}

// IsEmpty reports whether the map has no bindings.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *SortedMap[K, V]) IsEmpty() bool {
	return m.core.Len() == 0
}

// Get returns the value bound to key. A rejected key is never bound.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *SortedMap[K, V]) Get(key K) (value V, loaded bool) {
	if m.reject(key) {
		return value, false
	}
	m.core.Read(func(t *btree.BTreeG[adaptive.Entry[K, V]]) {
		var e adaptive.Entry[K, V]
		e, loaded = t.Get(probe[K, V](key))
		value = e.Value
	})
	return value, loaded
}

// ContainsKey reports whether key is bound.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *SortedMap[K, V]) ContainsKey(key K) bool {
	_, loaded := m.Get(key)
	return loaded
}

// Keys returns the bound keys in ascending order.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *SortedMap[K, V]) Keys() []K {
	t := m.view()
	keys := make([]K, 0, t.Len())
	t.Scan(func(e adaptive.Entry[K, V]) bool {
		keys = append(keys, e.Key)
		return true
	})
	return keys
}

// First returns the entry with the smallest key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *SortedMap[K, V]) First() (e adaptive.Entry[K, V], err error) {
	m.core.Read(func(t *btree.BTreeG[adaptive.Entry[K, V]]) {
		var ok bool
		if e, ok = t.Min(); !ok {
			err = adaptive.NewError(adaptive.RetCNoSuchElement, "map is empty")
		}
	})
	return e, err
}

// Last returns the entry with the largest key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *SortedMap[K, V]) Last() (e adaptive.Entry[K, V], err error) {
	m.core.Read(func(t *btree.BTreeG[adaptive.Entry[K, V]]) {
		var ok bool
		if e, ok = t.Max(); !ok {
			err = adaptive.NewError(adaptive.RetCNoSuchElement, "map is empty")
		}
	})
	return e, err
}

// Floor returns the entry with the greatest key less than or equal to key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *SortedMap[K, V]) Floor(key K) (e adaptive.Entry[K, V], ok bool) {
	if m.reject(key) {
		return e, false
	}
	m.core.Read(func(t *btree.BTreeG[adaptive.Entry[K, V]]) {
		t.Descend(probe[K, V](key), func(item adaptive.Entry[K, V]) bool {
			e, ok = item, true
			return false
		})
	})
	return e, ok
}

// Ceiling returns the entry with the least key greater than or equal to key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *SortedMap[K, V]) Ceiling(key K) (e adaptive.Entry[K, V], ok bool) {
	if m.reject(key) {
		return e, false
	}
	m.core.Read(func(t *btree.BTreeG[adaptive.Entry[K, V]]) {
		t.Ascend(probe[K, V](key), func(item adaptive.Entry[K, V]) bool {
			e, ok = item, true
			return false
		})
	})
	return e, ok
}

// Ascend calls fn for every entry with a key >= from in ascending order
// until fn returns false. fn runs without any lock held.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *SortedMap[K, V]) Ascend(from K, fn func(key K, value V) bool) {
	if m.reject(from) {
		return
	}
	m.view().Ascend(probe[K, V](from), func(e adaptive.Entry[K, V]) bool {
		return fn(e.Key, e.Value)
	})
}

// Range returns a range function over the entries with from <= key < to.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *SortedMap[K, V]) Range(from, to K) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if m.reject(to) {
			return
		}
		m.Ascend(from, func(k K, v V) bool {
			if m.cmp(k, to) >= 0 {
				return false
			}
			return yield(k, v)
		})
	}
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Put binds key to value and returns the previous value.
// Overwriting an existing key is not a structural change.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *SortedMap[K, V]) Put(key K, value V) (prev V, loaded bool, err error) {
	if m.reject(key) {
		return prev, false, errRejected(key)
	}
	err = m.core.Write(func(t *btree.BTreeG[adaptive.Entry[K, V]]) (*btree.BTreeG[adaptive.Entry[K, V]], internal.Result, error) {
		var old adaptive.Entry[K, V]
		old, loaded = t.Set(adaptive.Entry[K, V]{Key: key, Value: value})
		prev = old.Value
		if loaded {
			return t, internal.Updated, nil
		}
		return t, internal.Structural, nil
	})
	return prev, loaded, err
}

// PutIfAbsent binds key to value if key is unbound. It returns the value
// bound after the call and whether key was already bound.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *SortedMap[K, V]) PutIfAbsent(key K, value V) (actual V, loaded bool, err error) {
	if m.reject(key) {
		return actual, false, errRejected(key)
	}
	err = m.core.Write(func(t *btree.BTreeG[adaptive.Entry[K, V]]) (*btree.BTreeG[adaptive.Entry[K, V]], internal.Result, error) {
		if e, ok := t.Get(probe[K, V](key)); ok {
			actual, loaded = e.Value, true
			return t, internal.Unchanged, nil
		}
		actual = value
		t.Set(adaptive.Entry[K, V]{Key: key, Value: value})
		return t, internal.Structural, nil
	})
	return actual, loaded, err
}

// PutAll binds every entry with a single write. Nothing is applied if any key is rejected.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *SortedMap[K, V]) PutAll(entries ...adaptive.Entry[K, V]) error {
	for _, e := range entries {
		if m.reject(e.Key) {
			return errRejected(e.Key)
		}
	}
	return m.core.Write(func(t *btree.BTreeG[adaptive.Entry[K, V]]) (*btree.BTreeG[adaptive.Entry[K, V]], internal.Result, error) {
		if len(entries) == 0 {
			return t, internal.Unchanged, nil
		}
		before := t.Len()
		for _, e := range entries {
			t.Set(e)
		}
		if t.Len() != before {
			return t, internal.Structural, nil
		}
		return t, internal.Updated, nil
	})
}

// Remove unbinds key and returns the removed value.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *SortedMap[K, V]) Remove(key K) (prev V, loaded bool) {
	if m.reject(key) {
		return prev, false
	}
	_ = m.core.Write(func(t *btree.BTreeG[adaptive.Entry[K, V]]) (*btree.BTreeG[adaptive.Entry[K, V]], internal.Result, error) {
		var old adaptive.Entry[K, V]
		if old, loaded = t.Delete(probe[K, V](key)); !loaded {
			return t, internal.Unchanged, nil
		}
		prev = old.Value
		return t, internal.Structural, nil
	})
	return prev, loaded
}

// Clear removes all bindings.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *SortedMap[K, V]) Clear() {
	m.core.Reset(m.kind.newTree)
}

// --------------------------------------------------------------------------
// Mode
// --------------------------------------------------------------------------

func (m *SortedMap[K, V]) IsFast() bool        { return m.core.IsFast() }
func (m *SortedMap[K, V]) SetFast(fast bool)   { m.core.SetFast(fast) }
func (m *SortedMap[K, V]) Info() adaptive.Info { return m.core.Info() }

// --------------------------------------------------------------------------
// Iteration
// --------------------------------------------------------------------------

// Iterator returns an iterator over the entries in ascending key order.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
// The returned iterator itself must only be used by one goroutine.
func (m *SortedMap[K, V]) Iterator() adaptive.Iterator[adaptive.Entry[K, V]] {
	var it adaptive.Iterator[adaptive.Entry[K, V]]
	m.core.Open(func(t *btree.BTreeG[adaptive.Entry[K, V]], fast bool, mod uint64) {
		if fast {
			it = &snapshotIterator[K, V]{tree: t}
			return
		}
		it = &failFastIterator[K, V]{core: m.core, mod: mod, last: -1}
	})
	return it
}

// All returns a range function over the entries in ascending key order.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *SortedMap[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		m.view().Scan(func(e adaptive.Entry[K, V]) bool {
			return yield(e.Key, e.Value)
		})
	}
}

// snapshotIterator walks a published tree by position
type snapshotIterator[K, V any] struct {
	tree   *btree.BTreeG[adaptive.Entry[K, V]]
	cursor int
}

func (it *snapshotIterator[K, V]) HasNext() bool {
	return it.cursor < it.tree.Len()
}

func (it *snapshotIterator[K, V]) Next() (adaptive.Entry[K, V], error) {
	e, ok := it.tree.GetAt(it.cursor)
	if !ok {
		return e, internal.ErrExhausted()
	}
	it.cursor++
	return e, nil
}

func (it *snapshotIterator[K, V]) Remove() error {
	return internal.ErrSnapshotRemove()
}

// failFastIterator walks the shared tree by position in SLOW mode. Positions
// stay valid because every foreign structural change invalidates the iterator.
type failFastIterator[K, V any] struct {
	core   *internal.Core[*btree.BTreeG[adaptive.Entry[K, V]]]
	mod    uint64
	cursor int
	last   int
}

func (it *failFastIterator[K, V]) HasNext() (ok bool) {
	it.core.Locked(func(t *btree.BTreeG[adaptive.Entry[K, V]]) {
		ok = it.cursor < t.Len()
	})
	return ok
}

func (it *failFastIterator[K, V]) Next() (e adaptive.Entry[K, V], err error) {
	mod, gerr := it.core.Guard(it.mod, func(t *btree.BTreeG[adaptive.Entry[K, V]]) (*btree.BTreeG[adaptive.Entry[K, V]], internal.Result) {
		var ok bool
		if e, ok = t.GetAt(it.cursor); !ok {
			err = internal.ErrExhausted()
			return t, internal.Unchanged
		}
		it.last = it.cursor
		it.cursor++
		return t, internal.Unchanged
	})
	if gerr != nil {
		return e, gerr
	}
	it.mod = mod
	return e, err
}

func (it *failFastIterator[K, V]) Remove() error {
	if it.last < 0 {
		return internal.ErrRemoveBeforeNext()
	}
	mod, err := it.core.Guard(it.mod, func(t *btree.BTreeG[adaptive.Entry[K, V]]) (*btree.BTreeG[adaptive.Entry[K, V]], internal.Result) {
		t.DeleteAt(it.last)
		it.cursor = it.last
		it.last = -1
		return t, internal.Structural
	})
	if err != nil {
		return err
	}
	it.mod = mod
	return nil
}
