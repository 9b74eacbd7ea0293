package list

import (
	"iter"
	"slices"

	"github.com/ValentinKolb/adaptive/lib/adaptive"
	"github.com/ValentinKolb/adaptive/lib/adaptive/internal"
)

// --------------------------------------------------------------------------
// Backing kind
// --------------------------------------------------------------------------

// kind describes the slice that backs a List
type kind[T comparable] struct{}

func (kind[T]) Name() string { return "list" }

// Clone copies s into a new array with room for one append.
func (kind[T]) Clone(s []T) []T {
	c := make([]T, len(s), len(s)+1)
	copy(c, s)
	return c
}

func (kind[T]) Len(s []T) int { return len(s) }

// --------------------------------------------------------------------------
// List
// --------------------------------------------------------------------------

// List is an adaptive list backed by a slice.
type List[T comparable] struct {
	core     *internal.Core[[]T]
	capacity int
}

var _ adaptive.List[string] = (*List[string])(nil)

// New creates an empty list. opts may be nil to use the defaults.
func New[T comparable](opts *adaptive.Options) *List[T] {
	opts = opts.Resolve()
	return &List[T]{
		core:     internal.NewCore[[]T](kind[T]{}, make([]T, 0, opts.Capacity), opts),
		capacity: opts.Capacity,
	}
}

// NewFrom creates a list holding a copy of src.
func NewFrom[T comparable](src []T, opts *adaptive.Options) *List[T] {
	opts = opts.Resolve()
	initial := make([]T, len(src), max(len(src), opts.Capacity))
	copy(initial, src)
	return &List[T]{
		core:     internal.NewCore[[]T](kind[T]{}, initial, opts),
		capacity: opts.Capacity,
	}
}

// --------------------------------------------------------------------------
// Query Operations
// --------------------------------------------------------------------------

// Size returns the number of elements.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *List[T]) Size() int {
	return l.core.Len()
}

// IsEmpty reports whether the list has no elements.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *List[T]) IsEmpty() bool {
	return l.core.Len() == 0
}

// Get returns the element at index.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *List[T]) Get(index int) (value T, err error) {
	l.core.Read(func(s []T) {
		if index < 0 || index >= len(s) {
			err = adaptive.IndexError(index, len(s))
			return
		}
		value = s[index]
	})
	return value, err
}

// Contains reports whether value is in the list.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *List[T]) Contains(value T) bool {
	return l.IndexOf(value) >= 0
}

// IndexOf returns the index of the first occurrence of value or -1.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *List[T]) IndexOf(value T) (index int) {
	l.core.Read(func(s []T) {
		index = slices.Index(s, value)
	})
	return index
}

// ToSlice returns a copy of the elements.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *List[T]) ToSlice() (out []T) {
	l.core.Read(func(s []T) {
		out = slices.Clone(s)
	})
	if out == nil {
		out = []T{}
	}
	return out
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Set replaces the element at index and returns the previous one.
// Replacing an element is not a structural change.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *List[T]) Set(index int, value T) (prev T, err error) {
	err = l.core.Write(func(s []T) ([]T, internal.Result, error) {
		if index < 0 || index >= len(s) {
			return s, internal.Unchanged, adaptive.IndexError(index, len(s))
		}
		prev = s[index]
		if prev == value {
			return s, internal.Unchanged, nil
		}
		s[index] = value
		return s, internal.Updated, nil
	})
	return prev, err
}

// Add appends value.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *List[T]) Add(value T) {
	_ = l.core.Write(func(s []T) ([]T, internal.Result, error) {
		return append(s, value), internal.Structural, nil
	})
}

// Insert inserts value at index. index == Size() appends.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *List[T]) Insert(index int, value T) error {
	return l.core.Write(func(s []T) ([]T, internal.Result, error) {
		if index < 0 || index > len(s) {
			return s, internal.Unchanged, adaptive.IndexError(index, len(s))
		}
		return slices.Insert(s, index, value), internal.Structural, nil
	})
}

// AddAll appends all values with a single write.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *List[T]) AddAll(values ...T) {
	_ = l.core.Write(func(s []T) ([]T, internal.Result, error) {
		if len(values) == 0 {
			return s, internal.Unchanged, nil
		}
		return append(s, values...), internal.Structural, nil
	})
}

// InsertAll inserts all values at index with a single write.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *List[T]) InsertAll(index int, values []T) error {
	return l.core.Write(func(s []T) ([]T, internal.Result, error) {
		if index < 0 || index > len(s) {
			return s, internal.Unchanged, adaptive.IndexError(index, len(s))
		}
		if len(values) == 0 {
			return s, internal.Unchanged, nil
		}
		return slices.Insert(s, index, values...), internal.Structural, nil
	})
}

// RemoveAt removes and returns the element at index.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *List[T]) RemoveAt(index int) (value T, err error) {
	err = l.core.Write(func(s []T) ([]T, internal.Result, error) {
		if index < 0 || index >= len(s) {
			return s, internal.Unchanged, adaptive.IndexError(index, len(s))
		}
		value = s[index]
		return slices.Delete(s, index, index+1), internal.Structural, nil
	})
	return value, err
}

// Remove removes the first occurrence of value.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *List[T]) Remove(value T) (removed bool) {
	_ = l.core.Write(func(s []T) ([]T, internal.Result, error) {
		i := slices.Index(s, value)
		if i < 0 {
			return s, internal.Unchanged, nil
		}
		removed = true
		return slices.Delete(s, i, i+1), internal.Structural, nil
	})
	return removed
}

// RemoveIf removes every element matching pred with a single write.
// pred runs while the write lock is held and must not call back into the list.
// pred sees every element before the list is changed, so a panicking pred
// leaves the list as it was.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *List[T]) RemoveIf(pred func(T) bool) (removed int) {
	_ = l.core.Write(func(s []T) ([]T, internal.Result, error) {
		drop := make([]bool, len(s))
		n := 0
		for i, v := range s {
			if drop[i] = pred(v); drop[i] {
				n++
			}
		}
		if n == 0 {
			return s, internal.Unchanged, nil
		}

		kept := s[:0]
		for i, v := range s {
			if !drop[i] {
				kept = append(kept, v)
			}
		}
		clear(s[len(kept):])
		removed = n
		return kept, internal.Structural, nil
	})
	return removed
}

// Clear removes all elements.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *List[T]) Clear() {
	l.core.Reset(func() []T {
		return make([]T, 0, l.capacity)
	})
}

// --------------------------------------------------------------------------
// Mode
// --------------------------------------------------------------------------

func (l *List[T]) IsFast() bool      { return l.core.IsFast() }
func (l *List[T]) SetFast(fast bool) { l.core.SetFast(fast) }
func (l *List[T]) Info() adaptive.Info {
	return l.core.Info()
}

// --------------------------------------------------------------------------
// Iteration
// --------------------------------------------------------------------------

// Iterator returns an iterator over the elements in order.
// See adaptive.Iterator for the behavior in each mode.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
// The returned iterator itself must only be used by one goroutine.
func (l *List[T]) Iterator() adaptive.Iterator[T] {
	var it adaptive.Iterator[T]
	l.core.Open(func(s []T, fast bool, mod uint64) {
		if fast {
			it = internal.NewSliceIterator(s)
			return
		}
		it = &failFastIterator[T]{core: l.core, mod: mod, last: -1}
	})
	return it
}

// All returns a range function over the elements. In SLOW mode the elements
// are copied under the lock first, so the loop body may modify the list.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *List[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		var view []T
		l.core.Open(func(s []T, fast bool, _ uint64) {
			if fast {
				view = s
			} else {
				view = slices.Clone(s)
			}
		})
		for i, v := range view {
			if !yield(i, v) {
				return
			}
		}
	}
}

// failFastIterator walks the shared slice in SLOW mode
type failFastIterator[T comparable] struct {
	core   *internal.Core[[]T]
	mod    uint64
	cursor int
	last   int // index returned by the last Next, -1 if none
}

func (it *failFastIterator[T]) HasNext() (ok bool) {
	it.core.Locked(func(s []T) {
		ok = it.cursor < len(s)
	})
	return ok
}

func (it *failFastIterator[T]) Next() (value T, err error) {
	mod, gerr := it.core.Guard(it.mod, func(s []T) ([]T, internal.Result) {
		if it.cursor >= len(s) {
			err = internal.ErrExhausted()
			return s, internal.Unchanged
		}
		value = s[it.cursor]
		it.last = it.cursor
		it.cursor++
		return s, internal.Unchanged
	})
	if gerr != nil {
		return value, gerr
	}
	it.mod = mod
	return value, err
}

func (it *failFastIterator[T]) Remove() error {
	if it.last < 0 {
		return internal.ErrRemoveBeforeNext()
	}
	mod, err := it.core.Guard(it.mod, func(s []T) ([]T, internal.Result) {
		s = slices.Delete(s, it.last, it.last+1)
		it.cursor = it.last
		it.last = -1
		return s, internal.Structural
	})
	if err != nil {
		return err
	}
	it.mod = mod
	return nil
}
