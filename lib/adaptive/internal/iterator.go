package internal

import "github.com/ValentinKolb/adaptive/lib/adaptive"

// ErrExhausted is returned by Next when the iterator has no more elements.
func ErrExhausted() error {
	return adaptive.NewError(adaptive.RetCNoSuchElement, "iterator has no more elements")
}

// ErrSnapshotRemove is returned by Remove on snapshot iterators.
func ErrSnapshotRemove() error {
	return adaptive.NewError(adaptive.RetCUnsupportedOperation, "remove is not supported on a snapshot iterator")
}

// ErrRemoveBeforeNext is returned by Remove when Next was not called since
// the iterator was created or last removed an element.
func ErrRemoveBeforeNext() error {
	return adaptive.NewError(adaptive.RetCIllegalState, "remove must follow a successful call to next")
}

// SliceIterator iterates over a slice that nobody modifies any more,
// a FAST snapshot or a copy made for the iterator.
type SliceIterator[T any] struct {
	items  []T
	cursor int
}

// NewSliceIterator creates an iterator over items
func NewSliceIterator[T any](items []T) *SliceIterator[T] {
	return &SliceIterator[T]{items: items}
}

func (it *SliceIterator[T]) HasNext() bool {
	return it.cursor < len(it.items)
}

func (it *SliceIterator[T]) Next() (T, error) {
	if it.cursor >= len(it.items) {
		var zero T
		return zero, ErrExhausted()
	}
	v := it.items[it.cursor]
	it.cursor++
	return v, nil
}

func (it *SliceIterator[T]) Remove() error {
	return ErrSnapshotRemove()
}
