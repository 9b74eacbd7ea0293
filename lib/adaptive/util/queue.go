package util

// This file provides a lock-free multi-producer single-consumer queue.
// The stress command uses it to funnel observations from many worker
// goroutines to a single checker without adding a lock that would change
// the interleavings being tested.
//
//   - Push never blocks and never takes a lock; producers append with CAS
//   - The queue is unbounded
//   - A single goroutine drains the queue into the channel returned by Recv
//   - Items of one producer arrive in push order, items of different producers interleave arbitrarily

import (
	"runtime"
	"sync"
	"sync/atomic"
)

type queueNode[T any] struct {
	value *T
	next  atomic.Pointer[queueNode[T]]
}

// Queue is an unbounded lock-free multi-producer single-consumer queue
type Queue[T any] struct {
	head   atomic.Pointer[queueNode[T]] // sentinel, only moved by the drain goroutine
	tail   atomic.Pointer[queueNode[T]]
	out    chan *T
	closed atomic.Bool

	// wakeup for the drain goroutine when the queue runs empty
	mu   sync.Mutex
	cond *sync.Cond
}

// NewQueue creates a queue and starts its drain goroutine. The goroutine
// exits and closes Recv() once the queue is closed and empty.
func NewQueue[T any]() *Queue[T] {
	sentinel := &queueNode[T]{}

	q := &Queue[T]{out: make(chan *T)}
	q.cond = sync.NewCond(&q.mu)
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	go q.drain()
	return q
}

// Push appends value. It returns false if value is nil or the queue is closed.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (q *Queue[T]) Push(value *T) bool {
	if value == nil || q.closed.Load() {
		return false
	}

	n := &queueNode[T]{value: value}
	for spins := 0; ; spins++ {
		tail := q.tail.Load()
		next := tail.next.Load()
		if next != nil {
			// another producer linked a node but has not moved tail yet
			q.tail.CompareAndSwap(tail, next)
		} else if tail.next.CompareAndSwap(nil, n) {
			q.tail.CompareAndSwap(tail, n)
			q.mu.Lock()
			q.cond.Signal()
			q.mu.Unlock()
			return true
		}

		// exponential backoff under contention
		for i := 0; i < 1<<min(spins, 10); i++ {
			runtime.Gosched()
		}
	}
}

func (q *Queue[T]) drain() {
	defer close(q.out)

	for {
		head := q.head.Load()
		next := head.next.Load()
		if next != nil {
			value := next.value
			q.head.Store(next)
			q.out <- value
			next.value = nil
			continue
		}

		if q.closed.Load() {
			return
		}

		q.mu.Lock()
		if q.head.Load().next.Load() == nil && !q.closed.Load() {
			q.cond.Wait()
		}
		q.mu.Unlock()
	}
}

// Recv returns the channel the queued items are delivered on.
func (q *Queue[T]) Recv() <-chan *T {
	return q.out
}

// Close stops accepting new items. Items already queued are still delivered.
func (q *Queue[T]) Close() {
	q.closed.Store(true)
	q.mu.Lock()
	q.cond.Signal()
	q.mu.Unlock()
}

// IsClosed returns true if the queue is closed.
func (q *Queue[T]) IsClosed() bool {
	return q.closed.Load()
}

// Len returns the number of queued items. It walks the list and is meant for debugging.
func (q *Queue[T]) Len() int {
	count := 0
	for n := q.head.Load().next.Load(); n != nil; n = n.next.Load() {
		count++
	}
	return count
}
