package util

import (
	"sync"
	"testing"
	"time"
)

func TestQueueBasicOperations(t *testing.T) {
	q := NewQueue[int]()
	defer q.Close()

	for i := 0; i < 10; i++ {
		v := i
		if !q.Push(&v) {
			t.Fatalf("Failed to push item %d", i)
		}
	}

	for i := 0; i < 10; i++ {
		select {
		case val := <-q.Recv():
			if *val != i {
				t.Errorf("Expected %d, got %d", i, *val)
			}
		case <-time.After(time.Second):
			t.Fatalf("Timeout waiting for item %d", i)
		}
	}

	select {
	case val := <-q.Recv():
		t.Errorf("Queue should be empty, but got %v", val)
	case <-time.After(10 * time.Millisecond):
	}
}

func TestQueuePushNil(t *testing.T) {
	q := NewQueue[int]()
	defer q.Close()

	if q.Push(nil) {
		t.Errorf("Push(nil) should fail")
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := NewQueue[int]()

	const numProducers = 8
	const itemsPerProducer = 1000

	var wg sync.WaitGroup
	for p := 0; p < numProducers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < itemsPerProducer; i++ {
				v := p*itemsPerProducer + i
				if !q.Push(&v) {
					t.Errorf("Producer %d failed to push item %d", p, i)
				}
			}
		}(p)
	}

	received := make(map[int]bool)
	lastPerProducer := make([]int, numProducers)
	for i := range lastPerProducer {
		lastPerProducer[i] = -1
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for val := range q.Recv() {
			if received[*val] {
				t.Errorf("Duplicate item received: %d", *val)
			}
			received[*val] = true

			p, i := *val/itemsPerProducer, *val%itemsPerProducer
			if i <= lastPerProducer[p] {
				t.Errorf("Producer %d: item %d arrived after %d", p, i, lastPerProducer[p])
			}
			lastPerProducer[p] = i
		}
	}()

	wg.Wait()
	q.Close()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Timeout waiting for consumer to finish")
	}

	if len(received) != numProducers*itemsPerProducer {
		t.Errorf("Expected %d items, got %d", numProducers*itemsPerProducer, len(received))
	}
}

func TestQueueClose(t *testing.T) {
	q := NewQueue[int]()

	v := 1
	q.Push(&v)
	q.Close()

	if !q.IsClosed() {
		t.Errorf("Queue should report closed")
	}
	if q.Push(&v) {
		t.Errorf("Push after Close should fail")
	}

	// queued item is still delivered, then the channel closes
	count := 0
	for range q.Recv() {
		count++
	}
	if count != 1 {
		t.Errorf("Expected 1 delivered item after close, got %d", count)
	}
}
