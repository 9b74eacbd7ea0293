package testing

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/ValentinKolb/adaptive/lib/adaptive"
)

// SortedMapFactory creates a new, empty sorted map with the given options
type SortedMapFactory func(opts *adaptive.Options) adaptive.SortedMap[string, string]

// RunSortedMapTests runs the conformance suite for a SortedMap implementation in both modes.
func RunSortedMapTests(t *testing.T, name string, factory SortedMapFactory) {
	t.Run(name, func(t *testing.T) {
		for _, mode := range []adaptive.Mode{adaptive.ModeSlow, adaptive.ModeFast} {
			newMap := func() adaptive.SortedMap[string, string] {
				return factory(adaptive.DefaultOptions().WithMode(mode).WithName(name))
			}

			t.Run(mode.String(), func(t *testing.T) {
				t.Run("InitialMode", func(t *testing.T) {
					testInitialMode(t, newMap(), mode)
				})
				t.Run("PutGet", func(t *testing.T) {
					testSortedPutGet(t, newMap())
				})
				t.Run("Order", func(t *testing.T) {
					testSortedOrder(t, newMap())
				})
				t.Run("Navigation", func(t *testing.T) {
					testSortedNavigation(t, newMap())
				})
				t.Run("RangeAndAscend", func(t *testing.T) {
					testSortedRange(t, newMap())
				})
				t.Run("RemoveAndClear", func(t *testing.T) {
					testSortedRemoveAndClear(t, newMap())
				})
				t.Run("ModeToggle", func(t *testing.T) {
					testSortedModeToggle(t, newMap())
				})
				t.Run("ConcurrentPuts", func(t *testing.T) {
					testSortedConcurrentPuts(t, newMap())
				})
				t.Run("SnapshotAtomicity", func(t *testing.T) {
					testSortedSnapshotAtomicity(t, newMap(), mode)
				})

				if mode == adaptive.ModeFast {
					t.Run("IteratorIsolation", func(t *testing.T) {
						testSortedIteratorIsolation(t, newMap())
					})
					t.Run("OnePublicationPerWrite", func(t *testing.T) {
						testSortedPublications(t, newMap())
					})
				} else {
					t.Run("FailFast", func(t *testing.T) {
						testSortedFailFast(t, newMap())
					})
					t.Run("IteratorRemove", func(t *testing.T) {
						testSortedIteratorRemove(t, newMap())
					})
				}
			})
		}
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func entries(kvs ...string) []adaptive.Entry[string, string] {
	out := make([]adaptive.Entry[string, string], 0, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		out = append(out, adaptive.Entry[string, string]{Key: kvs[i], Value: kvs[i+1]})
	}
	return out
}

func mustPutAll(t testing.TB, m adaptive.SortedMap[string, string], kvs ...string) {
	t.Helper()
	if err := m.PutAll(entries(kvs...)...); err != nil {
		t.Fatalf("PutAll failed: %v", err)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSortedPutGet(t *testing.T, m adaptive.SortedMap[string, string]) {
	prev, loaded, err := m.Put("k", "v1")
	if err != nil || loaded || prev != "" {
		t.Errorf("Put of a new key returned %q, %v, %v", prev, loaded, err)
	}
	prev, loaded, err = m.Put("k", "v2")
	if err != nil || !loaded || prev != "v1" {
		t.Errorf("Put of an existing key returned %q, %v, %v", prev, loaded, err)
	}

	actual, loaded, err := m.PutIfAbsent("k", "v3")
	if err != nil || !loaded || actual != "v2" {
		t.Errorf("PutIfAbsent of an existing key returned %q, %v, %v", actual, loaded, err)
	}
	actual, loaded, err = m.PutIfAbsent("j", "v4")
	if err != nil || loaded || actual != "v4" {
		t.Errorf("PutIfAbsent of a new key returned %q, %v, %v", actual, loaded, err)
	}

	if v, ok := m.Get("k"); !ok || v != "v2" {
		t.Errorf("Get returned %q, %v; want \"v2\", true", v, ok)
	}
	if m.ContainsKey("missing") || !m.ContainsKey("j") {
		t.Errorf("ContainsKey returned wrong result")
	}
	if m.Size() != 2 {
		t.Errorf("Expected size 2, got %d", m.Size())
	}
}

func testSortedOrder(t *testing.T, m adaptive.SortedMap[string, string]) {
	mustPutAll(t, m, "c", "3", "a", "1", "d", "4", "b", "2")

	if keys := m.Keys(); !slices.Equal(keys, []string{"a", "b", "c", "d"}) {
		t.Errorf("Keys not sorted: %v", keys)
	}

	var fromIterator []string
	for _, e := range drain[adaptive.Entry[string, string]](t, m.Iterator()) {
		fromIterator = append(fromIterator, e.Key+e.Value)
	}
	if !slices.Equal(fromIterator, []string{"a1", "b2", "c3", "d4"}) {
		t.Errorf("Iterator yielded %v", fromIterator)
	}

	var fromAll []string
	for k := range m.All() {
		fromAll = append(fromAll, k)
	}
	if !slices.Equal(fromAll, []string{"a", "b", "c", "d"}) {
		t.Errorf("All yielded %v", fromAll)
	}
}

func testSortedNavigation(t *testing.T, m adaptive.SortedMap[string, string]) {
	_, err := m.First()
	requireCode(t, err, adaptive.ErrNoSuchElement)
	_, err = m.Last()
	requireCode(t, err, adaptive.ErrNoSuchElement)

	mustPutAll(t, m, "b", "2", "d", "4", "f", "6")

	if e, err := m.First(); err != nil || e.Key != "b" {
		t.Errorf("First returned %v, %v", e, err)
	}
	if e, err := m.Last(); err != nil || e.Key != "f" {
		t.Errorf("Last returned %v, %v", e, err)
	}

	cases := []struct {
		key            string
		floor, ceiling string
	}{
		{"a", "", "b"},
		{"b", "b", "b"},
		{"c", "b", "d"},
		{"f", "f", "f"},
		{"g", "f", ""},
	}
	for _, c := range cases {
		floor, ok := m.Floor(c.key)
		if ok != (c.floor != "") || floor.Key != c.floor {
			t.Errorf("Floor(%s) = %v, %v; want %q", c.key, floor, ok, c.floor)
		}
		ceiling, ok := m.Ceiling(c.key)
		if ok != (c.ceiling != "") || ceiling.Key != c.ceiling {
			t.Errorf("Ceiling(%s) = %v, %v; want %q", c.key, ceiling, ok, c.ceiling)
		}
	}
}

func testSortedRange(t *testing.T, m adaptive.SortedMap[string, string]) {
	mustPutAll(t, m, "a", "1", "b", "2", "c", "3", "d", "4", "e", "5")

	var got []string
	for k := range m.Range("b", "e") {
		got = append(got, k)
	}
	if !slices.Equal(got, []string{"b", "c", "d"}) {
		t.Errorf("Range(b, e) yielded %v", got)
	}

	got = got[:0]
	m.Ascend("c", func(k, v string) bool {
		got = append(got, k)
		m.Put(k+k, v) // the callback runs without a lock
		return len(got) < 2
	})
	if !slices.Equal(got, []string{"c", "d"}) {
		t.Errorf("Ascend(c) yielded %v", got)
	}
}

func testSortedRemoveAndClear(t *testing.T, m adaptive.SortedMap[string, string]) {
	mustPutAll(t, m, "a", "1", "b", "2")

	prev, loaded := m.Remove("a")
	if !loaded || prev != "1" {
		t.Errorf("Remove returned %q, %v", prev, loaded)
	}
	if _, loaded := m.Remove("a"); loaded {
		t.Errorf("Second Remove should report false")
	}

	m.Clear()
	if !m.IsEmpty() {
		t.Errorf("Map should be empty after Clear")
	}
	if _, _, err := m.Put("z", "26"); err != nil || m.Size() != 1 {
		t.Errorf("Map should be usable after Clear")
	}
}

func testSortedModeToggle(t *testing.T, m adaptive.SortedMap[string, string]) {
	mustPutAll(t, m, "a", "1", "b", "2", "c", "3")
	start := m.IsFast()

	m.SetFast(!start)
	m.Put("d", "4")
	m.SetFast(start)
	m.SetFast(start)

	if keys := m.Keys(); !slices.Equal(keys, []string{"a", "b", "c", "d"}) {
		t.Errorf("Unexpected keys after toggling: %v", keys)
	}
}

func testSortedConcurrentPuts(t *testing.T, m adaptive.SortedMap[string, string]) {
	const numWorkers = 8
	const perWorker = 100

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				k := fmt.Sprintf("%02d-%03d", w, i)
				if _, _, err := m.Put(k, k); err != nil {
					t.Errorf("Put failed: %v", err)
				}
				// concurrent readers walk the tree while it is being copied
				if keys := m.Keys(); !slices.IsSorted(keys) {
					t.Errorf("Keys out of order during concurrent puts")
				}
			}
		}(w)
	}
	wg.Wait()

	keys := m.Keys()
	if len(keys) != numWorkers*perWorker {
		t.Fatalf("Lost updates: expected %d keys, got %d", numWorkers*perWorker, len(keys))
	}
	if !slices.IsSorted(keys) {
		t.Errorf("Keys are not sorted")
	}
}

// every PutAll binds the keys "000".."n-1" to n, so a view that mixes two
// writes has a value that differs from its number of entries. The writer
// switches the mode from time to time to move readers between snapshots and
// the shared tree.
func testSortedSnapshotAtomicity(t *testing.T, m adaptive.SortedMap[string, string], mode adaptive.Mode) {
	const rounds = 300
	const toggleEvery = 25

	check := func(source string, keys, values []string) bool {
		if !slices.IsSorted(keys) {
			t.Errorf("%s: keys out of order: %v", source, keys)
			return false
		}
		for _, v := range values {
			if v != fmt.Sprint(len(values)) {
				t.Errorf("%s: torn view with %d entries but value %s", source, len(values), v)
				return false
			}
		}
		return true
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}

				var keys, values []string
				if r%2 == 0 {
					for k, v := range m.All() {
						keys = append(keys, k)
						values = append(values, v)
					}
					if !check("All", keys, values) {
						return
					}
					continue
				}

				it := m.Iterator()
				var err error
				for it.HasNext() {
					var e adaptive.Entry[string, string]
					if e, err = it.Next(); err != nil {
						break
					}
					keys = append(keys, e.Key)
					values = append(values, e.Value)
				}
				switch {
				case err == nil:
					if !check("Iterator", keys, values) {
						return
					}
				case errors.Is(err, adaptive.ErrConcurrentModification):
					// fail-fast iterators are invalidated by every round
				default:
					t.Errorf("Iterator failed: %v", err)
					return
				}
			}
		}(r)
	}

	for i := 1; i <= rounds; i++ {
		batch := make([]adaptive.Entry[string, string], i)
		for k := range batch {
			batch[k] = adaptive.Entry[string, string]{Key: fmt.Sprintf("%03d", k), Value: fmt.Sprint(i)}
		}
		if err := m.PutAll(batch...); err != nil {
			t.Errorf("PutAll failed: %v", err)
		}
		if i%toggleEvery == 0 {
			m.SetFast(!m.IsFast())
		}
	}
	close(done)
	wg.Wait()

	m.SetFast(mode == adaptive.ModeFast)
	if size := m.Size(); size != rounds {
		t.Errorf("Expected %d entries after all rounds, got %d", rounds, size)
	}
	if v, ok := m.Get(fmt.Sprintf("%03d", 0)); !ok || v != fmt.Sprint(rounds) {
		t.Errorf("Expected the last round to win, got %q", v)
	}
}

func testSortedIteratorIsolation(t *testing.T, m adaptive.SortedMap[string, string]) {
	mustPutAll(t, m, "a", "1", "b", "2", "c", "3")

	it := m.Iterator()
	m.Put("aa", "x")
	m.Remove("c")
	m.Put("b", "changed")

	var got []string
	for _, e := range drain[adaptive.Entry[string, string]](t, it) {
		got = append(got, e.Key+e.Value)
	}
	if !slices.Equal(got, []string{"a1", "b2", "c3"}) {
		t.Errorf("Iterator reflected later writes: %v", got)
	}
	requireCode(t, it.Remove(), adaptive.ErrUnsupported)

	if keys := m.Keys(); !slices.Equal(keys, []string{"a", "aa", "b"}) {
		t.Errorf("Unexpected keys after writes: %v", keys)
	}
}

func testSortedPublications(t *testing.T, m adaptive.SortedMap[string, string]) {
	v0 := m.Info().Version

	mustPutAll(t, m, "a", "1", "b", "2", "c", "3")
	if v := m.Info().Version; v != v0+1 {
		t.Errorf("PutAll should publish once, version %d -> %d", v0, v)
	}

	m.Remove("missing")
	m.PutIfAbsent("a", "x")
	if v := m.Info().Version; v != v0+1 {
		t.Errorf("No-op writes should not publish, version %d -> %d", v0, v)
	}
}

func testSortedFailFast(t *testing.T, m adaptive.SortedMap[string, string]) {
	mustPutAll(t, m, "a", "1", "b", "2")

	it := m.Iterator()
	m.Put("a", "changed") // not structural
	if e, err := it.Next(); err != nil || e.Value != "changed" {
		t.Fatalf("Next after overwrite returned %v, %v", e, err)
	}

	m.Put("c", "3")
	_, err := it.Next()
	requireCode(t, err, adaptive.ErrConcurrentModification)
}

func testSortedIteratorRemove(t *testing.T, m adaptive.SortedMap[string, string]) {
	mustPutAll(t, m, "a", "1", "b", "2", "c", "3", "d", "4")

	it := m.Iterator()
	for it.HasNext() {
		e, err := it.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if e.Key == "a" || e.Key == "c" {
			if err := it.Remove(); err != nil {
				t.Fatalf("Remove failed: %v", err)
			}
		}
	}

	if keys := m.Keys(); !slices.Equal(keys, []string{"b", "d"}) {
		t.Errorf("Unexpected keys after iterator removals: %v", keys)
	}
}
