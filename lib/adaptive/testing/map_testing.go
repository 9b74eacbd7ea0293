package testing

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"testing"

	"github.com/ValentinKolb/adaptive/lib/adaptive"
)

// MapFactory creates a new, empty map with the given options
type MapFactory func(opts *adaptive.Options) adaptive.Map[string, string]

// RunMapTests runs the conformance suite for a Map implementation in both modes.
func RunMapTests(t *testing.T, name string, factory MapFactory) {
	t.Run(name, func(t *testing.T) {
		for _, mode := range []adaptive.Mode{adaptive.ModeSlow, adaptive.ModeFast} {
			newMap := func() adaptive.Map[string, string] {
				return factory(adaptive.DefaultOptions().WithMode(mode).WithName(name))
			}

			t.Run(mode.String(), func(t *testing.T) {
				t.Run("InitialMode", func(t *testing.T) {
					testInitialMode(t, newMap(), mode)
				})
				t.Run("PutGet", func(t *testing.T) {
					testMapPutGet(t, newMap())
				})
				t.Run("PutIfAbsent", func(t *testing.T) {
					testMapPutIfAbsent(t, newMap())
				})
				t.Run("PutAll", func(t *testing.T) {
					testMapPutAll(t, newMap())
				})
				t.Run("Remove", func(t *testing.T) {
					testMapRemove(t, newMap())
				})
				t.Run("KeysAndClear", func(t *testing.T) {
					testMapKeysAndClear(t, newMap())
				})
				t.Run("Iterator", func(t *testing.T) {
					testMapIterator(t, newMap())
				})
				t.Run("All", func(t *testing.T) {
					testMapAll(t, newMap())
				})
				t.Run("ModeToggle", func(t *testing.T) {
					testMapModeToggle(t, newMap())
				})
				t.Run("ConcurrentPuts", func(t *testing.T) {
					testMapConcurrentPuts(t, newMap())
				})

				if mode == adaptive.ModeFast {
					t.Run("TwoWritersScenario", func(t *testing.T) {
						testMapTwoWriters(t, newMap())
					})
					t.Run("IteratorIsolation", func(t *testing.T) {
						testMapIteratorIsolation(t, newMap())
					})
					t.Run("SnapshotAtomicity", func(t *testing.T) {
						testMapSnapshotAtomicity(t, newMap())
					})
					t.Run("OnePublicationPerWrite", func(t *testing.T) {
						testMapPublications(t, newMap())
					})
				} else {
					t.Run("FailFast", func(t *testing.T) {
						testMapFailFast(t, newMap())
					})
					t.Run("IteratorRemove", func(t *testing.T) {
						testMapIteratorRemove(t, newMap())
					})
				}
			})
		}
	})
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testMapPutGet(t *testing.T, m adaptive.Map[string, string]) {
	prev, loaded := m.Put("k", "v1")
	if loaded || prev != "" {
		t.Errorf("Put of a new key returned %q, %v", prev, loaded)
	}
	prev, loaded = m.Put("k", "v2")
	if !loaded || prev != "v1" {
		t.Errorf("Put of an existing key returned %q, %v; want \"v1\", true", prev, loaded)
	}

	if v, ok := m.Get("k"); !ok || v != "v2" {
		t.Errorf("Get returned %q, %v; want \"v2\", true", v, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Errorf("Get of a missing key should report false")
	}
	if !m.ContainsKey("k") || m.ContainsKey("missing") {
		t.Errorf("ContainsKey returned wrong result")
	}
	if m.Size() != 1 {
		t.Errorf("Expected size 1, got %d", m.Size())
	}
}

func testMapPutIfAbsent(t *testing.T, m adaptive.Map[string, string]) {
	actual, loaded := m.PutIfAbsent("k", "v1")
	if loaded || actual != "v1" {
		t.Errorf("PutIfAbsent of a new key returned %q, %v", actual, loaded)
	}
	actual, loaded = m.PutIfAbsent("k", "v2")
	if !loaded || actual != "v1" {
		t.Errorf("PutIfAbsent of an existing key returned %q, %v", actual, loaded)
	}
	if v, _ := m.Get("k"); v != "v1" {
		t.Errorf("PutIfAbsent overwrote the value: %q", v)
	}
}

func testMapPutAll(t *testing.T, m adaptive.Map[string, string]) {
	m.Put("a", "old")
	m.PutAll(map[string]string{"a": "1", "b": "2", "c": "3"})

	if m.Size() != 3 {
		t.Errorf("Expected size 3, got %d", m.Size())
	}
	for k, want := range map[string]string{"a": "1", "b": "2", "c": "3"} {
		if v, _ := m.Get(k); v != want {
			t.Errorf("Get(%s) = %q; want %q", k, v, want)
		}
	}

	m.PutAll(nil)
	if m.Size() != 3 {
		t.Errorf("PutAll(nil) changed the map")
	}
}

func testMapRemove(t *testing.T, m adaptive.Map[string, string]) {
	m.Put("k", "v")

	prev, loaded := m.Remove("k")
	if !loaded || prev != "v" {
		t.Errorf("Remove returned %q, %v; want \"v\", true", prev, loaded)
	}
	if _, loaded := m.Remove("k"); loaded {
		t.Errorf("Second Remove should report false")
	}
	if !m.IsEmpty() {
		t.Errorf("Map should be empty")
	}
}

func testMapKeysAndClear(t *testing.T, m adaptive.Map[string, string]) {
	m.PutAll(map[string]string{"a": "1", "b": "2"})

	keys := m.Keys()
	slices.Sort(keys)
	if !slices.Equal(keys, []string{"a", "b"}) {
		t.Errorf("Keys returned %v", keys)
	}

	m.Clear()
	if !m.IsEmpty() || len(m.Keys()) != 0 {
		t.Errorf("Map should be empty after Clear")
	}
	m.Put("c", "3")
	if m.Size() != 1 {
		t.Errorf("Map should be usable after Clear")
	}
}

func testMapIterator(t *testing.T, m adaptive.Map[string, string]) {
	want := map[string]string{"a": "1", "b": "2", "c": "3"}
	m.PutAll(want)

	it := m.Iterator()
	got := make(map[string]string)
	for _, e := range drain[adaptive.Entry[string, string]](t, it) {
		got[e.Key] = e.Value
	}
	if !maps.Equal(got, want) {
		t.Errorf("Iterator yielded %v, want %v", got, want)
	}
	_, err := it.Next()
	requireCode(t, err, adaptive.ErrNoSuchElement)
}

func testMapAll(t *testing.T, m adaptive.Map[string, string]) {
	want := map[string]string{"a": "1", "b": "2"}
	m.PutAll(want)

	got := make(map[string]string)
	for k, v := range m.All() {
		got[k] = v
		m.Put(k+k, v) // writes inside the loop do not affect the view
	}
	if !maps.Equal(got, want) {
		t.Errorf("All yielded %v, want %v", got, want)
	}
	if m.Size() != 4 {
		t.Errorf("Expected 4 entries after writing inside All, got %d", m.Size())
	}
}

func testMapModeToggle(t *testing.T, m adaptive.Map[string, string]) {
	want := map[string]string{"a": "1", "b": "2"}
	m.PutAll(want)
	start := m.IsFast()

	m.SetFast(!start)
	m.SetFast(start)
	if m.IsFast() != start {
		t.Fatalf("Mode did not return to its start value")
	}

	got := make(map[string]string)
	for k, v := range m.All() {
		got[k] = v
	}
	if !maps.Equal(got, want) {
		t.Errorf("Toggling the mode changed the content: %v", got)
	}
}

func testMapConcurrentPuts(t *testing.T, m adaptive.Map[string, string]) {
	const numWorkers = 16
	const perWorker = 100

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				k := fmt.Sprintf("%d-%d", w, i)
				m.Put(k, k)
				if v, ok := m.Get(k); !ok || v != k {
					t.Errorf("Own write %s not visible", k)
				}
			}
		}(w)
	}
	wg.Wait()

	if m.Size() != numWorkers*perWorker {
		t.Errorf("Lost updates: expected %d entries, got %d", numWorkers*perWorker, m.Size())
	}
}

func testMapTwoWriters(t *testing.T, m adaptive.Map[string, string]) {
	var wg sync.WaitGroup
	start := make(chan struct{})
	for _, kv := range [][2]string{{"k1", "v1"}, {"k2", "v2"}} {
		wg.Add(1)
		go func(k, v string) {
			defer wg.Done()
			<-start
			m.Put(k, v)
		}(kv[0], kv[1])
	}
	close(start)
	wg.Wait()

	if m.Size() != 2 {
		t.Errorf("Expected size 2, got %d", m.Size())
	}
	if v, _ := m.Get("k1"); v != "v1" {
		t.Errorf("Expected k1=v1, got %q", v)
	}
	if v, _ := m.Get("k2"); v != "v2" {
		t.Errorf("Expected k2=v2, got %q", v)
	}
}

func testMapIteratorIsolation(t *testing.T, m adaptive.Map[string, string]) {
	want := make(map[string]string)
	for i := 0; i < 50; i++ {
		want[fmt.Sprint(i)] = "v"
	}
	m.PutAll(want)

	it := m.Iterator()
	m.Put("new", "v")
	m.Remove("0")
	m.Put("1", "changed")

	got := make(map[string]string)
	for _, e := range drain[adaptive.Entry[string, string]](t, it) {
		got[e.Key] = e.Value
	}
	if !maps.Equal(got, want) {
		t.Errorf("Iterator reflected later writes")
	}
	requireCode(t, it.Remove(), adaptive.ErrUnsupported)
}

// every write keeps the invariant that all values equal the number of
// entries, so a torn view shows up as a mismatch
func testMapSnapshotAtomicity(t *testing.T, m adaptive.Map[string, string]) {
	const rounds = 100

	done := make(chan struct{})
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				it := m.Iterator()
				entries := drain[adaptive.Entry[string, string]](t, it)
				for _, e := range entries {
					if e.Value != fmt.Sprint(len(entries)) {
						t.Errorf("Torn snapshot: %d entries but value %s", len(entries), e.Value)
						return
					}
				}
			}
		}()
	}

	for i := 1; i <= rounds; i++ {
		batch := make(map[string]string, i)
		for k := 0; k < i; k++ {
			batch[fmt.Sprint(k)] = fmt.Sprint(i)
		}
		m.PutAll(batch)
	}
	close(done)
	wg.Wait()
}

func testMapPublications(t *testing.T, m adaptive.Map[string, string]) {
	v0 := m.Info().Version

	m.PutAll(map[string]string{"a": "1", "b": "2", "c": "3"})
	if v := m.Info().Version; v != v0+1 {
		t.Errorf("PutAll should publish once, version %d -> %d", v0, v)
	}

	m.Remove("missing")
	m.PutIfAbsent("a", "x")
	if v := m.Info().Version; v != v0+1 {
		t.Errorf("No-op writes should not publish, version %d -> %d", v0, v)
	}

	m.Clear()
	if v := m.Info().Version; v != v0+2 {
		t.Errorf("Clear should publish once, version %d -> %d", v0, v)
	}
}

func testMapFailFast(t *testing.T, m adaptive.Map[string, string]) {
	m.PutAll(map[string]string{"a": "1", "b": "2"})

	it := m.Iterator()
	if _, err := it.Next(); err != nil {
		t.Fatalf("Next failed: %v", err)
	}

	// overwriting is not structural
	m.Put("a", "changed")
	if _, err := it.Next(); err != nil {
		t.Fatalf("Next after overwrite failed: %v", err)
	}

	it = m.Iterator()
	m.Put("c", "3")
	_, err := it.Next()
	requireCode(t, err, adaptive.ErrConcurrentModification)

	it = m.Iterator()
	m.Remove("a")
	_, err = it.Next()
	requireCode(t, err, adaptive.ErrConcurrentModification)
}

func testMapIteratorRemove(t *testing.T, m adaptive.Map[string, string]) {
	m.PutAll(map[string]string{"a": "1", "b": "2", "c": "3"})

	it := m.Iterator()
	for it.HasNext() {
		e, err := it.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if e.Key != "b" {
			if err := it.Remove(); err != nil {
				t.Fatalf("Remove failed: %v", err)
			}
		}
	}

	if keys := m.Keys(); !slices.Equal(keys, []string{"b"}) {
		t.Errorf("Expected only b to remain, got %v", keys)
	}
}
