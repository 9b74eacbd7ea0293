package testing

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/ValentinKolb/adaptive/lib/adaptive"
)

// ListFactory creates a new, empty list with the given options
type ListFactory func(opts *adaptive.Options) adaptive.List[string]

// RunListTests runs the conformance suite for a List implementation in both modes.
func RunListTests(t *testing.T, name string, factory ListFactory) {
	t.Run(name, func(t *testing.T) {
		for _, mode := range []adaptive.Mode{adaptive.ModeSlow, adaptive.ModeFast} {
			newList := func() adaptive.List[string] {
				return factory(adaptive.DefaultOptions().WithMode(mode).WithName(name))
			}

			t.Run(mode.String(), func(t *testing.T) {
				t.Run("InitialMode", func(t *testing.T) {
					testInitialMode(t, newList(), mode)
				})
				t.Run("AddGet", func(t *testing.T) {
					testListAddGet(t, newList())
				})
				t.Run("Set", func(t *testing.T) {
					testListSet(t, newList())
				})
				t.Run("InsertAndBounds", func(t *testing.T) {
					testListInsertAndBounds(t, newList())
				})
				t.Run("Remove", func(t *testing.T) {
					testListRemove(t, newList())
				})
				t.Run("BulkOperations", func(t *testing.T) {
					testListBulkOperations(t, newList())
				})
				t.Run("ContainsIndexOf", func(t *testing.T) {
					testListContainsIndexOf(t, newList())
				})
				t.Run("ClearAndToSlice", func(t *testing.T) {
					testListClearAndToSlice(t, newList())
				})
				t.Run("Iterator", func(t *testing.T) {
					testListIterator(t, newList())
				})
				t.Run("All", func(t *testing.T) {
					testListAll(t, newList())
				})
				t.Run("FailedWriteLeavesState", func(t *testing.T) {
					testListFailedWrite(t, newList())
				})
				t.Run("ModeToggle", func(t *testing.T) {
					testListModeToggle(t, newList())
				})
				t.Run("ConcurrentAdds", func(t *testing.T) {
					testListConcurrentAdds(t, newList())
				})
				t.Run("ConcurrentReadsDuringWrites", func(t *testing.T) {
					testListConcurrentReads(t, newList())
				})

				if mode == adaptive.ModeFast {
					t.Run("SnapshotScenario", func(t *testing.T) {
						testListSnapshotScenario(t, newList())
					})
					t.Run("IteratorIsolation", func(t *testing.T) {
						testListIteratorIsolation(t, newList())
					})
					t.Run("OnePublicationPerWrite", func(t *testing.T) {
						testListPublications(t, newList())
					})
				} else {
					t.Run("FailFastScenario", func(t *testing.T) {
						testListFailFastScenario(t, newList())
					})
					t.Run("IteratorRemove", func(t *testing.T) {
						testListIteratorRemove(t, newList())
					})
					t.Run("SwitchInvalidatesIterator", func(t *testing.T) {
						testSwitchInvalidatesIterator(t, newList())
					})
				}
			})
		}
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// requireCode fails the test if err is not an *adaptive.Error with the given code
func requireCode(t testing.TB, err error, sentinel *adaptive.Error) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected %s error, got nil", sentinel.Code)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("Expected %s error, got %v", sentinel.Code, err)
	}
}

// drain collects the remaining elements of an iterator
func drain[T any](t testing.TB, it adaptive.Iterator[T]) []T {
	t.Helper()
	var out []T
	for it.HasNext() {
		v, err := it.Next()
		if err != nil {
			t.Fatalf("Unexpected iterator error: %v", err)
		}
		out = append(out, v)
	}
	return out
}

func testInitialMode(t *testing.T, c adaptive.Container, mode adaptive.Mode) {
	if c.IsFast() != (mode == adaptive.ModeFast) {
		t.Errorf("Expected container to start in %s mode", mode)
	}
	if info := c.Info(); info.Mode != mode || info.Size != 0 {
		t.Errorf("Unexpected info for a new container: %+v", info)
	}
	if !c.IsEmpty() || c.Size() != 0 {
		t.Errorf("New container should be empty")
	}
}

func fill(l adaptive.List[string], values ...string) {
	for _, v := range values {
		l.Add(v)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testListAddGet(t *testing.T, l adaptive.List[string]) {
	fill(l, "a", "b", "c")

	if l.Size() != 3 {
		t.Fatalf("Expected size 3, got %d", l.Size())
	}
	for i, want := range []string{"a", "b", "c"} {
		got, err := l.Get(i)
		if err != nil || got != want {
			t.Errorf("Get(%d) = %q, %v; want %q", i, got, err, want)
		}
	}

	_, err := l.Get(3)
	requireCode(t, err, adaptive.ErrIndexOutOfRange)
	_, err = l.Get(-1)
	requireCode(t, err, adaptive.ErrIndexOutOfRange)
}

func testListSet(t *testing.T, l adaptive.List[string]) {
	fill(l, "a", "b")

	prev, err := l.Set(1, "B")
	if err != nil || prev != "b" {
		t.Errorf("Set returned %q, %v; want \"b\", nil", prev, err)
	}
	if v, _ := l.Get(1); v != "B" {
		t.Errorf("Expected B at index 1, got %q", v)
	}

	// setting the same value again is a no-op
	prev, err = l.Set(1, "B")
	if err != nil || prev != "B" {
		t.Errorf("Set returned %q, %v; want \"B\", nil", prev, err)
	}

	_, err = l.Set(2, "x")
	requireCode(t, err, adaptive.ErrIndexOutOfRange)
}

func testListInsertAndBounds(t *testing.T, l adaptive.List[string]) {
	if err := l.Insert(0, "b"); err != nil {
		t.Fatalf("Insert into empty list failed: %v", err)
	}
	if err := l.Insert(0, "a"); err != nil {
		t.Fatalf("Insert at head failed: %v", err)
	}
	if err := l.Insert(2, "d"); err != nil {
		t.Fatalf("Insert at size failed: %v", err)
	}
	if err := l.Insert(2, "c"); err != nil {
		t.Fatalf("Insert in the middle failed: %v", err)
	}

	if got := l.ToSlice(); !slices.Equal(got, []string{"a", "b", "c", "d"}) {
		t.Errorf("Unexpected content %v", got)
	}

	requireCode(t, l.Insert(5, "x"), adaptive.ErrIndexOutOfRange)
	requireCode(t, l.Insert(-1, "x"), adaptive.ErrIndexOutOfRange)
}

func testListRemove(t *testing.T, l adaptive.List[string]) {
	fill(l, "a", "b", "c", "b")

	v, err := l.RemoveAt(0)
	if err != nil || v != "a" {
		t.Errorf("RemoveAt(0) = %q, %v; want \"a\", nil", v, err)
	}
	_, err = l.RemoveAt(3)
	requireCode(t, err, adaptive.ErrIndexOutOfRange)

	if !l.Remove("b") {
		t.Errorf("Remove(b) should report true")
	}
	if l.Remove("x") {
		t.Errorf("Remove(x) should report false")
	}
	if got := l.ToSlice(); !slices.Equal(got, []string{"c", "b"}) {
		t.Errorf("Unexpected content after removals %v", got)
	}
}

func testListBulkOperations(t *testing.T, l adaptive.List[string]) {
	l.AddAll("a", "d")
	if err := l.InsertAll(1, []string{"b", "c"}); err != nil {
		t.Fatalf("InsertAll failed: %v", err)
	}
	if got := l.ToSlice(); !slices.Equal(got, []string{"a", "b", "c", "d"}) {
		t.Errorf("Unexpected content %v", got)
	}

	requireCode(t, l.InsertAll(9, []string{"x"}), adaptive.ErrIndexOutOfRange)

	removed := l.RemoveIf(func(s string) bool { return s == "b" || s == "d" })
	if removed != 2 {
		t.Errorf("Expected RemoveIf to remove 2 elements, got %d", removed)
	}
	if got := l.ToSlice(); !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("Unexpected content after RemoveIf %v", got)
	}
	if removed := l.RemoveIf(func(string) bool { return false }); removed != 0 {
		t.Errorf("Expected RemoveIf to remove nothing, got %d", removed)
	}

	l.AddAll()
	if l.Size() != 2 {
		t.Errorf("AddAll without values should not change the list")
	}
}

func testListContainsIndexOf(t *testing.T, l adaptive.List[string]) {
	fill(l, "a", "b", "a")

	if !l.Contains("b") || l.Contains("z") {
		t.Errorf("Contains returned wrong result")
	}
	if l.IndexOf("a") != 0 || l.IndexOf("b") != 1 || l.IndexOf("z") != -1 {
		t.Errorf("IndexOf returned wrong result")
	}
}

func testListClearAndToSlice(t *testing.T, l adaptive.List[string]) {
	fill(l, "a", "b")

	out := l.ToSlice()
	out[0] = "changed"
	if v, _ := l.Get(0); v != "a" {
		t.Errorf("ToSlice should return a copy, list now holds %q", v)
	}

	l.Clear()
	if !l.IsEmpty() {
		t.Errorf("Expected empty list after Clear")
	}
	if got := l.ToSlice(); got == nil || len(got) != 0 {
		t.Errorf("ToSlice of an empty list should be an empty slice, got %#v", got)
	}

	// clearing an empty list is a no-op
	l.Clear()
	l.Add("c")
	if l.Size() != 1 {
		t.Errorf("List should be usable after Clear")
	}
}

func testListIterator(t *testing.T, l adaptive.List[string]) {
	fill(l, "a", "b", "c")

	it := l.Iterator()
	if got := drain[string](t, it); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("Iterator yielded %v", got)
	}
	_, err := it.Next()
	requireCode(t, err, adaptive.ErrNoSuchElement)
}

func testListAll(t *testing.T, l adaptive.List[string]) {
	fill(l, "a", "b", "c")

	var got []string
	for i, v := range l.All() {
		if want, _ := l.Get(i); want != v {
			t.Errorf("All yielded %q at %d, Get returned %q", v, i, want)
		}
		got = append(got, v)
		if i == 1 {
			break
		}
	}
	if !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("All yielded %v", got)
	}

	// the loop body may write to the list in both modes
	for _, v := range l.All() {
		l.Add(v + v)
	}
	if l.Size() != 6 {
		t.Errorf("Expected 6 elements after adding inside All, got %d", l.Size())
	}
}

func testListFailedWrite(t *testing.T, l adaptive.List[string]) {
	fill(l, "a")
	before := l.Info().Version

	_, _ = l.Set(5, "x")
	_ = l.Insert(7, "x")
	_, _ = l.RemoveAt(3)
	l.Remove("missing")

	if got := l.ToSlice(); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Failed writes changed the list: %v", got)
	}
	if after := l.Info().Version; after != before {
		t.Errorf("Failed writes published a snapshot (version %d -> %d)", before, after)
	}
}

func testListModeToggle(t *testing.T, l adaptive.List[string]) {
	fill(l, "a", "b", "c")
	start := l.IsFast()

	l.SetFast(!start)
	l.SetFast(start)
	l.SetFast(start) // already active, no-op
	if l.IsFast() != start {
		t.Fatalf("Mode did not return to its start value")
	}
	if got := l.ToSlice(); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("Toggling the mode changed the content: %v", got)
	}

	// writes keep working in the other mode
	l.SetFast(!start)
	l.Add("d")
	l.SetFast(start)
	if got := l.ToSlice(); !slices.Equal(got, []string{"a", "b", "c", "d"}) {
		t.Errorf("Write in the other mode was lost: %v", got)
	}
}

func testListConcurrentAdds(t *testing.T, l adaptive.List[string]) {
	const numWorkers = 16
	const perWorker = 100

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				l.Add(fmt.Sprintf("%d-%d", w, i))
			}
		}(w)
	}
	wg.Wait()

	if l.Size() != numWorkers*perWorker {
		t.Fatalf("Lost updates: expected %d elements, got %d", numWorkers*perWorker, l.Size())
	}
	seen := make(map[string]bool)
	for _, v := range l.ToSlice() {
		if seen[v] {
			t.Errorf("Duplicate element %q", v)
		}
		seen[v] = true
	}
}

// readers check that every view they take is one that some write produced:
// the list always holds "0".."n-1" in order
func testListConcurrentReads(t *testing.T, l adaptive.List[string]) {
	const numWrites = 200

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
				view := l.ToSlice()
				for i, v := range view {
					if v != fmt.Sprint(i) {
						t.Errorf("Torn view: %v", view)
						return
					}
				}
			}
		}()
	}

	for i := 0; i < numWrites; i++ {
		if i%10 == 9 {
			l.AddAll(fmt.Sprint(i))
		} else {
			l.Add(fmt.Sprint(i))
		}
	}
	close(done)
	wg.Wait()

	if l.Size() != numWrites {
		t.Errorf("Expected %d elements, got %d", numWrites, l.Size())
	}
}

func testListSnapshotScenario(t *testing.T, l adaptive.List[string]) {
	l.Add("a")
	l.Add("b")
	l.Add("c")

	if l.Size() != 3 {
		t.Fatalf("Expected size 3, got %d", l.Size())
	}
	if v, _ := l.Get(1); v != "b" {
		t.Fatalf("Expected b at index 1, got %q", v)
	}

	it := l.Iterator()
	l.Add("d")

	if l.Size() != 4 {
		t.Errorf("Expected size 4, got %d", l.Size())
	}
	if got := drain[string](t, it); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("Iterator should yield the snapshot [a b c], got %v", got)
	}
	requireCode(t, it.Remove(), adaptive.ErrUnsupported)
}

func testListIteratorIsolation(t *testing.T, l adaptive.List[string]) {
	const initial = 100
	for i := 0; i < initial; i++ {
		l.Add(fmt.Sprint(i))
	}

	it := l.Iterator()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				l.Add("new")
				_, _ = l.RemoveAt(0)
			}
		}()
	}

	got := drain[string](t, it)
	wg.Wait()

	if len(got) != initial {
		t.Fatalf("Iterator yielded %d elements, want %d", len(got), initial)
	}
	for i, v := range got {
		if v != fmt.Sprint(i) {
			t.Fatalf("Iterator yielded %q at %d", v, i)
		}
	}
}

func testListPublications(t *testing.T, l adaptive.List[string]) {
	v0 := l.Info().Version

	l.AddAll("a", "b", "c", "d")
	if v := l.Info().Version; v != v0+1 {
		t.Errorf("AddAll should publish once, version %d -> %d", v0, v)
	}

	_ = l.InsertAll(0, []string{"x", "y"})
	if v := l.Info().Version; v != v0+2 {
		t.Errorf("InsertAll should publish once, version %d -> %d", v0, v)
	}

	l.RemoveIf(func(s string) bool { return s != "a" })
	if v := l.Info().Version; v != v0+3 {
		t.Errorf("RemoveIf should publish once, version %d -> %d", v0, v)
	}

	l.Clear()
	if v := l.Info().Version; v != v0+4 {
		t.Errorf("Clear should publish once, version %d -> %d", v0, v)
	}
}

func testListFailFastScenario(t *testing.T, l adaptive.List[string]) {
	l.Add("x")
	it := l.Iterator()

	if _, err := l.RemoveAt(0); err != nil {
		t.Fatalf("RemoveAt failed: %v", err)
	}

	_, err := it.Next()
	requireCode(t, err, adaptive.ErrConcurrentModification)
}

func testListIteratorRemove(t *testing.T, l adaptive.List[string]) {
	fill(l, "a", "b", "c", "d")

	it := l.Iterator()
	requireCode(t, it.Remove(), adaptive.ErrIllegalState)

	for it.HasNext() {
		v, err := it.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if v == "b" || v == "c" {
			if err := it.Remove(); err != nil {
				t.Fatalf("Remove failed: %v", err)
			}
			// a second Remove without Next is rejected
			requireCode(t, it.Remove(), adaptive.ErrIllegalState)
		}
	}

	if got := l.ToSlice(); !slices.Equal(got, []string{"a", "d"}) {
		t.Errorf("Unexpected content after iterator removals %v", got)
	}

	// overwriting is not structural and keeps the iterator valid
	it = l.Iterator()
	if _, err := l.Set(0, "A"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v, err := it.Next(); err != nil || v != "A" {
		t.Errorf("Next after Set = %q, %v; want \"A\", nil", v, err)
	}
}

func testSwitchInvalidatesIterator(t *testing.T, c interface {
	adaptive.Container
	Iterator() adaptive.Iterator[string]
	Add(string)
}) {
	c.Add("a")
	it := c.Iterator()

	c.SetFast(true)
	c.SetFast(false)

	_, err := it.Next()
	requireCode(t, err, adaptive.ErrConcurrentModification)
}
