package sortedmap

import (
	"cmp"
	"errors"
	"maps"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/ValentinKolb/adaptive/lib/adaptive"
	adaptivetesting "github.com/ValentinKolb/adaptive/lib/adaptive/testing"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test(t *testing.T) {
	adaptivetesting.RunSortedMapTests(t, "SortedMap", func(opts *adaptive.Options) adaptive.SortedMap[string, string] {
		return NewOrdered[string, string](opts)
	})
}

func TestComparator(t *testing.T) {
	adaptivetesting.RunSortedMapTests(t, "SortedMap(cmp)", func(opts *adaptive.Options) adaptive.SortedMap[string, string] {
		return New[string, string](strings.Compare, opts)
	})
}

func Benchmark(b *testing.B) {
	adaptivetesting.RunSortedMapBenchmarks(b, "SortedMap", func(opts *adaptive.Options) adaptive.SortedMap[string, string] {
		return NewOrdered[string, string](opts)
	})
}

func comparePtr(a, b *string) int {
	return strings.Compare(*a, *b)
}

func TestRejectsNilKeys(t *testing.T) {
	for _, mode := range []adaptive.Mode{adaptive.ModeSlow, adaptive.ModeFast} {
		m := New[*string, int](comparePtr, adaptive.DefaultOptions().WithMode(mode))
		version := m.Info().Version

		_, _, err := m.Put(nil, 1)
		require.Error(t, err, mode.String())
		assert.True(t, errors.Is(err, adaptive.ErrIllegalArgument))

		_, _, err = m.PutIfAbsent(nil, 1)
		assert.True(t, errors.Is(err, adaptive.ErrIllegalArgument))

		a := "a"
		err = m.PutAll(adaptive.Entry[*string, int]{Key: &a, Value: 1}, adaptive.Entry[*string, int]{Key: nil, Value: 2})
		assert.True(t, errors.Is(err, adaptive.ErrIllegalArgument))
		assert.True(t, m.IsEmpty(), "a rejected PutAll must not apply any entry")

		_, ok := m.Get(nil)
		assert.False(t, ok)
		_, ok = m.Remove(nil)
		assert.False(t, ok)
		_, ok = m.Floor(nil)
		assert.False(t, ok)

		assert.Equal(t, version, m.Info().Version, "rejected writes must not publish")
	}
}

func TestRejectsNaN(t *testing.T) {
	m := NewOrdered[float64, string](adaptive.DefaultOptions().WithMode(adaptive.ModeFast))

	_, _, err := m.Put(math.NaN(), "nan")
	assert.True(t, errors.Is(err, adaptive.ErrIllegalArgument))

	_, _, err = m.Put(math.Inf(-1), "-inf")
	require.NoError(t, err)
	_, _, err = m.Put(1.5, "x")
	require.NoError(t, err)

	first, err := m.First()
	require.NoError(t, err)
	assert.Equal(t, "-inf", first.Value)

	_, ok := m.Ceiling(math.NaN())
	assert.False(t, ok)
}

func TestNewFrom(t *testing.T) {
	entries := []adaptive.Entry[string, int]{
		{Key: "b", Value: 2},
		{Key: "a", Value: 1},
		{Key: "b", Value: 3},
	}
	m, err := NewFrom(strings.Compare, entries, adaptive.DefaultOptions().WithMode(adaptive.ModeFast))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, m.Keys())

	v, ok := m.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 3, v, "later entries overwrite earlier ones")

	_, err = NewFrom(comparePtr, []adaptive.Entry[*string, int]{{Key: nil}}, nil)
	assert.True(t, errors.Is(err, adaptive.ErrIllegalArgument))
}

func TestRangeWithRejectedBound(t *testing.T) {
	m := NewOrdered[float64, int](nil)
	require.NoError(t, m.PutAll(
		adaptive.Entry[float64, int]{Key: 1, Value: 1},
		adaptive.Entry[float64, int]{Key: 2, Value: 2},
	))

	n := 0
	for range m.Range(0, math.NaN()) {
		n++
	}
	assert.Equal(t, 0, n)
}

func TestSnapshotSharesStructure(t *testing.T) {
	m := NewOrdered[int, int](adaptive.DefaultOptions().WithMode(adaptive.ModeFast))
	for i := 0; i < 1000; i++ {
		_, _, err := m.Put(i, i)
		require.NoError(t, err)
	}

	// an iterator on the old tree is unaffected by writes to the copies
	it := m.Iterator()
	for i := 0; i < 1000; i += 2 {
		m.Remove(i)
	}
	assert.Equal(t, 500, m.Size())

	count := 0
	for it.HasNext() {
		e, err := it.Next()
		require.NoError(t, err)
		assert.Equal(t, count, e.Key)
		count++
	}
	assert.Equal(t, 1000, count)
}

// TestMatchesSortedModel applies random writes and mode switches to a sorted
// map and to a Go map and compares the ordered content and the navigation
// methods after every step.
func TestMatchesSortedModel(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("sorted map behaves like a sorted Go map across mode switches",
		prop.ForAll(
			func(ops []int) bool {
				m := NewOrdered[int, int](nil)
				model := map[int]int{}

				for i, op := range ops {
					key := op / 4
					switch op % 4 {
					case 0, 1:
						if _, _, err := m.Put(key, i); err != nil {
							return false
						}
						model[key] = i
					case 2:
						m.Remove(key)
						delete(model, key)
					case 3:
						m.SetFast(!m.IsFast())
					}

					keys := slices.Sorted(maps.Keys(model))
					if !slices.Equal(m.Keys(), keys) {
						return false
					}

					floor, fok := m.Floor(key)
					ceiling, cok := m.Ceiling(key)
					wantFloor, wantFok := modelFloor(keys, key)
					wantCeiling, wantCok := modelCeiling(keys, key)
					if fok != wantFok || (fok && floor.Key != wantFloor) {
						return false
					}
					if cok != wantCok || (cok && ceiling.Key != wantCeiling) {
						return false
					}
				}
				return true
			},
			gen.SliceOf(gen.IntRange(0, 199)),
		))

	properties.TestingRun(t)
}

func modelFloor(sorted []int, key int) (int, bool) {
	i, found := slices.BinarySearchFunc(sorted, key, cmp.Compare[int])
	if found {
		return sorted[i], true
	}
	if i == 0 {
		return 0, false
	}
	return sorted[i-1], true
}

func modelCeiling(sorted []int, key int) (int, bool) {
	i, _ := slices.BinarySearchFunc(sorted, key, cmp.Compare[int])
	if i == len(sorted) {
		return 0, false
	}
	return sorted[i], true
}
