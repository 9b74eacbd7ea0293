package hashmap

import (
	"maps"
	"slices"
	"strconv"
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
	adaptivetesting.RunMapTests(t, "HashMap", func(opts *adaptive.Options) adaptive.Map[string, string] {
		return New[string, string](opts)
	})
}

func Benchmark(b *testing.B) {
	adaptivetesting.RunMapBenchmarks(b, "HashMap", func(opts *adaptive.Options) adaptive.Map[string, string] {
		return New[string, string](opts)
	})
}

func TestNewFromCopiesSource(t *testing.T) {
	for _, mode := range []adaptive.Mode{adaptive.ModeSlow, adaptive.ModeFast} {
		src := map[string]int{"a": 1, "b": 2}
		m := NewFrom(src, adaptive.DefaultOptions().WithMode(mode))

		src["a"] = 100
		src["c"] = 3

		v, ok := m.Get("a")
		assert.True(t, ok, mode.String())
		assert.Equal(t, 1, v, mode.String())
		assert.Equal(t, 2, m.Size(), mode.String())
	}
}

func TestInfo(t *testing.T) {
	opts := adaptive.DefaultOptions().WithMode(adaptive.ModeFast).WithName("sessions")
	opts.CollectStats = true
	m := New[string, int](opts)

	m.Put("a", 1)
	m.Put("a", 2)         // overwrite publishes
	m.PutIfAbsent("a", 3) // no-op, clone is dropped

	info := m.Info()
	assert.Equal(t, "hashmap", info.Kind)
	assert.Equal(t, "sessions", info.Name)
	assert.Equal(t, adaptive.ModeFast, info.Mode)
	assert.Equal(t, 1, info.Size)
	assert.Equal(t, uint64(3), info.Version)

	require.NotNil(t, info.Stats)
	assert.Equal(t, int64(3), info.Stats.Publications)
	assert.Equal(t, int64(1), info.Stats.DiscardedClones)
}

func TestSwitchKeepsContent(t *testing.T) {
	m := New[int, string](nil)
	for i := 0; i < 100; i++ {
		m.Put(i, strconv.Itoa(i))
	}

	m.SetFast(true)
	v0 := m.Info().Version
	assert.Equal(t, 100, m.Size())

	m.SetFast(true) // no-op
	assert.Equal(t, v0, m.Info().Version)

	m.Remove(0)
	m.SetFast(false)
	assert.Equal(t, 99, m.Size())
	_, ok := m.Get(0)
	assert.False(t, ok)
}

// TestMatchesMapModel applies random puts, removes and mode switches to a map
// and to a plain Go map and compares both after every step.
func TestMatchesMapModel(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("map behaves like a Go map across mode switches",
		prop.ForAll(
			func(ops []int) bool {
				m := New[int, int](nil)
				model := map[int]int{}

				for i, op := range ops {
					key := op / 5
					switch op % 5 {
					case 0, 1:
						prev, loaded := m.Put(key, i)
						mprev, mloaded := model[key]
						if loaded != mloaded || prev != mprev {
							return false
						}
						model[key] = i
					case 2:
						actual, loaded := m.PutIfAbsent(key, i)
						if mv, ok := model[key]; ok {
							if !loaded || actual != mv {
								return false
							}
						} else {
							if loaded || actual != i {
								return false
							}
							model[key] = i
						}
					case 3:
						prev, loaded := m.Remove(key)
						mprev, mloaded := model[key]
						if loaded != mloaded || prev != mprev {
							return false
						}
						delete(model, key)
					case 4:
						m.SetFast(!m.IsFast())
					}

					keys := m.Keys()
					slices.Sort(keys)
					if !slices.Equal(keys, slices.Sorted(maps.Keys(model))) {
						return false
					}
				}

				got := map[int]int{}
				for k, v := range m.All() {
					got[k] = v
				}
				return maps.Equal(got, model)
			},
			gen.SliceOf(gen.IntRange(0, 99)),
		))

	properties.TestingRun(t)
}
