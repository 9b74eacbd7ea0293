package list

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/ValentinKolb/adaptive/lib/adaptive"
	adaptivetesting "github.com/ValentinKolb/adaptive/lib/adaptive/testing"
	"github.com/VictoriaMetrics/metrics"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test(t *testing.T) {
	adaptivetesting.RunListTests(t, "List", func(opts *adaptive.Options) adaptive.List[string] {
		return New[string](opts)
	})
}

func Benchmark(b *testing.B) {
	adaptivetesting.RunListBenchmarks(b, "List", func(opts *adaptive.Options) adaptive.List[string] {
		return New[string](opts)
	})
}

func TestDefaultsToSlowMode(t *testing.T) {
	l := New[int](nil)
	assert.False(t, l.IsFast())
	assert.Equal(t, adaptive.ModeSlow, l.Info().Mode)
	assert.Equal(t, "list", l.Info().Kind)
	assert.Nil(t, l.Info().Stats)
}

func TestNewFromCopiesSource(t *testing.T) {
	for _, mode := range []adaptive.Mode{adaptive.ModeSlow, adaptive.ModeFast} {
		src := []string{"a", "b", "c"}
		l := NewFrom(src, adaptive.DefaultOptions().WithMode(mode))

		src[0] = "changed"
		v, err := l.Get(0)
		require.NoError(t, err)
		assert.Equal(t, "a", v, mode.String())
		assert.Equal(t, []string{"a", "b", "c"}, l.ToSlice(), mode.String())
	}
}

func TestToSliceIsACopy(t *testing.T) {
	l := NewFrom([]int{1, 2, 3}, adaptive.DefaultOptions().WithMode(adaptive.ModeFast))
	out := l.ToSlice()
	out[0] = 42

	v, err := l.Get(0)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestErrorsWrapCodes(t *testing.T) {
	l := New[int](nil)

	_, err := l.Get(3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, adaptive.ErrIndexOutOfRange))

	var aerr *adaptive.Error
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, adaptive.RetCIndexOutOfRange, aerr.Code)
	assert.Contains(t, aerr.Error(), "index 3 out of range for length 0")
}

func TestStats(t *testing.T) {
	opts := adaptive.DefaultOptions().WithMode(adaptive.ModeFast)
	opts.CollectStats = true
	l := New[string](opts)

	l.Add("a")
	l.Add("b")
	_, err := l.Set(0, "a") // same value, the clone is dropped
	require.NoError(t, err)
	_, err = l.Get(1)
	require.NoError(t, err)

	stats := l.Info().Stats
	require.NotNil(t, stats)
	assert.Equal(t, int64(3), stats.Publications) // construction and two adds
	assert.Equal(t, int64(3), stats.Writes)
	assert.Equal(t, int64(1), stats.DiscardedClones)
	assert.Equal(t, int64(0+1+2), stats.ClonedElements)
	assert.GreaterOrEqual(t, stats.FastReads, int64(1))
	assert.Equal(t, int64(0), stats.SlowReads)

	l.SetFast(false)
	_, err = l.Get(0)
	require.NoError(t, err)

	stats = l.Info().Stats
	assert.Equal(t, int64(1), stats.ModeSwitches)
	assert.GreaterOrEqual(t, stats.SlowReads, int64(1))
}

func TestPrometheusMetrics(t *testing.T) {
	set := metrics.NewSet()
	opts := adaptive.DefaultOptions().WithMode(adaptive.ModeFast).WithName("jobs")
	opts.Metrics = set

	l := New[string](opts)
	l.Add("a")
	l.Add("b")

	var buf bytes.Buffer
	set.WritePrometheus(&buf)
	out := buf.String()

	assert.Contains(t, out, `adaptive_publications_total{kind="list",name="jobs"} 3`)
	assert.Contains(t, out, `adaptive_fast_mode{kind="list",name="jobs"} 1`)

	l.SetFast(false)
	buf.Reset()
	set.WritePrometheus(&buf)
	out = buf.String()

	assert.Contains(t, out, `adaptive_mode_switches_total{kind="list",name="jobs"} 1`)
	assert.Contains(t, out, `adaptive_fast_mode{kind="list",name="jobs"} 0`)
}

func TestClearWithoutContentKeepsVersion(t *testing.T) {
	l := New[int](adaptive.DefaultOptions().WithMode(adaptive.ModeFast))
	v := l.Info().Version

	l.Clear()
	assert.Equal(t, v, l.Info().Version)

	l.Add(1)
	l.Clear()
	assert.Equal(t, v+2, l.Info().Version)
	assert.True(t, l.IsEmpty())
}

// TestMatchesSliceModel applies random operations to a list and to a plain
// slice and compares both after every step. Mode switches are part of the
// operation mix.
func TestRemoveIfPanicLeavesListUnchanged(t *testing.T) {
	for _, mode := range []adaptive.Mode{adaptive.ModeSlow, adaptive.ModeFast} {
		t.Run(mode.String(), func(t *testing.T) {
			l := NewFrom([]string{"a", "b", "c", "d"}, adaptive.DefaultOptions().WithMode(mode))
			v := l.Info().Version

			assert.Panics(t, func() {
				l.RemoveIf(func(s string) bool {
					if s == "c" {
						panic("predicate failed")
					}
					return s == "a"
				})
			})

			assert.Equal(t, []string{"a", "b", "c", "d"}, l.ToSlice())
			assert.Equal(t, v, l.Info().Version)

			// the list stays usable after the failed write
			assert.Equal(t, 2, l.RemoveIf(func(s string) bool { return s == "a" || s == "c" }))
			assert.Equal(t, []string{"b", "d"}, l.ToSlice())
		})
	}
}

func TestMatchesSliceModel(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("list behaves like a slice across mode switches",
		prop.ForAll(
			func(ops []int) bool {
				l := New[int](nil)
				var model []int

				for i, op := range ops {
					arg := op / 7
					switch op % 7 {
					case 0:
						l.Add(arg)
						model = append(model, arg)
					case 1:
						if len(model) > 0 {
							idx := arg % len(model)
							if _, err := l.Set(idx, i); err != nil {
								return false
							}
							model[idx] = i
						}
					case 2:
						if len(model) > 0 {
							idx := arg % len(model)
							if _, err := l.RemoveAt(idx); err != nil {
								return false
							}
							model = slices.Delete(model, idx, idx+1)
						}
					case 3:
						idx := arg % (len(model) + 1)
						if err := l.Insert(idx, i); err != nil {
							return false
						}
						model = slices.Insert(model, idx, i)
					case 4:
						removed := l.Remove(arg)
						j := slices.Index(model, arg)
						if removed != (j >= 0) {
							return false
						}
						if j >= 0 {
							model = slices.Delete(model, j, j+1)
						}
					case 5:
						n := l.RemoveIf(func(v int) bool { return v%3 == 0 })
						before := len(model)
						model = slices.DeleteFunc(model, func(v int) bool { return v%3 == 0 })
						if n != before-len(model) {
							return false
						}
					case 6:
						l.SetFast(!l.IsFast())
					}

					if !slices.Equal(l.ToSlice(), model) || l.Size() != len(model) {
						return false
					}
				}
				return true
			},
			gen.SliceOf(gen.IntRange(0, 139)),
		))

	properties.TestingRun(t)
}
