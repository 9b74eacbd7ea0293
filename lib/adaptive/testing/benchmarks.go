package testing

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/adaptive/lib/adaptive"
)

// benchSize is the number of elements every benchmark container is prefilled with.
// Writes overwrite existing elements so that the FAST clone cost stays constant.
const benchSize = 1024

// RunListBenchmarks runs the list benchmarks in both modes
func RunListBenchmarks(b *testing.B, name string, factory ListFactory) {
	for _, mode := range []adaptive.Mode{adaptive.ModeSlow, adaptive.ModeFast} {
		newList := func() adaptive.List[string] {
			l := factory(adaptive.DefaultOptions().WithMode(mode).WithName(name))
			for i := 0; i < benchSize; i++ {
				l.Add(fmt.Sprintf("value-%d", i))
			}
			return l
		}

		b.Run(mode.String(), func(b *testing.B) {
			b.Run("Get", func(b *testing.B) {
				l := newList()
				benchmarkMixed(b, 0, func(i int) { l.Get(i % benchSize) }, nil)
			})
			b.Run("Set", func(b *testing.B) {
				l := newList()
				benchmarkMixed(b, 100, nil, func(i int) { l.Set(i%benchSize, fmt.Sprintf("set-%d", i)) })
			})
			b.Run("Mixed(90/10)", func(b *testing.B) {
				l := newList()
				benchmarkMixed(b, 10,
					func(i int) { l.Get(i % benchSize) },
					func(i int) { l.Set(i%benchSize, fmt.Sprintf("set-%d", i)) })
			})
			b.Run("Iterate", func(b *testing.B) {
				l := newList()
				benchmarkMixed(b, 0, func(int) {
					for range l.All() {
					}
				}, nil)
			})
		})
	}
}

// RunMapBenchmarks runs the map benchmarks in both modes
func RunMapBenchmarks(b *testing.B, name string, factory MapFactory) {
	for _, mode := range []adaptive.Mode{adaptive.ModeSlow, adaptive.ModeFast} {
		newMap := func() adaptive.Map[string, string] {
			m := factory(adaptive.DefaultOptions().WithMode(mode).WithName(name))
			for i := 0; i < benchSize; i++ {
				m.Put(benchKey(i), fmt.Sprintf("value-%d", i))
			}
			return m
		}

		b.Run(mode.String(), func(b *testing.B) {
			b.Run("Get", func(b *testing.B) {
				m := newMap()
				benchmarkMixed(b, 0, func(i int) { m.Get(benchKey(i)) }, nil)
			})
			b.Run("PutExisting", func(b *testing.B) {
				m := newMap()
				benchmarkMixed(b, 100, nil, func(i int) { m.Put(benchKey(i), "updated") })
			})
			b.Run("Mixed(90/10)", func(b *testing.B) {
				m := newMap()
				benchmarkMixed(b, 10,
					func(i int) { m.Get(benchKey(i)) },
					func(i int) { m.Put(benchKey(i), "updated") })
			})
			b.Run("Mixed(50/50)", func(b *testing.B) {
				m := newMap()
				benchmarkMixed(b, 50,
					func(i int) { m.ContainsKey(benchKey(i)) },
					func(i int) {
						if i%2 == 0 {
							m.Remove(benchKey(i))
						} else {
							m.Put(benchKey(i), "updated")
						}
					})
			})
		})
	}
}

// RunSortedMapBenchmarks runs the sorted map benchmarks in both modes
func RunSortedMapBenchmarks(b *testing.B, name string, factory SortedMapFactory) {
	for _, mode := range []adaptive.Mode{adaptive.ModeSlow, adaptive.ModeFast} {
		newMap := func() adaptive.SortedMap[string, string] {
			m := factory(adaptive.DefaultOptions().WithMode(mode).WithName(name))
			for i := 0; i < benchSize; i++ {
				m.Put(benchKey(i), fmt.Sprintf("value-%d", i))
			}
			return m
		}

		b.Run(mode.String(), func(b *testing.B) {
			b.Run("Get", func(b *testing.B) {
				m := newMap()
				benchmarkMixed(b, 0, func(i int) { m.Get(benchKey(i)) }, nil)
			})
			b.Run("Floor", func(b *testing.B) {
				m := newMap()
				benchmarkMixed(b, 0, func(i int) { m.Floor(benchKey(i) + "x") }, nil)
			})
			b.Run("PutExisting", func(b *testing.B) {
				m := newMap()
				benchmarkMixed(b, 100, nil, func(i int) { m.Put(benchKey(i), "updated") })
			})
			b.Run("Mixed(90/10)", func(b *testing.B) {
				m := newMap()
				benchmarkMixed(b, 10,
					func(i int) { m.Get(benchKey(i)) },
					func(i int) { m.Put(benchKey(i), "updated") })
			})
		})
	}
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func benchKey(i int) string {
	return fmt.Sprintf("key-%05d", i%benchSize)
}

// benchmarkMixed runs read and write in parallel goroutines. writePercent of
// all operations call write, the rest call read. A nil function is never called.
func benchmarkMixed(b *testing.B, writePercent int, read, write func(i int)) {
	var counter int64

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := int(atomic.AddInt64(&counter, 1) - 1)
			if write != nil && (read == nil || i%100 < writePercent) {
				write(i)
			} else if read != nil {
				read(i)
			}
		}
	})
}
