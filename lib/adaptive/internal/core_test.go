package internal

import (
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/ValentinKolb/adaptive/lib/adaptive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type intsKind struct{}

func (intsKind) Name() string        { return "ints" }
func (intsKind) Clone(s []int) []int { return slices.Clone(s) }
func (intsKind) Len(s []int) int     { return len(s) }

func newCore(mode adaptive.Mode, initial ...int) *Core[[]int] {
	return NewCore[[]int](intsKind{}, initial, adaptive.DefaultOptions().WithMode(mode))
}

func appendValue(v int) func([]int) ([]int, Result, error) {
	return func(s []int) ([]int, Result, error) {
		return append(s, v), Structural, nil
	}
}

func content(c *Core[[]int]) (out []int) {
	c.Read(func(s []int) {
		out = slices.Clone(s)
	})
	return out
}

func TestFastWritePublishesNewVersion(t *testing.T) {
	c := newCore(adaptive.ModeFast, 1, 2)
	require.Equal(t, uint64(1), c.Info().Version)

	before := c.snapshot.Load()
	require.NoError(t, c.Write(appendValue(3)))

	after := c.snapshot.Load()
	assert.Equal(t, uint64(2), after.Version)
	assert.Equal(t, []int{1, 2}, before.Data, "published snapshots are never modified")
	assert.Equal(t, []int{1, 2, 3}, after.Data)
}

func TestFastWriteDiscardsClone(t *testing.T) {
	c := newCore(adaptive.ModeFast, 1)
	before := c.snapshot.Load()

	err := c.Write(func(s []int) ([]int, Result, error) {
		s[0] = 99
		return s, Unchanged, nil
	})
	require.NoError(t, err)
	assert.Same(t, before, c.snapshot.Load())

	failure := adaptive.NewError(adaptive.RetCIllegalArgument, "rejected")
	err = c.Write(func(s []int) ([]int, Result, error) {
		s[0] = 42
		return s, Structural, failure
	})
	assert.True(t, errors.Is(err, adaptive.ErrIllegalArgument))
	assert.Same(t, before, c.snapshot.Load())
	assert.Equal(t, []int{1}, content(c))
}

func TestSlowModCount(t *testing.T) {
	c := newCore(adaptive.ModeSlow, 1)
	assert.Nil(t, c.snapshot.Load())
	assert.Equal(t, uint64(0), c.Info().Version)

	require.NoError(t, c.Write(func(s []int) ([]int, Result, error) {
		s[0] = 2
		return s, Updated, nil
	}))
	assert.Equal(t, uint64(0), c.modCount)

	require.NoError(t, c.Write(appendValue(3)))
	assert.Equal(t, uint64(1), c.modCount)
	assert.Equal(t, []int{2, 3}, content(c))
}

func TestGuard(t *testing.T) {
	c := newCore(adaptive.ModeSlow, 1, 2, 3)

	var mod uint64
	c.Open(func(s []int, fast bool, m uint64) {
		assert.False(t, fast)
		mod = m
	})

	// a guarded structural edit returns the new count
	next, err := c.Guard(mod, func(s []int) ([]int, Result) {
		return s[1:], Structural
	})
	require.NoError(t, err)
	assert.Equal(t, mod+1, next)

	// the old count is stale now
	_, err = c.Guard(mod, func(s []int) ([]int, Result) { return s, Unchanged })
	assert.True(t, errors.Is(err, adaptive.ErrConcurrentModification))

	_, err = c.Guard(next, func(s []int) ([]int, Result) { return s, Unchanged })
	assert.NoError(t, err)
	assert.Equal(t, []int{2, 3}, content(c))
}

func TestSetFast(t *testing.T) {
	c := newCore(adaptive.ModeSlow, 1, 2)
	mod := c.modCount

	c.SetFast(false)
	assert.Equal(t, mod, c.modCount, "switching to the active mode is a no-op")

	c.SetFast(true)
	assert.True(t, c.IsFast())
	assert.Equal(t, mod+1, c.modCount)
	assert.Equal(t, []int{1, 2}, c.snapshot.Load().Data)

	require.NoError(t, c.Write(appendValue(3)))
	published := c.snapshot.Load()

	c.SetFast(false)
	assert.False(t, c.IsFast())
	assert.Equal(t, mod+2, c.modCount)

	require.NoError(t, c.Write(appendValue(4)))
	assert.Equal(t, []int{1, 2, 3}, published.Data, "the shared structure is a copy of the last snapshot")
	assert.Equal(t, []int{1, 2, 3, 4}, content(c))

	// SLOW writes do not publish, the retired snapshot keeps the version
	assert.Same(t, published, c.snapshot.Load())
	assert.Equal(t, published.Version, c.Info().Version)

	// the next switch publishes the shared structure and replaces the snapshot
	c.SetFast(true)
	assert.Equal(t, published.Version+1, c.Info().Version)
	assert.Equal(t, []int{1, 2, 3, 4}, c.snapshot.Load().Data)
}

func TestReset(t *testing.T) {
	for _, mode := range []adaptive.Mode{adaptive.ModeSlow, adaptive.ModeFast} {
		c := newCore(mode)
		version := c.Info().Version
		mod := c.modCount

		c.Reset(func() []int { return nil })
		assert.Equal(t, version, c.Info().Version, mode.String())
		assert.Equal(t, mod, c.modCount, mode.String())

		require.NoError(t, c.Write(appendValue(1)))
		c.Reset(func() []int { return nil })
		assert.Equal(t, 0, c.Len(), mode.String())
	}
}

func TestConcurrentFastWriters(t *testing.T) {
	c := newCore(adaptive.ModeFast)

	const writers = 4
	const perWriter = 200

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_ = c.Write(appendValue(i))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, writers*perWriter, c.Len())
	assert.Equal(t, uint64(1+writers*perWriter), c.Info().Version)
}
