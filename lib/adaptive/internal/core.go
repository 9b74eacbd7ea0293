package internal

import (
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/adaptive/lib/adaptive"
	"github.com/lni/dragonboat/v4/logger"
)

// Logger is shared by all container kinds
var Logger = logger.GetLogger(adaptive.LoggerName)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Result tells the core what an edit did to the structure it was given.
type Result uint8

const (
	Unchanged  Result = iota // nothing changed, a FAST clone is discarded
	Updated                  // values changed but no element was added or removed
	Structural               // elements were added or removed
)

// Snapshot is an immutable, fully built instance of a backing structure.
// Once stored in a Core it is never modified again.
type Snapshot[S any] struct {
	Data    S
	Version uint64
}

// Kind is the per backing structure part of a container: how to copy it and
// how big it is. The three implementations live in lib/adaptive/kinds.
type Kind[S any] interface {
	// Name is the kind label used in Info and metrics.
	Name() string
	// Clone returns a copy of s that can be edited without affecting s.
	Clone(s S) S
	// Len returns the number of elements in s.
	Len(s S) int
}

// Core is the mode switching skeleton shared by all containers.
//
// FAST mode: readers load the current snapshot without locking. Writers hold
// writeMu, clone the current snapshot, edit the clone and publish it with a
// single atomic store.
//
// SLOW mode: every operation holds fullMu and works on the shared structure.
// Structural edits increment modCount, which fail-fast iterators check.
type Core[S any] struct {
	kind Kind[S]
	name string

	fast     atomic.Bool
	snapshot atomic.Pointer[Snapshot[S]]
	version  uint64     // last published version, guarded by writeMu
	writeMu  sync.Mutex // serializes FAST writers and mode switches

	fullMu   sync.Mutex // guards shared and modCount
	shared   S
	modCount uint64

	stats   *Stats
	metrics *Metrics
}

// NewCore creates a core around initial, which must not be referenced by the caller afterward.
//
// Thread-safety: This function is not thread-safe and should only be called once
// during initialization.
func NewCore[S any](kind Kind[S], initial S, opts *adaptive.Options) *Core[S] {
	opts = opts.Resolve()

	c := &Core[S]{
		kind: kind,
		name: opts.Name,
	}
	if opts.CollectStats {
		c.stats = NewStats()
	}
	if opts.Metrics != nil {
		c.metrics = NewMetrics(opts.Metrics, kind.Name(), opts.Name, c.fast.Load)
	}

	if opts.Mode == adaptive.ModeFast {
		c.publish(initial)
		c.fast.Store(true)
	} else {
		c.shared = initial
	}
	return c
}

// --------------------------------------------------------------------------
// Read / Write paths
// --------------------------------------------------------------------------

// Read runs fn against the current snapshot (FAST) or the shared structure
// under the full lock (SLOW). fn must not modify s or keep it after returning.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *Core[S]) Read(fn func(s S)) {
	if c.fast.Load() {
		snap := c.snapshot.Load()
		c.stats.fastRead()
		fn(snap.Data)
		return
	}

	c.fullMu.Lock()
	defer c.fullMu.Unlock()
	c.stats.slowRead()
	fn(c.shared)
}

// Write applies the edit fn.
//
// In FAST mode fn receives a private clone of the current snapshot and the
// structure it returns is published, unless fn fails or reports Unchanged,
// in which case the clone is dropped. In SLOW mode fn edits the shared
// structure directly, so it has to validate its arguments before changing
// anything.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *Core[S]) Write(fn func(s S) (S, Result, error)) error {
	if c.fast.Load() {
		c.writeMu.Lock()
		defer c.writeMu.Unlock()

		cur := c.snapshot.Load()
		clone := c.kind.Clone(cur.Data)
		c.stats.cloned(c.kind.Len(cur.Data))
		c.metrics.cloned(c.kind.Len(cur.Data))

		next, res, err := fn(clone)
		c.stats.write()
		if err != nil || res == Unchanged {
			c.stats.discarded()
			return err
		}
		c.publish(next)
		return nil
	}

	c.fullMu.Lock()
	defer c.fullMu.Unlock()

	next, res, err := fn(c.shared)
	c.stats.write()
	if err != nil {
		return err
	}
	c.shared = next
	if res == Structural {
		c.modCount++
	}
	return nil
}

// Reset replaces the content with empty() unless the container is already empty.
// In FAST mode no clone of the current snapshot is made.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *Core[S]) Reset(empty func() S) {
	if c.fast.Load() {
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		c.stats.write()
		if c.kind.Len(c.snapshot.Load().Data) == 0 {
			return
		}
		c.publish(empty())
		return
	}

	c.fullMu.Lock()
	defer c.fullMu.Unlock()
	c.stats.write()
	if c.kind.Len(c.shared) == 0 {
		return
	}
	c.shared = empty()
	c.modCount++
}

// publish stores data as the new current snapshot. Caller holds writeMu
// (or has exclusive access during construction).
func (c *Core[S]) publish(data S) {
	c.version++
	c.snapshot.Store(&Snapshot[S]{Data: data, Version: c.version})

	size := c.kind.Len(data)
	c.stats.published(size)
	c.metrics.published()
}

// --------------------------------------------------------------------------
// Mode switch
// --------------------------------------------------------------------------

// IsFast reports whether the core runs in FAST mode.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *Core[S]) IsFast() bool {
	return c.fast.Load()
}

// SetFast switches the mode. Switching to SLOW rebuilds the shared structure
// from a clone of the current snapshot, switching to FAST publishes a clone
// of the shared structure. Either way modCount is incremented so iterators
// opened in an earlier SLOW phase fail on their next step.
//
// Operations that read the old mode before the switch and are blocked on a
// lock still run their old path afterwards. Their writes land in a structure
// that is no longer read and are lost. For the same reason the retired
// structure is kept: the last snapshot stays loaded in SLOW mode and the
// shared structure stays set in FAST mode, so late operations still find a
// complete state. Both are replaced on the next switch.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *Core[S]) SetFast(fast bool) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.fullMu.Lock()
	defer c.fullMu.Unlock()

	if c.fast.Load() == fast {
		return
	}

	if fast {
		c.publish(c.kind.Clone(c.shared))
	} else {
		c.shared = c.kind.Clone(c.snapshot.Load().Data)
	}
	c.modCount++
	c.fast.Store(fast)

	c.stats.switched()
	c.metrics.switched()
	Logger.Debugf("%s %q switched to %s mode (version %d)", c.kind.Name(), c.name, modeOf(fast), c.version)
}

func modeOf(fast bool) adaptive.Mode {
	if fast {
		return adaptive.ModeFast
	}
	return adaptive.ModeSlow
}

// --------------------------------------------------------------------------
// Iterator support
// --------------------------------------------------------------------------

// Open captures the starting point of an iterator. In FAST mode fn gets the
// current snapshot, which stays valid for as long as the iterator keeps it.
// In SLOW mode fn runs under the full lock and mod is the modification count
// the iterator has to present to Guard.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *Core[S]) Open(fn func(s S, fast bool, mod uint64)) {
	if c.fast.Load() {
		snap := c.snapshot.Load()
		c.stats.fastRead()
		fn(snap.Data, true, 0)
		return
	}

	c.fullMu.Lock()
	defer c.fullMu.Unlock()
	c.stats.slowRead()
	fn(c.shared, false, c.modCount)
}

// Locked runs fn against the shared structure under the full lock without
// checking the modification count.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *Core[S]) Locked(fn func(s S)) {
	c.fullMu.Lock()
	defer c.fullMu.Unlock()
	fn(c.shared)
}

// Guard runs fn under the full lock if the modification count still equals
// mod, otherwise it fails with ErrConcurrentModification. fn may edit the
// shared structure. The returned count is the one the iterator has to
// present on its next call.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *Core[S]) Guard(mod uint64, fn func(s S) (S, Result)) (uint64, error) {
	c.fullMu.Lock()
	defer c.fullMu.Unlock()

	if c.modCount != mod {
		Logger.Debugf("%s %q: iterator at modification %d invalidated (now %d)", c.kind.Name(), c.name, mod, c.modCount)
		return mod, adaptive.NewError(adaptive.RetCConcurrentModification,
			"container was structurally modified after the iterator was created")
	}

	next, res := fn(c.shared)
	c.shared = next
	if res == Structural {
		c.modCount++
		c.stats.write()
	}
	return c.modCount, nil
}

// --------------------------------------------------------------------------
// Info
// --------------------------------------------------------------------------

// Len returns the number of elements of the current structure.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *Core[S]) Len() (n int) {
	c.Read(func(s S) {
		n = c.kind.Len(s)
	})
	return n
}

// Info returns the container description.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *Core[S]) Info() adaptive.Info {
	info := adaptive.Info{
		Kind: c.kind.Name(),
		Name: c.name,
		Mode: modeOf(c.fast.Load()),
		Size: c.Len(),
	}
	if snap := c.snapshot.Load(); snap != nil {
		info.Version = snap.Version
	}
	info.Stats = c.stats.Snapshot()
	return info
}
