package stress

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/ValentinKolb/adaptive/lib/adaptive"
	"github.com/ValentinKolb/adaptive/lib/adaptive/kinds/hashmap"
	"github.com/ValentinKolb/adaptive/lib/adaptive/kinds/list"
	"github.com/ValentinKolb/adaptive/lib/adaptive/kinds/sortedmap"
	libutil "github.com/ValentinKolb/adaptive/lib/adaptive/util"
	"github.com/cockroachdb/errors"
)

// --------------------------------------------------------------------------
// Lost updates
// --------------------------------------------------------------------------

// checkLostUpdates lets every goroutine add unique elements and compares the
// final size with the number of adds.
func checkLostUpdates(queue *libutil.Queue[observation], kind string, mode adaptive.Mode) error {
	opts := adaptive.DefaultOptions().WithMode(mode).WithName("lost-updates")

	var add func(worker, i int)
	var container adaptive.Container
	switch kind {
	case "list":
		l := list.New[int](opts)
		add = func(worker, i int) { l.Add(worker*stressWrites + i) }
		container = l
	case "hashmap":
		m := hashmap.New[int, int](opts)
		add = func(worker, i int) { m.Put(worker*stressWrites+i, i) }
		container = m
	case "sortedmap":
		m := sortedmap.NewOrdered[int, int](opts)
		add = func(worker, i int) { _, _, _ = m.Put(worker*stressWrites+i, i) }
		container = m
	default:
		return errors.Newf("unknown kind %q", kind)
	}

	var wg sync.WaitGroup
	for w := 0; w < stressThreads; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < stressWrites; i++ {
				add(worker, i)
			}
		}(w)
	}
	wg.Wait()

	o := &observation{check: "lost-updates", kind: kind, mode: mode, ops: int64(stressThreads * stressWrites)}
	if want, got := stressThreads*stressWrites, container.Size(); got != want {
		o.violation = fmt.Sprintf("expected %d elements after concurrent adds, found %d", want, got)
	}
	queue.Push(o)
	return nil
}

// --------------------------------------------------------------------------
// Atomicity and iterators
// --------------------------------------------------------------------------

// subject is a container prepared for the atomicity check. Every call of
// write is a single bulk write that keeps valid true for the content.
type subject struct {
	container adaptive.Container
	write     func(round int)
	all       func() []int
	iterate   func() ([]int, error)
	valid     func(values []int) string
}

func newSubject(kind string, opts *adaptive.Options) (*subject, error) {
	switch kind {
	case "list":
		// every round appends the round number batch times and drops old
		// rounds, so each value is always present exactly batch times
		l := list.New[int](opts)
		return &subject{
			container: l,
			write: func(round int) {
				if round%4 == 3 {
					l.RemoveIf(func(v int) bool { return v < round-8 })
					return
				}
				batch := make([]int, stressBatch)
				for i := range batch {
					batch[i] = round
				}
				l.AddAll(batch...)
			},
			all: func() []int {
				var values []int
				for _, v := range l.All() {
					values = append(values, v)
				}
				return values
			},
			iterate: func() ([]int, error) {
				return drain(l.Iterator(), func(v int) int { return v })
			},
			valid: validBatches,
		}, nil

	case "hashmap":
		// every round binds all keys to the round number
		m := hashmap.New[int, int](opts)
		return &subject{
			container: m,
			write: func(round int) {
				entries := make(map[int]int, stressBatch)
				for k := 0; k < stressBatch; k++ {
					entries[k] = round
				}
				m.PutAll(entries)
			},
			all: func() []int {
				var values []int
				for _, v := range m.All() {
					values = append(values, v)
				}
				return values
			},
			iterate: func() ([]int, error) {
				return drain(m.Iterator(), func(e adaptive.Entry[int, int]) int { return e.Value })
			},
			valid: validRound,
		}, nil

	case "sortedmap":
		m := sortedmap.NewOrdered[int, int](opts)
		return &subject{
			container: m,
			write: func(round int) {
				entries := make([]adaptive.Entry[int, int], stressBatch)
				for k := range entries {
					entries[k] = adaptive.Entry[int, int]{Key: k, Value: round}
				}
				_ = m.PutAll(entries...)
			},
			all: func() []int {
				var values []int
				for _, v := range m.All() {
					values = append(values, v)
				}
				return values
			},
			iterate: func() ([]int, error) {
				return drain(m.Iterator(), func(e adaptive.Entry[int, int]) int { return e.Value })
			},
			valid: validRound,
		}, nil

	default:
		return nil, errors.Newf("unknown kind %q", kind)
	}
}

// checkAtomicity runs one writer doing bulk writes against readers that
// check every state they observe until ctx is done.
func checkAtomicity(ctx context.Context, queue *libutil.Queue[observation], kind string, mode adaptive.Mode) error {
	s, err := newSubject(kind, adaptive.DefaultOptions().WithMode(mode).WithName("atomicity"))
	if err != nil {
		return err
	}

	var wg sync.WaitGroup

	// writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		round := 0
		for ctx.Err() == nil {
			s.write(round)
			round++
		}
		queue.Push(&observation{check: "writes", kind: kind, mode: mode, ops: int64(round)})
	}()

	// mode switcher
	if stressToggle {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switches := 0
			for ctx.Err() == nil {
				s.container.SetFast(!s.container.IsFast())
				switches++
			}
			s.container.SetFast(mode == adaptive.ModeFast)
			queue.Push(&observation{check: "mode-switches", kind: kind, mode: mode, ops: int64(switches)})
		}()
	}

	// readers
	for r := 0; r < max(stressThreads-1, 1); r++ {
		wg.Add(1)
		go func(reader uint64) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(stressSeed, reader))
			for ctx.Err() == nil {
				if rng.IntN(2) == 0 {
					queue.Push(readAll(s, kind, mode))
				} else {
					queue.Push(readIterator(s, kind, mode))
				}
			}
		}(uint64(r))
	}

	wg.Wait()
	return nil
}

// readAll checks one complete range over the container. All reads a snapshot
// in FAST mode and a copy made under the lock in SLOW mode, so the values
// always stem from one state.
func readAll(s *subject, kind string, mode adaptive.Mode) *observation {
	o := &observation{check: "atomicity", kind: kind, mode: mode, ops: 1}
	if msg := s.valid(s.all()); msg != "" {
		o.violation = "range observed a partial write: " + msg
	}
	return o
}

// readIterator checks one iterator run. Snapshot iterators never fail and see
// one state. Fail-fast iterators may be invalidated but must not fail otherwise.
func readIterator(s *subject, kind string, mode adaptive.Mode) *observation {
	o := &observation{check: "iterator", kind: kind, mode: mode, ops: 1}
	fast := s.container.IsFast()

	values, err := s.iterate()
	switch {
	case err == nil:
		// values of a SLOW iteration may come from different states since
		// overwrites are not structural
		if fast && !stressToggle {
			if msg := s.valid(values); msg != "" {
				o.violation = "snapshot iterator observed a partial write: " + msg
			}
		}
	case errors.Is(err, adaptive.ErrConcurrentModification) && (!fast || stressToggle):
		o.invalid = 1
	default:
		o.violation = fmt.Sprintf("iterator failed: %v", err)
	}
	return o
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func drain[T any](it adaptive.Iterator[T], value func(T) int) ([]int, error) {
	var values []int
	for it.HasNext() {
		v, err := it.Next()
		if err != nil {
			return values, err
		}
		values = append(values, value(v))
	}
	return values, nil
}

// validBatches requires every value to occur exactly stressBatch times
func validBatches(values []int) string {
	counts := make(map[int]int)
	for _, v := range values {
		counts[v]++
	}
	for v, n := range counts {
		if n != stressBatch {
			return fmt.Sprintf("value %d occurs %d times, expected %d", v, n, stressBatch)
		}
	}
	return ""
}

// validRound requires an empty map or all stressBatch keys bound to the same round
func validRound(values []int) string {
	if len(values) == 0 {
		return ""
	}
	if len(values) != stressBatch {
		return fmt.Sprintf("found %d bindings, expected %d", len(values), stressBatch)
	}
	for _, v := range values {
		if v != values[0] {
			return fmt.Sprintf("found rounds %d and %d in one state", values[0], v)
		}
	}
	return ""
}
