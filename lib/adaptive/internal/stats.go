package internal

import (
	"github.com/ValentinKolb/adaptive/lib/adaptive"
	"github.com/ValentinKolb/adaptive/lib/adaptive/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// Stats collects per container counters. All methods accept a nil receiver,
// so a container without statistics pays only for the nil check.
//
// The read counters are striped (xsync.Counter) since FAST readers run
// concurrently and would otherwise contend on a single cache line.
type Stats struct {
	fastReads       *xsync.Counter
	slowReads       *xsync.Counter
	writes          *xsync.Counter
	publications    *xsync.Counter
	discardedClones *xsync.Counter
	clonedElements  *xsync.Counter
	modeSwitches    *xsync.Counter
	snapshotSizes   *util.SizeHistogram
}

// NewStats creates an empty statistics collector
func NewStats() *Stats {
	return &Stats{
		fastReads:       xsync.NewCounter(),
		slowReads:       xsync.NewCounter(),
		writes:          xsync.NewCounter(),
		publications:    xsync.NewCounter(),
		discardedClones: xsync.NewCounter(),
		clonedElements:  xsync.NewCounter(),
		modeSwitches:    xsync.NewCounter(),
		snapshotSizes:   util.NewSizeHistogram(),
	}
}

func (s *Stats) fastRead() {
	if s != nil {
		s.fastReads.Inc()
	}
}

func (s *Stats) slowRead() {
	if s != nil {
		s.slowReads.Inc()
	}
}

func (s *Stats) write() {
	if s != nil {
		s.writes.Inc()
	}
}

func (s *Stats) discarded() {
	if s != nil {
		s.discardedClones.Inc()
	}
}

func (s *Stats) cloned(n int) {
	if s != nil {
		s.clonedElements.Add(int64(n))
	}
}

func (s *Stats) published(size int) {
	if s != nil {
		s.publications.Inc()
		s.snapshotSizes.AddSample(size)
	}
}

func (s *Stats) switched() {
	if s != nil {
		s.modeSwitches.Inc()
	}
}

// Snapshot returns the current counter values, or nil for a nil receiver.
func (s *Stats) Snapshot() *adaptive.Stats {
	if s == nil {
		return nil
	}
	return &adaptive.Stats{
		FastReads:          s.fastReads.Value(),
		SlowReads:          s.slowReads.Value(),
		Writes:             s.writes.Value(),
		Publications:       s.publications.Value(),
		DiscardedClones:    s.discardedClones.Value(),
		ClonedElements:     s.clonedElements.Value(),
		ModeSwitches:       s.modeSwitches.Value(),
		AvgSnapshotSize:    s.snapshotSizes.AverageSize(),
		MedianSnapshotSize: s.snapshotSizes.MedianEstimate(),
	}
}
