package pool

import "sync/atomic"

// Stats are the observability counters every pool exposes.
type Stats struct {
	acquires    atomic.Uint64
	releases    atomic.Uint64
	misses      atomic.Uint64
	highWater   atomic.Uint64
	outstanding atomic.Int64
}

// recordAcquire tracks one Acquire call and feeds the live outstanding
// count across the whole pool — acquires not yet matched by a Release —
// into HighWater. A miss still puts a real buffer in a caller's hands and
// must count the same as a hit; bucket free-list length alone can't tell
// you that.
func (s *Stats) recordAcquire(hit bool) {
	s.acquires.Add(1)
	if !hit {
		s.misses.Add(1)
	}
	inUse := uint64(s.outstanding.Add(1))
	for {
		cur := s.highWater.Load()
		if inUse <= cur || s.highWater.CompareAndSwap(cur, inUse) {
			return
		}
	}
}

func (s *Stats) recordRelease() {
	s.releases.Add(1)
	s.outstanding.Add(-1)
}

// Snapshot is a point-in-time copy of a pool's counters.
type Snapshot struct {
	Acquires  uint64
	Releases  uint64
	Misses    uint64
	HighWater uint64
}

func (s *Stats) snapshot() Snapshot {
	return Snapshot{
		Acquires:  s.acquires.Load(),
		Releases:  s.releases.Load(),
		Misses:    s.misses.Load(),
		HighWater: s.highWater.Load(),
	}
}
