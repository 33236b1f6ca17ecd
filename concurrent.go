package hashset

import (
	"fmt"
	"runtime"

	"go.uber.org/atomic"
)

// Concurrent is a view of a Set for use by one of several goroutines
// inserting at the same time. It borrows the Set's table and must not
// be used after the Set is disposed or while the Set is being used
// sequentially.
//
// Each goroutine should use its own view, with its own thread index.
type Concurrent[T comparable] struct {
	set         *Set[T]
	threadIndex int
}

// Concurrent returns a view for the writer identified by threadIndex,
// which must be in [0, max threads). It does not allocate.
func (s *Set[T]) Concurrent(threadIndex int) Concurrent[T] {
	s.checkLive()
	if threadIndex < 0 || threadIndex >= len(s.stats) {
		panic(fmt.Sprintf("hashset: thread index %d out of range [0, %d)", threadIndex, len(s.stats)))
	}
	return Concurrent[T]{set: s, threadIndex: threadIndex}
}

// Cap returns the number of slots in the table.
func (c Concurrent[T]) Cap() int {
	c.set.checkLive()
	return c.set.table.len()
}

// ThreadIndex returns the index the view was created with.
func (c Concurrent[T]) ThreadIndex() int {
	return c.threadIndex
}

// TryAdd adds v, reporting whether it was not already present.
// It never grows the table: if no free slot is reachable, it returns false.
//
// A free slot (empty or tombstone) is claimed with a compare-and-swap
// to a claiming state carrying the value's tag. The value is written
// only after the claim succeeds and is then published by storing the
// occupied state. Writers of the same value always race for the first
// free slot of the same chain, so exactly one of them wins; the others
// see the winner's tag, wait for it to be published, and return false.
func (c Concurrent[T]) TryAdd(v T) bool {
	s := c.set
	s.checkLive()
	s.inflight.Inc()
	defer s.inflight.Dec()

	st := &s.stats[c.threadIndex]
	t := &s.table
	h := s.hashFunc(v, s.seed)
	tg := tag(h)
	for {
		i, observed, found := t.claimTarget(v, h, st)
		if found {
			st.duplicates.Inc()
			return false
		}
		if i < 0 {
			st.exhausted.Inc()
			return false
		}
		if !t.control[i].CompareAndSwap(observed, tg|ctrlClaiming) {
			// Someone else claimed it first. Slots never become free
			// again during the concurrent phase, so rescanning makes progress.
			st.claimRetries.Inc()
			continue
		}
		t.slots[i] = v
		t.control[i].Store(tg | ctrlOccupied)
		if state(observed) == ctrlTombstone {
			s.tombstones.Dec()
		}
		s.count.Inc()
		st.added.Inc()
		return true
	}
}

// claimTarget is the concurrent analog of locate. It returns the index
// of v if present, or else the first free slot in v's chain along with
// the control word observed there. It returns -1 if the chain has no
// free slot.
func (t *fixedTable[T]) claimTarget(v T, h uint64, st *threadStats) (index int, observed uint32, found bool) {
	tg := tag(h)
	index = -1
	i := h & t.mask
	for probeCount := 0; probeCount < len(t.slots); probeCount++ {
		c := t.control[i].Load()
		switch state(c) {
		case ctrlEmpty:
			if index < 0 {
				index, observed = int(i), c
			}
			return index, observed, false
		case ctrlTombstone:
			if index < 0 {
				index, observed = int(i), c
			}
		case ctrlClaiming:
			if c&^stateMask != tg {
				// Being claimed for a different value.
				break
			}
			// Possibly our value. Wait for the claimer to publish it.
			st.claimWaits.Inc()
			for state(c) == ctrlClaiming {
				runtime.Gosched()
				c = t.control[i].Load()
			}
			if t.slots[i] == v {
				return int(i), c, true
			}
		case ctrlOccupied:
			if c == tg|ctrlOccupied && t.slots[i] == v {
				return int(i), c, true
			}
		}
		i = (i + 1) & t.mask
	}
	return index, observed, false
}

// threadStats is written only by the writer owning the thread index.
// It is padded to a cache line to keep writers from sharing one.
type threadStats struct {
	added        atomic.Int64
	duplicates   atomic.Int64
	exhausted    atomic.Int64
	claimRetries atomic.Int64
	claimWaits   atomic.Int64
	_            [24]byte
}

// Stats summarizes activity on a Set.
// The concurrent counters are summed over all thread indexes.
type Stats struct {
	Added             int64 // successful TryAdd calls
	Duplicates        int64 // TryAdd calls that found the value present
	Exhausted         int64 // TryAdd calls that found no free slot
	ClaimRetries      int64 // lost compare-and-swap races
	ClaimWaits        int64 // waits on an in-flight claim with a matching tag
	ResizeGenerations int
	Tombstones        int
}

// Stats returns a snapshot of the set's counters.
// It should be called in the sequential phase.
func (s *Set[T]) Stats() Stats {
	s.checkLive()
	res := Stats{
		ResizeGenerations: s.resizeGenerations,
		Tombstones:        int(s.tombstones.Load()),
	}
	for i := range s.stats {
		st := &s.stats[i]
		res.Added += st.added.Load()
		res.Duplicates += st.duplicates.Load()
		res.Exhausted += st.exhausted.Load()
		res.ClaimRetries += st.claimRetries.Load()
		res.ClaimWaits += st.claimWaits.Load()
	}
	return res
}
