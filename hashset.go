// Package hashset implements an open-addressed hash set with a fixed
// capacity between explicit growth points.
//
// A Set is used in one of two phases at a time. In the sequential
// phase a single goroutine calls Add, Remove, Contains, Clear, Extract,
// and Add may grow the table. In the concurrent phase any number of
// goroutines, each holding its own Concurrent view, call TryAdd against
// the table as sized when the phase began; a full table makes TryAdd
// return false instead of growing. Switching phases is the caller's job,
// typically by waiting on all concurrent writers.
package hashset

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// Set is a hash set of T.
type Set[T comparable] struct {
	table      fixedTable[T]
	count      atomic.Int64
	tombstones atomic.Int64

	hashFunc   HashFunc[T]
	seed       uintptr
	alloc      Allocator
	loadFactor float64

	// inflight counts TryAdd calls in progress. Sequential mutation or
	// iteration while it is non-zero is a bug in the caller.
	inflight atomic.Int32
	stats    []threadStats
	disposed bool

	resizeGenerations int
	// disableResizing is for tests that want to fill the table completely.
	disableResizing bool
}

// New returns a Set with room for at least capacity elements.
// The capacity is a hint, rounded up to a power of 2 (minimum 1).
func New[T comparable](capacity int, hash HashFunc[T], opts ...Option) (*Set[T], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if hash == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "nil hash func")
	}
	if capacity < 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "negative capacity %d", capacity)
	}
	tableLength := calcTableLength(capacity)
	if tableLength < 0 || !tableFits[T](tableLength) {
		return nil, errors.Wrapf(ErrAllocation, "capacity %d too large", capacity)
	}
	if err := cfg.alloc.Allocate(tableBytes[T](tableLength)); err != nil {
		return nil, allocError(err, "new table of %d slots", tableLength)
	}
	if debug {
		fmt.Println("new: underlying table length", tableLength)
	}
	return &Set[T]{
		table:      newFixedTable[T](tableLength),
		hashFunc:   hash,
		seed:       cfg.seed,
		alloc:      cfg.alloc,
		loadFactor: cfg.loadFactor,
		stats:      make([]threadStats, cfg.maxThreads),
	}, nil
}

// Cap returns the number of slots in the table.
func (s *Set[T]) Cap() int {
	s.checkLive()
	return s.table.len()
}

// Len returns the number of elements in the set.
func (s *Set[T]) Len() int {
	s.checkLive()
	return int(s.count.Load())
}

// IsCreated reports whether s is usable, that is, not nil and not disposed.
func (s *Set[T]) IsCreated() bool {
	return s != nil && !s.disposed
}

// Add adds v, reporting whether it was not already present.
// Add grows the table once live elements plus tombstones reach the
// load factor. If the Allocator refuses the larger table, Add returns
// an error wrapping ErrAllocation and the set is unchanged.
func (s *Set[T]) Add(v T) (bool, error) {
	s.checkSequential()
	h := s.hashFunc(v, s.seed)
	i, found := s.table.locate(v, h)
	if found {
		return false, nil
	}

	used := int(s.count.Load() + s.tombstones.Load())
	if !s.disableResizing && used+1 > s.growAt(s.table.len()) {
		if err := s.resize(); err != nil {
			return false, err
		}
		i, _ = s.table.locate(v, h)
	}
	if i < 0 {
		// Only reachable with resizing disabled.
		return false, nil
	}

	if state(s.table.control[i].Load()) == ctrlTombstone {
		s.tombstones.Dec()
	}
	s.table.slots[i] = v
	s.table.control[i].Store(tag(h) | ctrlOccupied)
	s.count.Inc()
	return true, nil
}

// Remove removes v, reporting whether it was present.
func (s *Set[T]) Remove(v T) bool {
	s.checkSequential()
	i, found := s.table.locate(v, s.hashFunc(v, s.seed))
	if !found {
		return false
	}
	var zero T
	s.table.slots[i] = zero
	s.table.control[i].Store(ctrlTombstone)
	s.count.Dec()
	s.tombstones.Inc()
	return true
}

// Contains reports whether v is in the set.
func (s *Set[T]) Contains(v T) bool {
	s.checkLive()
	_, found := s.table.locate(v, s.hashFunc(v, s.seed))
	return found
}

// Clear removes all elements. The capacity is unchanged.
func (s *Set[T]) Clear() {
	s.checkSequential()
	s.table.reset()
	s.count.Store(0)
	s.tombstones.Store(0)
}

// Dispose releases the table back to the Allocator.
// Any later use of s panics, including a second Dispose.
func (s *Set[T]) Dispose() {
	s.checkSequential()
	s.alloc.Free(tableBytes[T](s.table.len()))
	s.table = fixedTable[T]{}
	s.count.Store(0)
	s.tombstones.Store(0)
	s.disposed = true
}

func (s *Set[T]) growAt(tableLength int) int {
	return int(float64(tableLength) * s.loadFactor)
}

// resize moves every element to a new table, dropping tombstones.
// The new table doubles in length until it can take one more element
// under the load factor; if tombstones alone pushed us over, it keeps
// the current length.
func (s *Set[T]) resize() error {
	oldLen := s.table.len()
	count := int(s.count.Load())
	newLen := oldLen
	for count+1 > s.growAt(newLen) {
		if newLen >= maxTableLength || !tableFits[T](newLen<<1) {
			return errors.Wrapf(ErrAllocation, "cannot grow table past %d slots", newLen)
		}
		newLen <<= 1
	}
	if err := s.alloc.Allocate(tableBytes[T](newLen)); err != nil {
		return allocError(err, "growing table from %d to %d slots", oldLen, newLen)
	}
	if debug {
		fmt.Println("resize: from", oldLen, "to", newLen, "elements:", count, "tombstones:", s.tombstones.Load())
	}

	nt := newFixedTable[T](newLen)
	for i := range s.table.slots {
		if state(s.table.control[i].Load()) == ctrlOccupied {
			v := s.table.slots[i]
			nt.put(v, s.hashFunc(v, s.seed))
		}
	}
	s.alloc.Free(tableBytes[T](oldLen))
	s.table = nt
	s.tombstones.Store(0)
	s.resizeGenerations++
	return nil
}

func (s *Set[T]) checkLive() {
	if s.disposed {
		panic("hashset: use of disposed Set")
	}
}

func (s *Set[T]) checkSequential() {
	s.checkLive()
	if n := s.inflight.Load(); n != 0 {
		panic(fmt.Sprintf("hashset: sequential use with %d concurrent TryAdd calls in flight", n))
	}
}

// allocError makes sure an Allocator failure wraps ErrAllocation.
func allocError(err error, format string, args ...interface{}) error {
	if errors.Is(err, ErrAllocation) {
		return errors.WithMessagef(err, format, args...)
	}
	return errors.Wrapf(ErrAllocation, "%s: %v", fmt.Sprintf(format, args...), err)
}

const debug = false
