package hashset

import (
	"runtime"

	"github.com/pkg/errors"
)

const defaultLoadFactor = 0.75

type config struct {
	alloc      Allocator
	maxThreads int
	loadFactor float64
	seed       uintptr
}

func defaultConfig() config {
	return config{
		alloc:      Heap,
		maxThreads: runtime.GOMAXPROCS(0),
		loadFactor: defaultLoadFactor,
	}
}

func (c config) validate() error {
	switch {
	case c.alloc == nil:
		return errors.Wrap(ErrInvalidConfig, "nil allocator")
	case c.maxThreads < 1:
		return errors.Wrapf(ErrInvalidConfig, "max threads %d < 1", c.maxThreads)
	case !(c.loadFactor > 0 && c.loadFactor <= 1):
		return errors.Wrapf(ErrInvalidConfig, "load factor %v not in (0, 1]", c.loadFactor)
	}
	return nil
}

// Option configures a Set at construction.
type Option func(*config)

// WithAllocator sets the Allocator that accounts for table memory.
func WithAllocator(a Allocator) Option {
	return func(c *config) { c.alloc = a }
}

// WithMaxThreads bounds the thread indexes accepted by Set.Concurrent
// to [0, n). It defaults to GOMAXPROCS.
func WithMaxThreads(n int) Option {
	return func(c *config) { c.maxThreads = n }
}

// WithLoadFactor sets the fraction of the table, counting tombstones,
// that sequential Add fills before growing.
func WithLoadFactor(f float64) Option {
	return func(c *config) { c.loadFactor = f }
}

// WithSeed sets the seed passed to the HashFunc.
func WithSeed(seed uintptr) Option {
	return func(c *config) { c.seed = seed }
}
