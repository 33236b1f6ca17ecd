package hashset

import (
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// Allocator accounts for the memory backing a Set's table.
//
// A Set reserves the full size of a table before it starts using it,
// and releases it once the table is replaced (on growth) or the Set is
// disposed. An Allocator that cannot satisfy a reservation returns an
// error, and the Set leaves its current table untouched.
type Allocator interface {
	Allocate(bytes int) error
	Free(bytes int)
}

// Heap is an Allocator with no limit. It is the default.
var Heap Allocator = heap{}

type heap struct{}

func (heap) Allocate(bytes int) error { return nil }
func (heap) Free(bytes int)           {}

// Budget is an Allocator that refuses reservations that would take the
// total outstanding bytes above a fixed limit. It is safe for use by
// multiple Sets from multiple goroutines.
type Budget struct {
	limit int64
	used  atomic.Int64
	peak  atomic.Int64
}

// NewBudget returns a Budget that allows up to limit bytes to be
// outstanding at once.
func NewBudget(limit int) *Budget {
	return &Budget{limit: int64(limit)}
}

// Allocate reserves bytes, or returns an error wrapping ErrAllocation if
// that would take the outstanding total past the limit.
func (b *Budget) Allocate(bytes int) error {
	if bytes < 0 {
		return errors.Wrapf(ErrInvalidConfig, "negative allocation of %d bytes", bytes)
	}
	for {
		used := b.used.Load()
		next := used + int64(bytes)
		if next > b.limit {
			return errors.Wrapf(ErrAllocation, "requested %s with %s of %s in use",
				humanize.IBytes(uint64(bytes)), humanize.IBytes(uint64(used)), humanize.IBytes(uint64(b.limit)))
		}
		if b.used.CompareAndSwap(used, next) {
			for {
				peak := b.peak.Load()
				if next <= peak || b.peak.CompareAndSwap(peak, next) {
					break
				}
			}
			return nil
		}
	}
}

// Free returns bytes reserved by an earlier Allocate.
// It panics if more is freed than is outstanding.
func (b *Budget) Free(bytes int) {
	if b.used.Sub(int64(bytes)) < 0 {
		panic("hashset: Budget freed more than was allocated")
	}
}

// Used reports the bytes currently outstanding.
func (b *Budget) Used() int { return int(b.used.Load()) }

// Peak reports the highest number of bytes outstanding at any one time.
func (b *Budget) Peak() int { return int(b.peak.Load()) }

// Limit reports the configured limit.
func (b *Budget) Limit() int { return int(b.limit) }
