package hashset

import (
	"fmt"
	"math/bits"
	"unsafe"

	"go.uber.org/atomic"
)

// Each slot has a 32-bit control word. The low two bits hold the slot
// state. The upper 30 bits hold a tag taken from the top half of the
// hash, which lets us skip most equality checks and lets concurrent
// writers ignore claims in flight for unrelated values.
const (
	ctrlEmpty     uint32 = 0
	ctrlTombstone uint32 = 1
	ctrlClaiming  uint32 = 2
	ctrlOccupied  uint32 = 3

	stateMask uint32 = 3
)

// maxTableLength keeps table length computations from overflowing int.
const maxTableLength = 1 << (bits.UintSize - 2)

// maxTableBytes bounds the memory of one table to what make can
// allocate: 64 TiB on 64-bit platforms, 1 GiB on 32-bit ones.
const maxTableBytes = 1 << (30 + (bits.UintSize/64)*16)

// fixedTable is a power of 2 length array of slots.
// It never changes size; Set replaces it wholesale to grow.
type fixedTable[T comparable] struct {
	control []atomic.Uint32
	slots   []T
	mask    uint64
}

func newFixedTable[T comparable](tableLength int) fixedTable[T] {
	// sanity check power of 2
	if tableLength&(tableLength-1) != 0 || tableLength == 0 {
		panic("impossible")
	}
	return fixedTable[T]{
		control: make([]atomic.Uint32, tableLength),
		slots:   make([]T, tableLength),
		mask:    uint64(tableLength) - 1,
	}
}

func (t *fixedTable[T]) len() int {
	return len(t.slots)
}

func tag(h uint64) uint32 {
	return uint32(h>>32) &^ stateMask
}

func state(c uint32) uint32 {
	return c & stateMask
}

// locate looks for v using linear probing from its home slot.
// If v is present, it returns v's index and true.
// Otherwise it returns the first slot usable for inserting v, which is
// the first tombstone seen before the terminating empty slot, or that
// empty slot. If the table has neither, it returns -1.
// The scan is bounded by the table length, so a completely full table
// does not loop forever.
func (t *fixedTable[T]) locate(v T, h uint64) (index int, found bool) {
	want := tag(h) | ctrlOccupied
	insert := -1
	i := h & t.mask
	for probeCount := 0; probeCount < len(t.slots); probeCount++ {
		c := t.control[i].Load()
		switch state(c) {
		case ctrlEmpty:
			if insert < 0 {
				insert = int(i)
			}
			return insert, false
		case ctrlTombstone:
			// Keep going; v might be further along the chain.
			if insert < 0 {
				insert = int(i)
			}
		case ctrlOccupied:
			if c == want && t.slots[i] == v {
				return int(i), true
			}
		}
		i = (i + 1) & t.mask
	}
	if debug {
		fmt.Println("locate: no empty slot in table of length", len(t.slots), "insert:", insert)
	}
	return insert, false
}

// put stores v, which must not already be present, in the first free
// slot of its chain. It is used when rehashing into a fresh table.
func (t *fixedTable[T]) put(v T, h uint64) {
	i := h & t.mask
	for probeCount := 0; probeCount < len(t.slots); probeCount++ {
		if state(t.control[i].Load()) != ctrlOccupied {
			t.slots[i] = v
			t.control[i].Store(tag(h) | ctrlOccupied)
			return
		}
		i = (i + 1) & t.mask
	}
	panic(fmt.Sprintf("impossible: no free slot in table of length %d", len(t.slots)))
}

func (t *fixedTable[T]) reset() {
	for i := range t.control {
		t.control[i].Store(ctrlEmpty)
	}
	// Drop references held by stale values.
	clear(t.slots)
}

// calcTableLength returns the table length to use for capacityHint
// elements: capacityHint rounded up to a power of 2, minimum 1.
func calcTableLength(capacityHint int) int {
	if capacityHint <= 1 {
		return 1
	}
	if capacityHint > maxTableLength {
		return -1
	}
	return 1 << (bits.UintSize - bits.LeadingZeros(uint(capacityHint-1)))
}

// tableFits reports whether a table of tableLength slots of T stays
// within maxTableBytes. It must hold before calling tableBytes or
// newFixedTable.
func tableFits[T comparable](tableLength int) bool {
	var zero T
	perSlot := int(unsafe.Sizeof(zero) + unsafe.Sizeof(uint32(0)))
	return tableLength >= 0 && tableLength <= maxTableBytes/perSlot
}

// tableBytes is the size reported to the Allocator for a table.
func tableBytes[T comparable](tableLength int) int {
	var zero T
	return tableLength * int(unsafe.Sizeof(zero)+unsafe.Sizeof(uint32(0)))
}
