package hashset

import "github.com/pkg/errors"

var (
	// ErrAllocation is returned when an Allocator cannot reserve room
	// for a table. The Set keeps its prior contents.
	ErrAllocation = errors.New("hashset: allocation failed")

	// ErrShortBuffer is returned by Extract when the destination
	// cannot hold every element.
	ErrShortBuffer = errors.New("hashset: extraction buffer too short")

	// ErrInvalidConfig is returned by New for a negative capacity or
	// an out of range option.
	ErrInvalidConfig = errors.New("hashset: invalid configuration")
)
