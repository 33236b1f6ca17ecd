package hashset

import "github.com/pkg/errors"

// Extract copies every element into dst in table order and returns the
// number copied, which is Len(). The order is unspecified but is the
// same for the same table layout.
// If dst is shorter than Len(), Extract copies nothing and returns an
// error wrapping ErrShortBuffer.
func (s *Set[T]) Extract(dst []T) (int, error) {
	s.checkSequential()
	if n := s.Len(); len(dst) < n {
		return 0, errors.Wrapf(ErrShortBuffer, "buffer length %d, set length %d", len(dst), n)
	}
	n := 0
	for i := range s.table.slots {
		if state(s.table.control[i].Load()) == ctrlOccupied {
			dst[n] = s.table.slots[i]
			n++
		}
	}
	return n, nil
}

// Values returns a new slice holding every element, in the order
// Extract would use.
func (s *Set[T]) Values() []T {
	s.checkSequential()
	res := make([]T, s.Len())
	// Cannot be short.
	n, _ := s.Extract(res)
	return res[:n]
}

// Range calls f for each element in table order until f returns false.
// f must not modify the set.
func (s *Set[T]) Range(f func(v T) bool) {
	s.checkSequential()
	for i := range s.table.slots {
		if state(s.table.control[i].Load()) != ctrlOccupied {
			continue
		}
		if !f(s.table.slots[i]) {
			return
		}
	}
}
