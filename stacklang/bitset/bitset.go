// Package bitset is a small growable bitset keyed by any int-based type.
//
// The layout (word-sliced []uint64, a fixed inline word to avoid an
// allocation for small sets) follows compiler/set.Bitmap; it is
// parameterized over the element type so callers get distinct,
// non-interchangeable set types for distinct domains (registers, tags)
// without duplicating the bit-twiddling.
package bitset

import (
	"math/bits"

	"tlog.app/go/tlog/tlwire"
)

type (
	// Set is a bitset of T. The zero value is an empty set ready to use.
	Set[T ~int] struct {
		w  []uint64
		w0 [1]uint64
	}
)

// New returns a set with room for elements up to size-1 without growing.
func New[T ~int](size int) Set[T] {
	s := Set[T]{}
	s.w = s.w0[:]

	n := (size + 63) / 64
	if n > len(s.w) {
		s.w = make([]uint64, n)
	}

	return s
}

// Of builds a set containing exactly the given elements.
func Of[T ~int](els ...T) Set[T] {
	var s Set[T]

	for _, e := range els {
		s.Add(e)
	}

	return s
}

func (s *Set[T]) Add(x T) {
	i, j := s.ij(x)
	s.grow(i)
	s.w[i] |= 1 << j
}

func (s *Set[T]) Remove(x T) {
	i, j := s.ij(x)
	if i >= len(s.w) {
		return
	}
	s.w[i] &^= 1 << j
}

func (s Set[T]) Has(x T) bool {
	i, j := s.ij(x)
	if i >= len(s.w) {
		return false
	}
	return s.w[i]&(1<<j) != 0
}

// Union returns a new set containing every element of s or x.
func (s Set[T]) Union(x Set[T]) Set[T] {
	r := s.Clone()
	r.UnionInPlace(x)
	return r
}

func (s *Set[T]) UnionInPlace(x Set[T]) {
	s.grow(len(x.w) - 1)
	for i, w := range x.w {
		s.w[i] |= w
	}
}

// Intersect returns a new set containing only elements present in both s and x.
func (s Set[T]) Intersect(x Set[T]) Set[T] {
	r := s.Clone()

	for i := range r.w {
		if i >= len(x.w) {
			r.w[i] = 0
			continue
		}

		r.w[i] &= x.w[i]
	}

	return r
}

// Diff returns a new set containing elements of s not present in x.
func (s Set[T]) Diff(x Set[T]) Set[T] {
	r := s.Clone()

	for i, w := range x.w {
		if i == len(r.w) {
			break
		}

		r.w[i] &^= w
	}

	return r
}

func (s Set[T]) Clone() Set[T] {
	r := New[T](s.bitLen())
	r.UnionInPlace(s)
	return r
}

func (s Set[T]) IsEmpty() bool {
	for _, w := range s.w {
		if w != 0 {
			return false
		}
	}

	return true
}

func (s Set[T]) Len() (n int) {
	for _, w := range s.w {
		n += bits.OnesCount64(w)
	}

	return n
}

// Range calls f for every element in ascending order until f returns false.
func (s Set[T]) Range(f func(T) bool) {
	for i, w := range s.w {
		if w == 0 {
			continue
		}

		for j := 0; j < 64; j++ {
			if w&(1<<j) == 0 {
				continue
			}

			if !f(T(i*64 + j)) {
				return
			}
		}
	}
}

// Slice returns the elements of s in ascending order.
func (s Set[T]) Slice() []T {
	var r []T

	s.Range(func(x T) bool {
		r = append(r, x)
		return true
	})

	return r
}

// Subset reports whether every element of s is also in x.
func (s Set[T]) Subset(x Set[T]) bool {
	ok := true

	s.Range(func(e T) bool {
		if !x.Has(e) {
			ok = false
			return false
		}

		return true
	})

	return ok
}

func (s Set[T]) Equal(x Set[T]) bool {
	return s.Subset(x) && x.Subset(s)
}

func (s Set[T]) bitLen() int {
	for i := len(s.w) - 1; i >= 0; i-- {
		if s.w[i] == 0 {
			continue
		}

		return i*64 + 64 - bits.LeadingZeros64(s.w[i])
	}

	return 0
}

func (s Set[T]) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	if s.w == nil {
		return e.AppendNil(b)
	}

	b = e.AppendTag(b, tlwire.Array, -1)

	s.Range(func(x T) bool {
		b = e.AppendInt(b, int(x))
		return true
	})

	b = e.AppendBreak(b)

	return b
}

func (s *Set[T]) ij(x T) (i, j int) {
	return int(x) / 64, int(x) % 64
}

func (s *Set[T]) grow(i int) {
	for i >= len(s.w) {
		s.w = append(s.w, 0)
	}
}

