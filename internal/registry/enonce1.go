package registry

import (
	"errors"
	"sync"
)

// ErrProxyFull is returned when an allocator's entire width-bounded space
// is occupied by live clients (spec.md §4.5).
var ErrProxyFull = errors.New("registry: proxy full")

// enonce1Allocator hands out extranonce1 values within a width-bounded
// space, matching the variable-length region of the current workbase
// (spec.md §4.5). Wide spaces (4 or 8 bytes) are for all practical
// purposes inexhaustible, so a monotonic counter suffices; narrow spaces
// (1 or 2 bytes) must scan for a value no live client currently holds.
type enonce1Allocator struct {
	mu    sync.Mutex
	width int // bytes: 1, 2, 4, or 8
	next  uint64
	mask  uint64
}

// newEnonce1Allocator builds an allocator for the given extranonce1 width.
// It seeds the counter at 1 so the very first allocation in server mode
// (width 8) matches spec.md §8's literal scenario: "Server assigns enonce1
// = 0000000000000001 (first allocation)."
func newEnonce1Allocator(width int) *enonce1Allocator {
	mask := ^uint64(0)
	if width < 8 {
		mask = uint64(1)<<(8*width) - 1
	}
	return &enonce1Allocator{width: width, next: 1, mask: mask}
}

// allocate returns the next free value in the allocator's space. isFree is
// consulted only for narrow (1- or 2-byte) spaces, where collisions with
// live clients are possible; wide spaces never call it.
func (a *enonce1Allocator) allocate(isFree func(uint64) bool) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.width >= 4 {
		v := a.next & a.mask
		a.next++
		return v, nil
	}

	limit := uint64(1) << (8 * a.width)
	for i := uint64(0); i < limit; i++ {
		v := (a.next + i) & a.mask
		if isFree(v) {
			a.next = v + 1
			return v, nil
		}
	}
	return 0, ErrProxyFull
}
