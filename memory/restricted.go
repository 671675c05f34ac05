package memory

import "fmt"

// Restricted presents the half-open page range [lo, hi) of a backing
// Memory as its own, independently sized Memory. Offsets passed to ReadAt/
// WriteAt are relative to the window, not the backing memory.
type Restricted struct {
	backing Memory
	lo, hi  uint64 // page bounds within backing
}

// NewRestricted constructs a view over backing's [lo, hi) page range.
func NewRestricted(backing Memory, lo, hi uint64) *Restricted {
	return &Restricted{backing: backing, lo: lo, hi: hi}
}

// Size reports the window's size in pages, clamped to the backing memory's
// actual extent.
func (r *Restricted) Size() uint64 {
	backingPages := r.backing.Size()
	if backingPages <= r.lo {
		return 0
	}

	available := backingPages - r.lo
	span := r.hi - r.lo
	if available < span {
		return available
	}

	return span
}

// Grow extends the window by deltaPages, never past hi-lo. It grows the
// backing memory as needed.
func (r *Restricted) Grow(deltaPages uint64) int64 {
	prev := r.Size()
	if prev+deltaPages > r.hi-r.lo {
		return -1
	}

	backingPrev := r.backing.Grow(deltaPages)
	if backingPrev < 0 {
		return -1
	}

	return int64(prev)
}

// ReadAt reads from the window, translating offset into the backing
// memory's address space.
func (r *Restricted) ReadAt(offset uint64, buf []byte) error {
	if !r.withinWindow(offset, uint64(len(buf))) {
		return fmt.Errorf("%w: restricted read [%d,%d) outside window of %d pages", ErrOutOfBounds, offset, offset+uint64(len(buf)), r.hi-r.lo)
	}

	return r.backing.ReadAt(r.lo*Page+offset, buf)
}

// WriteAt writes into the window, translating offset into the backing
// memory's address space. It refuses to write past the window's hard
// bound (hi), even though it may grow the backing memory up to that
// point.
func (r *Restricted) WriteAt(offset uint64, buf []byte) error {
	end := offset + uint64(len(buf))
	if end > (r.hi-r.lo)*Page {
		return fmt.Errorf("%w: restricted write [%d,%d) exceeds window of %d pages", ErrOutOfBounds, offset, end, r.hi-r.lo)
	}

	return r.backing.WriteAt(r.lo*Page+offset, buf)
}

func (r *Restricted) withinWindow(offset, length uint64) bool {
	windowBytes := r.Size() * Page
	return offset+length <= windowBytes
}
