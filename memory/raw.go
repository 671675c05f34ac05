// Package memory provides the page-addressable byte-array abstraction that
// the store package is built on, plus the adapters layered on top of it:
// a bounded sub-range view, a bucket-multiplexing manager, and buffered
// readers/writers.
package memory

import "errors"

// Page is the fixed unit of growth, matching the host platform's page size.
const Page = 65_536

// ErrGrowFailed is returned by operations that grow a Memory on demand
// (such as WriteAt) when Grow reports failure by returning -1, e.g.
// because the backing store has hit a hard capacity limit.
var ErrGrowFailed = errors.New("memory: grow failed")

// Memory is the capability surface every storage component is built on.
//
// Implementations may assume single-threaded, non-overlapping access and
// that writes never partially complete: a Write either places every byte
// or the implementation itself is broken (a programmer error, not a
// recoverable one).
type Memory interface {
	// Size reports the current size of the memory in pages.
	Size() uint64

	// Grow increases the memory by delta pages and returns the previous
	// size in pages, or -1 if the memory could not grow (e.g. would
	// exceed a hard capacity).
	Grow(deltaPages uint64) int64

	// ReadAt fills buf starting at the given byte offset. It is an error
	// to read past the current size.
	ReadAt(offset uint64, buf []byte) error

	// WriteAt writes buf starting at the given byte offset, growing the
	// memory first if the write would otherwise exceed the current size.
	WriteAt(offset uint64, buf []byte) error
}

// ErrOutOfBounds is returned when a read or write falls outside the
// addressable range of the memory (or, for RestrictedMemory, outside its
// window).
var ErrOutOfBounds = errors.New("memory: access out of bounds")
