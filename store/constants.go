package store

import "github.com/calvinalkan/anchorstore/memory"

// Layout constants, mirroring the values fixed by original_source/storage.rs.
const (
	// EntryOffset is the byte offset of the first anchor record: the
	// first two pages are reserved for the storage header (and, in the
	// managed layout, the memory-manager metadata).
	EntryOffset = 2 * memory.Page

	// DefaultEntrySize is the fixed width of every anchor record's slot.
	DefaultEntrySize = 4096

	gb = 1 << 30

	// StableMemorySize is the total addressable backing-store size.
	StableMemorySize = 32 * gb

	// StableMemoryReserve is kept unallocated at the tail of the backing
	// store for future features and the ephemeral persistent-state blob.
	StableMemoryReserve = 8 * gb / 10

	// MaxWasmPages is the largest page count the backing store can reach.
	MaxWasmPages = StableMemorySize / memory.Page

	// DefaultRangeSize is the largest anchor-number range a single store
	// can serve at the default entry size.
	DefaultRangeSize = (StableMemorySize - EntryOffset - StableMemoryReserve) / DefaultEntrySize
)
