package store

import (
	"fmt"

	"github.com/calvinalkan/anchorstore/memory"
	"github.com/calvinalkan/anchorstore/memory/manager"
)

// MigrateV6ToV7 rewrites a flat-layout (v6) backing memory into a managed
// layout (v7) one in place: the storage header is moved onto its own page,
// a memory-manager header and bucket table are synthesized for a page 1,
// and the existing anchor records are left at their original absolute
// backing-store addresses -- logical bucket 0 of virtual memory 0 always
// lands at backing page 2, exactly where v6 already placed the anchor
// region.
//
// It is idempotent: calling it on a memory already at v7 is a no-op.
// Calling it on any other version is a programmer/corruption error and
// panics, the same as decodeHeader does for any other unsupported version.
//
// The version bump to 7 is the last write MigrateV6ToV7 performs: if the
// process is interrupted before it, the memory is still a perfectly valid
// v6 store (the MM header and bucket table occupy a region v6 never reads).
func MigrateV6ToV7(backing memory.Memory) error {
	headerBuf := make([]byte, HeaderSize)
	if err := backing.ReadAt(0, headerBuf); err != nil {
		return fmt.Errorf("store: migration: reading stable memory header: %w", err)
	}

	hdr := decodeHeader(headerBuf)

	switch hdr.version {
	case LayoutManaged:
		return nil
	case LayoutFlat:
		// fall through to the migration below
	default:
		panic(fmt.Sprintf("store: migration: cannot migrate from unsupported layout version %d", hdr.version))
	}

	const v6AnchorStartPage = 2

	v6AnchorPages := uint64(0)
	if backing.Size() > v6AnchorStartPage {
		v6AnchorPages = backing.Size() - v6AnchorStartPage
	}

	numAllocatedBuckets := (v6AnchorPages + manager.BucketSizeInPages - 1) / manager.BucketSizeInPages
	if numAllocatedBuckets > manager.MaxBuckets {
		panic(fmt.Sprintf("store: migration: anchor region needs %d buckets, exceeding the maximum of %d", numAllocatedBuckets, manager.MaxBuckets))
	}

	requiredBackingPages := v6AnchorStartPage + numAllocatedBuckets*manager.BucketSizeInPages
	if backing.Size() < requiredBackingPages {
		if backing.Grow(requiredBackingPages-backing.Size()) < 0 {
			panic("store: migration: failed to grow backing memory for the bucket region")
		}
	}

	mgrMem := memory.NewRestricted(backing, 1, MaxWasmPages)

	numBuckets16 := uint16(numAllocatedBuckets) //nolint:gosec // bounded by manager.MaxBuckets above
	if _, err := manager.InitForMigration(mgrMem, anchorMemoryIndex, numBuckets16, v6AnchorPages); err != nil {
		return fmt.Errorf("store: migration: writing memory manager metadata: %w", err)
	}

	hdr.version = LayoutManaged

	headerMem := memory.NewRestricted(backing, 0, 1)
	if err := headerMem.WriteAt(0, encodeHeader(&hdr)); err != nil {
		panic(fmt.Sprintf("store: migration: writing storage header: %v", err))
	}

	return nil
}
