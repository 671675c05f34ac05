package manager

import (
	"fmt"

	"github.com/calvinalkan/anchorstore/memory"
)

const bucketSizeBytes = BucketSizeInPages * memory.Page

// Manager multiplexes up to MaxMemories independent virtual memories onto a
// single backing memory. Its own address space is: page 0 holds the MM
// header plus the bucket-to-memory assignment table (HeaderSize bytes,
// padded to a page by the caller), and every page from 1 onward is divided
// into BucketSizeInPages-page buckets, each owned by at most one virtual
// memory.
type Manager struct {
	mem    memory.Memory
	header header

	// bucketsOf caches, per memory index, the ordered list of physical
	// bucket numbers assigned to it. Buckets are only ever appended, never
	// reassigned, so this cache only grows.
	bucketsOf [MaxMemories][]uint16
}

// Init creates a fresh Manager over mem, writing an empty header.
func Init(mem memory.Memory) (*Manager, error) {
	m := &Manager{mem: mem, header: newHeader()}
	if err := m.flush(); err != nil {
		return nil, err
	}

	return m, nil
}

// InitForMigration builds a fresh MM header directly, without going
// through ensureCapacity's bucket-scanning and size-rounding: physical
// buckets 0..numBuckets-1 are assigned contiguously to index, and that
// memory's logical size is pinned to exactly sizeInPages rather than
// rounded up to a bucket multiple. This is what a caller migrating an
// existing flat-layout memory into a managed one needs: the anchor bytes
// already sit at their final physical offsets, so only the metadata
// describing them has to be synthesized, at the exact size they were
// before.
func InitForMigration(mem memory.Memory, index uint8, numBuckets uint16, sizeInPages uint64) (*Manager, error) {
	h := newHeader()
	h.numAllocatedBuckets = numBuckets

	for i := uint16(0); i < numBuckets; i++ {
		h.bucketToMemory[i] = index
	}

	h.memorySizesInPages[index] = sizeInPages

	m := &Manager{mem: mem, header: h}
	m.rebuildBucketCache()

	if err := m.flush(); err != nil {
		return nil, err
	}

	return m, nil
}

// Recover reconstructs a Manager from a previously initialized mem.
func Recover(mem memory.Memory) (*Manager, error) {
	buf := make([]byte, HeaderSize)
	if err := mem.ReadAt(0, buf); err != nil {
		return nil, fmt.Errorf("reading manager header: %w", err)
	}

	h, err := decode(buf)
	if err != nil {
		return nil, err
	}

	m := &Manager{mem: mem, header: h}
	m.rebuildBucketCache()

	return m, nil
}

func (m *Manager) rebuildBucketCache() {
	for physical, owner := range m.header.bucketToMemory {
		if owner == UnallocatedBucket {
			continue
		}

		m.bucketsOf[owner] = append(m.bucketsOf[owner], uint16(physical)) //nolint:gosec // physical < MaxBuckets
	}
}

func (m *Manager) flush() error {
	return m.mem.WriteAt(0, encode(&m.header))
}

// Get returns a VirtualMemory handle for the given logical memory index.
func (m *Manager) Get(index uint8) *VirtualMemory {
	return &VirtualMemory{mgr: m, index: index}
}

// sizeInPages returns the logical size, in pages, of the given memory.
func (m *Manager) sizeInPages(index uint8) uint64 {
	return m.header.memorySizesInPages[index]
}

// ensureCapacity grows the given memory's bucket allocation until it can
// address at least minPages pages, allocating fresh buckets and growing
// the backing memory as needed.
func (m *Manager) ensureCapacity(index uint8, minPages uint64) error {
	haveBuckets := uint64(len(m.bucketsOf[index]))
	haveCapacity := haveBuckets * BucketSizeInPages
	if haveCapacity >= minPages {
		return nil
	}

	neededBuckets := (minPages + BucketSizeInPages - 1) / BucketSizeInPages
	toAllocate := neededBuckets - haveBuckets

	if uint64(m.header.numAllocatedBuckets)+toAllocate > MaxBuckets {
		return fmt.Errorf("manager: bucket table exhausted (have %d, need %d more)", m.header.numAllocatedBuckets, toAllocate)
	}

	newPhysical := make([]uint16, 0, toAllocate)

	for i := range m.header.bucketToMemory {
		if uint64(len(newPhysical)) == toAllocate {
			break
		}

		if m.header.bucketToMemory[i] == UnallocatedBucket {
			newPhysical = append(newPhysical, uint16(i)) //nolint:gosec // i < MaxBuckets
		}
	}

	highestPhysical := uint64(0)
	for _, p := range newPhysical {
		if uint64(p)+1 > highestPhysical {
			highestPhysical = uint64(p) + 1
		}
	}

	// Backing mem page 0 is the header; bucket p occupies pages
	// [1 + p*BucketSizeInPages, 1 + (p+1)*BucketSizeInPages).
	requiredBackingPages := 1 + highestPhysical*BucketSizeInPages
	if m.mem.Size() < requiredBackingPages {
		if m.mem.Grow(requiredBackingPages-m.mem.Size()) < 0 {
			return fmt.Errorf("%w: growing manager backing memory", memory.ErrGrowFailed)
		}
	}

	for _, p := range newPhysical {
		m.header.bucketToMemory[p] = index
	}

	m.bucketsOf[index] = append(m.bucketsOf[index], newPhysical...)
	m.header.numAllocatedBuckets += uint16(toAllocate) //nolint:gosec // bounded by MaxBuckets
	m.header.memorySizesInPages[index] = neededBuckets * BucketSizeInPages

	return m.flush()
}

// physicalOffset translates a logical byte offset within memory `index`
// into a byte offset within the manager's own address space.
func (m *Manager) physicalOffset(index uint8, logicalOffset uint64) (uint64, error) {
	bucket := logicalOffset / bucketSizeBytes
	within := logicalOffset % bucketSizeBytes

	buckets := m.bucketsOf[index]
	if bucket >= uint64(len(buckets)) {
		return 0, fmt.Errorf("%w: logical bucket %d not allocated for memory %d", memory.ErrOutOfBounds, bucket, index)
	}

	physical := uint64(buckets[bucket])

	return (1+physical*BucketSizeInPages)*memory.Page + within, nil
}

// VirtualMemory is a logical byte array presented by a Manager, backed by
// a dynamic set of physical buckets. It implements memory.Memory.
type VirtualMemory struct {
	mgr   *Manager
	index uint8
}

// Size reports the virtual memory's logical size in pages.
func (v *VirtualMemory) Size() uint64 {
	return v.mgr.sizeInPages(v.index)
}

// Grow extends the virtual memory by deltaPages pages, allocating fresh
// buckets as needed.
func (v *VirtualMemory) Grow(deltaPages uint64) int64 {
	prev := v.Size()
	if err := v.mgr.ensureCapacity(v.index, prev+deltaPages); err != nil {
		return -1
	}

	return int64(prev)
}

// ReadAt reads from the virtual memory, translating through the bucket
// table to the Manager's backing memory.
func (v *VirtualMemory) ReadAt(offset uint64, buf []byte) error {
	if offset+uint64(len(buf)) > v.Size()*memory.Page {
		return fmt.Errorf("%w: virtual read [%d,%d) exceeds size", memory.ErrOutOfBounds, offset, offset+uint64(len(buf)))
	}

	remaining := buf
	pos := offset

	for len(remaining) > 0 {
		physical, err := v.mgr.physicalOffset(v.index, pos)
		if err != nil {
			return err
		}

		n := v.chunk(pos, len(remaining))
		if err := v.mgr.mem.ReadAt(physical, remaining[:n]); err != nil {
			return err
		}

		remaining = remaining[n:]
		pos += uint64(n)
	}

	return nil
}

// WriteAt writes to the virtual memory, growing it first if necessary,
// then translating through the bucket table.
func (v *VirtualMemory) WriteAt(offset uint64, buf []byte) error {
	end := offset + uint64(len(buf))
	if end > v.Size()*memory.Page {
		if err := v.mgr.ensureCapacity(v.index, (end+memory.Page-1)/memory.Page); err != nil {
			return err
		}
	}

	remaining := buf
	pos := offset

	for len(remaining) > 0 {
		physical, err := v.mgr.physicalOffset(v.index, pos)
		if err != nil {
			return err
		}

		n := v.chunk(pos, len(remaining))
		if err := v.mgr.mem.WriteAt(physical, remaining[:n]); err != nil {
			return err
		}

		remaining = remaining[n:]
		pos += uint64(n)
	}

	return nil
}

// chunk returns how many bytes starting at logical offset pos can be
// transferred before crossing a bucket boundary (buckets needn't be
// physically contiguous, so a single I/O can't span one).
func (v *VirtualMemory) chunk(pos uint64, remaining int) int {
	withinBucket := bucketSizeBytes - pos%bucketSizeBytes
	if uint64(remaining) < withinBucket {
		return remaining
	}

	return int(withinBucket)
}
