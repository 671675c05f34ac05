// Package store implements the fixed-record persistent store for identity
// anchor entries described by the spec: header codec, record addressing,
// the storage facade, and the v6->v7 layout migration.
package store

import (
	"fmt"

	"github.com/calvinalkan/anchorstore/memory"
	"github.com/calvinalkan/anchorstore/memory/manager"
)

// anchorMemoryIndex is the fixed virtual-memory index the anchor records
// live at once a store has been migrated to the managed layout. Other
// indices are reserved for future callers of the same memory manager.
const anchorMemoryIndex = 0

// Storage binds the header codec, record addressing, and whichever anchor
// memory flavour (flat or managed) the recovered layout version calls for,
// into the single facade the rest of a canister's code talks to.
//
// A is the anchor payload type; Storage treats it as opaque and delegates
// all encoding to the supplied Codec.
type Storage[A any] struct {
	hdr       header
	headerMem memory.Memory
	anchorMem memory.Memory
	mgr       *manager.Manager // non-nil only for LayoutManaged
	codec     Codec[A]
}

// New creates an empty storage that manages anchors in [idRangeLo,
// idRangeHi), using backing as the underlying stable memory and mode to
// pick the flat (v6) or managed (v7) layout. It panics if the range is
// improper or too large for a single store -- both are programmer errors,
// not conditions a caller could recover from.
func New[A any](idRangeLo, idRangeHi uint64, mode LayoutVersion, backing memory.Memory, codec Codec[A]) *Storage[A] {
	if idRangeHi < idRangeLo {
		panic(fmt.Sprintf("store: improper identity anchor range: [%d, %d)", idRangeLo, idRangeHi))
	}

	if idRangeHi-idRangeLo > DefaultRangeSize {
		panic(fmt.Sprintf(
			"store: id range [%d, %d) is too large for a single store (max %d entries)",
			idRangeLo, idRangeHi, DefaultRangeSize))
	}

	s := &Storage[A]{codec: codec}

	switch mode {
	case LayoutFlat:
		s.headerMem = memory.NewRestricted(backing, 0, 2)
		s.anchorMem = memory.NewRestricted(backing, 2, MaxWasmPages)
	case LayoutManaged:
		s.headerMem = memory.NewRestricted(backing, 0, 1)
		mgrMem := memory.NewRestricted(backing, 1, MaxWasmPages)

		mgr, err := manager.Init(mgrMem)
		if err != nil {
			panic(fmt.Sprintf("store: initializing memory manager: %v", err))
		}

		s.mgr = mgr
		s.anchorMem = mgr.Get(anchorMemoryIndex)
	default:
		panic(fmt.Sprintf("store: unsupported layout mode: %d", mode))
	}

	s.hdr = header{
		version:          mode,
		numAnchors:       0,
		idRangeLo:        idRangeLo,
		idRangeHi:        idRangeHi,
		entrySize:        DefaultEntrySize,
		salt:             emptySalt,
		firstEntryOffset: EntryOffset,
	}
	s.flush()

	return s
}

// FromMemory recovers a Storage from previously initialized backing
// memory. It returns ok=false if the memory is empty (never initialized).
// Any other failure to recover -- bad magic, unsupported version -- is
// fatal and panics, since the header is either wrong or this package never
// wrote it.
func FromMemory[A any](backing memory.Memory, codec Codec[A]) (s *Storage[A], ok bool) {
	if backing.Size() < 1 {
		return nil, false
	}

	buf := make([]byte, HeaderSize)
	if err := backing.ReadAt(0, buf); err != nil {
		panic(fmt.Sprintf("store: reading stable memory header: %v", err))
	}

	hdr := decodeHeader(buf)

	s = &Storage[A]{hdr: hdr, codec: codec}

	switch hdr.version {
	case LayoutFlat:
		s.headerMem = memory.NewRestricted(backing, 0, 2)
		s.anchorMem = memory.NewRestricted(backing, 2, MaxWasmPages)
	case LayoutManaged:
		s.headerMem = memory.NewRestricted(backing, 0, 1)
		mgrMem := memory.NewRestricted(backing, 1, MaxWasmPages)

		mgr, err := manager.Recover(mgrMem)
		if err != nil {
			panic(fmt.Sprintf("store: recovering memory manager: %v", err))
		}

		s.mgr = mgr
		s.anchorMem = mgr.Get(anchorMemoryIndex)
	default:
		panic(fmt.Sprintf("store: unsupported header version: %d", hdr.version))
	}

	return s, true
}

// flush writes the full 66-byte header through to the header memory,
// unbuffered. Every header mutation ends with a call to flush before the
// operation returns (invariant 6: the header is durable).
func (s *Storage[A]) flush() {
	if err := s.headerMem.WriteAt(0, encodeHeader(&s.hdr)); err != nil {
		panic(fmt.Sprintf("store: failed to write header: %v", err))
	}
}

// Salt returns the current salt and whether one has been set.
func (s *Storage[A]) Salt() (Salt, bool) {
	if s.hdr.salt == emptySalt {
		return Salt{}, false
	}

	return s.hdr.salt, true
}

// UpdateSalt sets the store's salt. It panics if a salt has already been
// set: the salt is a write-once value (invariant 5).
func (s *Storage[A]) UpdateSalt(salt Salt) {
	if _, ok := s.Salt(); ok {
		panic("store: attempted to set the salt twice")
	}

	s.hdr.salt = salt
	s.flush()
}

// AllocateAnchor assigns the next anchor number in the store's range and
// returns it along with a fresh, zero-valued anchor. ok is false if the
// range is exhausted.
func (s *Storage[A]) AllocateAnchor() (anchorNumber uint64, anchor A, ok bool) {
	anchorNumber = s.hdr.idRangeLo + uint64(s.hdr.numAnchors)
	if anchorNumber >= s.hdr.idRangeHi {
		var zero A
		return 0, zero, false
	}

	s.hdr.numAnchors++
	s.flush()

	var zero A

	return anchorNumber, zero, true
}

// Write encodes and writes the data of the given anchor to stable memory.
func (s *Storage[A]) Write(anchorNumber uint64, data A) error {
	slot, err := s.hdr.slotFor(anchorNumber)
	if err != nil {
		return err
	}

	buf, err := s.codec.Encode(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}

	if len(buf) > s.hdr.payloadLimit() {
		return &EntrySizeLimitExceededError{Size: len(buf), Limit: s.hdr.payloadLimit()}
	}

	address := s.hdr.slotAddress(slot)

	w := memory.NewBufferedWriter(s.anchorMem, address, int(s.hdr.entrySize))

	lengthPrefix := []byte{byte(len(buf)), byte(len(buf) >> 8)}
	if err := w.WriteAll(lengthPrefix); err != nil {
		panic(fmt.Sprintf("store: memory write failed: %v", err))
	}

	if err := w.WriteAll(buf); err != nil {
		panic(fmt.Sprintf("store: memory write failed: %v", err))
	}

	if err := w.Flush(); err != nil {
		panic(fmt.Sprintf("store: memory write failed: %v", err))
	}

	return nil
}

// Read decodes and returns the data of the given anchor from stable
// memory.
func (s *Storage[A]) Read(anchorNumber uint64) (A, error) {
	var zero A

	slot, err := s.hdr.slotFor(anchorNumber)
	if err != nil {
		return zero, err
	}

	address := s.hdr.slotAddress(slot)

	r := memory.NewBufferedReader(s.anchorMem, address, int(s.hdr.entrySize))

	lengthBuf := make([]byte, lengthPrefixSize)
	if err := r.ReadExact(lengthBuf); err != nil {
		panic(fmt.Sprintf("store: failed to read memory: %v", err))
	}

	length := int(lengthBuf[0]) | int(lengthBuf[1])<<8

	if length > s.hdr.payloadLimit() {
		panic(fmt.Sprintf("store: persisted value size %d exceeds maximum size %d", length, s.hdr.payloadLimit()))
	}

	data := make([]byte, length)
	if err := r.ReadExact(data); err != nil {
		panic(fmt.Sprintf("store: failed to read memory: %v", err))
	}

	decoded, err := s.codec.Decode(data)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrDeserialization, err)
	}

	return decoded, nil
}

// AnchorCount returns the number of allocated anchors.
func (s *Storage[A]) AnchorCount() uint32 {
	return s.hdr.numAnchors
}

// AssignedRange returns the currently assigned [lo, hi) anchor-number
// range.
func (s *Storage[A]) AssignedRange() (lo, hi uint64) {
	return s.hdr.idRangeLo, s.hdr.idRangeHi
}

// MaxEntries returns the maximum number of entries this store can fit
// given its entry size and the stable-memory reserve.
func (s *Storage[A]) MaxEntries() uint64 {
	return (StableMemorySize - s.hdr.firstEntryOffset - StableMemoryReserve) / uint64(s.hdr.entrySize)
}

// SetAnchorNumberRange updates the assigned anchor-number range. It
// panics if the new range is improper, too large, or would orphan an
// existing anchor (moving id_range_lo, or shrinking below num_anchors).
func (s *Storage[A]) SetAnchorNumberRange(lo, hi uint64) {
	if hi < lo {
		panic(fmt.Sprintf("store: set_anchor_number_range: improper identity anchor range [%d, %d)", lo, hi))
	}

	if hi-lo > s.MaxEntries() {
		panic(fmt.Sprintf(
			"store: set_anchor_number_range: specified range [%d, %d) is too large for this store (max %d entries)",
			lo, hi, s.MaxEntries()))
	}

	if s.hdr.numAnchors > 0 {
		if s.hdr.idRangeLo != lo {
			panic(fmt.Sprintf(
				"store: set_anchor_number_range: specified range [%d, %d) does not start from the same number (%d) as the existing range thus would make existing anchors invalid",
				lo, hi, s.hdr.idRangeLo))
		}

		if hi-lo < uint64(s.hdr.numAnchors) {
			panic(fmt.Sprintf(
				"store: set_anchor_number_range: specified range [%d, %d) does not accommodate all %d anchors thus would make existing anchors invalid",
				lo, hi, s.hdr.numAnchors))
		}
	}

	s.hdr.idRangeLo = lo
	s.hdr.idRangeHi = hi
	s.flush()
}

// Version reports the store's on-disk layout version.
func (s *Storage[A]) Version() LayoutVersion {
	return s.hdr.version
}

// writePersistentStateBytes writes an already-encoded persistent-state
// blob to the unused tail of allocated anchor space.
func (s *Storage[A]) writePersistentStateBytes(encoded []byte) error {
	address := s.hdr.unusedMemoryStart()
	w := memory.NewBufferedWriter(s.anchorMem, address, int(s.hdr.entrySize))

	if err := writePersistentStateFrame(w, encoded); err != nil {
		panic(fmt.Sprintf("store: failed to write persistent state: %v", err))
	}

	return nil
}

// readPersistentStateBytes reads the raw persistent-state payload from the
// unused tail of allocated anchor space.
func (s *Storage[A]) readPersistentStateBytes() ([]byte, error) {
	address := s.hdr.unusedMemoryStart()
	if address > s.anchorMem.Size()*memory.Page {
		return nil, ErrPersistentStateNotFound
	}

	r := memory.NewBufferedReader(s.anchorMem, address, int(s.hdr.entrySize))

	return readPersistentStateFrame(r)
}
