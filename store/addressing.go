package store

// lengthPrefixSize is the width of the length prefix in front of every
// record: a little-endian uint16.
const lengthPrefixSize = 2

// slotFor resolves an anchor number to its slot index within the anchor
// memory, enforcing both the assigned id range and the allocated-count
// watermark.
func (h *header) slotFor(anchorNumber uint64) (uint32, error) {
	if anchorNumber < h.idRangeLo || anchorNumber >= h.idRangeHi {
		return 0, &AnchorNumberOutOfRangeError{
			AnchorNumber: anchorNumber,
			RangeLo:      h.idRangeLo,
			RangeHi:      h.idRangeHi,
		}
	}

	slot := anchorNumber - h.idRangeLo
	if slot >= uint64(h.numAnchors) {
		return 0, &BadAnchorNumberError{AnchorNumber: anchorNumber}
	}

	return uint32(slot), nil //nolint:gosec // bounded by idRangeHi-idRangeLo, which is range-checked against DefaultRangeSize
}

// slotAddress returns the byte offset of slot within the anchor memory's
// own address space (already offset from the backing memory's start).
func (h *header) slotAddress(slot uint32) uint64 {
	return uint64(slot) * uint64(h.entrySize)
}

// payloadLimit is the maximum encoded-payload size a slot can hold, after
// accounting for the 2-byte length prefix.
func (h *header) payloadLimit() int {
	return int(h.entrySize) - lengthPrefixSize
}

// unusedMemoryStart returns the byte address, within the anchor memory,
// of the first byte not yet allocated to any anchor.
func (h *header) unusedMemoryStart() uint64 {
	return h.slotAddress(h.numAnchors)
}
