package store

import (
	"encoding/binary"
	"fmt"
)

// Storage header layout: a packed, 66-byte structure at address 0 of the
// header memory. Encoding follows the same explicit-offset style as
// pkg/slotcache's SLC1 header codec rather than reinterpreting a struct's
// raw bytes, so the layout is portable and independently testable.
const (
	headerMagic = "IIC"

	offMagic            = 0                   // [3]byte
	offVersion          = offMagic + 3         // uint8
	offNumAnchors       = offVersion + 1       // uint32
	offIDRangeLo        = offNumAnchors + 4    // uint64
	offIDRangeHi        = offIDRangeLo + 8     // uint64
	offEntrySize        = offIDRangeHi + 8     // uint16
	offSalt             = offEntrySize + 2     // [32]byte
	offFirstEntryOffset = offSalt + 32         // uint64
	headerSize          = offFirstEntryOffset + 8
)

// HeaderSize is the fixed, on-disk size of the storage header in bytes.
const HeaderSize = headerSize

// Salt is a 32-byte application-chosen constant, written at most once.
type Salt [32]byte

var emptySalt Salt

// LayoutVersion identifies which on-disk layout a header describes.
type LayoutVersion uint8

// Supported layout versions. Anything else is rejected on recovery:
// versions below LayoutFlat are no longer supported (guided-migration
// message), versions above LayoutManaged are simply unknown.
const (
	LayoutFlat    LayoutVersion = 6
	LayoutManaged LayoutVersion = 7
)

// header is the in-memory form of the 66-byte on-disk storage header.
type header struct {
	version          LayoutVersion
	numAnchors       uint32
	idRangeLo        uint64
	idRangeHi        uint64
	entrySize        uint16
	salt             Salt
	firstEntryOffset uint64
}

// encodeHeader serializes h into its 66-byte on-disk form.
func encodeHeader(h *header) []byte {
	buf := make([]byte, headerSize)

	copy(buf[offMagic:], headerMagic)
	buf[offVersion] = byte(h.version)
	binary.LittleEndian.PutUint32(buf[offNumAnchors:], h.numAnchors)
	binary.LittleEndian.PutUint64(buf[offIDRangeLo:], h.idRangeLo)
	binary.LittleEndian.PutUint64(buf[offIDRangeHi:], h.idRangeHi)
	binary.LittleEndian.PutUint16(buf[offEntrySize:], h.entrySize)
	copy(buf[offSalt:], h.salt[:])
	binary.LittleEndian.PutUint64(buf[offFirstEntryOffset:], h.firstEntryOffset)

	return buf
}

// decodeHeader parses buf (which must be at least headerSize bytes) into a
// header, validating the magic and layout version. Any failure here is
// fatal: either the memory was never initialized by this package, belongs
// to an unsupported layout generation, or has been corrupted.
func decodeHeader(buf []byte) header {
	if string(buf[offMagic:offMagic+3]) != headerMagic {
		panic(fmt.Sprintf("store: stable memory header: invalid magic: %q", buf[offMagic:offMagic+3]))
	}

	v := LayoutVersion(buf[offVersion])

	switch {
	case v < LayoutFlat:
		panic(fmt.Sprintf(
			"store: stable memory layout version %d is no longer supported: "+
				"either reinstall (wiping stable memory) or migrate using a previous version", v))
	case v > LayoutManaged:
		panic(fmt.Sprintf("store: unsupported header version: %d", v))
	}

	return header{
		version:          v,
		numAnchors:       binary.LittleEndian.Uint32(buf[offNumAnchors:]),
		idRangeLo:        binary.LittleEndian.Uint64(buf[offIDRangeLo:]),
		idRangeHi:        binary.LittleEndian.Uint64(buf[offIDRangeHi:]),
		entrySize:        binary.LittleEndian.Uint16(buf[offEntrySize:]),
		salt:             Salt(buf[offSalt : offSalt+32]),
		firstEntryOffset: binary.LittleEndian.Uint64(buf[offFirstEntryOffset:]),
	}
}
