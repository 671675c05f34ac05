package store

import (
	"encoding/binary"
	"fmt"

	"github.com/calvinalkan/anchorstore/memory"
)

// persistentStateMagic tags the out-of-band blob written to the unused
// tail of allocated anchor space across upgrades.
const persistentStateMagic = "IIPS"

// writePersistentStateFrame writes magic, an 8-byte LE length, and the
// encoded payload to w. Per the spec this always succeeds in practice (the
// stable-memory reserve guarantees room), so failures here are treated as
// fatal rather than returned to the caller.
func writePersistentStateFrame(w *memory.BufferedWriter, encoded []byte) error {
	if err := w.WriteAll([]byte(persistentStateMagic)); err != nil {
		return fmt.Errorf("writing persistent state magic: %w", err)
	}

	length := make([]byte, 8)
	binary.LittleEndian.PutUint64(length, uint64(len(encoded)))

	if err := w.WriteAll(length); err != nil {
		return fmt.Errorf("writing persistent state length: %w", err)
	}

	if err := w.WriteAll(encoded); err != nil {
		return fmt.Errorf("writing persistent state payload: %w", err)
	}

	return w.Flush()
}

// readPersistentStateFrame reads and validates the magic, then returns the
// raw encoded payload. A failure to read the magic -- including an
// out-of-bounds read -- or a magic mismatch is reported as
// ErrPersistentStateNotFound, since it means no state was ever written at
// this location; a failure reading the length or payload after a valid
// magic is reported as ErrPersistentStateRead.
func readPersistentStateFrame(r *memory.BufferedReader) ([]byte, error) {
	magicBuf := make([]byte, len(persistentStateMagic))
	if err := r.ReadExact(magicBuf); err != nil {
		return nil, ErrPersistentStateNotFound
	}

	if string(magicBuf) != persistentStateMagic {
		return nil, ErrPersistentStateNotFound
	}

	lengthBuf := make([]byte, 8)
	if err := r.ReadExact(lengthBuf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistentStateRead, err)
	}

	length := binary.LittleEndian.Uint64(lengthBuf)

	data := make([]byte, length)
	if err := r.ReadExact(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistentStateRead, err)
	}

	return data, nil
}

// WritePersistentState encodes value with codec and writes it to s's
// out-of-band persistent-state slot. S is independent of the store's own
// anchor payload type A: persistent state is a single, separately-typed
// blob shared across all anchors in the store.
func WritePersistentState[A, S any](s *Storage[A], codec Codec[S], value S) error {
	encoded, err := codec.Encode(value)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}

	return s.writePersistentStateBytes(encoded)
}

// ReadPersistentState reads and decodes s's out-of-band persistent-state
// blob with codec. It returns ErrPersistentStateNotFound if none has ever
// been written.
func ReadPersistentState[A, S any](s *Storage[A], codec Codec[S]) (S, error) {
	var zero S

	raw, err := s.readPersistentStateBytes()
	if err != nil {
		return zero, err
	}

	decoded, err := codec.Decode(raw)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrPersistentStateDecode, err)
	}

	return decoded, nil
}
