package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Codec is the external collaborator the spec treats as opaque: it turns
// an anchor payload of type A into a bounded byte string and back. The
// store package only cares that encoding is deterministic and that
// decoding a previously encoded value reproduces it; it has no opinion on
// the wire format.
type Codec[A any] interface {
	Encode(a A) ([]byte, error)
	Decode(buf []byte) (A, error)
}

// GobCodec is a Codec built on encoding/gob, the same serialization the
// teacher's TicketCache uses for its on-disk cache (see cache.go). It's a
// reasonable default for callers that don't need a specific wire format.
type GobCodec[A any] struct{}

// Encode gob-encodes a.
func (GobCodec[A]) Encode(a A) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(a); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}

	return buf.Bytes(), nil
}

// Decode gob-decodes buf into a value of type A.
func (GobCodec[A]) Decode(buf []byte) (A, error) {
	var a A

	if err := gob.NewDecoder(bytes.NewReader(buf)).Decode(&a); err != nil {
		return a, fmt.Errorf("gob decode: %w", err)
	}

	return a, nil
}
