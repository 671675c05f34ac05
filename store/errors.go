package store

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by recoverable Storage operations.
//
// Callers should use errors.Is/errors.As to classify these; anything not
// in this taxonomy (bad magic, unsupported version, a corrupt stored
// length, a double salt set, a range mutation that would orphan an
// existing anchor) is a fatal, unrecoverable condition and panics instead
// -- the store's invariants are already broken and there is nothing a
// caller could do but stop.
var (
	// ErrAnchorNumberOutOfRange means n falls outside the assigned
	// [id_range_lo, id_range_hi) range.
	ErrAnchorNumberOutOfRange = errors.New("store: anchor number out of range")
	// ErrBadAnchorNumber means n is within range but not yet allocated.
	ErrBadAnchorNumber = errors.New("store: bad anchor number")
	// ErrEntrySizeLimitExceeded means an encoded payload is too large for
	// the configured entry size.
	ErrEntrySizeLimitExceeded = errors.New("store: entry size limit exceeded")
	// ErrSerialization wraps a failure from the anchor codec on write.
	ErrSerialization = errors.New("store: serialization error")
	// ErrDeserialization wraps a failure from the anchor codec on read.
	ErrDeserialization = errors.New("store: deserialization error")

	// ErrPersistentStateNotFound means no persistent-state blob is present
	// at the expected location.
	ErrPersistentStateNotFound = errors.New("store: persistent state not found")
	// ErrPersistentStateRead wraps an I/O failure while reading a
	// persistent-state blob whose magic was already validated.
	ErrPersistentStateRead = errors.New("store: persistent state read error")
	// ErrPersistentStateDecode wraps a failure from the state codec.
	ErrPersistentStateDecode = errors.New("store: persistent state decode error")
)

// AnchorNumberOutOfRangeError carries the offending anchor number and the
// currently assigned range.
type AnchorNumberOutOfRangeError struct {
	AnchorNumber    uint64
	RangeLo, RangeHi uint64
}

func (e *AnchorNumberOutOfRangeError) Error() string {
	return fmt.Sprintf("identity anchor %d is out of range [%d, %d)", e.AnchorNumber, e.RangeLo, e.RangeHi)
}

func (e *AnchorNumberOutOfRangeError) Unwrap() error { return ErrAnchorNumberOutOfRange }

// BadAnchorNumberError carries the offending, not-yet-allocated anchor
// number.
type BadAnchorNumberError struct {
	AnchorNumber uint64
}

func (e *BadAnchorNumberError) Error() string {
	return fmt.Sprintf("bad identity anchor %d", e.AnchorNumber)
}

func (e *BadAnchorNumberError) Unwrap() error { return ErrBadAnchorNumber }

// EntrySizeLimitExceededError carries the offending encoded payload size.
type EntrySizeLimitExceededError struct {
	Size  int
	Limit int
}

func (e *EntrySizeLimitExceededError) Error() string {
	return fmt.Sprintf("attempted to store an entry of size %d which is larger than the max allowed entry size %d", e.Size, e.Limit)
}

func (e *EntrySizeLimitExceededError) Unwrap() error { return ErrEntrySizeLimitExceeded }
