package memory

import "fmt"

// InProcess is a growable, heap-backed Memory implementation. It is the
// primary Memory used by tests and by callers that don't need the contents
// to outlive the process (anything that does should use FileMemory
// instead).
type InProcess struct {
	data     []byte
	maxPages uint64
}

// NewInProcess returns an empty InProcess memory. If maxPages is non-zero,
// Grow refuses to extend the memory beyond that many pages.
func NewInProcess(maxPages uint64) *InProcess {
	return &InProcess{maxPages: maxPages}
}

// Size reports the current size in pages.
func (m *InProcess) Size() uint64 {
	return uint64(len(m.data)) / Page
}

// Grow extends the memory by deltaPages pages, returning the previous
// size in pages, or -1 if the growth would exceed maxPages.
func (m *InProcess) Grow(deltaPages uint64) int64 {
	prev := m.Size()
	if m.maxPages != 0 && prev+deltaPages > m.maxPages {
		return -1
	}

	m.data = append(m.data, make([]byte, deltaPages*Page)...)

	return int64(prev)
}

// ReadAt fills buf from offset. Reads past the current size fail.
func (m *InProcess) ReadAt(offset uint64, buf []byte) error {
	end := offset + uint64(len(buf))
	if end > uint64(len(m.data)) {
		return fmt.Errorf("%w: read [%d,%d) exceeds size %d", ErrOutOfBounds, offset, end, len(m.data))
	}

	copy(buf, m.data[offset:end])

	return nil
}

// WriteAt writes buf at offset, growing the memory first if necessary.
func (m *InProcess) WriteAt(offset uint64, buf []byte) error {
	end := offset + uint64(len(buf))
	if end > uint64(len(m.data)) {
		neededPages := (end + Page - 1) / Page
		currentPages := m.Size()
		if neededPages > currentPages {
			if m.Grow(neededPages-currentPages) < 0 {
				return fmt.Errorf("%w: write [%d,%d) needs %d pages", ErrGrowFailed, offset, end, neededPages)
			}
		}
	}

	copy(m.data[offset:end], buf)

	return nil
}
