package memory

import (
	"bytes"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
	"golang.org/x/sys/unix"

	"github.com/calvinalkan/anchorstore/internal/fs"
)

// FileMemory is a Memory backed by an mmap'd file, so its contents survive
// process restarts the way the spec's "stable memory" survives upgrades.
//
// Opening and truncating go through an [fs.FS], the same filesystem
// abstraction the rest of the module's ambient stack uses, so a test can
// substitute [fs.Chaos] or a strict test double and exercise FileMemory
// against injected I/O failures without touching a real disk. The mmap
// itself is unavoidably real: no interface in fs captures that operation.
//
// Growth re-mmaps the file after truncating it to the new size; this
// mirrors the mmap-then-grow dance `cache_binary.go` does with
// syscall.Mmap, but through the ecosystem-maintained golang.org/x/sys/unix
// wrapper instead of the raw syscall package.
type FileMemory struct {
	f    fs.File
	data []byte
}

// OpenFileMemory opens (creating if necessary) a file-backed Memory at
// path via filesystem. An existing file's size must already be a whole
// number of pages.
func OpenFileMemory(filesystem fs.FS, path string) (*FileMemory, error) {
	f, err := filesystem.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening backing file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat backing file: %w", err)
	}

	if info.Size()%Page != 0 {
		_ = f.Close()
		return nil, fmt.Errorf("backing file size %d is not a whole number of pages", info.Size())
	}

	fm := &FileMemory{f: f}
	if info.Size() > 0 {
		if err := fm.mmap(info.Size()); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	return fm, nil
}

// Close unmaps and closes the backing file.
func (fm *FileMemory) Close() error {
	if fm.data != nil {
		if err := unix.Munmap(fm.data); err != nil {
			return fmt.Errorf("munmap: %w", err)
		}

		fm.data = nil
	}

	return fm.f.Close()
}

// Size reports the current size in pages.
func (fm *FileMemory) Size() uint64 {
	return uint64(len(fm.data)) / Page
}

// Grow extends the backing file by deltaPages pages and remaps it,
// returning the previous size in pages, or -1 on failure.
func (fm *FileMemory) Grow(deltaPages uint64) int64 {
	prev := fm.Size()
	newSize := int64((prev + deltaPages) * Page)

	if fm.data != nil {
		if err := unix.Munmap(fm.data); err != nil {
			return -1
		}

		fm.data = nil
	}

	if err := fm.f.Truncate(newSize); err != nil {
		return -1
	}

	if newSize > 0 {
		if err := fm.mmap(newSize); err != nil {
			return -1
		}
	}

	return int64(prev)
}

// ReadAt fills buf from offset. Reads past the current size fail.
func (fm *FileMemory) ReadAt(offset uint64, buf []byte) error {
	end := offset + uint64(len(buf))
	if end > uint64(len(fm.data)) {
		return fmt.Errorf("%w: read [%d,%d) exceeds size %d", ErrOutOfBounds, offset, end, len(fm.data))
	}

	copy(buf, fm.data[offset:end])

	return nil
}

// WriteAt writes buf at offset, growing the memory first if necessary.
func (fm *FileMemory) WriteAt(offset uint64, buf []byte) error {
	end := offset + uint64(len(buf))
	if end > uint64(len(fm.data)) {
		neededPages := (end + Page - 1) / Page
		currentPages := fm.Size()
		if neededPages > currentPages {
			if fm.Grow(neededPages-currentPages) < 0 {
				return fmt.Errorf("%w: write [%d,%d) needs %d pages", ErrGrowFailed, offset, end, neededPages)
			}
		}
	}

	copy(fm.data[offset:end], buf)

	return nil
}

// Snapshot durably copies the current contents to dstPath using a
// temp-file-then-rename so a crash mid-copy never leaves a partially
// written snapshot, the same pattern `internal/fs.Real.WriteFileAtomic`
// uses via github.com/natefinch/atomic for cache files.
func (fm *FileMemory) Snapshot(dstPath string) error {
	return atomic.WriteFile(dstPath, bytes.NewReader(fm.data))
}

func (fm *FileMemory) mmap(size int64) error {
	data, err := unix.Mmap(int(fm.f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmap: %w", err)
	}

	fm.data = data

	return nil
}
