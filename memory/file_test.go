package memory

import (
	"path/filepath"
	"testing"

	"github.com/calvinalkan/anchorstore/internal/fs"
)

func Test_OpenFileMemory_Creates_Empty_File_When_Missing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "anchors.db")
	real := fs.NewReal()

	fm, err := OpenFileMemory(real, path)
	if err != nil {
		t.Fatalf("OpenFileMemory failed: %v", err)
	}
	defer fm.Close()

	if got := fm.Size(); got != 0 {
		t.Fatalf("Size() = %d, want 0 for a freshly created file", got)
	}
}

func Test_OpenFileMemory_Rejects_File_Whose_Size_Is_Not_A_Whole_Page(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.db")
	real := fs.NewReal()

	f, err := real.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := f.Write(make([]byte, 10)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := OpenFileMemory(real, path); err == nil {
		t.Fatalf("expected an error opening a file whose size isn't a page multiple")
	}
}

func Test_FileMemory_WriteAt_Survives_Close_And_Reopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "anchors.db")
	real := fs.NewReal()

	fm, err := OpenFileMemory(real, path)
	if err != nil {
		t.Fatalf("OpenFileMemory failed: %v", err)
	}

	if err := fm.WriteAt(10, []byte("persisted")); err != nil {
		t.Fatalf("WriteAt failed: %v", err)
	}

	if err := fm.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := OpenFileMemory(real, path)
	if err != nil {
		t.Fatalf("reopening failed: %v", err)
	}
	defer reopened.Close()

	buf := make([]byte, len("persisted"))
	if err := reopened.ReadAt(10, buf); err != nil {
		t.Fatalf("ReadAt after reopen failed: %v", err)
	}

	if string(buf) != "persisted" {
		t.Fatalf("ReadAt after reopen = %q, want %q", buf, "persisted")
	}
}

func Test_FileMemory_Grow_Zero_Fills_New_Pages(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "anchors.db")
	real := fs.NewReal()

	fm, err := OpenFileMemory(real, path)
	if err != nil {
		t.Fatalf("OpenFileMemory failed: %v", err)
	}
	defer fm.Close()

	if prev := fm.Grow(2); prev != 0 {
		t.Fatalf("Grow(2) = %d, want 0", prev)
	}

	buf := make([]byte, Page)
	if err := fm.ReadAt(0, buf); err != nil {
		t.Fatalf("ReadAt failed: %v", err)
	}

	for i, b := range buf {
		if b != 0 {
			t.Fatalf("byte %d = %d, want 0 (freshly grown pages must be zero)", i, b)
		}
	}
}

func Test_FileMemory_Snapshot_Copies_Current_Contents(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "anchors.db")
	dst := filepath.Join(t.TempDir(), "snapshot.db")

	real := fs.NewReal()

	fm, err := OpenFileMemory(real, src)
	if err != nil {
		t.Fatalf("OpenFileMemory failed: %v", err)
	}
	defer fm.Close()

	if err := fm.WriteAt(0, []byte("snapshot me")); err != nil {
		t.Fatalf("WriteAt failed: %v", err)
	}

	if err := fm.Snapshot(dst); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	snapshotted, err := OpenFileMemory(real, dst)
	if err != nil {
		t.Fatalf("opening snapshot failed: %v", err)
	}
	defer snapshotted.Close()

	buf := make([]byte, len("snapshot me"))
	if err := snapshotted.ReadAt(0, buf); err != nil {
		t.Fatalf("ReadAt on snapshot failed: %v", err)
	}

	if string(buf) != "snapshot me" {
		t.Fatalf("snapshot contents = %q, want %q", buf, "snapshot me")
	}
}
