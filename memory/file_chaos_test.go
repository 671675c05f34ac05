package memory

import (
	"path/filepath"
	"testing"

	"github.com/calvinalkan/anchorstore/internal/fs"
)

// Test_FileMemory_Grow_Reports_Failure_When_Truncate_Fails exercises the
// FileMemory<->fs.File wiring itself: Grow must surface a truncate fault
// as a plain -1 return, not a panic, and must leave the memory in a state
// a caller can still Close cleanly.
func Test_FileMemory_Grow_Reports_Failure_When_Truncate_Fails(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "anchors.db")
	real := fs.NewReal()
	chaos := fs.NewChaos(real, 1, fs.ChaosConfig{TruncateFailRate: 1.0})

	fm, err := OpenFileMemory(chaos, path)
	if err != nil {
		t.Fatalf("OpenFileMemory failed: %v", err)
	}
	defer fm.Close()

	if prev := fm.Grow(1); prev != -1 {
		t.Fatalf("Grow(1) under guaranteed truncate failure = %d, want -1", prev)
	}

	if got := fm.Size(); got != 0 {
		t.Fatalf("Size() after a failed Grow = %d, want 0 (no partial growth)", got)
	}
}

func Test_FileMemory_Grow_Succeeds_When_Chaos_Disabled(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "anchors.db")
	real := fs.NewReal()
	chaos := fs.NewChaos(real, 1, fs.ChaosConfig{})

	fm, err := OpenFileMemory(chaos, path)
	if err != nil {
		t.Fatalf("OpenFileMemory failed: %v", err)
	}
	defer fm.Close()

	if prev := fm.Grow(1); prev != 0 {
		t.Fatalf("Grow(1) = %d, want 0", prev)
	}
}
