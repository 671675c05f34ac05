package manager

import (
	"bytes"
	"testing"

	"github.com/calvinalkan/anchorstore/memory"
)

func Test_Init_Writes_Empty_Header_With_All_Buckets_Unallocated(t *testing.T) {
	t.Parallel()

	mem := memory.NewInProcess(0)

	if _, err := Init(mem); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	buf := make([]byte, HeaderSize)
	if err := mem.ReadAt(0, buf); err != nil {
		t.Fatalf("ReadAt failed: %v", err)
	}

	h, err := decode(buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if h.numAllocatedBuckets != 0 {
		t.Fatalf("numAllocatedBuckets = %d, want 0", h.numAllocatedBuckets)
	}

	for i, owner := range h.bucketToMemory {
		if owner != UnallocatedBucket {
			t.Fatalf("bucketToMemory[%d] = %d, want UnallocatedBucket", i, owner)
		}
	}
}

func Test_VirtualMemory_Grow_Allocates_Fresh_Buckets_On_Demand(t *testing.T) {
	t.Parallel()

	backing := memory.NewInProcess(0)
	mgr, err := Init(backing)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	vm := mgr.Get(0)

	if prev := vm.Grow(1); prev != 0 {
		t.Fatalf("Grow(1) = %d, want 0", prev)
	}

	if got, want := vm.Size(), uint64(BucketSizeInPages); got != want {
		t.Fatalf("Size() = %d, want %d (growth rounds up to a whole bucket)", got, want)
	}
}

func Test_VirtualMemory_Two_Memories_Get_Disjoint_Buckets(t *testing.T) {
	t.Parallel()

	backing := memory.NewInProcess(0)
	mgr, err := Init(backing)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	a := mgr.Get(0)
	b := mgr.Get(1)

	a.Grow(1)
	b.Grow(1)

	if err := a.WriteAt(0, []byte("AAAA")); err != nil {
		t.Fatalf("a.WriteAt failed: %v", err)
	}

	if err := b.WriteAt(0, []byte("BBBB")); err != nil {
		t.Fatalf("b.WriteAt failed: %v", err)
	}

	bufA := make([]byte, 4)
	if err := a.ReadAt(0, bufA); err != nil || !bytes.Equal(bufA, []byte("AAAA")) {
		t.Fatalf("a.ReadAt = %q, %v, want AAAA, nil", bufA, err)
	}

	bufB := make([]byte, 4)
	if err := b.ReadAt(0, bufB); err != nil || !bytes.Equal(bufB, []byte("BBBB")) {
		t.Fatalf("b.ReadAt = %q, %v, want BBBB, nil", bufB, err)
	}
}

func Test_VirtualMemory_WriteAt_Spanning_Bucket_Boundary_RoundTrips(t *testing.T) {
	t.Parallel()

	backing := memory.NewInProcess(0)
	mgr, err := Init(backing)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	vm := mgr.Get(0)

	boundary := uint64(BucketSizeInPages) * memory.Page
	payload := bytes.Repeat([]byte("x"), 10)
	offset := boundary - 5

	if err := vm.WriteAt(offset, payload); err != nil {
		t.Fatalf("WriteAt spanning boundary failed: %v", err)
	}

	got := make([]byte, len(payload))
	if err := vm.ReadAt(offset, got); err != nil {
		t.Fatalf("ReadAt spanning boundary failed: %v", err)
	}

	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip across bucket boundary = %q, want %q", got, payload)
	}
}

func Test_Recover_Reconstructs_Bucket_Cache_From_Header(t *testing.T) {
	t.Parallel()

	backing := memory.NewInProcess(0)
	mgr, err := Init(backing)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	vm := mgr.Get(3)
	vm.Grow(2)

	if err := vm.WriteAt(0, []byte("persisted")); err != nil {
		t.Fatalf("WriteAt failed: %v", err)
	}

	recovered, err := Recover(backing)
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	recoveredVM := recovered.Get(3)

	if got, want := recoveredVM.Size(), vm.Size(); got != want {
		t.Fatalf("recovered Size() = %d, want %d", got, want)
	}

	buf := make([]byte, len("persisted"))
	if err := recoveredVM.ReadAt(0, buf); err != nil {
		t.Fatalf("recovered ReadAt failed: %v", err)
	}

	if string(buf) != "persisted" {
		t.Fatalf("recovered data = %q, want %q", buf, "persisted")
	}
}

func Test_InitForMigration_Pins_Exact_Size_Without_Bucket_Rounding(t *testing.T) {
	t.Parallel()

	backing := memory.NewInProcess(0)
	backing.Grow(1 + 3*BucketSizeInPages)

	const exactPages = 2*BucketSizeInPages + 17

	mgr, err := InitForMigration(backing, 0, 3, exactPages)
	if err != nil {
		t.Fatalf("InitForMigration failed: %v", err)
	}

	vm := mgr.Get(0)

	if got, want := vm.Size(), uint64(exactPages); got != want {
		t.Fatalf("Size() = %d, want %d (exact, not rounded to a bucket multiple)", got, want)
	}
}

func Test_InitForMigration_Assigns_Buckets_Contiguously_From_Zero(t *testing.T) {
	t.Parallel()

	backing := memory.NewInProcess(0)
	backing.Grow(1 + 2*BucketSizeInPages)

	if _, err := InitForMigration(backing, 5, 2, BucketSizeInPages); err != nil {
		t.Fatalf("InitForMigration failed: %v", err)
	}

	buf := make([]byte, HeaderSize)
	if err := backing.ReadAt(0, buf); err != nil {
		t.Fatalf("ReadAt failed: %v", err)
	}

	h, err := decode(buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if h.bucketToMemory[0] != 5 || h.bucketToMemory[1] != 5 {
		t.Fatalf("bucketToMemory[0:2] = %v, want [5, 5]", h.bucketToMemory[:2])
	}

	if h.bucketToMemory[2] != UnallocatedBucket {
		t.Fatalf("bucketToMemory[2] = %d, want UnallocatedBucket", h.bucketToMemory[2])
	}
}
