package memory

import "testing"

func Test_InProcess_ReadAt_Returns_Error_When_Past_Size(t *testing.T) {
	t.Parallel()

	m := NewInProcess(0)
	m.Grow(1)

	buf := make([]byte, 4)
	if err := m.ReadAt(Page-2, buf); err == nil {
		t.Fatalf("expected out-of-bounds error, got nil")
	}
}

func Test_InProcess_WriteAt_Grows_Memory_When_Needed(t *testing.T) {
	t.Parallel()

	m := NewInProcess(0)

	if err := m.WriteAt(Page+10, []byte("hi")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, want := m.Size(), uint64(2); got != want {
		t.Fatalf("Size() = %d, want %d", got, want)
	}

	buf := make([]byte, 2)
	if err := m.ReadAt(Page+10, buf); err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}

	if string(buf) != "hi" {
		t.Fatalf("ReadAt() = %q, want %q", buf, "hi")
	}
}

func Test_InProcess_Grow_Refuses_Past_MaxPages(t *testing.T) {
	t.Parallel()

	m := NewInProcess(2)

	if prev := m.Grow(2); prev != 0 {
		t.Fatalf("Grow(2) = %d, want 0", prev)
	}

	if prev := m.Grow(1); prev != -1 {
		t.Fatalf("Grow(1) past max = %d, want -1", prev)
	}
}

func Test_InProcess_RoundTrips_Data_Across_Many_Writes(t *testing.T) {
	t.Parallel()

	m := NewInProcess(0)

	for i := range 10 {
		offset := uint64(i * 100)
		payload := []byte{byte(i), byte(i + 1), byte(i + 2)}

		if err := m.WriteAt(offset, payload); err != nil {
			t.Fatalf("WriteAt(%d) failed: %v", offset, err)
		}
	}

	for i := range 10 {
		offset := uint64(i * 100)
		buf := make([]byte, 3)

		if err := m.ReadAt(offset, buf); err != nil {
			t.Fatalf("ReadAt(%d) failed: %v", offset, err)
		}

		want := []byte{byte(i), byte(i + 1), byte(i + 2)}
		for j := range buf {
			if buf[j] != want[j] {
				t.Fatalf("ReadAt(%d)[%d] = %d, want %d", offset, j, buf[j], want[j])
			}
		}
	}
}
