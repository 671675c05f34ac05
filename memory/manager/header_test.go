package manager

import "testing"

func Test_Encode_Decode_Header_RoundTrips(t *testing.T) {
	t.Parallel()

	h := newHeader()
	h.numAllocatedBuckets = 42
	h.memorySizesInPages[0] = 1234
	h.memorySizesInPages[7] = 999
	h.bucketToMemory[0] = 0
	h.bucketToMemory[1] = 7

	buf := encode(&h)
	if len(buf) != HeaderSize {
		t.Fatalf("encode produced %d bytes, want %d", len(buf), HeaderSize)
	}

	got, err := decode(buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if got.numAllocatedBuckets != h.numAllocatedBuckets {
		t.Errorf("numAllocatedBuckets = %d, want %d", got.numAllocatedBuckets, h.numAllocatedBuckets)
	}

	if got.memorySizesInPages[0] != 1234 || got.memorySizesInPages[7] != 999 {
		t.Errorf("memorySizesInPages round trip mismatch: %v", got.memorySizesInPages[:8])
	}

	if got.bucketToMemory[0] != 0 || got.bucketToMemory[1] != 7 {
		t.Errorf("bucketToMemory round trip mismatch: %v", got.bucketToMemory[:2])
	}
}

func Test_Decode_Rejects_Bad_Magic(t *testing.T) {
	t.Parallel()

	h := newHeader()
	buf := encode(&h)
	buf[0] = 'X'

	if _, err := decode(buf); err == nil {
		t.Fatalf("expected an error for corrupted magic, got nil")
	}
}

func Test_Decode_Rejects_Unsupported_Version(t *testing.T) {
	t.Parallel()

	h := newHeader()
	buf := encode(&h)
	buf[offVersion] = version + 1

	if _, err := decode(buf); err == nil {
		t.Fatalf("expected an error for an unsupported version, got nil")
	}
}
