package storage

import (
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := &Header{
		Magic:         Magic,
		Version:       FormatVersion,
		FileSize:      1 << 20,
		NodeSegOffset: HeaderSize,
		NodeSegSize:   GrowthFloor,
		NodeCount:     3,
		RelDirOffset:  HeaderSize + GrowthFloor,
		RelDirSize:    GrowthFloor,
		RelSegCount:   7,
		PropSegOffset: HeaderSize + 2*GrowthFloor,
		PropSegSize:   GrowthFloor,
		PropSegUsed:   512,
		AdjSegOffset:  HeaderSize + 3*GrowthFloor,
		AdjSegSize:    GrowthFloor,
		AdjSegUsed:    256,
	}
	buf := h.Encode()
	if len(buf) != HeaderSize {
		t.Fatalf("encoded header size = %d, want %d", len(buf), HeaderSize)
	}
	got, err := DecodeHeader(buf)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if *got != *h {
		t.Fatalf("decoded header mismatch:\ngot  %+v\nwant %+v", got, h)
	}
}

func TestDecodeHeaderRejectsBadMagic(t *testing.T) {
	h := &Header{Magic: [8]byte{'B', 'A', 'D', 0, 0, 0, 0, 0}, Version: FormatVersion}
	if _, err := DecodeHeader(h.Encode()); err == nil {
		t.Fatal("DecodeHeader should reject bad magic")
	}
}

func TestDecodeHeaderRejectsVersionMismatch(t *testing.T) {
	h := &Header{Magic: Magic, Version: FormatVersion + 1}
	if _, err := DecodeHeader(h.Encode()); err == nil {
		t.Fatal("DecodeHeader should reject a future format version")
	}
}

func TestAlignUp(t *testing.T) {
	cases := map[uint64]uint64{
		0:            0,
		1:            BlockSize,
		BlockSize:    BlockSize,
		BlockSize + 1: 2 * BlockSize,
	}
	for in, want := range cases {
		if got := alignUp(in); got != want {
			t.Errorf("alignUp(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestNextCapacityHonorsFloor(t *testing.T) {
	small := nextCapacity(1024)
	if small < 1024+GrowthFloor {
		t.Errorf("nextCapacity(1024) = %d, want at least the growth floor applied", small)
	}

	large := nextCapacity(GrowthFloor * 4)
	if large != alignUp(GrowthFloor*8) {
		t.Errorf("nextCapacity(%d) = %d, want doubling to dominate past the floor", GrowthFloor*4, large)
	}
}
