package storage

import (
	"bytes"
	"testing"
)

func TestCompressRawRoundTrip(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	out, err := compressBytes(data, SchemeRaw)
	if err != nil {
		t.Fatalf("compressBytes: %v", err)
	}
	got, err := decompressBytes(out)
	if err != nil {
		t.Fatalf("decompressBytes: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch: got %q, want %q", got, data)
	}
}

func TestCompressLZ4RoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefgh"), 256)
	out, err := compressBytes(data, SchemeLZ4)
	if err != nil {
		t.Fatalf("compressBytes: %v", err)
	}
	got, err := decompressBytes(out)
	if err != nil {
		t.Fatalf("decompressBytes: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("lz4 round trip mismatch")
	}
}

func TestCompressZstdRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 512)
	out, err := compressBytes(data, SchemeZstd)
	if err != nil {
		t.Fatalf("compressBytes: %v", err)
	}
	got, err := decompressBytes(out)
	if err != nil {
		t.Fatalf("decompressBytes: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("zstd round trip mismatch")
	}
}

func TestAdjacencyVarintRoundTrip(t *testing.T) {
	pairs := [][2]uint64{{1, 100}, {2, 200}, {5, 300}, {1000, 9999}}
	encoded := encodeVarint(pairs)
	decoded := decodeVarint(encoded, len(pairs))
	assertPairsEqual(t, pairs, decoded)
}

func TestAdjacencyDeltaRoundTrip(t *testing.T) {
	pairs := [][2]uint64{{10, 1}, {12, 2}, {13, 3}, {100, 4}}
	encoded := encodeDelta(pairs)
	decoded := decodeDelta(encoded, len(pairs))
	assertPairsEqual(t, pairs, decoded)
}

func TestAdjacencyRLERoundTrip(t *testing.T) {
	pairs := [][2]uint64{{1, 5}, {2, 5}, {3, 5}, {4, 7}}
	encoded := encodeRLE(pairs)
	decoded := decodeRLE(encoded, len(pairs))
	assertPairsEqual(t, pairs, decoded)
}

func TestChooseAdaptiveSchemePicksSmallest(t *testing.T) {
	// A long run of identical neighbors should make RLE win decisively.
	pairs := make([][2]uint64, 200)
	for i := range pairs {
		pairs[i] = [2]uint64{uint64(i), 42}
	}
	scheme, encoded := ChooseAdaptiveScheme(pairs)
	if scheme != SchemeRLE {
		t.Fatalf("expected RLE to win for a constant-neighbor run, got scheme %d", scheme)
	}
	decoded := decodeAdjacencyIDs(scheme, encoded, len(pairs))
	assertPairsEqual(t, pairs, decoded)
}

func assertPairsEqual(t *testing.T, want, got [][2]uint64) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("pair %d mismatch: got %v, want %v", i, got[i], want[i])
		}
	}
}
