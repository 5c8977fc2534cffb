package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Scheme identifies a compression/encoding strategy for an adjacency
// segment or a property blob.
type Scheme uint8

const (
	SchemeRaw Scheme = iota
	SchemeVarint
	SchemeDelta
	SchemeDictionary
	SchemeLZ4
	SchemeZstd
	SchemeRLE
)

// zstdEncoder/zstdDecoder are reused across calls; they're safe for
// concurrent use once constructed.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// compressBytes compresses data with scheme, prefixing the result with a
// one-byte scheme tag so decode is a pure function of the bytes alone
//.
func compressBytes(data []byte, scheme Scheme) ([]byte, error) {
	var body []byte
	switch scheme {
	case SchemeRaw:
		body = data
	case SchemeLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		var c lz4.Compressor
		n, err := c.CompressBlock(data, buf)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if n == 0 {
			// Incompressible; lz4 signals this by writing nothing.
			scheme = SchemeRaw
			body = data
		} else {
			lenPrefixed := make([]byte, 4+n)
			binary.LittleEndian.PutUint32(lenPrefixed[:4], uint32(len(data)))
			copy(lenPrefixed[4:], buf[:n])
			body = lenPrefixed
		}
	case SchemeZstd:
		body = zstdEncoder.EncodeAll(data, nil)
	default:
		return nil, fmt.Errorf("compressBytes: unsupported scheme %d", scheme)
	}
	out := make([]byte, 1+len(body))
	out[0] = byte(scheme)
	copy(out[1:], body)
	return out, nil
}

// decompressBytes reverses compressBytes.
func decompressBytes(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("decompressBytes: empty input")
	}
	scheme := Scheme(data[0])
	body := data[1:]
	switch scheme {
	case SchemeRaw:
		return body, nil
	case SchemeLZ4:
		if len(body) < 4 {
			return nil, fmt.Errorf("decompressBytes: truncated lz4 frame")
		}
		origLen := binary.LittleEndian.Uint32(body[:4])
		out := make([]byte, origLen)
		n, err := lz4.UncompressBlock(body[4:], out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		return out[:n], nil
	case SchemeZstd:
		return zstdDecoder.DecodeAll(body, nil)
	default:
		return nil, fmt.Errorf("decompressBytes: unsupported scheme %d", scheme)
	}
}

// encodeAdjacencyIDs encodes a list of (relationshipID, neighborID) pairs
// using the given concrete scheme. Callers that want the adaptive chooser
// call ChooseAdaptiveScheme instead, which picks a concrete scheme up
// front and records that choice in the segment header —
// decode never needs to guess, it just reads the recorded scheme.
func encodeAdjacencyIDs(pairs [][2]uint64, scheme Scheme) []byte {
	switch scheme {
	case SchemeDelta:
		return encodeDelta(pairs)
	case SchemeRLE:
		return encodeRLE(pairs)
	default:
		return encodeVarint(pairs)
	}
}

// ChooseAdaptiveScheme picks the smallest encoding among the available
// candidates for this set of pairs, the "adaptive chooser" of
func ChooseAdaptiveScheme(pairs [][2]uint64) (Scheme, []byte) {
	best := SchemeVarint
	bestBytes := encodeVarint(pairs)

	if candidate := encodeDelta(pairs); len(candidate) < len(bestBytes) {
		best, bestBytes = SchemeDelta, candidate
	}
	if candidate := encodeRLE(pairs); len(candidate) < len(bestBytes) {
		best, bestBytes = SchemeRLE, candidate
	}
	return best, bestBytes
}

func decodeAdjacencyIDs(scheme Scheme, data []byte, count int) [][2]uint64 {
	switch scheme {
	case SchemeDelta:
		return decodeDelta(data, count)
	case SchemeRLE:
		return decodeRLE(data, count)
	default:
		return decodeVarint(data, count)
	}
}

func encodeVarint(pairs [][2]uint64) []byte {
	buf := make([]byte, 0, len(pairs)*18)
	tmp := make([]byte, binary.MaxVarintLen64)
	for _, p := range pairs {
		n := binary.PutUvarint(tmp, p[0])
		buf = append(buf, tmp[:n]...)
		n = binary.PutUvarint(tmp, p[1])
		buf = append(buf, tmp[:n]...)
	}
	return buf
}

func decodeVarint(data []byte, count int) [][2]uint64 {
	out := make([][2]uint64, 0, count)
	r := bytes.NewReader(data)
	for i := 0; i < count; i++ {
		a, err := binary.ReadUvarint(r)
		if err != nil {
			break
		}
		b, err := binary.ReadUvarint(r)
		if err != nil {
			break
		}
		out = append(out, [2]uint64{a, b})
	}
	return out
}

// encodeDelta exploits sorted RelationshipIds: each entry stores the delta
// from the previous relationship ID (varint zigzag) plus the neighbor ID
// verbatim, shrinking well for monotonically-created relationships.
func encodeDelta(pairs [][2]uint64) []byte {
	buf := make([]byte, 0, len(pairs)*12)
	tmp := make([]byte, binary.MaxVarintLen64)
	var prev int64
	for _, p := range pairs {
		cur := int64(p[0])
		delta := cur - prev
		prev = cur
		n := binary.PutVarint(tmp, delta)
		buf = append(buf, tmp[:n]...)
		n = binary.PutUvarint(tmp, p[1])
		buf = append(buf, tmp[:n]...)
	}
	return buf
}

func decodeDelta(data []byte, count int) [][2]uint64 {
	out := make([][2]uint64, 0, count)
	r := bytes.NewReader(data)
	var prev int64
	for i := 0; i < count; i++ {
		delta, err := binary.ReadVarint(r)
		if err != nil {
			break
		}
		neighbor, err := binary.ReadUvarint(r)
		if err != nil {
			break
		}
		prev += delta
		out = append(out, [2]uint64{uint64(prev), neighbor})
	}
	return out
}

// encodeRLE run-length-encodes runs of consecutive relationship IDs to the
// same neighbor (common for multi-edges to a hub node), storing (first
// relID varint, neighbor varint, runLength varint) triples.
func encodeRLE(pairs [][2]uint64) []byte {
	buf := make([]byte, 0, len(pairs)*10)
	tmp := make([]byte, binary.MaxVarintLen64)
	i := 0
	for i < len(pairs) {
		j := i + 1
		for j < len(pairs) && pairs[j][1] == pairs[i][1] && pairs[j][0] == pairs[i][0]+uint64(j-i) {
			j++
		}
		n := binary.PutUvarint(tmp, pairs[i][0])
		buf = append(buf, tmp[:n]...)
		n = binary.PutUvarint(tmp, pairs[i][1])
		buf = append(buf, tmp[:n]...)
		n = binary.PutUvarint(tmp, uint64(j-i))
		buf = append(buf, tmp[:n]...)
		i = j
	}
	return buf
}

func decodeRLE(data []byte, count int) [][2]uint64 {
	out := make([][2]uint64, 0, count)
	r := bytes.NewReader(data)
	for len(out) < count {
		relID, err := binary.ReadUvarint(r)
		if err != nil {
			break
		}
		neighbor, err := binary.ReadUvarint(r)
		if err != nil {
			break
		}
		runLen, err := binary.ReadUvarint(r)
		if err != nil {
			break
		}
		for k := uint64(0); k < runLen; k++ {
			out = append(out, [2]uint64{relID + k, neighbor})
		}
	}
	return out
}
