package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Magic identifies a Nexus primary data file.
var Magic = [8]byte{'N', 'E', 'X', 'U', 'S', 'G', 'D', '1'}

// FormatVersion is the current on-disk format version. A version mismatch
// on open is fatal.
const FormatVersion uint32 = 1

// BlockSize is the SSD block alignment every segment start is rounded up to.
const BlockSize = 4096

// GrowthFloor is the minimum size increment used when a segment grows.
const GrowthFloor = 64 << 20 // 64 MiB

// HeaderSize is the fixed, block-aligned size of the file header.
const HeaderSize = BlockSize

// Header is the fixed preamble of the primary data file.
type Header struct {
	Magic   [8]byte
	Version uint32
	_       uint32 // padding

	FileSize uint64

	NodeSegOffset uint64
	NodeSegSize   uint64
	NodeCount     uint64 // next NodeId to allocate

	RelDirOffset uint64 // offset of the relationship segment
	RelDirSize   uint64
	RelSegCount  uint64 // next index to allocate within the relationship segment

	PropSegOffset uint64
	PropSegSize   uint64
	PropSegUsed   uint64 // bump-allocator watermark

	AdjSegOffset uint64
	AdjSegSize   uint64
	AdjSegUsed   uint64

	FreeSpaceOffset uint64
	FreeSpaceSize   uint64
}

const headerEncodedSize = 8 + 4 + 4 + 8 + 8*3 + 8*3 + 8*3 + 8*3 + 8*2

// Encode serializes the header into a HeaderSize-byte block.
func (h *Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	w := bytes.NewBuffer(buf[:0])
	_ = binary.Write(w, binary.LittleEndian, h.Magic)
	_ = binary.Write(w, binary.LittleEndian, h.Version)
	_ = binary.Write(w, binary.LittleEndian, uint32(0))
	_ = binary.Write(w, binary.LittleEndian, h.FileSize)
	_ = binary.Write(w, binary.LittleEndian, h.NodeSegOffset)
	_ = binary.Write(w, binary.LittleEndian, h.NodeSegSize)
	_ = binary.Write(w, binary.LittleEndian, h.NodeCount)
	_ = binary.Write(w, binary.LittleEndian, h.RelDirOffset)
	_ = binary.Write(w, binary.LittleEndian, h.RelDirSize)
	_ = binary.Write(w, binary.LittleEndian, h.RelSegCount)
	_ = binary.Write(w, binary.LittleEndian, h.PropSegOffset)
	_ = binary.Write(w, binary.LittleEndian, h.PropSegSize)
	_ = binary.Write(w, binary.LittleEndian, h.PropSegUsed)
	_ = binary.Write(w, binary.LittleEndian, h.AdjSegOffset)
	_ = binary.Write(w, binary.LittleEndian, h.AdjSegSize)
	_ = binary.Write(w, binary.LittleEndian, h.AdjSegUsed)
	_ = binary.Write(w, binary.LittleEndian, h.FreeSpaceOffset)
	_ = binary.Write(w, binary.LittleEndian, h.FreeSpaceSize)
	return buf
}

// DecodeHeader validates and parses a HeaderSize-byte block.
func DecodeHeader(buf []byte) (*Header, error) {
	if len(buf) < headerEncodedSize {
		return nil, fmt.Errorf("header truncated: %d bytes", len(buf))
	}
	h := &Header{}
	r := bytes.NewReader(buf)
	_ = binary.Read(r, binary.LittleEndian, &h.Magic)
	_ = binary.Read(r, binary.LittleEndian, &h.Version)
	var pad uint32
	_ = binary.Read(r, binary.LittleEndian, &pad)
	_ = binary.Read(r, binary.LittleEndian, &h.FileSize)
	_ = binary.Read(r, binary.LittleEndian, &h.NodeSegOffset)
	_ = binary.Read(r, binary.LittleEndian, &h.NodeSegSize)
	_ = binary.Read(r, binary.LittleEndian, &h.NodeCount)
	_ = binary.Read(r, binary.LittleEndian, &h.RelDirOffset)
	_ = binary.Read(r, binary.LittleEndian, &h.RelDirSize)
	_ = binary.Read(r, binary.LittleEndian, &h.RelSegCount)
	_ = binary.Read(r, binary.LittleEndian, &h.PropSegOffset)
	_ = binary.Read(r, binary.LittleEndian, &h.PropSegSize)
	_ = binary.Read(r, binary.LittleEndian, &h.PropSegUsed)
	_ = binary.Read(r, binary.LittleEndian, &h.AdjSegOffset)
	_ = binary.Read(r, binary.LittleEndian, &h.AdjSegSize)
	_ = binary.Read(r, binary.LittleEndian, &h.AdjSegUsed)
	_ = binary.Read(r, binary.LittleEndian, &h.FreeSpaceOffset)
	_ = binary.Read(r, binary.LittleEndian, &h.FreeSpaceSize)

	if !bytes.Equal(h.Magic[:], Magic[:]) {
		return nil, fmt.Errorf("bad magic: %x", h.Magic)
	}
	if h.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported format version %d (want %d)", h.Version, FormatVersion)
	}
	return h, nil
}

// alignUp rounds n up to the nearest multiple of BlockSize.
func alignUp(n uint64) uint64 {
	if n%BlockSize == 0 {
		return n
	}
	return (n/BlockSize + 1) * BlockSize
}

// nextCapacity applies the doubling-with-floor growth strategy.
func nextCapacity(current uint64) uint64 {
	grown := current * 2
	if grown-current < GrowthFloor {
		grown = current + GrowthFloor
	}
	return alignUp(grown)
}
