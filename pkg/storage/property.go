package storage

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cuemby/nexus/pkg/nexuserr"
)

// ValueKind tags the dynamic type carried by a PropertyValue.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

// PropertyValue is Nexus's dynamic property type. Exactly one of the
// fields is meaningful, selected by Kind.
type PropertyValue struct {
	Kind   ValueKind
	Bool   bool
	Int    int64
	Float  float64
	Str    string
	Array  []PropertyValue
	Object map[string]PropertyValue
}

func NullValue() PropertyValue                { return PropertyValue{Kind: KindNull} }
func BoolValue(b bool) PropertyValue          { return PropertyValue{Kind: KindBool, Bool: b} }
func IntValue(i int64) PropertyValue          { return PropertyValue{Kind: KindInt, Int: i} }
func FloatValue(f float64) PropertyValue      { return PropertyValue{Kind: KindFloat, Float: f} }
func StringValue(s string) PropertyValue      { return PropertyValue{Kind: KindString, Str: s} }
func ArrayValue(a []PropertyValue) PropertyValue {
	return PropertyValue{Kind: KindArray, Array: a}
}
func ObjectValue(m map[string]PropertyValue) PropertyValue {
	return PropertyValue{Kind: KindObject, Object: m}
}

// PropertyMap is a node's or relationship's property set by key ID.
type PropertyMap map[uint32]PropertyValue

// EncodePropertyBlob serializes props into a compressed, self-describing
// byte blob. Decode is a pure function of these bytes alone — no external
// schema or catalog lookup is required.
func EncodePropertyBlob(props PropertyMap, scheme Scheme) ([]byte, error) {
	raw := encodePropertyMap(props)
	return compressBytes(raw, scheme)
}

// DecodePropertyBlob reverses EncodePropertyBlob.
func DecodePropertyBlob(blob []byte) (PropertyMap, error) {
	raw, err := decompressBytes(blob)
	if err != nil {
		return nil, fmt.Errorf("decode property blob: %w", err)
	}
	props, _, err := decodePropertyMap(raw)
	if err != nil {
		return nil, fmt.Errorf("decode property blob: %w", err)
	}
	return props, nil
}

func encodePropertyMap(props PropertyMap) []byte {
	buf := make([]byte, 0, 64)
	buf = appendUvarint(buf, uint64(len(props)))
	for key, val := range props {
		buf = appendUvarint(buf, uint64(key))
		buf = encodeValue(buf, val)
	}
	return buf
}

func decodePropertyMap(data []byte) (PropertyMap, int, error) {
	n, off, err := readUvarint(data, 0)
	if err != nil {
		return nil, 0, err
	}
	props := make(PropertyMap, n)
	for i := uint64(0); i < n; i++ {
		key, keyOff, err := readUvarint(data, off)
		if err != nil {
			return nil, 0, err
		}
		off = keyOff
		val, valOff, err := decodeValue(data, off)
		if err != nil {
			return nil, 0, err
		}
		off = valOff
		props[uint32(key)] = val
	}
	return props, off, nil
}

func encodeValue(buf []byte, v PropertyValue) []byte {
	buf = append(buf, byte(v.Kind))
	switch v.Kind {
	case KindNull:
		// no payload
	case KindBool:
		if v.Bool {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case KindInt:
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], uint64(v.Int))
		buf = append(buf, tmp[:]...)
	case KindFloat:
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v.Float))
		buf = append(buf, tmp[:]...)
	case KindString:
		buf = appendUvarint(buf, uint64(len(v.Str)))
		buf = append(buf, v.Str...)
	case KindArray:
		buf = appendUvarint(buf, uint64(len(v.Array)))
		for _, elem := range v.Array {
			buf = encodeValue(buf, elem)
		}
	case KindObject:
		buf = appendUvarint(buf, uint64(len(v.Object)))
		for k, elem := range v.Object {
			buf = appendUvarint(buf, uint64(len(k)))
			buf = append(buf, k...)
			buf = encodeValue(buf, elem)
		}
	}
	return buf
}

func decodeValue(data []byte, off int) (PropertyValue, int, error) {
	if off >= len(data) {
		return PropertyValue{}, 0, fmt.Errorf("decodeValue: truncated at %d", off)
	}
	kind := ValueKind(data[off])
	off++
	switch kind {
	case KindNull:
		return NullValue(), off, nil
	case KindBool:
		if off >= len(data) {
			return PropertyValue{}, 0, fmt.Errorf("decodeValue: truncated bool")
		}
		return BoolValue(data[off] != 0), off + 1, nil
	case KindInt:
		if off+8 > len(data) {
			return PropertyValue{}, 0, fmt.Errorf("decodeValue: truncated int")
		}
		i := int64(binary.LittleEndian.Uint64(data[off : off+8]))
		return IntValue(i), off + 8, nil
	case KindFloat:
		if off+8 > len(data) {
			return PropertyValue{}, 0, fmt.Errorf("decodeValue: truncated float")
		}
		f := math.Float64frombits(binary.LittleEndian.Uint64(data[off : off+8]))
		return FloatValue(f), off + 8, nil
	case KindString:
		n, newOff, err := readUvarint(data, off)
		if err != nil {
			return PropertyValue{}, 0, err
		}
		off = newOff
		if off+int(n) > len(data) {
			return PropertyValue{}, 0, fmt.Errorf("decodeValue: truncated string")
		}
		s := string(data[off : off+int(n)])
		return StringValue(s), off + int(n), nil
	case KindArray:
		n, newOff, err := readUvarint(data, off)
		if err != nil {
			return PropertyValue{}, 0, err
		}
		off = newOff
		arr := make([]PropertyValue, 0, n)
		for i := uint64(0); i < n; i++ {
			var elem PropertyValue
			elem, off, err = decodeValue(data, off)
			if err != nil {
				return PropertyValue{}, 0, err
			}
			arr = append(arr, elem)
		}
		return ArrayValue(arr), off, nil
	case KindObject:
		n, newOff, err := readUvarint(data, off)
		if err != nil {
			return PropertyValue{}, 0, err
		}
		off = newOff
		obj := make(map[string]PropertyValue, n)
		for i := uint64(0); i < n; i++ {
			klen, klenOff, err := readUvarint(data, off)
			if err != nil {
				return PropertyValue{}, 0, err
			}
			off = klenOff
			if off+int(klen) > len(data) {
				return PropertyValue{}, 0, fmt.Errorf("decodeValue: truncated object key")
			}
			k := string(data[off : off+int(klen)])
			off += int(klen)
			var elem PropertyValue
			elem, off, err = decodeValue(data, off)
			if err != nil {
				return PropertyValue{}, 0, err
			}
			obj[k] = elem
		}
		return ObjectValue(obj), off, nil
	default:
		return PropertyValue{}, 0, nexuserr.New(nexuserr.KindStorage, nexuserr.CodeCorruptRecord,
			fmt.Sprintf("unknown property value kind %d", kind))
	}
}

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func readUvarint(data []byte, off int) (uint64, int, error) {
	v, n := binary.Uvarint(data[off:])
	if n <= 0 {
		return 0, 0, fmt.Errorf("readUvarint: invalid varint at %d", off)
	}
	return v, off + n, nil
}
