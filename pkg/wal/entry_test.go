package wal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEntryRoundTrip(t *testing.T) {
	e := Entry{Offset: 42, Epoch: 7, OpTag: OpNodeCreate, Payload: []byte("payload bytes")}
	frame := e.Encode()

	got, n, err := DecodeEntry(frame)
	require.NoError(t, err)
	require.Equal(t, len(frame), n)
	require.Equal(t, e.Offset, got.Offset)
	require.Equal(t, e.Epoch, got.Epoch)
	require.Equal(t, e.OpTag, got.OpTag)
	require.Equal(t, e.Payload, got.Payload)
}

func TestDecodeEntryShortBufferIsNotAnError(t *testing.T) {
	e := Entry{Offset: 1, Epoch: 1, OpTag: OpRelCreate, Payload: []byte("x")}
	frame := e.Encode()

	got, n, err := DecodeEntry(frame[:len(frame)-1])
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, Entry{}, got)
}

func TestDecodeEntryDetectsCorruption(t *testing.T) {
	e := Entry{Offset: 1, Epoch: 1, OpTag: OpNodePropSet, Payload: []byte("hello")}
	frame := e.Encode()
	frame[len(frame)-1] ^= 0xFF

	_, _, err := DecodeEntry(frame)
	require.Error(t, err)
}

func TestOpTagString(t *testing.T) {
	require.Equal(t, "NodeCreate", OpNodeCreate.String())
	require.Equal(t, "SchemaOp", OpSchemaOp.String())
}
