package wal

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/nexus/pkg/config"
)

func testWALConfig() config.WALConfig {
	cfg := config.Default().WAL
	cfg.SegmentBytes = 4096
	return cfg
}

func TestAppendAssignsIncreasingOffsets(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, testWALConfig())
	require.NoError(t, err)
	defer w.Close()

	e1, err := w.Append(1, OpNodeCreate, []byte("a"))
	require.NoError(t, err)
	e2, err := w.Append(1, OpNodeCreate, []byte("b"))
	require.NoError(t, err)

	require.Equal(t, uint64(0), e1.Offset)
	require.Equal(t, uint64(1), e2.Offset)
	require.Equal(t, uint64(2), w.NextOffset())
}

func TestWALRecoversNextOffsetAndEpoch(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, testWALConfig())
	require.NoError(t, err)

	for i := uint64(1); i <= 5; i++ {
		_, err := w.Append(i, OpNodePropSet, []byte("entry"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	w2, err := Open(dir, testWALConfig())
	require.NoError(t, err)
	defer w2.Close()

	require.Equal(t, uint64(5), w2.NextOffset())
	require.Equal(t, uint64(5), w2.LastEpoch())
}

func TestWALSegmentRotation(t *testing.T) {
	dir := t.TempDir()
	cfg := testWALConfig()
	cfg.SegmentBytes = 64 // force rotation almost immediately
	w, err := Open(dir, cfg)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		_, err := w.Append(1, OpNodeCreate, []byte("0123456789"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	offsets, err := listSegments(dir)
	require.NoError(t, err)
	require.Greater(t, len(offsets), 1)

	w2, err := Open(dir, cfg)
	require.NoError(t, err)
	defer w2.Close()
	require.Equal(t, uint64(20), w2.NextOffset())
}

func TestRecoverTruncatesTornTail(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, testWALConfig())
	require.NoError(t, err)
	for i := uint64(1); i <= 3; i++ {
		_, err := w.Append(i, OpNodeCreate, []byte("entry"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	offsets, err := listSegments(dir)
	require.NoError(t, err)
	path := segmentPath(dir, offsets[0])

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-3)) // tear the last frame

	result, err := Recover(dir)
	require.NoError(t, err)
	require.Equal(t, uint64(2), result.NextOffset)
}

func TestReplayVisitsEveryEntryInOrder(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, testWALConfig())
	require.NoError(t, err)
	for i := uint64(1); i <= 4; i++ {
		_, err := w.Append(i, OpRelCreate, []byte("x"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	var offsets []uint64
	err = Replay(dir, func(e Entry) error {
		offsets = append(offsets, e.Offset)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1, 2, 3}, offsets)
}
