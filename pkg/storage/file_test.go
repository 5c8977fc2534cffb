package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenDataFileCreatesFreshFile(t *testing.T) {
	dir := t.TempDir()
	df, err := OpenDataFile(dir + "/graph.ndb")
	require.NoError(t, err)
	defer df.Close()

	h := df.Header()
	require.Equal(t, Magic, h.Magic)
	require.Equal(t, FormatVersion, h.Version)
	require.Zero(t, h.NodeCount)
}

func TestOpenDataFileReopensExisting(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/graph.ndb"

	df, err := OpenDataFile(path)
	require.NoError(t, err)
	df.header.NodeCount = 5
	require.NoError(t, df.persistHeader())
	require.NoError(t, df.Close())

	df2, err := OpenDataFile(path)
	require.NoError(t, err)
	defer df2.Close()
	require.Equal(t, uint64(5), df2.Header().NodeCount)
}

func TestDataFileReadWriteAt(t *testing.T) {
	dir := t.TempDir()
	df, err := OpenDataFile(dir + "/graph.ndb")
	require.NoError(t, err)
	defer df.Close()

	offset := df.Header().NodeSegOffset
	data := []byte("hello graph")
	df.WriteAt(offset, data)

	got := df.ReadAt(offset, len(data))
	require.Equal(t, data, got)
}

func TestGrowNodeSegmentPreservesData(t *testing.T) {
	dir := t.TempDir()
	df, err := OpenDataFile(dir + "/graph.ndb")
	require.NoError(t, err)
	defer df.Close()

	offset := df.Header().NodeSegOffset
	data := []byte("persisted before grow")
	df.WriteAt(offset, data)

	require.NoError(t, df.GrowNodeSegment())

	got := df.ReadAt(offset, len(data))
	require.Equal(t, data, got)
	require.Greater(t, df.Header().NodeSegSize, uint64(GrowthFloor-1))
}

func TestGrowNodeSegmentShiftsFollowingOffsets(t *testing.T) {
	dir := t.TempDir()
	df, err := OpenDataFile(dir + "/graph.ndb")
	require.NoError(t, err)
	defer df.Close()

	before := df.Header()
	require.NoError(t, df.GrowNodeSegment())
	after := df.Header()

	require.Greater(t, after.RelDirOffset, before.RelDirOffset)
	require.Greater(t, after.PropSegOffset, before.PropSegOffset)
	require.Greater(t, after.AdjSegOffset, before.AdjSegOffset)
}
