package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestAdjacencyIndex(t *testing.T) *AdjacencyIndex {
	t.Helper()
	dir := t.TempDir()
	df, err := OpenDataFile(dir + "/graph.ndb")
	require.NoError(t, err)
	t.Cleanup(func() { df.Close() })
	return NewAdjacencyIndex(df)
}

func TestAdjacencyAppendAndIterate(t *testing.T) {
	ai := newTestAdjacencyIndex(t)

	var offset uint64
	var err error
	offset, err = ai.AppendEdge(offset, Outgoing, 1, RelationshipID(1, 0), 100)
	require.NoError(t, err)
	offset, err = ai.AppendEdge(offset, Outgoing, 1, RelationshipID(1, 1), 200)
	require.NoError(t, err)
	offset, err = ai.AppendEdge(offset, Outgoing, 2, RelationshipID(2, 0), 300)
	require.NoError(t, err)

	var typeOne uint32 = 1
	var got []AdjacencyEntry
	for e := range ai.Iter(offset, Outgoing, &typeOne) {
		got = append(got, e)
	}
	require.Len(t, got, 2)
	require.Equal(t, uint64(100), got[0].NeighborID)
	require.Equal(t, uint64(200), got[1].NeighborID)

	var all []AdjacencyEntry
	for e := range ai.Iter(offset, Outgoing, nil) {
		all = append(all, e)
	}
	require.Len(t, all, 3)
}

func TestAdjacencyIncomingIsSeparateFromOutgoing(t *testing.T) {
	ai := newTestAdjacencyIndex(t)

	offset, err := ai.AppendEdge(0, Outgoing, 1, RelationshipID(1, 0), 5)
	require.NoError(t, err)
	offset, err = ai.AppendEdge(offset, Incoming, 1, RelationshipID(1, 1), 6)
	require.NoError(t, err)

	require.Equal(t, 1, ai.Degree(offset, Outgoing, nil))
	require.Equal(t, 1, ai.Degree(offset, Incoming, nil))
}

func TestAdjacencyEmptyBlockIterates(t *testing.T) {
	ai := newTestAdjacencyIndex(t)
	n := 0
	for range ai.Iter(0, Outgoing, nil) {
		n++
	}
	require.Zero(t, n)
}

func TestAdjacencyIterEarlyStop(t *testing.T) {
	ai := newTestAdjacencyIndex(t)
	offset, err := ai.AppendEdge(0, Outgoing, 1, RelationshipID(1, 0), 1)
	require.NoError(t, err)
	offset, err = ai.AppendEdge(offset, Outgoing, 1, RelationshipID(1, 1), 2)
	require.NoError(t, err)

	count := 0
	for range ai.Iter(offset, Outgoing, nil) {
		count++
		break
	}
	require.Equal(t, 1, count)
}
