package storage

import "testing"

func TestNodeRecordRoundTrip(t *testing.T) {
	rec := &NodeRecord{
		PrimaryLabel:   7,
		FirstRelOffset: 12345,
		PropOffset:     999,
		CreatedEpoch:   10,
		DeletedEpoch:   NoEpoch,
	}
	buf := encodeNodeRecord(rec)
	if len(buf) != NodeRecordSize {
		t.Fatalf("encoded size = %d, want %d", len(buf), NodeRecordSize)
	}
	got, ok := decodeNodeRecord(buf)
	if !ok {
		t.Fatal("decodeNodeRecord reported checksum failure on freshly encoded record")
	}
	if got.PrimaryLabel != rec.PrimaryLabel || got.FirstRelOffset != rec.FirstRelOffset ||
		got.PropOffset != rec.PropOffset || got.CreatedEpoch != rec.CreatedEpoch || got.DeletedEpoch != rec.DeletedEpoch {
		t.Fatalf("decoded record mismatch: got %+v, want %+v", got, rec)
	}
}

func TestNodeRecordCorruption(t *testing.T) {
	rec := &NodeRecord{PrimaryLabel: 1, CreatedEpoch: 1, DeletedEpoch: NoEpoch}
	buf := encodeNodeRecord(rec)
	buf[0] ^= 0xFF // flip a byte covered by the checksum
	if _, ok := decodeNodeRecord(buf); ok {
		t.Fatal("decodeNodeRecord should have reported corruption")
	}
}

func TestNodeRecordVisibility(t *testing.T) {
	rec := &NodeRecord{CreatedEpoch: 5, DeletedEpoch: 10}
	cases := []struct {
		epoch uint64
		want  bool
	}{
		{4, false},
		{5, true},
		{9, true},
		{10, false},
		{11, false},
	}
	for _, c := range cases {
		if got := rec.Visible(c.epoch); got != c.want {
			t.Errorf("Visible(%d) = %v, want %v", c.epoch, got, c.want)
		}
	}
}

func TestRelationshipRecordRoundTrip(t *testing.T) {
	rec := &RelationshipRecord{
		Source:     1,
		Target:     2,
		TypeID:     3,
		PropOffset: 4096,
	}
	buf := encodeRelationshipRecord(rec)
	if len(buf) != RelationshipRecordSize {
		t.Fatalf("encoded size = %d, want %d", len(buf), RelationshipRecordSize)
	}
	got, ok := decodeRelationshipRecord(buf)
	if !ok {
		t.Fatal("decodeRelationshipRecord reported checksum failure on freshly encoded record")
	}
	if *got != *rec {
		t.Fatalf("decoded record mismatch: got %+v, want %+v", got, rec)
	}
}

func TestRelationshipIDPacking(t *testing.T) {
	id := RelationshipID(42, 1000)
	typeID, index := SplitRelationshipID(id)
	if typeID != 42 || index != 1000 {
		t.Fatalf("SplitRelationshipID(%d) = (%d, %d), want (42, 1000)", id, typeID, index)
	}
}

func TestNodeRecordDeletedFlag(t *testing.T) {
	rec := &NodeRecord{}
	if rec.Deleted() {
		t.Fatal("fresh record should not be deleted")
	}
	rec.markDeleted()
	if !rec.Deleted() {
		t.Fatal("markDeleted should set the deleted flag")
	}
}
