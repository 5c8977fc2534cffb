package storage

import (
	"fmt"

	"github.com/cuemby/nexus/pkg/nexuserr"
)

// ErrOutOfSpace is returned when a segment cannot grow to satisfy an
// allocation.
func ErrOutOfSpace(segment string) error {
	return nexuserr.New(nexuserr.KindStorage, nexuserr.CodeOutOfSpace, fmt.Sprintf("%s segment cannot grow", segment))
}

// ErrNodeNotFound is returned when an endpoint referenced by
// create_relationship does not exist.
func ErrNodeNotFound(id uint64) error {
	return nexuserr.New(nexuserr.KindStorage, nexuserr.CodeNodeNotFound, fmt.Sprintf("node %d not found", id))
}

// ErrCorruptRecord is returned when a record's stored checksum does not
// match its computed checksum.
func ErrCorruptRecord(kind string, id uint64) error {
	return nexuserr.New(nexuserr.KindStorage, nexuserr.CodeCorruptRecord, fmt.Sprintf("%s record %d failed checksum verification", kind, id))
}

// ErrNotFound is a generic "no such record" error distinct from a checksum
// failure.
func ErrNotFound(kind string, id uint64) error {
	return nexuserr.New(nexuserr.KindStorage, nexuserr.CodeNotFound, fmt.Sprintf("%s %d not found", kind, id))
}
