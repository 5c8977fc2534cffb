// Package wal implements Nexus's write-ahead log: an
// append-only, monotonically-offset sequence of framed records that drives
// both crash recovery and replication streaming.
package wal
