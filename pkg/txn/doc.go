// Package txn implements Nexus's epoch-based MVCC transaction manager: a
// global epoch counter, read transactions that pin a snapshot epoch
// without taking any lock, and write transactions serialized through a
// single exclusive, queued write lock.
package txn
