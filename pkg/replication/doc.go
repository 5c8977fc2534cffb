// Package replication implements leader/replica WAL shipping over a
// framed TCP protocol: a replica connects, optionally receives a full
// snapshot, then streams WalEntry records and acknowledges each one; the
// leader's configured AckPolicy decides how many acknowledgements a write
// waits for. A missed-heartbeat threshold on the replica side triggers
// reconnect-with-backoff. Failover is not automatic: the AutoFailover
// setting is not read, and a replica stops following its leader only when
// Replica.Promote is called.
package replication
