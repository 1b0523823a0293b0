// Package lock provides lease-based distributed locking with Redis and
// in-memory implementations. A lock is claimed with a single atomic
// set-if-absent and lapses when its TTL expires; there is no renewal and no
// explicit release, so a holder must finish its critical section well within
// the TTL.
package lock
