// Package cache provides a small generic Cache interface with a Redis
// implementation, used for shared string values, and a ristretto
// implementation, used as a process-local read cache in front of the
// database.
package cache
