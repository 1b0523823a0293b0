// Package stream delivers append-only events through Redis Streams consumer
// groups.
//
// Events are appended with XADD and read with XREADGROUP, so every group
// keeps its own cursor and a pending-entries list of delivered but
// unacknowledged events. Delivery is at-least-once: an event read by a
// consumer that never acknowledges it stays pending and can be claimed by
// another consumer with Claim.
//
// All field values are stringified before they are appended. Richer types
// are not preserved; a reader always receives strings.
//
// The package also offers Log, a plain list-backed event log.
package stream
