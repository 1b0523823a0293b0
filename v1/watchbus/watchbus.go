// Package watchbus streams newly appended stream events to live HTTP
// clients over Server-Sent Events or WebSocket.
package watchbus

import "context"

// WatchBus delivers messages for a key as they happen.
type WatchBus interface {
	// Watch subscribes to messages for key. The returned channel receives
	// message payloads until ctx is canceled, then it is closed.
	Watch(ctx context.Context, key string) (<-chan []byte, error)
}
