package chat

// Conn is the delivery capability a participant holds. Handlers and the
// broadcast engine never see a concrete transport type, which keeps them
// testable with fake connections.
type Conn interface {
	// Send enqueues a frame for delivery. It must not block; it reports
	// false when the connection is closed or its queue is full.
	Send(data []byte) bool

	// Ready reports whether the connection can currently accept frames.
	Ready() bool

	// Close tears the connection down with a close code and reason.
	Close(code int, reason string)
}
