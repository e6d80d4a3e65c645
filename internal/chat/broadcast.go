package chat

import (
	"encoding/json"

	"kindred-sheets/backend/pkg/logger"
)

// Broadcaster fans a server message out to every ready participant of a
// session, optionally excluding one user (the acting client gets its own
// echo via direct reply instead).
type Broadcaster struct {
	registry *Registry
	log      *logger.Logger
}

// NewBroadcaster creates a broadcaster over the given registry
func NewBroadcaster(registry *Registry, log *logger.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, log: log}
}

// Broadcast serializes the message once and delivers it to every ready
// connection in the session except excludeUserID. A failed send to one
// participant never blocks delivery to the others.
func (b *Broadcaster) Broadcast(sess *Session, message any, excludeUserID string) {
	data, err := json.Marshal(message)
	if err != nil {
		b.log.Error("Failed to serialize broadcast message",
			"session_id", sess.ID,
			"error", err.Error(),
		)
		return
	}

	for _, conn := range b.registry.BroadcastTargets(sess, excludeUserID) {
		if !conn.Send(data) {
			broadcastFailures.Inc()
			b.log.Debug("Dropped broadcast frame for unready connection",
				"session_id", sess.ID,
			)
		}
	}
}
