package state

import (
	"thestreet/internal/proto"
	"thestreet/internal/stats"
)

// SendToUser encodes and enqueues env on userID's session, if connected.
// Returns false if the user has no live session or the queue is full.
func (w *World) SendToUser(userID string, env proto.Envelope) bool {
	sess := w.Session(userID)
	if sess == nil {
		return false
	}
	b, err := proto.Encode(env)
	if err != nil {
		return false
	}
	if sess.Deliver(b) {
		stats.IncMessageTX(env.Type)
		return true
	}
	stats.IncSendQueueDrop()
	return false
}

// BroadcastToUsers sends env to every listed user id.
func (w *World) BroadcastToUsers(userIDs []string, env proto.Envelope) {
	b, err := proto.Encode(env)
	if err != nil {
		return
	}
	for _, id := range userIDs {
		sess := w.Session(id)
		if sess == nil {
			continue
		}
		if sess.Deliver(b) {
			stats.IncMessageTX(env.Type)
		} else {
			stats.IncSendQueueDrop()
		}
	}
}
