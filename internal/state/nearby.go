package state

import (
	"thestreet/internal/proto"
	"thestreet/internal/stats"
)

// Clock lets callers stamp outbound envelopes; tests can override.
var Clock = func() int64 { return nowMillis() }

func nowMillis() int64 { return now().UnixMilli() }

// RefreshNearby recomputes the neighbor list for mapID and sends
// server.nearby to every session there, excluding each recipient from
// their own list — generalizing the teacher's broadcastRoomState,
// which recomputes a room's participant list once and fans it out to
// every member's send channel (signaling.go).
func RefreshNearby(w *World, mapID string) {
	sessions := w.SessionsInMap(mapID)
	if len(sessions) == 0 {
		return
	}
	all := w.NearbyPayload(mapID, "")
	for _, sess := range sessions {
		users := make([]NearbyUser, 0, len(all))
		for _, u := range all {
			if u.ID != sess.UserID {
				users = append(users, u)
			}
		}
		if len(users) == 0 {
			continue
		}
		payload := proto.ServerNearbyPayload{Users: toProtoNearby(users)}
		env := proto.New(proto.TypeServerNearby, Clock(), proto.MustPayload(payload))
		b, err := proto.Encode(env)
		if err != nil {
			continue
		}
		if sess.Deliver(b) {
			stats.IncMessageTX(proto.TypeServerNearby)
		} else {
			stats.IncSendQueueDrop()
		}
	}
}

func toProtoNearby(users []NearbyUser) []proto.NearbyUser {
	out := make([]proto.NearbyUser, 0, len(users))
	for _, u := range users {
		out = append(out, proto.NearbyUser{
			ID:           u.ID,
			DisplayName:  u.DisplayName,
			X:            u.X,
			Y:            u.Y,
			X25519Pubkey: u.X25519Pubkey,
		})
	}
	return out
}

// Deliver enqueues an already-encoded envelope on the session's
// outbound queue, dropping it if the queue is full — the teacher's
// sendMessage "select with default" drop discipline (signaling.go),
// generalized from a JSON-marshal-here step to an already-framed
// envelope since every caller here already went through proto.Encode.
func (s *Session) Deliver(b []byte) bool {
	select {
	case s.Send <- b:
		return true
	default:
		return false
	}
}
