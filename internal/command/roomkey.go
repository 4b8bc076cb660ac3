package command

import (
	"sort"

	"thestreet/internal/proto"
	"thestreet/internal/world"
)

// HandleRoomKey implements §4.8: a blind relay of an end-to-end
// encrypted room key from one peer to another, directly modeled on
// the teacher's handleRelay (server/signaling.go), which also forwards
// an opaque payload between room participants without inspecting it —
// generalized here from "all other participants" to one named target,
// with the additional room-membership checks the spec requires.
func (r *Router) HandleRoomKey(caller Caller, msg proto.ClientRoomKeyPayload) {
	u := caller.User
	roomID, ok := roomIDForUser(u)
	if !ok || roomID != msg.RoomID {
		return
	}
	if msg.Target == "" || msg.SenderKey == "" || msg.Nonce == "" || msg.Ciphertext == "" {
		return
	}

	target := r.World.FindUser(msg.Target)
	if target == nil {
		return
	}
	targetRoomID, ok := roomIDForUser(target)
	if !ok || targetRoomID != msg.RoomID {
		return
	}

	r.World.SendToUser(msg.Target, proto.New(proto.TypeServerRoomKey, nowMillis(), proto.ServerRoomKeyPayload{
		RoomID:     msg.RoomID,
		From:       u.ID,
		SenderKey:  msg.SenderKey,
		Nonce:      msg.Nonce,
		Ciphertext: msg.Ciphertext,
	}))
}

// DesignatedKeyGenerator returns the user id responsible for generating
// a room's symmetric key: deterministically, the lexicographically
// smallest user id present in the room (including the caller).
func (r *Router) DesignatedKeyGenerator(roomMapID string) (string, bool) {
	if _, err := world.ParseMapID(roomMapID); err != nil {
		return "", false
	}
	ids := r.World.UsersInMap(roomMapID)
	if len(ids) == 0 {
		return "", false
	}
	sort.Strings(ids)
	return ids[0], true
}

// HandleRoomAccessUpdate implements the typed alternate form of the
// "access" command (client.room_access_update). msg.RoomID must match
// the caller's current room — handleAccess derives the room from the
// caller's live position, so a stale or mismatched room_id is rejected
// before it can mutate the wrong room.
func (r *Router) HandleRoomAccessUpdate(caller Caller, msg proto.ClientRoomAccessUpdatePayload) {
	roomID, ok := roomIDForUser(caller.User)
	if !ok || roomID != msg.RoomID {
		r.sendError(caller, "invalid_command", "room_id does not match current room")
		return
	}
	args := append([]string{msg.Mode}, msg.List...)
	r.handleAccess(caller, args)
}
