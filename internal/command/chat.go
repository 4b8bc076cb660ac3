package command

import (
	"thestreet/internal/proto"
	"thestreet/internal/state"
	"thestreet/internal/world"
)

const (
	whisperBox = 5
	localBox   = 16
)

// HandleChat implements §4.7. scope is one of local/room/whisper.
func (r *Router) HandleChat(caller Caller, msg proto.ClientChatPayload) {
	u := caller.User
	onStreet := u.Position.MapID == world.StreetMapID

	switch msg.Scope {
	case "whisper":
		r.handleWhisper(caller, msg)
	case "room":
		if onStreet {
			r.sendError(caller, "invalid_command", "room chat requires being off the street")
			return
		}
		if msg.Enc == nil {
			r.sendError(caller, "invalid_command", "room chat requires enc")
			return
		}
		r.forwardChat(caller, msg, r.World.UsersInMap(u.Position.MapID))
	case "local":
		if onStreet {
			if msg.Enc != nil {
				r.sendError(caller, "invalid_command", "local street chat must not be encrypted")
				return
			}
			recipients := r.filterByBox(u, localBox)
			r.forwardChat(caller, msg, recipients)
			return
		}
		if msg.Enc == nil {
			r.sendError(caller, "invalid_command", "local off-street chat requires enc")
			return
		}
		r.forwardChat(caller, msg, r.World.UsersInMap(u.Position.MapID))
	default:
		r.sendError(caller, "invalid_command", "unknown chat scope "+msg.Scope)
	}
}

func (r *Router) handleWhisper(caller Caller, msg proto.ClientChatPayload) {
	u := caller.User
	if msg.Enc == nil || msg.Enc.SenderKey == "" || msg.Target == "" {
		r.sendError(caller, "invalid_command", "whisper requires enc.sender_key and target")
		return
	}
	target := r.World.FindUser(msg.Target)
	if target == nil || target.Position.MapID != u.Position.MapID {
		sendNotice(r.World, u.ID, "no recipients")
		return
	}
	if !within(u.Position.X, u.Position.Y, target.Position.X, target.Position.Y, whisperBox) {
		sendNotice(r.World, u.ID, "no recipients")
		return
	}
	r.forwardChat(caller, msg, []string{u.ID, target.ID})
}

// filterByBox returns the ids of users in u's map within box tiles of
// u on both axes, including u itself.
func (r *Router) filterByBox(u *state.User, box int) []string {
	ids := r.World.UsersInMap(u.Position.MapID)
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == u.ID {
			out = append(out, id)
			continue
		}
		other := r.World.FindUser(id)
		if other == nil {
			continue
		}
		if within(u.Position.X, u.Position.Y, other.Position.X, other.Position.Y, box) {
			out = append(out, id)
		}
	}
	return out
}

func (r *Router) forwardChat(caller Caller, msg proto.ClientChatPayload, recipients []string) {
	u := caller.User
	if len(recipients) == 0 {
		sendNotice(r.World, u.ID, "no recipients")
		return
	}

	roomID, isRoom := roomIDForUser(u)
	payload := proto.ServerChatPayload{
		From:        u.ID,
		DisplayName: u.DisplayName,
		Text:        msg.Text,
		Scope:       msg.Scope,
		Enc:         msg.Enc,
	}
	if isRoom {
		payload.RoomID = roomID
	}

	env := proto.New(proto.TypeServerChat, nowMillis(), payload)
	r.World.BroadcastToUsers(recipients, env)
}
