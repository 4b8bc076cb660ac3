package command

import (
	"strconv"

	"thestreet/internal/proto"
	"thestreet/internal/state"
	"thestreet/internal/stats"
	"thestreet/internal/world"
)

// HandleMove implements §4.4: a single-tile move request. Excess moves
// within the 60ms window are silently dropped (no reply at all) —
// the one handler the spec exempts from the "always reply" rule (§7).
// Rate limiting is keyed per user (§3: "last-move timestamp: per-user
// millisecond stamp"), not per connection.
func (r *Router) HandleMove(caller Caller, dir string) {
	if !r.Moves.Allow(caller.User.ID) {
		stats.IncMoveRateLimited()
		return
	}

	u := caller.User
	direction := world.Direction(dir)
	result, err := world.TryMove(u.Position, direction)
	if err != nil {
		r.sendError(caller, "invalid_command", err.Error())
		return
	}

	switch result.Kind {
	case world.Blocked:
		stats.IncMoveBlocked()
		r.sendError(caller, "move_blocked", "blocked")
	case world.Moved:
		stats.IncMoveAccepted()
		r.commitMove(caller, result.Position, false, "")
	case world.Transition:
		if result.IsRoom {
			room := r.World.GetOrCreateRoom(result.RoomSide+":"+strconv.Itoa(result.RoomX), r.RoomPrice)
			if !state.AccessAllowed(room, u.Pubkey) {
				stats.IncMoveBlocked()
				r.sendError(caller, "room_access_denied", "access denied")
				return
			}
		}
		stats.IncMoveAccepted()
		r.commitMove(caller, result.Position, true, roomIDIfEntering(result))
	}
}

func roomIDIfEntering(result world.MoveResult) string {
	if !result.IsRoom {
		return ""
	}
	return result.RoomSide + ":" + strconv.Itoa(result.RoomX)
}

// commitMove applies the transition, sends map_change (and room_info
// when entering a room), and refreshes nearby for both the old and new
// maps — the teacher's "unlock before broadcast" shape (signaling.go
// handleJoin), generalized from a join event to every kind of move.
func (r *Router) commitMove(caller Caller, pos world.Position, isTransition bool, enteredRoomID string) {
	u := caller.User
	oldMapID, err := r.World.ApplyTransition(u.ID, pos)
	if err != nil {
		return
	}

	if !isTransition {
		r.World.SendToUser(u.ID, proto.New(proto.TypeServerState, nowMillis(), proto.ServerStatePayload{
			Position: proto.PositionPayload{MapID: pos.MapID, X: pos.X, Y: pos.Y},
		}))
		if oldMapID != pos.MapID {
			state.RefreshNearby(r.World, oldMapID)
			state.RefreshNearby(r.World, pos.MapID)
		}
		return
	}

	leftStation := false
	if parsedOld, err := world.ParseMapID(oldMapID); err == nil && parsedOld.Kind == world.KindStation {
		if parsedNew, err := world.ParseMapID(pos.MapID); err != nil || parsedNew.Kind != world.KindStation {
			leftStation = true
		}
	}
	if leftStation {
		r.World.ClearBoarding(u.ID)
	}

	r.World.SendToUser(u.ID, proto.New(proto.TypeServerMapChange, nowMillis(), proto.ServerMapChangePayload{
		MapID:    pos.MapID,
		Position: proto.PositionPayload{MapID: pos.MapID, X: pos.X, Y: pos.Y},
	}))

	if enteredRoomID != "" {
		room := r.World.GetOrCreateRoom(enteredRoomID, r.RoomPrice)
		sendRoomInfo(r.World, u.ID, room)
	}

	if oldMapID != pos.MapID {
		state.RefreshNearby(r.World, oldMapID)
		state.RefreshNearby(r.World, pos.MapID)
	}
}
