package command

import (
	"strconv"

	"thestreet/internal/proto"
	"thestreet/internal/state"
	"thestreet/internal/world"
)

var doorColors = map[string]bool{
	"red": true, "green": true, "yellow": true, "blue": true,
	"magenta": true, "cyan": true, "white": true,
}

func sendNotice(w *state.World, userID, text string) {
	w.SendToUser(userID, proto.New(proto.TypeServerNotice, nowMillis(), proto.ServerNoticePayload{Text: text}))
}

func sendError(w *state.World, userID, code, message string) {
	w.SendToUser(userID, proto.New(proto.TypeServerError, nowMillis(), proto.ServerErrorPayload{Code: code, Message: message}))
}

func sendRoomInfo(w *state.World, userID string, room *state.Room) {
	w.SendToUser(userID, proto.New(proto.TypeServerRoomInfo, nowMillis(), proto.ServerRoomInfoPayload{
		RoomID:      room.ID,
		OwnerPubkey: room.OwnerPubkey,
		Price:       room.Price,
		ForSale:     room.ForSale,
		Access: proto.RoomAccessPayload{
			Mode: string(room.AccessMode),
			List: append([]string(nil), room.AccessList...),
		},
		DisplayName: room.DisplayName,
		DoorColor:   room.DoorColor,
	}))
}

func sendTxUpdate(w *state.World, userID, status string, confirmations int, txID string) {
	w.SendToUser(userID, proto.New(proto.TypeServerTxUpdate, nowMillis(), proto.ServerTxUpdatePayload{
		Status: status, Confirmations: confirmations, TxID: txID,
	}))
}

func sendBalanceNotice(w *state.World, userID, balance string) {
	sendNotice(w, userID, "balance: "+balance+" XMR")
}

// roomIDForUser returns the room id the caller's current map names, or
// "", false if the caller is not on a room map.
func roomIDForUser(u *state.User) (roomID string, ok bool) {
	parsed, err := world.ParseMapID(u.Position.MapID)
	if err != nil || parsed.Kind != world.KindRoom {
		return "", false
	}
	return parsed.Side + ":" + strconv.Itoa(parsed.StreetX), true
}

// isAdjacentToCustomizer reports whether the caller stands orthogonally
// next to the room's fixed (1,1) customizer tile.
func isAdjacentToCustomizer(u *state.User) bool {
	parsed, err := world.ParseMapID(u.Position.MapID)
	if err != nil || parsed.Kind != world.KindRoom {
		return false
	}
	dx := abs(u.Position.X - 1)
	dy := abs(u.Position.Y - 1)
	return (dx == 1 && dy == 0) || (dx == 0 && dy == 1)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func nowMillis() int64 { return state.Clock() }
