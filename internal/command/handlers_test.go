package command

import (
	"testing"

	"thestreet/internal/proto"
	"thestreet/internal/state"
	"thestreet/internal/world"
)

func TestHandleBuyRequiresStandingInRoom(t *testing.T) {
	r, w, _ := newTestRouter()
	u := w.CreateUser("pk")
	w.ApplyTransition(u.ID, world.Position{MapID: world.StreetMapID, X: 5, Y: 5})
	ch := connectUser(w, w.FindUser(u.ID))

	r.Dispatch(Caller{User: w.FindUser(u.ID)}, "buy", nil)

	env := drainEnvelope(t, ch)
	if env.Type != proto.TypeServerError {
		t.Fatalf("expected server.error off a room, got %s", env.Type)
	}
}

func TestHandleBuyTransfersOwnershipAndDevFee(t *testing.T) {
	r, w, wal := newTestRouter()
	u := w.CreateUser("pk-buyer")
	w.ApplyTransition(u.ID, world.Position{MapID: world.RoomMapID("north", 0), X: 2, Y: 2})
	ch := connectUser(w, w.FindUser(u.ID))
	_ = wal.Credit(u.Pubkey, "100.00000000")

	r.Dispatch(Caller{User: w.FindUser(u.ID)}, "buy", nil)

	env := drainEnvelope(t, ch)
	if env.Type != proto.TypeServerTxUpdate {
		t.Fatalf("expected server.tx_update after a purchase, got %s", env.Type)
	}
	var txUpdate proto.ServerTxUpdatePayload
	decodePayload(t, env, &txUpdate)
	if txUpdate.Status != "confirmed" || txUpdate.Confirmations != 8 {
		t.Fatalf("expected a buy to settle confirmed/8, got %+v", txUpdate)
	}
	roomInfoEnv := drainEnvelope(t, ch)
	if roomInfoEnv.Type != proto.TypeServerRoomInfo {
		t.Fatalf("expected server.room_info after a purchase, got %s", roomInfoEnv.Type)
	}
	var info proto.ServerRoomInfoPayload
	decodePayload(t, roomInfoEnv, &info)
	if info.OwnerPubkey != u.Pubkey || info.ForSale {
		t.Fatalf("expected buyer to own the room and it no longer be for sale, got %+v", info)
	}

	devBal, _ := wal.Balance("dev-pubkey")
	if devBal == "0.00000000" {
		t.Fatalf("expected the dev wallet to receive a fee")
	}
}

func TestHandleBuyRejectsAlreadyOwnedRoom(t *testing.T) {
	r, w, wal := newTestRouter()
	w.GetOrCreateRoom("north:0", "10.00000000")
	w.MutateRoom("north:0", "10.00000000", func(rm *state.Room) {
		rm.OwnerPubkey = "someone-else"
		rm.ForSale = false
	})

	u := w.CreateUser("pk-buyer")
	w.ApplyTransition(u.ID, world.Position{MapID: world.RoomMapID("north", 0), X: 2, Y: 2})
	ch := connectUser(w, w.FindUser(u.ID))
	_ = wal.Credit(u.Pubkey, "100.00000000")

	r.Dispatch(Caller{User: w.FindUser(u.ID)}, "buy", nil)

	env := drainEnvelope(t, ch)
	if env.Type != proto.TypeServerError {
		t.Fatalf("expected server.error for a room not for sale, got %s", env.Type)
	}
}

func TestHandleRoomNameByOwnerAdjacentToCustomizer(t *testing.T) {
	r, w, _ := newTestRouter()
	u := w.CreateUser("pk")
	w.ApplyTransition(u.ID, world.Position{MapID: world.RoomMapID("north", 0), X: 1, Y: 2}) // adjacent to (1,1)
	ch := connectUser(w, w.FindUser(u.ID))
	w.MutateRoom("north:0", "10.00000000", func(rm *state.Room) {
		rm.OwnerPubkey = w.FindUser(u.ID).Pubkey
	})

	r.Dispatch(Caller{User: w.FindUser(u.ID)}, "room_name", []string{"Lounge"})

	env := drainEnvelope(t, ch)
	if env.Type != proto.TypeServerRoomInfo {
		t.Fatalf("expected server.room_info after renaming, got %s", env.Type)
	}
	var info proto.ServerRoomInfoPayload
	decodePayload(t, env, &info)
	if info.DisplayName != "Lounge" {
		t.Fatalf("expected display name to be updated, got %q", info.DisplayName)
	}
}

func TestHandleDoorColorRejectsUnknownColor(t *testing.T) {
	r, w, _ := newTestRouter()
	u := w.CreateUser("pk")
	w.ApplyTransition(u.ID, world.Position{MapID: world.RoomMapID("north", 0), X: 1, Y: 2})
	ch := connectUser(w, w.FindUser(u.ID))
	w.MutateRoom("north:0", "10.00000000", func(rm *state.Room) {
		rm.OwnerPubkey = w.FindUser(u.ID).Pubkey
	})

	r.Dispatch(Caller{User: w.FindUser(u.ID)}, "door_color", []string{"chartreuse"})

	env := drainEnvelope(t, ch)
	if env.Type != proto.TypeServerError {
		t.Fatalf("expected server.error for an unsupported color, got %s", env.Type)
	}
}

func TestHandleAccessShowDefaultsToShowingRoomInfo(t *testing.T) {
	r, w, _ := newTestRouter()
	u := w.CreateUser("pk")
	w.ApplyTransition(u.ID, world.Position{MapID: world.RoomMapID("north", 0), X: 5, Y: 5})
	ch := connectUser(w, w.FindUser(u.ID))

	r.Dispatch(Caller{User: w.FindUser(u.ID)}, "access", nil)

	env := drainEnvelope(t, ch)
	if env.Type != proto.TypeServerRoomInfo {
		t.Fatalf("expected server.room_info for a bare access query, got %s", env.Type)
	}
}

func TestHandleAccessRejectsUnknownIdentifier(t *testing.T) {
	r, w, _ := newTestRouter()
	u := w.CreateUser("pk")
	w.ApplyTransition(u.ID, world.Position{MapID: world.RoomMapID("north", 0), X: 1, Y: 2})
	ch := connectUser(w, w.FindUser(u.ID))
	w.MutateRoom("north:0", "10.00000000", func(rm *state.Room) {
		rm.OwnerPubkey = w.FindUser(u.ID).Pubkey
	})

	r.Dispatch(Caller{User: w.FindUser(u.ID)}, "access", []string{"whitelist", "nobody-by-this-name"})

	env := drainEnvelope(t, ch)
	if env.Type != proto.TypeServerError {
		t.Fatalf("expected server.error for an unresolved identifier, got %s", env.Type)
	}
}

func TestHandleRoomInfoForArbitraryRoomID(t *testing.T) {
	r, w, _ := newTestRouter()
	u := w.CreateUser("pk")
	ch := connectUser(w, w.FindUser(u.ID))

	r.Dispatch(Caller{User: w.FindUser(u.ID)}, "room_info", []string{"south:42"})

	env := drainEnvelope(t, ch)
	if env.Type != proto.TypeServerRoomInfo {
		t.Fatalf("expected server.room_info, got %s", env.Type)
	}
	var info proto.ServerRoomInfoPayload
	decodePayload(t, env, &info)
	if info.RoomID != "south:42" {
		t.Fatalf("unexpected room id %q", info.RoomID)
	}
}

func TestHandleHelpSendsNotice(t *testing.T) {
	r, w, _ := newTestRouter()
	u := w.CreateUser("pk")
	ch := connectUser(w, w.FindUser(u.ID))

	r.Dispatch(Caller{User: w.FindUser(u.ID)}, "help", nil)

	env := drainEnvelope(t, ch)
	if env.Type != proto.TypeServerNotice {
		t.Fatalf("expected server.notice for help, got %s", env.Type)
	}
}

func TestDispatchUnknownCommandSendsInvalidCommandError(t *testing.T) {
	r, w, _ := newTestRouter()
	u := w.CreateUser("pk")
	ch := connectUser(w, w.FindUser(u.ID))

	r.Dispatch(Caller{User: w.FindUser(u.ID)}, "nonsense", nil)

	env := drainEnvelope(t, ch)
	if env.Type != proto.TypeServerError {
		t.Fatalf("expected server.error for an unknown command, got %s", env.Type)
	}
	var e proto.ServerErrorPayload
	decodePayload(t, env, &e)
	if e.Code != "invalid_command" {
		t.Fatalf("expected invalid_command code, got %q", e.Code)
	}
}
