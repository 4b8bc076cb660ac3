package command

import (
	"testing"

	"thestreet/internal/proto"
	"thestreet/internal/world"
)

func TestHandleRoomKeyRelaysToTargetInSameRoom(t *testing.T) {
	r, w, _ := newTestRouter()
	roomID := world.RoomMapID("north", 0)

	sender := w.CreateUser("pk-sender")
	w.ApplyTransition(sender.ID, world.Position{MapID: roomID, X: 2, Y: 2})
	connectUser(w, w.FindUser(sender.ID))

	target := w.CreateUser("pk-target")
	w.ApplyTransition(target.ID, world.Position{MapID: roomID, X: 3, Y: 3})
	chTarget := connectUser(w, w.FindUser(target.ID))

	r.HandleRoomKey(Caller{User: w.FindUser(sender.ID)}, proto.ClientRoomKeyPayload{
		RoomID: "north:0", Target: target.ID, SenderKey: "sk", Nonce: "n", Ciphertext: "ct",
	})

	env := drainEnvelope(t, chTarget)
	if env.Type != proto.TypeServerRoomKey {
		t.Fatalf("expected server.room_key relayed to target, got %s", env.Type)
	}
	var p proto.ServerRoomKeyPayload
	decodePayload(t, env, &p)
	if p.From != sender.ID || p.Ciphertext != "ct" {
		t.Fatalf("unexpected relayed payload %+v", p)
	}
}

func TestHandleRoomKeyIgnoresTargetInDifferentRoom(t *testing.T) {
	r, w, _ := newTestRouter()
	sender := w.CreateUser("pk-sender")
	w.ApplyTransition(sender.ID, world.Position{MapID: world.RoomMapID("north", 0), X: 2, Y: 2})
	connectUser(w, w.FindUser(sender.ID))

	target := w.CreateUser("pk-target")
	w.ApplyTransition(target.ID, world.Position{MapID: world.RoomMapID("south", 9), X: 2, Y: 2})
	chTarget := connectUser(w, w.FindUser(target.ID))

	r.HandleRoomKey(Caller{User: w.FindUser(sender.ID)}, proto.ClientRoomKeyPayload{
		RoomID: "north:0", Target: target.ID, SenderKey: "sk", Nonce: "n", Ciphertext: "ct",
	})

	select {
	case <-chTarget:
		t.Fatalf("expected no relay to a target standing in a different room")
	default:
	}
}

func TestHandleRoomAccessUpdateRejectsMismatchedRoomID(t *testing.T) {
	r, w, _ := newTestRouter()
	u := w.CreateUser("pk")
	w.ApplyTransition(u.ID, world.Position{MapID: world.RoomMapID("north", 0), X: 1, Y: 0})
	ch := connectUser(w, w.FindUser(u.ID))

	r.HandleRoomAccessUpdate(Caller{User: w.FindUser(u.ID)}, proto.ClientRoomAccessUpdatePayload{
		RoomID: "south:99", Mode: "open",
	})

	env := drainEnvelope(t, ch)
	if env.Type != proto.TypeServerError {
		t.Fatalf("expected server.error for a mismatched room id, got %s", env.Type)
	}
}

func TestHandleRoomAccessUpdateRequiresOwnerAdjacentToCustomizer(t *testing.T) {
	r, w, _ := newTestRouter()
	u := w.CreateUser("pk")
	w.ApplyTransition(u.ID, world.Position{MapID: world.RoomMapID("north", 0), X: 5, Y: 5})
	ch := connectUser(w, w.FindUser(u.ID))

	r.HandleRoomAccessUpdate(Caller{User: w.FindUser(u.ID)}, proto.ClientRoomAccessUpdatePayload{
		RoomID: "north:0", Mode: "open",
	})

	env := drainEnvelope(t, ch)
	if env.Type != proto.TypeServerError {
		t.Fatalf("expected server.error since caller is neither owner nor adjacent, got %s", env.Type)
	}
}

func TestDesignatedKeyGeneratorPicksLowestUserID(t *testing.T) {
	r, w, _ := newTestRouter()
	roomID := world.RoomMapID("north", 0)

	b := w.CreateUser("pk-b")
	w.ApplyTransition(b.ID, world.Position{MapID: roomID, X: 2, Y: 2})
	a := w.CreateUser("pk-a")
	w.ApplyTransition(a.ID, world.Position{MapID: roomID, X: 3, Y: 3})

	winner, ok := r.DesignatedKeyGenerator(roomID)
	if !ok {
		t.Fatalf("expected a designated key generator")
	}
	if winner != a.ID && winner != b.ID {
		t.Fatalf("unexpected winner %q", winner)
	}
	// u_1 (first created) is lexicographically smallest of u_1/u_2.
	if winner != b.ID {
		t.Fatalf("expected the lexicographically smallest user id to win, got %q want %q", winner, b.ID)
	}
}
