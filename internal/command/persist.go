package command

import (
	"github.com/rs/zerolog"

	"thestreet/internal/state"
	"thestreet/internal/storage"
)

// saveUsers and saveRooms convert the in-memory snapshot to the
// persistence collaborator's wire shape and save it. Called from a
// goroutine spawned by the handlers after disconnect, room purchase,
// name claim, and room settings changes (§6 "Saves happen
// asynchronously after..."). Failures are logged and otherwise
// swallowed — per §7, storage failures bubble up as a log line and the
// session continues unaffected.
func saveUsers(store storage.Store, records []state.UserSeed, log zerolog.Logger) {
	out := make([]storage.UserRecord, 0, len(records))
	for _, u := range records {
		out = append(out, storage.UserRecord{
			ID: u.ID, Pubkey: u.Pubkey, DisplayName: u.DisplayName,
			MapID: u.MapID, X: u.X, Y: u.Y, X25519Pubkey: u.X25519Pubkey,
		})
	}
	if err := store.SaveUsers(out); err != nil {
		log.Error().Err(err).Msg("save users failed")
	}
}

func saveRooms(store storage.Store, records []state.RoomSeed, log zerolog.Logger) {
	out := make([]storage.RoomRecord, 0, len(records))
	for _, rm := range records {
		out = append(out, storage.RoomRecord{
			ID: rm.ID, OwnerPubkey: rm.OwnerPubkey, Price: rm.Price, ForSale: rm.ForSale,
			AccessMode: rm.AccessMode, AccessList: append([]string(nil), rm.AccessList...),
			DisplayName: rm.DisplayName, DoorColor: rm.DoorColor,
		})
	}
	if err := store.SaveRooms(out); err != nil {
		log.Error().Err(err).Msg("save rooms failed")
	}
}
