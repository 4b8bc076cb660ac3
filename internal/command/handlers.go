package command

import (
	"strconv"
	"strings"

	"thestreet/internal/proto"
	"thestreet/internal/state"
	"thestreet/internal/wallet"
	"thestreet/internal/world"
)

// handleWho answers server.who: users present in the caller's map, or
// on the street, filtered to a 16x16 box centered on the caller (§4.6).
func (r *Router) handleWho(caller Caller) {
	u := caller.User
	all := r.World.NearbyPayload(u.Position.MapID, "")
	var filtered []proto.NearbyUser

	onStreet := u.Position.MapID == world.StreetMapID
	for _, n := range all {
		if n.ID == u.ID {
			continue
		}
		if onStreet && !within(u.Position.X, u.Position.Y, n.X, n.Y, 16) {
			continue
		}
		filtered = append(filtered, proto.NearbyUser{
			ID: n.ID, DisplayName: n.DisplayName, X: n.X, Y: n.Y, X25519Pubkey: n.X25519Pubkey,
		})
	}
	r.World.SendToUser(u.ID, proto.New(proto.TypeServerWho, nowMillis(), proto.ServerWhoPayload{Users: filtered}))
}

func within(cx, cy, x, y, box int) bool {
	half := box / 2
	return abs(x-cx) <= half && abs(y-cy) <= half
}

// handleBuy implements §4.6 "buy".
func (r *Router) handleBuy(caller Caller) {
	u := caller.User
	parsed, err := world.ParseMapID(u.Position.MapID)
	if err != nil || parsed.Kind != world.KindRoom {
		r.sendError(caller, "invalid_command", "buy requires standing in a room")
		return
	}
	roomID := parsed.Side + ":" + strconv.Itoa(parsed.StreetX)
	room := r.World.GetOrCreateRoom(roomID, r.RoomPrice)
	if !room.ForSale {
		r.sendError(caller, "invalid_command", "room is not for sale")
		return
	}

	price, err := wallet.ParseAmount(room.Price)
	if err != nil {
		r.sendError(caller, "wallet_error", "invalid room price")
		return
	}
	fee := wallet.ComputeFee(price, wallet.FeeConfig{Mode: r.Fee.Mode, Value: r.Fee.Value})
	feeAmt, _ := wallet.ParseAmount(fee)
	total := wallet.FormatAmount(price + feeAmt)

	devWallet := r.devWalletPubkey()
	seller := room.OwnerPubkey
	if seller == "" {
		seller = devWallet
	}

	txID, err := r.Wallet.Send(u.Pubkey, seller, total)
	if err != nil {
		r.handleWalletError(caller, err)
		return
	}
	if seller != devWallet {
		if _, err := r.Wallet.Send(seller, devWallet, fee); err != nil {
			r.Log.Warn().Err(err).Msg("dev fee transfer failed after room purchase")
		}
	}

	updated := r.World.MutateRoom(roomID, r.RoomPrice, func(rm *state.Room) {
		rm.OwnerPubkey = u.Pubkey
		rm.ForSale = false
	})
	r.persistRooms()

	// A room purchase settles immediately: ownership already changed above,
	// so the tx_update reports it confirmed rather than asking the wallet.
	sendTxUpdate(r.World, u.ID, "confirmed", 8, txID)
	sendRoomInfo(r.World, u.ID, updated)

	if bal, err := r.Wallet.Balance(u.Pubkey); err == nil {
		sendBalanceNotice(r.World, u.ID, bal)
	}
}

func (r *Router) devWalletPubkey() string {
	return r.devWalletKey
}

// handlePay implements §4.6 "pay <user> <amount>".
func (r *Router) handlePay(caller Caller, args []string) {
	if len(args) < 2 {
		r.sendError(caller, "invalid_command", "usage: pay <user> <amount>")
		return
	}
	u := caller.User
	targetPubkey, ok := r.World.ResolveIdentifier(args[0])
	if !ok {
		r.sendError(caller, "invalid_command", "unknown recipient "+args[0])
		return
	}
	amount, err := wallet.ParseAmount(args[1])
	if err != nil {
		r.sendError(caller, "invalid_command", "invalid amount")
		return
	}
	fee := wallet.ComputeFee(amount, wallet.FeeConfig{Mode: r.Fee.Mode, Value: r.Fee.Value})
	feeAmt, _ := wallet.ParseAmount(fee)
	total := wallet.FormatAmount(amount + feeAmt)

	txID, err := r.Wallet.Send(u.Pubkey, targetPubkey, total)
	if err != nil {
		r.handleWalletError(caller, err)
		return
	}
	if dev := r.devWalletPubkey(); dev != "" {
		if _, err := r.Wallet.Send(targetPubkey, dev, fee); err != nil {
			r.Log.Warn().Err(err).Msg("dev fee transfer failed after pay")
		}
	}

	// A peer-to-peer payment reports pending/0 conf until the recipient
	// observes its own confirmation, unlike a buy's immediate settlement.
	sendTxUpdate(r.World, u.ID, "pending", 0, txID)
}

func (r *Router) handleWalletError(caller Caller, err error) {
	if err == wallet.ErrInsufficientFunds {
		r.sendError(caller, "insufficient_funds", err.Error())
		return
	}
	r.sendError(caller, "wallet_error", err.Error())
}

// handleClaimName implements §4.6 "claim_name <name>".
func (r *Router) handleClaimName(caller Caller, args []string) {
	if len(args) < 1 || strings.TrimSpace(args[0]) == "" {
		r.sendError(caller, "invalid_command", "usage: claim_name <name>")
		return
	}
	name := args[0]
	u := caller.User
	if existing := r.World.FindUserByDisplayName(name); existing != nil {
		r.sendError(caller, "invalid_command", "name already taken")
		return
	}

	amount, err := wallet.ParseAmount(r.UsernameFee)
	if err != nil {
		r.sendError(caller, "wallet_error", "invalid username fee configuration")
		return
	}
	feeStr := wallet.ComputeFee(amount, wallet.FeeConfig{Mode: r.Fee.Mode, Value: r.Fee.Value})
	feeAmt, _ := wallet.ParseAmount(feeStr)
	total := wallet.FormatAmount(amount + feeAmt)

	dev := r.devWalletPubkey()
	if _, err := r.Wallet.Send(u.Pubkey, dev, total); err != nil {
		r.handleWalletError(caller, err)
		return
	}

	if err := r.World.SetDisplayName(u.ID, name); err != nil {
		r.sendError(caller, "invalid_command", err.Error())
		return
	}
	r.persistUsers()
	r.notice(caller, "display name set to "+name)
}

// handleAccess implements §4.6 "access".
func (r *Router) handleAccess(caller Caller, args []string) {
	u := caller.User
	roomID, ok := roomIDForUser(u)
	if !ok {
		r.sendError(caller, "invalid_command", "access requires standing in a room")
		return
	}
	room, exists := r.World.RoomSnapshot(roomID)
	if !exists {
		room = r.World.GetOrCreateRoom(roomID, r.RoomPrice)
	}

	if len(args) == 0 || args[0] == "show" {
		sendRoomInfo(r.World, u.ID, room)
		return
	}

	if room.OwnerPubkey != u.Pubkey || !isAdjacentToCustomizer(u) {
		r.sendError(caller, "room_access_denied", "must be the room owner, adjacent to the customizer")
		return
	}

	mode := args[0]
	if mode != "open" && mode != "whitelist" && mode != "blacklist" {
		r.sendError(caller, "invalid_command", "mode must be open, whitelist, or blacklist")
		return
	}

	resolved := make([]string, 0, len(args)-1)
	seen := make(map[string]bool)
	for _, ident := range args[1:] {
		pubkey, ok := r.World.ResolveIdentifier(ident)
		if !ok {
			r.sendError(caller, "invalid_command", "unknown identifier "+ident)
			return
		}
		if seen[pubkey] {
			r.sendError(caller, "invalid_command", "duplicate identifier "+ident)
			return
		}
		seen[pubkey] = true
		resolved = append(resolved, pubkey)
	}

	updated := r.World.MutateRoom(roomID, r.RoomPrice, func(rm *state.Room) {
		rm.AccessMode = state.AccessMode(mode)
		rm.AccessList = resolved
	})
	r.persistRooms()
	sendRoomInfo(r.World, u.ID, updated)
}

// handleRoomName implements §4.6 "room_name <name>".
func (r *Router) handleRoomName(caller Caller, args []string) {
	if len(args) < 1 {
		r.sendError(caller, "invalid_command", "usage: room_name <name>")
		return
	}
	r.withOwnedCustomizerRoom(caller, func(rm *state.Room) error {
		rm.DisplayName = args[0]
		return nil
	})
}

// handleDoorColor implements §4.6 "door_color <color>".
func (r *Router) handleDoorColor(caller Caller, args []string) {
	if len(args) < 1 || !doorColors[args[0]] {
		r.sendError(caller, "invalid_command", "color must be one of red, green, yellow, blue, magenta, cyan, white")
		return
	}
	r.withOwnedCustomizerRoom(caller, func(rm *state.Room) error {
		rm.DoorColor = args[0]
		return nil
	})
}

func (r *Router) withOwnedCustomizerRoom(caller Caller, mutate func(rm *state.Room) error) {
	u := caller.User
	roomID, ok := roomIDForUser(u)
	if !ok {
		r.sendError(caller, "invalid_command", "requires standing in a room")
		return
	}
	room, exists := r.World.RoomSnapshot(roomID)
	if !exists {
		room = r.World.GetOrCreateRoom(roomID, r.RoomPrice)
	}
	if room.OwnerPubkey != u.Pubkey || !isAdjacentToCustomizer(u) {
		r.sendError(caller, "room_access_denied", "must be the room owner, adjacent to the customizer")
		return
	}

	var mutateErr error
	updated := r.World.MutateRoom(roomID, r.RoomPrice, func(rm *state.Room) {
		mutateErr = mutate(rm)
	})
	if mutateErr != nil {
		r.sendError(caller, "invalid_command", mutateErr.Error())
		return
	}
	r.persistRooms()
	sendRoomInfo(r.World, u.ID, updated)
}

// handleBalance implements §4.6 "balance".
func (r *Router) handleBalance(caller Caller) {
	bal, err := r.Wallet.Balance(caller.User.Pubkey)
	if err != nil {
		r.handleWalletError(caller, err)
		return
	}
	sendBalanceNotice(r.World, caller.User.ID, bal)
}

// handleFaucet implements §4.6 "faucet [amount]", default 5.0.
func (r *Router) handleFaucet(caller Caller, args []string) {
	amount := 5.0
	if len(args) > 0 {
		v, err := wallet.ParseAmount(args[0])
		if err != nil {
			r.sendError(caller, "invalid_command", "invalid amount")
			return
		}
		amount = v
	}
	if err := r.Wallet.Credit(caller.User.Pubkey, wallet.FormatAmount(amount)); err != nil {
		r.handleWalletError(caller, err)
		return
	}
	bal, err := r.Wallet.Balance(caller.User.Pubkey)
	if err != nil {
		r.handleWalletError(caller, err)
		return
	}
	sendBalanceNotice(r.World, caller.User.ID, bal)
}

// handleRoomInfo implements §4.6 "room_info <room_id>".
func (r *Router) handleRoomInfo(caller Caller, args []string) {
	if len(args) < 1 {
		r.sendError(caller, "invalid_command", "usage: room_info <room_id>")
		return
	}
	room := r.World.GetOrCreateRoom(args[0], r.RoomPrice)
	sendRoomInfo(r.World, caller.User.ID, room)
}

// handleHelp implements §4.6 "help".
func (r *Router) handleHelp(caller Caller) {
	r.notice(caller, helpText)
}

const helpText = "commands: who, buy, pay <user> <amount>, claim_name <name>, " +
	"access [show|open|whitelist|blacklist] [identifier...], room_name <name>, " +
	"door_color <color>, balance, faucet [amount], board <dir>, depart <dir>, " +
	"room_info <room_id>, help"

func (r *Router) persistUsers() {
	if r.Store == nil {
		return
	}
	go func(records []state.UserSeed) {
		saveUsers(r.Store, records, r.Log)
	}(r.World.SnapshotUsers())
}

func (r *Router) persistRooms() {
	if r.Store == nil {
		return
	}
	go func(records []state.RoomSeed) {
		saveRooms(r.Store, records, r.Log)
	}(r.World.SnapshotRooms())
}
