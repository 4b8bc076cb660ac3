// Package command dispatches authenticated, signed client traffic —
// client.command, client.chat, client.room_key, and
// client.room_access_update — to handlers that read and mutate the
// shared world state, the wallet, and persistent storage. It
// generalizes the teacher's switch-based Hub.handleMessage dispatch
// (server/signaling.go) from a handful of signaling verbs to the
// world's full command surface.
package command

import (
	"github.com/rs/zerolog"

	"thestreet/internal/config"
	"thestreet/internal/ratelimit"
	"thestreet/internal/state"
	"thestreet/internal/storage"
	"thestreet/internal/wallet"
)

// Router holds every collaborator a command handler might need.
type Router struct {
	World       *state.World
	Wallet      wallet.Wallet
	Store       storage.Store
	Fee         config.FeeConfig
	RoomPrice   string
	UsernameFee string
	Log         zerolog.Logger
	Moves       *ratelimit.MoveLimiter

	devWalletKey string
}

// New builds a Router.
func New(w *state.World, wal wallet.Wallet, store storage.Store, cfg *config.Config, log zerolog.Logger) *Router {
	return &Router{
		World:        w,
		Wallet:       wal,
		Store:        store,
		Fee:          cfg.Fee,
		RoomPrice:    cfg.DefaultRoomPrice,
		UsernameFee:  cfg.UsernameFee,
		Log:          log,
		Moves:        ratelimit.NewMoveLimiter(ratelimit.DefaultMoveInterval),
		devWalletKey: cfg.DevWalletPubkey,
	}
}

// Caller is the authenticated identity issuing a command, bound from
// the session's live user snapshot by the session machine before
// dispatch — per §4.3 Live: "reload the latest user snapshot from
// world state... so handlers see concurrent updates".
type Caller struct {
	User *state.User
}

// Dispatch routes a client.command by name. args are the raw string
// arguments from ClientCommandPayload.
func (r *Router) Dispatch(caller Caller, name string, args []string) {
	switch name {
	case "who":
		r.handleWho(caller)
	case "buy":
		r.handleBuy(caller)
	case "pay":
		r.handlePay(caller, args)
	case "claim_name":
		r.handleClaimName(caller, args)
	case "access":
		r.handleAccess(caller, args)
	case "room_name":
		r.handleRoomName(caller, args)
	case "door_color":
		r.handleDoorColor(caller, args)
	case "balance":
		r.handleBalance(caller)
	case "faucet":
		r.handleFaucet(caller, args)
	case "board":
		r.handleBoard(caller, args)
	case "depart":
		r.handleDepart(caller, args)
	case "room_info":
		r.handleRoomInfo(caller, args)
	case "help":
		r.handleHelp(caller)
	default:
		r.sendError(caller, "invalid_command", "unknown command "+name)
	}
}

// PersistAll snapshots and saves both users and rooms, used by the
// session machine on disconnect so a user's final position and any
// room mutations survive a relay restart.
func (r *Router) PersistAll() {
	r.persistUsers()
	r.persistRooms()
}

func (r *Router) notice(caller Caller, text string) {
	sendNotice(r.World, caller.User.ID, text)
}

func (r *Router) sendError(caller Caller, code, message string) {
	sendError(r.World, caller.User.ID, code, message)
}
