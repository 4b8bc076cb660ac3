// Package state holds the relay's single shared world value: users,
// rooms, live sessions, and the presence index, all guarded by one
// coarse reader/writer lock the way the teacher's Hub guards its rooms
// and clients maps (server/signaling.go). Handlers borrow a write lock
// for the shortest possible critical section and never await network
// or storage I/O while holding it.
package state

import (
	"time"

	"thestreet/internal/world"
)

// AccessMode is a room's door policy.
type AccessMode string

const (
	AccessOpen      AccessMode = "open"
	AccessWhitelist AccessMode = "whitelist"
	AccessBlacklist AccessMode = "blacklist"
)

// User is a long-lived identity, keyed by a stable "u_<n>" id.
type User struct {
	ID           string
	Pubkey       string // base64 Ed25519 public key
	DisplayName  string
	Position     world.Position
	X25519Pubkey string
}

// Room is a door-addressable space, keyed by "<side>:<street_x>".
type Room struct {
	ID          string
	OwnerPubkey string
	Price       string
	ForSale     bool
	AccessMode  AccessMode
	AccessList  []string // signing keys
	DisplayName string
	DoorColor   string
}

// Session is the live handle for a connected user: identity, verification
// key, and a channel-backed sink for outbound envelopes. Exists only
// while the socket is open — the teacher's Client.send chan []byte,
// generalized from a signaling peer to an authenticated world user.
type Session struct {
	ID     string
	UserID string
	Pubkey string
	Send   chan []byte
}

// BoardingRequest is present while a user stands in a station awaiting
// a train moving toward the given destination.
type BoardingRequest struct {
	StationX    int
	DestinationX int
}

// TrainRide is present while a user is riding a train toward a destination.
type TrainRide struct {
	TrainID      int
	DestinationX int
}

// NearbyUser is one entry of a server.nearby payload.
type NearbyUser struct {
	ID           string
	DisplayName  string
	X            int
	Y            int
	X25519Pubkey string
}

// now is a seam so tests can avoid depending on wall-clock time.
var now = time.Now
