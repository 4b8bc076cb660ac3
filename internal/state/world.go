package state

import (
	"fmt"
	"sort"
	"sync"

	"thestreet/internal/world"
)

// World is the single shared value: every user, room, live session, and
// the presence index, guarded by one RWMutex. Per spec (5. CONCURRENCY &
// RESOURCE MODEL) writers hold the lock only across the in-memory
// mutation; snapshots to persist are cloned out under the lock and
// saved after release.
type World struct {
	mu sync.RWMutex

	usersByID     map[string]*User
	usersByPubkey map[string]*User
	nextUserSeq   int

	rooms map[string]*Room

	sessionsByUser map[string]*Session

	presence map[string]map[string]struct{} // map_id -> user ids

	boarding map[string]BoardingRequest // user id -> request
	rides    map[string]TrainRide       // user id -> ride
}

// New returns an empty world.
func New() *World {
	return &World{
		usersByID:      make(map[string]*User),
		usersByPubkey:  make(map[string]*User),
		rooms:          make(map[string]*Room),
		sessionsByUser: make(map[string]*Session),
		presence:       make(map[string]map[string]struct{}),
		boarding:       make(map[string]BoardingRequest),
		rides:          make(map[string]TrainRide),
	}
}

// LoadUsers seeds the world from persisted records. Call before serving
// any connection.
func (w *World) LoadUsers(records []UserSeed) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, r := range records {
		u := &User{
			ID:           r.ID,
			Pubkey:       r.Pubkey,
			DisplayName:  r.DisplayName,
			Position:     world.Position{MapID: r.MapID, X: r.X, Y: r.Y},
			X25519Pubkey: r.X25519Pubkey,
		}
		w.usersByID[u.ID] = u
		w.usersByPubkey[u.Pubkey] = u
		if seq := seqOf(u.ID); seq > w.nextUserSeq {
			w.nextUserSeq = seq
		}
	}
}

// LoadRooms seeds the world's rooms from persisted records.
func (w *World) LoadRooms(records []RoomSeed) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, r := range records {
		w.rooms[r.ID] = &Room{
			ID:          r.ID,
			OwnerPubkey: r.OwnerPubkey,
			Price:       r.Price,
			ForSale:     r.ForSale,
			AccessMode:  AccessMode(r.AccessMode),
			AccessList:  append([]string(nil), r.AccessList...),
			DisplayName: r.DisplayName,
			DoorColor:   r.DoorColor,
		}
	}
}

// UserSeed and RoomSeed mirror the storage package's persisted shapes
// without importing it, keeping state decoupled from the persistence
// collaborator's wire format.
type UserSeed struct {
	ID, Pubkey, DisplayName, MapID, X25519Pubkey string
	X, Y                                         int
}

type RoomSeed struct {
	ID, OwnerPubkey, Price, AccessMode, DisplayName, DoorColor string
	ForSale                                                   bool
	AccessList                                                []string
}

func seqOf(id string) int {
	var n int
	if _, err := fmt.Sscanf(id, "u_%d", &n); err != nil {
		return 0
	}
	return n
}

// FindUserByPubkey returns the user for a signing key, or nil.
func (w *World) FindUserByPubkey(pubkey string) *User {
	w.mu.RLock()
	defer w.mu.RUnlock()
	u := w.usersByPubkey[pubkey]
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

// FindUser returns a copy of the user by id, or nil.
func (w *World) FindUser(id string) *User {
	w.mu.RLock()
	defer w.mu.RUnlock()
	u := w.usersByID[id]
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

// FindUserByDisplayName returns a copy of the user with that display
// name, or nil. Names are unique by invariant (§8).
func (w *World) FindUserByDisplayName(name string) *User {
	if name == "" {
		return nil
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, u := range w.usersByID {
		if u.DisplayName == name {
			cp := *u
			return &cp
		}
	}
	return nil
}

// ResolveIdentifier resolves a pubkey, user id, or display name to a
// signing key, used by access-list and pay-target resolution.
func (w *World) ResolveIdentifier(identifier string) (pubkey string, ok bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if u, exists := w.usersByPubkey[identifier]; exists {
		return u.Pubkey, true
	}
	if u, exists := w.usersByID[identifier]; exists {
		return u.Pubkey, true
	}
	for _, u := range w.usersByID {
		if u.DisplayName == identifier {
			return u.Pubkey, true
		}
	}
	return "", false
}

// CreateUser allocates a fresh "u_<n>" identity at the default spawn
// position (street, x=0, y=1 — per spec scenario 1) and registers it.
func (w *World) CreateUser(pubkey string) *User {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextUserSeq++
	u := &User{
		ID:     fmt.Sprintf("u_%d", w.nextUserSeq),
		Pubkey: pubkey,
		Position: world.Position{
			MapID: world.StreetMapID,
			X:     0,
			Y:     1,
		},
	}
	w.usersByID[u.ID] = u
	w.usersByPubkey[pubkey] = u
	return u
}

// SetX25519Pubkey sets a user's key-exchange key if not already present
// — per the Open Question in spec §9, a reauth with a different key
// does NOT overwrite an existing one; only first-auth is authoritative.
func (w *World) SetX25519Pubkey(userID, key string) {
	if key == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if u, ok := w.usersByID[userID]; ok && u.X25519Pubkey == "" {
		u.X25519Pubkey = key
	}
}

// SetDisplayName sets a user's display name, failing if already taken.
func (w *World) SetDisplayName(userID, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, u := range w.usersByID {
		if id != userID && u.DisplayName == name {
			return fmt.Errorf("display name %q already taken", name)
		}
	}
	u, ok := w.usersByID[userID]
	if !ok {
		return fmt.Errorf("unknown user %s", userID)
	}
	u.DisplayName = name
	return nil
}

// GetOrCreateRoom materializes a room on first reference with the
// spec's default policy: open, for sale, no owner, configured price.
func (w *World) GetOrCreateRoom(id string, defaultPrice string) *Room {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.rooms[id]
	if !ok {
		r = &Room{
			ID:         id,
			Price:      defaultPrice,
			ForSale:    true,
			AccessMode: AccessOpen,
		}
		w.rooms[id] = r
	}
	cp := *r
	cp.AccessList = append([]string(nil), r.AccessList...)
	return &cp
}

// RoomSnapshot returns a copy of a room if it exists.
func (w *World) RoomSnapshot(id string) (*Room, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r, ok := w.rooms[id]
	if !ok {
		return nil, false
	}
	cp := *r
	cp.AccessList = append([]string(nil), r.AccessList...)
	return &cp, true
}

// MutateRoom applies fn to the room under the write lock, creating it
// with defaults first if absent, and returns the updated snapshot.
func (w *World) MutateRoom(id, defaultPrice string, fn func(r *Room)) *Room {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.rooms[id]
	if !ok {
		r = &Room{ID: id, Price: defaultPrice, ForSale: true, AccessMode: AccessOpen}
		w.rooms[id] = r
	}
	fn(r)
	cp := *r
	cp.AccessList = append([]string(nil), r.AccessList...)
	return &cp
}

// AccessAllowed implements the spec's access_allowed predicate.
func AccessAllowed(r *Room, userPubkey string) bool {
	if r.OwnerPubkey != "" && r.OwnerPubkey == userPubkey {
		return true
	}
	switch r.AccessMode {
	case AccessWhitelist:
		return containsString(r.AccessList, userPubkey)
	case AccessBlacklist:
		return !containsString(r.AccessList, userPubkey)
	default:
		return true
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// RegisterSession adds a session for userID, returning already_connected
// if one is already registered — per spec §4.3 Auth state, and places
// the user in the presence index for its current map.
func (w *World) RegisterSession(userID string, sess *Session, mapID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.sessionsByUser[userID]; exists {
		return ErrAlreadyConnected
	}
	w.sessionsByUser[userID] = sess
	w.addToPresenceLocked(mapID, userID)
	return nil
}

// ErrAlreadyConnected is returned by RegisterSession when a session for
// the user already exists.
var ErrAlreadyConnected = fmt.Errorf("already_connected")

// RemoveSession tears down a closed connection: drops the session,
// removes the user from presence, and clears any pending boarding
// request or train ride (§4.3 Closed state).
func (w *World) RemoveSession(userID string) (mapID string, existed bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, existed = w.sessionsByUser[userID]
	if !existed {
		return "", false
	}
	delete(w.sessionsByUser, userID)
	u := w.usersByID[userID]
	if u != nil {
		mapID = u.Position.MapID
		w.removeFromPresenceLocked(mapID, userID)
	}
	delete(w.boarding, userID)
	delete(w.rides, userID)
	return mapID, true
}

// Session returns the live session for a user, or nil.
func (w *World) Session(userID string) *Session {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.sessionsByUser[userID]
}

func (w *World) addToPresenceLocked(mapID, userID string) {
	set, ok := w.presence[mapID]
	if !ok {
		set = make(map[string]struct{})
		w.presence[mapID] = set
	}
	set[userID] = struct{}{}
}

func (w *World) removeFromPresenceLocked(mapID, userID string) {
	set, ok := w.presence[mapID]
	if !ok {
		return
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(w.presence, mapID)
	}
}

// UsersInMap returns the ids present in mapID, sorted for determinism.
func (w *World) UsersInMap(mapID string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.usersInMapLocked(mapID)
}

func (w *World) usersInMapLocked(mapID string) []string {
	set := w.presence[mapID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// NearbyPayload builds the nearby-user list for mapID, excluding
// excludeUserID (the spec says "excluding the recipient").
func (w *World) NearbyPayload(mapID, excludeUserID string) []NearbyUser {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := w.usersInMapLocked(mapID)
	out := make([]NearbyUser, 0, len(ids))
	for _, id := range ids {
		if id == excludeUserID {
			continue
		}
		u := w.usersByID[id]
		if u == nil {
			continue
		}
		out = append(out, NearbyUser{
			ID:           u.ID,
			DisplayName:  u.DisplayName,
			X:            u.Position.X,
			Y:            u.Position.Y,
			X25519Pubkey: u.X25519Pubkey,
		})
	}
	return out
}

// ApplyTransition moves a user to a new position, updating the
// presence index atomically with the position field (§3 invariant).
// Returns the old map id so the caller can refresh nearby there too.
func (w *World) ApplyTransition(userID string, pos world.Position) (oldMapID string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	u, ok := w.usersByID[userID]
	if !ok {
		return "", fmt.Errorf("unknown user %s", userID)
	}
	oldMapID = u.Position.MapID
	if oldMapID != pos.MapID {
		w.removeFromPresenceLocked(oldMapID, userID)
		w.addToPresenceLocked(pos.MapID, userID)
	}
	u.Position = pos
	return oldMapID, nil
}

// SetBoarding records a boarding request, clearing any existing one.
func (w *World) SetBoarding(userID string, req BoardingRequest) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.boarding[userID] = req
}

// ClearBoarding drops userID's boarding request, if any.
func (w *World) ClearBoarding(userID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.boarding, userID)
}

// BoardingRequests returns a snapshot of all pending boarding requests.
func (w *World) BoardingRequests() map[string]BoardingRequest {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string]BoardingRequest, len(w.boarding))
	for k, v := range w.boarding {
		out[k] = v
	}
	return out
}

// SetRide records a train ride, clearing any boarding request (a user
// has at most one of the two, per §3 invariant).
func (w *World) SetRide(userID string, ride TrainRide) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.boarding, userID)
	w.rides[userID] = ride
}

// ClearRide drops userID's train ride, if any.
func (w *World) ClearRide(userID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.rides, userID)
}

// Rides returns a snapshot of all current train rides.
func (w *World) Rides() map[string]TrainRide {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string]TrainRide, len(w.rides))
	for k, v := range w.rides {
		out[k] = v
	}
	return out
}

// AllSessions returns a snapshot of every live session, for broadcasts
// that must reach everyone regardless of map (e.g. train_state).
func (w *World) AllSessions() []*Session {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*Session, 0, len(w.sessionsByUser))
	for _, s := range w.sessionsByUser {
		out = append(out, s)
	}
	return out
}

// SessionsInMap returns the live sessions for users currently in mapID.
func (w *World) SessionsInMap(mapID string) []*Session {
	w.mu.RLock()
	defer w.mu.RUnlock()
	set := w.presence[mapID]
	out := make([]*Session, 0, len(set))
	for id := range set {
		if s, ok := w.sessionsByUser[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// SnapshotUsers clones every user for persistence, to be called then
// saved outside the lock.
func (w *World) SnapshotUsers() []UserSeed {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]UserSeed, 0, len(w.usersByID))
	for _, u := range w.usersByID {
		out = append(out, UserSeed{
			ID: u.ID, Pubkey: u.Pubkey, DisplayName: u.DisplayName,
			MapID: u.Position.MapID, X: u.Position.X, Y: u.Position.Y,
			X25519Pubkey: u.X25519Pubkey,
		})
	}
	return out
}

// SnapshotRooms clones every room for persistence.
func (w *World) SnapshotRooms() []RoomSeed {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]RoomSeed, 0, len(w.rooms))
	for _, r := range w.rooms {
		out = append(out, RoomSeed{
			ID: r.ID, OwnerPubkey: r.OwnerPubkey, Price: r.Price, ForSale: r.ForSale,
			AccessMode: string(r.AccessMode), DisplayName: r.DisplayName, DoorColor: r.DoorColor,
			AccessList: append([]string(nil), r.AccessList...),
		})
	}
	return out
}
