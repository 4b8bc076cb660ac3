package proto

// Message type strings, matching the wire catalog exactly.
const (
	// Client -> Server
	TypeClientAuth            = "client.auth"
	TypeClientMove             = "client.move"
	TypeClientChat             = "client.chat"
	TypeClientCommand          = "client.command"
	TypeClientRoomAccessUpdate = "client.room_access_update"
	TypeClientRoomKey          = "client.room_key"
	TypeClientHeartbeat        = "client.heartbeat"

	// Server -> Client
	TypeServerHello      = "server.hello"
	TypeServerWelcome    = "server.welcome"
	TypeServerState      = "server.state"
	TypeServerMapChange  = "server.map_change"
	TypeServerChat       = "server.chat"
	TypeServerNearby     = "server.nearby"
	TypeServerWho        = "server.who"
	TypeServerRoomInfo   = "server.room_info"
	TypeServerTxUpdate   = "server.tx_update"
	TypeServerError      = "server.error"
	TypeServerNotice     = "server.notice"
	TypeServerTrainState = "server.train_state"
	TypeServerRoomKey    = "server.room_key"
)

// Error codes from the wire catalog.
const (
	ErrAuthFailed          = "auth_failed"
	ErrAlreadyConnected    = "already_connected"
	ErrInvalidSignature    = "invalid_signature"
	ErrInvalidCommand      = "invalid_command"
	ErrMoveBlocked         = "move_blocked"
	ErrRoomAccessDenied    = "room_access_denied"
	ErrInsufficientFunds   = "insufficient_funds"
	ErrWalletError         = "wallet_error"
)

// FeeConfig describes the dev fee applied to value transfers.
type FeeConfig struct {
	Mode  string `json:"mode"` // "bps" or "percent"
	Value int64  `json:"value"`
}

// ServerHelloPayload is sent immediately on connect.
type ServerHelloPayload struct {
	ServerVersion   string    `json:"server_version"`
	Challenge       string    `json:"challenge"`
	FeeConfig       FeeConfig `json:"fee_config"`
	RoomPriceXMR    string    `json:"room_price_xmr"`
	UsernameFeeXMR  string    `json:"username_fee_xmr"`
}

// ClientAuthPayload answers server.hello.
type ClientAuthPayload struct {
	Pubkey        string `json:"pubkey"`
	ChallengeSig  string `json:"challenge_sig"`
	ClientVersion string `json:"client_version"`
	X25519Pubkey  string `json:"x25519_pubkey,omitempty"`
}

// PositionPayload mirrors world.Position on the wire.
type PositionPayload struct {
	MapID string `json:"map_id"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
}

// ServerWelcomePayload is sent once auth succeeds.
type ServerWelcomePayload struct {
	ClientID    string          `json:"client_id"`
	DisplayName string          `json:"display_name,omitempty"`
	Position    PositionPayload `json:"position"`
	SessionID   string          `json:"session_id"`
}

// ServerErrorPayload carries a machine-readable code plus human text.
type ServerErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServerNoticePayload is presented to the user verbatim.
type ServerNoticePayload struct {
	Text string `json:"text"`
}

// ServerMapChangePayload announces a completed map transition.
type ServerMapChangePayload struct {
	MapID    string          `json:"map_id"`
	Position PositionPayload `json:"position"`
}

// ServerStatePayload carries a same-map position update: sent after a
// move that stays on the current map (Moved, not Transition).
type ServerStatePayload struct {
	Position PositionPayload `json:"position"`
}

// NearbyUser is one entry in server.nearby.
type NearbyUser struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name,omitempty"`
	X            int    `json:"x"`
	Y            int    `json:"y"`
	X25519Pubkey string `json:"x25519_pubkey,omitempty"`
}

// ServerNearbyPayload is the proximity refresh.
type ServerNearbyPayload struct {
	Users []NearbyUser `json:"users"`
}

// ServerWhoPayload answers the "who" command.
type ServerWhoPayload struct {
	Users []NearbyUser `json:"users"`
}

// RoomAccessPayload describes a room's access policy for server.room_info.
type RoomAccessPayload struct {
	Mode string   `json:"mode"`
	List []string `json:"list"`
}

// ServerRoomInfoPayload describes a room's current state.
type ServerRoomInfoPayload struct {
	RoomID      string            `json:"room_id"`
	OwnerPubkey string            `json:"owner_pubkey,omitempty"`
	Price       string            `json:"price"`
	ForSale     bool              `json:"for_sale"`
	Access      RoomAccessPayload `json:"access"`
	DisplayName string            `json:"display_name,omitempty"`
	DoorColor   string            `json:"door_color,omitempty"`
}

// ServerTxUpdatePayload tracks a value-transfer's lifecycle.
type ServerTxUpdatePayload struct {
	Status        string `json:"status"` // "pending" | "confirmed"
	Confirmations int    `json:"confirmations"`
	TxID          string `json:"tx_id,omitempty"`
}

// TrainStateEntry is one train's public state.
type TrainStateEntry struct {
	ID        int     `json:"id"`
	X         float64 `json:"x"`
	Clockwise bool    `json:"clockwise"`
}

// ServerTrainStatePayload is the periodic/initial train snapshot.
type ServerTrainStatePayload struct {
	Trains []TrainStateEntry `json:"trains"`
}

// ClientMovePayload requests a single-tile move.
type ClientMovePayload struct {
	Dir string `json:"dir"`
}

// ClientCommandPayload dispatches a named command with string args.
type ClientCommandPayload struct {
	Name string   `json:"name"`
	Args []string `json:"args"`
}

// ChatEncPayload is the opaque end-to-end encryption envelope. The server
// never inspects its contents.
type ChatEncPayload struct {
	Alg        string `json:"alg"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
	SenderKey  string `json:"sender_key,omitempty"`
}

// ClientChatPayload is a chat send request.
type ClientChatPayload struct {
	Scope  string          `json:"scope"` // "local" | "room" | "whisper"
	Text   string          `json:"text"`
	Target string          `json:"target,omitempty"`
	Enc    *ChatEncPayload `json:"enc,omitempty"`
}

// ServerChatPayload is a forwarded chat message.
type ServerChatPayload struct {
	From        string          `json:"from"`
	DisplayName string          `json:"display_name,omitempty"`
	Text        string          `json:"text"`
	Scope       string          `json:"scope"`
	RoomID      string          `json:"room_id,omitempty"`
	Enc         *ChatEncPayload `json:"enc,omitempty"`
}

// ClientRoomKeyPayload hands a symmetric room key to one other peer,
// end-to-end encrypted; the server only routes it.
type ClientRoomKeyPayload struct {
	RoomID     string `json:"room_id"`
	Target     string `json:"target"`
	SenderKey  string `json:"sender_key"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// ServerRoomKeyPayload is the relayed form, with the sender identified.
type ServerRoomKeyPayload struct {
	RoomID     string `json:"room_id"`
	From       string `json:"from"`
	SenderKey  string `json:"sender_key"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// ClientRoomAccessUpdatePayload is an alternate structured form of the
// "access" command, used by clients that prefer a typed message over
// free-form command args.
type ClientRoomAccessUpdatePayload struct {
	RoomID string   `json:"room_id"`
	Mode   string   `json:"mode"`
	List   []string `json:"list"`
}
