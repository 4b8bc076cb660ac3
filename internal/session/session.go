// Package session implements the per-connection state machine:
// PreAuth -> Auth -> Live -> Closed (§4.3), generalizing the teacher's
// Client lifecycle (server/signaling.go: connect, hub.registerClient,
// handleMessage loop, disconnectClient) from an anonymous signaling
// peer to an authenticated, persistent world identity.
package session

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"thestreet/internal/command"
	"thestreet/internal/config"
	"thestreet/internal/proto"
	appstate "thestreet/internal/state"
	"thestreet/internal/stats"
	"thestreet/internal/train"
	"thestreet/internal/transport"
	"thestreet/internal/wallet"
)

// StartingBalance is credited to every newly created user on first
// auth. Not part of the wire configuration catalog (§6 only lists
// bind/dataDir/fee/devWalletPubkey/defaultRoomPrice/usernameFee), so
// it is a fixed constant here rather than a config field.
const StartingBalance = "5.00000000"

var errSessionEnded = errors.New("session ended")

// Machine drives one connection through the full lifecycle.
type Machine struct {
	World  *appstate.World
	Router *command.Router
	Wallet wallet.Wallet
	Fleet  *train.Fleet
	Cfg    *config.Config
	Log    zerolog.Logger
}

// New builds a Machine.
func New(w *appstate.World, router *command.Router, wal wallet.Wallet, fleet *train.Fleet, cfg *config.Config, log zerolog.Logger) *Machine {
	return &Machine{World: w, Router: router, Wallet: wal, Fleet: fleet, Cfg: cfg, Log: log}
}

// Run drives conn through PreAuth, Auth, Live, and Closed in order.
// It returns once the session has fully ended and been cleaned up.
func (m *Machine) Run(conn *transport.Conn) {
	stats.IncConnectionAttempt()
	defer conn.Close()

	authStartedAt := time.Now()
	user, err := m.preAuth(conn)
	if err != nil {
		stats.IncConnectionFailure()
		return
	}
	stats.RecordAuthLatency(time.Since(authStartedAt))
	stats.IncConnectionSuccess()

	sess, err := m.auth(conn, user)
	if err != nil {
		return
	}
	stats.AddActiveSessions(1)
	defer stats.AddActiveSessions(-1)

	reason := m.live(conn, sess, user.ID)
	m.closed(user.ID, reason)
}

// preAuth implements §4.3 PreAuth: send server.hello with a fresh
// challenge, then wait for a verifying client.auth.
func (m *Machine) preAuth(conn *transport.Conn) (*appstate.User, error) {
	challenge := make([]byte, 32)
	if _, err := rand.Read(challenge); err != nil {
		return nil, err
	}
	challengeB64 := base64.StdEncoding.EncodeToString(challenge)

	hello := proto.New(proto.TypeServerHello, nowMillis(), proto.ServerHelloPayload{
		ServerVersion:  m.Cfg.ServerVersion,
		Challenge:      challengeB64,
		FeeConfig:      proto.FeeConfig{Mode: m.Cfg.Fee.Mode, Value: m.Cfg.Fee.Value},
		RoomPriceXMR:   m.Cfg.DefaultRoomPrice,
		UsernameFeeXMR: m.Cfg.UsernameFee,
	})
	helloBytes, err := proto.Encode(hello)
	if err != nil {
		return nil, err
	}
	conn.Send <- helloBytes

	raw, ok := <-conn.Recv
	if !ok {
		return nil, errSessionEnded
	}
	env, err := proto.Decode(raw)
	if err != nil || env.Type != proto.TypeClientAuth {
		m.sendPreAuthError(conn, proto.ErrAuthFailed, "expected client.auth")
		return nil, errSessionEnded
	}
	var payload proto.ClientAuthPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		m.sendPreAuthError(conn, proto.ErrAuthFailed, "malformed client.auth")
		return nil, errSessionEnded
	}

	pubkeyRaw, err := base64.StdEncoding.DecodeString(payload.Pubkey)
	if err != nil || len(pubkeyRaw) != ed25519.PublicKeySize {
		m.sendPreAuthError(conn, proto.ErrAuthFailed, "invalid pubkey")
		return nil, errSessionEnded
	}
	sigRaw, err := base64.StdEncoding.DecodeString(payload.ChallengeSig)
	if err != nil {
		m.sendPreAuthError(conn, proto.ErrAuthFailed, "invalid challenge_sig")
		return nil, errSessionEnded
	}
	if !ed25519.Verify(ed25519.PublicKey(pubkeyRaw), challenge, sigRaw) {
		m.sendPreAuthError(conn, proto.ErrAuthFailed, "challenge signature invalid")
		return nil, errSessionEnded
	}

	user := m.World.FindUserByPubkey(payload.Pubkey)
	if user == nil {
		user = m.World.CreateUser(payload.Pubkey)
		if err := m.Wallet.Credit(user.Pubkey, StartingBalance); err != nil {
			m.Log.Warn().Err(err).Str("user", user.ID).Msg("starting balance credit failed")
		}
	}
	m.World.SetX25519Pubkey(user.ID, payload.X25519Pubkey)
	user = m.World.FindUser(user.ID)

	return user, nil
}

func (m *Machine) sendPreAuthError(conn *transport.Conn, code, message string) {
	env := proto.New(proto.TypeServerError, nowMillis(), proto.ServerErrorPayload{Code: code, Message: message})
	if b, err := proto.Encode(env); err == nil {
		select {
		case conn.Send <- b:
		default:
		}
	}
}

// auth implements §4.3 Auth: register the session, refuse a second
// concurrent connection, send server.welcome, an initial
// server.train_state snapshot, and refresh nearby.
func (m *Machine) auth(conn *transport.Conn, user *appstate.User) (*appstate.Session, error) {
	sess := &appstate.Session{
		ID:     proto.NewID(),
		UserID: user.ID,
		Pubkey: user.Pubkey,
		Send:   conn.Send,
	}

	if err := m.World.RegisterSession(user.ID, sess, user.Position.MapID); err != nil {
		m.sendPreAuthError(conn, proto.ErrAlreadyConnected, "already connected")
		return nil, err
	}

	welcome := proto.New(proto.TypeServerWelcome, nowMillis(), proto.ServerWelcomePayload{
		ClientID:    user.ID,
		DisplayName: user.DisplayName,
		Position:    proto.PositionPayload{MapID: user.Position.MapID, X: user.Position.X, Y: user.Position.Y},
		SessionID:   sess.ID,
	})
	m.World.SendToUser(user.ID, welcome)

	if m.Fleet != nil {
		m.World.SendToUser(user.ID, proto.New(proto.TypeServerTrainState, nowMillis(), trainStatePayload(m.Fleet)))
	}

	appstate.RefreshNearby(m.World, user.Position.MapID)

	return sess, nil
}

func trainStatePayload(fleet *train.Fleet) proto.ServerTrainStatePayload {
	trains := fleet.Snapshot()
	out := make([]proto.TrainStateEntry, 0, len(trains))
	for _, t := range trains {
		out = append(out, proto.TrainStateEntry{ID: t.ID, X: t.X, Clockwise: t.Clockwise})
	}
	return proto.ServerTrainStatePayload{Trains: out}
}

// live implements §4.3 Live: read envelopes in order, reload the
// user's latest snapshot before each dispatch, verify signatures where
// required, and dispatch by type.
func (m *Machine) live(conn *transport.Conn, sess *appstate.Session, userID string) string {
	for raw := range conn.Recv {
		env, err := proto.Decode(raw)
		if err != nil {
			continue
		}
		stats.IncMessageRX(env.Type)

		user := m.World.FindUser(userID)
		if user == nil {
			return "user vanished"
		}

		if proto.RequiresSignature(env.Type) {
			pubkeyRaw, err := base64.StdEncoding.DecodeString(user.Pubkey)
			if err != nil || proto.Verify(env, ed25519.PublicKey(pubkeyRaw)) != nil {
				m.World.SendToUser(userID, proto.New(proto.TypeServerError, nowMillis(),
					proto.ServerErrorPayload{Code: proto.ErrInvalidSignature, Message: "invalid signature"}))
				continue
			}
		}

		m.dispatch(user, env)
	}
	return "read loop ended"
}

func (m *Machine) dispatch(user *appstate.User, env proto.Envelope) {
	caller := command.Caller{User: user}

	switch env.Type {
	case proto.TypeClientHeartbeat:
		// no reply required
	case proto.TypeClientMove:
		var p proto.ClientMovePayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		m.Router.HandleMove(caller, p.Dir)
	case proto.TypeClientCommand:
		var p proto.ClientCommandPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		m.Router.Dispatch(caller, p.Name, p.Args)
	case proto.TypeClientChat:
		var p proto.ClientChatPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		m.Router.HandleChat(caller, p)
	case proto.TypeClientRoomKey:
		var p proto.ClientRoomKeyPayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		m.Router.HandleRoomKey(caller, p)
	case proto.TypeClientRoomAccessUpdate:
		var p proto.ClientRoomAccessUpdatePayload
		if json.Unmarshal(env.Payload, &p) != nil {
			return
		}
		m.Router.HandleRoomAccessUpdate(caller, p)
	default:
		m.World.SendToUser(user.ID, proto.New(proto.TypeServerError, nowMillis(),
			proto.ServerErrorPayload{Code: proto.ErrInvalidCommand, Message: "unknown message type"}))
	}
}

// closed implements §4.3 Closed: remove the session, drop presence and
// any pending boarding/ride, save the latest snapshot, and refresh
// nearby for the abandoned map.
func (m *Machine) closed(userID, reason string) {
	mapID, existed := m.World.RemoveSession(userID)
	if !existed {
		return
	}
	stats.IncDisconnect(reason)
	// The move rate limit is keyed per user, not per session: a reconnect
	// must not hand the user a fresh budget, so its stamp outlives this session.
	appstate.RefreshNearby(m.World, mapID)
	m.Router.PersistAll()
}

func nowMillis() int64 { return time.Now().UnixMilli() }
