// Package proto implements the wire envelope: a signed, timestamped JSON
// object carrying a typed payload between a peer and the relay.
package proto

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrBadSignature is returned by Verify when the signature does not
// check out against the bound public key.
var ErrBadSignature = errors.New("invalid signature")

// Envelope is the wire message: five fields, always in this shape. The
// signature binds exactly {type, id, ts, payload} — never Sig itself.
type Envelope struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	TS      int64           `json:"ts"`
	Sig     string          `json:"sig,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// signable is the canonical four-field object that gets signed. Field
// order here is fixed by struct declaration order, and encoding/json
// marshals struct fields in that order deterministically — unlike a
// map[string]interface{}, whose key order is not a promise we can sign
// against.
type signable struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	TS      int64           `json:"ts"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// canonicalBytes serializes the signable subset of an envelope. Both the
// signer and the verifier call this on their own view of the envelope;
// structural equality between the two is what makes the signature check
// meaningful.
func canonicalBytes(e Envelope) ([]byte, error) {
	return json.Marshal(signable{Type: e.Type, ID: e.ID, TS: e.TS, Payload: e.Payload})
}

// NewID returns a fresh envelope/session identifier.
func NewID() string {
	return uuid.NewString()
}

// Sign fills in ID (if empty) and Sig, signing the canonical form with priv.
func Sign(e Envelope, priv ed25519.PrivateKey) (Envelope, error) {
	if e.ID == "" {
		e.ID = NewID()
	}
	body, err := canonicalBytes(e)
	if err != nil {
		return Envelope{}, fmt.Errorf("canonicalize envelope: %w", err)
	}
	sig := ed25519.Sign(priv, body)
	e.Sig = base64.StdEncoding.EncodeToString(sig)
	return e, nil
}

// Verify reconstructs the canonical form from e (ignoring e.Sig) and checks
// it against pub. ed25519.Verify already rejects malleable (non-canonical)
// signatures, satisfying the strict-decoding requirement without a
// third-party verifier.
func Verify(e Envelope, pub ed25519.PublicKey) error {
	if e.Sig == "" {
		return ErrBadSignature
	}
	sig, err := base64.StdEncoding.DecodeString(e.Sig)
	if err != nil {
		return ErrBadSignature
	}
	body, err := canonicalBytes(e)
	if err != nil {
		return fmt.Errorf("canonicalize envelope: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize || !ed25519.Verify(pub, body, sig) {
		return ErrBadSignature
	}
	return nil
}

// RequiresSignature reports whether a client message type must carry a
// valid signature. Everything beginning with "client." requires one
// except client.auth and client.heartbeat.
func RequiresSignature(msgType string) bool {
	if msgType == "client.auth" || msgType == "client.heartbeat" {
		return false
	}
	return len(msgType) >= 7 && msgType[:7] == "client."
}

// Decode parses raw bytes into an Envelope.
func Decode(raw []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

// Encode serializes an envelope back to wire bytes.
func Encode(e Envelope) ([]byte, error) {
	return json.Marshal(e)
}

// MustPayload marshals v into a RawMessage, panicking only on programmer
// error (v not JSON-marshalable) — used when constructing outbound
// envelopes from known-good Go values.
func MustPayload(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("proto: payload marshal: %v", err))
	}
	return b
}

// New builds an unsigned, timestamped envelope of the given type with a
// fresh id and the provided payload value.
func New(msgType string, ts int64, payload interface{}) Envelope {
	return Envelope{Type: msgType, ID: NewID(), TS: ts, Payload: MustPayload(payload)}
}
