package proto

import (
	"crypto/ed25519"
	"encoding/json"
	"testing"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	env := New(TypeClientMove, 1000, ClientMovePayload{Dir: "up"})
	signed, err := Sign(env, priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := Verify(signed, pub); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	env := New(TypeClientMove, 1000, ClientMovePayload{Dir: "up"})
	signed, _ := Sign(env, priv)

	signed.Payload = MustPayload(ClientMovePayload{Dir: "down"})
	if err := Verify(signed, pub); err == nil {
		t.Fatalf("expected verification to fail for a tampered payload")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	_, priv, _ := ed25519.GenerateKey(nil)
	otherPub, _, _ := ed25519.GenerateKey(nil)

	env := New(TypeClientMove, 1000, ClientMovePayload{Dir: "up"})
	signed, _ := Sign(env, priv)
	if err := Verify(signed, otherPub); err == nil {
		t.Fatalf("expected verification to fail for the wrong public key")
	}
}

func TestVerifyRejectsMissingSignature(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(nil)
	env := New(TypeClientMove, 1000, ClientMovePayload{Dir: "up"})
	if err := Verify(env, pub); err == nil {
		t.Fatalf("expected verification to fail when no signature is present")
	}
}

func TestRequiresSignature(t *testing.T) {
	cases := map[string]bool{
		TypeClientAuth:             false,
		TypeClientHeartbeat:        false,
		TypeClientMove:             true,
		TypeClientChat:             true,
		TypeClientCommand:          true,
		TypeClientRoomKey:          true,
		TypeClientRoomAccessUpdate: true,
		TypeServerHello:            false,
	}
	for msgType, want := range cases {
		if got := RequiresSignature(msgType); got != want {
			t.Fatalf("RequiresSignature(%q) = %v, want %v", msgType, got, want)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	env := New(TypeServerNotice, 42, ServerNoticePayload{Text: "hello"})
	b, err := Encode(env)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Type != env.Type || decoded.TS != env.TS || decoded.ID != env.ID {
		t.Fatalf("decoded envelope mismatch: %+v vs %+v", decoded, env)
	}
	var payload ServerNoticePayload
	if err := json.Unmarshal(decoded.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Text != "hello" {
		t.Fatalf("unexpected payload text: %q", payload.Text)
	}
}
