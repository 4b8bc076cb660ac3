package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*httptest.Server, chan *Conn) {
	t.Helper()
	accepted := make(chan *Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Accept(w, r)
		if err != nil {
			t.Errorf("Accept: %v", err)
			return
		}
		accepted <- conn
	}))
	t.Cleanup(srv.Close)
	return srv, accepted
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestConnDeliversClientMessageToRecv(t *testing.T) {
	srv, accepted := newTestServer(t)
	client := dial(t, srv)

	if err := client.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatalf("client write: %v", err)
	}

	var conn *Conn
	select {
	case conn = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatalf("server never accepted the connection")
	}
	defer conn.Close()

	select {
	case msg := <-conn.Recv:
		if string(msg) != "hello" {
			t.Fatalf("expected %q, got %q", "hello", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server never received the client's message")
	}
}

func TestConnSendReachesClient(t *testing.T) {
	srv, accepted := newTestServer(t)
	client := dial(t, srv)

	var conn *Conn
	select {
	case conn = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatalf("server never accepted the connection")
	}
	defer conn.Close()

	conn.Send <- []byte("world")

	_, msg, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("client read: %v", err)
	}
	if string(msg) != "world" {
		t.Fatalf("expected %q, got %q", "world", msg)
	}
}

func TestConnRecvClosesOnClientDisconnect(t *testing.T) {
	srv, accepted := newTestServer(t)
	client := dial(t, srv)

	var conn *Conn
	select {
	case conn = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatalf("server never accepted the connection")
	}
	defer conn.Close()

	client.Close()

	select {
	case _, ok := <-conn.Recv:
		if ok {
			t.Fatalf("expected Recv to be closed after client disconnect")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Recv was never closed after the client disconnected")
	}
}

func TestConnCloseStopsBothPumps(t *testing.T) {
	srv, accepted := newTestServer(t)
	dial(t, srv)

	var conn *Conn
	select {
	case conn = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatalf("server never accepted the connection")
	}

	conn.Close()

	select {
	case _, ok := <-conn.Recv:
		if ok {
			t.Fatalf("expected Recv closed after Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Recv was never closed after Close")
	}
}
