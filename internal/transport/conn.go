// Package transport bridges a websocket connection to a pair of
// channels: inbound frames and an outbound queue, following the
// teacher's Client.send chan []byte plus separate read/write goroutine
// pattern (server/signaling.go, server/cmd/loadconduit/client.go),
// generalized from a signaling peer's connection to this relay's
// session connection.
package transport

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	maxMessageBytes = 65536
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	sendQueueDepth  = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Conn is one accepted, upgraded socket. Recv yields inbound frames in
// arrival order; Send is the sole writer of the socket — enqueueing
// into it never blocks the caller beyond the channel's buffer.
type Conn struct {
	ws   *websocket.Conn
	Recv chan []byte
	Send chan []byte
	done chan struct{}
}

// Accept upgrades an HTTP request to a websocket and starts the read
// and write pumps. The caller owns the returned Conn's lifecycle:
// close Send (or call Close) to tear it down.
func Accept(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	ws.SetReadLimit(maxMessageBytes)

	c := &Conn{
		ws:   ws,
		Recv: make(chan []byte, sendQueueDepth),
		Send: make(chan []byte, sendQueueDepth),
		done: make(chan struct{}),
	}
	go c.readPump()
	go c.writePump()
	return c, nil
}

// readPump is the sole reader of the socket; it ends (and closes Recv)
// on any read error, including a clean client close.
func (c *Conn) readPump() {
	defer close(c.Recv)
	defer c.ws.Close()

	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		select {
		case c.Recv <- payload:
		case <-c.done:
			return
		}
	}
}

// writePump is the sole writer of the socket — the queue Send feeds is
// the only path to the wire, matching the teacher's single-writer
// discipline around Client.send.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.ws.Close()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close stops both pumps and closes the underlying socket.
func (c *Conn) Close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	_ = c.ws.Close()
}
