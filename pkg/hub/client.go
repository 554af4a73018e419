package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

// Connection timing follows the usual websocket keepalive scheme: the
// client must answer a ping within pongWait.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4 << 10
	sendBuffer     = 128
)

// Conn is the subset of a websocket connection the client pumps use.
// *websocket.Conn from gofiber/websocket satisfies it.
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

var _ Conn = (*websocket.Conn)(nil)

// Client is one websocket subscriber.
type Client struct {
	hub  *Hub
	conn Conn
	send chan Message
}

// NewClient creates a new client, queues backlog for it and registers it
// with the hub. Backlog beyond the client buffer is dropped. It returns false
// if the hub has already stopped.
func NewClient(hub *Hub, conn Conn, backlog ...Message) (*Client, bool) {
	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan Message, sendBuffer),
	}
	for _, msg := range backlog {
		if len(client.send) == cap(client.send) {
			break
		}
		client.send <- msg
	}
	select {
	case hub.join <- client:
		return client, true
	case <-hub.done:
		return nil, false
	}
}

// Run pumps messages until the connection closes or the hub drops the
// client. Call it from the websocket handler; it blocks.
func (c *Client) Run() {
	written := make(chan struct{})
	go func() {
		defer close(written)
		c.write()
	}()
	c.read()
	<-written
}

// read discards inbound frames. It exists to process pongs and notice
// when the peer goes away.
func (c *Client) read() {
	defer func() {
		select {
		case c.hub.leave <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	extend := func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) }
	_ = extend("")
	c.conn.SetPongHandler(extend)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// write is the only goroutine writing to the connection.
func (c *Client) write() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	defer c.conn.Close()

	for {
		var (
			kind int
			data []byte
		)
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			kind, data = websocket.TextMessage, msg.Data
		case <-ping.C:
			kind = websocket.PingMessage
		}
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(kind, data); err != nil {
			return
		}
	}
}
