package chat

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"kindred-sheets/backend/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	closeUnauthorized = 4001
	closeGoingAway    = websocket.CloseGoingAway
)

// Client supervises one authenticated connection: it drives the receive
// loop, dispatches frames into the server, and funnels disconnects through
// the same leave logic as an explicit leave message. It is the Conn
// implementation participants hold for delivery.
type Client struct {
	UserID   string
	UserName string

	server *Server
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once
	log    *logger.Logger

	// session is only touched from this client's read loop, so it needs
	// no lock of its own
	session *Session
}

func newClient(server *Server, conn *websocket.Conn, userID, userName string, sendBuffer int) *Client {
	return &Client{
		UserID:   userID,
		UserName: userName,
		server:   server,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
		log:      server.log.WithUserID(userID),
	}
}

// Send implements Conn. It never blocks; a full queue drops the frame.
func (c *Client) Send(data []byte) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Ready implements Conn
func (c *Client) Ready() bool {
	return !c.closed.Load()
}

// Close implements Conn. Safe to call from any goroutine and more than once.
func (c *Client) Close(code int, reason string) {
	c.once.Do(func() {
		c.closed.Store(true)
		deadline := time.Now().Add(writeWait)
		message := websocket.FormatCloseMessage(code, reason)
		c.conn.WriteControl(websocket.CloseMessage, message, deadline)
		c.conn.Close()
	})
}

// readPump reads frames until the connection drops, handling each one to
// completion before the next is read. On exit the client leaves its
// session exactly as an explicit leave would.
func (c *Client) readPump() {
	defer func() {
		c.closed.Store(true)
		close(c.done)
		c.server.handleDisconnect(c)
		c.server.unregister(c)
		c.conn.Close()
		c.log.Debug("Receive loop ended")
	}()

	c.conn.SetReadLimit(MaxFrameBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Debug("Connection read error", "error", err.Error())
			}
			break
		}
		c.processFrame(data)
	}
}

// processFrame shields the receive loop from panics during handling: one
// bad message must not end the whole session participation.
func (c *Client) processFrame(data []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Panic while handling chat frame", "panic", fmt.Sprintf("%v", r))
			c.server.send(c, newErrorMessage("message_parse_error"))
		}
	}()
	c.server.handleFrame(c, data)
}

// writePump owns all writes to the connection, including pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-c.done:
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleDisconnect treats a dropped connection as an implicit leave
func (s *Server) handleDisconnect(c *Client) {
	if c.session != nil {
		s.performLeave(c)
	}
}
