// apps/duel-server/internal/wsserver/client.go
//
// One Client wraps a websocket connection. gorilla permits a single
// concurrent writer, so all outbound frames funnel through a mutex; game
// goroutines (timers, opponent notifications) and the read loop all send
// through here.
package wsserver

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 25 * time.Second
	maxFrameSize = 1 << 20
)

// Client implements duel.Conn over a websocket.
type Client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{conn: conn}
}

// Send writes v as one JSON frame. Failures are the read loop's problem
// (the broken connection will error there and unwind); callers treat sends
// as fire-and-forget.
func (c *Client) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

// ping sends a websocket-level ping to keep intermediaries from timing out
// the connection.
func (c *Client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

func (c *Client) close() {
	_ = c.conn.Close()
}
