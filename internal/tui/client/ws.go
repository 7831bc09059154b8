// Package client connects the monitor to the driver's status feed.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/streamvr/server/internal/host"
	"github.com/streamvr/server/internal/status"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
	writeTimeout       = 10 * time.Second
	pongTimeout        = 60 * time.Second
	pingInterval       = 30 * time.Second
)

// WSClient manages the websocket connection to the status feed.
type WSClient struct {
	url   string
	token string

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	pingCtx context.CancelFunc
}

func NewWSClient(url, token string) *WSClient {
	return &WSClient{url: url, token: token}
}

// WSConnectedMsg is sent when the websocket connects.
type WSConnectedMsg struct{}

// WSDisconnectedMsg is sent when the connection drops.
type WSDisconnectedMsg struct{ Err error }

// WSSnapshotMsg delivers the full driver status.
type WSSnapshotMsg struct{ Status status.Snapshot }

// WSDeltaMsg delivers the host calls made since the last delta.
type WSDeltaMsg struct {
	Calls  []host.Call
	Status status.Snapshot
}

// Listen returns a command that connects, retrying with backoff until it
// succeeds or ctx is cancelled.
func (c *WSClient) Listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		delay := reconnectBaseDelay
		for {
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			var header http.Header
			if c.token != "" {
				header = http.Header{"Authorization": []string{"Bearer " + c.token}}
			}
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
			if err != nil {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(delay):
				}
				delay = min(delay*2, reconnectMaxDelay)
				continue
			}

			c.mu.Lock()
			if c.pingCtx != nil {
				c.pingCtx()
			}
			pingCtx, pingCancel := context.WithCancel(ctx)
			c.conn = conn
			c.pingCtx = pingCancel
			c.mu.Unlock()

			go c.pingLoop(pingCtx, conn)

			return WSConnectedMsg{}
		}
	}
}

// ReadLoop returns a command that reads until the next message the model
// cares about. Start it after WSConnectedMsg and again after each message.
func (c *WSClient) ReadLoop(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return WSDisconnectedMsg{Err: fmt.Errorf("no connection")}
		}

		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongTimeout))
			return nil
		})
		conn.SetReadDeadline(time.Now().Add(pongTimeout))

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				c.mu.Lock()
				if c.conn == conn {
					c.conn = nil
				}
				c.mu.Unlock()
				conn.Close()
				return WSDisconnectedMsg{Err: err}
			}

			if msg := decode(data); msg != nil {
				return msg
			}
		}
	}
}

func (c *WSClient) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			cc := c.conn
			c.mu.Unlock()
			if cc != conn {
				return
			}
			c.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Close drops the current connection, if any.
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pingCtx != nil {
		c.pingCtx()
		c.pingCtx = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// decode turns a raw feed message into a tea.Msg. Unknown or malformed
// messages yield nil.
func decode(data []byte) tea.Msg {
	var env status.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil
	}
	switch env.Type {
	case status.MsgSnapshot:
		var p status.SnapshotPayload
		if json.Unmarshal(env.Payload, &p) == nil {
			return WSSnapshotMsg{Status: p.Status}
		}
	case status.MsgDelta:
		var p status.DeltaPayload
		if json.Unmarshal(env.Payload, &p) == nil {
			return WSDeltaMsg{Calls: p.Calls, Status: p.Status}
		}
	}
	return nil
}
