package live

import (
	"context"
	"net/http"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Client is a single websocket connection following one meeting.
type Client struct {
	hub       *Hub
	conn      *ws.Conn
	meetingID int64
	send      chan []byte
}

// NewClient creates a Client tied to the given hub, connection and meeting.
func NewClient(hub *Hub, conn *ws.Conn, meetingID int64) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		meetingID: meetingID,
		send:      make(chan []byte, sendBufferSize),
	}
}

// Run registers the client, starts the write pump, and runs the read pump.
// It blocks until the connection is closed, then unregisters.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump discards incoming messages; the stream is server to client only.
func (c *Client) readPump(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Serve upgrades the request and streams meetingID's events until the peer
// disconnects. Authorization must happen before Serve is called.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, meetingID int64, originPatterns []string) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: originPatterns})
	if err != nil {
		h.logger.Warn("websocket accept failed", "meeting_id", meetingID, "error", err)
		return
	}
	defer conn.CloseNow()

	NewClient(h, conn, meetingID).Run(r.Context())
}
