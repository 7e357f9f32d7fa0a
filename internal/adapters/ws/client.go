package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrBackpressure = errors.New("backpressure")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client wraps one websocket connection with a buffered outbound
// queue. TrySend never blocks.
type Client struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *Client) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// Serve upgrades the request and keeps the client attached to the room
// until the connection or the server context ends. Inbound frames are
// drained and ignored: the push channel is one-way, mutations go
// through the REST surface.
func (h *Hub) Serve(ctx context.Context, c *gin.Context, roomName string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("ws upgrade")
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, h.bufFrames),
	}
	h.attach(roomName, client)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		h.writePump(ctx, client)
		cancel()
	}()
	go func() {
		h.readPump(ctx, client)
		cancel()
		h.detach(roomName, client)
		client.Close()
	}()
}

func (h *Hub) writePump(ctx context.Context, c *Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump write error")
				return
			}
		}
	}
}

func (h *Hub) readPump(ctx context.Context, c *Client) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			if _, _, err := c.conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
