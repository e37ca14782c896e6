package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 256 * 1024
	sendBuffer     = 256
)

// client is one websocket connection. id is the participant id from the
// session token and doubles as the player id inside rooms.
type client struct {
	id      string
	name    string
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	limiter *rate.Limiter

	// room is only touched by the connection's read loop.
	room *Room

	closeOnce sync.Once
}

func newClient(id, name string, conn *websocket.Conn, limit rate.Limit, burst int) *client {
	return &client{
		id:      id,
		name:    name,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// enqueue hands a frame to the write pump. A client that cannot keep up is
// disconnected rather than allowed to stall the room.
func (c *client) enqueue(data []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- data:
	case <-c.done:
	default:
		log.Warn().Str("player_id", c.id).Msg("send buffer full, dropping connection")
		c.close()
	}
}

func (c *client) sendJSON(typ string, payload interface{}) {
	data, err := json.Marshal(WSOut{Type: typ, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("type", typ).Msg("marshal outbound message")
		return
	}
	c.enqueue(data)
}

func (c *client) sendError(msg string) { c.sendJSON(outError, msg) }

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
