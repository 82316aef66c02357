package ws

import (
	"errors"
	"time"

	"voxelhunt/internal/logger"
	"voxelhunt/internal/match"
	"voxelhunt/internal/protocol"
	"voxelhunt/internal/store"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
)

// Client is one read-only state subscription.
type Client struct {
	GameID  string
	Address string
	Conn    *websocket.Conn
	Hub     *Hub

	done chan struct{}
}

func NewClient(gameID, address string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		GameID:  gameID,
		Address: address,
		Conn:    conn,
		Hub:     hub,
		done:    make(chan struct{}),
	}
}

// Run blocks until the peer goes away or the hub closes.
func (c *Client) Run() {
	c.Hub.register(c)
	go c.readPump()
	c.writePump()
}

// readPump only services control frames; the feed ignores client messages.
func (c *Client) readPump() {
	defer close(c.done)

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.ForGame(c.GameID, c.Address).Debug("feed read error", "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	log := logger.ForGame(c.GameID, c.Address)
	ticker := time.NewTicker(c.Hub.interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
		c.Hub.unregister(c)
		_ = c.Conn.Close()
	}()

	log.Debug("feed opened")
	if !c.pushState() {
		return
	}

	for {
		select {
		case <-ticker.C:
			if !c.pushState() {
				return
			}

		case <-ping.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			log.Debug("feed closed by peer")
			return

		case <-c.Hub.done:
			c.closeWith(websocket.CloseGoingAway, "server shutting down")
			return
		}
	}
}

// pushState writes one frame; false means the feed should stop.
func (c *Client) pushState() bool {
	state, err := c.Hub.source.GameState(c.GameID, c.Address)
	if err != nil {
		msg := protocol.MsgInternal
		switch {
		case errors.Is(err, store.ErrGameNotFound):
			msg = protocol.MsgGameNotFound
		case errors.Is(err, match.ErrNotAPlayer):
			msg = protocol.MsgNotAPlayer
		}
		c.write(Envelope{Type: MsgError, Error: msg})
		c.closeWith(websocket.ClosePolicyViolation, msg)
		return false
	}
	return c.write(Envelope{Type: MsgState, State: &state})
}

func (c *Client) write(env Envelope) bool {
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.Conn.WriteJSON(env); err != nil {
		logger.ForGame(c.GameID, c.Address).Debug("feed write error", "error", err)
		return false
	}
	FeedFrames.WithLabelValues(env.Type).Inc()
	return true
}

func (c *Client) closeWith(code int, text string) {
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, text))
}
