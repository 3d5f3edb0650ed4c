package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mzhao/parley/internal/auth"
	"github.com/mzhao/parley/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one authenticated websocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	user *models.User

	// id identifies this connection (not the account) in presence lists.
	id string

	// Buffered channel of outbound frames.
	send chan []byte

	// room is the currently joined room, "" if none. Touched only by the
	// hub goroutine.
	room string
}

// ServeWs authenticates the handshake and hands the connection to the hub.
// The bearer token comes from the Authorization header or, since browsers
// cannot set headers on websocket requests, a "token" query parameter.
// Invalid or missing credentials refuse the connection before the upgrade.
func ServeWs(hub *Hub, tokens *auth.Tokens, w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := tokens.Verify(token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := hub.store.GetUserByID(userID)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade: %v", err)
		return
	}

	client := &Client{
		hub:  hub,
		conn: conn,
		user: user,
		id:   uuid.NewString(),
		send: make(chan []byte, 256),
	}
	hub.register <- client

	go client.writePump()
	go client.readPump()
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	if header := r.Header.Get("Authorization"); len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return r.URL.Query().Get("token")
}

// readPump parses inbound frames and forwards them to the hub as commands.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("read: %v", err)
			}
			return
		}

		var event clientEvent
		if err := json.Unmarshal(data, &event); err != nil {
			log.Printf("bad frame from %s: %v", c.user.Username, err)
			continue
		}

		switch event.Event {
		case eventJoinRoom:
			c.hub.join <- joinCmd{client: c, room: event.Room}
		case eventSendMessage:
			c.hub.messages <- sendCmd{
				client: c,
				room:   event.Room,
				text:   event.Text,
				images: event.Images,
				to:     event.To,
			}
		case eventUserTyping:
			c.hub.typing <- typingCmd{client: c, room: event.Room, isTyping: event.IsTyping}
		}
	}
}

// writePump drains the send channel and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
