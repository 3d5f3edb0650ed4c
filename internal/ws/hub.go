package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mzhao/parley/internal/models"
	"github.com/mzhao/parley/internal/store"
)

// historyLimit is how many recent messages a joining client receives.
const historyLimit = 20

// errEmptyMessage marks a send with no room or no content. Dropped without
// logging to match the silent no-op contract.
var errEmptyMessage = errors.New("empty message")

type joinCmd struct {
	client *Client
	room   string
}

type sendCmd struct {
	client *Client
	room   string
	text   string
	images []string
	to     string
}

type typingCmd struct {
	client   *Client
	room     string
	isTyping bool
}

// Hub is the presence and room coordinator. All state below is owned by the
// Run goroutine; clients talk to it exclusively through the command channels,
// which serializes every mutation.
type Hub struct {
	store store.Store

	register   chan *Client
	unregister chan *Client
	join       chan joinCmd
	messages   chan sendCmd
	typing     chan typingCmd

	// Connected clients.
	clients map[*Client]bool

	// Username → connection registry for direct messages.
	byName map[string]*Client

	// Room → ordered presence set.
	rooms map[string][]*Client
}

func NewHub(store store.Store) *Hub {
	return &Hub{
		store:      store,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan joinCmd),
		messages:   make(chan sendCmd),
		typing:     make(chan typingCmd),
		clients:    make(map[*Client]bool),
		byName:     make(map[string]*Client),
		rooms:      make(map[string][]*Client),
	}
}

// Run processes commands one at a time. Handler errors are logged and the
// command dropped; nothing is surfaced back over the socket.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case cmd := <-h.join:
			if err := h.handleJoin(cmd.client, cmd.room); err != nil {
				log.Printf("joinRoom: %v", err)
			}
		case cmd := <-h.messages:
			if err := h.handleMessage(cmd); err != nil && !errors.Is(err, errEmptyMessage) {
				log.Printf("sendMessage: %v", err)
			}
		case cmd := <-h.typing:
			h.handleTyping(cmd)
		}
	}
}

func (h *Hub) handleRegister(c *Client) {
	h.clients[c] = true
	h.byName[c.user.Username] = c
}

func (h *Hub) handleUnregister(c *Client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	if h.byName[c.user.Username] == c {
		delete(h.byName, c.user.Username)
	}
	h.leaveRoom(c)
	close(c.send)
}

// handleJoin subscribes the client to a room, announces the new presence set
// and replays the recent history privately to the joiner. Rooms come into
// existence on first join; a client joining a new room leaves its old one.
func (h *Hub) handleJoin(c *Client, room string) error {
	if room == "" {
		return nil
	}

	if c.room != room {
		h.leaveRoom(c)
		h.rooms[room] = append(h.rooms[room], c)
		c.room = room
	}
	h.broadcastPresence(room)

	recent, err := h.store.RecentMessages(room, historyLimit)
	if err != nil {
		return fmt.Errorf("loading history for %q: %w", room, err)
	}
	if recent == nil {
		recent = []models.Message{}
	}

	data, err := json.Marshal(previousMessagesEvent{Event: "previousMessages", Messages: recent})
	if err != nil {
		return err
	}
	h.deliver(c, data)
	return nil
}

// handleMessage persists the message and then delivers it: to the named
// recipient and back to the sender for a direct message, to the whole room
// otherwise. Persistence failure suppresses delivery.
func (h *Hub) handleMessage(cmd sendCmd) error {
	if cmd.room == "" || (strings.TrimSpace(cmd.text) == "" && len(cmd.images) == 0) {
		return errEmptyMessage
	}

	msg := &models.Message{
		Room:      cmd.room,
		SenderID:  cmd.client.user.ID,
		Username:  cmd.client.user.Username,
		AvatarURL: cmd.client.user.AvatarURL,
		To:        cmd.to,
		Text:      cmd.text,
		Images:    cmd.images,
		Timestamp: time.Now().UTC(),
	}
	if err := h.store.SaveMessage(msg); err != nil {
		return fmt.Errorf("saving message: %w", err)
	}

	data, err := json.Marshal(messageEvent{Event: "message", Message: *msg})
	if err != nil {
		return err
	}

	if cmd.to != "" {
		if target, ok := h.byName[cmd.to]; ok {
			h.deliver(target, data)
		}
		// Offline recipients pick it up from history on their next join.
		h.deliver(cmd.client, data)
		return nil
	}

	for _, member := range h.roomMembers(cmd.room) {
		h.deliver(member, data)
	}
	return nil
}

// handleTyping relays the indicator to everyone else in the room. Nothing is
// persisted and no debouncing happens here.
func (h *Hub) handleTyping(cmd typingCmd) {
	data, err := json.Marshal(typingEvent{
		Event:     "userTyping",
		Username:  cmd.client.user.Username,
		IsTyping:  cmd.isTyping,
		AvatarURL: cmd.client.user.AvatarURL,
	})
	if err != nil {
		return
	}
	for _, member := range h.roomMembers(cmd.room) {
		if member != cmd.client {
			h.deliver(member, data)
		}
	}
}

// leaveRoom removes the client from its current room's presence set and
// announces the shrunken set to whoever remains.
func (h *Hub) leaveRoom(c *Client) {
	if c.room == "" {
		return
	}
	room := c.room
	c.room = ""

	members := h.rooms[room]
	for i, member := range members {
		if member == c {
			h.rooms[room] = append(members[:i], members[i+1:]...)
			break
		}
	}
	if len(h.rooms[room]) == 0 {
		delete(h.rooms, room)
		return
	}
	h.broadcastPresence(room)
}

func (h *Hub) broadcastPresence(room string) {
	members := h.roomMembers(room)
	users := make([]models.RoomUser, 0, len(members))
	for _, member := range members {
		users = append(users, models.RoomUser{ID: member.id, Username: member.user.Username})
	}

	data, err := json.Marshal(onlineUsersEvent{Event: "onlineUsers", Users: users})
	if err != nil {
		return
	}
	for _, member := range members {
		h.deliver(member, data)
	}
}

// roomMembers copies the presence slice so callers can deliver (and possibly
// evict) while iterating.
func (h *Hub) roomMembers(room string) []*Client {
	return append([]*Client(nil), h.rooms[room]...)
}

// deliver queues a frame without blocking the coordinator; a client that
// cannot keep up is dropped.
func (h *Hub) deliver(c *Client, data []byte) {
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
		h.handleUnregister(c)
	}
}
