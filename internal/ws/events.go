package ws

import "github.com/mzhao/parley/internal/models"

// clientEvent is the envelope for every client→server frame. Event selects
// the handler; the remaining fields are per-event payload.
type clientEvent struct {
	Event    string   `json:"event"`
	Room     string   `json:"room,omitempty"`
	Text     string   `json:"text,omitempty"`
	Images   []string `json:"images,omitempty"`
	To       string   `json:"to,omitempty"`
	IsTyping bool     `json:"isTyping,omitempty"`
}

const (
	eventJoinRoom    = "joinRoom"
	eventSendMessage = "sendMessage"
	eventUserTyping  = "userTyping"
)

type messageEvent struct {
	Event string `json:"event"`
	models.Message
}

type previousMessagesEvent struct {
	Event    string           `json:"event"`
	Messages []models.Message `json:"messages"`
}

type onlineUsersEvent struct {
	Event string            `json:"event"`
	Users []models.RoomUser `json:"users"`
}

type typingEvent struct {
	Event     string `json:"event"`
	Username  string `json:"username"`
	IsTyping  bool   `json:"isTyping"`
	AvatarURL string `json:"avatarUrl"`
}
