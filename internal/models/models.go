package models

import "time"

type User struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"-"`
	AvatarURL string `json:"avatarUrl"`
}

// Message is a persisted chat message. To carries the recipient's username
// for a direct message; empty means broadcast to the room. Images is the
// ordered list of stored image paths.
type Message struct {
	ID        int       `json:"id"`
	Room      string    `json:"room"`
	SenderID  int       `json:"senderId"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatarUrl"`
	To        string    `json:"to,omitempty"`
	Text      string    `json:"text"`
	Images    []string  `json:"images"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomUser is one entry in a room's presence set. ID is the per-connection
// id, not the account id, so the same account connected twice shows up twice.
type RoomUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
