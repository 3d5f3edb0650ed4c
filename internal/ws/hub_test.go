package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mzhao/parley/internal/models"
	"github.com/mzhao/parley/internal/store/sqlstore"
)

// frame is a decoded server→client envelope for assertions.
type frame struct {
	Event    string            `json:"event"`
	Messages []models.Message  `json:"messages"`
	Users    []models.RoomUser `json:"users"`
	Room     string            `json:"room"`
	Text     string            `json:"text"`
	Username string            `json:"username"`
	To       string            `json:"to"`
	IsTyping bool              `json:"isTyping"`
}

func newTestHub(t *testing.T) (*Hub, *sqlstore.SQLStore) {
	t.Helper()
	store, err := sqlstore.New("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	hub := NewHub(store)
	go hub.Run()
	return hub, store
}

func newTestClient(t *testing.T, hub *Hub, store *sqlstore.SQLStore, username string) *Client {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com", Password: "pass"}
	if err := store.CreateUser(user); err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	client := &Client{
		hub:  hub,
		user: user,
		id:   uuid.NewString(),
		send: make(chan []byte, 32),
	}
	hub.register <- client
	settle()
	return client
}

func settle() {
	time.Sleep(100 * time.Millisecond)
}

// collect drains every frame currently queued for the client.
func collect(t *testing.T, c *Client) []frame {
	t.Helper()
	var frames []frame
	for {
		select {
		case data := <-c.send:
			var f frame
			if err := json.Unmarshal(data, &f); err != nil {
				t.Fatalf("Failed to decode frame %s: %v", data, err)
			}
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func lastEvent(frames []frame, event string) (frame, bool) {
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Event == event {
			return frames[i], true
		}
	}
	return frame{}, false
}

func TestJoinEmptyRoom(t *testing.T) {
	hub, store := newTestHub(t)
	alice := newTestClient(t, hub, store, "alice")

	hub.join <- joinCmd{client: alice, room: "general"}
	settle()

	frames := collect(t, alice)

	history, ok := lastEvent(frames, "previousMessages")
	if !ok {
		t.Fatal("Expected a previousMessages frame")
	}
	if len(history.Messages) != 0 {
		t.Errorf("Expected empty history, got %d messages", len(history.Messages))
	}

	presence, ok := lastEvent(frames, "onlineUsers")
	if !ok {
		t.Fatal("Expected an onlineUsers frame")
	}
	if len(presence.Users) != 1 || presence.Users[0].Username != "alice" {
		t.Errorf("Expected presence [alice], got %v", presence.Users)
	}
}

func TestSendEmptyMessageIsDropped(t *testing.T) {
	hub, store := newTestHub(t)
	alice := newTestClient(t, hub, store, "alice")

	hub.join <- joinCmd{client: alice, room: "general"}
	settle()
	collect(t, alice)

	hub.messages <- sendCmd{client: alice, room: "general", text: "   "}
	hub.messages <- sendCmd{client: alice, text: "no room"}
	settle()

	if frames := collect(t, alice); len(frames) != 0 {
		t.Errorf("Expected no delivery, got %d frames", len(frames))
	}

	messages, err := store.RoomMessages("general")
	if err != nil {
		t.Fatalf("RoomMessages failed: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("Expected nothing persisted, got %d messages", len(messages))
	}
}

func TestBroadcastMessage(t *testing.T) {
	hub, store := newTestHub(t)
	alice := newTestClient(t, hub, store, "alice")
	bob := newTestClient(t, hub, store, "bob")

	hub.join <- joinCmd{client: alice, room: "general"}
	hub.join <- joinCmd{client: bob, room: "general"}
	settle()
	collect(t, alice)
	collect(t, bob)

	hub.messages <- sendCmd{client: alice, room: "general", text: "hello all"}
	settle()

	for _, c := range []*Client{alice, bob} {
		msg, ok := lastEvent(collect(t, c), "message")
		if !ok {
			t.Fatalf("Expected %s to receive the broadcast", c.user.Username)
		}
		if msg.Text != "hello all" || msg.Username != "alice" {
			t.Errorf("Unexpected message for %s: %+v", c.user.Username, msg)
		}
	}

	messages, _ := store.RoomMessages("general")
	if len(messages) != 1 {
		t.Errorf("Expected 1 persisted message, got %d", len(messages))
	}
}

func TestDirectMessage(t *testing.T) {
	hub, store := newTestHub(t)
	alice := newTestClient(t, hub, store, "alice")
	bob := newTestClient(t, hub, store, "bob")
	carol := newTestClient(t, hub, store, "carol")

	for _, c := range []*Client{alice, bob, carol} {
		hub.join <- joinCmd{client: c, room: "general"}
	}
	settle()
	collect(t, alice)
	collect(t, bob)
	collect(t, carol)

	hub.messages <- sendCmd{client: alice, room: "general", text: "psst", to: "bob"}
	settle()

	if msg, ok := lastEvent(collect(t, bob), "message"); !ok || msg.Text != "psst" {
		t.Error("Expected bob to receive the direct message")
	}
	if msg, ok := lastEvent(collect(t, alice), "message"); !ok || msg.Text != "psst" {
		t.Error("Expected the sender to get an echo")
	}
	if _, ok := lastEvent(collect(t, carol), "message"); ok {
		t.Error("Expected carol not to see the direct message")
	}
}

func TestDirectMessageOfflineRecipient(t *testing.T) {
	hub, store := newTestHub(t)
	alice := newTestClient(t, hub, store, "alice")

	hub.join <- joinCmd{client: alice, room: "general"}
	settle()
	collect(t, alice)

	hub.messages <- sendCmd{client: alice, room: "general", text: "anyone there?", to: "ghost"}
	settle()

	// Persisted for the recipient's next join, echoed to the sender.
	if _, ok := lastEvent(collect(t, alice), "message"); !ok {
		t.Error("Expected the sender to get an echo")
	}
	messages, _ := store.RoomMessages("general")
	if len(messages) != 1 {
		t.Errorf("Expected message persisted, got %d", len(messages))
	}
}

func TestPresenceAfterJoinsAndDisconnects(t *testing.T) {
	hub, store := newTestHub(t)
	alice := newTestClient(t, hub, store, "alice")
	bob := newTestClient(t, hub, store, "bob")
	carol := newTestClient(t, hub, store, "carol")

	for _, c := range []*Client{alice, bob, carol} {
		hub.join <- joinCmd{client: c, room: "general"}
	}
	settle()

	hub.unregister <- bob
	settle()
	collect(t, alice)

	hub.unregister <- carol
	settle()

	presence, ok := lastEvent(collect(t, alice), "onlineUsers")
	if !ok {
		t.Fatal("Expected an onlineUsers frame after disconnects")
	}
	if len(presence.Users) != 1 {
		t.Errorf("Expected 1 user after 3 joins and 2 disconnects, got %d", len(presence.Users))
	}
	if presence.Users[0].Username != "alice" {
		t.Errorf("Expected alice to remain, got %v", presence.Users)
	}
}

func TestRejoinLeavesPreviousRoom(t *testing.T) {
	hub, store := newTestHub(t)
	alice := newTestClient(t, hub, store, "alice")
	bob := newTestClient(t, hub, store, "bob")

	hub.join <- joinCmd{client: alice, room: "general"}
	hub.join <- joinCmd{client: bob, room: "general"}
	settle()
	collect(t, bob)

	hub.join <- joinCmd{client: alice, room: "random"}
	settle()

	presence, ok := lastEvent(collect(t, bob), "onlineUsers")
	if !ok {
		t.Fatal("Expected an onlineUsers frame after alice left")
	}
	if len(presence.Users) != 1 || presence.Users[0].Username != "bob" {
		t.Errorf("Expected only bob in general, got %v", presence.Users)
	}
}

func TestJoinDeliversRecentHistory(t *testing.T) {
	hub, store := newTestHub(t)
	alice := newTestClient(t, hub, store, "alice")

	hub.join <- joinCmd{client: alice, room: "general"}
	settle()
	collect(t, alice)

	hub.messages <- sendCmd{client: alice, room: "general", text: "first"}
	hub.messages <- sendCmd{client: alice, room: "general", images: []string{"/uploads/pic.png"}}
	settle()

	bob := newTestClient(t, hub, store, "bob")
	hub.join <- joinCmd{client: bob, room: "general"}
	settle()

	history, ok := lastEvent(collect(t, bob), "previousMessages")
	if !ok {
		t.Fatal("Expected a previousMessages frame")
	}
	if len(history.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(history.Messages))
	}
	if history.Messages[0].Text != "first" {
		t.Errorf("Expected oldest first, got '%s'", history.Messages[0].Text)
	}
	if len(history.Messages[1].Images) != 1 || history.Messages[1].Images[0] != "/uploads/pic.png" {
		t.Errorf("Expected image list preserved, got %v", history.Messages[1].Images)
	}
}

func TestTypingRelayedToOthersOnly(t *testing.T) {
	hub, store := newTestHub(t)
	alice := newTestClient(t, hub, store, "alice")
	bob := newTestClient(t, hub, store, "bob")

	hub.join <- joinCmd{client: alice, room: "general"}
	hub.join <- joinCmd{client: bob, room: "general"}
	settle()
	collect(t, alice)
	collect(t, bob)

	hub.typing <- typingCmd{client: alice, room: "general", isTyping: true}
	settle()

	typing, ok := lastEvent(collect(t, bob), "userTyping")
	if !ok {
		t.Fatal("Expected bob to receive the typing indicator")
	}
	if typing.Username != "alice" || !typing.IsTyping {
		t.Errorf("Unexpected typing payload: %+v", typing)
	}
	if _, ok := lastEvent(collect(t, alice), "userTyping"); ok {
		t.Error("Expected the sender not to receive its own indicator")
	}

	messages, _ := store.RoomMessages("general")
	if len(messages) != 0 {
		t.Error("Expected typing indicators not to be persisted")
	}
}

func TestPersistenceFailureSuppressesDelivery(t *testing.T) {
	hub, store := newTestHub(t)
	alice := newTestClient(t, hub, store, "alice")
	bob := newTestClient(t, hub, store, "bob")

	hub.join <- joinCmd{client: alice, room: "general"}
	hub.join <- joinCmd{client: bob, room: "general"}
	settle()
	collect(t, alice)
	collect(t, bob)

	store.Close()

	hub.messages <- sendCmd{client: alice, room: "general", text: "lost"}
	settle()

	if _, ok := lastEvent(collect(t, bob), "message"); ok {
		t.Error("Expected delivery to be suppressed when persistence fails")
	}
}
