package sqlstore

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/mzhao/parley/internal/models"
	"github.com/mzhao/parley/internal/store"
)

const messageColumns = `m.id, m.room, m.sender_id, u.username, u.avatar_url, m.recipient, m.body, m.images, m.created_at`

func (s *SQLStore) SaveMessage(msg *models.Message) error {
	images, err := json.Marshal(msg.Images)
	if err != nil {
		return err
	}
	query := s.rebind("INSERT INTO messages (room, sender_id, recipient, body, images, created_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING id")
	return s.db.QueryRow(query, msg.Room, msg.SenderID, msg.To, msg.Text, string(images), msg.Timestamp).Scan(&msg.ID)
}

func (s *SQLStore) GetMessage(id int) (*models.Message, error) {
	query := s.rebind(`
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.id = ?
	`)
	var msg models.Message
	if err := scanMessage(s.db.QueryRow(query, id).Scan, &msg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &msg, nil
}

func (s *SQLStore) UpdateMessage(msg *models.Message) error {
	images, err := json.Marshal(msg.Images)
	if err != nil {
		return err
	}
	query := s.rebind("UPDATE messages SET body = ?, images = ? WHERE id = ?")
	result, err := s.db.Exec(query, msg.Text, string(images), msg.ID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *SQLStore) DeleteMessage(id int) error {
	query := s.rebind("DELETE FROM messages WHERE id = ?")
	result, err := s.db.Exec(query, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

// RecentMessages returns the latest limit messages of a room, oldest first.
func (s *SQLStore) RecentMessages(room string, limit int) ([]models.Message, error) {
	query := s.rebind(`
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.room = ?
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ?
	`)
	messages, err := s.queryMessages(query, room, limit)
	if err != nil {
		return nil, err
	}
	// Query runs newest-first to apply the limit; flip back to oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *SQLStore) RoomMessages(room string) ([]models.Message, error) {
	query := s.rebind(`
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.room = ?
		ORDER BY m.created_at ASC, m.id ASC
	`)
	return s.queryMessages(query, room)
}

func (s *SQLStore) UserMessages(senderID int) ([]models.Message, error) {
	query := s.rebind(`
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.sender_id = ?
		ORDER BY m.created_at DESC, m.id DESC
	`)
	return s.queryMessages(query, senderID)
}

func (s *SQLStore) queryMessages(query string, args ...interface{}) ([]models.Message, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := scanMessage(rows.Scan, &msg); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func scanMessage(scan func(...interface{}) error, msg *models.Message) error {
	var images string
	err := scan(&msg.ID, &msg.Room, &msg.SenderID, &msg.Username, &msg.AvatarURL, &msg.To, &msg.Text, &images, &msg.Timestamp)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(images), &msg.Images)
}
