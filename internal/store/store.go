package store

import (
	"errors"

	"github.com/mzhao/parley/internal/models"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

type Store interface {
	// User operations
	CreateUser(user *models.User) error
	GetUserByUsername(username string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id int) (*models.User, error)
	UpdateUser(user *models.User) error
	ListUsers() ([]models.User, error)

	// Message operations
	SaveMessage(msg *models.Message) error
	GetMessage(id int) (*models.Message, error)
	UpdateMessage(msg *models.Message) error
	DeleteMessage(id int) error
	RecentMessages(room string, limit int) ([]models.Message, error)
	RoomMessages(room string) ([]models.Message, error)
	UserMessages(senderID int) ([]models.Message, error)
}
