package sqlstore

import (
	"errors"
	"testing"

	"github.com/mzhao/parley/internal/models"
	"github.com/mzhao/parley/internal/store"
)

func TestCreateAndGetUser(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	user := &models.User{
		Username:  "alice",
		Email:     "alice@example.com",
		Password:  "hashed",
		AvatarURL: "/uploads/alice.png",
	}
	if err := testStore.CreateUser(user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	if user.ID == 0 {
		t.Error("Expected non-zero user ID")
	}

	got, err := testStore.GetUserByUsername("alice")
	if err != nil {
		t.Fatalf("GetUserByUsername failed: %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("Expected email 'alice@example.com', got '%s'", got.Email)
	}
	if got.AvatarURL != "/uploads/alice.png" {
		t.Errorf("Expected avatar '/uploads/alice.png', got '%s'", got.AvatarURL)
	}

	byEmail, err := testStore.GetUserByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("Expected ID %d, got %d", user.ID, byEmail.ID)
	}

	byID, err := testStore.GetUserByID(user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if byID.Username != "alice" {
		t.Errorf("Expected username 'alice', got '%s'", byID.Username)
	}
}

func TestGetUserNotFound(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	_, err := testStore.GetUserByUsername("nobody")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	createTestUser(t, "bob")

	dup := &models.User{Username: "bob", Email: "other@example.com", Password: "pass"}
	if err := testStore.CreateUser(dup); err == nil {
		t.Error("Expected error for duplicate username")
	}
}

func TestUpdateUser(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	user := createTestUser(t, "carol")
	user.Username = "caroline"
	user.AvatarURL = "/uploads/new.png"

	if err := testStore.UpdateUser(user); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}

	got, err := testStore.GetUserByID(user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if got.Username != "caroline" {
		t.Errorf("Expected username 'caroline', got '%s'", got.Username)
	}
	if got.AvatarURL != "/uploads/new.png" {
		t.Errorf("Expected updated avatar, got '%s'", got.AvatarURL)
	}
}

func TestListUsers(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	createTestUser(t, "zed")
	createTestUser(t, "amy")

	users, err := testStore.ListUsers()
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("Expected 2 users, got %d", len(users))
	}
	if users[0].Username != "amy" {
		t.Errorf("Expected users ordered by name, got '%s' first", users[0].Username)
	}
}
