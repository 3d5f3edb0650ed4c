package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mzhao/parley/internal/auth"
	"github.com/mzhao/parley/internal/middleware"
	"github.com/mzhao/parley/internal/models"
	"github.com/mzhao/parley/internal/store"
	"github.com/mzhao/parley/internal/upload"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	Store   store.Store
	Tokens  *auth.Tokens
	Uploads *upload.Store
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

const maxUploadBytes = 10 << 20

// Register creates an account from a multipart form (username, email,
// password, optional avatar image) and returns a bearer token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	username := r.FormValue("username")
	email := r.FormValue("email")
	password := r.FormValue("password")
	if username == "" || email == "" || password == "" {
		http.Error(w, "username, email and password are required", http.StatusBadRequest)
		return
	}

	if taken, err := h.identityTaken(username, email, 0); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	} else if taken {
		http.Error(w, "Username or email already exists", http.StatusConflict)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: string(hashedPassword),
	}

	if file, fh, err := r.FormFile("avatar"); err == nil {
		file.Close()
		path, err := h.Uploads.Save(fh)
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		user.AvatarURL = path
	}

	if err := h.Store.CreateUser(user); err != nil {
		http.Error(w, "Username or email already exists", http.StatusConflict)
		return
	}

	token, err := h.Tokens.Sign(user.ID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(authResponse{Token: token, User: user})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.Store.GetUserByEmail(creds.Email)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(creds.Password)); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.Tokens.Sign(user.ID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(authResponse{Token: token, User: user})
}

func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	json.NewEncoder(w).Encode(users)
}

// UpdateUser changes the caller's username, email, password and/or avatar.
// All fields are optional; uniqueness is re-checked against other accounts.
func (h *AuthHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.Store.GetUserByID(userID)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	username := r.FormValue("username")
	email := r.FormValue("email")

	if taken, err := h.identityTaken(username, email, userID); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	} else if taken {
		http.Error(w, "Username or email already exists", http.StatusConflict)
		return
	}

	if username != "" {
		user.Username = username
	}
	if email != "" {
		user.Email = email
	}
	if password := r.FormValue("password"); password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		user.Password = string(hashed)
	}

	if file, fh, err := r.FormFile("avatar"); err == nil {
		file.Close()
		path, err := h.Uploads.Save(fh)
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if user.AvatarURL != "" {
			h.Uploads.Remove([]string{user.AvatarURL})
		}
		user.AvatarURL = path
	}

	if err := h.Store.UpdateUser(user); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(user)
}

// identityTaken reports whether username or email belongs to an account other
// than excludeID. Empty values are skipped.
func (h *AuthHandler) identityTaken(username, email string, excludeID int) (bool, error) {
	if username != "" {
		existing, err := h.Store.GetUserByUsername(username)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return false, err
		}
		if existing != nil && existing.ID != excludeID {
			return true, nil
		}
	}
	if email != "" {
		existing, err := h.Store.GetUserByEmail(email)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return false, err
		}
		if existing != nil && existing.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}
