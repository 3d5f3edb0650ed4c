package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/mzhao/parley/internal/middleware"
	"github.com/mzhao/parley/internal/models"
	"github.com/mzhao/parley/internal/store"
	"github.com/mzhao/parley/internal/upload"
)

type MessageHandler struct {
	Store   store.Store
	Uploads *upload.Store
}

// GetRoomMessages returns a room's full history, oldest first.
func (h *MessageHandler) GetRoomMessages(w http.ResponseWriter, r *http.Request) {
	room := mux.Vars(r)["room"]

	messages, err := h.Store.RoomMessages(room)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	json.NewEncoder(w).Encode(messages)
}

// GetUserMessages returns everything a user has sent, newest first.
func (h *MessageHandler) GetUserMessages(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(mux.Vars(r)["userID"])
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	messages, err := h.Store.UserMessages(userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	json.NewEncoder(w).Encode(messages)
}

// EditMessage updates a message's text and/or replaces its image list.
// Only the original sender may edit. The form may carry new image files
// ("images") and a clearImages flag that deletes the stored ones first.
func (h *MessageHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	msg, ok := h.ownedMessage(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if text := r.FormValue("text"); text != "" {
		msg.Text = text
	}

	if r.FormValue("clearImages") == "true" {
		h.Uploads.Remove(msg.Images)
		msg.Images = nil
	}

	if r.MultipartForm != nil {
		if files := r.MultipartForm.File["images"]; len(files) > 0 {
			paths, err := h.Uploads.SaveAll(files)
			if err != nil {
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			msg.Images = append(msg.Images, paths...)
		}
	}

	if err := h.Store.UpdateMessage(msg); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(msg)
}

// DeleteMessage hard-removes a message. Only the original sender may delete.
func (h *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	msg, ok := h.ownedMessage(w, r)
	if !ok {
		return
	}

	if err := h.Store.DeleteMessage(msg.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Message not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(msg)
}

// ownedMessage loads the message from the route and checks the caller is its
// sender, writing the error response itself when not.
func (h *MessageHandler) ownedMessage(w http.ResponseWriter, r *http.Request) (*models.Message, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	messageID, err := strconv.Atoi(mux.Vars(r)["messageID"])
	if err != nil {
		http.Error(w, "invalid message id", http.StatusBadRequest)
		return nil, false
	}

	msg, err := h.Store.GetMessage(messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Message not found", http.StatusNotFound)
			return nil, false
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}

	if msg.SenderID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return nil, false
	}
	return msg, true
}
