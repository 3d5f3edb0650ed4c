package main

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mzhao/parley/internal/auth"
	"github.com/mzhao/parley/internal/config"
	"github.com/mzhao/parley/internal/handlers"
	"github.com/mzhao/parley/internal/middleware"
	"github.com/mzhao/parley/internal/store/sqlstore"
	"github.com/mzhao/parley/internal/upload"
	"github.com/mzhao/parley/internal/ws"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	store, err := sqlstore.New(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	uploads, err := upload.New(cfg.UploadDir)
	if err != nil {
		log.Fatal(err)
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	// Presence & room coordinator
	hub := ws.NewHub(store)
	go hub.Run()

	authHandler := &handlers.AuthHandler{Store: store, Tokens: tokens, Uploads: uploads}
	messageHandler := &handlers.MessageHandler{Store: store, Uploads: uploads}

	r := mux.NewRouter()
	r.Use(middleware.Logging)
	authed := middleware.Auth(tokens)

	// Auth endpoints
	r.HandleFunc("/api/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.Handle("/api/auth/users", authed(http.HandlerFunc(authHandler.ListUsers))).Methods("GET")
	r.Handle("/api/auth/update", authed(http.HandlerFunc(authHandler.UpdateUser))).Methods("PUT")

	// Message history, edit and delete
	r.Handle("/api/chat/room/{room}", authed(http.HandlerFunc(messageHandler.GetRoomMessages))).Methods("GET")
	r.Handle("/api/chat/user/{userID}", authed(http.HandlerFunc(messageHandler.GetUserMessages))).Methods("GET")
	r.Handle("/api/chat/edit/{messageID}", authed(http.HandlerFunc(messageHandler.EditMessage))).Methods("PUT")
	r.Handle("/api/chat/delete/{messageID}", authed(http.HandlerFunc(messageHandler.DeleteMessage))).Methods("DELETE")

	// WebSocket endpoint; authenticates its own handshake
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(hub, tokens, w, r)
	})

	// Uploaded avatars and message images
	r.PathPrefix("/uploads/").Handler(
		http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploads.Dir()))))

	log.Println("Starting server on", cfg.Addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, r))
}
