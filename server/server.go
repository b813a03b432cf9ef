// Package server exposes the chat engine over a websocket gateway with
// a small command surface for manual memory management.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/mnemosyne-bot/mnemosyne/core"
	"github.com/mnemosyne-bot/mnemosyne/engine"
	"github.com/mnemosyne-bot/mnemosyne/memory"
)

// Config configures the gateway.
type Config struct {
	Engine *engine.Engine
	Memory *memory.Manager
}

// Server is the websocket chat gateway. Clients exchange JSON frames:
// core.IncomingMessage in, core.Reply out.
type Server struct {
	engine   *engine.Engine
	memory   *memory.Manager
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// New creates a server.
func New(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("server: engine is required")
	}
	if cfg.Memory == nil {
		return nil, errors.New("server: memory manager is required")
	}

	s := &Server{
		engine: cfg.Engine,
		memory: cfg.Memory,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)
	s.mux = mux
	return s, nil
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	log.Printf("[SERVER] Listening on %s", addr)
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[SERVER] Upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	log.Printf("[SERVER] Client connected: %s", r.RemoteAddr)

	for {
		var msg core.IncomingMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[SERVER] Read error: %v", err)
			}
			return
		}

		reply := s.dispatch(r.Context(), msg)
		if reply.Content == "" {
			continue
		}
		if err := conn.WriteJSON(reply); err != nil {
			log.Printf("[SERVER] Write error: %v", err)
			return
		}
	}
}

// dispatch routes commands and falls through to the chat engine.
func (s *Server) dispatch(ctx context.Context, msg core.IncomingMessage) core.Reply {
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return core.Reply{}
	}

	switch {
	case strings.HasPrefix(content, rememberCommand):
		return s.handleRemember(ctx, msg, strings.TrimSpace(strings.TrimPrefix(content, rememberCommand)))
	case content == memoriesCommand:
		return s.handleMemories(ctx, msg)
	}

	reply, err := s.engine.Respond(ctx, msg)
	if err != nil {
		log.Printf("[SERVER] Reply generation failed: %v", err)
		return core.Reply{
			ChannelID: msg.ChannelID,
			Content:   "Sorry, something went wrong while generating a reply.",
		}
	}
	return reply
}
