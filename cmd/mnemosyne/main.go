// Command mnemosyne runs the memory-augmented chat gateway.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mnemosyne-bot/mnemosyne/completion"
	"github.com/mnemosyne-bot/mnemosyne/engine"
	"github.com/mnemosyne-bot/mnemosyne/memory"
	"github.com/mnemosyne-bot/mnemosyne/memory/store/chromem"
	"github.com/mnemosyne-bot/mnemosyne/memory/tokenizer"
	"github.com/mnemosyne-bot/mnemosyne/server"
)

func main() {
	godotenv.Load()

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		log.Fatal("ANTHROPIC_API_KEY is required")
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	var (
		store *chromem.Store
		err   error
	)
	if path := os.Getenv("MEMORY_DB_PATH"); path != "" {
		store, err = chromem.NewPersistent(path)
	} else {
		store, err = chromem.New()
	}
	if err != nil {
		log.Fatalf("Failed to open memory store: %v", err)
	}

	embedder, err := newEmbedder()
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}

	tok, err := tokenizer.New("")
	if err != nil {
		log.Fatalf("Failed to load tokenizer: %v", err)
	}

	completer := completion.New(completion.Config{
		APIKey: apiKey,
		Model:  os.Getenv("ANTHROPIC_MODEL"),
	})

	mgr := memory.NewManager(store, embedder, completer, tok, nil)

	eng := engine.New(completer, mgr, engine.Config{})

	srv, err := server.New(server.Config{Engine: eng, Memory: mgr})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	log.Printf("Mnemosyne ready")
	log.Printf("  websocket: ws://localhost:%s/ws", port)
	log.Printf("  health:    http://localhost:%s/health", port)
	log.Printf("  commands:  !remember <text>, !memories")

	go func() {
		if err := srv.Run(":" + port); err != nil {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	// Drain background memory tasks before exiting.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Println("Shutting down")
	if err := mgr.Close(); err != nil {
		log.Printf("Memory shutdown: %v", err)
	}
}
