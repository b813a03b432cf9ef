package server

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mnemosyne-bot/mnemosyne/core"
	"github.com/mnemosyne-bot/mnemosyne/memory"
)

const (
	rememberCommand = "!remember"
	memoriesCommand = "!memories"
)

// maxListedMemories caps the !memories listing.
const maxListedMemories = 10

// handleRemember stores user-declared content as an important memory.
func (s *Server) handleRemember(ctx context.Context, msg core.IncomingMessage, content string) core.Reply {
	if content == "" {
		return core.Reply{
			ChannelID: msg.ChannelID,
			Content:   "Tell me what to remember! (e.g. `!remember my birthday is Dec 25`)",
		}
	}

	rec, err := memory.NewRecord(msg.Author.UserID, msg.Author.Name, msg.ChannelID, content, true, nil)
	if err != nil {
		log.Printf("[SERVER] Invalid remember command: %v", err)
		return core.Reply{ChannelID: msg.ChannelID, Content: "I couldn't make sense of that."}
	}
	if err := s.memory.AddMemory(ctx, rec); err != nil {
		log.Printf("[SERVER] Failed to store memory: %v", err)
		return core.Reply{ChannelID: msg.ChannelID, Content: "Sorry, I couldn't save that right now."}
	}

	return core.Reply{
		ChannelID: msg.ChannelID,
		Content:   fmt.Sprintf("Got it. I'll remember: %q", content),
	}
}

// handleMemories lists the caller's important memories, newest first.
func (s *Server) handleMemories(ctx context.Context, msg core.IncomingMessage) core.Reply {
	recs, err := s.memory.ImportantMemories(ctx, msg.Author.UserID)
	if err != nil {
		log.Printf("[SERVER] Failed to list memories: %v", err)
		return core.Reply{ChannelID: msg.ChannelID, Content: "Sorry, I couldn't look that up right now."}
	}
	if len(recs) == 0 {
		return core.Reply{
			ChannelID: msg.ChannelID,
			Content:   "I don't have any special memories about you yet.",
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here's what I'm keeping in mind about you, %s:\n", msg.Author.Name)
	for i, rec := range recs {
		if i == maxListedMemories {
			break
		}
		fmt.Fprintf(&b, "- [%s] %s\n", rec.Timestamp.Format("2006-01-02"), rec.Content)
	}
	return core.Reply{ChannelID: msg.ChannelID, Content: b.String()}
}
