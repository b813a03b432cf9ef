// Package engine runs one conversational turn: retrieve relevant
// memories, build the prompt, call the completion service, and record
// the exchange in the background.
package engine

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mnemosyne-bot/mnemosyne/core"
	"github.com/mnemosyne-bot/mnemosyne/memory"
)

// Config configures the chat engine.
type Config struct {
	// SystemPrompt is the persona preamble. Empty uses
	// DefaultSystemPrompt.
	SystemPrompt string

	// ContextTokens is the token budget for the injected memory block.
	ContextTokens int

	// ResultLimit is the ranked-result budget per retrieval.
	ResultLimit int
}

// Engine answers chat messages with memory augmentation.
type Engine struct {
	completer memory.Completer
	memory    *memory.Manager
	config    Config
}

// New creates an engine. Both collaborators are required.
func New(completer memory.Completer, mgr *memory.Manager, cfg Config) *Engine {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.ContextTokens <= 0 {
		cfg.ContextTokens = 2000
	}
	if cfg.ResultLimit <= 0 {
		cfg.ResultLimit = 5
	}
	return &Engine{
		completer: completer,
		memory:    mgr,
		config:    cfg,
	}
}

// Respond handles one utterance end to end. Memory failures degrade to
// an unaugmented reply; only a completion failure is an error.
func (e *Engine) Respond(ctx context.Context, msg core.IncomingMessage) (core.Reply, error) {
	// PHASE 0: retrieve memories.
	ranked, err := e.memory.RetrieveRelevant(ctx, memory.Query{
		Text:     msg.Content,
		UserID:   msg.Author.UserID,
		UserName: msg.Author.Name,
		Limit:    e.config.ResultLimit,
	})
	if err != nil {
		log.Printf("[ENGINE] Memory retrieval failed: %v", err)
		ranked = nil
	}

	memoryContext, err := e.memory.BuildContext(ranked, msg.Author.UserID, msg.Author.Name, e.config.ContextTokens)
	if err != nil {
		log.Printf("[ENGINE] Context assembly failed: %v", err)
		memoryContext = ""
	}

	text, err := e.completer.Complete(ctx, e.buildPrompt(memoryContext, msg))
	if err != nil {
		return core.Reply{}, fmt.Errorf("generate reply: %w", err)
	}

	// PHASE 1: record the exchange in the background; the reply path
	// never waits on it.
	e.memory.RecordConversationTurn(memory.AuthorInfo{
		UserID:    msg.Author.UserID,
		Name:      msg.Author.Name,
		ChannelID: msg.ChannelID,
	}, msg.Content, text)

	return core.Reply{ChannelID: msg.ChannelID, Content: text}, nil
}

func (e *Engine) buildPrompt(memoryContext string, msg core.IncomingMessage) string {
	var b strings.Builder
	b.WriteString(e.config.SystemPrompt)
	b.WriteString("\n\n")
	if memoryContext != "" {
		b.WriteString(memoryContext)
		b.WriteString("\n")
	}
	b.WriteString("---\n[Current conversation]\n")
	fmt.Fprintf(&b, "User (%s): %s\nYou: ", msg.Author.Name, msg.Content)
	return b.String()
}

// DefaultSystemPrompt is the default chat persona.
const DefaultSystemPrompt = `You are Mnemosyne, a friendly AI chat companion with long-term memory.

You remember past conversations and use them to give personal, contextual replies. When recalled information is provided above the current conversation, weave it in naturally; never recite it verbatim and never mention the memory system itself. If nothing relevant was recalled, just answer normally.`
