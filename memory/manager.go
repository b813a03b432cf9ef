package memory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// Query is the ephemeral context for one retrieval: the current
// utterance, who is asking, and the result-count budget.
type Query struct {
	// Text is the current utterance.
	Text string

	// UserID and UserName identify the requesting user. UserName is
	// the display name used for self-authorship scoring.
	UserID   string
	UserName string

	// Limit is the result-count budget for the ranked list. Zero means
	// the Manager's configured default; negative is a caller bug.
	Limit int
}

// AuthorInfo identifies the author of a conversation turn.
type AuthorInfo struct {
	UserID    string
	Name      string
	ChannelID string
}

// Config holds Manager configuration.
type Config struct {
	// ResultLimit is the ranked-result budget used when a query does
	// not set one.
	ResultLimit int

	// ContextTokens is the default token budget for assembled context.
	ContextTokens int

	// CallTimeout bounds every external-service call issued by the
	// pipeline (embedding, completion, vector queries).
	CallTimeout time.Duration

	// Summarize condenses conversation turns through the completion
	// service before storage instead of storing the literal exchange.
	Summarize bool

	// Workers and TaskQueue size the background extraction pool.
	Workers   int
	TaskQueue int
}

// DefaultConfig returns sensible defaults for local use.
var DefaultConfig = &Config{
	ResultLimit:   5,
	ContextTokens: 2000,
	CallTimeout:   15 * time.Second,
	Summarize:     false,
	Workers:       2,
	TaskQueue:     64,
}

const summaryPromptTemplate = `Summarize the following exchange in one or two sentences, keeping the important facts: names, activities, preferences, and anything stated as true. Write the summary so it stands on its own.

%s`

// Manager orchestrates the retrieval pipeline and memory recording.
// Construct one at process startup and pass it to every
// request-handling path; it holds no global state.
type Manager struct {
	store     Store
	embedder  Embedder
	completer Completer
	extractor *Extractor
	tokenizer Tokenizer
	config    *Config
	tasks     *taskPool
}

// NewManager creates a Manager. Store, embedder, and tokenizer are
// required; completer may be nil, which disables entity extraction and
// summaries (retrieval then runs on semantic and self-reference
// evidence only).
func NewManager(store Store, embedder Embedder, completer Completer, tokenizer Tokenizer, config *Config) *Manager {
	if config == nil {
		config = DefaultConfig
	}
	cfg := *config
	if cfg.ResultLimit <= 0 {
		cfg.ResultLimit = DefaultConfig.ResultLimit
	}
	if cfg.ContextTokens <= 0 {
		cfg.ContextTokens = DefaultConfig.ContextTokens
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig.Workers
	}
	if cfg.TaskQueue <= 0 {
		cfg.TaskQueue = DefaultConfig.TaskQueue
	}

	return &Manager{
		store:     store,
		embedder:  embedder,
		completer: completer,
		extractor: NewExtractor(completer),
		tokenizer: tokenizer,
		config:    &cfg,
		tasks:     newTaskPool(cfg.Workers, cfg.TaskQueue),
	}
}

// AddMemory embeds and persists a record. An embedding failure makes
// the call a logged no-op: the record is dropped rather than the
// caller's flow interrupted.
func (m *Manager) AddMemory(ctx context.Context, rec Record) error {
	if strings.TrimSpace(rec.Content) == "" {
		return fmt.Errorf("memory: refusing to store record %s with empty content", rec.ID)
	}

	ectx, cancel := m.callBound(ctx)
	embedding, err := m.embedder.Embed(ectx, rec.Content)
	cancel()
	if err != nil {
		log.Printf("[MEMORY] Embedding failed for record %s, not stored: %v", rec.ID, err)
		return nil
	}

	sctx, cancel := m.callBound(ctx)
	defer cancel()
	if err := m.store.Insert(sctx, rec, embedding); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	log.Printf("[MEMORY] Stored record %s (author=%s, important=%t)", rec.ID, rec.AuthorName, rec.IsImportant)
	return nil
}

// RetrieveRelevant runs the full pipeline for one utterance: entity
// extraction, candidate retrieval, scoring, dedup, and ranking. The
// pipeline always completes; failed evidence sources degrade to empty
// and an empty result is a normal, frequent outcome.
func (m *Manager) RetrieveRelevant(ctx context.Context, q Query) ([]Record, error) {
	if q.Limit == 0 {
		q.Limit = m.config.ResultLimit
	}
	if q.Limit < 0 {
		return nil, fmt.Errorf("memory: result limit must be positive, got %d", q.Limit)
	}

	entities := m.queryEntities(ctx, q)
	candidates := m.retrieveCandidates(ctx, q)
	if len(candidates) == 0 {
		log.Printf("[MEMORY] No candidates for query %q", truncateLog(q.Text, 50))
		return nil, nil
	}

	scored := make([]scoredRecord, len(candidates))
	for i, rec := range candidates {
		scored[i] = scoredRecord{rec: rec, score: scoreRecord(rec, q, entities)}
	}

	ranked := rank(scored, q.Limit)
	log.Printf("[MEMORY] Ranked %d of %d candidates for query %q",
		len(ranked), len(candidates), truncateLog(q.Text, 50))
	return ranked, nil
}

// BuildContext renders a ranked list into a single token-bounded text
// block for prompt injection. An empty list yields the empty string,
// signalling the caller to omit the memory section entirely. A zero
// maxTokens means the configured default; negative is a caller bug.
func (m *Manager) BuildContext(records []Record, currentUserID, currentUserName string, maxTokens int) (string, error) {
	if maxTokens == 0 {
		maxTokens = m.config.ContextTokens
	}
	return buildContext(m.tokenizer, records, currentUserID, currentUserName, maxTokens)
}

// RecordConversationTurn stores the exchange as a new memory in the
// background and returns immediately. Extraction and storage failures
// are logged and never affect the reply already sent to the user.
func (m *Manager) RecordConversationTurn(author AuthorInfo, userQuery, assistantReply string) {
	if strings.TrimSpace(userQuery) == "" && strings.TrimSpace(assistantReply) == "" {
		return
	}
	m.tasks.submit(func(ctx context.Context) {
		m.recordTurn(ctx, author, userQuery, assistantReply)
	})
}

// ImportantMemories returns the user's declared-important records,
// most recent first.
func (m *Manager) ImportantMemories(ctx context.Context, userID string) ([]Record, error) {
	gctx, cancel := m.callBound(ctx)
	defer cancel()

	recs, err := m.store.Get(gctx, Filter{
		FilterUserID:    userID,
		FilterImportant: "true",
	})
	if err != nil {
		return nil, fmt.Errorf("important-record scan: %w", err)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Timestamp.After(recs[j].Timestamp)
	})
	return recs, nil
}

// Close drains background tasks and releases the store.
func (m *Manager) Close() error {
	m.tasks.close()
	return m.store.Close()
}

func (m *Manager) recordTurn(ctx context.Context, author AuthorInfo, userQuery, assistantReply string) {
	content := fmt.Sprintf("User %q said %q and I replied %q.", author.Name, userQuery, assistantReply)

	if m.config.Summarize && m.completer != nil {
		sctx, cancel := m.callBound(ctx)
		summary, err := m.completer.Complete(sctx, fmt.Sprintf(summaryPromptTemplate, content))
		cancel()
		if err != nil {
			log.Printf("[MEMORY] Turn summary failed, storing literal exchange: %v", err)
		} else if s := strings.TrimSpace(summary); s != "" {
			content = s
		}
	}

	ectx, cancel := m.callBound(ctx)
	entities := m.extractor.Extract(ectx, userQuery, author.Name)
	cancel()

	rec, err := NewRecord(author.UserID, author.Name, author.ChannelID, content, false, entities)
	if err != nil {
		log.Printf("[MEMORY] Dropping conversation turn: %v", err)
		return
	}
	if err := m.AddMemory(ctx, rec); err != nil {
		log.Printf("[MEMORY] Failed to store conversation turn: %v", err)
	}
}

// callBound applies the configured timeout to one external call.
func (m *Manager) callBound(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.config.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.config.CallTimeout)
}

// truncateLog truncates text for logging.
func truncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
