package memory_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mnemosyne-bot/mnemosyne/memory"
	"github.com/mnemosyne-bot/mnemosyne/memory/embedder/mock"
	"github.com/mnemosyne-bot/mnemosyne/memory/store/chromem"
)

type stubCompleter struct {
	reply string
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return s.reply, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embedding service down")
}

func (failingEmbedder) Dimensions() int { return 384 }

// charTokenizer counts one token per rune.
type charTokenizer struct{}

func (charTokenizer) Encode(text string) []int {
	runes := []rune(text)
	tokens := make([]int, len(runes))
	for i, r := range runes {
		tokens[i] = int(r)
	}
	return tokens
}

func (charTokenizer) Decode(tokens []int) string {
	runes := make([]rune, len(tokens))
	for i, tok := range tokens {
		runes[i] = rune(tok)
	}
	return string(runes)
}

func (t charTokenizer) CountTokens(text string) int { return len(t.Encode(text)) }

func newTestManager(t *testing.T) (*memory.Manager, *chromem.Store) {
	t.Helper()
	store, err := chromem.New()
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	mgr := memory.NewManager(store, mock.New(0), &stubCompleter{reply: "NONE"}, charTokenizer{}, nil)
	t.Cleanup(func() { mgr.Close() })
	return mgr, store
}

func mustAdd(t *testing.T, mgr *memory.Manager, userID, author, content string, important bool) memory.Record {
	t.Helper()
	rec, err := memory.NewRecord(userID, author, "ch-1", content, important, nil)
	if err != nil {
		t.Fatalf("new record: %v", err)
	}
	if err := mgr.AddMemory(context.Background(), rec); err != nil {
		t.Fatalf("add memory: %v", err)
	}
	return rec
}

func TestRetrieveRelevantSelfReference(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	birthday := mustAdd(t, mgr, "uid-alice", "Alice", "my birthday is Dec 25", false)
	mustAdd(t, mgr, "uid-bob", "Bob", "Bob likes jazz", false)
	mustAdd(t, mgr, "uid-bob", "Bob", "the weather was nice today", false)

	ranked, err := mgr.RetrieveRelevant(ctx, memory.Query{
		Text:     "When is my birthday?",
		UserID:   "uid-alice",
		UserName: "Alice",
		Limit:    5,
	})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(ranked) == 0 {
		t.Fatal("self-referential query returned no records")
	}
	if ranked[0].ID != birthday.ID {
		t.Errorf("top record = %s (%q), want the user's own birthday record", ranked[0].ID, ranked[0].Content)
	}
	for _, rec := range ranked {
		if rec.AuthorName != "Alice" {
			t.Errorf("record %q by %s surfaced without any evidence", rec.Content, rec.AuthorName)
		}
	}

	contextText, err := mgr.BuildContext(ranked, "uid-alice", "Alice", 0)
	if err != nil {
		t.Fatalf("build context: %v", err)
	}
	if !strings.Contains(contextText, "your own past self") {
		t.Errorf("context missing self attribution:\n%s", contextText)
	}
	if !strings.Contains(contextText, "my birthday is Dec 25") {
		t.Errorf("context missing recalled content:\n%s", contextText)
	}
}

func TestRetrieveRelevantNoEvidence(t *testing.T) {
	mgr, _ := newTestManager(t)

	mustAdd(t, mgr, "uid-bob", "Bob", "Bob likes jazz", false)

	ranked, err := mgr.RetrieveRelevant(context.Background(), memory.Query{
		Text:     "The sky is blue",
		UserID:   "uid-carol",
		UserName: "Carol",
		Limit:    5,
	})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(ranked) != 0 {
		t.Errorf("query with no evidence returned %d records, want 0", len(ranked))
	}
}

func TestRetrieveRelevantDeduplicatesSources(t *testing.T) {
	mgr, _ := newTestManager(t)

	// One important self-authored record reaches the pipeline three
	// times: metadata scan, author-scoped search, global search.
	rec := mustAdd(t, mgr, "uid-alice", "Alice", "I am allergic to peanuts", true)

	ranked, err := mgr.RetrieveRelevant(context.Background(), memory.Query{
		Text:     "what am I allergic to?",
		UserID:   "uid-alice",
		UserName: "Alice",
		Limit:    5,
	})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	count := 0
	for _, r := range ranked {
		if r.ID == rec.ID {
			count++
		}
	}
	if count != 1 {
		t.Errorf("record appears %d times in ranked result, want 1", count)
	}
}

func TestRetrieveRelevantSurvivesEmbeddingOutage(t *testing.T) {
	store, err := chromem.New()
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	// Seed through a healthy manager, then retrieve through one whose
	// embedder is down.
	seed := memory.NewManager(store, mock.New(0), &stubCompleter{reply: "NONE"}, charTokenizer{}, nil)
	important := mustAdd(t, seed, "uid-alice", "Alice", "my passport expires in June", true)
	mustAdd(t, seed, "uid-alice", "Alice", "ordinary chatter", false)

	broken := memory.NewManager(store, failingEmbedder{}, &stubCompleter{reply: "NONE"}, charTokenizer{}, nil)
	defer broken.Close()

	ranked, err := broken.RetrieveRelevant(context.Background(), memory.Query{
		Text:     "when does my passport expire?",
		UserID:   "uid-alice",
		UserName: "Alice",
		Limit:    5,
	})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	found := false
	for _, r := range ranked {
		if r.ID == important.ID {
			found = true
		}
	}
	if !found {
		t.Error("important record not surfaced while embeddings were down")
	}
}

func TestRetrieveRelevantRejectsNegativeLimit(t *testing.T) {
	mgr, _ := newTestManager(t)
	if _, err := mgr.RetrieveRelevant(context.Background(), memory.Query{Text: "hi", Limit: -1}); err == nil {
		t.Error("negative limit accepted, want error")
	}
}

func TestAddMemorySkipsOnEmbeddingFailure(t *testing.T) {
	store, err := chromem.New()
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	mgr := memory.NewManager(store, failingEmbedder{}, nil, charTokenizer{}, nil)
	defer mgr.Close()

	rec, _ := memory.NewRecord("uid-1", "Alice", "ch-1", "some fact", false, nil)
	if err := mgr.AddMemory(context.Background(), rec); err != nil {
		t.Fatalf("embedding failure should be a no-op, got error: %v", err)
	}
	if n := store.Count(); n != 0 {
		t.Errorf("store holds %d records after failed embedding, want 0", n)
	}
}

func TestAddMemoryRejectsEmptyContent(t *testing.T) {
	mgr, _ := newTestManager(t)
	rec := memory.Record{ID: "bad", Content: "   "}
	if err := mgr.AddMemory(context.Background(), rec); err == nil {
		t.Error("empty content accepted, want error")
	}
}

func TestRecordConversationTurn(t *testing.T) {
	store, err := chromem.New()
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	mgr := memory.NewManager(store, mock.New(0), &stubCompleter{reply: "NONE"}, charTokenizer{}, nil)

	mgr.RecordConversationTurn(memory.AuthorInfo{
		UserID:    "uid-alice",
		Name:      "Alice",
		ChannelID: "ch-1",
	}, "I adopted a cat named Mimi", "That's wonderful!")

	// Close drains the background pool.
	if err := mgr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	recs, err := store.Get(context.Background(), memory.Filter{memory.FilterUserID: "uid-alice"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("stored %d records, want 1", len(recs))
	}
	got := recs[0].Content
	if !strings.Contains(got, `"Alice"`) || !strings.Contains(got, "Mimi") || !strings.Contains(got, "wonderful") {
		t.Errorf("turn content = %q, want both sides of the exchange", got)
	}
	if recs[0].IsImportant {
		t.Error("auto-recorded turn marked important")
	}
}

func TestRecordConversationTurnSkipsEmptyExchange(t *testing.T) {
	store, err := chromem.New()
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	mgr := memory.NewManager(store, mock.New(0), nil, charTokenizer{}, nil)

	mgr.RecordConversationTurn(memory.AuthorInfo{UserID: "uid-1", Name: "Alice"}, "  ", "")
	mgr.Close()

	if n := store.Count(); n != 0 {
		t.Errorf("empty exchange stored %d records, want 0", n)
	}
}

func TestImportantMemoriesNewestFirst(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	first := mustAdd(t, mgr, "uid-alice", "Alice", "fact one", true)
	second := mustAdd(t, mgr, "uid-alice", "Alice", "fact two", true)
	mustAdd(t, mgr, "uid-alice", "Alice", "not important", false)
	mustAdd(t, mgr, "uid-bob", "Bob", "someone else's fact", true)

	recs, err := mgr.ImportantMemories(ctx, "uid-alice")
	if err != nil {
		t.Fatalf("important memories: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].Timestamp.Before(recs[1].Timestamp) {
		t.Errorf("records not newest first: %v then %v", recs[0].Timestamp, recs[1].Timestamp)
	}
	ids := map[string]bool{recs[0].ID: true, recs[1].ID: true}
	if !ids[first.ID] || !ids[second.ID] {
		t.Errorf("wrong records returned: %v", ids)
	}
}
