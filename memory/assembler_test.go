package memory

import (
	"strings"
	"testing"
	"time"
)

// runeTokenizer treats every rune as one token so truncation points are
// exact and easy to reason about.
type runeTokenizer struct{}

func (runeTokenizer) Encode(text string) []int {
	runes := []rune(text)
	tokens := make([]int, len(runes))
	for i, r := range runes {
		tokens[i] = int(r)
	}
	return tokens
}

func (runeTokenizer) Decode(tokens []int) string {
	runes := make([]rune, len(tokens))
	for i, tok := range tokens {
		runes[i] = rune(tok)
	}
	return string(runes)
}

func (t runeTokenizer) CountTokens(text string) int { return len(t.Encode(text)) }

func TestBuildContextEmptyInput(t *testing.T) {
	got, err := buildContext(runeTokenizer{}, nil, "uid-1", "Alice", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("empty input produced %q, want empty string (no lone header)", got)
	}
}

func TestBuildContextFormat(t *testing.T) {
	ts := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	records := []Record{
		{ID: "1", UserID: "uid-bob", AuthorName: "Bob", Timestamp: ts, Content: "Bob likes jazz"},
	}

	got, err := buildContext(runeTokenizer{}, records, "uid-alice", "Alice", 10000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, contextHeader) {
		t.Errorf("context missing header, got %q", got)
	}
	want := "- [2026-03-15, Bob]: Bob likes jazz\n"
	if !strings.Contains(got, want) {
		t.Errorf("context missing line %q, got %q", want, got)
	}
}

func TestBuildContextSelfAttribution(t *testing.T) {
	ts := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"plain self", "my birthday is Dec 25", "- [2026-03-15, your own past self]: my birthday is Dec 25"},
		{"name in content", "Alice prefers window seats", "- [2026-03-15, your own past self (Alice)]: Alice prefers window seats"},
		{"case mismatch stays plain", "alice prefers window seats", "- [2026-03-15, your own past self]: alice prefers window seats"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := []Record{
				{ID: "1", UserID: "uid-alice", AuthorName: "Alice", Timestamp: ts, Content: tt.content},
			}
			got, err := buildContext(runeTokenizer{}, records, "uid-alice", "Alice", 10000)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("context = %q, want line %q", got, tt.want)
			}
		})
	}
}

func TestBuildContextHardTruncation(t *testing.T) {
	ts := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	records := []Record{
		{ID: "1", UserID: "uid-bob", AuthorName: "Bob", Timestamp: ts, Content: strings.Repeat("x", 500)},
	}

	tok := runeTokenizer{}
	const maxTokens = 80
	got, err := buildContext(tok, records, "uid-alice", "Alice", maxTokens)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := tok.CountTokens(got); n != maxTokens {
		t.Errorf("truncated context is %d tokens, want exactly %d", n, maxTokens)
	}
	full, _ := buildContext(tok, records, "uid-alice", "Alice", 100000)
	if !strings.HasPrefix(full, got) {
		t.Error("truncated context is not a prefix of the full context")
	}
}

func TestBuildContextUnderBudgetIsUntouched(t *testing.T) {
	ts := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	records := []Record{
		{ID: "1", UserID: "uid-bob", AuthorName: "Bob", Timestamp: ts, Content: "short"},
	}

	got, err := buildContext(runeTokenizer{}, records, "uid-alice", "Alice", 100000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(got, "short\n") {
		t.Errorf("context under budget was altered: %q", got)
	}
}

func TestBuildContextRejectsNonPositiveBudget(t *testing.T) {
	records := []Record{{ID: "1", Content: "x", Timestamp: time.Now()}}
	for _, maxTokens := range []int{0, -1} {
		if _, err := buildContext(runeTokenizer{}, records, "u", "n", maxTokens); err == nil {
			t.Errorf("maxTokens = %d accepted, want error", maxTokens)
		}
	}
}
