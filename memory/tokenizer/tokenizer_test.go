package tokenizer

import "testing"

func newTestTokenizer(t *testing.T) *Tiktoken {
	t.Helper()
	tok, err := New("")
	if err != nil {
		// The encoding data is fetched on first use; offline
		// environments can't load it.
		t.Skipf("encoding unavailable: %v", err)
	}
	return tok
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tok := newTestTokenizer(t)

	text := "Relevant information recalled from past conversations."
	tokens := tok.Encode(text)
	if len(tokens) == 0 {
		t.Fatal("encoding produced no tokens")
	}
	if got := tok.Decode(tokens); got != text {
		t.Errorf("round trip = %q, want %q", got, text)
	}
}

func TestTruncatedDecodeIsPrefix(t *testing.T) {
	tok := newTestTokenizer(t)

	text := "- [2026-03-15, Alice]: my birthday is Dec 25 and I like window seats\n"
	tokens := tok.Encode(text)
	if len(tokens) < 4 {
		t.Skip("text too short to truncate")
	}

	cut := tok.Decode(tokens[:len(tokens)/2])
	if len(cut) == 0 || len(cut) >= len(text) {
		t.Errorf("truncated decode length %d out of range (full %d)", len(cut), len(text))
	}
}

func TestCountTokensEmpty(t *testing.T) {
	tok := newTestTokenizer(t)
	if n := tok.CountTokens(""); n != 0 {
		t.Errorf("empty text counted %d tokens", n)
	}
	if got := tok.Decode(nil); got != "" {
		t.Errorf("decode(nil) = %q, want empty", got)
	}
}

func TestUnknownEncoding(t *testing.T) {
	if _, err := New("no-such-encoding"); err == nil {
		t.Error("unknown encoding accepted")
	}
}
