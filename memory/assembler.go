package memory

import (
	"fmt"
	"strings"
)

// contextHeader opens every assembled memory block.
const contextHeader = "Relevant information recalled from past conversations (use it to inform your reply):\n\n"

// selfAttribution labels records the current user authored themself.
const selfAttribution = "your own past self"

// buildContext renders ranked records into one token-bounded text
// block, most relevant first. Empty input yields the empty string so
// the caller can omit the memory section entirely; the header never
// appears alone. When the block exceeds maxTokens it is cut at exactly
// maxTokens tokens and re-materialized, mid-line if need be.
func buildContext(tok Tokenizer, records []Record, userID, userName string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		return "", fmt.Errorf("memory: maxTokens must be positive, got %d", maxTokens)
	}
	if len(records) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString(contextHeader)
	for _, rec := range records {
		fmt.Fprintf(&b, "- [%s, %s]: %s\n",
			rec.Timestamp.Format("2006-01-02"),
			attribution(rec, userID, userName),
			rec.Content)
	}

	text := b.String()
	tokens := tok.Encode(text)
	if len(tokens) <= maxTokens {
		return text, nil
	}
	return tok.Decode(tokens[:maxTokens]), nil
}

// attribution names the source of a record. Records authored by the
// current user are attributed to their past self; when the user's
// display name also appears inside the content, the name is kept
// alongside to disambiguate self-references across time. Name matching
// is case-sensitive.
func attribution(rec Record, userID, userName string) string {
	if rec.UserID != userID {
		return rec.AuthorName
	}
	if userName != "" && strings.Contains(rec.Content, userName) {
		return fmt.Sprintf("%s (%s)", selfAttribution, userName)
	}
	return selfAttribution
}
