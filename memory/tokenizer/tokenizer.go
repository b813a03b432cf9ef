// Package tokenizer provides the token accounting capability used for
// context assembly, backed by tiktoken's BPE encodings.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the standard encoding used by GPT-3.5/4 models;
// the token budgets in this system are calibrated against it.
const DefaultEncoding = "cl100k_base"

// Tiktoken wraps one tiktoken encoding.
type Tiktoken struct {
	encoding *tiktoken.Tiktoken
}

// New loads the named encoding; empty means DefaultEncoding.
func New(encodingName string) (*Tiktoken, error) {
	if encodingName == "" {
		encodingName = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encodingName, err)
	}
	return &Tiktoken{encoding: enc}, nil
}

// Encode converts text to token IDs.
func (t *Tiktoken) Encode(text string) []int {
	if text == "" {
		return nil
	}
	return t.encoding.Encode(text, nil, nil)
}

// Decode re-materializes token IDs as text.
func (t *Tiktoken) Decode(tokens []int) string {
	if len(tokens) == 0 {
		return ""
	}
	return t.encoding.Decode(tokens)
}

// CountTokens returns the token count of a single text.
func (t *Tiktoken) CountTokens(text string) int {
	return len(t.Encode(text))
}
