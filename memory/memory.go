package memory

import (
	"context"
)

// Metadata keys understood by Store filters. Store implementations
// write these keys when persisting a record's metadata.
const (
	FilterUserID    = "user_id"
	FilterChannelID = "channel_id"
	FilterImportant = "is_important"
	FilterEntity    = "entity"
)

// Filter selects records by metadata. A record matches when every
// entry matches; a nil filter matches everything.
type Filter map[string]string

// Store is the vector index backend.
type Store interface {
	// Insert persists a record together with its embedding.
	Insert(ctx context.Context, rec Record, embedding []float32) error

	// Query retrieves up to limit records by vector similarity,
	// optionally restricted by a metadata filter. Results are ordered
	// by similarity, highest first.
	Query(ctx context.Context, embedding []float32, limit int, where Filter) ([]Record, error)

	// Get retrieves records by metadata filter alone; no embedding is
	// required. Results are ordered newest first.
	Get(ctx context.Context, where Filter) ([]Record, error)

	// Close releases resources.
	Close() error
}

// Embedder converts text to vector embeddings. Implementations: mock
// (testing), onnx (real sentence embeddings).
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Completer is the text-completion service: given a prompt, it returns
// text or fails. Used for entity extraction and turn summaries.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Tokenizer encodes and decodes text for token-budget accounting
// during context assembly.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
	CountTokens(text string) int
}
