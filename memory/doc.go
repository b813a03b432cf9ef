// Package memory implements the retrieval and ranking engine for
// conversational memory.
//
// The engine stores short natural-language memory records with vector
// embeddings and, for each incoming utterance, retrieves and ranks the
// prior records most relevant to answering it, then assembles them into
// a token-bounded context block for a downstream language model.
//
// Architecture:
//   - Store: vector storage backend (chromem-go)
//   - Embedder: text-to-vector conversion (mock for tests, ONNX for real runs)
//   - Completer: text-completion service used for entity extraction and summaries
//   - Tokenizer: token counting and hard truncation for context assembly
//   - Manager: orchestrates retrieval, scoring, ranking, assembly, and recording
//
// Retrieval pipeline, per utterance:
//   - extract query entities, plus a first-person self-reference heuristic
//   - author-scoped and global nearest-neighbor search, important-record scan
//   - additive evidence scoring with a bounded recency tiebreaker
//   - dedup, stable rank, truncate to the result budget
//   - render the ranked list into one token-capped context block
//
// Every external call is an independent evidence source: if it fails,
// the pipeline degrades to the sources that succeeded and still returns
// a (possibly empty) result. An empty result is a normal outcome, not
// an error.
package memory
