package memory

import (
	"context"
	"log"
	"strings"
	"sync"
	"unicode"
)

// selfReferenceTokens is the first-person pronoun class that signals
// the user is asking about themself.
var selfReferenceTokens = map[string]struct{}{
	"i":      {},
	"me":     {},
	"my":     {},
	"mine":   {},
	"myself": {},
}

// queryEntities builds the symbolic query set: entities extracted from
// the utterance, plus the requesting user's display name when the
// utterance is self-referential.
func (m *Manager) queryEntities(ctx context.Context, q Query) []string {
	ectx, cancel := m.callBound(ctx)
	defer cancel()

	entities := m.extractor.Extract(ectx, q.Text, q.UserName)
	if q.UserName != "" && isSelfReferential(q.Text) && !containsEntity(entities, q.UserName) {
		entities = append(entities, q.UserName)
	}
	return entities
}

// isSelfReferential reports whether text contains a first-person
// token. Contractions count: "I'm" splits to "i" + "m".
func isSelfReferential(text string) bool {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, field := range fields {
		if _, ok := selfReferenceTokens[field]; ok {
			return true
		}
	}
	return false
}

// retrieveCandidates gathers the raw candidate set from every source.
// Each source fails independently: an error is logged and that source
// contributes nothing. Duplicate IDs across sources are expected and
// resolved by rank, not here; the retriever's job is recall, not
// precision.
func (m *Manager) retrieveCandidates(ctx context.Context, q Query) []Record {
	var candidates []Record

	// Symbolic source: the user's declared-important records, reached
	// by metadata alone so they survive an embedding outage.
	gctx, cancel := m.callBound(ctx)
	important, err := m.store.Get(gctx, Filter{
		FilterUserID:    q.UserID,
		FilterImportant: "true",
	})
	cancel()
	if err != nil {
		log.Printf("[MEMORY] Important-record scan failed: %v", err)
		important = nil
	}
	candidates = append(candidates, important...)

	ectx, cancel := m.callBound(ctx)
	embedding, err := m.embedder.Embed(ectx, q.Text)
	cancel()
	if err != nil {
		log.Printf("[MEMORY] Query embedding failed, skipping semantic retrieval: %v", err)
		return candidates
	}

	// Oversized batches leave headroom for scoring and dedup.
	batch := 2 * q.Limit

	// The author-scoped and global searches have no data dependency on
	// each other and run concurrently.
	var wg sync.WaitGroup
	var scoped, global []Record
	wg.Add(2)
	go func() {
		defer wg.Done()
		qctx, cancel := m.callBound(ctx)
		defer cancel()
		recs, err := m.store.Query(qctx, embedding, batch, Filter{FilterUserID: q.UserID})
		if err != nil {
			log.Printf("[MEMORY] Author-scoped vector search failed: %v", err)
			return
		}
		scoped = recs
	}()
	go func() {
		defer wg.Done()
		qctx, cancel := m.callBound(ctx)
		defer cancel()
		recs, err := m.store.Query(qctx, embedding, batch, nil)
		if err != nil {
			log.Printf("[MEMORY] Global vector search failed: %v", err)
			return
		}
		global = recs
	}()
	wg.Wait()

	candidates = append(candidates, scoped...)
	candidates = append(candidates, global...)
	return candidates
}
