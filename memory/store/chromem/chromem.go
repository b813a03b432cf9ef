// Package chromem implements the memory vector index on chromem-go, a
// pure Go embedded vector database.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/mnemosyne-bot/mnemosyne/memory"
)

const collectionName = "memories"

// Metadata keys written per document. The filterable ones match the
// memory.Filter* constants.
const (
	metaUserID     = memory.FilterUserID
	metaChannelID  = memory.FilterChannelID
	metaImportant  = memory.FilterImportant
	metaAuthorName = "author_name"
	metaTimestamp  = "timestamp"
	metaEntities   = "entities"
)

// indexFileName holds the metadata side index next to the chromem
// collections when the store is persistent.
const indexFileName = "memories.index.json"

// Store wraps chromem-go for vector storage. chromem answers the
// nearest-neighbor queries; a metadata side index answers filtered Get
// lookups, which chromem cannot do without an embedding. For
// persistent stores the side index is written to its own file
// alongside the DB and reloaded on open, so Get sees records from
// earlier process lifetimes too.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	indexPath  string

	mu      sync.RWMutex
	records map[string]memory.Record
}

// New creates an in-memory store.
func New() (*Store, error) {
	return newStore(chromem.NewDB(), "")
}

// NewPersistent creates a store whose collections are persisted under
// path, gzip-compressed, with the metadata side index rebuilt from its
// companion file.
func NewPersistent(path string) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, true)
	if err != nil {
		return nil, fmt.Errorf("open persistent db: %w", err)
	}
	return newStore(db, filepath.Join(path, indexFileName))
}

func newStore(db *chromem.DB, indexPath string) (*Store, error) {
	// No embedding func: the manager supplies embeddings. Default
	// cosine distance.
	col, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s := &Store{
		db:         db,
		collection: col,
		indexPath:  indexPath,
		records:    make(map[string]memory.Record),
	}
	if indexPath != "" {
		if err := s.loadIndex(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// loadIndex restores the side index from its companion file. A missing
// file means a fresh store.
func (s *Store) loadIndex() error {
	data, err := os.ReadFile(s.indexPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}
	if err := json.Unmarshal(data, &s.records); err != nil {
		return fmt.Errorf("decode index %s: %w", s.indexPath, err)
	}
	log.Printf("[CHROMEM] Restored %d records from index", len(s.records))
	return nil
}

// saveIndexLocked writes the side index atomically. Callers hold mu.
func (s *Store) saveIndexLocked() error {
	data, err := json.Marshal(s.records)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	tmp := s.indexPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := os.Rename(tmp, s.indexPath); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

// Insert persists a record with its embedding.
func (s *Store) Insert(ctx context.Context, rec memory.Record, embedding []float32) error {
	if rec.ID == "" {
		return fmt.Errorf("record has no id")
	}
	if rec.Content == "" {
		return fmt.Errorf("record %s has empty content", rec.ID)
	}

	doc := chromem.Document{
		ID:        rec.ID,
		Content:   rec.Content,
		Embedding: embedding,
		Metadata:  recordMetadata(rec),
	}
	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}

	s.mu.Lock()
	s.records[rec.ID] = rec
	var indexErr error
	if s.indexPath != "" {
		indexErr = s.saveIndexLocked()
	}
	s.mu.Unlock()
	if indexErr != nil {
		return indexErr
	}

	log.Printf("[CHROMEM] Stored record %s (user=%s, important=%t)", rec.ID, rec.UserID, rec.IsImportant)
	return nil
}

// Query retrieves up to limit records by vector similarity, optionally
// restricted by a metadata filter. chromem requires nResults to be at
// most the number of stored documents, so the limit is walked down
// until the query fits; an empty collection yields an empty result,
// not an error.
func (s *Store) Query(ctx context.Context, embedding []float32, limit int, where memory.Filter) ([]memory.Record, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	var results []chromem.Result
	for currentLimit := limit; currentLimit >= 1; currentLimit-- {
		var err error
		results, err = s.collection.QueryEmbedding(ctx, embedding, currentLimit, map[string]string(where), nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if currentLimit == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	recs := make([]memory.Record, 0, len(results))
	for i, res := range results {
		rec, err := recordFromResult(res)
		if err != nil {
			// Malformed stored metadata fails closed: skip the one
			// record, keep the rest of the retrieval.
			log.Printf("[CHROMEM] Skipping result #%d: %v", i+1, err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Get retrieves records by metadata filter alone, newest first.
func (s *Store) Get(ctx context.Context, where memory.Filter) ([]memory.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []memory.Record
	for _, rec := range s.records {
		if matchesFilter(rec, where) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].Timestamp.Equal(recs[j].Timestamp) {
			return recs[i].Timestamp.After(recs[j].Timestamp)
		}
		return recs[i].ID < recs[j].ID
	})
	return recs, nil
}

// Count returns the number of stored records.
func (s *Store) Count() int {
	return s.collection.Count()
}

// Close releases resources. chromem keeps everything in memory (or
// flushed to disk on write for persistent DBs); nothing to do.
func (s *Store) Close() error {
	return nil
}

func matchesFilter(rec memory.Record, where memory.Filter) bool {
	for key, want := range where {
		switch key {
		case metaUserID:
			if rec.UserID != want {
				return false
			}
		case metaChannelID:
			if rec.ChannelID != want {
				return false
			}
		case metaImportant:
			if strconv.FormatBool(rec.IsImportant) != want {
				return false
			}
		case memory.FilterEntity:
			found := false
			for _, e := range rec.Entities {
				if e == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func recordMetadata(rec memory.Record) map[string]string {
	md := map[string]string{
		metaUserID:     rec.UserID,
		metaAuthorName: rec.AuthorName,
		metaChannelID:  rec.ChannelID,
		metaTimestamp:  rec.Timestamp.Format(time.RFC3339Nano),
		metaImportant:  strconv.FormatBool(rec.IsImportant),
	}
	if len(rec.Entities) > 0 {
		// JSON array, so entity names may themselves contain commas.
		raw, _ := json.Marshal(rec.Entities)
		md[metaEntities] = string(raw)
	}
	return md
}

// recordFromResult reconstructs a record from a chromem result. A
// result missing a required field is an error; the caller skips it.
func recordFromResult(res chromem.Result) (memory.Record, error) {
	if res.Content == "" {
		return memory.Record{}, fmt.Errorf("record %s has empty content", res.ID)
	}
	authorName, ok := res.Metadata[metaAuthorName]
	if !ok {
		return memory.Record{}, fmt.Errorf("record %s missing author_name", res.ID)
	}
	ts, err := time.Parse(time.RFC3339Nano, res.Metadata[metaTimestamp])
	if err != nil {
		return memory.Record{}, fmt.Errorf("record %s has bad timestamp: %w", res.ID, err)
	}
	important, _ := strconv.ParseBool(res.Metadata[metaImportant])

	var entities []string
	if raw := res.Metadata[metaEntities]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &entities); err != nil {
			return memory.Record{}, fmt.Errorf("record %s has bad entities: %w", res.ID, err)
		}
	}

	return memory.Record{
		ID:          res.ID,
		UserID:      res.Metadata[metaUserID],
		AuthorName:  authorName,
		ChannelID:   res.Metadata[metaChannelID],
		Timestamp:   ts,
		IsImportant: important,
		Content:     res.Content,
		Entities:    entities,
	}, nil
}

// isInsufficientDocsError checks whether a query failed only because
// nResults exceeded the collection size.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
