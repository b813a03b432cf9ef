package memory

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is one stored memory chunk: a natural-language fact with the
// metadata needed to score and attribute it later. Records are
// immutable after creation and are never deleted by this engine.
type Record struct {
	// ID is globally unique, assigned at creation.
	ID string

	// UserID identifies the participant the memory is about/from.
	UserID string

	// AuthorName is the participant's display name at creation time,
	// an immutable snapshot rather than a live reference.
	AuthorName string

	// ChannelID identifies the conversation context.
	ChannelID string

	// Timestamp is the creation time, used for recency scoring and
	// display ordering only.
	Timestamp time.Time

	// IsImportant distinguishes user-declared "must remember" facts
	// from ordinary auto-extracted ones.
	IsImportant bool

	// Content is the fact text itself, the payload that is embedded
	// and searched. Never empty for a persisted record.
	Content string

	// Entities holds extracted entity names for symbolic matching,
	// independent of the semantic vector. Empty when none were
	// extracted; never contains duplicates or empty strings.
	Entities []string
}

// NewRecord creates a record with a fresh ID and timestamp. Content
// must be non-empty; entities are normalized (trimmed, deduplicated,
// empties dropped).
func NewRecord(userID, authorName, channelID, content string, important bool, entities []string) (Record, error) {
	if strings.TrimSpace(content) == "" {
		return Record{}, errors.New("memory: record content must not be empty")
	}
	return Record{
		ID:          uuid.New().String(),
		UserID:      userID,
		AuthorName:  authorName,
		ChannelID:   channelID,
		Timestamp:   time.Now().UTC(),
		IsImportant: important,
		Content:     content,
		Entities:    normalizeEntities(entities),
	}, nil
}

// normalizeEntities trims whitespace, drops empty strings, and removes
// duplicates while preserving first-seen order.
func normalizeEntities(entities []string) []string {
	if len(entities) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(entities))
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// containsEntity reports whether name is present in the entity set.
func containsEntity(entities []string, name string) bool {
	for _, e := range entities {
		if e == name {
			return true
		}
	}
	return false
}
