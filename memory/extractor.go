package memory

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// noEntitiesSentinel is the reply the extraction prompt requests when
// the text mentions nothing worth tagging.
const noEntitiesSentinel = "NONE"

const extractionPromptTemplate = `List the named entities and topics mentioned in the following message: people, places, things, dates, and subjects. The message was written by %q.
Reply with a comma-separated list only, no commentary. If there are none, reply with exactly NONE.

Message: %s`

// Extractor turns free text into a small set of entity names using the
// completion service. Extraction is an optimization over recall, not a
// correctness requirement: every failure mode degrades to "no
// entities" and nothing is raised past this boundary.
type Extractor struct {
	completer Completer
}

// NewExtractor creates an extractor. A nil completer yields an
// extractor that always returns the empty set.
func NewExtractor(completer Completer) *Extractor {
	return &Extractor{completer: completer}
}

// Extract returns the entity names mentioned in text, attributed to
// authorName. Service errors, empty replies, and the NONE sentinel all
// yield the empty set; that is a valid outcome, not an error.
func (e *Extractor) Extract(ctx context.Context, text, authorName string) []string {
	if e.completer == nil || strings.TrimSpace(text) == "" {
		return nil
	}

	reply, err := e.completer.Complete(ctx, fmt.Sprintf(extractionPromptTemplate, authorName, text))
	if err != nil {
		log.Printf("[MEMORY] Entity extraction failed: %v", err)
		return nil
	}

	reply = strings.TrimSpace(reply)
	if reply == "" || strings.EqualFold(reply, noEntitiesSentinel) {
		return nil
	}

	return normalizeEntities(strings.Split(reply, ","))
}
