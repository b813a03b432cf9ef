package memory

import "strings"

// Evidence weights for candidate scoring. The weights are strictly
// ordered by evidence strength: keyword + tagged entity + the maximum
// recency term stays below self-authorship, and tagged entity + recency
// stays below keyword. scorer_test.go tries to construct a
// counterexample to that ordering.
const (
	// ScoreSelfAuthor applies when the candidate was authored by the
	// requesting user.
	ScoreSelfAuthor = 1000.0

	// ScoreKeywordMatch applies when the candidate content contains at
	// least one query entity verbatim (case-sensitive substring).
	ScoreKeywordMatch = 100.0

	// ScoreEntityMatch applies when the candidate's tagged entities
	// intersect the query-entity set.
	ScoreEntityMatch = 50.0

	// recencyScale bounds the recency term: Unix seconds divided by it
	// stay well below ScoreEntityMatch for any realistic timestamp, so
	// recency only breaks ties between equal discrete evidence.
	recencyScale = 1e10
)

// scoredRecord pairs a candidate with its relevance score.
type scoredRecord struct {
	rec   Record
	score float64
}

// scoreRecord computes the additive evidence score for one candidate.
// A candidate with no discrete evidence scores exactly zero: the
// recency term is only added on top of discrete evidence, so recency
// alone can never surface a record.
func scoreRecord(rec Record, q Query, queryEntities []string) float64 {
	var score float64

	if q.UserName != "" && rec.AuthorName == q.UserName {
		score += ScoreSelfAuthor
	}

	var keyword, tagged bool
	for _, entity := range queryEntities {
		if !keyword && strings.Contains(rec.Content, entity) {
			keyword = true
		}
		if !tagged && containsEntity(rec.Entities, entity) {
			tagged = true
		}
		if keyword && tagged {
			break
		}
	}
	if keyword {
		score += ScoreKeywordMatch
	}
	if tagged {
		score += ScoreEntityMatch
	}

	if score == 0 {
		return 0
	}
	return score + float64(rec.Timestamp.Unix())/recencyScale
}
