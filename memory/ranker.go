package memory

import "sort"

// rank merges scored candidates into the final ordered result. Records
// with non-positive score are dropped (a relevance floor of "some
// evidence"), duplicate IDs collapse to their first occurrence, the
// remainder sorts by descending score, and the result is truncated to
// limit. The sort is stable, so identical inputs always produce the
// identical order; ties in discrete evidence are already broken by the
// recency term folded into the score.
func rank(scored []scoredRecord, limit int) []Record {
	seen := make(map[string]struct{}, len(scored))
	unique := make([]scoredRecord, 0, len(scored))
	for _, sc := range scored {
		if sc.score <= 0 {
			continue
		}
		if _, ok := seen[sc.rec.ID]; ok {
			continue
		}
		seen[sc.rec.ID] = struct{}{}
		unique = append(unique, sc)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].score > unique[j].score
	})

	if len(unique) > limit {
		unique = unique[:limit]
	}

	ranked := make([]Record, len(unique))
	for i, sc := range unique {
		ranked[i] = sc.rec
	}
	return ranked
}
