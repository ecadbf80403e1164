package search

import "sort"

// Result is a ranked match.
type Result struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// sortResults orders by score descending, then ID ascending for stable output.
func sortResults(rs []Result) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Score != rs[j].Score {
			return rs[i].Score > rs[j].Score
		}
		return rs[i].ID < rs[j].ID
	})
}

func topK(rs []Result, k int) []Result {
	sortResults(rs)
	if k > 0 && len(rs) > k {
		rs = rs[:k]
	}
	return rs
}
