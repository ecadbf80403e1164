package search

// DefaultRRFK is the customary Reciprocal Rank Fusion constant.
const DefaultRRFK = 60

// ReciprocalRankFusion merges ranked lists. Each document scores
// sum(1 / (k + rank)) over the lists it appears in, rank starting at 1.
// Lists are assumed ordered best first; a document repeated within one list
// counts at its best rank. k <= 0 uses DefaultRRFK.
func ReciprocalRankFusion(k float64, lists ...[]Result) []Result {
	if k <= 0 {
		k = DefaultRRFK
	}

	scores := make(map[string]float64)
	for _, list := range lists {
		seen := make(map[string]bool, len(list))
		for rank, r := range list {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			scores[r.ID] += 1 / (k + float64(rank+1))
		}
	}

	out := make([]Result, 0, len(scores))
	for id, s := range scores {
		out = append(out, Result{ID: id, Score: s})
	}
	sortResults(out)
	return out
}
