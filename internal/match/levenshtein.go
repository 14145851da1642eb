package match

import (
	"cmp"
	"slices"
)

// MinSimilarity is the score below which Closest drops a candidate.
const MinSimilarity = 0.5

// Levenshtein computes the edit distance between two strings: the minimum
// number of single byte insertions, deletions or substitutions turning a
// into b.
func Levenshtein(a, b string) int {
	if a == b {
		return 0
	}

	if len(a) == 0 {
		return len(b)
	}

	if len(b) == 0 {
		return len(a)
	}

	// keep a the shorter one, rows are sized by it
	if len(a) > len(b) {
		a, b = b, a
	}

	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)

	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= len(b); j++ {
		curr[0] = j

		for i := 1; i <= len(a); i++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}

			curr[i] = min(
				prev[i]+1,      // deletion
				curr[i-1]+1,    // insertion
				prev[i-1]+cost, // substitution
			)
		}

		prev, curr = curr, prev
	}

	return prev[len(a)]
}

// Similarity scores two identifiers between 0 and 1 after normalizing them.
// 1 means equal up to case and separators.
func Similarity(a, b string) float64 {
	a, b = NormalizeIdent(a), NormalizeIdent(b)
	if len(a) == 0 && len(b) == 0 {
		return 1
	}

	return 1 - float64(Levenshtein(a, b))/float64(max(len(a), len(b)))
}

// Closest returns up to limit candidates whose similarity to name reaches
// MinSimilarity, best first. Ties keep the candidates order.
func Closest(name string, candidates []string, limit int) []string {
	type scored struct {
		name  string
		score float64
	}

	var ranked []scored

	for _, c := range candidates {
		if s := Similarity(name, c); s >= MinSimilarity {
			ranked = append(ranked, scored{c, s})
		}
	}

	slices.SortStableFunc(ranked, func(x, y scored) int {
		return cmp.Compare(y.score, x.score)
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.name
	}

	return out
}
