package matcher

import "sort"

// Rank drops candidates below Threshold, orders the rest by descending
// confidence (stable, so input order breaks ties) and keeps the first
// occurrence of each (category, value) pair. The input is not modified.
func Rank(candidates []Candidate) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Confidence >= Threshold {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})

	type key struct{ category, value string }
	seen := make(map[key]bool, len(out))
	deduped := out[:0]
	for _, c := range out {
		k := key{c.Category, c.Value}
		if seen[k] {
			continue
		}
		seen[k] = true
		deduped = append(deduped, c)
	}
	return deduped
}
