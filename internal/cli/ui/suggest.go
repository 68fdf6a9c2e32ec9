package ui

import (
	"sort"
	"strings"
)

// MaxSuggestDistance is the largest edit distance Suggest accepts
const MaxSuggestDistance = 3

// Suggest returns up to limit candidates close to target, nearest first.
// Matching ignores case.
func Suggest(target string, candidates []string, limit int) []string {
	type match struct {
		value    string
		distance int
	}

	t := strings.ToLower(target)
	var matches []match
	for _, c := range candidates {
		d := Distance(t, strings.ToLower(c))
		if d <= MaxSuggestDistance && d < max(len(t), len(c)) {
			matches = append(matches, match{c, d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.value
	}
	return out
}

// Distance is the Levenshtein distance between a and b in runes
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
