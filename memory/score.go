package memory

import "strings"

// Score computes a lexical overlap score between query and content:
// the fraction of query tokens present in content, case-insensitive.
// Core intentionally has no vector search (spec.md NON-GOALS); backends
// needing richer relevance ranking plug in their own embedding index
// and skip this helper.
func Score(query, content string) float64 {
	qTokens := tokenize(query)
	if len(qTokens) == 0 {
		return 0
	}
	cSet := make(map[string]struct{})
	for _, t := range tokenize(content) {
		cSet[t] = struct{}{}
	}
	hits := 0
	for _, t := range qTokens {
		if _, ok := cSet[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(qTokens))
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// RankAndTrim sorts items by Score descending (stable on Timestamp
// descending as a tiebreak) and returns at most k.
func RankAndTrim(items []MemoryItem, k int) []MemoryItem {
	for i := 1; i < len(items); i++ {
		j := i
		for j > 0 && less(items[j], items[j-1]) {
			items[j], items[j-1] = items[j-1], items[j]
			j--
		}
	}
	if k > 0 && len(items) > k {
		items = items[:k]
	}
	return items
}

func less(a, b MemoryItem) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Timestamp.After(b.Timestamp)
}
