// Package identity infers which configured account most likely owns the
// current line of work by scoring candidate usernames against recent
// commit-history text.
package identity

import "strings"

// tolerance absorbs floating-point accumulation when scores are weighted;
// counts within it of the maximum tie.
const tolerance = 1e-6

// Match scores each candidate by its number of non-overlapping substring
// occurrences in text and returns every candidate within tolerance of the
// maximum, preserving the candidates' original order. Matching is exact,
// with no case folding. An empty text, an empty candidate set, or zero
// occurrences everywhere yields no match.
func Match(text string, candidates []string) []string {
	if text == "" || len(candidates) == 0 {
		return nil
	}

	type score struct {
		name  string
		count float64
	}

	var scores []score
	max := 0.0
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		count := float64(strings.Count(text, candidate))
		if count == 0 {
			continue
		}
		scores = append(scores, score{name: candidate, count: count})
		if count > max {
			max = count
		}
	}

	var matches []string
	for _, s := range scores {
		if max-s.count < tolerance {
			matches = append(matches, s.name)
		}
	}
	return matches
}
