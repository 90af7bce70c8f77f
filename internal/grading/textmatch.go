package grading

import (
	"strings"
	"unicode"
)

// foldAnswer lower-cases free text, drops punctuation and collapses runs of
// whitespace, so "Paris!" and "  paris" fold to the same string.
func foldAnswer(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// matchesReference reports whether text folds to one of refs, or lies within
// maxEdit rune edits of one when maxEdit is positive. Blank text never matches.
func matchesReference(text string, refs []string, maxEdit int) bool {
	got := foldAnswer(text)
	if got == "" {
		return false
	}
	for _, ref := range refs {
		want := foldAnswer(ref)
		if want == "" {
			continue
		}
		if got == want || (maxEdit > 0 && editDistance(got, want) <= maxEdit) {
			return true
		}
	}
	return false
}

// editDistance is the Levenshtein distance between a and b, counted in runes.
func editDistance(a, b string) int {
	ar, br := []rune(a), []rune(b)
	prev := make([]int, len(br)+1)
	cur := make([]int, len(br)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ar); i++ {
		cur[0] = i
		for j := 1; j <= len(br); j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(br)]
}
