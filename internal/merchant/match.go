package merchant

import (
	"strings"
	"unicode/utf8"
)

const (
	// maxEditKeyLen bounds the key length for which edit distance applies.
	maxEditKeyLen = 10
	// maxEditDistance is the largest edit distance still treated as a match.
	maxEditDistance = 2
)

// IsSameMerchant decides whether two normalized keys denote the same
// merchant. Rules apply in order and the first hit wins:
//  1. Exact equality
//  2. Containment in either direction
//  3. Both keys at most 10 runes and Levenshtein distance <= 2
//
// An empty key never matches, so names made only of stripped tokens are
// not collapsed into one another.
func IsSameMerchant(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	if utf8.RuneCountInString(a) <= maxEditKeyLen && utf8.RuneCountInString(b) <= maxEditKeyLen {
		return Distance(a, b) <= maxEditDistance
	}
	return false
}

// Distance returns the Levenshtein edit distance between a and b in runes.
func Distance(a, b string) int {
	ar, br := []rune(a), []rune(b)
	if len(ar) < len(br) {
		ar, br = br, ar
	}
	if len(br) == 0 {
		return len(ar)
	}

	prev := make([]int, len(br)+1)
	curr := make([]int, len(br)+1)
	for j := range prev {
		prev[j] = j
	}
	for i, ca := range ar {
		curr[0] = i + 1
		for j, cb := range br {
			cost := 1
			if ca == cb {
				cost = 0
			}
			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(br)]
}
