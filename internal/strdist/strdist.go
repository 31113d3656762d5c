// Package strdist provides OCR-aware string distance functions.
//
// Text read from an IC package is noisy in a very specific way: the OCR
// engine confuses particular character shapes (0/O/Q, B/8, S/5, ...) far
// more often than it invents arbitrary substitutions. A plain edit distance
// both over- and under-penalises such errors, so the distances here work on
// a diff alignment between the two strings and optionally restrict
// substitutions to known visually-confusable groups.
package strdist

import (
	"math"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Inf is the distance returned when two strings cannot plausibly be
// readings of the same text.
const Inf = math.MaxInt

// visuallySimilar groups characters that the OCR process commonly
// mistakes for one another.
var visuallySimilar = []string{
	"B8",
	"MHN",
	"D0OQ",
	"C0O",
	"7Z2",
	"I1|",
	"S5",
	"YVXW",
}

// Distance computes the distance between a and b, case-insensitively.
//
// The strings are aligned with a diff; each pair of changed runs
// contributes max(len(left), len(right)) to the distance. With
// checkSimilar set, every substituted character must additionally belong
// to a visually-confusable group shared with its counterpart, otherwise
// Inf is returned.
func Distance(a, b string, checkSimilar bool) int {
	pairs := changedPairs(strings.ToUpper(a), strings.ToUpper(b))
	if checkSimilar {
		return distanceSimilar(pairs)
	}
	total := 0
	for _, p := range pairs {
		total += max(len(p[0]), len(p[1]))
	}
	return total
}

// distanceSimilar scores changed-run pairs, rejecting any substitution
// outside the confusable groups.
func distanceSimilar(pairs [][2][]rune) int {
	total := 0
	for _, p := range pairs {
		left, right := p[0], p[1]
		if len(left) == len(right) {
			// Direct substitution: every position must be confusable.
			for i := range left {
				if !similar(left[i], right[i]) {
					return Inf
				}
				total++
			}
			continue
		}

		// Unequal runs, e.g. "AAB" replaced by "B". Align each character
		// of the shorter run against a confusable one in the longer run.
		longer, shorter := left, right
		if len(right) > len(left) {
			longer, shorter = right, left
		}
		slack := len(longer) - len(shorter)
		used := make([]bool, len(longer))
		for i, c := range shorter {
			found := false
			for j := 0; j <= slack; j++ {
				if i+j < len(longer) && !used[i+j] && similar(longer[i+j], c) {
					used[i+j] = true
					found = true
					break
				}
			}
			if !found {
				return Inf
			}
		}
		total += len(longer)
	}
	return total
}

// ContainedDistance finds the best-aligned substring of larger matching
// smaller and counts character mismatches within it. A '?' in smaller
// matches any character. Returns Inf when no aligned substring exists.
//
// Example: ("AB12C", "12") → 0; ("AB13C", "12") → 1; ("AB182C", "12") → Inf.
func ContainedDistance(larger, smaller string) int {
	larger = strings.ToUpper(larger)
	smaller = strings.ToUpper(smaller)

	largerMask, smallerMask := differenceMasks(larger, smaller)

	start := maskIndex(largerMask, smallerMask)
	if start < 0 {
		return Inf
	}

	largerRunes := []rune(larger)
	sub := largerRunes[start : start+len(smallerMask)]

	count := 0
	for i, c := range []rune(smaller) {
		if sub[i] != c && c != '?' {
			count++
		}
	}
	return count
}

// similar reports whether two characters belong to a common
// visually-confusable group.
func similar(c1, c2 rune) bool {
	for _, group := range visuallySimilar {
		if strings.ContainsRune(group, c1) && strings.ContainsRune(group, c2) {
			return true
		}
	}
	return false
}

// differenceMasks diffs a against b and returns, for each string, a mask
// flagging the characters touched by the diff (true = changed).
func differenceMasks(a, b string) (aMask, bMask []bool) {
	aRunes := []rune(a)
	bRunes := []rune(b)
	aMask = make([]bool, len(aRunes))
	bMask = make([]bool, len(bRunes))

	matcher := difflib.NewMatcher(runeStrings(aRunes), runeStrings(bRunes))
	for _, op := range matcher.GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		for i := op.I1; i < op.I2; i++ {
			aMask[i] = true
		}
		for j := op.J1; j < op.J2; j++ {
			bMask[j] = true
		}
	}
	return aMask, bMask
}

// changedPairs aligns a with b and returns the pairs of changed runs
// between the stationary (matched) runs of the two strings.
func changedPairs(a, b string) [][2][]rune {
	aRunes := []rune(a)
	bRunes := []rune(b)
	aMask, bMask := differenceMasks(a, b)

	aRuns := stationaryRuns(aMask)
	bRuns := stationaryRuns(bMask)

	n := min(len(aRuns), len(bRuns))
	var pairs [][2][]rune
	prevEndA, prevEndB := 0, 0
	for i := 0; i < n; i++ {
		pairs = append(pairs, [2][]rune{
			aRunes[prevEndA:aRuns[i][0]],
			bRunes[prevEndB:bRuns[i][0]],
		})
		prevEndA = aRuns[i][1]
		prevEndB = bRuns[i][1]
	}
	pairs = append(pairs, [2][]rune{aRunes[prevEndA:], bRunes[prevEndB:]})
	return pairs
}

// stationaryRuns returns the [start, end) runs of unchanged characters.
func stationaryRuns(mask []bool) [][2]int {
	var runs [][2]int
	start := -1
	for i, changed := range mask {
		if !changed {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			runs = append(runs, [2]int{start, i})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, [2]int{start, len(mask)})
	}
	return runs
}

// maskIndex finds the first occurrence of pattern as a contiguous
// subsequence of mask, or -1.
func maskIndex(mask, pattern []bool) int {
	if len(pattern) > len(mask) {
		return -1
	}
	for i := 0; i+len(pattern) <= len(mask); i++ {
		match := true
		for j := range pattern {
			if mask[i+j] != pattern[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// runeStrings converts runes to one-character strings for the matcher.
func runeStrings(runes []rune) []string {
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}
