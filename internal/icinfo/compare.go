package icinfo

import (
	"context"
)

// Reading identifies which of two text readings the comparison picked.
type Reading int

const (
	// ReadingPrimary is the text from the plain component image.
	ReadingPrimary Reading = iota
	// ReadingBinarised is the text from the binarised component image.
	ReadingBinarised
)

// CompareReadings analyses two readings of the same IC and picks the one
// more likely to be accurate. A reading that resolved a single
// manufacturer beats one that did not; between two resolved readings the
// one whose likely code carries its manufacturer's prefix wins; ties go
// to whichever kept more text lines, the first on equal counts.
func (r *Resolver) CompareReadings(rawText1, rawText2 []string) (Reading, TextDetails) {
	details1 := r.DetermineDetails(rawText1)
	details2 := r.DetermineDetails(rawText2)

	single1, has1 := details1.Manufacturer.(Single)
	single2, has2 := details2.Manufacturer.(Single)

	switch {
	case has1 && !has2:
		return ReadingPrimary, details1
	case !has1 && has2:
		return ReadingBinarised, details2
	case !has1 && !has2:
		return r.pickByLineCount(details1, details2)
	}

	// Both resolved a single manufacturer; prefer the reading whose
	// likely code starts with that manufacturer's known prefix.
	prefixed1 := hasAnyPrefix(details1.MostLikelyCode, r.db.CodesFor(single1.Name))
	prefixed2 := hasAnyPrefix(details2.MostLikelyCode, r.db.CodesFor(single2.Name))
	switch {
	case prefixed1 && !prefixed2:
		return ReadingPrimary, details1
	case !prefixed1 && prefixed2:
		return ReadingBinarised, details2
	}
	return r.pickByLineCount(details1, details2)
}

func (r *Resolver) pickByLineCount(details1, details2 TextDetails) (Reading, TextDetails) {
	if len(details1.OtherLines) >= len(details2.OtherLines) {
		return ReadingPrimary, details1
	}
	return ReadingBinarised, details2
}

// ResolveCompare identifies an IC from two readings of its package,
// looking up whichever reading compares better.
func (r *Resolver) ResolveCompare(ctx context.Context, rawText1, rawText2 []string) (Reading, ExtractionResult) {
	reading, details := r.CompareReadings(rawText1, rawText2)
	return reading, r.lookupDetails(ctx, details)
}
