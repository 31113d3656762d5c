// Package icinfo identifies IC components from the text read off their
// packages, resolving the manufacturer and part code locally and
// completing the details through a parts database lookup.
package icinfo

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"

	"pcb-inspector/internal/datecode"
	"pcb-inspector/internal/manufacturer"
)

var log = logrus.New()

// Manufacturer is the outcome of manufacturer resolution: either one
// certain name or several candidates.
type Manufacturer interface {
	manufacturer()
}

// Single is a confidently resolved manufacturer.
type Single struct {
	Name string
}

// Candidates holds several possible manufacturers that could not be
// narrowed down further.
type Candidates struct {
	Names []string
}

func (Single) manufacturer()     {}
func (Candidates) manufacturer() {}

// TextDetails is the outcome of local text analysis, before any lookup.
type TextDetails struct {
	Manufacturer   Manufacturer // nil when unresolved
	MostLikelyCode string
	OtherLines     []string
	Dates          []datecode.WeekDate
}

// IsEmpty reports whether the analysis produced nothing at all.
func (d TextDetails) IsEmpty() bool {
	return d.Manufacturer == nil && d.MostLikelyCode == "" &&
		len(d.OtherLines) == 0 && len(d.Dates) == 0
}

// Resolver turns raw OCR text into IC details.
type Resolver struct {
	db     *manufacturer.DB
	lookup PartsLookup
	now    func() time.Time
}

// NewResolver creates a resolver over the given manufacturer tables and
// parts lookup. The lookup may be nil, in which case identification
// stops at the local analysis.
func NewResolver(db *manufacturer.DB, lookup PartsLookup) *Resolver {
	return &Resolver{
		db:     db,
		lookup: lookup,
		now:    time.Now,
	}
}

// DetermineDetails analyses the text lines read from an IC package.
// Lines are cleaned and ordered by how likely they are to be the part
// code: lines carrying a known manufacturer prefix first, then lines
// starting with a letter and containing a digit, then remaining
// letter-led lines, then the rest longest first. The top line becomes
// the most likely code.
func (r *Resolver) DetermineDetails(rawText []string) TextDetails {
	var lines []string
	for _, line := range rawText {
		// Short fragments are usually noise.
		if len(line) < 4 {
			continue
		}
		lines = append(lines, strings.TrimSpace(cleanLine(line)))
	}

	var details TextDetails
	if len(lines) == 0 {
		return details
	}

	// Find the first line naming a manufacturer and take it out.
	var manufacturers []string
	for i, line := range lines {
		if m := r.db.IsManufacturer(line); m != nil {
			manufacturers = m
			lines = append(lines[:i], lines[i+1:]...)
			break
		}
	}

	var ordered []string
	if manufacturers != nil {
		if len(manufacturers) > 1 {
			details.Manufacturer = Candidates{Names: manufacturers}
		} else {
			details.Manufacturer = Single{Name: manufacturers[0]}
		}

		var codes []string
		for _, m := range manufacturers {
			codes = append(codes, r.db.CodesFor(m)...)
		}
		if len(codes) == 0 {
			// Fall back to the initial letter of the name(s).
			for _, m := range manufacturers {
				codes = append(codes, m[:1])
			}
		}

		// Lines starting with one of the manufacturer's codes are the
		// strongest part-code candidates.
		var rest []string
		for _, line := range lines {
			if hasAnyPrefix(line, codes) {
				ordered = append(ordered, line)
			} else {
				rest = append(rest, line)
			}
		}
		lines = rest
	} else if found, reordered, ok := r.db.LookupByCode(lines); ok {
		// No manufacturer line; try to infer one from part-code
		// prefixes instead.
		lines = reordered
		proper := make([]string, len(found))
		for i, name := range found {
			if full := r.db.IsManufacturer(name); full != nil {
				proper[i] = strings.Join(full, "")
			} else {
				proper[i] = name
			}
		}
		details.Manufacturer = Candidates{Names: proper}
	}

	var numLetters, nonNumLetters, others []string
	for _, line := range lines {
		switch {
		case !startsWithLetter(line):
			others = append(others, line)
		case strings.ContainsFunc(line, unicode.IsDigit):
			numLetters = append(numLetters, line)
		default:
			nonNumLetters = append(nonNumLetters, line)
		}
	}
	sort.SliceStable(others, func(i, j int) bool {
		return len(others[i]) > len(others[j])
	})

	ordered = append(ordered, numLetters...)
	ordered = append(ordered, nonNumLetters...)
	ordered = append(ordered, others...)

	if len(ordered) > 0 {
		details.MostLikelyCode = ordered[0]
		details.OtherLines = ordered[1:]
	}
	details.Dates = datecode.Derive(details.OtherLines, r.now())

	return details
}

// cleanLine strips everything except letters, digits and spaces.
func cleanLine(line string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			return r
		}
		return -1
	}, line)
}

func startsWithLetter(s string) bool {
	for _, r := range s {
		return unicode.IsLetter(r)
	}
	return false
}

func hasAnyPrefix(line string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
