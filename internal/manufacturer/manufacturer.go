// Package manufacturer resolves IC manufacturer names and prefix codes.
//
// Two embedded tables drive the lookups: a list of known manufacturer
// names, and a table mapping each manufacturer to the part-number prefixes
// it uses (e.g. Broadcom parts start with "BCM"). Lines read off a chip
// can be matched against either direction.
package manufacturer

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"unicode"

	"pcb-inspector/internal/strdist"
)

//go:embed data/manufacturer_list.txt
var manufacturerList []byte

//go:embed data/manufacturer_codes.txt
var manufacturerCodes []byte

// codeEntry associates a manufacturer with its part-number prefixes.
type codeEntry struct {
	name  string
	codes []string
}

// DB holds the manufacturer tables. Entries keep file order so lookups
// are deterministic.
type DB struct {
	names   []string
	entries []codeEntry
	// inverse maps a prefix code to the manufacturers using it.
	inverse map[string][]string
}

// Load parses the embedded manufacturer tables.
func Load() (*DB, error) {
	names, err := parseNames(manufacturerList)
	if err != nil {
		return nil, fmt.Errorf("parsing manufacturer list: %w", err)
	}
	entries, err := parseCodes(manufacturerCodes)
	if err != nil {
		return nil, fmt.Errorf("parsing manufacturer codes: %w", err)
	}
	return New(names, entries), nil
}

// New builds a DB from explicit tables. Codes are given as lines of
// "Name,CODE1,CODE2". Mostly useful in tests.
func New(names []string, entries map[string][]string) *DB {
	db := &DB{names: names, inverse: map[string][]string{}}
	// Keep name-list order for the entries that have codes.
	for _, name := range names {
		if codes, ok := entries[name]; ok {
			db.entries = append(db.entries, codeEntry{name: name, codes: codes})
		}
	}
	for _, e := range db.entries {
		for _, code := range e.codes {
			db.inverse[code] = append(db.inverse[code], e.name)
		}
	}
	return db
}

// Names returns all known manufacturer names in table order.
func (db *DB) Names() []string {
	out := make([]string, len(db.names))
	copy(out, db.names)
	return out
}

// IsManufacturer checks whether line names a known manufacturer. The
// first word of the line is compared against the first word of every
// known name using the similarity-aware distance, and every name tied at
// the minimum distance is returned. Nil means no name came within
// distance 2.
func (db *DB) IsManufacturer(line string) []string {
	word := firstWord(strings.ToUpper(line))

	minDist := strdist.Inf
	var matches []string
	for _, name := range db.names {
		d := strdist.Distance(firstWord(strings.ToUpper(name)), word, true)
		switch {
		case d < minDist:
			minDist = d
			matches = []string{name}
		case d == minDist:
			matches = append(matches, name)
		}
	}
	if minDist > 2 {
		return nil
	}
	return matches
}

// CodesFor returns the part-number prefixes of the first table entry
// whose name is contained in the given manufacturer name, matching
// case-insensitively. Nil when the manufacturer has no known codes.
func (db *DB) CodesFor(name string) []string {
	lowered := strings.ToLower(name)
	for _, e := range db.entries {
		if strings.Contains(lowered, strings.ToLower(e.name)) {
			return e.codes
		}
	}
	return nil
}

// LookupByCode tries to find manufacturers from the part-number prefixes
// of the given lines. Each line contributes its leading non-digit run as
// a candidate code; the longest candidates are tried against the prefix
// table first, shedding one trailing character per round until a match
// is found or the candidates run out. Along with the manufacturers it
// returns the lines reordered so that those carrying a matched prefix
// come first. The final return is false when nothing matched.
func (db *DB) LookupByCode(lines []string) (manufacturers, ordered []string, ok bool) {
	candidates := make([]string, 0, len(lines))
	for _, line := range lines {
		// Lines starting with a digit have no prefix to look up.
		if prefix := codePrefix(line); prefix != "" {
			candidates = append(candidates, prefix)
		}
	}

	var found []string
	var likely []string
	for len(candidates) > 0 {
		maxLen := maxLength(candidates)
		hasFound := false
		for _, code := range candidates {
			if len(code) != maxLen {
				continue
			}
			names, present := db.inverse[code]
			if !present {
				continue
			}
			found = append(found, names...)
			for _, line := range lines {
				if strings.HasPrefix(line, code) {
					likely = append(likely, line)
				}
			}
			hasFound = true
		}
		if hasFound {
			break
		}
		// The boundary between manufacturer prefix and part code is
		// unknown, so shorten the longest candidates and retry.
		next := candidates[:0]
		for _, code := range candidates {
			if len(code) >= maxLen {
				code = code[:len(code)-1]
			}
			if len(code) > 1 {
				next = append(next, code)
			}
		}
		candidates = next
	}

	if len(found) == 0 {
		return nil, nil, false
	}

	ordered = dedup(likely)
	seen := map[string]bool{}
	for _, l := range ordered {
		seen[l] = true
	}
	for _, line := range dedup(lines) {
		if !seen[line] {
			ordered = append(ordered, line)
		}
	}
	return dedup(found), ordered, true
}

// codePrefix extracts the leading non-digit run of a line, with
// whitespace stripped.
func codePrefix(line string) string {
	var b strings.Builder
	for _, r := range line {
		if unicode.IsSpace(r) {
			continue
		}
		if unicode.IsDigit(r) {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}

func firstWord(s string) string {
	word, _, _ := strings.Cut(s, " ")
	return strings.TrimSpace(word)
}

func maxLength(strs []string) int {
	longest := 0
	for _, s := range strs {
		if len(s) > longest {
			longest = len(s)
		}
	}
	return longest
}

// dedup removes duplicates while preserving first-seen order.
func dedup(strs []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range strs {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func parseNames(data []byte) ([]string, error) {
	var names []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			names = append(names, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

func parseCodes(data []byte) (map[string][]string, error) {
	entries := map[string][]string{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			return nil, fmt.Errorf("malformed code line %q", line)
		}
		entries[parts[0]] = parts[1:]
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
