// Package datecode derives potential manufacture dates from the text
// printed on an IC package.
//
// Many manufacturers stamp a four-digit YYWW date code on the chip, where
// YY is the year suffix and WW the ISO week of manufacture. The text lines
// around the part number are scanned for such codes.
package datecode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// WeekDate is a decoded YYWW date code.
type WeekDate struct {
	Year int // Full year (e.g., 2024)
	Week int // Week of year, 1-52
}

// String returns a human-readable representation, e.g. "51st week of 2024".
func (d WeekDate) String() string {
	return fmt.Sprintf("%s week of %d", ordinal(d.Week), d.Year)
}

var fourDigits = regexp.MustCompile(`[0-9]{4}`)

// Derive scans lines for plausible YYWW date codes and decodes them.
// Only maximal runs of exactly four digits are considered, so a five-digit
// number never yields a date. Year suffixes up to the current year are
// placed in the current century, suffixes from 70 upwards in the 1900s,
// and anything between is discarded. The reference time decides which
// century a suffix falls into. Returns nil when no code is found.
func Derive(lines []string, ref time.Time) []WeekDate {
	var candidates []string
	for _, line := range lines {
		for _, loc := range fourDigits.FindAllStringIndex(line, -1) {
			start, end := loc[0], loc[1]
			if start > 0 && isDigit(line[start-1]) {
				continue
			}
			if end < len(line) && isDigit(line[end]) {
				continue
			}
			candidates = append(candidates, line[start:end])
		}
	}

	yearSuffix := ref.Year() % 100
	century := ref.Year() - yearSuffix

	var dates []WeekDate
	for _, code := range candidates {
		year, _ := strconv.Atoi(code[:2])
		week, _ := strconv.Atoi(code[2:])
		if week < 1 || week > 52 {
			continue
		}
		switch {
		case year <= yearSuffix:
			dates = append(dates, WeekDate{Year: century + year, Week: week})
		case year >= max(yearSuffix, 70):
			dates = append(dates, WeekDate{Year: 1900 + year, Week: week})
		}
	}
	if len(dates) == 0 {
		return nil
	}
	return dates
}

// Format renders dates as a key and value pair for an info dictionary,
// e.g. ("Potential Manufacture Date", "51st week of 2024"). The second
// return is false when no dates are given.
func Format(dates []WeekDate) (key, value string, ok bool) {
	if len(dates) == 0 {
		return "", "", false
	}
	formatted := make([]string, len(dates))
	for i, d := range dates {
		formatted[i] = d.String()
	}
	key = "Potential Manufacture Date"
	if len(dates) > 1 {
		key = "Potential Manufacture Dates"
	}
	return key, strings.Join(formatted, ", "), true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// ordinal formats n as 1st, 2nd, 3rd, 4th, ...
func ordinal(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
