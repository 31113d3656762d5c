package icinfo

import (
	"context"
	"strconv"
	"strings"

	"pcb-inspector/internal/component"
	"pcb-inspector/internal/datecode"
	"pcb-inspector/internal/partsapi"
	"pcb-inspector/internal/strdist"
	"pcb-inspector/pkg/orderedmap"
)

// PartsLookup searches the parts database for a code. A nil record with
// a nil error means the search ran but found nothing.
type PartsLookup interface {
	Search(ctx context.Context, code string) (*partsapi.PartRecord, error)
}

// ExtractionResult is the final outcome of IC identification.
type ExtractionResult struct {
	Details *orderedmap.Map
	State   component.InfoState
	IsError bool // A lookup failed along the way
}

// ResolveSingle analyses the text read from one IC and completes it
// with a parts lookup.
func (r *Resolver) ResolveSingle(ctx context.Context, rawText []string) ExtractionResult {
	details := r.DetermineDetails(rawText)
	return r.lookupDetails(ctx, details)
}

// lookupDetails tries the ordered candidate lines against the parts
// database and falls back to the locally derived details.
func (r *Resolver) lookupDetails(ctx context.Context, details TextDetails) ExtractionResult {
	if details.IsEmpty() {
		return ExtractionResult{State: component.StateNoText}
	}

	var candidates []string
	if details.MostLikelyCode != "" {
		candidates = append(candidates, details.MostLikelyCode)
	}
	candidates = append(candidates, details.OtherLines...)

	lookupError := false
	if r.lookup != nil {
		for _, line := range candidates {
			if lookupError {
				break
			}
			record, err := r.lookup.Search(ctx, line)
			if err != nil {
				log.WithError(err).WithField("code", line).Warn("Part lookup failed")
				lookupError = true
				continue
			}
			if record == nil {
				continue
			}
			if !resultMatches(record, line) {
				log.WithField("code", line).Debug("Lookup result does not match the marking")
				continue
			}

			dict := recordToMap(record)
			addDates(dict, details.Dates)
			return ExtractionResult{Details: dict, State: component.StateLoaded}
		}

		// Nothing matched directly; retry the strongest candidate with
		// wildcards in the commonly misread positions.
		if len(candidates) > 0 {
			if result, ok := r.wildcardLookup(ctx, candidates[0], details); ok {
				return result
			}
		}
	}

	dict := detailsToMap(details)
	state := component.StateNotAvailable
	if lookupError {
		state = component.StateUnloaded
	}
	return ExtractionResult{Details: dict, State: state, IsError: lookupError}
}

// wildcardLookup retries a lookup with misread-prone characters replaced
// by wildcards. The requirements are stricter here since a loose search
// is more likely to return a wrong part.
func (r *Resolver) wildcardLookup(ctx context.Context, line string, details TextDetails) (ExtractionResult, bool) {
	if len(line) <= 5 || !startsWithLetter(line) {
		return ExtractionResult{}, false
	}

	wildcarded, replaced := partsapi.InsertWildcards(line)
	// Give up when half or more of the characters were replaced.
	if replaced*2 > len(line) {
		return ExtractionResult{}, false
	}

	record, err := r.lookup.Search(ctx, wildcarded)
	if err != nil {
		log.WithError(err).WithField("code", wildcarded).Warn("Wildcard lookup failed")
		return ExtractionResult{}, false
	}
	if record == nil {
		return ExtractionResult{}, false
	}
	if !resultMatches(record, strings.ReplaceAll(wildcarded, "*", "")) {
		return ExtractionResult{}, false
	}

	// The found part must come from the manufacturer identified on the
	// package, when there was exactly one.
	if single, ok := details.Manufacturer.(Single); ok && record.Manufacturer != "" {
		d := strdist.Distance(firstWord(single.Name), firstWord(record.Manufacturer), false)
		if d >= 3 {
			return ExtractionResult{}, false
		}
	}

	dict := recordToMap(record)
	addDates(dict, details.Dates)
	return ExtractionResult{Details: dict, State: component.StateLoaded}, true
}

// resultMatches checks that the part number of a lookup result is a
// plausible reading of the marking that produced it.
func resultMatches(record *partsapi.PartRecord, line string) bool {
	resultCode := strings.ReplaceAll(record.PartNumber, " ", "")
	if resultCode == "" {
		return false
	}
	line = strings.ReplaceAll(line, " ", "")

	var d int
	if len(resultCode) > len(line) {
		d = strdist.ContainedDistance(resultCode, line)
	} else {
		d = strdist.ContainedDistance(line, resultCode)
	}
	return d < 3
}

// recordToMap formats a lookup result for display.
func recordToMap(record *partsapi.PartRecord) *orderedmap.Map {
	dict := orderedmap.New()
	if record.Manufacturer != "" {
		dict.Set("Manufacturer", record.Manufacturer)
	}
	if record.Name != "" {
		dict.Set("Component Name", record.Name)
	}
	if record.PartNumber != "" {
		dict.Set("Part Number", record.PartNumber)
	}
	if record.Category != "" {
		dict.Set("Category", record.Category)
	}
	if record.Description != "" {
		dict.Set("Description", record.Description)
	}
	if record.DatasheetURL != "" {
		dict.Set("Datasheet URL", record.DatasheetURL)
	}
	if record.PageURL != "" {
		dict.Set("Octopart Page", record.PageURL)
	}
	return dict
}

// detailsToMap formats locally derived details for display.
func detailsToMap(details TextDetails) *orderedmap.Map {
	dict := orderedmap.New()
	switch m := details.Manufacturer.(type) {
	case Single:
		dict.Set("Manufacturer", m.Name)
	case Candidates:
		dict.Set("Potential Manufacturers", strings.Join(m.Names, ", "))
	}
	if details.MostLikelyCode != "" {
		dict.Set("Most Likely Code", details.MostLikelyCode)
	}
	for i, line := range details.OtherLines {
		dict.Set(lineKey(i), line)
	}
	addDates(dict, details.Dates)
	return dict
}

func lineKey(i int) string {
	return "Line " + strconv.Itoa(i+1)
}

func addDates(dict *orderedmap.Map, dates []datecode.WeekDate) {
	if key, value, ok := datecode.Format(dates); ok {
		dict.Set(key, value)
	}
}

func firstWord(s string) string {
	word, _, _ := strings.Cut(s, " ")
	return word
}
