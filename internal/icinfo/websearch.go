package icinfo

import (
	"strings"

	"pcb-inspector/pkg/orderedmap"
)

// WebSearchTerm builds a search engine query from extracted component
// details. The term combines the manufacturer with the most likely code
// when both are known. A candidate-manufacturer list is ambiguous and is
// left out of the term. Returns false when nothing usable is present.
func WebSearchTerm(details *orderedmap.Map) (string, bool) {
	if details == nil || details.Len() == 0 {
		return "", false
	}

	manufacturer, ok := details.Get("Manufacturer")
	if !ok {
		manufacturer, ok = details.Get("Potential Manufacturers")
	}
	if ok && strings.Contains(manufacturer, ", ") {
		// Multiple candidates would only muddy the query.
		manufacturer, ok = "", false
	}

	code, codeOK := details.Get("Most Likely Code")
	if !codeOK {
		keys := details.Keys()
		code, codeOK = details.Get(keys[0])
	}

	switch {
	case ok && codeOK:
		return manufacturer + " " + code, true
	case codeOK:
		return code, true
	}
	return "", false
}
