package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// GeographicalRegions is the enum accepted by geographicalExpertise.
var GeographicalRegions = []string{
	"North America", "South America", "Asia", "Europe", "Africa", "Oceania", "Middle East",
}

// maxStringLen is the CMS limit for short text fields.
const maxStringLen = 255

var rateCleaner = strings.NewReplacer("$", "", "£", "", ",", "")

// ParseListField decodes a cell holding either JSON ("[...]" or "{...}") or
// a comma separated list. It returns nil for a blank cell.
func ParseListField(cell string) any {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	if strings.HasPrefix(cell, "[") || strings.HasPrefix(cell, "{") {
		var v any
		if err := json.Unmarshal([]byte(cell), &v); err == nil {
			return v
		}
	}

	var parts []string
	for _, p := range strings.Split(cell, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return parts
}

// StringList is ParseListField narrowed to a list of strings. JSON objects
// yield nil.
func StringList(cell string) []string {
	switch v := ParseListField(cell).(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" && item != nil {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}

// ParseRate accepts "1200", "$1,200.50" or "£95".
func ParseRate(cell string) (float64, error) {
	s := strings.TrimSpace(rateCleaner.Replace(cell))
	if s == "" {
		return 0, errors.New("empty rate")
	}
	rate, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse rate %q", cell)
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, fmt.Errorf("cannot parse rate %q", cell)
	}
	return rate, nil
}

// ValidateEnum reports whether value is one of allowed. Matching is exact.
func ValidateEnum(value string, allowed []string) bool {
	return slices.Contains(allowed, value)
}
