package meter

import (
	"math"
	"strconv"
	"strings"
)

// ToNumber parses a free-text operator-entered numeric string. Thousands
// separators are stripped and surrounding whitespace trimmed. Anything that
// still does not parse as a finite decimal (including an empty string)
// coerces to 0 rather than erroring: readings are typed by hand and every
// downstream calculator is required to tolerate a coerced zero.
func ToNumber(raw string) float64 {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
