package watchlist

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePrice parses a Polish price literal into a float64.
// It accepts thousands separators (space, non-breaking space, or dot),
// a decimal comma or dot, and an optional "zł" suffix:
// "40zł", "1 234,56", "1.234,56 zł" and "59.99" all parse.
func ParsePrice(s string) (float64, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	t = strings.ReplaceAll(t, " ", "")
	t = strings.ReplaceAll(t, " ", "")
	t = strings.ReplaceAll(t, "\t", "")
	t = strings.TrimSuffix(t, "zł")

	hasComma := strings.Contains(t, ",")
	hasDot := strings.Contains(t, ".")
	switch {
	case hasComma && hasDot:
		// "1.234,56" — dots are thousands separators
		t = strings.ReplaceAll(t, ".", "")
		t = strings.ReplaceAll(t, ",", ".")
	case hasComma:
		t = strings.ReplaceAll(t, ",", ".")
	}

	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", s, err)
	}
	return v, nil
}
