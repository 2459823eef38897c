package catalog

import (
	"fmt"
	"strings"
)

// ParseAmount parses a decimal price string into integer cents.
// It accepts "12", "12.5", "12.50", and thousands separators ("1,234.56").
// Anything else, including negative values, is an error; a malformed
// price must be excluded from aggregation, never coerced to zero.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty price")
	}
	if s[0] == '-' {
		return 0, fmt.Errorf("negative price %q", s)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" || len(frac) > 2 {
		return 0, fmt.Errorf("malformed price %q", s)
	}

	var cents int64
	for _, r := range whole {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("malformed price %q", s)
		}
		cents = cents*10 + int64(r-'0')
	}
	cents *= 100

	// "12.5" means 12.50, not 12.05.
	scale := int64(10)
	for _, r := range frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("malformed price %q", s)
		}
		cents += int64(r-'0') * scale
		scale /= 10
	}

	return cents, nil
}

// FormatAmount renders integer cents as a two-decimal price string.
func FormatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
