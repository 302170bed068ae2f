package models

import (
	"fmt"
	"strings"
)

// NormalizeSymbol returns the canonical upper-case ticker without exchange suffix.
func NormalizeSymbol(s string) (string, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, ".SA")
	if len(s) < 4 || len(s) > 6 {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, s)
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, s)
		}
	}
	return s, nil
}

// YahooSymbol returns the form used by the Yahoo chart API.
func YahooSymbol(s string) string {
	return strings.TrimSuffix(strings.ToUpper(s), ".SA") + ".SA"
}
