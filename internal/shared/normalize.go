package shared

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// NormalizeEmail trims and case folds an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

// NormalizeNames trims names, drops empties and removes duplicates keeping first-seen order.
func NormalizeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// ParseID parses a positive resource identifier.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}
