package marketplace

import "strings"

// BuildQuery derives a natural-language search query from a marketplace match.
// Search operators like site: are deliberately avoided because they degrade
// the grounding quality of downstream model calls. Returns "" for nil matches.
func BuildQuery(match *Match) string {
	if match == nil || len(match.IDs) == 0 {
		return ""
	}

	parts := make([]string, 0, len(match.IDs)+2)
	parts = append(parts, match.Platform, "product")
	parts = append(parts, match.IDs...)
	return strings.Join(parts, " ")
}
